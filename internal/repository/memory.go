package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/servicedesk/internal/domain"
)

// MemoryStore keeps every repository in process memory. It backs development runs
// without POSTGRES_DSN and the service tests.
type MemoryStore struct {
	mu        sync.Mutex
	tickets   map[string]domain.Ticket
	records   map[string][]domain.AssignmentRecord
	lastStamp time.Time

	orgMu    sync.RWMutex
	staff    map[string]domain.StaffMember
	sections map[string]domain.Section
	holidays map[string]domain.Holiday
	orgStamp time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tickets:  make(map[string]domain.Ticket),
		records:  make(map[string][]domain.AssignmentRecord),
		staff:    make(map[string]domain.StaffMember),
		sections: make(map[string]domain.Section),
		holidays: make(map[string]domain.Holiday),
	}
}

// Tickets returns a ticket repository over the store.
func (s *MemoryStore) Tickets() TicketRepository { return memTickets{store: s} }

// Assignments returns an assignment repository over the store.
func (s *MemoryStore) Assignments() AssignmentRepository { return memAssignments{store: s} }

// Staff returns a staff repository over the store.
func (s *MemoryStore) Staff() StaffRepository { return memStaff{store: s} }

// Sections returns a section repository over the store.
func (s *MemoryStore) Sections() SectionRepository { return memSections{store: s} }

// Holidays returns a holiday repository over the store.
func (s *MemoryStore) Holidays() HolidayRepository { return memHolidays{store: s} }

// Atomically stages every write made through repos and applies them only when fn
// returns nil. Writers are serialized. fn must not call the store's non-transactional
// ticket or assignment repositories.
func (s *MemoryStore) Atomically(ctx context.Context, fn func(repos TxRepositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{store: s, tickets: make(map[string]domain.Ticket), records: make(map[string][]domain.AssignmentRecord)}
	if err := fn(TxRepositories{Tickets: memTxTickets{tx}, Assignments: memTxAssignments{tx}}); err != nil {
		return err
	}
	for id, ticket := range tx.tickets {
		s.tickets[id] = ticket
	}
	for id, records := range tx.records {
		s.records[id] = append(s.records[id], records...)
	}
	return nil
}

// stamp returns a strictly increasing wall clock reading. Callers hold mu.
func (s *MemoryStore) stamp() time.Time {
	now := time.Now().UTC()
	if !now.After(s.lastStamp) {
		now = s.lastStamp.Add(time.Nanosecond)
	}
	s.lastStamp = now
	return now
}

// orgNow mirrors stamp for the organisation maps. Callers hold orgMu.
func (s *MemoryStore) orgNow() time.Time {
	now := time.Now().UTC()
	if !now.After(s.orgStamp) {
		now = s.orgStamp.Add(time.Nanosecond)
	}
	s.orgStamp = now
	return now
}

type memTx struct {
	store   *MemoryStore
	tickets map[string]domain.Ticket
	records map[string][]domain.AssignmentRecord
}

func (tx *memTx) ticket(id string) (domain.Ticket, bool) {
	if ticket, ok := tx.tickets[id]; ok {
		return ticket, true
	}
	ticket, ok := tx.store.tickets[id]
	return ticket, ok
}

func (tx *memTx) history(ticketID string) []domain.AssignmentRecord {
	committed := tx.store.records[ticketID]
	staged := tx.records[ticketID]
	out := make([]domain.AssignmentRecord, 0, len(committed)+len(staged))
	out = append(out, committed...)
	return append(out, staged...)
}

func (tx *memTx) allTickets() []domain.Ticket {
	out := make([]domain.Ticket, 0, len(tx.store.tickets)+len(tx.tickets))
	for id, ticket := range tx.store.tickets {
		if staged, ok := tx.tickets[id]; ok {
			ticket = staged
		}
		out = append(out, ticket)
	}
	for id, ticket := range tx.tickets {
		if _, ok := tx.store.tickets[id]; !ok {
			out = append(out, ticket)
		}
	}
	return out
}

type memTxTickets struct{ tx *memTx }

func (r memTxTickets) Create(_ context.Context, ticket *domain.Ticket) error {
	if ticket.ID == "" {
		ticket.ID = uuid.NewString()
	}
	now := r.tx.store.stamp()
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = now
	}
	ticket.UpdatedAt = ticket.CreatedAt
	ticket.Version = 1
	r.tx.tickets[ticket.ID] = cloneTicket(*ticket)
	return nil
}

func (r memTxTickets) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	ticket, ok := r.tx.ticket(id)
	if !ok {
		return nil, domain.ErrTicketNotFound
	}
	out := cloneTicket(ticket)
	return &out, nil
}

func (r memTxTickets) ListOpen(_ context.Context) ([]domain.Ticket, error) {
	var out []domain.Ticket
	for _, ticket := range r.tx.allTickets() {
		if ticket.IsSweepable() {
			out = append(out, cloneTicket(ticket))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r memTxTickets) List(_ context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	var out []domain.Ticket
	for _, ticket := range r.tx.allTickets() {
		if matchesTicketFilter(ticket, filter) {
			out = append(out, cloneTicket(ticket))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	limit, offset := normalizePage(filter.Limit, filter.Offset, 20)
	return page(out, limit, offset), nil
}

func (r memTxTickets) CompareAndUpdate(_ context.Context, id string, expectedVersion int64, patch domain.TicketPatch) (*domain.Ticket, error) {
	ticket, ok := r.tx.ticket(id)
	if !ok {
		return nil, domain.ErrTicketNotFound
	}
	if ticket.Version != expectedVersion {
		return nil, domain.ErrConcurrentModification
	}
	ticket = cloneTicket(ticket)
	patch.Apply(&ticket)
	ticket.Version++
	ticket.UpdatedAt = r.tx.store.stamp()
	r.tx.tickets[id] = ticket
	out := cloneTicket(ticket)
	return &out, nil
}

type memTxAssignments struct{ tx *memTx }

func (r memTxAssignments) Append(_ context.Context, record *domain.AssignmentRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = r.tx.store.stamp()
	}
	if history := r.tx.history(record.TicketID); len(history) > 0 {
		if last := history[len(history)-1].CreatedAt; last.After(record.CreatedAt) {
			record.CreatedAt = last
		}
	}
	r.tx.records[record.TicketID] = append(r.tx.records[record.TicketID], *record)
	return nil
}

func (r memTxAssignments) ListByTicket(_ context.Context, ticketID string) ([]domain.AssignmentRecord, error) {
	return r.tx.history(ticketID), nil
}

type memTickets struct{ store *MemoryStore }

func (r memTickets) Create(ctx context.Context, ticket *domain.Ticket) error {
	return r.store.Atomically(ctx, func(repos TxRepositories) error {
		return repos.Tickets.Create(ctx, ticket)
	})
}

func (r memTickets) GetByID(ctx context.Context, id string) (ticket *domain.Ticket, err error) {
	err = r.store.Atomically(ctx, func(repos TxRepositories) error {
		ticket, err = repos.Tickets.GetByID(ctx, id)
		return err
	})
	return ticket, err
}

func (r memTickets) List(ctx context.Context, filter TicketFilter) (tickets []domain.Ticket, err error) {
	err = r.store.Atomically(ctx, func(repos TxRepositories) error {
		tickets, err = repos.Tickets.List(ctx, filter)
		return err
	})
	return tickets, err
}

func (r memTickets) ListOpen(ctx context.Context) (tickets []domain.Ticket, err error) {
	err = r.store.Atomically(ctx, func(repos TxRepositories) error {
		tickets, err = repos.Tickets.ListOpen(ctx)
		return err
	})
	return tickets, err
}

func (r memTickets) CompareAndUpdate(ctx context.Context, id string, expectedVersion int64, patch domain.TicketPatch) (ticket *domain.Ticket, err error) {
	err = r.store.Atomically(ctx, func(repos TxRepositories) error {
		ticket, err = repos.Tickets.CompareAndUpdate(ctx, id, expectedVersion, patch)
		return err
	})
	return ticket, err
}

type memAssignments struct{ store *MemoryStore }

func (r memAssignments) Append(ctx context.Context, record *domain.AssignmentRecord) error {
	return r.store.Atomically(ctx, func(repos TxRepositories) error {
		return repos.Assignments.Append(ctx, record)
	})
}

func (r memAssignments) ListByTicket(ctx context.Context, ticketID string) (records []domain.AssignmentRecord, err error) {
	err = r.store.Atomically(ctx, func(repos TxRepositories) error {
		records, err = repos.Assignments.ListByTicket(ctx, ticketID)
		return err
	})
	return records, err
}

type memStaff struct{ store *MemoryStore }

func (r memStaff) Create(_ context.Context, staff *domain.StaffMember) error {
	r.store.orgMu.Lock()
	defer r.store.orgMu.Unlock()
	if r.emailTaken(staff.Email, "") {
		return ErrStaffEmailTaken
	}
	if staff.ID == "" {
		staff.ID = uuid.NewString()
	}
	now := r.store.orgNow()
	staff.CreatedAt, staff.UpdatedAt = now, now
	r.store.staff[staff.ID] = cloneStaff(*staff)
	return nil
}

func (r memStaff) Update(_ context.Context, staff *domain.StaffMember) error {
	r.store.orgMu.Lock()
	defer r.store.orgMu.Unlock()
	existing, ok := r.store.staff[staff.ID]
	if !ok {
		return ErrStaffNotFound
	}
	if r.emailTaken(staff.Email, staff.ID) {
		return ErrStaffEmailTaken
	}
	staff.CreatedAt = existing.CreatedAt
	staff.UpdatedAt = r.store.orgNow()
	r.store.staff[staff.ID] = cloneStaff(*staff)
	return nil
}

func (r memStaff) emailTaken(email, exceptID string) bool {
	for id, member := range r.store.staff {
		if id != exceptID && strings.EqualFold(member.Email, email) {
			return true
		}
	}
	return false
}

func (r memStaff) GetByID(_ context.Context, id string) (*domain.StaffMember, error) {
	r.store.orgMu.RLock()
	defer r.store.orgMu.RUnlock()
	member, ok := r.store.staff[id]
	if !ok {
		return nil, ErrStaffNotFound
	}
	out := cloneStaff(member)
	return &out, nil
}

func (r memStaff) GetByEmail(_ context.Context, email string) (*domain.StaffMember, error) {
	r.store.orgMu.RLock()
	defer r.store.orgMu.RUnlock()
	for _, member := range r.store.staff {
		if strings.EqualFold(member.Email, email) {
			out := cloneStaff(member)
			return &out, nil
		}
	}
	return nil, ErrStaffNotFound
}

func (r memStaff) List(_ context.Context, filter StaffFilter) ([]domain.StaffMember, error) {
	r.store.orgMu.RLock()
	defer r.store.orgMu.RUnlock()
	var out []domain.StaffMember
	for _, member := range r.store.staff {
		if filter.Role != nil && member.Role != *filter.Role {
			continue
		}
		if filter.SectionID != nil && !equalPtr(member.SectionID, filter.SectionID) {
			continue
		}
		if filter.Active != nil && member.Active != *filter.Active {
			continue
		}
		out = append(out, cloneStaff(member))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	limit, offset := normalizePage(filter.Limit, filter.Offset, 50)
	return page(out, limit, offset), nil
}

func (r memStaff) FindByRole(_ context.Context, role domain.Role, sectionID *string) ([]domain.StaffMember, error) {
	r.store.orgMu.RLock()
	defer r.store.orgMu.RUnlock()
	var out []domain.StaffMember
	for _, member := range r.store.staff {
		if !member.Active || member.Role != role {
			continue
		}
		if sectionID != nil && !equalPtr(member.SectionID, sectionID) {
			continue
		}
		out = append(out, cloneStaff(member))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

type memSections struct{ store *MemoryStore }

func (r memSections) Create(_ context.Context, section *domain.Section) error {
	r.store.orgMu.Lock()
	defer r.store.orgMu.Unlock()
	if section.ID == "" {
		section.ID = uuid.NewString()
	}
	now := r.store.orgNow()
	section.CreatedAt, section.UpdatedAt = now, now
	r.store.sections[section.ID] = *section
	return nil
}

func (r memSections) Update(_ context.Context, section *domain.Section) error {
	r.store.orgMu.Lock()
	defer r.store.orgMu.Unlock()
	existing, ok := r.store.sections[section.ID]
	if !ok {
		return ErrSectionNotFound
	}
	section.CreatedAt = existing.CreatedAt
	section.UpdatedAt = r.store.orgNow()
	r.store.sections[section.ID] = *section
	return nil
}

func (r memSections) GetByID(_ context.Context, id string) (*domain.Section, error) {
	r.store.orgMu.RLock()
	defer r.store.orgMu.RUnlock()
	section, ok := r.store.sections[id]
	if !ok {
		return nil, ErrSectionNotFound
	}
	return &section, nil
}

func (r memSections) ListActive(_ context.Context) ([]domain.Section, error) {
	r.store.orgMu.RLock()
	defer r.store.orgMu.RUnlock()
	var out []domain.Section
	for _, section := range r.store.sections {
		if section.IsActive {
			out = append(out, section)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type memHolidays struct{ store *MemoryStore }

func (r memHolidays) List(_ context.Context) ([]domain.Holiday, error) {
	r.store.orgMu.RLock()
	defer r.store.orgMu.RUnlock()
	out := make([]domain.Holiday, 0, len(r.store.holidays))
	for _, holiday := range r.store.holidays {
		out = append(out, holiday)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (r memHolidays) Upsert(_ context.Context, holiday *domain.Holiday) error {
	r.store.orgMu.Lock()
	defer r.store.orgMu.Unlock()
	key := domain.DateKey(holiday.Date)
	if existing, ok := r.store.holidays[key]; ok {
		holiday.CreatedAt = existing.CreatedAt
	} else {
		holiday.CreatedAt = r.store.orgNow()
	}
	r.store.holidays[key] = *holiday
	return nil
}

func (r memHolidays) Delete(_ context.Context, date time.Time) error {
	r.store.orgMu.Lock()
	defer r.store.orgMu.Unlock()
	delete(r.store.holidays, domain.DateKey(date))
	return nil
}

func matchesTicketFilter(ticket domain.Ticket, filter TicketFilter) bool {
	if len(filter.Statuses) > 0 && !contains(filter.Statuses, ticket.Status) {
		return false
	}
	if len(filter.Categories) > 0 && !contains(filter.Categories, ticket.Category) {
		return false
	}
	if filter.Role != nil && ticket.CurrentRole != *filter.Role {
		return false
	}
	if filter.HolderID != nil && ticket.CurrentHolderID != *filter.HolderID {
		return false
	}
	if filter.SectionID != nil && !equalPtr(ticket.SectionID, filter.SectionID) {
		return false
	}
	if filter.CreatedFrom != nil && ticket.CreatedAt.Before(*filter.CreatedFrom) {
		return false
	}
	if filter.CreatedTo != nil && ticket.CreatedAt.After(*filter.CreatedTo) {
		return false
	}
	return true
}

func contains[T comparable](values []T, v T) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

func equalPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

func cloneTicket(t domain.Ticket) domain.Ticket {
	if t.SectionID != nil {
		section := *t.SectionID
		t.SectionID = &section
	}
	if t.ResolvedAt != nil {
		resolved := *t.ResolvedAt
		t.ResolvedAt = &resolved
	}
	return t
}

func cloneStaff(s domain.StaffMember) domain.StaffMember {
	if s.SectionID != nil {
		section := *s.SectionID
		s.SectionID = &section
	}
	return s
}

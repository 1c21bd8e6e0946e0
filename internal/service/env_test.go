package service_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/events"
	"github.com/spec-kit/servicedesk/internal/observability"
	"github.com/spec-kit/servicedesk/internal/repository"
	"github.com/spec-kit/servicedesk/internal/service"
	"github.com/spec-kit/servicedesk/internal/sla"
)

// monday is 2026-10-05 09:00 UTC.
var monday = time.Date(2026, 10, 5, 9, 0, 0, 0, time.UTC)

type notification struct {
	TicketID    string
	SenderID    string
	RecipientID string
	Message     string
}

type recordingNotifier struct {
	mu    sync.Mutex
	sent  []notification
	fail  error
	calls int
}

func (n *recordingNotifier) Notify(_ context.Context, ticketID, senderID, recipientID, message, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
	if n.fail != nil {
		return n.fail
	}
	n.sent = append(n.sent, notification{TicketID: ticketID, SenderID: senderID, RecipientID: recipientID, Message: message})
	return nil
}

type envOptions struct {
	transactor   func(*repository.MemoryStore) repository.Transactor
	tickets      func(*repository.MemoryStore) repository.TicketRepository
	calendar     service.HolidayCalendar
	crossSection *bool
}

type env struct {
	store      *repository.MemoryStore
	workflow   *service.WorkflowService
	sweeper    *service.EscalationSweeper
	holidays   *service.HolidayService
	notifier   *recordingNotifier
	metrics    *observability.Metrics
	dispatcher events.Dispatcher

	mu      sync.Mutex
	now     time.Time
	counter int
}

func newEnv(t *testing.T, opts ...func(*envOptions)) *env {
	t.Helper()
	var options envOptions
	for _, opt := range opts {
		opt(&options)
	}

	store := repository.NewMemoryStore()
	e := &env{
		store:      store,
		notifier:   &recordingNotifier{},
		metrics:    observability.NewMetrics(),
		dispatcher: events.NewInMemoryDispatcher(),
		now:        monday,
	}

	var transactor repository.Transactor = store
	if options.transactor != nil {
		transactor = options.transactor(store)
	}
	tickets := store.Tickets()
	if options.tickets != nil {
		tickets = options.tickets(store)
	}
	e.holidays = service.NewHolidayService(store.Holidays())
	var calendar service.HolidayCalendar = e.holidays
	if options.calendar != nil {
		calendar = options.calendar
	}
	crossSection := true
	if options.crossSection != nil {
		crossSection = *options.crossSection
	}

	clock := sla.NewClock(sla.DefaultThresholds(), time.UTC)
	directory := service.NewDirectory(store.Staff(), crossSection)
	recorder := service.NewRecorder(service.RecorderDependencies{
		Transactor:    transactor,
		Notifier:      e.notifier,
		Dispatcher:    e.dispatcher,
		Metrics:       e.metrics,
		Logger:        zap.NewNop(),
		Channel:       service.ChannelEmail,
		SystemActorID: "system",
	})
	e.workflow = service.NewWorkflowService(service.WorkflowDependencies{
		TicketRepo:     store.Tickets(),
		AssignmentRepo: store.Assignments(),
		SectionRepo:    store.Sections(),
		StaffRepo:      store.Staff(),
		Directory:      directory,
		Recorder:       recorder,
		Clock:          clock,
		Calendar:       calendar,
		Now:            e.clock,
	})
	e.sweeper = service.NewEscalationSweeper(service.SweeperDependencies{
		TicketRepo:    tickets,
		Calendar:      calendar,
		Clock:         clock,
		Directory:     directory,
		Recorder:      recorder,
		Workers:       4,
		SystemActorID: "system",
		Metrics:       e.metrics,
		Logger:        zap.NewNop(),
	})
	return e
}

func (e *env) clock() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.now
}

func (e *env) setNow(now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = now
}

func (e *env) hire(t *testing.T, role domain.Role, sectionID *string) *domain.StaffMember {
	t.Helper()
	e.counter++
	member := &domain.StaffMember{
		Name:   fmt.Sprintf("%s %d", role, e.counter),
		Email:  fmt.Sprintf("staff%d@example.com", e.counter),
		Role:   role,
		Active: true,
	}
	if sectionID != nil {
		section := *sectionID
		member.SectionID = &section
	}
	require.NoError(t, e.store.Staff().Create(context.Background(), member))
	return member
}

func (e *env) section(t *testing.T, name string) *domain.Section {
	t.Helper()
	section := &domain.Section{Name: name, IsActive: true}
	require.NoError(t, e.store.Sections().Create(context.Background(), section))
	return section
}

func (e *env) admin(t *testing.T) *domain.StaffMember {
	t.Helper()
	return e.hire(t, domain.RoleAdmin, nil)
}

func (e *env) history(t *testing.T, ticketID string) []domain.AssignmentRecord {
	t.Helper()
	records, err := e.store.Assignments().ListByTicket(context.Background(), ticketID)
	require.NoError(t, err)
	return records
}

func (e *env) ticket(t *testing.T, ticketID string) *domain.Ticket {
	t.Helper()
	ticket, err := e.store.Tickets().GetByID(context.Background(), ticketID)
	require.NoError(t, err)
	return ticket
}

// requireHistoryConsistent checks that record timestamps never decrease and that the
// latest record points at the ticket's current role and holder.
func requireHistoryConsistent(t *testing.T, e *env, ticketID string) {
	t.Helper()
	ticket := e.ticket(t, ticketID)
	records := e.history(t, ticketID)
	require.NotEmpty(t, records)
	for i := 1; i < len(records); i++ {
		require.False(t, records[i].CreatedAt.Before(records[i-1].CreatedAt), "record %d goes back in time", i)
	}
	last := records[len(records)-1]
	require.Equal(t, ticket.CurrentRole, last.TargetRole)
	require.Equal(t, ticket.CurrentHolderID, last.TargetUserID)
}

func actions(records []domain.AssignmentRecord) []domain.AssignmentAction {
	out := make([]domain.AssignmentAction, len(records))
	for i, record := range records {
		out[i] = record.Action
	}
	return out
}

func strPtr(v string) *string {
	return &v
}

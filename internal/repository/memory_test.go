package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/repository"
)

func newTicket() *domain.Ticket {
	return &domain.Ticket{
		ExternalKey:     "TCK-1",
		Category:        domain.CategoryInquiry,
		Severity:        domain.SeverityNone,
		UnitKind:        domain.UnitKindUnit,
		Status:          domain.TicketStatusOpen,
		CurrentRole:     domain.RoleFocalPerson,
		CurrentHolderID: "u1",
	}
}

func TestMemoryCompareAndUpdate(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	tickets := store.Tickets()

	ticket := newTicket()
	require.NoError(t, tickets.Create(ctx, ticket))
	assert.Equal(t, int64(1), ticket.Version)

	status := domain.TicketStatusInProgress
	updated, err := tickets.CompareAndUpdate(ctx, ticket.ID, 1, domain.TicketPatch{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.Version)
	assert.Equal(t, domain.TicketStatusInProgress, updated.Status)

	_, err = tickets.CompareAndUpdate(ctx, ticket.ID, 1, domain.TicketPatch{Status: &status})
	assert.ErrorIs(t, err, domain.ErrConcurrentModification)

	_, err = tickets.CompareAndUpdate(ctx, "missing", 1, domain.TicketPatch{Status: &status})
	assert.ErrorIs(t, err, domain.ErrTicketNotFound)
}

func TestMemoryAtomicallyRollsBack(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	ticket := newTicket()
	require.NoError(t, store.Tickets().Create(ctx, ticket))

	boom := errors.New("boom")
	err := store.Atomically(ctx, func(repos repository.TxRepositories) error {
		status := domain.TicketStatusEscalated
		if _, err := repos.Tickets.CompareAndUpdate(ctx, ticket.ID, ticket.Version, domain.TicketPatch{Status: &status}); err != nil {
			return err
		}
		staged, err := repos.Tickets.GetByID(ctx, ticket.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.TicketStatusEscalated, staged.Status)

		if err := repos.Assignments.Append(ctx, &domain.AssignmentRecord{TicketID: ticket.ID, Action: domain.ActionEscalated}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	stored, err := store.Tickets().GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, stored.Status)
	assert.Equal(t, int64(1), stored.Version)

	history, err := store.Assignments().ListByTicket(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestMemoryAppendKeepsTimestampsMonotonic(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	records := store.Assignments()

	later := time.Date(2026, 10, 6, 12, 0, 0, 0, time.UTC)
	earlier := later.Add(-time.Hour)

	require.NoError(t, records.Append(ctx, &domain.AssignmentRecord{TicketID: "t1", Action: domain.ActionAssigned, CreatedAt: later}))
	second := &domain.AssignmentRecord{TicketID: "t1", Action: domain.ActionReviewed, CreatedAt: earlier}
	require.NoError(t, records.Append(ctx, second))
	assert.Equal(t, later, second.CreatedAt)

	history, err := records.ListByTicket(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.False(t, history[1].CreatedAt.Before(history[0].CreatedAt))
}

func TestMemoryListOpenSkipsClosed(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()

	open := newTicket()
	require.NoError(t, store.Tickets().Create(ctx, open))
	closed := newTicket()
	closed.ExternalKey = "TCK-2"
	closed.Status = domain.TicketStatusClosed
	require.NoError(t, store.Tickets().Create(ctx, closed))
	review := newTicket()
	review.ExternalKey = "TCK-3"
	review.Status = domain.TicketStatusPendingReview
	require.NoError(t, store.Tickets().Create(ctx, review))

	tickets, err := store.Tickets().ListOpen(ctx)
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	assert.Equal(t, open.ID, tickets[0].ID)
}

func TestMemoryFindByRole(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	staff := store.Staff()
	sectionA, sectionB := "a", "b"

	first := &domain.StaffMember{Name: "First", Email: "first@example.com", Role: domain.RoleAttendee, SectionID: &sectionA, Active: true}
	second := &domain.StaffMember{Name: "Second", Email: "second@example.com", Role: domain.RoleAttendee, SectionID: &sectionB, Active: true}
	inactive := &domain.StaffMember{Name: "Gone", Email: "gone@example.com", Role: domain.RoleAttendee, SectionID: &sectionA}
	for _, member := range []*domain.StaffMember{first, second, inactive} {
		require.NoError(t, staff.Create(ctx, member))
	}

	scoped, err := staff.FindByRole(ctx, domain.RoleAttendee, &sectionA)
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, first.ID, scoped[0].ID)

	all, err := staff.FindByRole(ctx, domain.RoleAttendee, nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, first.ID, all[0].ID)
	assert.Equal(t, second.ID, all[1].ID)

	err = staff.Create(ctx, &domain.StaffMember{Email: "FIRST@example.com", Role: domain.RoleDirector})
	assert.ErrorIs(t, err, repository.ErrStaffEmailTaken)
}

func TestMemoryHolidaysUpsert(t *testing.T) {
	ctx := context.Background()
	holidays := repository.NewMemoryStore().Holidays()
	date := time.Date(2026, 12, 25, 0, 0, 0, 0, time.UTC)

	require.NoError(t, holidays.Upsert(ctx, &domain.Holiday{Date: date, Name: "Christmas"}))
	require.NoError(t, holidays.Upsert(ctx, &domain.Holiday{Date: date, Name: "Christmas Day"}))

	list, err := holidays.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Christmas Day", list[0].Name)

	require.NoError(t, holidays.Delete(ctx, date))
	list, err = holidays.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/persistence"
	"github.com/spec-kit/servicedesk/internal/repository"
	"github.com/spec-kit/servicedesk/internal/service"
	"github.com/spec-kit/servicedesk/internal/sla"
)

// eightDaysLater is eight working days after monday.
var eightDaysLater = time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

type minorComplaint struct {
	ticket      *domain.Ticket
	coordinator *domain.StaffMember
	attendee    *domain.StaffMember
}

// openMinorComplaint creates a minor complaint and hands it to the attendee.
func openMinorComplaint(t *testing.T, e *env) minorComplaint {
	t.Helper()
	ctx := context.Background()
	coordinator := e.hire(t, domain.RoleCoordinator, nil)
	attendee := e.hire(t, domain.RoleAttendee, nil)
	ticket, err := e.workflow.CreateTicket(ctx, coordinator, service.CreateTicketInput{
		Category: domain.CategoryComplaint,
		Severity: domain.SeverityMinor,
		Subject:  "Late delivery",
	})
	require.NoError(t, err)
	ticket, err = e.workflow.AssignToNext(ctx, coordinator, ticket.ID, service.AssignInput{})
	require.NoError(t, err)
	return minorComplaint{ticket: ticket, coordinator: coordinator, attendee: attendee}
}

func TestSweepEscalatesBreachedTicket(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	c := openMinorComplaint(t, e)
	head := e.hire(t, domain.RoleHeadOfUnit, nil)

	report, err := e.sweeper.RunEscalationSweep(ctx, eightDaysLater)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Scanned)
	assert.Equal(t, 1, report.Escalated)

	ticket := e.ticket(t, c.ticket.ID)
	assert.Equal(t, domain.TicketStatusEscalated, ticket.Status)
	assert.True(t, ticket.IsEscalated)
	assert.Equal(t, domain.RoleHeadOfUnit, ticket.CurrentRole)
	assert.Equal(t, head.ID, ticket.CurrentHolderID)

	records := e.history(t, ticket.ID)
	last := records[len(records)-1]
	assert.Equal(t, domain.ActionEscalated, last.Action)
	assert.Equal(t, "system", last.ActorID)
	assert.Contains(t, last.Reason, "8 working days")
	assert.Contains(t, last.Reason, "threshold 7")
	requireHistoryConsistent(t, e, ticket.ID)

	require.NotNil(t, e.sweeper.LastReport())
	assert.Equal(t, 1, e.sweeper.LastReport().Escalated)
}

func TestSweepBoundaryAtThreshold(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	c := openMinorComplaint(t, e)
	e.hire(t, domain.RoleHeadOfUnit, nil)

	sevenDaysLater := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)
	report, err := e.sweeper.RunEscalationSweep(ctx, sevenDaysLater)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Escalated)
	assert.Equal(t, 1, report.SkipReasons[service.SkipNotBreached])
	assert.Equal(t, domain.TicketStatusAssigned, e.ticket(t, c.ticket.ID).Status)
}

func TestSweepTwiceDoesNotDuplicateEscalation(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	first := openMinorComplaint(t, e)
	e.hire(t, domain.RoleHeadOfUnit, nil)
	second, err := e.workflow.CreateTicket(ctx, first.coordinator, service.CreateTicketInput{
		Category: domain.CategoryComplaint,
		Severity: domain.SeverityMinor,
		Subject:  "Another",
	})
	require.NoError(t, err)

	report, err := e.sweeper.RunEscalationSweep(ctx, eightDaysLater)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Escalated)

	report, err = e.sweeper.RunEscalationSweep(ctx, eightDaysLater)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Escalated)

	for _, id := range []string{first.ticket.ID, second.ID} {
		escalations := 0
		for _, record := range e.history(t, id) {
			if record.Action == domain.ActionEscalated {
				escalations++
			}
		}
		assert.Equal(t, 1, escalations, "ticket %s", id)
	}
}

func TestReverseAfterEscalationReturnsToLastForwardHolder(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	c := openMinorComplaint(t, e)
	head := e.hire(t, domain.RoleHeadOfUnit, nil)

	_, err := e.sweeper.RunEscalationSweep(ctx, eightDaysLater)
	require.NoError(t, err)

	e.setNow(eightDaysLater)
	ticket, err := e.workflow.Reverse(ctx, head, c.ticket.ID, "attendee owns the follow-up")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAttendee, ticket.CurrentRole)
	assert.Equal(t, c.attendee.ID, ticket.CurrentHolderID)
	assert.Equal(t, domain.TicketStatusReturned, ticket.Status)
	assert.False(t, ticket.IsEscalated)
	requireHistoryConsistent(t, e, ticket.ID)
}

func TestEscalatedHolderCanClose(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	section := e.section(t, "Customer Directorate")
	coordinator := e.hire(t, domain.RoleCoordinator, nil)
	attendee := e.hire(t, domain.RoleAttendee, nil)
	head := e.hire(t, domain.RoleHeadOfUnit, nil)

	ticket, err := e.workflow.CreateTicket(ctx, coordinator, service.CreateTicketInput{
		Category:  domain.CategoryComplaint,
		Severity:  domain.SeverityMinor,
		SectionID: &section.ID,
		Subject:   "x",
	})
	require.NoError(t, err)
	_, err = e.workflow.AssignToNext(ctx, coordinator, ticket.ID, service.AssignInput{})
	require.NoError(t, err)
	_, err = e.workflow.Attend(ctx, attendee, ticket.ID)
	require.NoError(t, err)

	_, err = e.sweeper.RunEscalationSweep(ctx, eightDaysLater)
	require.NoError(t, err)

	// head-of-unit is off the directorate path, so it cannot hand forward but may close.
	_, err = e.workflow.AssignToNext(ctx, head, ticket.ID, service.AssignInput{})
	require.ErrorIs(t, err, domain.ErrEscalatedHolder)

	closed, err := e.workflow.Close(ctx, head, ticket.ID, "resolved by supervisor")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusClosed, closed.Status)
	assert.False(t, closed.IsEscalated)
}

func TestAttendAcknowledgesEscalation(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	focal := e.hire(t, domain.RoleFocalPerson, nil)
	e.hire(t, domain.RoleAttendee, nil)
	coordinator := e.hire(t, domain.RoleCoordinator, nil)

	ticket, err := e.workflow.CreateTicket(ctx, focal, service.CreateTicketInput{Category: domain.CategoryInquiry, Subject: "x"})
	require.NoError(t, err)
	_, err = e.workflow.AssignToNext(ctx, focal, ticket.ID, service.AssignInput{})
	require.NoError(t, err)

	fourDaysLater := time.Date(2026, 10, 9, 9, 0, 0, 0, time.UTC)
	report, err := e.sweeper.RunEscalationSweep(ctx, fourDaysLater)
	require.NoError(t, err)
	require.Equal(t, 1, report.Escalated)
	assert.Equal(t, coordinator.ID, e.ticket(t, ticket.ID).CurrentHolderID)

	attended, err := e.workflow.Attend(ctx, coordinator, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusAssigned, attended.Status)
	assert.False(t, attended.IsEscalated)

	_, err = e.workflow.AssignToNext(ctx, coordinator, ticket.ID, service.AssignInput{})
	require.ErrorIs(t, err, domain.ErrEscalatedHolder)

	report, err = e.sweeper.RunEscalationSweep(ctx, fourDaysLater)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Escalated)
	assert.Equal(t, 1, report.SkipReasons[service.SkipNoHigherRole])
}

func TestSweepSkipsWithoutSLAOrHolder(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	c := openMinorComplaint(t, e)
	_, err := e.workflow.CreateTicket(ctx, c.coordinator, service.CreateTicketInput{
		Category: domain.CategoryCompliment,
		Subject:  "Great service",
	})
	require.NoError(t, err)

	report, err := e.sweeper.RunEscalationSweep(ctx, eightDaysLater)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Scanned)
	assert.Equal(t, 0, report.Escalated)
	assert.Equal(t, 0, report.Failed)
	assert.Equal(t, 1, report.SkipReasons[service.SkipNoSLA])
	assert.Equal(t, 1, report.SkipReasons[service.SkipUserNotFound])

	ticket := e.ticket(t, c.ticket.ID)
	assert.Equal(t, c.ticket.Version, ticket.Version)
	assert.Equal(t, c.attendee.ID, ticket.CurrentHolderID)
}

func TestSweepHonoursHolidays(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	c := openMinorComplaint(t, e)
	e.hire(t, domain.RoleHeadOfUnit, nil)
	_, err := e.holidays.Add(ctx, e.admin(t), time.Date(2026, 10, 7, 0, 0, 0, 0, time.UTC), "Holiday")
	require.NoError(t, err)

	report, err := e.sweeper.RunEscalationSweep(ctx, eightDaysLater)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Escalated)
	assert.Equal(t, domain.TicketStatusAssigned, e.ticket(t, c.ticket.ID).Status)
}

type racingTickets struct {
	repository.TicketRepository
	race func(context.Context)
}

func (r racingTickets) ListOpen(ctx context.Context) ([]domain.Ticket, error) {
	tickets, err := r.TicketRepository.ListOpen(ctx)
	r.race(ctx)
	return tickets, err
}

func TestSweepSkipsConcurrentlyModifiedTicket(t *testing.T) {
	ctx := context.Background()
	var race func(context.Context)
	e := newEnv(t, func(o *envOptions) {
		o.tickets = func(store *repository.MemoryStore) repository.TicketRepository {
			return racingTickets{TicketRepository: store.Tickets(), race: func(ctx context.Context) { race(ctx) }}
		}
	})
	c := openMinorComplaint(t, e)
	e.hire(t, domain.RoleHeadOfUnit, nil)
	race = func(ctx context.Context) {
		_, err := e.workflow.Attend(ctx, c.attendee, c.ticket.ID)
		require.NoError(t, err)
	}

	report, err := e.sweeper.RunEscalationSweep(ctx, eightDaysLater)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Escalated)
	assert.Equal(t, 1, report.SkipReasons[service.SkipConcurrentModification])

	ticket := e.ticket(t, c.ticket.ID)
	assert.Equal(t, domain.TicketStatusInProgress, ticket.Status)
	assert.False(t, ticket.IsEscalated)
}

type blockingCalendar struct {
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (b *blockingCalendar) ListHolidayDates(context.Context) (sla.HolidaySet, error) {
	b.once.Do(func() { close(b.entered) })
	<-b.release
	return sla.NewHolidaySet(), nil
}

func TestSweepRejectsOverlappingRun(t *testing.T) {
	ctx := context.Background()
	calendar := &blockingCalendar{entered: make(chan struct{}), release: make(chan struct{})}
	e := newEnv(t, func(o *envOptions) { o.calendar = calendar })

	done := make(chan error, 1)
	go func() {
		_, err := e.sweeper.RunEscalationSweep(ctx, eightDaysLater)
		done <- err
	}()
	<-calendar.entered

	_, err := e.sweeper.RunEscalationSweep(ctx, eightDaysLater)
	assert.ErrorIs(t, err, domain.ErrSweepInProgress)
	assert.True(t, e.sweeper.Running())

	close(calendar.release)
	require.NoError(t, <-done)
	assert.False(t, e.sweeper.Running())
}

type heldLock struct{}

func (heldLock) TryLock(context.Context, string, time.Duration) (*persistence.Lock, error) {
	return nil, persistence.ErrLockHeld
}

func TestSweepRespectsCrossInstanceLock(t *testing.T) {
	store := repository.NewMemoryStore()
	sweeper := service.NewEscalationSweeper(service.SweeperDependencies{
		TicketRepo: store.Tickets(),
		Calendar:   service.NewHolidayService(store.Holidays()),
		Clock:      sla.NewClock(sla.DefaultThresholds(), time.UTC),
		Directory:  service.NewDirectory(store.Staff(), true),
		Recorder:   service.NewRecorder(service.RecorderDependencies{Transactor: store}),
		Locker:     heldLock{},
	})

	_, err := sweeper.RunEscalationSweep(context.Background(), eightDaysLater)
	assert.ErrorIs(t, err, domain.ErrSweepInProgress)
	assert.False(t, sweeper.Running())
}

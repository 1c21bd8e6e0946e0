package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/observability"
	"github.com/spec-kit/servicedesk/internal/persistence"
	"github.com/spec-kit/servicedesk/internal/repository"
	"github.com/spec-kit/servicedesk/internal/sla"
	"github.com/spec-kit/servicedesk/internal/workflow"
)

const sweepLockKey = "servicedesk:escalation-sweep"

// Skip reasons reported by the sweep.
const (
	SkipAlreadyEscalated       = "already_escalated"
	SkipNoSLA                  = "no_sla"
	SkipNotBreached            = "not_breached"
	SkipNoHigherRole           = "no_higher_role"
	SkipUserNotFound           = "user_not_found"
	SkipConcurrentModification = "concurrent_modification"
)

// SweepLocker guards a sweep across instances.
type SweepLocker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (*persistence.Lock, error)
}

// SweepReport summarises one sweep run.
type SweepReport struct {
	StartedAt   time.Time      `json:"started_at"`
	FinishedAt  time.Time      `json:"finished_at"`
	Scanned     int            `json:"scanned"`
	Escalated   int            `json:"escalated"`
	Skipped     int            `json:"skipped"`
	Failed      int            `json:"failed"`
	SkipReasons map[string]int `json:"skip_reasons"`
}

type sweepOutcome struct {
	escalated bool
	failed    bool
	skip      string
}

func (r *SweepReport) add(outcome sweepOutcome) {
	r.Scanned++
	switch {
	case outcome.escalated:
		r.Escalated++
	case outcome.failed:
		r.Failed++
	default:
		r.Skipped++
		r.SkipReasons[outcome.skip]++
	}
}

// EscalationSweeper moves tickets that breached their SLA up their escalation path.
type EscalationSweeper struct {
	tickets       repository.TicketRepository
	calendar      HolidayCalendar
	clock         *sla.Clock
	directory     *Directory
	recorder      *Recorder
	locker        SweepLocker
	lockTTL       time.Duration
	workers       int
	systemActorID string
	metrics       *observability.Metrics
	logger        *zap.Logger

	running atomic.Bool
	mu      sync.RWMutex
	last    *SweepReport
}

// SweeperDependencies bundles sweeper collaborators.
type SweeperDependencies struct {
	TicketRepo    repository.TicketRepository
	Calendar      HolidayCalendar
	Clock         *sla.Clock
	Directory     *Directory
	Recorder      *Recorder
	Locker        SweepLocker
	LockTTL       time.Duration
	Workers       int
	SystemActorID string
	Metrics       *observability.Metrics
	Logger        *zap.Logger
}

// NewEscalationSweeper builds a sweeper.
func NewEscalationSweeper(deps SweeperDependencies) *EscalationSweeper {
	workers := deps.Workers
	if workers <= 0 {
		workers = 1
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	actor := deps.SystemActorID
	if actor == "" {
		actor = "system"
	}
	return &EscalationSweeper{
		tickets:       deps.TicketRepo,
		calendar:      deps.Calendar,
		clock:         deps.Clock,
		directory:     deps.Directory,
		recorder:      deps.Recorder,
		locker:        deps.Locker,
		lockTTL:       deps.LockTTL,
		workers:       workers,
		systemActorID: actor,
		metrics:       deps.Metrics,
		logger:        logger,
	}
}

// Running reports whether a sweep is in progress in this process.
func (s *EscalationSweeper) Running() bool {
	return s.running.Load()
}

// LastReport returns the report of the most recent completed sweep, if any.
func (s *EscalationSweeper) LastReport() *SweepReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return nil
	}
	report := *s.last
	return &report
}

// RunEscalationSweep scans open tickets once. Per-ticket problems are logged and
// counted in the report; an error is returned only when the sweep could not run at
// all, when it overlaps another run, or when ctx ends.
func (s *EscalationSweeper) RunEscalationSweep(ctx context.Context, now time.Time) (SweepReport, error) {
	if !s.running.CompareAndSwap(false, true) {
		return SweepReport{}, domain.ErrSweepInProgress
	}
	defer s.running.Store(false)

	if s.locker != nil {
		lock, err := s.locker.TryLock(ctx, sweepLockKey, s.lockTTL)
		switch {
		case errors.Is(err, persistence.ErrLockHeld):
			return SweepReport{}, domain.ErrSweepInProgress
		case err != nil:
			s.logger.Warn("sweep lock unavailable, continuing with process guard only", zap.Error(err))
		default:
			defer func() {
				if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
					s.logger.Warn("sweep lock release failed", zap.Error(err))
				}
			}()
		}
	}

	report := SweepReport{StartedAt: now, SkipReasons: map[string]int{}}
	holidays, err := s.calendar.ListHolidayDates(ctx)
	if err != nil {
		s.metrics.RecordSweep("failed", 0)
		return report, fmt.Errorf("%w: load holidays: %w", domain.ErrPersistenceFailure, err)
	}
	tickets, err := s.tickets.ListOpen(ctx)
	if err != nil {
		s.metrics.RecordSweep("failed", 0)
		return report, fmt.Errorf("%w: list open tickets: %w", domain.ErrPersistenceFailure, err)
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i := range tickets {
		ticket := tickets[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcome := s.sweepTicket(gctx, &ticket, now, holidays)
			mu.Lock()
			report.add(outcome)
			mu.Unlock()
			return nil
		})
	}
	runErr := g.Wait()
	report.FinishedAt = time.Now()

	result := "completed"
	if runErr != nil {
		result = "aborted"
	}
	s.metrics.RecordSweep(result, report.Escalated)
	s.logger.Info("escalation sweep finished",
		zap.String("result", result),
		zap.Int("scanned", report.Scanned),
		zap.Int("escalated", report.Escalated),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
		zap.Any("skip_reasons", report.SkipReasons))

	s.mu.Lock()
	last := report
	s.last = &last
	s.mu.Unlock()
	return report, runErr
}

func (s *EscalationSweeper) sweepTicket(ctx context.Context, ticket *domain.Ticket, now time.Time, holidays sla.HolidaySet) sweepOutcome {
	logger := s.logger.With(zap.String("ticket_id", ticket.ID), zap.String("role", string(ticket.CurrentRole)))
	skip := func(reason string) sweepOutcome {
		s.metrics.RecordSweepSkip(reason)
		return sweepOutcome{skip: reason}
	}

	if ticket.IsEscalated {
		logger.Debug("ticket already escalated")
		return skip(SkipAlreadyEscalated)
	}
	eval := s.clock.Evaluate(ticket, now, holidays)
	if !eval.Applies {
		return skip(SkipNoSLA)
	}
	if !eval.Breached {
		logger.Debug("ticket within sla", zap.Int("elapsed", eval.Elapsed), zap.Int("threshold", eval.Threshold))
		return skip(SkipNotBreached)
	}

	escalation := workflow.ResolveEscalationPath(ticket.Category, ticket.Severity)
	idx := escalation.IndexOf(ticket.CurrentRole)
	if idx < 0 || idx == len(escalation)-1 {
		logger.Warn("breached ticket has no higher escalation role",
			zap.Int("elapsed", eval.Elapsed),
			zap.Int("threshold", eval.Threshold),
			zap.Strings("escalation_path", rolesOf(escalation)))
		return skip(SkipNoHigherRole)
	}
	target := escalation[idx+1]

	holder, err := s.directory.Resolve(ctx, ticket.ExternalKey, target, ticket.SectionID)
	if errors.Is(err, domain.ErrUserNotFound) {
		logger.Warn("no holder for escalation role", zap.String("target_role", string(target)), zap.Error(err))
		return skip(SkipUserNotFound)
	}
	if err != nil {
		logger.Error("escalation holder lookup failed", zap.Error(err))
		return sweepOutcome{failed: true}
	}

	status := domain.TicketStatusEscalated
	reason := fmt.Sprintf("SLA breached: %d working days elapsed, threshold %d", eval.Elapsed, eval.Threshold)
	_, _, err = s.recorder.Record(ctx, Transition{
		Ticket:       ticket,
		ActorID:      s.systemActorID,
		TargetUserID: holder.ID,
		TargetRole:   target,
		Action:       domain.ActionEscalated,
		Reason:       reason,
		Patch:        domain.TicketPatch{Status: &status, IsEscalated: ptrBool(true)},
	}, now)
	if errors.Is(err, domain.ErrConcurrentModification) {
		logger.Info("ticket changed during sweep, retrying next run")
		return skip(SkipConcurrentModification)
	}
	if err != nil {
		logger.Error("escalation failed", zap.Error(err))
		return sweepOutcome{failed: true}
	}

	logger.Info("ticket escalated",
		zap.String("target_role", string(target)),
		zap.String("target_user_id", holder.ID),
		zap.Int("elapsed", eval.Elapsed),
		zap.Int("threshold", eval.Threshold))
	return sweepOutcome{escalated: true}
}

func rolesOf(path workflow.Path) []string {
	out := make([]string, len(path))
	for i, role := range path {
		out[i] = string(role)
	}
	return out
}

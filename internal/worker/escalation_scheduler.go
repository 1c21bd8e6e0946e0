package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/service"
)

// Sweeper runs one escalation sweep.
type Sweeper interface {
	RunEscalationSweep(ctx context.Context, now time.Time) (service.SweepReport, error)
	LastReport() *service.SweepReport
	Running() bool
}

// SchedulerStatus is what administrators see about the escalation schedule.
type SchedulerStatus struct {
	Enabled    bool                 `json:"enabled"`
	Running    bool                 `json:"running"`
	RunAt      string               `json:"run_at"`
	NextRun    *time.Time           `json:"next_run,omitempty"`
	LastReport *service.SweepReport `json:"last_report,omitempty"`
}

// EscalationScheduler fires the escalation sweep once a day at a wall-clock time in
// the SLA timezone. Disabling it skips scheduled runs; manual runs still work.
type EscalationScheduler struct {
	sweeper Sweeper
	hour    int
	minute  int
	loc     *time.Location
	logger  *zap.Logger
	now     func() time.Time

	enabled atomic.Bool

	mu      sync.Mutex
	next    time.Time
	started bool
	stop    chan struct{}
	done    chan struct{}
}

// NewEscalationScheduler creates a scheduler that fires at hour:minute in loc.
func NewEscalationScheduler(sweeper Sweeper, hour, minute int, loc *time.Location, enabled bool, logger *zap.Logger) *EscalationScheduler {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &EscalationScheduler{
		sweeper: sweeper,
		hour:    hour,
		minute:  minute,
		loc:     loc,
		logger:  logger,
		now:     time.Now,
	}
	s.enabled.Store(enabled)
	return s
}

// Start launches the scheduling loop. It returns immediately; the loop ends when ctx
// is done or Stop is called.
func (s *EscalationScheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		s.logger.Warn("escalation scheduler already started")
		return
	}
	s.started = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	s.logger.Info("escalation scheduler started",
		zap.Int("hour", s.hour),
		zap.Int("minute", s.minute),
		zap.String("timezone", s.loc.String()),
		zap.Bool("enabled", s.enabled.Load()))
	go s.run(ctx, s.stop, s.done)
}

// Stop ends the loop and waits for an in-flight run to finish.
func (s *EscalationScheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	stop, done := s.stop, s.done
	s.mu.Unlock()

	close(stop)
	<-done
	s.logger.Info("escalation scheduler stopped")
}

// Enable resumes scheduled runs.
func (s *EscalationScheduler) Enable() {
	s.enabled.Store(true)
	s.logger.Info("escalation scheduler enabled")
}

// Disable skips scheduled runs until Enable is called. A run already in progress
// finishes.
func (s *EscalationScheduler) Disable() {
	s.enabled.Store(false)
	s.logger.Info("escalation scheduler disabled")
}

// Status reports the schedule and the last sweep.
func (s *EscalationScheduler) Status() SchedulerStatus {
	status := SchedulerStatus{
		Enabled:    s.enabled.Load(),
		Running:    s.sweeper.Running(),
		RunAt:      time.Date(2000, 1, 1, s.hour, s.minute, 0, 0, time.UTC).Format("15:04"),
		LastReport: s.sweeper.LastReport(),
	}
	s.mu.Lock()
	if !s.next.IsZero() {
		next := s.next
		status.NextRun = &next
	}
	s.mu.Unlock()
	if status.NextRun == nil {
		next := nextRunAfter(s.now(), s.hour, s.minute, s.loc)
		status.NextRun = &next
	}
	return status
}

// RunNow sweeps immediately, regardless of the enabled flag.
func (s *EscalationScheduler) RunNow(ctx context.Context) (service.SweepReport, error) {
	return s.sweeper.RunEscalationSweep(ctx, s.now())
}

func (s *EscalationScheduler) run(ctx context.Context, stop, done chan struct{}) {
	defer close(done)
	for {
		next := nextRunAfter(s.now(), s.hour, s.minute, s.loc)
		s.mu.Lock()
		s.next = next
		s.mu.Unlock()

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-stop:
			timer.Stop()
			return
		case <-timer.C:
			s.fire(ctx)
		}
	}
}

// fire runs one scheduled sweep when the scheduler is enabled.
func (s *EscalationScheduler) fire(ctx context.Context) bool {
	if !s.enabled.Load() {
		s.logger.Info("scheduled escalation sweep skipped, scheduler disabled")
		return false
	}
	report, err := s.sweeper.RunEscalationSweep(ctx, s.now())
	switch {
	case errors.Is(err, domain.ErrSweepInProgress):
		s.logger.Info("scheduled escalation sweep skipped, previous run still active")
	case err != nil:
		s.logger.Error("scheduled escalation sweep failed", zap.Error(err), zap.Int("escalated", report.Escalated))
	}
	return err == nil
}

// nextRunAfter returns the first hour:minute in loc strictly after now.
func nextRunAfter(now time.Time, hour, minute int, loc *time.Location) time.Time {
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, hour, minute, 0, 0, loc)
	}
	return next
}

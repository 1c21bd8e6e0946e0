package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/service"
)

type fakeSweeper struct {
	mu   sync.Mutex
	runs []time.Time
	err  error
	last *service.SweepReport
}

func (f *fakeSweeper) RunEscalationSweep(_ context.Context, now time.Time) (service.SweepReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, now)
	if f.err != nil {
		return service.SweepReport{}, f.err
	}
	report := service.SweepReport{StartedAt: now, Escalated: 1}
	f.last = &report
	return report, nil
}

func (f *fakeSweeper) LastReport() *service.SweepReport {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

func (f *fakeSweeper) Running() bool { return false }

func TestNextRunAfter(t *testing.T) {
	nairobi, err := time.LoadLocation("Africa/Nairobi")
	require.NoError(t, err)

	tests := []struct {
		name string
		now  time.Time
		loc  *time.Location
		want time.Time
	}{
		{
			name: "later today",
			now:  time.Date(2026, 10, 5, 1, 0, 0, 0, time.UTC),
			loc:  time.UTC,
			want: time.Date(2026, 10, 5, 2, 0, 0, 0, time.UTC),
		},
		{
			name: "exactly at run time rolls to tomorrow",
			now:  time.Date(2026, 10, 5, 2, 0, 0, 0, time.UTC),
			loc:  time.UTC,
			want: time.Date(2026, 10, 6, 2, 0, 0, 0, time.UTC),
		},
		{
			name: "month boundary",
			now:  time.Date(2026, 10, 31, 23, 0, 0, 0, time.UTC),
			loc:  time.UTC,
			want: time.Date(2026, 11, 1, 2, 0, 0, 0, time.UTC),
		},
		{
			// 23:30 UTC is already 02:30 the next day in Nairobi.
			name: "timezone ahead of utc",
			now:  time.Date(2026, 10, 5, 23, 30, 0, 0, time.UTC),
			loc:  nairobi,
			want: time.Date(2026, 10, 7, 2, 0, 0, 0, nairobi),
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := nextRunAfter(tc.now, 2, 0, tc.loc)
			assert.True(t, tc.want.Equal(got), "want %s got %s", tc.want, got)
		})
	}
}

func TestFireRespectsEnabledFlag(t *testing.T) {
	sweeper := &fakeSweeper{}
	scheduler := NewEscalationScheduler(sweeper, 2, 0, time.UTC, false, nil)

	assert.False(t, scheduler.fire(context.Background()))
	assert.Empty(t, sweeper.runs)

	scheduler.Enable()
	assert.True(t, scheduler.fire(context.Background()))
	assert.Len(t, sweeper.runs, 1)

	scheduler.Disable()
	assert.False(t, scheduler.fire(context.Background()))
	assert.Len(t, sweeper.runs, 1)
}

func TestFireToleratesOverlap(t *testing.T) {
	sweeper := &fakeSweeper{err: domain.ErrSweepInProgress}
	scheduler := NewEscalationScheduler(sweeper, 2, 0, time.UTC, true, nil)
	assert.False(t, scheduler.fire(context.Background()))
}

func TestRunNowIgnoresEnabledFlag(t *testing.T) {
	sweeper := &fakeSweeper{}
	scheduler := NewEscalationScheduler(sweeper, 2, 0, time.UTC, false, nil)

	report, err := scheduler.RunNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Escalated)
}

func TestStatus(t *testing.T) {
	sweeper := &fakeSweeper{}
	scheduler := NewEscalationScheduler(sweeper, 2, 30, time.UTC, true, nil)
	scheduler.now = func() time.Time { return time.Date(2026, 10, 5, 9, 0, 0, 0, time.UTC) }

	status := scheduler.Status()
	assert.True(t, status.Enabled)
	assert.Equal(t, "02:30", status.RunAt)
	require.NotNil(t, status.NextRun)
	assert.True(t, time.Date(2026, 10, 6, 2, 30, 0, 0, time.UTC).Equal(*status.NextRun))
	assert.Nil(t, status.LastReport)

	_, err := scheduler.RunNow(context.Background())
	require.NoError(t, err)
	require.NotNil(t, scheduler.Status().LastReport)
}

func TestStartStop(t *testing.T) {
	scheduler := NewEscalationScheduler(&fakeSweeper{}, 2, 0, time.UTC, true, nil)
	scheduler.Start(context.Background())
	scheduler.Start(context.Background())
	scheduler.Stop()
	scheduler.Stop()
}

package sla_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/sla"
)

func TestThresholdsFor(t *testing.T) {
	th := sla.DefaultThresholds()
	assert.Equal(t, 3, th.For(domain.CategoryInquiry, domain.SeverityNone))
	assert.Equal(t, 7, th.For(domain.CategoryComplaint, domain.SeverityMinor))
	assert.Equal(t, 7, th.For(domain.CategoryComplaint, domain.SeverityNone))
	assert.Equal(t, 15, th.For(domain.CategoryComplaint, domain.SeverityMajor))
	assert.Equal(t, 0, th.For(domain.CategorySuggestion, domain.SeverityNone))
}

func TestEvaluateMinorComplaintBoundary(t *testing.T) {
	clock := sla.NewClock(sla.DefaultThresholds(), time.UTC)
	// Monday; +7 working days lands on Wednesday of the following week.
	created := time.Date(2026, time.October, 5, 10, 0, 0, 0, time.UTC)
	ticket := &domain.Ticket{
		Category:  domain.CategoryComplaint,
		Severity:  domain.SeverityMinor,
		CreatedAt: created,
	}

	atSeven := time.Date(2026, time.October, 14, 16, 0, 0, 0, time.UTC)
	eval := clock.Evaluate(ticket, atSeven, nil)
	assert.Equal(t, 7, eval.Elapsed)
	assert.Equal(t, 7, eval.Threshold)
	assert.True(t, eval.Applies)
	assert.False(t, eval.Breached)

	atEight := atSeven.AddDate(0, 0, 1)
	eval = clock.Evaluate(ticket, atEight, nil)
	assert.Equal(t, 8, eval.Elapsed)
	assert.True(t, eval.Breached)
}

func TestEvaluateWithoutSLA(t *testing.T) {
	clock := sla.NewClock(sla.DefaultThresholds(), nil)
	ticket := &domain.Ticket{
		Category:  domain.CategoryCompliment,
		CreatedAt: time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC),
	}
	eval := clock.Evaluate(ticket, time.Date(2026, time.June, 5, 0, 0, 0, 0, time.UTC), nil)
	assert.False(t, eval.Applies)
	assert.False(t, eval.Breached)
}

func TestEvaluateUsesClockLocation(t *testing.T) {
	loc := time.FixedZone("EAT", 3*60*60)
	clock := sla.NewClock(sla.DefaultThresholds(), loc)
	// 22:30 UTC Sunday is already Monday in EAT.
	created := time.Date(2026, time.October, 11, 22, 30, 0, 0, time.UTC)
	now := time.Date(2026, time.October, 13, 8, 0, 0, 0, time.UTC)
	assert.Equal(t, 1, clock.ElapsedWorkingDays(created, now, nil))
	assert.Equal(t, 2, sla.WorkingDaysBetween(created, now, nil))
}

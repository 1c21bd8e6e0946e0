package sla

import (
	"time"

	"github.com/spec-kit/servicedesk/internal/domain"
)

// Thresholds holds the SLA limits in working days. Zero means the category has no SLA.
type Thresholds struct {
	Inquiry        int
	ComplaintMinor int
	ComplaintMajor int
	Suggestion     int
	Compliment     int
}

// DefaultThresholds returns the standard service levels.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Inquiry:        3,
		ComplaintMinor: 7,
		ComplaintMajor: 15,
	}
}

// For returns the threshold for a category and severity. Unrated complaints use the minor limit.
func (t Thresholds) For(category domain.TicketCategory, severity domain.Severity) int {
	switch category {
	case domain.CategoryInquiry:
		return t.Inquiry
	case domain.CategoryComplaint:
		if severity == domain.SeverityMajor {
			return t.ComplaintMajor
		}
		return t.ComplaintMinor
	case domain.CategorySuggestion:
		return t.Suggestion
	case domain.CategoryCompliment:
		return t.Compliment
	default:
		return 0
	}
}

// Evaluation is the result of checking a ticket against its SLA.
type Evaluation struct {
	Elapsed   int
	Threshold int
	// Applies is false when the ticket's category carries no SLA.
	Applies  bool
	Breached bool
}

// Clock evaluates tickets against their working-day thresholds.
type Clock struct {
	thresholds Thresholds
	loc        *time.Location
}

// NewClock builds a clock. Calendar dates are taken in loc, UTC when nil.
func NewClock(thresholds Thresholds, loc *time.Location) *Clock {
	if loc == nil {
		loc = time.UTC
	}
	return &Clock{thresholds: thresholds, loc: loc}
}

// Thresholds returns the configured limits.
func (c *Clock) Thresholds() Thresholds {
	return c.thresholds
}

// Location returns the calendar location.
func (c *Clock) Location() *time.Location {
	return c.loc
}

// ElapsedWorkingDays counts working days between start and end in the clock's location.
func (c *Clock) ElapsedWorkingDays(start, end time.Time, holidays HolidaySet) int {
	return WorkingDaysBetween(start.In(c.loc), end.In(c.loc), holidays)
}

// Evaluate reports whether ticket breached its SLA at now.
func (c *Clock) Evaluate(ticket *domain.Ticket, now time.Time, holidays HolidaySet) Evaluation {
	threshold := c.thresholds.For(ticket.Category, ticket.Severity)
	elapsed := c.ElapsedWorkingDays(ticket.CreatedAt, now, holidays)
	return Evaluation{
		Elapsed:   elapsed,
		Threshold: threshold,
		Applies:   threshold > 0,
		Breached:  threshold > 0 && elapsed > threshold,
	}
}

// Package sla computes working-day deadlines against a holiday calendar.
package sla

import (
	"time"

	"github.com/spec-kit/servicedesk/internal/domain"
)

// HolidaySet holds calendar dates excluded from working-day counts, keyed by date.
type HolidaySet map[string]struct{}

// NewHolidaySet builds a set from dates. Only the calendar date of each value matters.
func NewHolidaySet(dates ...time.Time) HolidaySet {
	set := make(HolidaySet, len(dates))
	for _, d := range dates {
		set.Add(d)
	}
	return set
}

// Add inserts the calendar date of d.
func (h HolidaySet) Add(d time.Time) {
	h[domain.DateKey(d)] = struct{}{}
}

// Contains reports whether the calendar date of d is a holiday.
func (h HolidaySet) Contains(d time.Time) bool {
	if h == nil {
		return false
	}
	_, ok := h[domain.DateKey(d)]
	return ok
}

// IsWorkingDay reports whether d is neither a weekend day nor a holiday.
func IsWorkingDay(d time.Time, holidays HolidaySet) bool {
	switch d.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return !holidays.Contains(d)
}

// WorkingDaysBetween counts working days after the calendar date of start up to and
// including the calendar date of end. A Monday-to-next-Monday span counts 5. Each
// value is read in its own location; callers convert beforehand.
func WorkingDaysBetween(start, end time.Time, holidays HolidaySet) int {
	from := civilDate(start)
	to := civilDate(end)
	days := 0
	for d := from.AddDate(0, 0, 1); !d.After(to); d = d.AddDate(0, 0, 1) {
		if IsWorkingDay(d, holidays) {
			days++
		}
	}
	return days
}

func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

package domain

import "time"

// Holiday is a calendar date excluded from working-day counts.
type Holiday struct {
	Date      time.Time
	Name      string
	CreatedAt time.Time
}

// DateKey formats t as the calendar date key used by holiday sets.
func DateKey(t time.Time) string {
	return t.Format(time.DateOnly)
}

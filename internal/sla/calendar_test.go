package sla_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/servicedesk/internal/sla"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 9, 30, 0, 0, time.UTC)
}

func TestWorkingDaysBetween(t *testing.T) {
	monday := date(2026, time.October, 5)

	tests := []struct {
		name     string
		start    time.Time
		end      time.Time
		holidays sla.HolidaySet
		want     int
	}{
		{name: "monday to following monday", start: monday, end: monday.AddDate(0, 0, 7), want: 5},
		{name: "same day", start: monday, end: monday.Add(5 * time.Hour), want: 0},
		{name: "monday to friday", start: monday, end: monday.AddDate(0, 0, 4), want: 4},
		{name: "friday to monday skips weekend", start: monday.AddDate(0, 0, 4), end: monday.AddDate(0, 0, 7), want: 1},
		{name: "end before start", start: monday.AddDate(0, 0, 3), end: monday, want: 0},
		{
			name:     "weekday holiday excluded",
			start:    monday,
			end:      monday.AddDate(0, 0, 7),
			holidays: sla.NewHolidaySet(date(2026, time.October, 7)),
			want:     4,
		},
		{
			name:     "two holidays excluded",
			start:    monday,
			end:      monday.AddDate(0, 0, 7),
			holidays: sla.NewHolidaySet(date(2026, time.October, 7), date(2026, time.October, 12)),
			want:     3,
		},
		{
			name:     "weekend holiday changes nothing",
			start:    monday,
			end:      monday.AddDate(0, 0, 7),
			holidays: sla.NewHolidaySet(date(2026, time.October, 10)),
			want:     5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sla.WorkingDaysBetween(tt.start, tt.end, tt.holidays))
		})
	}
}

func TestHolidayMatchesByCalendarDate(t *testing.T) {
	holidays := sla.NewHolidaySet(time.Date(2026, time.October, 7, 0, 0, 0, 0, time.UTC))
	assert.True(t, holidays.Contains(time.Date(2026, time.October, 7, 23, 59, 0, 0, time.UTC)))
	assert.False(t, holidays.Contains(time.Date(2026, time.October, 8, 0, 0, 0, 0, time.UTC)))
}

func TestEachHolidayReducesCountByOne(t *testing.T) {
	start := date(2026, time.September, 1)
	end := date(2026, time.September, 30)
	base := sla.WorkingDaysBetween(start, end, nil)

	holidays := sla.HolidaySet{}
	removed := 0
	for d := start.AddDate(0, 0, 1); !d.After(end); d = d.AddDate(0, 0, 1) {
		if !sla.IsWorkingDay(d, nil) {
			continue
		}
		holidays.Add(d)
		removed++
		assert.Equal(t, base-removed, sla.WorkingDaysBetween(start, end, holidays))
	}
}

package services

import (
	"commute-forecast/internal/domain"
	"time"
)

const (
	DefaultDays     = 7
	DefaultInterval = 5 * time.Minute
)

// GridSpec describes which departures to sample.
// The window covers Days calendar days starting DayOffset+1 days after now.
type GridSpec struct {
	StartHour int
	EndHour   int
	DayOffset int
	Days      int
	Interval  time.Duration
}

// GenerateTimeGrid produces departures every Interval from StartHour:00 to
// EndHour:00 (both inclusive) for each weekday in the window.
//
// Saturdays and Sundays are skipped. StartHour > EndHour yields no entries.
// Timestamps are in now's location.
func GenerateTimeGrid(now time.Time, gs GridSpec) []domain.GridEntry {
	days := gs.Days
	if days <= 0 {
		days = DefaultDays
	}
	interval := gs.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	if gs.StartHour > gs.EndHour {
		return []domain.GridEntry{}
	}

	loc := now.Location()
	span := time.Duration(gs.EndHour-gs.StartHour) * time.Hour
	slots := int(span/interval) + 1

	y, m, day := now.Date()

	out := make([]domain.GridEntry, 0, days*slots)
	for d := gs.DayOffset + 1; d <= gs.DayOffset+days; d++ {
		// Normalized by time.Date, so month and year rollovers are handled.
		date := time.Date(y, m, day+d, 0, 0, 0, 0, loc)

		switch date.Weekday() {
		case time.Saturday, time.Sunday:
			continue
		}

		for i := 0; i < slots; i++ {
			offset := time.Duration(i) * interval
			// Built from wall-clock fields so DST changes do not shift slots.
			t := time.Date(date.Year(), date.Month(), date.Day(), gs.StartHour,
				int(offset/time.Minute), int(offset%time.Minute/time.Second), 0, loc)
			out = append(out, domain.NewGridEntry(t))
		}
	}

	return out
}

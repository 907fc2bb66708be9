package domain

import (
	"errors"
	"time"
)

// TimeLabelLayout is the wall-clock layout used to align departures from
// different days onto a common axis.
const TimeLabelLayout = "15:04:05"

// A single candidate departure with its derived labels.
type GridEntry struct {
	DepartAt  time.Time
	WeekDay   string
	TimeLabel string
}

func NewGridEntry(t time.Time) GridEntry {
	return GridEntry{
		DepartAt:  t,
		WeekDay:   t.Weekday().String(),
		TimeLabel: t.Format(TimeLabelLayout),
	}
}

type RecordStatus int

const (
	StatusPending RecordStatus = iota
	StatusOK
	StatusFailed
)

func (s RecordStatus) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusFailed:
		return "failed"
	default:
		return "pending"
	}
}

// One row of a commute table.
// Duration fields are only meaningful once Status is StatusOK.
type CommuteRecord struct {
	GridEntry
	Status                   RecordStatus
	DurationInTrafficSeconds int
	DurationInTrafficMinutes float64
	Err                      error
}

// Record a successful lookup.
func (r *CommuteRecord) SetDuration(seconds int) {
	r.Status = StatusOK
	r.DurationInTrafficSeconds = seconds
	r.DurationInTrafficMinutes = float64(seconds) / 60
	r.Err = nil
}

// Record a failed lookup. Any previous duration is cleared.
func (r *CommuteRecord) Fail(err error) {
	if err == nil {
		err = errors.New("lookup failed")
	}
	r.Status = StatusFailed
	r.DurationInTrafficSeconds = 0
	r.DurationInTrafficMinutes = 0
	r.Err = err
}

func (r CommuteRecord) OK() bool { return r.Status == StatusOK }

// The per-route collection of predictions produced by one run.
// Records keep grid order.
type CommuteTable struct {
	Route   Route
	Records []CommuteRecord
}

// Successful returns the records that carry a valid duration, in order.
func (t *CommuteTable) Successful() []CommuteRecord {
	out := make([]CommuteRecord, 0, len(t.Records))
	for _, r := range t.Records {
		if r.OK() {
			out = append(out, r)
		}
	}
	return out
}

func (t *CommuteTable) Failed() int {
	n := 0
	for _, r := range t.Records {
		if r.Status == StatusFailed {
			n++
		}
	}
	return n
}

// Weekdays returns the weekday labels of successful records, Monday first.
func (t *CommuteTable) Weekdays() []string {
	present := make(map[time.Weekday]bool, 7)
	for _, r := range t.Records {
		if r.OK() {
			present[r.DepartAt.Weekday()] = true
		}
	}

	out := make([]string, 0, len(present))
	for i := 1; i <= 7; i++ {
		wd := time.Weekday(i % 7)
		if present[wd] {
			out = append(out, wd.String())
		}
	}
	return out
}

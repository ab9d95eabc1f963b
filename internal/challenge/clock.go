package challenge

import (
	"time"
)

// Clock is the wall-clock collaborator.
type Clock interface {
	Now() time.Time
}

// SystemClock reads time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// DayKey returns the calendar day of t in loc as YYYY-MM-DD.
func DayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(time.DateOnly)
}

// StartOfDay returns local midnight at the start of t's day in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// NextReset returns the next local midnight after t in loc.
func NextReset(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, loc)
}

// Remaining is the countdown to the next reset.
type Remaining struct {
	Hours   int           `json:"hours"`
	Minutes int           `json:"minutes"`
	Seconds int           `json:"seconds"`
	Total   time.Duration `json:"totalNanos"`
	ResetAt time.Time     `json:"resetAt"`
}

// RemainingUntil splits the time from now to next into whole units. A boundary
// in the past yields zeros.
func RemainingUntil(now, next time.Time) Remaining {
	d := next.Sub(now)
	if d < 0 {
		d = 0
	}
	return Remaining{
		Hours:   int(d / time.Hour),
		Minutes: int(d % time.Hour / time.Minute),
		Seconds: int(d % time.Minute / time.Second),
		Total:   d,
		ResetAt: next,
	}
}

// Package clock holds the calendar and time-of-day primitives shared by the
// scheduling code. All times are naive wall-clock values in a single business
// location.
package clock

import "time"

type Clock interface {
	Now() time.Time
}

// System reads the host clock and reports it in the business location.
type System struct {
	Loc *time.Location
}

func (c System) Now() time.Time {
	if c.Loc == nil {
		return time.Now()
	}
	return time.Now().In(c.Loc)
}

// Fixed always returns T.
type Fixed struct {
	T time.Time
}

func (c Fixed) Now() time.Time { return c.T }

// Wall reinterprets the wall clock reading of t in loc. Postgres `timestamp`
// values decode as UTC, so this restores the business location.
func Wall(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	hh, mm, ss := t.Clock()
	return time.Date(y, m, d, hh, mm, ss, t.Nanosecond(), loc)
}

// Naive converts t to loc and relabels the wall clock reading as UTC so it is
// stored unchanged in a `timestamp` column.
func Naive(t time.Time, loc *time.Location) time.Time {
	return Wall(t.In(loc), time.UTC)
}

// OnGrid reports whether t lies origin + k*step for some k >= 0.
func OnGrid(t, origin time.Time, step time.Duration) bool {
	if step <= 0 {
		return false
	}
	d := t.Sub(origin)
	return d >= 0 && d%step == 0
}

package schedule

import (
	"time"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/clock"
)

type State int

const (
	Closed State = iota
	Open
	Misconfigured
)

func (s State) String() string {
	switch s {
	case Open:
		return "open"
	case Misconfigured:
		return "misconfigured"
	default:
		return "closed"
	}
}

type Source int

const (
	SourceWeekly Source = iota
	SourceOverride
)

func (s Source) String() string {
	if s == SourceOverride {
		return "override"
	}
	return "weekly"
}

// Resolution is the effective availability of one date.
type Resolution struct {
	Date     clock.Date
	State    State
	Interval Interval
	Source   Source
	Reason   string
}

func (r Resolution) Err() error {
	switch r.State {
	case Open:
		return nil
	case Misconfigured:
		return ErrMisconfigured
	default:
		return ErrDayClosed
	}
}

// Resolver computes effective hours from the weekly schedule and per-date
// overrides. An override for a date fully replaces the weekly entry.
type Resolver struct {
	week      Week
	overrides map[clock.Date]Override
	loc       *time.Location
}

func NewResolver(week Week, overrides []Override, loc *time.Location) *Resolver {
	if loc == nil {
		loc = time.Local
	}
	byDate := make(map[clock.Date]Override, len(overrides))
	for _, o := range overrides {
		byDate[o.Date] = o
	}
	return &Resolver{week: week, overrides: byDate, loc: loc}
}

func (r *Resolver) Location() *time.Location { return r.loc }

func (r *Resolver) Resolve(d clock.Date) Resolution {
	if o, ok := r.overrides[d]; ok {
		res := Resolution{Date: d, Source: SourceOverride, Reason: o.Reason}
		switch {
		case o.IsClosed:
			res.State = Closed
		case o.Open == nil || o.Close == nil || *o.Close <= *o.Open:
			res.State = Misconfigured
		default:
			res.State = Open
			res.Interval = Interval{Start: d.At(*o.Open, r.loc), End: d.At(*o.Close, r.loc)}
		}
		return res
	}

	res := Resolution{Date: d, Source: SourceWeekly}
	h, ok := r.week[d.Weekday()]
	switch {
	case !ok || h.IsClosed:
		res.State = Closed
	case h.Close <= h.Open:
		res.State = Misconfigured
	default:
		res.State = Open
		res.Interval = Interval{Start: d.At(h.Open, r.loc), End: d.At(h.Close, r.loc)}
	}
	return res
}

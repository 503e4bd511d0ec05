// Package schedule models the business's configured opening hours and
// resolves the effective hours for a calendar date.
package schedule

import (
	"errors"
	"fmt"
	"time"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/clock"
)

var (
	ErrDayClosed = errors.New("business is closed on this date")
	// ErrMisconfigured marks a date whose configured hours cannot produce an
	// interval (missing times or close not after open).
	ErrMisconfigured = errors.New("business hours are misconfigured for this date")
)

// ValidationError rejects a schedule write.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

// WeeklyHours is the recurring schedule for one weekday (0=Monday).
type WeeklyHours struct {
	Weekday  int
	Open     clock.TimeOfDay
	Close    clock.TimeOfDay
	IsClosed bool
}

// Week maps weekday to its hours. A missing weekday resolves as closed.
type Week map[int]WeeklyHours

var (
	defaultOpen  = clock.TimeOfDay(9 * 60)
	defaultClose = clock.TimeOfDay(17 * 60)
)

// DefaultWeeklyHours is 09:00-17:00 Monday to Friday, closed at weekends.
func DefaultWeeklyHours(weekday int) WeeklyHours {
	return WeeklyHours{
		Weekday:  weekday,
		Open:     defaultOpen,
		Close:    defaultClose,
		IsClosed: weekday >= 5,
	}
}

func DefaultWeek() Week {
	w := make(Week, 7)
	for d := 0; d < 7; d++ {
		w[d] = DefaultWeeklyHours(d)
	}
	return w
}

// WithDefaults returns a copy of w where every missing weekday holds its
// default hours. It never mutates w.
func (w Week) WithDefaults() Week {
	out := make(Week, 7)
	for d := 0; d < 7; d++ {
		if h, ok := w[d]; ok {
			out[d] = h
			continue
		}
		out[d] = DefaultWeeklyHours(d)
	}
	return out
}

// Override replaces the weekly schedule for a single date.
type Override struct {
	ID       string
	Date     clock.Date
	Open     *clock.TimeOfDay
	Close    *clock.TimeOfDay
	IsClosed bool
	Reason   string
}

// Normalize drops the times of a closed override.
func (o Override) Normalize() Override {
	if o.IsClosed {
		o.Open, o.Close = nil, nil
	}
	return o
}

func ValidateWeeklyHours(h WeeklyHours) error {
	if h.Weekday < 0 || h.Weekday > 6 {
		return &ValidationError{Field: "weekday", Msg: "must be between 0 (Monday) and 6 (Sunday)"}
	}
	if h.IsClosed {
		return nil
	}
	if !h.Open.Valid() || !h.Close.ValidClose() {
		return &ValidationError{Field: "open_time", Msg: "times must be within the day"}
	}
	if h.Close <= h.Open {
		return &ValidationError{Field: "close_time", Msg: "must be after open_time"}
	}
	return nil
}

func ValidateOverride(o Override) error {
	if o.Date.IsZero() {
		return &ValidationError{Field: "date", Msg: "is required"}
	}
	if o.IsClosed {
		return nil
	}
	if o.Open == nil || o.Close == nil {
		return &ValidationError{Field: "open_time", Msg: "open_time and close_time are required unless closed"}
	}
	if !o.Open.Valid() || !o.Close.ValidClose() {
		return &ValidationError{Field: "open_time", Msg: "times must be within the day"}
	}
	if *o.Close <= *o.Open {
		return &ValidationError{Field: "close_time", Msg: "must be after open_time"}
	}
	return nil
}

// Interval is a half-open span [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

func (i Interval) Contains(start, end time.Time) bool {
	return !start.Before(i.Start) && !end.After(i.End)
}

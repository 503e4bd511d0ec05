package availability

import (
	"time"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/clock"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/schedule"
)

type DayState int

const (
	DayClosed DayState = iota
	DayMisconfigured
	DayFullyBooked
	DayAvailable
)

func (s DayState) String() string {
	switch s {
	case DayMisconfigured:
		return "misconfigured"
	case DayFullyBooked:
		return "fully_booked"
	case DayAvailable:
		return "available"
	default:
		return "closed"
	}
}

func (s DayState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

type DayStatus struct {
	Date      clock.Date
	State     DayState
	FreeSlots int
	Reason    string
}

type ScanInput struct {
	From       clock.Date
	WindowDays int
	Week       schedule.Week
	Overrides  []schedule.Override
	Booked     map[clock.Date]BookedSet
	Now        time.Time
	Slots      SlotConfig
	Loc        *time.Location
}

// ScanResult describes offsets 0..WindowDays from From. Misconfigured dates
// are neither open nor available.
type ScanResult struct {
	From               clock.Date
	To                 clock.Date
	Days               []DayStatus
	OpenDates          []clock.Date
	AvailableDates     []clock.Date
	MisconfiguredDates []clock.Date
	SoonestAvailable   *clock.Date

	open      map[clock.Date]struct{}
	available map[clock.Date]struct{}
}

func (r ScanResult) IsOpen(d clock.Date) bool {
	_, ok := r.open[d]
	return ok
}

func (r ScanResult) IsAvailable(d clock.Date) bool {
	_, ok := r.available[d]
	return ok
}

// Day returns the status for d when d lies inside the window.
func (r ScanResult) Day(d clock.Date) (DayStatus, bool) {
	i := r.From.DaysUntil(d)
	if i < 0 || i >= len(r.Days) {
		return DayStatus{}, false
	}
	return r.Days[i], true
}

// Scan is a pure function of its input.
func Scan(in ScanInput) ScanResult {
	if in.WindowDays < 0 {
		in.WindowDays = 0
	}
	resolver := schedule.NewResolver(in.Week, in.Overrides, in.Loc)

	res := ScanResult{
		From:      in.From,
		To:        in.From.AddDays(in.WindowDays),
		Days:      make([]DayStatus, 0, in.WindowDays+1),
		open:      map[clock.Date]struct{}{},
		available: map[clock.Date]struct{}{},
	}
	for offset := 0; offset <= in.WindowDays; offset++ {
		d := in.From.AddDays(offset)
		r := resolver.Resolve(d)
		status := DayStatus{Date: d, Reason: r.Reason}

		switch r.State {
		case schedule.Closed:
			status.State = DayClosed
		case schedule.Misconfigured:
			status.State = DayMisconfigured
			res.MisconfiguredDates = append(res.MisconfiguredDates, d)
		case schedule.Open:
			res.OpenDates = append(res.OpenDates, d)
			res.open[d] = struct{}{}

			status.FreeSlots = len(GenerateSlots(r.Interval, in.Booked[d], in.Now, in.Slots))
			status.State = DayFullyBooked
			if status.FreeSlots > 0 {
				status.State = DayAvailable
				res.AvailableDates = append(res.AvailableDates, d)
				res.available[d] = struct{}{}
				if res.SoonestAvailable == nil {
					soonest := d
					res.SoonestAvailable = &soonest
				}
			}
		}
		res.Days = append(res.Days, status)
	}
	return res
}

package availability

import (
	"time"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/schedule"
)

const DefaultSlotDuration = 30 * time.Minute

// SlotConfig sets the length of a booking and the distance between candidate
// starts. Non-positive fields fall back to DefaultSlotDuration.
type SlotConfig struct {
	Duration time.Duration
	Step     time.Duration
}

func (c SlotConfig) WithDefaults() SlotConfig {
	if c.Duration <= 0 {
		c.Duration = DefaultSlotDuration
	}
	if c.Step <= 0 {
		c.Step = DefaultSlotDuration
	}
	return c
}

// BookedSet holds the [start, end) intervals of scheduled appointments.
type BookedSet []schedule.Interval

func NewBookedSet(intervals ...schedule.Interval) BookedSet {
	return append(BookedSet(nil), intervals...)
}

func (b *BookedSet) Add(start, end time.Time) {
	*b = append(*b, schedule.Interval{Start: start, End: end})
}

// Overlaps reports whether [start, end) intersects any booked interval.
// Touching endpoints do not overlap.
func (b BookedSet) Overlaps(start, end time.Time) bool {
	for _, iv := range b {
		if iv.Start.Before(end) && iv.End.After(start) {
			return true
		}
	}
	return false
}

// GenerateSlots walks interval from its start in cfg.Step increments and
// returns every start where a cfg.Duration booking still ends by
// interval.End, is not before now, and does not overlap a booked interval.
func GenerateSlots(interval schedule.Interval, booked BookedSet, now time.Time, cfg SlotConfig) []time.Time {
	cfg = cfg.WithDefaults()
	if !interval.End.After(interval.Start) {
		return nil
	}

	var slots []time.Time
	for t := interval.Start; !t.Add(cfg.Duration).After(interval.End); t = t.Add(cfg.Step) {
		if t.Before(now) {
			continue
		}
		if booked.Overlaps(t, t.Add(cfg.Duration)) {
			continue
		}
		slots = append(slots, t)
	}
	return slots
}

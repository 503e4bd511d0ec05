package availability

import (
	"testing"
	"time"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/clock"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/schedule"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var monday = clock.NewDate(2026, time.January, 5)

func tod(s string) *clock.TimeOfDay {
	t := clock.MustTimeOfDay(s)
	return &t
}

func baseInput() ScanInput {
	return ScanInput{
		From:       monday,
		WindowDays: 6,
		Week:       schedule.DefaultWeek(),
		Now:        monday.At(0, time.UTC),
		Loc:        time.UTC,
	}
}

func TestScanDefaultWeek(t *testing.T) {
	res := Scan(baseInput())

	require.Len(t, res.Days, 7)
	assert.Equal(t, monday.AddDays(6), res.To)
	assert.Len(t, res.OpenDates, 5)
	assert.Equal(t, res.OpenDates, res.AvailableDates)
	require.NotNil(t, res.SoonestAvailable)
	assert.Equal(t, monday, *res.SoonestAvailable)
	assert.Equal(t, DayClosed, res.Days[5].State)
	assert.Equal(t, 16, res.Days[0].FreeSlots)
}

func TestScanIsIdempotent(t *testing.T) {
	in := baseInput()
	in.Booked = map[clock.Date]BookedSet{monday: NewBookedSet(schedule.Interval{
		Start: monday.At(clock.MustTimeOfDay("09:00"), time.UTC),
		End:   monday.At(clock.MustTimeOfDay("09:30"), time.UTC),
	})}
	in.Overrides = []schedule.Override{{Date: monday.AddDays(1), IsClosed: true}}

	assert.Equal(t, Scan(in), Scan(in))
}

func TestScanClosedOverrideExcludesDay(t *testing.T) {
	in := baseInput()
	in.Overrides = []schedule.Override{{Date: monday, IsClosed: true, Reason: "holiday"}}
	res := Scan(in)

	assert.False(t, res.IsOpen(monday))
	assert.False(t, res.IsAvailable(monday))
	assert.NotContains(t, res.AvailableDates, monday)
	assert.Equal(t, "holiday", res.Days[0].Reason)
	require.NotNil(t, res.SoonestAvailable)
	assert.Equal(t, monday.AddDays(1), *res.SoonestAvailable)
}

func TestScanMisconfiguredOverride(t *testing.T) {
	in := baseInput()
	in.Overrides = []schedule.Override{{Date: monday, Open: tod("12:00"), Close: tod("10:00")}}
	res := Scan(in)

	assert.NotContains(t, res.OpenDates, monday)
	assert.NotContains(t, res.AvailableDates, monday)
	assert.Equal(t, []clock.Date{monday}, res.MisconfiguredDates)
	assert.Equal(t, DayMisconfigured, res.Days[0].State)
}

func TestScanFullyBookedDay(t *testing.T) {
	in := baseInput()
	in.WindowDays = 1
	full := BookedSet{}
	for m := 9 * 60; m < 17*60; m += 30 {
		full.Add(monday.At(clock.TimeOfDay(m), time.UTC), monday.At(clock.TimeOfDay(m+30), time.UTC))
	}
	in.Booked = map[clock.Date]BookedSet{monday: full}
	res := Scan(in)

	assert.True(t, res.IsOpen(monday))
	assert.False(t, res.IsAvailable(monday))
	assert.Equal(t, DayFullyBooked, res.Days[0].State)
	assert.Equal(t, monday.AddDays(1), *res.SoonestAvailable)
}

func TestScanPastSlotsMakeTodayFull(t *testing.T) {
	in := baseInput()
	in.WindowDays = 0
	in.Now = monday.At(clock.MustTimeOfDay("16:45"), time.UTC)
	res := Scan(in)

	assert.Equal(t, []clock.Date{monday}, res.OpenDates)
	assert.Empty(t, res.AvailableDates)
	assert.Nil(t, res.SoonestAvailable)
}

func TestScanDay(t *testing.T) {
	res := Scan(baseInput())
	status, ok := res.Day(monday.AddDays(2))
	require.True(t, ok)
	assert.Equal(t, DayAvailable, status.State)

	_, ok = res.Day(monday.AddDays(7))
	assert.False(t, ok)
	_, ok = res.Day(monday.AddDays(-1))
	assert.False(t, ok)
}

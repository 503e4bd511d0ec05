package booking

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/clock"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/metrics"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/schedule"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var monday = clock.NewDate(2026, time.January, 5)

func at(d clock.Date, hhmm string) time.Time {
	return d.At(clock.MustTimeOfDay(hhmm), time.UTC)
}

func newTestCommitter(store Store, now time.Time) (*Committer, *metrics.Metrics) {
	m := metrics.New(prometheus.NewRegistry())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewCommitter(store, clock.Fixed{T: now}, time.UTC, availability.SlotConfig{}, logger, m), m
}

func TestBookSuccess(t *testing.T) {
	store := newMemStore()
	c, m := newTestCommitter(store, at(monday, "08:00"))

	appt, err := c.Book(context.Background(), "acct-1", at(monday, "09:30"))
	require.NoError(t, err)

	assert.NotEmpty(t, appt.ID)
	assert.Equal(t, "acct-1", appt.AccountID)
	assert.Equal(t, model.StatusScheduled, appt.Status)
	assert.Equal(t, at(monday, "10:00"), appt.EndAt)
	assert.Equal(t, 1, store.scheduledCount())
	require.Len(t, store.events, 1)
	assert.Equal(t, outbox.EventAppointmentBooked, store.events[0].EventType)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BookingAttempts.WithLabelValues("booked")))
}

func TestBookRejections(t *testing.T) {
	tue := monday.AddDays(1)
	tests := []struct {
		name  string
		setup func(*memStore)
		start time.Time
		want  error
	}{
		{name: "past", start: at(monday, "07:30"), want: ErrInPast},
		{name: "weekend", start: at(monday.AddDays(5), "10:00"), want: schedule.ErrDayClosed},
		{name: "before opening", start: at(monday, "08:30"), want: ErrOutsideHours},
		{name: "runs past close", start: at(monday, "16:45"), want: ErrOutsideHours},
		{name: "off grid", start: at(monday, "09:15"), want: ErrOffGrid},
		{name: "closed override", start: at(tue, "10:00"), want: schedule.ErrDayClosed, setup: func(s *memStore) {
			s.overrides[tue] = schedule.Override{Date: tue, IsClosed: true}
		}},
		{name: "misconfigured override", start: at(tue, "10:00"), want: schedule.ErrMisconfigured, setup: func(s *memStore) {
			openAt, closeAt := clock.MustTimeOfDay("12:00"), clock.MustTimeOfDay("11:00")
			s.overrides[tue] = schedule.Override{Date: tue, Open: &openAt, Close: &closeAt}
		}},
		{name: "inactive account", start: at(monday, "10:00"), want: ErrAccountInactive, setup: func(s *memStore) {
			s.inactive["acct-1"] = true
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := newMemStore()
			if tc.setup != nil {
				tc.setup(store)
			}
			c, _ := newTestCommitter(store, at(monday, "08:00"))

			_, err := c.Book(context.Background(), "acct-1", tc.start)
			assert.ErrorIs(t, err, tc.want)
			assert.Equal(t, 0, store.scheduledCount())
			assert.Empty(t, store.events)
		})
	}
}

func TestBookOverrideHours(t *testing.T) {
	sunday := monday.AddDays(6)
	store := newMemStore()
	openAt, closeAt := clock.MustTimeOfDay("10:15"), clock.MustTimeOfDay("12:15")
	store.overrides[sunday] = schedule.Override{Date: sunday, Open: &openAt, Close: &closeAt}
	c, _ := newTestCommitter(store, at(monday, "08:00"))

	_, err := c.Book(context.Background(), "acct-1", at(sunday, "10:45"))
	require.NoError(t, err)
	// The grid starts at the override's open time.
	_, err = c.Book(context.Background(), "acct-1", at(sunday, "11:00"))
	assert.ErrorIs(t, err, ErrOffGrid)
}

func TestBookSameSlotTwice(t *testing.T) {
	store := newMemStore()
	c, _ := newTestCommitter(store, at(monday, "08:00"))

	_, err := c.Book(context.Background(), "acct-1", at(monday, "10:00"))
	require.NoError(t, err)
	_, err = c.Book(context.Background(), "acct-2", at(monday, "10:00"))
	require.ErrorIs(t, err, ErrSlotTaken)
	assert.Equal(t, "slot already taken", err.Error())
}

func TestBookRejectsOverlapWhenStepShorterThanDuration(t *testing.T) {
	store := newMemStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := availability.SlotConfig{Duration: time.Hour, Step: 30 * time.Minute}
	c := NewCommitter(store, clock.Fixed{T: at(monday, "08:00")}, time.UTC, cfg, logger, metrics.New(prometheus.NewRegistry()))

	first, err := c.Book(context.Background(), "acct-1", at(monday, "09:00"))
	require.NoError(t, err)
	assert.Equal(t, at(monday, "10:00"), first.EndAt)

	_, err = c.Book(context.Background(), "acct-2", at(monday, "09:30"))
	require.ErrorIs(t, err, ErrSlotTaken)

	// Back-to-back is fine.
	_, err = c.Book(context.Background(), "acct-2", at(monday, "10:00"))
	require.NoError(t, err)
	assert.Equal(t, 2, store.scheduledCount())
	assert.Len(t, store.events, 2)
}

func TestBookLastSlotBeforeMidnightClose(t *testing.T) {
	store := newMemStore()
	store.week[0] = schedule.WeeklyHours{Weekday: 0, Open: clock.MustTimeOfDay("20:00"), Close: clock.Midnight}
	c, _ := newTestCommitter(store, at(monday, "08:00"))

	appt, err := c.Book(context.Background(), "acct-1", at(monday, "23:30"))
	require.NoError(t, err)
	assert.Equal(t, monday.AddDays(1).At(0, time.UTC), appt.EndAt)
}

func TestConcurrentBookingsOfOneSlot(t *testing.T) {
	const n = 25
	store := newMemStore()
	c, m := newTestCommitter(store, at(monday, "08:00"))

	var (
		wg        sync.WaitGroup
		start     = make(chan struct{})
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := c.Book(context.Background(), "acct-1", at(monday, "11:00"))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrSlotTaken):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, n-1, conflicts)
	assert.Equal(t, 1, store.scheduledCount())
	assert.Len(t, store.events, 1)
	assert.Equal(t, float64(n-1), testutil.ToFloat64(m.BookingAttempts.WithLabelValues("slot_taken")))
}

func TestCancelFreesSlot(t *testing.T) {
	store := newMemStore()
	c, _ := newTestCommitter(store, at(monday, "08:00"))

	appt, err := c.Book(context.Background(), "acct-1", at(monday, "10:00"))
	require.NoError(t, err)

	cancelled, err := c.Cancel(context.Background(), appt.ID, "customer called")
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, cancelled.Status)
	assert.Equal(t, "customer called", cancelled.CancelReason)
	require.NotNil(t, cancelled.CancelledAt)

	again, err := c.Cancel(context.Background(), appt.ID, "twice")
	require.NoError(t, err)
	assert.Equal(t, "customer called", again.CancelReason)
	assert.Len(t, store.events, 2)

	_, err = c.Book(context.Background(), "acct-2", at(monday, "10:00"))
	require.NoError(t, err)
}

func TestCancelAndDeleteNotFound(t *testing.T) {
	c, _ := newTestCommitter(newMemStore(), at(monday, "08:00"))

	_, err := c.Cancel(context.Background(), "missing", "")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, c.Delete(context.Background(), "missing"), ErrNotFound)
}

func TestDelete(t *testing.T) {
	store := newMemStore()
	c, _ := newTestCommitter(store, at(monday, "08:00"))

	appt, err := c.Book(context.Background(), "acct-1", at(monday, "10:00"))
	require.NoError(t, err)
	require.NoError(t, c.Delete(context.Background(), appt.ID))

	assert.Equal(t, 0, store.scheduledCount())
	require.Len(t, store.events, 2)
	assert.Equal(t, outbox.EventAppointmentDeleted, store.events[1].EventType)
}

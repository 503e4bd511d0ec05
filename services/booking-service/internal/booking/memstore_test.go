package booking

import (
	"context"
	"sync"
	"time"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/clock"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/schedule"
)

// memStore keeps appointments in memory. The overlap check and insert run
// under one mutex, standing in for the unique index and exclusion constraint.
type memStore struct {
	mu        sync.Mutex
	week      schedule.Week
	overrides map[clock.Date]schedule.Override
	inactive  map[string]bool
	appts     map[string]model.Appointment
	events    []outbox.Event
}

func newMemStore() *memStore {
	return &memStore{
		week:      schedule.DefaultWeek(),
		overrides: map[clock.Date]schedule.Override{},
		inactive:  map[string]bool{},
		appts:     map[string]model.Appointment{},
	}
}

func (s *memStore) InTx(ctx context.Context, fn func(Tx) error) error {
	tx := &memTx{s: s}
	if err := fn(tx); err != nil {
		tx.rollback()
		return err
	}
	s.mu.Lock()
	s.events = append(s.events, tx.events...)
	s.mu.Unlock()
	return nil
}

func (s *memStore) scheduledCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, a := range s.appts {
		if a.Status == model.StatusScheduled {
			n++
		}
	}
	return n
}

type memTx struct {
	s        *memStore
	inserted []string
	events   []outbox.Event
}

func (t *memTx) rollback() {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for _, id := range t.inserted {
		delete(t.s.appts, id)
	}
}

func (t *memTx) AccountActive(_ context.Context, accountID string) (bool, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	return !t.s.inactive[accountID], nil
}

func (t *memTx) WeeklyHours(context.Context) (schedule.Week, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	return t.s.week.WithDefaults(), nil
}

func (t *memTx) OverrideFor(_ context.Context, d clock.Date) (*schedule.Override, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	o, ok := t.s.overrides[d]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (t *memTx) InsertAppointment(_ context.Context, appt model.Appointment) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for _, a := range t.s.appts {
		if a.Status == model.StatusScheduled && a.StartAt.Before(appt.EndAt) && a.EndAt.After(appt.StartAt) {
			return ErrSlotTaken
		}
	}
	t.s.appts[appt.ID] = appt
	t.inserted = append(t.inserted, appt.ID)
	return nil
}

func (t *memTx) GetAppointmentForUpdate(_ context.Context, id string) (model.Appointment, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	a, ok := t.s.appts[id]
	if !ok {
		return model.Appointment{}, ErrNotFound
	}
	return a, nil
}

func (t *memTx) CancelAppointment(_ context.Context, id, reason string, at time.Time) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	a := t.s.appts[id]
	a.Status = model.StatusCancelled
	a.CancelReason = reason
	a.CancelledAt = &at
	t.s.appts[id] = a
	return nil
}

func (t *memTx) DeleteAppointment(_ context.Context, id string) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	delete(t.s.appts, id)
	return nil
}

func (t *memTx) EnqueueEvent(_ context.Context, evt outbox.Event) error {
	t.events = append(t.events, evt)
	return nil
}

package storage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/slotbook/libs/db"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/clock"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/schedule"
)

const appointmentColumns = `id::text, account_id::text, start_at, end_at, status, cancelled_at, COALESCE(cancellation_reason, ''), created_at`

// AppointmentRepository serves the read paths over appointments.
type AppointmentRepository struct {
	pool *db.Pool
	loc  *time.Location
}

func NewAppointmentRepository(pool *db.Pool, loc *time.Location) *AppointmentRepository {
	return &AppointmentRepository{pool: pool, loc: loc}
}

// ListForAccount returns the account's appointments, newest first.
func (r *AppointmentRepository) ListForAccount(ctx context.Context, accountID string, limit int) ([]model.Appointment, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE account_id::text = $1
		ORDER BY start_at DESC
		LIMIT $2
	`, accountID, limit)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows, r.loc)
}

// List returns appointments starting in [from, to), earliest first. A zero
// bound is open.
func (r *AppointmentRepository) List(ctx context.Context, from, to time.Time, limit int) ([]model.Appointment, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var fromParam, toParam *time.Time
	if !from.IsZero() {
		f := clock.Naive(from, r.loc)
		fromParam = &f
	}
	if !to.IsZero() {
		t := clock.Naive(to, r.loc)
		toParam = &t
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE ($1::timestamp IS NULL OR start_at >= $1)
			AND ($2::timestamp IS NULL OR start_at < $2)
		ORDER BY start_at ASC
		LIMIT $3
	`, fromParam, toParam, limit)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows, r.loc)
}

// scheduledIntervals returns scheduled appointments overlapping the dates
// from..to inclusive.
func scheduledIntervals(ctx context.Context, q querier, loc *time.Location, from, to clock.Date) ([]schedule.Interval, error) {
	rows, err := q.Query(ctx, `
		SELECT start_at, end_at
		FROM appointments
		WHERE status = 'scheduled'
			AND start_at < $2
			AND end_at > $1
		ORDER BY start_at
	`, dateParam(from), dateParam(to.AddDays(1)))
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (schedule.Interval, error) {
		var iv schedule.Interval
		if err := row.Scan(&iv.Start, &iv.End); err != nil {
			return schedule.Interval{}, err
		}
		iv.Start, iv.End = clock.Wall(iv.Start, loc), clock.Wall(iv.End, loc)
		return iv, nil
	})
}

func collectAppointments(rows pgx.Rows, loc *time.Location) ([]model.Appointment, error) {
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Appointment, error) {
		return scanAppointment(row, loc)
	})
}

func scanAppointment(row pgx.Row, loc *time.Location) (model.Appointment, error) {
	var (
		appt        model.Appointment
		status      string
		cancelledAt *time.Time
	)
	err := row.Scan(&appt.ID, &appt.AccountID, &appt.StartAt, &appt.EndAt, &status, &cancelledAt, &appt.CancelReason, &appt.CreatedAt)
	if err != nil {
		return model.Appointment{}, err
	}
	appt.Status = model.AppointmentStatus(status)
	appt.StartAt = clock.Wall(appt.StartAt, loc)
	appt.EndAt = clock.Wall(appt.EndAt, loc)
	appt.CreatedAt = clock.Wall(appt.CreatedAt, loc)
	if cancelledAt != nil {
		c := clock.Wall(*cancelledAt, loc)
		appt.CancelledAt = &c
	}
	return appt, nil
}

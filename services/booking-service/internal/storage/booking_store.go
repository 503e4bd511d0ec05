package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/slotbook/libs/db"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/clock"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/schedule"
)

// ScheduledStartIndex is the partial unique index that allows one scheduled
// appointment per start time.
const ScheduledStartIndex = "appointments_scheduled_start_at_key"

// ScheduledOverlapConstraint rejects scheduled appointments whose
// [start_at, end_at) ranges overlap.
const ScheduledOverlapConstraint = "appointments_scheduled_no_overlap"

// BookingStore runs booking.Committer transactions on Postgres.
type BookingStore struct {
	pool   *db.Pool
	outbox *outbox.Repository
	loc    *time.Location
}

func NewBookingStore(pool *db.Pool, outboxRepo *outbox.Repository, loc *time.Location) *BookingStore {
	return &BookingStore{pool: pool, outbox: outboxRepo, loc: loc}
}

func (s *BookingStore) InTx(ctx context.Context, fn func(booking.Tx) error) error {
	return s.pool.InTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		return fn(&bookingTx{tx: tx, outbox: s.outbox, loc: s.loc})
	})
}

type bookingTx struct {
	tx     pgx.Tx
	outbox *outbox.Repository
	loc    *time.Location
}

var _ booking.Tx = (*bookingTx)(nil)

func (t *bookingTx) AccountActive(ctx context.Context, accountID string) (bool, error) {
	var active bool
	err := t.tx.QueryRow(ctx, `
		SELECT is_active
		FROM accounts
		WHERE id::text = $1
	`, accountID).Scan(&active)
	if db.IsNoRows(err) {
		return false, nil
	}
	return active, err
}

func (t *bookingTx) WeeklyHours(ctx context.Context) (schedule.Week, error) {
	week, err := loadWeek(ctx, t.tx)
	if err != nil {
		return nil, err
	}
	return week.WithDefaults(), nil
}

func (t *bookingTx) OverrideFor(ctx context.Context, d clock.Date) (*schedule.Override, error) {
	o, err := scanOverride(t.tx.QueryRow(ctx, `
		SELECT id::text, date, open_minute, close_minute, is_closed, reason
		FROM availability_overrides
		WHERE date = $1
	`, dateParam(d)))
	if db.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// InsertAppointment relies on the partial unique index and the overlap
// exclusion constraint: of two concurrent inserts for one start or for
// overlapping ranges, the second fails.
func (t *bookingTx) InsertAppointment(ctx context.Context, appt model.Appointment) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO appointments (id, account_id, start_at, end_at, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, appt.ID, appt.AccountID, clock.Naive(appt.StartAt, t.loc), clock.Naive(appt.EndAt, t.loc),
		string(appt.Status), clock.Naive(appt.CreatedAt, t.loc))
	if db.IsUniqueViolation(err, ScheduledStartIndex) || db.IsExclusionViolation(err, ScheduledOverlapConstraint) {
		return booking.ErrSlotTaken
	}
	return err
}

func (t *bookingTx) GetAppointmentForUpdate(ctx context.Context, id string) (model.Appointment, error) {
	appt, err := scanAppointment(t.tx.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id::text = $1
		FOR UPDATE
	`, id), t.loc)
	if db.IsNoRows(err) {
		return model.Appointment{}, booking.ErrNotFound
	}
	return appt, err
}

func (t *bookingTx) CancelAppointment(ctx context.Context, id, reason string, at time.Time) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE appointments
		SET status = 'cancelled',
			cancelled_at = $2,
			cancellation_reason = NULLIF($3, '')
		WHERE id::text = $1
	`, id, clock.Naive(at, t.loc), reason)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return booking.ErrNotFound
	}
	return nil
}

func (t *bookingTx) DeleteAppointment(ctx context.Context, id string) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM appointments WHERE id::text = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return booking.ErrNotFound
	}
	return nil
}

func (t *bookingTx) EnqueueEvent(ctx context.Context, evt outbox.Event) error {
	return t.outbox.Insert(ctx, t.tx, evt)
}

// IsNotFound covers both the storage and booking not-found errors.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, booking.ErrNotFound) || db.IsNoRows(err)
}

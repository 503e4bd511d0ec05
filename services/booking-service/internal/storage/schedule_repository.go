package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/slotbook/libs/db"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/clock"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/schedule"
)

// ScheduleRepository stores weekly hours and per-date overrides.
type ScheduleRepository struct {
	pool *db.Pool
}

func NewScheduleRepository(pool *db.Pool) *ScheduleRepository {
	return &ScheduleRepository{pool: pool}
}

// GetWeeklyHours returns all seven weekdays; weekdays without a row get
// their default hours. Nothing is written.
func (r *ScheduleRepository) GetWeeklyHours(ctx context.Context) (schedule.Week, error) {
	week, err := loadWeek(ctx, r.pool)
	if err != nil {
		return nil, err
	}
	return week.WithDefaults(), nil
}

// EnsureDefaultWeeklyHours inserts the default row for every missing weekday
// and leaves existing rows alone. It reports how many rows it created.
func (r *ScheduleRepository) EnsureDefaultWeeklyHours(ctx context.Context) (int, error) {
	var created int
	err := r.pool.InTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for d := 0; d < 7; d++ {
			h := schedule.DefaultWeeklyHours(d)
			tag, err := tx.Exec(ctx, `
				INSERT INTO business_hours (weekday, open_minute, close_minute, is_closed)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (weekday) DO NOTHING
			`, h.Weekday, int32(h.Open), int32(h.Close), h.IsClosed)
			if err != nil {
				return err
			}
			created += int(tag.RowsAffected())
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}

// UpsertWeek writes the given days in one transaction: either every day is
// saved or none is.
func (r *ScheduleRepository) UpsertWeek(ctx context.Context, days []schedule.WeeklyHours) error {
	for _, h := range days {
		if err := schedule.ValidateWeeklyHours(h); err != nil {
			return err
		}
	}
	return r.pool.InTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, h := range days {
			if _, err := tx.Exec(ctx, `
				INSERT INTO business_hours (weekday, open_minute, close_minute, is_closed)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (weekday) DO UPDATE
				SET open_minute = EXCLUDED.open_minute,
					close_minute = EXCLUDED.close_minute,
					is_closed = EXCLUDED.is_closed,
					updated_at = now()
			`, h.Weekday, int32(h.Open), int32(h.Close), h.IsClosed); err != nil {
				return fmt.Errorf("upsert weekday %d: %w", h.Weekday, err)
			}
		}
		return nil
	})
}

// GetOverridesInRange returns overrides dated from..to inclusive, by date.
func (r *ScheduleRepository) GetOverridesInRange(ctx context.Context, from, to clock.Date) ([]schedule.Override, error) {
	return loadOverrides(ctx, r.pool, from, to)
}

// UpsertOverride creates or replaces the override for o.Date. Closed
// overrides are stored without times.
func (r *ScheduleRepository) UpsertOverride(ctx context.Context, o schedule.Override) (schedule.Override, error) {
	if err := schedule.ValidateOverride(o); err != nil {
		return schedule.Override{}, err
	}
	o = o.Normalize()
	err := r.pool.QueryRow(ctx, `
		INSERT INTO availability_overrides (date, open_minute, close_minute, is_closed, reason)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (date) DO UPDATE
		SET open_minute = EXCLUDED.open_minute,
			close_minute = EXCLUDED.close_minute,
			is_closed = EXCLUDED.is_closed,
			reason = EXCLUDED.reason,
			updated_at = now()
		RETURNING id::text
	`, dateParam(o.Date), minutesParam(o.Open), minutesParam(o.Close), o.IsClosed, o.Reason).Scan(&o.ID)
	if err != nil {
		return schedule.Override{}, err
	}
	return o, nil
}

func (r *ScheduleRepository) DeleteOverride(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM availability_overrides
		WHERE id::text = $1
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func loadWeek(ctx context.Context, q querier) (schedule.Week, error) {
	rows, err := q.Query(ctx, `
		SELECT weekday, open_minute, close_minute, is_closed
		FROM business_hours
		ORDER BY weekday
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	week := schedule.Week{}
	for rows.Next() {
		var (
			weekday           int16
			openMin, closeMin int32
			isClosed          bool
		)
		if err := rows.Scan(&weekday, &openMin, &closeMin, &isClosed); err != nil {
			return nil, err
		}
		week[int(weekday)] = schedule.WeeklyHours{
			Weekday:  int(weekday),
			Open:     clock.TimeOfDay(openMin),
			Close:    clock.TimeOfDay(closeMin),
			IsClosed: isClosed,
		}
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return week, nil
}

func loadOverrides(ctx context.Context, q querier, from, to clock.Date) ([]schedule.Override, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("invalid range %s..%s", from, to)
	}
	rows, err := q.Query(ctx, `
		SELECT id::text, date, open_minute, close_minute, is_closed, reason
		FROM availability_overrides
		WHERE date BETWEEN $1 AND $2
		ORDER BY date
	`, dateParam(from), dateParam(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []schedule.Override
	for rows.Next() {
		o, err := scanOverride(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func scanOverride(row pgx.Row) (schedule.Override, error) {
	var (
		o                 schedule.Override
		date              time.Time
		openMin, closeMin *int32
	)
	if err := row.Scan(&o.ID, &date, &openMin, &closeMin, &o.IsClosed, &o.Reason); err != nil {
		return schedule.Override{}, err
	}
	o.Date = clock.DateOf(date)
	o.Open = timeOfDayPtr(openMin)
	o.Close = timeOfDayPtr(closeMin)
	return o, nil
}

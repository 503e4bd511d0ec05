// Package storage implements the booking-service persistence on Postgres.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/clock"
)

var ErrNotFound = errors.New("not found")

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// dateParam encodes d for a DATE column.
func dateParam(d clock.Date) time.Time {
	return d.Start(time.UTC)
}

func minutesParam(t *clock.TimeOfDay) *int32 {
	if t == nil {
		return nil
	}
	v := int32(*t)
	return &v
}

func timeOfDayPtr(v *int32) *clock.TimeOfDay {
	if v == nil {
		return nil
	}
	t := clock.TimeOfDay(*v)
	return &t
}

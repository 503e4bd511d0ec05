package storage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/slotbook/libs/db"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/clock"
)

// SnapshotReader reads weekly hours, overrides and scheduled intervals in one
// repeatable-read transaction so a scan never mixes two states.
type SnapshotReader struct {
	pool *db.Pool
	loc  *time.Location
}

func NewSnapshotReader(pool *db.Pool, loc *time.Location) *SnapshotReader {
	return &SnapshotReader{pool: pool, loc: loc}
}

var _ availability.SnapshotReader = (*SnapshotReader)(nil)

func (r *SnapshotReader) ReadSnapshot(ctx context.Context, from, to clock.Date) (availability.Snapshot, error) {
	var snap availability.Snapshot
	err := r.pool.InTx(ctx, db.SnapshotTx, func(tx pgx.Tx) error {
		week, err := loadWeek(ctx, tx)
		if err != nil {
			return err
		}
		snap.Week = week.WithDefaults()

		if snap.Overrides, err = loadOverrides(ctx, tx, from, to); err != nil {
			return err
		}
		snap.Booked, err = scheduledIntervals(ctx, tx, r.loc, from, to)
		return err
	})
	if err != nil {
		return availability.Snapshot{}, err
	}
	return snap, nil
}

package storage

import (
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/clock"
	"github.com/stretchr/testify/assert"
)

func TestDateParam(t *testing.T) {
	got := dateParam(clock.NewDate(2030, time.March, 31))
	assert.Equal(t, time.Date(2030, 3, 31, 0, 0, 0, 0, time.UTC), got)
}

func TestMinutesRoundTrip(t *testing.T) {
	assert.Nil(t, minutesParam(nil))
	assert.Nil(t, timeOfDayPtr(nil))

	tod := clock.MustTimeOfDay("13:45")
	m := minutesParam(&tod)
	if assert.NotNil(t, m) {
		assert.Equal(t, int32(13*60+45), *m)
		assert.Equal(t, tod, *timeOfDayPtr(m))
	}
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(ErrNotFound))
	assert.True(t, IsNotFound(fmt.Errorf("load: %w", booking.ErrNotFound)))
	assert.True(t, IsNotFound(pgx.ErrNoRows))
	assert.False(t, IsNotFound(booking.ErrSlotTaken))
	assert.False(t, IsNotFound(nil))
}

// Package booking commits and administers appointments. Validation and the
// write happen in one storage transaction; uniqueness of a scheduled start is
// enforced by storage, so concurrent requests for one slot yield exactly one
// booking.
package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/clock"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/metrics"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/schedule"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("github.com/md-rashed-zaman/slotbook/services/booking-service/internal/booking")

// Store opens a transaction; fn's error rolls it back.
type Store interface {
	InTx(ctx context.Context, fn func(Tx) error) error
}

// Tx is the transactional view the committer works against.
type Tx interface {
	AccountActive(ctx context.Context, accountID string) (bool, error)
	WeeklyHours(ctx context.Context) (schedule.Week, error)
	OverrideFor(ctx context.Context, d clock.Date) (*schedule.Override, error)
	// InsertAppointment returns ErrSlotTaken when a scheduled appointment
	// overlaps [appt.StartAt, appt.EndAt).
	InsertAppointment(ctx context.Context, appt model.Appointment) error
	// GetAppointmentForUpdate returns ErrNotFound for unknown ids.
	GetAppointmentForUpdate(ctx context.Context, id string) (model.Appointment, error)
	CancelAppointment(ctx context.Context, id, reason string, at time.Time) error
	DeleteAppointment(ctx context.Context, id string) error
	EnqueueEvent(ctx context.Context, evt outbox.Event) error
}

type Committer struct {
	store   Store
	clock   clock.Clock
	loc     *time.Location
	slots   availability.SlotConfig
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewCommitter(store Store, clk clock.Clock, loc *time.Location, slots availability.SlotConfig, logger *slog.Logger, m *metrics.Metrics) *Committer {
	if loc == nil {
		loc = time.Local
	}
	return &Committer{
		store:   store,
		clock:   clk,
		loc:     loc,
		slots:   slots.WithDefaults(),
		logger:  logger,
		metrics: m,
	}
}

// Book reserves the slot starting at startAt for accountID.
func (c *Committer) Book(ctx context.Context, accountID string, startAt time.Time) (model.Appointment, error) {
	ctx, span := tracer.Start(ctx, "booking.book")
	defer span.End()

	appt, err := c.book(ctx, accountID, startAt)
	c.metrics.ObserveBooking(resultLabel(err))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		if !isRejection(err) {
			c.logger.Error("booking failed", "err", err, "account_id", accountID)
		}
		return model.Appointment{}, err
	}
	span.SetAttributes(attribute.String("appointment_id", appt.ID))
	c.logger.Info("appointment booked", "appointment_id", appt.ID, "account_id", accountID, "start_at", appt.StartAt)
	return appt, nil
}

func (c *Committer) book(ctx context.Context, accountID string, startAt time.Time) (model.Appointment, error) {
	now := c.clock.Now().In(c.loc)
	start := startAt.In(c.loc).Truncate(time.Second)
	if start.Before(now) {
		return model.Appointment{}, ErrInPast
	}

	appt := model.Appointment{
		ID:        uuid.NewString(),
		AccountID: accountID,
		StartAt:   start,
		EndAt:     start.Add(c.slots.Duration),
		Status:    model.StatusScheduled,
		CreatedAt: now,
	}

	err := c.store.InTx(ctx, func(tx Tx) error {
		active, err := tx.AccountActive(ctx, accountID)
		if err != nil {
			return fmt.Errorf("load account: %w", err)
		}
		if !active {
			return ErrAccountInactive
		}

		if err := c.checkHours(ctx, tx, appt); err != nil {
			return err
		}

		if err := tx.InsertAppointment(ctx, appt); err != nil {
			if errors.Is(err, ErrSlotTaken) {
				return ErrSlotTaken
			}
			return fmt.Errorf("insert appointment: %w", err)
		}

		evt, err := outbox.AppointmentEvent(outbox.EventAppointmentBooked, appt, now)
		if err != nil {
			return err
		}
		return tx.EnqueueEvent(ctx, evt)
	})
	if err != nil {
		return model.Appointment{}, err
	}
	return appt, nil
}

// checkHours resolves the date's hours from the same transaction and
// requires the appointment to sit on the slot grid inside them.
func (c *Committer) checkHours(ctx context.Context, tx Tx, appt model.Appointment) error {
	week, err := tx.WeeklyHours(ctx)
	if err != nil {
		return fmt.Errorf("load weekly hours: %w", err)
	}
	day := clock.DateOf(appt.StartAt)
	override, err := tx.OverrideFor(ctx, day)
	if err != nil {
		return fmt.Errorf("load override: %w", err)
	}
	var overrides []schedule.Override
	if override != nil {
		overrides = append(overrides, *override)
	}

	res := schedule.NewResolver(week, overrides, c.loc).Resolve(day)
	if err := res.Err(); err != nil {
		return err
	}
	if !res.Interval.Contains(appt.StartAt, appt.EndAt) {
		return ErrOutsideHours
	}
	if !clock.OnGrid(appt.StartAt, res.Interval.Start, c.slots.Step) {
		return ErrOffGrid
	}
	return nil
}

// Cancel marks an appointment cancelled, freeing its slot. Cancelling an
// already cancelled appointment returns it unchanged.
func (c *Committer) Cancel(ctx context.Context, appointmentID, reason string) (model.Appointment, error) {
	ctx, span := tracer.Start(ctx, "booking.cancel")
	defer span.End()

	now := c.clock.Now().In(c.loc)
	var appt model.Appointment
	err := c.store.InTx(ctx, func(tx Tx) error {
		var err error
		appt, err = tx.GetAppointmentForUpdate(ctx, appointmentID)
		if err != nil {
			return err
		}
		if appt.Status == model.StatusCancelled {
			return nil
		}
		if err := tx.CancelAppointment(ctx, appointmentID, reason, now); err != nil {
			return fmt.Errorf("cancel appointment: %w", err)
		}
		appt.Status = model.StatusCancelled
		appt.CancelledAt = &now
		appt.CancelReason = reason

		evt, err := outbox.AppointmentEvent(outbox.EventAppointmentCancelled, appt, now)
		if err != nil {
			return err
		}
		return tx.EnqueueEvent(ctx, evt)
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return model.Appointment{}, err
	}
	c.metrics.ObserveChange("cancel")
	c.logger.Info("appointment cancelled", "appointment_id", appointmentID)
	return appt, nil
}

// Delete removes an appointment permanently.
func (c *Committer) Delete(ctx context.Context, appointmentID string) error {
	ctx, span := tracer.Start(ctx, "booking.delete")
	defer span.End()

	now := c.clock.Now().In(c.loc)
	err := c.store.InTx(ctx, func(tx Tx) error {
		appt, err := tx.GetAppointmentForUpdate(ctx, appointmentID)
		if err != nil {
			return err
		}
		if err := tx.DeleteAppointment(ctx, appointmentID); err != nil {
			return fmt.Errorf("delete appointment: %w", err)
		}
		evt, err := outbox.AppointmentEvent(outbox.EventAppointmentDeleted, appt, now)
		if err != nil {
			return err
		}
		return tx.EnqueueEvent(ctx, evt)
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	c.metrics.ObserveChange("delete")
	c.logger.Info("appointment deleted", "appointment_id", appointmentID)
	return nil
}

func isRejection(err error) bool {
	return resultLabel(err) != "error"
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "booked"
	case errors.Is(err, ErrSlotTaken):
		return "slot_taken"
	case errors.Is(err, ErrInPast):
		return "in_past"
	case errors.Is(err, ErrOutsideHours):
		return "outside_hours"
	case errors.Is(err, ErrOffGrid):
		return "off_grid"
	case errors.Is(err, ErrAccountInactive):
		return "account_inactive"
	case errors.Is(err, schedule.ErrDayClosed):
		return "closed"
	case errors.Is(err, schedule.ErrMisconfigured):
		return "misconfigured"
	default:
		return "error"
	}
}

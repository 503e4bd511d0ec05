package outbox

import (
	"encoding/json"
	"time"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
)

const (
	AggregateAppointment = "appointment"

	EventAppointmentBooked    = "booking.appointment.booked.v1"
	EventAppointmentCancelled = "booking.appointment.cancelled.v1"
	EventAppointmentDeleted   = "booking.appointment.deleted.v1"
)

// Event is the domain event envelope written to the outbox table.
// The Kafka topic name equals EventType.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

type appointmentPayload struct {
	AppointmentID string     `json:"appointment_id"`
	AccountID     string     `json:"account_id"`
	StartAt       time.Time  `json:"start_at"`
	EndAt         time.Time  `json:"end_at"`
	Status        string     `json:"status"`
	CancelledAt   *time.Time `json:"cancelled_at,omitempty"`
	CancelReason  string     `json:"cancel_reason,omitempty"`
	OccurredAt    time.Time  `json:"occurred_at"`
}

func AppointmentEvent(eventType string, appt model.Appointment, occurredAt time.Time) (Event, error) {
	payload, err := json.Marshal(appointmentPayload{
		AppointmentID: appt.ID,
		AccountID:     appt.AccountID,
		StartAt:       appt.StartAt,
		EndAt:         appt.EndAt,
		Status:        string(appt.Status),
		CancelledAt:   appt.CancelledAt,
		CancelReason:  appt.CancelReason,
		OccurredAt:    occurredAt,
	})
	if err != nil {
		return Event{}, err
	}
	return Event{
		AggregateType: AggregateAppointment,
		AggregateID:   appt.ID,
		EventType:     eventType,
		Payload:       payload,
	}, nil
}

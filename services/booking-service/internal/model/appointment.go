package model

import "time"

type AppointmentStatus string

const (
	StatusScheduled AppointmentStatus = "scheduled"
	StatusCancelled AppointmentStatus = "cancelled"
)

type Appointment struct {
	ID           string
	AccountID    string
	StartAt      time.Time
	EndAt        time.Time
	Status       AppointmentStatus
	CancelledAt  *time.Time
	CancelReason string
	CreatedAt    time.Time
}

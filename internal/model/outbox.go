package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "PENDING"
	OutboxStatusProcessed OutboxStatus = "PROCESSED"
	OutboxStatusFailed    OutboxStatus = "FAILED"
)

// Appointment lifecycle event types published through the outbox.
const (
	EventAppointmentCreated    = "appointment.created"
	EventAppointmentConfirmed  = "appointment.confirmed"
	EventAppointmentCancelled  = "appointment.cancelled"
	EventAppointmentForceMoved = "appointment.force_rescheduled"
	EventRescheduleApproved    = "appointment.reschedule_approved"
	EventRescheduleRejected    = "appointment.reschedule_rejected"
)

type OutboxEvent struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	EventType    string          `db:"event_type" json:"event_type"`
	Payload      json.RawMessage `db:"payload" json:"payload"`
	Status       string          `db:"status" json:"status"`
	ErrorMessage *string         `db:"error_message" json:"error_message,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	ProcessedAt  *time.Time      `db:"processed_at" json:"processed_at,omitempty"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}

// AppointmentEvent is the payload carried by appointment outbox events.
type AppointmentEvent struct {
	AppointmentID uuid.UUID `json:"appointment_id"`
	DoctorID      uuid.UUID `json:"doctor_id"`
	ClientID      uuid.UUID `json:"client_id"`
	ScheduledAt   time.Time `json:"scheduled_at"`
	HasFee        bool      `json:"has_fee,omitempty"`
	Message       string    `json:"message,omitempty"`
}

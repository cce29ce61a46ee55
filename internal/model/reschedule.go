package model

import (
	"time"

	"github.com/google/uuid"
)

type RescheduleStatus string

const (
	RescheduleStatusPending  RescheduleStatus = "pending"
	RescheduleStatusApproved RescheduleStatus = "approved"
	RescheduleStatusRejected RescheduleStatus = "rejected"
)

// RescheduleRequest is a client's pending proposal to move an appointment.
// The appointment itself is untouched until the request is resolved.
type RescheduleRequest struct {
	Base
	AppointmentID   uuid.UUID        `db:"appointment_id" json:"appointment_id"`
	OldScheduledAt  time.Time        `db:"old_scheduled_at" json:"old_scheduled_at"`
	NewScheduledAt  time.Time        `db:"new_scheduled_at" json:"new_scheduled_at"`
	ClientNote      string           `db:"client_note" json:"client_note,omitempty"`
	Status          RescheduleStatus `db:"status" json:"status"`
	RequestedAt     time.Time        `db:"requested_at" json:"requested_at"`
	RejectionReason string           `db:"rejection_reason" json:"rejection_reason,omitempty"`
}

type CreateRescheduleRequest struct {
	NewScheduledAt time.Time `json:"new_scheduled_at" binding:"required"`
	Note           string    `json:"note" binding:"max=500"`
}

type RejectRescheduleRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

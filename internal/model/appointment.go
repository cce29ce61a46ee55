package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type AppointmentStatus string

const (
	AppointmentStatusProposed      AppointmentStatus = "proposed"
	AppointmentStatusConfirmed     AppointmentStatus = "confirmed"
	AppointmentStatusInProgress    AppointmentStatus = "in_progress"
	AppointmentStatusCompleted     AppointmentStatus = "completed"
	AppointmentStatusCancelled     AppointmentStatus = "cancelled"
	AppointmentStatusCancelledLate AppointmentStatus = "cancelled_late"
)

// Terminal reports whether the status admits no further transitions.
func (s AppointmentStatus) Terminal() bool {
	return s == AppointmentStatusCompleted ||
		s == AppointmentStatusCancelled ||
		s == AppointmentStatusCancelledLate
}

// Active reports whether the appointment still occupies its slot.
func (s AppointmentStatus) Active() bool {
	return !s.Terminal()
}

var forwardTransitions = map[AppointmentStatus]AppointmentStatus{
	AppointmentStatusProposed:   AppointmentStatusConfirmed,
	AppointmentStatusConfirmed:  AppointmentStatusInProgress,
	AppointmentStatusInProgress: AppointmentStatusCompleted,
}

// CanTransitionTo validates a status change. Cancellation is handled
// separately because it carries the fee policy.
func (s AppointmentStatus) CanTransitionTo(next AppointmentStatus) bool {
	return forwardTransitions[s] == next
}

func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentStatusProposed, AppointmentStatusConfirmed,
		AppointmentStatusInProgress, AppointmentStatusCompleted,
		AppointmentStatusCancelled, AppointmentStatusCancelledLate:
		return true
	}
	return false
}

type Appointment struct {
	Base
	PetID           uuid.UUID         `db:"pet_id" json:"pet_id"`
	DoctorID        uuid.UUID         `db:"doctor_id" json:"doctor_id"`
	ClientID        uuid.UUID         `db:"client_id" json:"client_id"`
	ScheduledAt     time.Time         `db:"scheduled_at" json:"scheduled_at"`
	DurationMinutes int               `db:"duration_minutes" json:"duration_minutes"`
	Status          AppointmentStatus `db:"status" json:"status"`
	Reason          string            `db:"reason" json:"reason,omitempty"`
	Location        string            `db:"location" json:"location,omitempty"`
	Services        pq.StringArray    `db:"services" json:"services,omitempty"`
	CreatedBy       uuid.UUID         `db:"created_by" json:"created_by"`
	Notes           string            `db:"notes" json:"notes,omitempty"`
}

func (a *Appointment) Duration() time.Duration {
	return time.Duration(a.DurationMinutes) * time.Minute
}

// EndTime is the exclusive end of the appointment's interval.
func (a *Appointment) EndTime() time.Time {
	return a.ScheduledAt.Add(a.Duration())
}

type CreateAppointmentRequest struct {
	PetID           uuid.UUID `json:"pet_id" binding:"required"`
	DoctorID        uuid.UUID `json:"doctor_id" binding:"required"`
	ClientID        uuid.UUID `json:"client_id"`
	ScheduledAt     time.Time `json:"scheduled_at" binding:"required"`
	DurationMinutes int       `json:"duration_minutes" binding:"omitempty,min=5,max=480"`
	Reason          string    `json:"reason" binding:"max=500"`
	Location        string    `json:"location" binding:"max=200"`
	Services        []string  `json:"services"`
	Notes           string    `json:"notes" binding:"max=1000"`
}

type UpdateStatusRequest struct {
	Status AppointmentStatus `json:"status" binding:"required"`
}

type CancelAppointmentRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

type ForceRescheduleRequest struct {
	NewScheduledAt time.Time `json:"new_scheduled_at" binding:"required"`
	Reason         string    `json:"reason" binding:"max=500"`
}

type AppointmentFilters struct {
	DoctorID uuid.UUID
	ClientID uuid.UUID
	Status   AppointmentStatus
	From     time.Time
	To       time.Time
}

// Slot is a candidate start time inside a resolved working window.
type Slot struct {
	Time      time.Time `json:"time"`
	Available bool      `json:"available"`
}

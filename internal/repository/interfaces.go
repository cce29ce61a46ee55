package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/petclinic-api/internal/model"
)

type AppointmentRepository interface {
	// Book atomically re-checks the doctor's window for overlap and inserts
	// the appointment. Returns a Conflict error if the slot is taken.
	Book(ctx context.Context, appointment *model.Appointment) error
	// Move atomically re-checks availability at the new time (excluding the
	// appointment itself) and updates scheduled_at and status.
	Move(ctx context.Context, id uuid.UUID, newScheduledAt time.Time, status model.AppointmentStatus) error
	Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
	// UpdateStatus is a compare-and-set: the write only lands if the row still
	// holds the from status. A concurrent transition surfaces as Conflict, so
	// terminal states can never be overwritten.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.AppointmentStatus) error
	// Cancel atomically moves the appointment from its observed status to the
	// cancelled status and, when the fee applies, records the penalty in the
	// same transaction. Either both land or neither does.
	Cancel(ctx context.Context, id uuid.UUID, from, to model.AppointmentStatus, penalty *model.Penalty) error
	List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error)
	// ListActiveInRange returns non-terminal appointments for a doctor whose
	// intervals intersect [from, to).
	ListActiveInRange(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]*model.Appointment, error)
	HasOverlap(ctx context.Context, doctorID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (bool, error)
	// ListExpired returns proposed/confirmed appointments whose scheduled
	// time has already passed.
	ListExpired(ctx context.Context, now time.Time) ([]*model.Appointment, error)
}

type WorkingHoursRepository interface {
	Upsert(ctx context.Context, hours *model.WorkingHours) error
	ListActive(ctx context.Context, doctorID uuid.UUID) ([]*model.WorkingHours, error)
	DeactivateAll(ctx context.Context, doctorID uuid.UUID) error
}

type ScheduleOverrideRepository interface {
	Create(ctx context.Context, override *model.ScheduleOverride) error
	Get(ctx context.Context, id uuid.UUID) (*model.ScheduleOverride, error)
	Update(ctx context.Context, override *model.ScheduleOverride) error
	Delete(ctx context.Context, id uuid.UUID) error
	// ListApprovedInRange returns approved overrides for [start, end] ordered
	// by date ascending.
	ListApprovedInRange(ctx context.Context, doctorID uuid.UUID, start, end model.Date) ([]*model.ScheduleOverride, error)
	RejectAllPending(ctx context.Context, doctorID, adminID uuid.UUID, note string) error
}

type RescheduleRepository interface {
	Create(ctx context.Context, req *model.RescheduleRequest) error
	Get(ctx context.Context, id uuid.UUID) (*model.RescheduleRequest, error)
	Update(ctx context.Context, req *model.RescheduleRequest) error
	ListByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]*model.RescheduleRequest, error)
	GetPendingByAppointment(ctx context.Context, appointmentID uuid.UUID) (*model.RescheduleRequest, error)
}

type OutboxRepository interface {
	Create(ctx context.Context, event *model.OutboxEvent) error
	GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errMsg *string) error
}

// DirectoryRepository reads from the client/pet tables owned by the identity
// and CRM services. Lookup only; those records are never written here.
type DirectoryRepository interface {
	PetOwner(ctx context.Context, petID uuid.UUID) (uuid.UUID, error)
	ClientEmail(ctx context.Context, clientID uuid.UUID) (string, error)
}

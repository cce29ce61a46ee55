package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/petclinic-api/internal/model"
	"github.com/jwalitptl/petclinic-api/internal/repository"
	apperrors "github.com/jwalitptl/petclinic-api/pkg/errors"
)

// Resolver yields the effective working window for one date.
type Resolver interface {
	ResolveDay(ctx context.Context, doctorID uuid.UUID, date model.Date) (model.CalendarDay, error)
}

// Service enumerates bookable slots and answers overlap queries. Both are
// pure reads; the authoritative overlap re-check happens inside the booking
// transaction.
type Service struct {
	appointments repository.AppointmentRepository
	calendar     Resolver
	location     *time.Location
}

func NewService(appointments repository.AppointmentRepository, calendar Resolver) *Service {
	return &Service{
		appointments: appointments,
		calendar:     calendar,
		location:     time.Local,
	}
}

// GetAvailableSlots enumerates candidate start times across the resolved
// working window at a fixed granularity. Granularity is independent of the
// appointment duration so shorter openings between bookings stay discoverable.
func (s *Service) GetAvailableSlots(ctx context.Context, doctorID uuid.UUID, date model.Date, granularity, duration time.Duration) ([]model.Slot, error) {
	if granularity <= 0 || duration <= 0 {
		return nil, apperrors.Validation("granularity and duration must be positive", nil)
	}

	day, err := s.calendar.ResolveDay(ctx, doctorID, date)
	if err != nil {
		return nil, err
	}
	if !day.IsWorking {
		return []model.Slot{}, nil
	}

	windowStart, err := date.At(day.StartTime, s.location)
	if err != nil {
		return nil, fmt.Errorf("invalid window start: %w", err)
	}
	windowEnd, err := date.At(day.EndTime, s.location)
	if err != nil {
		return nil, fmt.Errorf("invalid window end: %w", err)
	}

	booked, err := s.appointments.ListActiveInRange(ctx, doctorID, windowStart, windowEnd)
	if err != nil {
		return nil, err
	}

	var slots []model.Slot
	for t := windowStart; !t.Add(duration).After(windowEnd); t = t.Add(granularity) {
		slots = append(slots, model.Slot{
			Time:      t,
			Available: !overlapsAny(t, t.Add(duration), booked),
		})
	}
	if slots == nil {
		slots = []model.Slot{}
	}
	return slots, nil
}

// CheckAvailability reports whether [scheduledAt, scheduledAt+duration)
// is free of active appointments for the doctor. excludeID skips the
// appointment being moved.
func (s *Service) CheckAvailability(ctx context.Context, doctorID uuid.UUID, scheduledAt time.Time, duration time.Duration, excludeID *uuid.UUID) (bool, error) {
	if duration <= 0 {
		return false, apperrors.Validation("duration must be positive", nil)
	}
	taken, err := s.appointments.HasOverlap(ctx, doctorID, scheduledAt, scheduledAt.Add(duration), excludeID)
	if err != nil {
		return false, err
	}
	return !taken, nil
}

// Overlaps implements the half-open interval test: [a0,a1) and [b0,b1)
// intersect iff a0 < b1 and b0 < a1.
func Overlaps(a0, a1, b0, b1 time.Time) bool {
	return a0.Before(b1) && b0.Before(a1)
}

func overlapsAny(start, end time.Time, appointments []*model.Appointment) bool {
	for _, apt := range appointments {
		if apt.Status.Active() && Overlaps(start, end, apt.ScheduledAt, apt.EndTime()) {
			return true
		}
	}
	return false
}

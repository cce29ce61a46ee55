package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/petclinic-api/internal/model"
	"github.com/jwalitptl/petclinic-api/internal/repository"
	apperrors "github.com/jwalitptl/petclinic-api/pkg/errors"
)

// Service resolves a doctor's effective working window per date by merging
// approved schedule overrides with the recurring weekly hours. Overrides win;
// without one, the weekday's active hours apply; otherwise the day is off.
type Service struct {
	overrides repository.ScheduleOverrideRepository
	hours     repository.WorkingHoursRepository
}

func NewService(overrides repository.ScheduleOverrideRepository, hours repository.WorkingHoursRepository) *Service {
	return &Service{
		overrides: overrides,
		hours:     hours,
	}
}

// Resolve returns one CalendarDay per date in [start, end], ascending. It is
// a pure read: nothing is cached, so schedule writes are visible on the next
// call.
func (s *Service) Resolve(ctx context.Context, doctorID uuid.UUID, start, end model.Date) ([]model.CalendarDay, error) {
	if end.Before(start) {
		return nil, apperrors.Validation("end date must not precede start date", nil)
	}

	overrides, err := s.overrides.ListApprovedInRange(ctx, doctorID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to load schedule overrides: %w", err)
	}
	byDate := make(map[model.Date]*model.ScheduleOverride, len(overrides))
	for _, o := range overrides {
		byDate[o.Date] = o
	}

	weekly, err := s.hours.ListActive(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("failed to load working hours: %w", err)
	}
	byWeekday := make(map[time.Weekday]*model.WorkingHours, len(weekly))
	for _, wh := range weekly {
		byWeekday[wh.DayOfWeek] = wh
	}

	var days []model.CalendarDay
	for d := start; !d.After(end); d = d.AddDays(1) {
		days = append(days, resolveDay(d, byDate[d], byWeekday[d.Weekday()]))
	}
	return days, nil
}

// ResolveDay resolves a single date.
func (s *Service) ResolveDay(ctx context.Context, doctorID uuid.UUID, date model.Date) (model.CalendarDay, error) {
	days, err := s.Resolve(ctx, doctorID, date, date)
	if err != nil {
		return model.CalendarDay{}, err
	}
	return days[0], nil
}

func resolveDay(date model.Date, override *model.ScheduleOverride, weekly *model.WorkingHours) model.CalendarDay {
	day := model.CalendarDay{
		Date:    date,
		DayName: date.Weekday().String(),
		Source:  model.CalendarSourceNone,
	}

	if override != nil {
		day.Source = model.CalendarSourceSchedule
		day.Notes = override.Notes
		if !override.IsDayOff() {
			day.IsWorking = true
			day.StartTime = override.StartTime
			day.EndTime = override.EndTime
		}
		return day
	}

	if weekly != nil {
		day.Source = model.CalendarSourceWorkingHours
		day.IsWorking = true
		day.StartTime = weekly.StartTime
		day.EndTime = weekly.EndTime
	}
	return day
}

package schedule

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/petclinic-api/internal/model"
	"github.com/jwalitptl/petclinic-api/internal/repository"
	"github.com/jwalitptl/petclinic-api/pkg/clock"
	apperrors "github.com/jwalitptl/petclinic-api/pkg/errors"
)

// Service manages weekly working hours, schedule overrides and the admin
// approval workflow. Overrides always start pending and only admins resolve
// them; a pending override never affects the resolved calendar.
type Service struct {
	overrides repository.ScheduleOverrideRepository
	hours     repository.WorkingHoursRepository
	clock     clock.Clock
}

func NewService(overrides repository.ScheduleOverrideRepository, hours repository.WorkingHoursRepository, clk clock.Clock) *Service {
	return &Service{
		overrides: overrides,
		hours:     hours,
		clock:     clk,
	}
}

// CreateOverride files a date-specific exception. Doctors may only file for
// themselves; admins and receptionists may file for any doctor.
func (s *Service) CreateOverride(ctx context.Context, actor model.Actor, req *model.CreateScheduleRequest) (*model.ScheduleOverride, error) {
	if actor.Role == model.RoleClient {
		return nil, apperrors.Forbidden("clients cannot manage schedules")
	}

	doctorID := req.DoctorID
	if actor.Role == model.RoleDoctor {
		doctorID = actor.ID
	}
	if doctorID == uuid.Nil {
		return nil, apperrors.Validation("doctor_id is required", nil)
	}
	if err := validateWindow(req.StartTime, req.EndTime); err != nil {
		return nil, err
	}

	override := &model.ScheduleOverride{
		DoctorID:    doctorID,
		Date:        req.Date,
		StartTime:   normalize(req.StartTime),
		EndTime:     normalize(req.EndTime),
		Status:      model.OverrideStatusPending,
		RequestedBy: actor.ID,
		Notes:       model.ScheduleNotes{},
	}
	if req.Notes != "" {
		override.Notes = append(override.Notes, model.ScheduleNote{
			Author:    actor.ID,
			Timestamp: s.clock.Now(),
			Text:      req.Notes,
		})
	}

	if err := s.overrides.Create(ctx, override); err != nil {
		return nil, err
	}
	return override, nil
}

func (s *Service) GetOverride(ctx context.Context, id uuid.UUID) (*model.ScheduleOverride, error) {
	return s.overrides.Get(ctx, id)
}

// UpdateOverride edits a pending override. Resolved overrides are immutable;
// the doctor files a new one instead.
func (s *Service) UpdateOverride(ctx context.Context, actor model.Actor, id uuid.UUID, req *model.UpdateScheduleRequest) (*model.ScheduleOverride, error) {
	override, err := s.overrides.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role == model.RoleDoctor && override.DoctorID != actor.ID {
		return nil, apperrors.Forbidden("schedule belongs to another doctor")
	}
	if actor.Role == model.RoleClient {
		return nil, apperrors.Forbidden("clients cannot manage schedules")
	}
	if override.Status != model.OverrideStatusPending {
		return nil, apperrors.Conflict(fmt.Sprintf("schedule is already %s", override.Status), nil)
	}

	if req.Date != nil {
		override.Date = *req.Date
	}
	if req.StartTime != nil {
		override.StartTime = normalize(*req.StartTime)
	}
	if req.EndTime != nil {
		override.EndTime = normalize(*req.EndTime)
	}
	if err := validateWindow(override.StartTime, override.EndTime); err != nil {
		return nil, err
	}

	if err := s.overrides.Update(ctx, override); err != nil {
		return nil, err
	}
	return override, nil
}

func (s *Service) DeleteOverride(ctx context.Context, actor model.Actor, id uuid.UUID) error {
	override, err := s.overrides.Get(ctx, id)
	if err != nil {
		return err
	}
	if actor.Role == model.RoleDoctor && override.DoctorID != actor.ID {
		return apperrors.Forbidden("schedule belongs to another doctor")
	}
	if actor.Role == model.RoleClient {
		return apperrors.Forbidden("clients cannot manage schedules")
	}
	return s.overrides.Delete(ctx, id)
}

// Review approves or rejects a pending override and appends the admin's
// annotation to the note history.
func (s *Service) Review(ctx context.Context, actor model.Actor, id uuid.UUID, req *model.ReviewScheduleRequest) (*model.ScheduleOverride, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.Forbidden("only admins may review schedules")
	}
	if req.Status != model.OverrideStatusApproved && req.Status != model.OverrideStatusRejected {
		return nil, apperrors.Validation(fmt.Sprintf("invalid review status %q", req.Status), nil)
	}

	override, err := s.overrides.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if override.Status != model.OverrideStatusPending {
		return nil, apperrors.Conflict(fmt.Sprintf("schedule is already %s", override.Status), nil)
	}

	adminID := actor.ID
	override.Status = req.Status
	override.ApprovedBy = &adminID
	if req.Note != "" {
		override.Notes = append(override.Notes, model.ScheduleNote{
			Author:    adminID,
			Timestamp: s.clock.Now(),
			Text:      req.Note,
		})
	}

	if err := s.overrides.Update(ctx, override); err != nil {
		return nil, err
	}
	return override, nil
}

// UpsertWorkingHours replaces the doctor's weekly defaults, one active row
// per weekday.
func (s *Service) UpsertWorkingHours(ctx context.Context, actor model.Actor, req *model.UpsertWorkingHoursRequest) ([]*model.WorkingHours, error) {
	if actor.Role == model.RoleClient {
		return nil, apperrors.Forbidden("clients cannot manage working hours")
	}

	doctorID := req.DoctorID
	if actor.Role == model.RoleDoctor {
		doctorID = actor.ID
	}
	if doctorID == uuid.Nil {
		return nil, apperrors.Validation("doctor_id is required", nil)
	}

	var saved []*model.WorkingHours
	for _, input := range req.Hours {
		if err := validateHours(input.StartTime, input.EndTime); err != nil {
			return nil, err
		}
		wh := &model.WorkingHours{
			DoctorID:  doctorID,
			DayOfWeek: input.DayOfWeek,
			StartTime: normalize(input.StartTime),
			EndTime:   normalize(input.EndTime),
			IsActive:  true,
		}
		if err := s.hours.Upsert(ctx, wh); err != nil {
			return nil, err
		}
		saved = append(saved, wh)
	}
	return saved, nil
}

func (s *Service) ListWorkingHours(ctx context.Context, doctorID uuid.UUID) ([]*model.WorkingHours, error) {
	return s.hours.ListActive(ctx, doctorID)
}

// DeactivateDoctor bulk-rejects the doctor's pending overrides and
// deactivates the weekly hours. The calendar reflects it on the next read;
// nothing is cached.
func (s *Service) DeactivateDoctor(ctx context.Context, actor model.Actor, doctorID uuid.UUID) error {
	if !actor.IsAdmin() {
		return apperrors.Forbidden("only admins may deactivate doctors")
	}

	if err := s.overrides.RejectAllPending(ctx, doctorID, actor.ID, "doctor account deactivated"); err != nil {
		return err
	}
	if err := s.hours.DeactivateAll(ctx, doctorID); err != nil {
		return err
	}
	return nil
}

func normalize(t model.TimeOfDay) model.TimeOfDay {
	if t == "" {
		return model.Midnight
	}
	return t
}

// validateWindow accepts either a real window (start < end) or the
// midnight-to-midnight day-off encoding.
func validateWindow(start, end model.TimeOfDay) error {
	start, end = normalize(start), normalize(end)
	if start.IsMidnight() && end.IsMidnight() {
		return nil
	}
	return validateHours(start, end)
}

func validateHours(start, end model.TimeOfDay) error {
	startMin, err := start.Minutes()
	if err != nil {
		return apperrors.Validation(err.Error(), err)
	}
	endMin, err := end.Minutes()
	if err != nil {
		return apperrors.Validation(err.Error(), err)
	}
	if startMin >= endMin {
		return apperrors.Validation("start time must precede end time", nil)
	}
	return nil
}

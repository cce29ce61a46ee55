package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/petclinic-api/internal/model"
	"github.com/jwalitptl/petclinic-api/internal/repository"
	"github.com/jwalitptl/petclinic-api/pkg/clock"
	apperrors "github.com/jwalitptl/petclinic-api/pkg/errors"
)

const (
	// bookingRetries bounds retries of the booking transaction on transient
	// storage errors (lock contention); domain conflicts are never retried.
	bookingRetries    = 3
	bookingRetryDelay = 50 * time.Millisecond
)

// Checker answers whether a slot is free. Satisfied by the availability
// service; bookings still re-check inside the write transaction.
type Checker interface {
	CheckAvailability(ctx context.Context, doctorID uuid.UUID, scheduledAt time.Time, duration time.Duration, excludeID *uuid.UUID) (bool, error)
}

// Notifier hands lifecycle events to the notification pipeline. Failures are
// logged, never surfaced: a lost notification must not fail a booking.
type Notifier interface {
	Enqueue(ctx context.Context, eventType string, event model.AppointmentEvent) error
}

// Policy carries the clinic's cancellation and duration settings.
type Policy struct {
	CancellationPolicyHours int
	LateCancellationFee     float64
	DefaultDurationMinutes  int
}

type Service struct {
	repo        repository.AppointmentRepository
	reschedules repository.RescheduleRepository
	directory   repository.DirectoryRepository
	checker     Checker
	notifier    Notifier
	policy      Policy
	clock       clock.Clock
}

func NewService(
	repo repository.AppointmentRepository,
	reschedules repository.RescheduleRepository,
	directory repository.DirectoryRepository,
	checker Checker,
	notifier Notifier,
	policy Policy,
	clk clock.Clock,
) *Service {
	return &Service{
		repo:        repo,
		reschedules: reschedules,
		directory:   directory,
		checker:     checker,
		notifier:    notifier,
		policy:      policy,
		clock:       clk,
	}
}

// Create books an appointment. Client-created appointments start proposed;
// staff- and doctor-created ones start confirmed.
func (s *Service) Create(ctx context.Context, actor model.Actor, req *model.CreateAppointmentRequest) (*model.Appointment, error) {
	duration := req.DurationMinutes
	if duration == 0 {
		duration = s.policy.DefaultDurationMinutes
	}
	if duration <= 0 {
		return nil, apperrors.Validation("duration must be positive", nil)
	}

	ownerID, err := s.directory.PetOwner(ctx, req.PetID)
	if err != nil {
		return nil, err
	}

	clientID := req.ClientID
	status := model.AppointmentStatusConfirmed
	if actor.Role == model.RoleClient {
		if ownerID != actor.ID {
			return nil, apperrors.Forbidden("pet does not belong to this client")
		}
		clientID = actor.ID
		status = model.AppointmentStatusProposed
	} else if clientID == uuid.Nil {
		clientID = ownerID
	}

	apt := &model.Appointment{
		PetID:           req.PetID,
		DoctorID:        req.DoctorID,
		ClientID:        clientID,
		ScheduledAt:     req.ScheduledAt,
		DurationMinutes: duration,
		Status:          status,
		Reason:          req.Reason,
		Location:        req.Location,
		Services:        req.Services,
		CreatedBy:       actor.ID,
		Notes:           req.Notes,
	}

	available, err := s.checker.CheckAvailability(ctx, apt.DoctorID, apt.ScheduledAt, apt.Duration(), nil)
	if err != nil {
		return nil, err
	}
	if !available {
		return nil, apperrors.Conflict("time slot is not available", nil)
	}

	// The pre-flight check above gives a fast answer; Book re-checks under
	// the doctor's lock so concurrent requests cannot both pass.
	if err := s.bookWithRetry(ctx, apt); err != nil {
		return nil, err
	}

	s.notify(ctx, model.EventAppointmentCreated, apt, "")
	return apt, nil
}

func (s *Service) Get(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Appointment, error) {
	apt, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role == model.RoleClient && apt.ClientID != actor.ID {
		return nil, apperrors.Forbidden("appointment belongs to another client")
	}
	return apt, nil
}

func (s *Service) List(ctx context.Context, actor model.Actor, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	if actor.Role == model.RoleClient {
		filters.ClientID = actor.ID
	}
	return s.repo.List(ctx, filters)
}

// UpdateStatus advances the forward state machine:
// proposed -> confirmed -> in_progress -> completed.
func (s *Service) UpdateStatus(ctx context.Context, actor model.Actor, id uuid.UUID, next model.AppointmentStatus) (*model.Appointment, error) {
	if !actor.IsStaff() {
		return nil, apperrors.Forbidden("only staff may change appointment status")
	}
	if !next.Valid() {
		return nil, apperrors.Validation(fmt.Sprintf("unknown status %q", next), nil)
	}
	if next == model.AppointmentStatusCancelled || next == model.AppointmentStatusCancelledLate {
		return nil, apperrors.Validation("use the cancel operation to cancel", nil)
	}

	apt, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if apt.Status.Terminal() {
		return nil, apperrors.Conflict(fmt.Sprintf("appointment is already %s", apt.Status), nil)
	}
	if !apt.Status.CanTransitionTo(next) {
		return nil, apperrors.Validation(
			fmt.Sprintf("cannot transition from %s to %s", apt.Status, next), nil)
	}

	if err := s.repo.UpdateStatus(ctx, id, apt.Status, next); err != nil {
		return nil, err
	}
	apt.Status = next

	if next == model.AppointmentStatusConfirmed {
		s.notify(ctx, model.EventAppointmentConfirmed, apt, "")
	}
	return apt, nil
}

// Cancel applies the cancellation-fee policy. The fee decision is made once,
// against the injected clock, and persisted; it is never recomputed later.
// The boundary is inclusive toward no-fee: cancelling exactly at the policy
// window is free.
func (s *Service) Cancel(ctx context.Context, actor model.Actor, id uuid.UUID, reason string) (*model.Appointment, error) {
	apt, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role == model.RoleClient && apt.ClientID != actor.ID {
		return nil, apperrors.Forbidden("appointment belongs to another client")
	}
	if apt.Status.Terminal() {
		return nil, apperrors.Conflict(fmt.Sprintf("appointment is already %s", apt.Status), nil)
	}

	now := s.clock.Now()
	hoursUntil := apt.ScheduledAt.Sub(now).Hours()
	hasFee := hoursUntil < float64(s.policy.CancellationPolicyHours)

	status := model.AppointmentStatusCancelled
	var penalty *model.Penalty
	if hasFee {
		status = model.AppointmentStatusCancelledLate
		penalty = &model.Penalty{
			ClientID:      apt.ClientID,
			AppointmentID: apt.ID,
			Amount:        s.policy.LateCancellationFee,
			Reason:        fmt.Sprintf("late cancellation within %dh of appointment", s.policy.CancellationPolicyHours),
		}
	}

	// Status write and penalty commit together; a penalty failure rolls the
	// cancellation back.
	if err := s.repo.Cancel(ctx, apt.ID, apt.Status, status, penalty); err != nil {
		return nil, err
	}
	apt.Status = status

	s.notifyFee(ctx, model.EventAppointmentCancelled, apt, hasFee, reason)
	return apt, nil
}

// AutoCancelExpired moves past-due proposed/confirmed appointments to
// cancelled with no fee. One failed appointment never aborts the sweep.
func (s *Service) AutoCancelExpired(ctx context.Context) (int, error) {
	expired, err := s.repo.ListExpired(ctx, s.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to list expired appointments: %w", err)
	}

	cancelled := 0
	for _, apt := range expired {
		if err := s.repo.UpdateStatus(ctx, apt.ID, apt.Status, model.AppointmentStatusCancelled); err != nil {
			log.Error().Err(err).
				Str("appointment_id", apt.ID.String()).
				Msg("auto-cancel failed for appointment")
			continue
		}
		cancelled++
	}
	return cancelled, nil
}

// RequestReschedule records a client's proposal to move the appointment. The
// appointment itself stays untouched until staff resolve the request.
func (s *Service) RequestReschedule(ctx context.Context, actor model.Actor, appointmentID uuid.UUID, req *model.CreateRescheduleRequest) (*model.RescheduleRequest, error) {
	apt, err := s.repo.Get(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if actor.Role == model.RoleClient && apt.ClientID != actor.ID {
		return nil, apperrors.Forbidden("appointment belongs to another client")
	}
	if apt.Status.Terminal() {
		return nil, apperrors.Conflict(fmt.Sprintf("appointment is already %s", apt.Status), nil)
	}

	pending, err := s.reschedules.GetPendingByAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if pending != nil {
		return nil, apperrors.Conflict("a reschedule request is already pending", nil)
	}

	request := &model.RescheduleRequest{
		AppointmentID:  appointmentID,
		OldScheduledAt: apt.ScheduledAt,
		NewScheduledAt: req.NewScheduledAt,
		ClientNote:     req.Note,
		Status:         model.RescheduleStatusPending,
		RequestedAt:    s.clock.Now(),
	}
	if err := s.reschedules.Create(ctx, request); err != nil {
		return nil, err
	}
	return request, nil
}

func (s *Service) ListRescheduleRequests(ctx context.Context, actor model.Actor, appointmentID uuid.UUID) ([]*model.RescheduleRequest, error) {
	apt, err := s.repo.Get(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if actor.Role == model.RoleClient && apt.ClientID != actor.ID {
		return nil, apperrors.Forbidden("appointment belongs to another client")
	}
	return s.reschedules.ListByAppointment(ctx, appointmentID)
}

// ApproveReschedule re-checks the requested slot at approval time; it may
// have been taken since the request was made. On conflict both the request
// and the appointment are left unchanged.
func (s *Service) ApproveReschedule(ctx context.Context, actor model.Actor, requestID uuid.UUID) (*model.Appointment, error) {
	if !actor.IsStaff() {
		return nil, apperrors.Forbidden("only staff may approve reschedules")
	}

	request, err := s.reschedules.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.Status != model.RescheduleStatusPending {
		return nil, apperrors.Conflict(fmt.Sprintf("reschedule request is already %s", request.Status), nil)
	}

	apt, err := s.repo.Get(ctx, request.AppointmentID)
	if err != nil {
		return nil, err
	}
	if apt.Status.Terminal() {
		return nil, apperrors.Conflict(fmt.Sprintf("appointment is already %s", apt.Status), nil)
	}

	if err := s.repo.Move(ctx, apt.ID, request.NewScheduledAt, model.AppointmentStatusConfirmed); err != nil {
		return nil, err
	}

	request.Status = model.RescheduleStatusApproved
	if err := s.reschedules.Update(ctx, request); err != nil {
		return nil, err
	}

	apt.ScheduledAt = request.NewScheduledAt
	apt.Status = model.AppointmentStatusConfirmed
	s.notify(ctx, model.EventRescheduleApproved, apt, "")
	return apt, nil
}

func (s *Service) RejectReschedule(ctx context.Context, actor model.Actor, requestID uuid.UUID, reason string) (*model.RescheduleRequest, error) {
	if !actor.IsStaff() {
		return nil, apperrors.Forbidden("only staff may reject reschedules")
	}

	request, err := s.reschedules.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.Status != model.RescheduleStatusPending {
		return nil, apperrors.Conflict(fmt.Sprintf("reschedule request is already %s", request.Status), nil)
	}

	request.Status = model.RescheduleStatusRejected
	request.RejectionReason = reason
	if err := s.reschedules.Update(ctx, request); err != nil {
		return nil, err
	}

	apt, err := s.repo.Get(ctx, request.AppointmentID)
	if err == nil {
		s.notify(ctx, model.EventRescheduleRejected, apt, reason)
	}
	return request, nil
}

// ForceReschedule moves the appointment immediately, without the
// request/approval cycle. The client is always notified.
func (s *Service) ForceReschedule(ctx context.Context, actor model.Actor, id uuid.UUID, req *model.ForceRescheduleRequest) (*model.Appointment, error) {
	if !actor.IsStaff() {
		return nil, apperrors.Forbidden("only staff may force-reschedule")
	}

	apt, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if apt.Status.Terminal() {
		return nil, apperrors.Conflict(fmt.Sprintf("appointment is already %s", apt.Status), nil)
	}

	if err := s.repo.Move(ctx, id, req.NewScheduledAt, apt.Status); err != nil {
		return nil, err
	}
	apt.ScheduledAt = req.NewScheduledAt

	s.notify(ctx, model.EventAppointmentForceMoved, apt, req.Reason)
	return apt, nil
}

func (s *Service) bookWithRetry(ctx context.Context, apt *model.Appointment) error {
	var err error
	for attempt := 0; attempt < bookingRetries; attempt++ {
		err = s.repo.Book(ctx, apt)
		if err == nil {
			return nil
		}
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			// Domain error (conflict, validation): retrying cannot help.
			return err
		}
		time.Sleep(bookingRetryDelay * time.Duration(attempt+1))
	}
	return apperrors.Internal(err)
}

func (s *Service) notify(ctx context.Context, eventType string, apt *model.Appointment, message string) {
	s.notifyFee(ctx, eventType, apt, false, message)
}

func (s *Service) notifyFee(ctx context.Context, eventType string, apt *model.Appointment, hasFee bool, message string) {
	event := model.AppointmentEvent{
		AppointmentID: apt.ID,
		DoctorID:      apt.DoctorID,
		ClientID:      apt.ClientID,
		ScheduledAt:   apt.ScheduledAt,
		HasFee:        hasFee,
		Message:       message,
	}
	if err := s.notifier.Enqueue(ctx, eventType, event); err != nil {
		log.Error().Err(err).
			Str("event_type", eventType).
			Str("appointment_id", apt.ID.String()).
			Msg("failed to enqueue notification")
	}
}

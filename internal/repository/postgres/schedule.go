package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/petclinic-api/internal/model"
	apperrors "github.com/jwalitptl/petclinic-api/pkg/errors"
)

const workingHoursColumns = `
	id, doctor_id, day_of_week, start_time, end_time, is_active,
	created_at, updated_at
`

func (r *workingHoursRepository) Upsert(ctx context.Context, hours *model.WorkingHours) error {
	// One active row per (doctor, day): the previous row for the same day is
	// replaced, not duplicated.
	query := `
		INSERT INTO working_hours (` + workingHoursColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (doctor_id, day_of_week)
		DO UPDATE SET start_time = $4, end_time = $5, is_active = $6, updated_at = $8
	`
	if hours.ID == uuid.Nil {
		hours.ID = uuid.New()
	}
	now := time.Now()
	if hours.CreatedAt.IsZero() {
		hours.CreatedAt = now
	}
	hours.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, query,
		hours.ID,
		hours.DoctorID,
		hours.DayOfWeek,
		hours.StartTime,
		hours.EndTime,
		hours.IsActive,
		hours.CreatedAt,
		hours.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert working hours: %w", err)
	}
	return nil
}

func (r *workingHoursRepository) ListActive(ctx context.Context, doctorID uuid.UUID) ([]*model.WorkingHours, error) {
	query := `
		SELECT ` + workingHoursColumns + `
		FROM working_hours
		WHERE doctor_id = $1 AND is_active = true
		ORDER BY day_of_week ASC
	`
	var hours []*model.WorkingHours
	err := r.db.SelectContext(ctx, &hours, query, doctorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list working hours: %w", err)
	}
	return hours, nil
}

func (r *workingHoursRepository) DeactivateAll(ctx context.Context, doctorID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE working_hours
		SET is_active = false, updated_at = $1
		WHERE doctor_id = $2
	`, time.Now(), doctorID)
	if err != nil {
		return fmt.Errorf("failed to deactivate working hours: %w", err)
	}
	return nil
}

const overrideColumns = `
	id, doctor_id, date, start_time, end_time, is_recurring, repeat_pattern,
	status, requested_by, approved_by, notes, created_at, updated_at
`

func (r *scheduleOverrideRepository) Create(ctx context.Context, override *model.ScheduleOverride) error {
	query := `
		INSERT INTO schedule_overrides (` + overrideColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	override.ID = uuid.New()
	override.CreatedAt = time.Now()
	override.UpdatedAt = override.CreatedAt

	_, err := r.db.ExecContext(ctx, query,
		override.ID,
		override.DoctorID,
		override.Date,
		override.StartTime,
		override.EndTime,
		override.IsRecurring,
		override.RepeatPattern,
		override.Status,
		override.RequestedBy,
		override.ApprovedBy,
		override.Notes,
		override.CreatedAt,
		override.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create schedule override: %w", err)
	}
	return nil
}

func (r *scheduleOverrideRepository) Get(ctx context.Context, id uuid.UUID) (*model.ScheduleOverride, error) {
	query := `SELECT ` + overrideColumns + ` FROM schedule_overrides WHERE id = $1`

	var override model.ScheduleOverride
	err := r.db.GetContext(ctx, &override, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("schedule", err)
		}
		return nil, fmt.Errorf("failed to get schedule override: %w", err)
	}
	return &override, nil
}

func (r *scheduleOverrideRepository) Update(ctx context.Context, override *model.ScheduleOverride) error {
	override.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, `
		UPDATE schedule_overrides
		SET date = $1, start_time = $2, end_time = $3, status = $4,
			approved_by = $5, notes = $6, updated_at = $7
		WHERE id = $8
	`,
		override.Date,
		override.StartTime,
		override.EndTime,
		override.Status,
		override.ApprovedBy,
		override.Notes,
		override.UpdatedAt,
		override.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update schedule override: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("schedule", nil)
	}
	return nil
}

func (r *scheduleOverrideRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM schedule_overrides WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete schedule override: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("schedule", nil)
	}
	return nil
}

func (r *scheduleOverrideRepository) ListApprovedInRange(ctx context.Context, doctorID uuid.UUID, start, end model.Date) ([]*model.ScheduleOverride, error) {
	query := `
		SELECT ` + overrideColumns + `
		FROM schedule_overrides
		WHERE doctor_id = $1
		AND status = 'approved'
		AND date >= $2 AND date <= $3
		ORDER BY date ASC
	`
	var overrides []*model.ScheduleOverride
	err := r.db.SelectContext(ctx, &overrides, query, doctorID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to list schedule overrides: %w", err)
	}
	return overrides, nil
}

func (r *scheduleOverrideRepository) RejectAllPending(ctx context.Context, doctorID, adminID uuid.UUID, note string) error {
	// Notes are JSONB; the rejection annotation is appended, never
	// concatenated into existing text.
	annotation := model.ScheduleNotes{{
		Author:    adminID,
		Timestamp: time.Now(),
		Text:      note,
	}}

	_, err := r.db.ExecContext(ctx, `
		UPDATE schedule_overrides
		SET status = 'rejected', approved_by = $1,
			notes = notes || $2::jsonb, updated_at = $3
		WHERE doctor_id = $4 AND status = 'pending'
	`, adminID, annotation, time.Now(), doctorID)
	if err != nil {
		return fmt.Errorf("failed to reject pending schedule overrides: %w", err)
	}
	return nil
}

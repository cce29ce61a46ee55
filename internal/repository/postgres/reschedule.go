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

const rescheduleColumns = `
	id, appointment_id, old_scheduled_at, new_scheduled_at, client_note,
	status, requested_at, rejection_reason, created_at, updated_at
`

func (r *rescheduleRepository) Create(ctx context.Context, req *model.RescheduleRequest) error {
	query := `
		INSERT INTO reschedule_requests (` + rescheduleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	req.ID = uuid.New()
	req.CreatedAt = time.Now()
	req.UpdatedAt = req.CreatedAt

	_, err := r.db.ExecContext(ctx, query,
		req.ID,
		req.AppointmentID,
		req.OldScheduledAt,
		req.NewScheduledAt,
		req.ClientNote,
		req.Status,
		req.RequestedAt,
		req.RejectionReason,
		req.CreatedAt,
		req.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create reschedule request: %w", err)
	}
	return nil
}

func (r *rescheduleRepository) Get(ctx context.Context, id uuid.UUID) (*model.RescheduleRequest, error) {
	query := `SELECT ` + rescheduleColumns + ` FROM reschedule_requests WHERE id = $1`

	var req model.RescheduleRequest
	err := r.db.GetContext(ctx, &req, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("reschedule request", err)
		}
		return nil, fmt.Errorf("failed to get reschedule request: %w", err)
	}
	return &req, nil
}

func (r *rescheduleRepository) Update(ctx context.Context, req *model.RescheduleRequest) error {
	req.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, `
		UPDATE reschedule_requests
		SET status = $1, rejection_reason = $2, updated_at = $3
		WHERE id = $4
	`, req.Status, req.RejectionReason, req.UpdatedAt, req.ID)
	if err != nil {
		return fmt.Errorf("failed to update reschedule request: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("reschedule request", nil)
	}
	return nil
}

func (r *rescheduleRepository) ListByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]*model.RescheduleRequest, error) {
	query := `
		SELECT ` + rescheduleColumns + `
		FROM reschedule_requests
		WHERE appointment_id = $1
		ORDER BY requested_at DESC
	`
	var reqs []*model.RescheduleRequest
	err := r.db.SelectContext(ctx, &reqs, query, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reschedule requests: %w", err)
	}
	return reqs, nil
}

func (r *rescheduleRepository) GetPendingByAppointment(ctx context.Context, appointmentID uuid.UUID) (*model.RescheduleRequest, error) {
	query := `
		SELECT ` + rescheduleColumns + `
		FROM reschedule_requests
		WHERE appointment_id = $1 AND status = 'pending'
	`
	var req model.RescheduleRequest
	err := r.db.GetContext(ctx, &req, query, appointmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get pending reschedule request: %w", err)
	}
	return &req, nil
}

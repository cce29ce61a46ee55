package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/petclinic-api/internal/model"
	apperrors "github.com/jwalitptl/petclinic-api/pkg/errors"
)

// Half-open interval overlap: [a0,a1) and [b0,b1) intersect iff a0 < b1 and
// b0 < a1. Back-to-back appointments therefore never conflict.
const overlapClause = `
	scheduled_at < $3
	AND scheduled_at + duration_minutes * interval '1 minute' > $2
`

const appointmentColumns = `
	id, pet_id, doctor_id, client_id, scheduled_at, duration_minutes,
	status, reason, location, services, created_by, notes,
	created_at, updated_at
`

func (r *appointmentRepository) Book(ctx context.Context, appointment *model.Appointment) error {
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		// Serialize concurrent bookings per doctor. A unique index on
		// (doctor_id, scheduled_at) would miss partial overlaps between
		// appointments of different durations.
		if err := acquireDoctorLock(ctx, tx, appointment.DoctorID); err != nil {
			return err
		}

		taken, err := hasOverlapTx(ctx, tx, appointment.DoctorID,
			appointment.ScheduledAt, appointment.EndTime(), nil)
		if err != nil {
			return err
		}
		if taken {
			return apperrors.Conflict("time slot is not available", nil)
		}

		query := `
			INSERT INTO appointments (` + appointmentColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		`
		appointment.ID = uuid.New()
		appointment.CreatedAt = time.Now()
		appointment.UpdatedAt = appointment.CreatedAt

		_, err = tx.ExecContext(ctx, query,
			appointment.ID,
			appointment.PetID,
			appointment.DoctorID,
			appointment.ClientID,
			appointment.ScheduledAt,
			appointment.DurationMinutes,
			appointment.Status,
			appointment.Reason,
			appointment.Location,
			appointment.Services,
			appointment.CreatedBy,
			appointment.Notes,
			appointment.CreatedAt,
			appointment.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create appointment: %w", err)
		}
		return nil
	})
}

func (r *appointmentRepository) Move(ctx context.Context, id uuid.UUID, newScheduledAt time.Time, status model.AppointmentStatus) error {
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var apt model.Appointment
		query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1 FOR UPDATE`
		if err := tx.GetContext(ctx, &apt, query, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperrors.NotFound("appointment", err)
			}
			return fmt.Errorf("failed to get appointment: %w", err)
		}

		if err := acquireDoctorLock(ctx, tx, apt.DoctorID); err != nil {
			return err
		}

		newEnd := newScheduledAt.Add(apt.Duration())
		taken, err := hasOverlapTx(ctx, tx, apt.DoctorID, newScheduledAt, newEnd, &id)
		if err != nil {
			return err
		}
		if taken {
			return apperrors.Conflict("new time slot is not available", nil)
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE appointments
			SET scheduled_at = $1, status = $2, updated_at = $3
			WHERE id = $4
		`, newScheduledAt, status, time.Now(), id)
		if err != nil {
			return fmt.Errorf("failed to move appointment: %w", err)
		}
		return nil
	})
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`

	var appointment model.Appointment
	err := r.db.GetContext(ctx, &appointment, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("appointment", err)
		}
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return &appointment, nil
}

func (r *appointmentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.AppointmentStatus) error {
	return updateStatusCAS(ctx, r.db, id, from, to)
}

func (r *appointmentRepository) Cancel(ctx context.Context, id uuid.UUID, from, to model.AppointmentStatus, penalty *model.Penalty) error {
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := updateStatusCAS(ctx, tx, id, from, to); err != nil {
			return err
		}
		if penalty == nil {
			return nil
		}
		return insertPenalty(ctx, tx, penalty)
	})
}

func (r *appointmentRepository) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE 1=1`
	args := []interface{}{}
	argCount := 1

	if filters.DoctorID != uuid.Nil {
		query += fmt.Sprintf(" AND doctor_id = $%d", argCount)
		args = append(args, filters.DoctorID)
		argCount++
	}
	if filters.ClientID != uuid.Nil {
		query += fmt.Sprintf(" AND client_id = $%d", argCount)
		args = append(args, filters.ClientID)
		argCount++
	}
	if filters.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argCount)
		args = append(args, filters.Status)
		argCount++
	}
	if !filters.From.IsZero() {
		query += fmt.Sprintf(" AND scheduled_at >= $%d", argCount)
		args = append(args, filters.From)
		argCount++
	}
	if !filters.To.IsZero() {
		query += fmt.Sprintf(" AND scheduled_at < $%d", argCount)
		args = append(args, filters.To)
		argCount++
	}

	query += " ORDER BY scheduled_at ASC"

	var appointments []*model.Appointment
	err := r.db.SelectContext(ctx, &appointments, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) ListActiveInRange(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]*model.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE doctor_id = $1
		AND status NOT IN ('cancelled', 'cancelled_late', 'completed')
		AND ` + overlapClause + `
		ORDER BY scheduled_at ASC
	`
	var appointments []*model.Appointment
	err := r.db.SelectContext(ctx, &appointments, query, doctorID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list doctor appointments: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) HasOverlap(ctx context.Context, doctorID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (bool, error) {
	return hasOverlap(ctx, r.db, doctorID, start, end, excludeID)
}

func (r *appointmentRepository) ListExpired(ctx context.Context, now time.Time) ([]*model.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE status IN ('proposed', 'confirmed')
		AND scheduled_at < $1
		ORDER BY scheduled_at ASC
	`
	var appointments []*model.Appointment
	err := r.db.SelectContext(ctx, &appointments, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired appointments: %w", err)
	}
	return appointments, nil
}

type queryer interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

type execQueryer interface {
	queryer
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// updateStatusCAS writes the status only if the row still holds the status
// the caller observed. Zero rows affected means either the appointment is
// gone or another transition won the race.
func updateStatusCAS(ctx context.Context, q execQueryer, id uuid.UUID, from, to model.AppointmentStatus) error {
	result, err := q.ExecContext(ctx, `
		UPDATE appointments
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
	`, to, time.Now(), id, from)
	if err != nil {
		return fmt.Errorf("failed to update appointment status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 1 {
		return nil
	}

	var exists bool
	if err := q.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM appointments WHERE id = $1)`, id); err != nil {
		return fmt.Errorf("failed to check appointment existence: %w", err)
	}
	if !exists {
		return apperrors.NotFound("appointment", nil)
	}
	return apperrors.Conflict(fmt.Sprintf("appointment is no longer %s", from), nil)
}

func hasOverlap(ctx context.Context, q queryer, doctorID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE doctor_id = $1
			AND status NOT IN ('cancelled', 'cancelled_late', 'completed')
			AND ` + overlapClause
	args := []interface{}{doctorID, start, end}

	if excludeID != nil {
		query += " AND id != $4"
		args = append(args, *excludeID)
	}
	query += ")"

	var exists bool
	if err := q.GetContext(ctx, &exists, query, args...); err != nil {
		return false, fmt.Errorf("failed to check overlap: %w", err)
	}
	return exists, nil
}

func hasOverlapTx(ctx context.Context, tx *sqlx.Tx, doctorID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (bool, error) {
	return hasOverlap(ctx, tx, doctorID, start, end, excludeID)
}

// acquireDoctorLock takes a transaction-scoped advisory lock keyed on the
// doctor, so check-then-insert is atomic across concurrent bookings.
func acquireDoctorLock(ctx context.Context, tx *sqlx.Tx, doctorID uuid.UUID) error {
	if _, err := tx.ExecContext(ctx,
		`SELECT pg_advisory_xact_lock(hashtext($1))`, doctorID.String()); err != nil {
		return fmt.Errorf("failed to lock doctor booking window: %w", err)
	}
	return nil
}

func withTx(ctx context.Context, db *sqlx.DB, fn func(*sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

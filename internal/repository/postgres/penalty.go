package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/petclinic-api/internal/model"
)

// insertPenalty writes a penalty row inside the caller's transaction, so a
// late cancellation and its fee commit together.
func insertPenalty(ctx context.Context, e execQueryer, penalty *model.Penalty) error {
	query := `
		INSERT INTO penalties (
			id, client_id, appointment_id, amount, reason, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	penalty.ID = uuid.New()
	penalty.CreatedAt = time.Now()
	penalty.UpdatedAt = penalty.CreatedAt

	_, err := e.ExecContext(ctx, query,
		penalty.ID,
		penalty.ClientID,
		penalty.AppointmentID,
		penalty.Amount,
		penalty.Reason,
		penalty.CreatedAt,
		penalty.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create penalty: %w", err)
	}
	return nil
}

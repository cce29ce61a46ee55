package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	apperrors "github.com/jwalitptl/petclinic-api/pkg/errors"
)

// Pet and client records belong to the CRM/identity services; this repository
// only reads the columns the scheduler needs.

func (r *directoryRepository) PetOwner(ctx context.Context, petID uuid.UUID) (uuid.UUID, error) {
	var ownerID uuid.UUID
	err := r.db.GetContext(ctx, &ownerID, `SELECT owner_id FROM pets WHERE id = $1`, petID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return uuid.Nil, apperrors.NotFound("pet", err)
		}
		return uuid.Nil, fmt.Errorf("failed to look up pet owner: %w", err)
	}
	return ownerID, nil
}

func (r *directoryRepository) ClientEmail(ctx context.Context, clientID uuid.UUID) (string, error) {
	var email string
	err := r.db.GetContext(ctx, &email, `SELECT email FROM users WHERE id = $1`, clientID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", apperrors.NotFound("client", err)
		}
		return "", fmt.Errorf("failed to look up client email: %w", err)
	}
	return email, nil
}

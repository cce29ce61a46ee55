package model

import "github.com/google/uuid"

// Penalty records a late-cancellation fee. Collection is handled by the
// billing service; only the record is created here.
type Penalty struct {
	Base
	ClientID      uuid.UUID `db:"client_id" json:"client_id"`
	AppointmentID uuid.UUID `db:"appointment_id" json:"appointment_id"`
	Amount        float64   `db:"amount" json:"amount"`
	Reason        string    `db:"reason" json:"reason"`
}

package model

import "github.com/google/uuid"

type Role string

const (
	RoleAdmin        Role = "admin"
	RoleReceptionist Role = "receptionist"
	RoleDoctor       Role = "doctor"
	RoleClient       Role = "client"
)

// Actor is the authenticated caller, as asserted by the identity service.
type Actor struct {
	ID   uuid.UUID `json:"id"`
	Role Role      `json:"role"`
}

// IsStaff reports whether the actor may act on behalf of the clinic.
func (a Actor) IsStaff() bool {
	return a.Role == RoleAdmin || a.Role == RoleReceptionist || a.Role == RoleDoctor
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

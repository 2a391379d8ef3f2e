package identity

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RolePatient Role = "PATIENT"
	RoleDoctor  Role = "DOCTOR"
	RoleStaff   Role = "STAFF"
	RoleAdmin   Role = "ADMIN"
)

// ParseRole validates a role string supplied by tokens or seeds.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RolePatient, RoleDoctor, RoleStaff, RoleAdmin:
		return Role(s), true
	default:
		return "", false
	}
}

// Actor is the authenticated identity performing an operation. Roles are
// disjoint and fixed at account creation; every scheduling operation receives
// the actor as context rather than re-resolving it.
type Actor struct {
	ID   uuid.UUID
	Role Role
}

type User struct {
	ID        uuid.UUID
	Name      string
	Email     *string
	Role      Role
	CreatedAt time.Time
	UpdatedAt time.Time
}

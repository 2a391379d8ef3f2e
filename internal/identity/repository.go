package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrUserNotFound = errors.New("user not found")

// Repository resolves user identities. The scheduling core uses it to
// validate staff-supplied patient ids and doctor ids.
type Repository interface {
	FindUser(ctx context.Context, id uuid.UUID) (*User, error)
}

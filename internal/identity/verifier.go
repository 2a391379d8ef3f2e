package identity

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrInvalidToken    = errors.New("invalid token")
)

// Verifier checks bearer tokens issued by the identity collaborator and
// extracts the acting identity. Token issuance lives outside this service;
// only the HS256 secret is shared.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

type actorClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// ResolveActor parses and validates a token, returning the actor it names.
func (v *Verifier) ResolveActor(token string) (Actor, error) {
	if token == "" {
		return Actor{}, ErrUnauthenticated
	}

	var claims actorClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return v.secret, nil
	})
	if err != nil || !parsed.Valid {
		return Actor{}, ErrInvalidToken
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Actor{}, ErrInvalidToken
	}

	role, ok := ParseRole(claims.Role)
	if !ok {
		return Actor{}, ErrInvalidToken
	}

	return Actor{ID: id, Role: role}, nil
}

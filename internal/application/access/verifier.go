package access

import (
	"strings"

	jwtinfra "github.com/campusxchange/swapkr/internal/infrastructure/jwt"
)

type tokenVerifier interface {
	Verify(token string) (*jwtinfra.Claims, error)
}

// Verifier turns a bearer token into a Principal. It fails open: a missing
// or invalid token yields Guest, never an error.
type Verifier struct {
	tokens tokenVerifier
}

func NewVerifier(tokens tokenVerifier) *Verifier {
	return &Verifier{tokens: tokens}
}

func (v *Verifier) Verify(token string) Principal {
	token = strings.TrimSpace(token)
	if token == "" || v == nil || v.tokens == nil {
		return Guest{}
	}
	claims, err := v.tokens.Verify(token)
	if err != nil {
		return Guest{}
	}
	id := Identity{
		UserID: claims.UserID,
		Email:  strings.ToLower(claims.Subject),
	}
	if claims.IssuedAt != nil {
		id.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time
	}
	return Authenticated{Identity: id}
}

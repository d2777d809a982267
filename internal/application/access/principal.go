package access

import "time"

// Principal is the caller of an operation: either Guest or Authenticated.
// The set is closed; callers type-switch on it.
type Principal interface {
	principal()
}

// Guest is an anonymous caller, including one whose token failed to verify.
type Guest struct{}

// Authenticated is a caller whose bearer token was verified.
type Authenticated struct {
	Identity Identity
}

func (Guest) principal()         {}
func (Authenticated) principal() {}

// Identity is the decoded token content, valid for a single request.
type Identity struct {
	UserID    string
	Email     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// IdentityOf returns the identity behind p, if any.
func IdentityOf(p Principal) (Identity, bool) {
	if a, ok := p.(Authenticated); ok {
		return a.Identity, true
	}
	return Identity{}, false
}

package access

import (
	"fmt"
	"strings"

	"github.com/campusxchange/swapkr/internal/domain"
)

// AdminRequiredMessage is the client-visible text of an admin gate refusal.
const AdminRequiredMessage = "Admin access required"

// Policy is the admin allowlist. It is built once at startup and never
// mutated, so it is safe for concurrent use without locking.
type Policy struct {
	admins map[string]struct{}
}

func NewPolicy(emails []string) *Policy {
	p := &Policy{admins: make(map[string]struct{}, len(emails))}
	for _, e := range emails {
		if n := normalize(e); n != "" {
			p.admins[n] = struct{}{}
		}
	}
	return p
}

// IsAdmin reports whether email is on the allowlist, ignoring case.
func (p *Policy) IsAdmin(email string) bool {
	if p == nil {
		return false
	}
	n := normalize(email)
	if n == "" {
		return false
	}
	_, ok := p.admins[n]
	return ok
}

// IsAdminPrincipal reports whether p is an authenticated admin.
func (p *Policy) IsAdminPrincipal(pr Principal) bool {
	id, ok := IdentityOf(pr)
	return ok && p.IsAdmin(id.Email)
}

// Enforce fails with domain.ErrForbidden unless pr is an authenticated admin.
func (p *Policy) Enforce(pr Principal) error {
	if !p.IsAdminPrincipal(pr) {
		return fmt.Errorf("%s: %w", AdminRequiredMessage, domain.ErrForbidden)
	}
	return nil
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

package middleware

import (
	"net/http"

	"github.com/campusxchange/swapkr/internal/application/access"
)

// RequireAdmin lets only allowlisted callers through. Guests and ordinary
// users both get 403, since the gate is about the caller's email rather
// than their session.
func RequireAdmin(policy *access.Policy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !policy.IsAdminPrincipal(PrincipalFromContext(r.Context())) {
				writeJSONError(w, http.StatusForbidden, access.AdminRequiredMessage)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

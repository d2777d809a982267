package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/campusxchange/swapkr/internal/application/access"
)

type contextKey string

const PrincipalKey contextKey = "principal"

// Authenticate resolves the Bearer token into a principal and stores it in
// the request context. It never rejects: a missing or bad token is a Guest.
func Authenticate(v *access.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := v.Verify(bearerToken(r))
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

// RequireUser answers 401 to guests.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := access.IdentityOf(PrincipalFromContext(r.Context())); !ok {
			writeJSONError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p access.Principal) context.Context {
	return context.WithValue(ctx, PrincipalKey, p)
}

// PrincipalFromContext returns the caller, or Guest when none was stored.
func PrincipalFromContext(ctx context.Context) access.Principal {
	if p, ok := ctx.Value(PrincipalKey).(access.Principal); ok && p != nil {
		return p
	}
	return access.Guest{}
}

func bearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

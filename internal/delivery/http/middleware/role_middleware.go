package middleware

import (
	"net/http"

	"clinic-scheduling/internal/domain/access"
	"clinic-scheduling/pkg/response"
)

// RequireRole creates a middleware that lets through the listed roles.
// Admin always passes, matching access.Authorize.
func RequireRole(roles ...access.Role) func(http.Handler) http.Handler {
	rule := access.Rule{}
	for _, role := range roles {
		rule[role] = access.ScopeAny
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				response.Unauthorized(w, "Role information not found")
				return
			}

			if access.Authorize(principal.Role, rule, false) == access.Denied {
				response.Forbidden(w, "You don't have permission to access this resource")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin is a convenience middleware for admin-only endpoints
func RequireAdmin(next http.Handler) http.Handler {
	return RequireRole()(next)
}

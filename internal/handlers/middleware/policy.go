package middleware

import (
	"net/http"
	"slices"

	"github.com/nkiryanov/bookstore/internal/handlers/principal"
	"github.com/nkiryanov/bookstore/internal/handlers/render"
	"github.com/nkiryanov/bookstore/internal/models"
)

// RequireAuthenticated rejects anonymous requests with 401
func RequireAuthenticated() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := principal.FromContext(r.Context()); !ok {
				render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRoles lets through principals with one of the roles
// Anonymous gets 401, other roles 403
func RequireRoles(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := principal.FromContext(r.Context())
			switch {
			case !ok:
				render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
			case !slices.Contains(roles, p.Role):
				render.ServiceError(w, "Forbidden", http.StatusForbidden)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

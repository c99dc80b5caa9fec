package middleware

import (
	"net/http"

	"github.com/nkiryanov/bookstore/internal/handlers/principal"
	"github.com/nkiryanov/bookstore/internal/handlers/render"
	"github.com/nkiryanov/bookstore/internal/models"
)

// Authorize turns verified claims into request principal
// Must run right after Authenticate. Anonymous requests pass through
func Authorize(l authLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := principal.ClaimsFromContext(r.Context())
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			role, err := models.ParseRole(claims.Role)
			if err != nil || !role.Granted() {
				l.Info("Role rejected", "uri", r.RequestURI, "user_id", claims.UserID, "role", claims.Role)
				render.ServiceError(w, "Forbidden", http.StatusForbidden)
				return
			}

			ctx := principal.New(r.Context(), principal.Principal{
				UserID:  claims.UserID,
				TokenID: claims.ID,
				Role:    role,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

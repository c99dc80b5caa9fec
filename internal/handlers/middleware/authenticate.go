package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/nkiryanov/bookstore/internal/apperrors"
	"github.com/nkiryanov/bookstore/internal/handlers/principal"
	"github.com/nkiryanov/bookstore/internal/handlers/render"
	"github.com/nkiryanov/bookstore/internal/models"
)

const bearerPrefix = "Bearer "

type authenticator interface {
	// Has to return apperrors.ErrTokenInvalid or apperrors.ErrTokenRevoked if token can't be trusted
	Authenticate(ctx context.Context, accessToken string) (models.TokenClaims, error)
}

type authLogger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// Extract bearer token from Authorization header
// Empty string means no token: other scheme, missing header or empty value
func bearerToken(r *http.Request) string {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), bearerPrefix)
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}

// Authenticate verifies access token if request has one and puts its claims to request context
// Requests without token pass through as anonymous
func Authenticate(a authenticator, l authLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := a.Authenticate(r.Context(), token)
			switch {
			case errors.Is(err, apperrors.ErrTokenInvalid), errors.Is(err, apperrors.ErrTokenRevoked):
				l.Info("Token rejected", "uri", r.RequestURI, "error", err)
				render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
				return
			case err != nil:
				l.Error("Token check failed", "uri", r.RequestURI, "error", err)
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
				return
			}

			ctx := principal.WithClaims(r.Context(), claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

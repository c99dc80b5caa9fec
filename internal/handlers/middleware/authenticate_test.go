package middleware

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/bookstore/internal/apperrors"
	"github.com/nkiryanov/bookstore/internal/handlers/principal"
	"github.com/nkiryanov/bookstore/internal/logger"
	"github.com/nkiryanov/bookstore/internal/models"
)

// Allow to use a function as authenticator
type authFunc func(ctx context.Context, token string) (models.TokenClaims, error)

func (f authFunc) Authenticate(ctx context.Context, token string) (models.TokenClaims, error) {
	return f(ctx, token)
}

// Serve request with optional Authorization header and return status and body
func doRequest(t *testing.T, h http.Handler, authorization string) (int, string) {
	t.Helper()

	req := httptest.NewRequestWithContext(t.Context(), http.MethodGet, "/test", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err, "should read response body")

	return rec.Code, string(body)
}

func TestAuthenticate(t *testing.T) {
	tokenID := uuid.New()

	// Write user id from claims or 'anonymous'
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := principal.ClaimsFromContext(r.Context())
		if !ok {
			_, _ = w.Write([]byte("anonymous"))
			return
		}
		_, _ = fmt.Fprintf(w, "%d", claims.UserID)
	})

	// Accepts "good" token only
	var calls int
	auth := authFunc(func(ctx context.Context, token string) (models.TokenClaims, error) {
		calls++
		switch token {
		case "good":
			return models.TokenClaims{ID: tokenID, UserID: 42, Role: "ADMIN"}, nil
		case "revoked":
			return models.TokenClaims{}, fmt.Errorf("access token: %w", apperrors.ErrTokenRevoked)
		case "db-down":
			return models.TokenClaims{}, errors.New("connection refused")
		default:
			return models.TokenClaims{}, fmt.Errorf("%w: token is expired", apperrors.ErrTokenInvalid)
		}
	})

	srv := Authenticate(auth, logger.NewNoOpLogger())(handler)

	t.Run("valid token", func(t *testing.T) {
		status, body := doRequest(t, srv, "Bearer good")

		require.Equal(t, http.StatusOK, status)
		require.Equal(t, "42", body)
	})

	anonymous := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"other scheme", "Basic dXNlcjpwYXNz"},
		{"empty bearer", "Bearer "},
		{"blank bearer", "Bearer    "},
		{"no space after scheme", "Bearergood"},
	}
	for _, tt := range anonymous {
		t.Run(tt.name+" is anonymous", func(t *testing.T) {
			calls = 0

			status, body := doRequest(t, srv, tt.header)

			require.Equal(t, http.StatusOK, status)
			require.Equal(t, "anonymous", body)
			require.Zero(t, calls, "token must not be checked")
		})
	}

	rejected := []struct {
		name   string
		header string
	}{
		{"invalid token", "Bearer forged"},
		{"revoked token", "Bearer revoked"},
	}
	for _, tt := range rejected {
		t.Run(tt.name, func(t *testing.T) {
			status, body := doRequest(t, srv, tt.header)

			require.Equal(t, http.StatusUnauthorized, status)
			require.JSONEq(t, `{"error": "service_error", "message": "Unauthorized"}`, body, "reason must not leak")
		})
	}

	t.Run("authenticator failure", func(t *testing.T) {
		status, body := doRequest(t, srv, "Bearer db-down")

		require.Equal(t, http.StatusInternalServerError, status)
		require.JSONEq(t, `{"error": "service_error", "message": "Internal server error"}`, body)
	})
}

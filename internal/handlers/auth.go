package handlers

import (
	"errors"
	"net/http"

	"github.com/nkiryanov/bookstore/internal/apperrors"
	"github.com/nkiryanov/bookstore/internal/handlers/principal"
	"github.com/nkiryanov/bookstore/internal/handlers/render"
	"github.com/nkiryanov/bookstore/internal/logger"
	"github.com/nkiryanov/bookstore/internal/models"
)

const maxBodySize = 1 << 16

type sessionResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	UserID       int64  `json:"userId"`
}

func newSessionResponse(s models.Session) sessionResponse {
	return sessionResponse{
		AccessToken:  s.Access.Value,
		RefreshToken: s.Refresh.Value,
		UserID:       s.UserID,
	}
}

func handleLogin(authService authService, l logger.Logger) http.Handler {
	type request struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		session, err := authService.Login(r.Context(), data.Username, data.Password)
		switch {
		case errors.Is(err, apperrors.ErrInvalidCredentials):
			render.ServiceError(w, "Invalid username or password.", http.StatusUnauthorized)
			return
		case err != nil:
			l.Error("Login failed", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		render.JSON(w, newSessionResponse(session))
	})
}

func handleRefresh(authService authService, l logger.Logger) http.Handler {
	type request struct {
		RefreshToken string `json:"refreshToken" validate:"required"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		session, err := authService.Refresh(r.Context(), data.RefreshToken)
		switch {
		case errors.Is(err, apperrors.ErrTokenInvalid), errors.Is(err, apperrors.ErrTokenRevoked):
			l.Info("Refresh rejected", "error", err)
			render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
			return
		case err != nil:
			l.Error("Refresh failed", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		render.JSON(w, newSessionResponse(session))
	})
}

func handleLogout(authService authService, l logger.Logger) http.Handler {
	type response struct {
		Message string `json:"message"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Route policy guarantees principal
		p, _ := principal.FromContext(r.Context())

		err := authService.Logout(r.Context(), p.TokenID)
		switch {
		// Not strict mode: token record may be gone already
		case errors.Is(err, apperrors.ErrTokenNotFound):
		case err != nil:
			l.Error("Logout failed", "user_id", p.UserID, "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		render.JSON(w, response{Message: "Logged out"})
	})
}

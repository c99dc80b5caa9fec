package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/bookstore/internal/apperrors"
	"github.com/nkiryanov/bookstore/internal/handlers/principal"
	"github.com/nkiryanov/bookstore/internal/handlers/render"
	"github.com/nkiryanov/bookstore/internal/logger"
	"github.com/nkiryanov/bookstore/internal/service/user"
)

func handleCreateUser(userService userService, l logger.Logger) http.Handler {
	type request struct {
		Username  string `json:"username" validate:"required,min=2,max=50"`
		Email     string `json:"email" validate:"required,email"`
		FirstName string `json:"firstName" validate:"max=100"`
		LastName  string `json:"lastName" validate:"max=100"`
		Password  string `json:"password" validate:"required,min=8"`
		Role      string `json:"role" validate:"required,oneof=ADMIN FINANCE EMPLOYEE"`
	}
	type response struct {
		ID        int64     `json:"id"`
		Username  string    `json:"username"`
		Email     string    `json:"email"`
		FirstName string    `json:"firstName"`
		LastName  string    `json:"lastName"`
		Role      string    `json:"role"`
		CreatedAt time.Time `json:"createdAt"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		u, err := userService.CreateUser(r.Context(), user.NewUser{
			Username:  data.Username,
			Email:     data.Email,
			FirstName: data.FirstName,
			LastName:  data.LastName,
			Role:      data.Role,
			Password:  data.Password,
		})
		switch {
		case errors.Is(err, apperrors.ErrUserAlreadyExists):
			render.ServiceError(w, "User already exists", http.StatusConflict)
			return
		case errors.Is(err, apperrors.ErrRoleUnknown):
			render.ServiceError(w, "Unknown role", http.StatusBadRequest)
			return
		case err != nil:
			l.Error("User creation failed", "username", data.Username, "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		admin, _ := principal.FromContext(r.Context())
		l.Info("User created", "user_id", u.ID, "role", u.Role, "by", admin.UserID)

		render.Created(w, response{
			ID:        u.ID,
			Username:  u.Username,
			Email:     u.Email,
			FirstName: u.FirstName,
			LastName:  u.LastName,
			Role:      u.Role.String(),
			CreatedAt: u.CreatedAt,
		})
	})
}

// Revoke access token by its id (jti claim) together with its refresh token
func handleRevokeToken(authService authService, l logger.Logger) http.Handler {
	type response struct {
		ID        uuid.UUID `json:"id"`
		UserID    int64     `json:"userId"`
		Revoked   bool      `json:"revoked"`
		ExpiresAt time.Time `json:"expiresAt"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			render.ServiceError(w, "Invalid token id", http.StatusBadRequest)
			return
		}

		token, err := authService.Revoke(r.Context(), id)
		switch {
		case errors.Is(err, apperrors.ErrTokenNotFound):
			render.ServiceError(w, "Token not found", http.StatusNotFound)
			return
		case err != nil:
			l.Error("Token revocation failed", "token_id", id, "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		admin, _ := principal.FromContext(r.Context())
		l.Info("Token revoked", "token_id", id, "user_id", token.UserID, "by", admin.UserID)

		render.JSON(w, response{
			ID:        token.ID,
			UserID:    token.UserID,
			Revoked:   token.IsRevoked,
			ExpiresAt: token.ExpiresAt,
		})
	})
}

package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/nkiryanov/bookstore/internal/handlers/middleware"
	"github.com/nkiryanov/bookstore/internal/handlers/render"
	"github.com/nkiryanov/bookstore/internal/logger"
	"github.com/nkiryanov/bookstore/internal/models"
	"github.com/nkiryanov/bookstore/internal/service/user"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

func NewRouter(
	authService authService,
	userService userService,
	logger logger.Logger,
) http.Handler {
	authenticated := middleware.RequireAuthenticated()
	adminOnly := middleware.RequireRoles(models.RoleAdmin)
	financeOnly := middleware.RequireRoles(models.RoleFinance)
	staff := middleware.RequireRoles(models.RoleAdmin, models.RoleFinance)

	root := http.NewServeMux()

	root.Handle("POST /api/auth/login", handleLogin(authService, logger))
	root.Handle("POST /api/auth/refresh", handleRefresh(authService, logger))
	root.Handle("POST /api/auth/logout", chain(handleLogout(authService, logger), authenticated))

	root.Handle("GET /api/common/whoami", chain(handleWhoami(), staff))

	root.Handle("GET /api/admin/whoami", chain(handleWhoami(), adminOnly))
	root.Handle("POST /api/admin/users", chain(handleCreateUser(userService, logger), adminOnly))
	root.Handle("POST /api/admin/tokens/{id}/revoke", chain(handleRevokeToken(authService, logger), adminOnly))

	root.Handle("GET /api/finance/whoami", chain(handleWhoami(), financeOnly))

	// Everything else needs authentication before it's known to be missing
	root.Handle("/", chain(handleNotFound(), authenticated))

	handler := chain(root,
		middleware.LoggerMiddleware(logger),
		middleware.Authenticate(authService, logger),
		middleware.Authorize(logger),
	)

	return handler
}

func handleNotFound() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		render.ServiceError(w, "Not found", http.StatusNotFound)
	})
}

type authService interface {
	// Login user with username and password
	// Has to return apperrors.ErrInvalidCredentials if user not found or password mismatch
	Login(ctx context.Context, username string, password string) (models.Session, error)

	// Exchange refresh token to new session
	// Has to return apperrors.ErrTokenInvalid or apperrors.ErrTokenRevoked if token can't be used
	Refresh(ctx context.Context, refreshToken string) (models.Session, error)

	// Revoke session of the access token
	Logout(ctx context.Context, accessID uuid.UUID) error

	// Revoke access token record with its refresh token
	// Has to return apperrors.ErrTokenNotFound if record not exists
	Revoke(ctx context.Context, accessID uuid.UUID) (models.AccessToken, error)

	// Verify access token
	Authenticate(ctx context.Context, accessToken string) (models.TokenClaims, error)
}

type userService interface {
	// Has to return apperrors.ErrUserAlreadyExists if username or email taken
	CreateUser(ctx context.Context, u user.NewUser) (models.User, error)
}

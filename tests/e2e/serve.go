package e2e

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/nkiryanov/bookstore/internal/handlers"
	"github.com/nkiryanov/bookstore/internal/logger"
	"github.com/nkiryanov/bookstore/internal/models"
	"github.com/nkiryanov/bookstore/internal/repository"
	"github.com/nkiryanov/bookstore/internal/repository/postgres"
	"github.com/nkiryanov/bookstore/internal/service/auth"
	"github.com/nkiryanov/bookstore/internal/service/auth/tokenmanager"
	"github.com/nkiryanov/bookstore/internal/service/auth/tokenstore"
	"github.com/nkiryanov/bookstore/internal/service/user"
	"github.com/nkiryanov/bookstore/internal/testutil"
)

type Services struct {
	AuthService *auth.AuthService
	UserService *user.UserService
	Storage     repository.Storage
}

// Server setup; zero values mean production defaults
type Options struct {
	AccessTTL       time.Duration
	RefreshTTL      time.Duration
	LaxRevocation   bool
	RevocationCache tokenstore.RevocationCache
}

// Create db transaction and run server in with that connection (one connection cause one transaction)
// The created transaction passed to inner function: so, you can safely use testutil.InTx with it
func ServeInTx(dbpool *pgxpool.Pool, t *testing.T, opts Options, fn func(tx pgx.Tx, srvURL string, services Services)) {
	testutil.InTx(dbpool, t, func(tx pgx.Tx) {
		storage := postgres.NewStorage(tx)
		hasher := auth.BcryptHasher{Cost: bcrypt.MinCost}

		// Initialize services
		tokenManager, err := tokenmanager.New(tokenmanager.Config{
			AccessSecret:  "test-access-secret",
			RefreshSecret: "test-refresh-secret",
			AccessTTL:     opts.AccessTTL,
			RefreshTTL:    opts.RefreshTTL,
		})
		require.NoError(t, err, "token manager should be created without errors")

		tokenStore, err := tokenstore.New(tokenstore.Config{
			AccessTTL:  tokenManager.AccessTTL(),
			RefreshTTL: tokenManager.RefreshTTL(),
			Cache:      opts.RevocationCache,
		}, storage)
		require.NoError(t, err, "token store should be created without errors")

		as, err := auth.NewService(
			auth.Config{Hasher: hasher, StrictRevocation: !opts.LaxRevocation},
			tokenManager,
			tokenStore,
			storage,
			logger.NewNoOpLogger(),
		)
		require.NoError(t, err, "auth service starting error")

		us := user.NewService(hasher, storage)

		// Run http server with the router in transaction
		srv := httptest.NewServer(handlers.NewRouter(as, us, logger.NewNoOpLogger()))
		defer srv.Close()

		fn(tx, srv.URL, Services{
			AuthService: as,
			UserService: us,
			Storage:     storage,
		})
	})
}

// Create user with password 'StrongEnoughPassword'
func CreateUser(t *testing.T, s Services, username string, role models.Role) models.User {
	t.Helper()

	u, err := s.UserService.CreateUser(t.Context(), user.NewUser{
		Username:  username,
		Email:     username + "@bookstore.test",
		FirstName: "Test",
		LastName:  "User",
		Role:      role.String(),
		Password:  Password,
	})
	require.NoError(t, err)
	return u
}

const Password = "StrongEnoughPassword"

// Tokens as login and refresh return them
type Session struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	UserID       int64  `json:"userId"`
}

// Send request with optional bearer token and JSON body; return status and body
func Do(t *testing.T, method string, url string, token string, body string) (int, string) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req, err := http.NewRequestWithContext(t.Context(), method, url, reader)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	return resp.StatusCode, string(data)
}

// Login with 'StrongEnoughPassword' and fail test if not succeeded
func Login(t *testing.T, srvURL string, username string) Session {
	t.Helper()

	status, body := Do(t, http.MethodPost, srvURL+"/api/auth/login", "", `{"username": "`+username+`", "password": "`+Password+`"}`)
	require.Equalf(t, http.StatusOK, status, "login failed. Body: %s", body)

	var s Session
	require.NoError(t, json.Unmarshal([]byte(body), &s))
	return s
}

package auth

import (
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/bookstore/internal/models"
	"github.com/nkiryanov/bookstore/internal/testutil"
	"github.com/nkiryanov/bookstore/tests/e2e"
)

const (
	LoginURL   = "/api/auth/login"
	RefreshURL = "/api/auth/refresh"
	LogoutURL  = "/api/auth/logout"
)

func Test_AuthLogin(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	e2e.ServeInTx(pg.Pool, t, e2e.Options{}, func(tx pgx.Tx, srvURL string, s e2e.Services) {
		t.Run("login ok", func(t *testing.T) {
			testutil.InTx(tx, t, func(_ pgx.Tx) {
				admin := e2e.CreateUser(t, s, "admin", models.RoleAdmin)

				session := e2e.Login(t, srvURL, "admin")

				require.Equal(t, admin.ID, session.UserID)
				require.NotEmpty(t, session.AccessToken)
				require.NotEmpty(t, session.RefreshToken)
				require.NotEqual(t, session.AccessToken, session.RefreshToken)
			})
		})

		t.Run("login failures look the same", func(t *testing.T) {
			testutil.InTx(tx, t, func(_ pgx.Tx) {
				e2e.CreateUser(t, s, "admin", models.RoleAdmin)

				wrongPasswordStatus, wrongPasswordBody := e2e.Do(t, http.MethodPost, srvURL+LoginURL, "", `{"username": "admin", "password": "wrong"}`)
				unknownUserStatus, unknownUserBody := e2e.Do(t, http.MethodPost, srvURL+LoginURL, "", `{"username": "ghost", "password": "wrong"}`)

				require.Equal(t, http.StatusUnauthorized, wrongPasswordStatus)
				require.JSONEq(t, `{"error": "service_error", "message": "Invalid username or password."}`, wrongPasswordBody)
				require.Equal(t, wrongPasswordStatus, unknownUserStatus)
				require.Equal(t, wrongPasswordBody, unknownUserBody)
			})
		})

		t.Run("refresh rotates tokens", func(t *testing.T) {
			testutil.InTx(tx, t, func(_ pgx.Tx) {
				e2e.CreateUser(t, s, "admin", models.RoleAdmin)
				session := e2e.Login(t, srvURL, "admin")

				status, body := e2e.Do(t, http.MethodPost, srvURL+RefreshURL, "", `{"refreshToken": "`+session.RefreshToken+`"}`)
				require.Equalf(t, http.StatusOK, status, "not expected code. Body: %s", body)

				// Old refresh token works once
				status, body = e2e.Do(t, http.MethodPost, srvURL+RefreshURL, "", `{"refreshToken": "`+session.RefreshToken+`"}`)
				require.Equal(t, http.StatusUnauthorized, status)
				require.JSONEq(t, `{"error": "service_error", "message": "Unauthorized"}`, body)

				// Old access token is revoked by rotation
				status, _ = e2e.Do(t, http.MethodGet, srvURL+"/api/admin/whoami", session.AccessToken, "")
				require.Equal(t, http.StatusUnauthorized, status)
			})
		})

		t.Run("access token is not refresh token", func(t *testing.T) {
			testutil.InTx(tx, t, func(_ pgx.Tx) {
				e2e.CreateUser(t, s, "admin", models.RoleAdmin)
				session := e2e.Login(t, srvURL, "admin")

				status, _ := e2e.Do(t, http.MethodPost, srvURL+RefreshURL, "", `{"refreshToken": "`+session.AccessToken+`"}`)
				require.Equal(t, http.StatusUnauthorized, status)

				status, _ = e2e.Do(t, http.MethodGet, srvURL+"/api/admin/whoami", session.RefreshToken, "")
				require.Equal(t, http.StatusUnauthorized, status)
			})
		})

		t.Run("logout", func(t *testing.T) {
			testutil.InTx(tx, t, func(_ pgx.Tx) {
				e2e.CreateUser(t, s, "finance", models.RoleFinance)
				session := e2e.Login(t, srvURL, "finance")

				status, body := e2e.Do(t, http.MethodPost, srvURL+LogoutURL, session.AccessToken, "")
				require.Equalf(t, http.StatusOK, status, "not expected code. Body: %s", body)
				require.JSONEq(t, `{"message": "Logged out"}`, body)

				status, _ = e2e.Do(t, http.MethodGet, srvURL+"/api/finance/whoami", session.AccessToken, "")
				require.Equal(t, http.StatusUnauthorized, status, "token must not work after logout")

				status, _ = e2e.Do(t, http.MethodPost, srvURL+RefreshURL, "", `{"refreshToken": "`+session.RefreshToken+`"}`)
				require.Equal(t, http.StatusUnauthorized, status, "refresh token must not work after logout")
			})
		})
	})
}

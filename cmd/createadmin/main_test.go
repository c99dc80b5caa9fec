package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/bookstore/internal/apperrors"
	"github.com/nkiryanov/bookstore/internal/models"
	"github.com/nkiryanov/bookstore/internal/repository/postgres"
	"github.com/nkiryanov/bookstore/internal/testutil"
)

func Test_parseOptions(t *testing.T) {
	noEnv := func(string) string { return "" }

	t.Run("password from env", func(t *testing.T) {
		getenv := func(key string) string {
			switch key {
			case "DATABASE_URI":
				return "postgres://localhost/test"
			case "ADMIN_PASSWORD":
				return "StrongEnoughPassword"
			}
			return ""
		}

		o, err := parseOptions(getenv, []string{"--email", "root@bookstore.test"})

		require.NoError(t, err)
		require.Equal(t, "admin", o.Username, "default username")
		require.Equal(t, "StrongEnoughPassword", o.Password)
		require.Equal(t, "postgres://localhost/test", o.DatabaseDSN)
	})

	tests := []struct {
		name string
		args []string
	}{
		{"no database", []string{"--email", "a@b.c", "-p", "StrongEnoughPassword"}},
		{"no email", []string{"-d", "postgres://localhost/test", "-p", "StrongEnoughPassword"}},
		{"short password", []string{"-d", "postgres://localhost/test", "--email", "a@b.c", "-p", "short"}},
		{"unknown flag", []string{"--role", "FINANCE"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseOptions(noEnv, tt.args)

			require.Error(t, err)
		})
	}
}

func Test_run(t *testing.T) {
	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	args := []string{
		"--database", pg.DSN,
		"--username", "root",
		"--email", "root@bookstore.test",
		"--password", "StrongEnoughPassword",
	}
	noEnv := func(string) string { return "" }

	var out bytes.Buffer
	err := run(t.Context(), noEnv, &out, args)

	require.NoError(t, err)
	require.Contains(t, out.String(), `Administrator "root" created`)

	admin, err := postgres.NewStorage(pg.Pool).User().GetUserByUsername(t.Context(), "root")
	require.NoError(t, err)
	require.Equal(t, models.RoleAdmin, admin.Role)

	// Second run must not create duplicate
	err = run(t.Context(), noEnv, &out, args)
	require.ErrorIs(t, err, apperrors.ErrUserAlreadyExists)
}

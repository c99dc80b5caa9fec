package db

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_migrateDSN(t *testing.T) {
	tests := []struct {
		name string
		dsn  string
		want string
	}{
		{"postgres scheme", "postgres://u:p@localhost:5432/db", "pgx5://u:p@localhost:5432/db"},
		{"postgresql scheme", "postgresql://u:p@localhost:5432/db", "pgx5://u:p@localhost:5432/db"},
		{"already pgx5", "pgx5://u:p@localhost:5432/db", "pgx5://u:p@localhost:5432/db"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, migrateDSN(tt.dsn))
		})
	}
}

func Test_MigrationsEmbedded(t *testing.T) {
	entries, err := migrations.ReadDir("migrations")
	require.NoError(t, err)

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}

	require.Contains(t, names, "000001_create_users.up.sql")
	require.Contains(t, names, "000002_create_tokens.up.sql")
	require.Len(t, names, 4, "every up migration must have down pair")
}

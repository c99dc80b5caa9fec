package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/nkiryanov/bookstore/internal/apperrors"
	"github.com/nkiryanov/bookstore/internal/models"
)

type AccessTokenRepo struct {
	DB DBTX
}

const accessColumns = `id, user_id, is_revoked, expires_at, created_at, updated_at`

const createAccessToken = `-- name: CreateAccessToken
INSERT INTO access_tokens (id, user_id, is_revoked, expires_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + accessColumns

func (r *AccessTokenRepo) Create(ctx context.Context, t models.AccessToken) (models.AccessToken, error) {
	rows, _ := r.DB.Query(ctx, createAccessToken, t.ID, t.UserID, t.IsRevoked, t.ExpiresAt, t.CreatedAt, t.UpdatedAt)
	token, err := pgx.CollectOneRow(rows, rowToAccessToken)
	if err != nil {
		return token, fmt.Errorf("db error: %w", err)
	}
	return token, nil
}

const getAccessToken = `-- name: GetAccessToken
SELECT ` + accessColumns + `
FROM access_tokens
WHERE id = $1
`

func (r *AccessTokenRepo) Get(ctx context.Context, id uuid.UUID) (models.AccessToken, error) {
	rows, _ := r.DB.Query(ctx, getAccessToken, id)
	return collectAccessToken(rows)
}

const revokeAccessToken = `-- name: RevokeAccessToken
UPDATE access_tokens
SET is_revoked = true, updated_at = $2
WHERE id = $1
RETURNING ` + accessColumns

func (r *AccessTokenRepo) Revoke(ctx context.Context, id uuid.UUID) (models.AccessToken, error) {
	rows, _ := r.DB.Query(ctx, revokeAccessToken, id, time.Now())
	return collectAccessToken(rows)
}

// Unreferenced data-modifying CTE still runs. Both deletes share one snapshot, so NOT EXISTS
// filters on expiry instead of row presence, and the refresh_tokens FK is checked at statement end
const deleteExpiredAccessTokens = `-- name: DeleteExpiredAccessTokens
WITH purged_refresh AS (
    DELETE FROM refresh_tokens
    WHERE expires_at < $1
)
DELETE FROM access_tokens a
WHERE a.expires_at < $1
  AND NOT EXISTS (
    SELECT 1 FROM refresh_tokens r
    WHERE r.access_token_id = a.id AND r.expires_at >= $1
  )
`

func (r *AccessTokenRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.DB.Exec(ctx, deleteExpiredAccessTokens, before)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return tag.RowsAffected(), nil
}

func collectAccessToken(rows pgx.Rows) (models.AccessToken, error) {
	token, err := pgx.CollectOneRow(rows, rowToAccessToken)

	switch {
	case err == nil:
		return token, nil
	case errors.Is(err, pgx.ErrNoRows):
		return token, fmt.Errorf("repo error: %w", apperrors.ErrTokenNotFound)
	default:
		return token, fmt.Errorf("db error: %w", err)
	}
}

func rowToAccessToken(row pgx.CollectableRow) (models.AccessToken, error) {
	var t models.AccessToken
	err := row.Scan(&t.ID, &t.UserID, &t.IsRevoked, &t.ExpiresAt, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nkiryanov/bookstore/internal/apperrors"
	"github.com/nkiryanov/bookstore/internal/models"
)

type RefreshTokenRepo struct {
	DB DBTX
}

const refreshColumns = `id, access_token_id, is_revoked, expires_at, created_at, updated_at`

const createRefreshToken = `-- name: CreateRefreshToken
INSERT INTO refresh_tokens (id, access_token_id, is_revoked, expires_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + refreshColumns

func (r *RefreshTokenRepo) Create(ctx context.Context, t models.RefreshToken) (models.RefreshToken, error) {
	rows, _ := r.DB.Query(ctx, createRefreshToken, t.ID, t.AccessTokenID, t.IsRevoked, t.ExpiresAt, t.CreatedAt, t.UpdatedAt)
	token, err := pgx.CollectOneRow(rows, rowToRefreshToken)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return token, fmt.Errorf("repo error: access token %s: %w", t.AccessTokenID, apperrors.ErrTokenNotFound)
		}
		return token, fmt.Errorf("db error: %w", err)
	}
	return token, nil
}

const getRefreshToken = `-- name: GetRefreshToken
SELECT ` + refreshColumns + `
FROM refresh_tokens
WHERE id = $1
`

// Get token
// It should return result even it expired or revoked already
func (r *RefreshTokenRepo) Get(ctx context.Context, id uuid.UUID) (models.RefreshToken, error) {
	rows, _ := r.DB.Query(ctx, getRefreshToken, id)
	token, err := pgx.CollectOneRow(rows, rowToRefreshToken)

	switch {
	case err == nil:
		return token, nil
	case errors.Is(err, pgx.ErrNoRows):
		return token, fmt.Errorf("repo error: %w", apperrors.ErrTokenNotFound)
	default:
		return token, fmt.Errorf("db error: %w", err)
	}
}

const useRefreshToken = `-- name: UseRefreshToken
UPDATE refresh_tokens
SET is_revoked = true, updated_at = $2
WHERE id = $1 AND NOT is_revoked
RETURNING ` + refreshColumns

// Revoke live token and return it
// Concurrent callers race on the row lock: only one of them gets the token, others see it revoked
func (r *RefreshTokenRepo) Use(ctx context.Context, id uuid.UUID) (models.RefreshToken, error) {
	rows, _ := r.DB.Query(ctx, useRefreshToken, id, time.Now())
	token, err := pgx.CollectOneRow(rows, rowToRefreshToken)

	switch {
	case err == nil:
		return token, nil
	case errors.Is(err, pgx.ErrNoRows):
		// Either not exists or revoked already; tell one from another
		existed, getErr := r.Get(ctx, id)
		if getErr != nil {
			return existed, getErr
		}
		return existed, fmt.Errorf("repo error: %w", apperrors.ErrTokenRevoked)
	default:
		return token, fmt.Errorf("db error: %w", err)
	}
}

const revokeRefreshByAccessID = `-- name: RevokeRefreshByAccessID
UPDATE refresh_tokens
SET is_revoked = true, updated_at = $2
WHERE access_token_id = $1 AND NOT is_revoked
`

func (r *RefreshTokenRepo) RevokeByAccessID(ctx context.Context, accessID uuid.UUID) error {
	_, err := r.DB.Exec(ctx, revokeRefreshByAccessID, accessID, time.Now())
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func rowToRefreshToken(row pgx.CollectableRow) (models.RefreshToken, error) {
	var t models.RefreshToken
	err := row.Scan(&t.ID, &t.AccessTokenID, &t.IsRevoked, &t.ExpiresAt, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

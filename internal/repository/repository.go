package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/bookstore/internal/models"
)

// User repository interface
type UserRepo interface {
	// Create user; ID and CreatedAt are set by the storage
	// If user with username or email exists already has to return error apperrors.ErrUserAlreadyExists
	CreateUser(ctx context.Context, user models.User) (models.User, error)

	// Get user by it's id or username
	// If user not found must return apperrors.ErrUserNotFound
	GetUserByID(ctx context.Context, userID int64) (models.User, error)
	GetUserByUsername(ctx context.Context, username string) (models.User, error)
}

// Access token records repository
type AccessTokenRepo interface {
	// Save new record as is
	Create(ctx context.Context, token models.AccessToken) (models.AccessToken, error)

	// Get record even if it revoked or expired
	// If record not exists must return apperrors.ErrTokenNotFound
	Get(ctx context.Context, id uuid.UUID) (models.AccessToken, error)

	// Set revoked flag. Revoking revoked record is not an error
	// If record not exists must return apperrors.ErrTokenNotFound
	Revoke(ctx context.Context, id uuid.UUID) (models.AccessToken, error)

	// Delete records expired before the moment together with their expired refresh records
	// Access record stays while its refresh record is alive. Returns count of deleted access records
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// Refresh token records repository
type RefreshTokenRepo interface {
	// Save new record as is
	// Parent access token must exist and must not have other refresh token
	Create(ctx context.Context, token models.RefreshToken) (models.RefreshToken, error)

	// Get record even if it revoked or expired
	// If record not exists must return apperrors.ErrTokenNotFound
	Get(ctx context.Context, id uuid.UUID) (models.RefreshToken, error)

	// Revoke live record and return it
	// Must not flip revoked record twice: apperrors.ErrTokenRevoked returned in that case
	// If record not exists must return apperrors.ErrTokenNotFound
	Use(ctx context.Context, id uuid.UUID) (models.RefreshToken, error)

	// Revoke refresh record that belongs to access token (if any)
	RevokeByAccessID(ctx context.Context, accessID uuid.UUID) error
}

type Storage interface {
	User() UserRepo
	Access() AccessTokenRepo
	Refresh() RefreshTokenRepo

	// Run fn in transaction; commit if fn returns nil, rollback otherwise
	InTx(ctx context.Context, fn func(Storage) error) error
}

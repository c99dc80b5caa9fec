package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/bookstore/internal/apperrors"
	"github.com/nkiryanov/bookstore/internal/models"
	"github.com/nkiryanov/bookstore/internal/repository"
)

// Optional fast path for revocation checks
type RevocationCache interface {
	Revoke(ctx context.Context, id uuid.UUID, expiresAt time.Time) error
	IsRevoked(ctx context.Context, id uuid.UUID) (bool, error)
}

type Config struct {
	// Lifetimes of the records; must match token manager ones
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// May be nil; then every check reads the database
	Cache RevocationCache
}

// Store keeps per-token state apart from the signed token claims
type Store struct {
	storage    repository.Storage
	cache      RevocationCache
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func New(cfg Config, storage repository.Storage) (*Store, error) {
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= cfg.AccessTTL {
		return nil, fmt.Errorf("refresh ttl (%s) must be greater than positive access ttl (%s)", cfg.RefreshTTL, cfg.AccessTTL)
	}

	return &Store{
		storage:    storage,
		cache:      cfg.Cache,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		now:        time.Now,
	}, nil
}

// WithStorage returns the same store bound to other storage (usually a transaction)
func (s *Store) WithStorage(storage repository.Storage) *Store {
	c := *s
	c.storage = storage
	return &c
}

// Signed tokens keep seconds only; truncate so record and token expire at the same instant
func (s *Store) clock() time.Time {
	return s.now().Truncate(time.Second)
}

func (s *Store) CreateAccessRecord(ctx context.Context, userID int64) (models.AccessToken, error) {
	now := s.clock()

	token, err := s.storage.Access().Create(ctx, models.AccessToken{
		ID:        uuid.New(),
		UserID:    userID,
		IsRevoked: false,
		ExpiresAt: now.Add(s.accessTTL),
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return token, fmt.Errorf("error while saving access token. Err: %w", err)
	}

	return token, nil
}

// The refresh record is created after its parent and outlives it
func (s *Store) CreateRefreshRecord(ctx context.Context, accessID uuid.UUID) (models.RefreshToken, error) {
	now := s.clock()

	token, err := s.storage.Refresh().Create(ctx, models.RefreshToken{
		ID:            uuid.New(),
		AccessTokenID: accessID,
		IsRevoked:     false,
		ExpiresAt:     now.Add(s.refreshTTL),
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		return token, fmt.Errorf("error while saving refresh token. Err: %w", err)
	}

	return token, nil
}

func (s *Store) IsAccessExpired(t models.AccessToken) bool {
	return t.IsExpired(s.now())
}

func (s *Store) IsRefreshExpired(t models.RefreshToken) bool {
	return t.IsExpired(s.now())
}

// CheckAccess makes sure the access record is live
// Missing or revoked record gives apperrors.ErrTokenRevoked, expired one apperrors.ErrTokenInvalid
// Cache hit rejects without the database; a miss or cache error reads the record
func (s *Store) CheckAccess(ctx context.Context, accessID uuid.UUID) error {
	if s.cache != nil {
		revoked, err := s.cache.IsRevoked(ctx, accessID)
		if err == nil && revoked {
			return fmt.Errorf("access token %s: %w", accessID, apperrors.ErrTokenRevoked)
		}
	}

	token, err := s.storage.Access().Get(ctx, accessID)
	switch {
	case errors.Is(err, apperrors.ErrTokenNotFound):
		return fmt.Errorf("access token %s: %w", accessID, apperrors.ErrTokenRevoked)
	case err != nil:
		return fmt.Errorf("error while reading access token. Err: %w", err)
	case token.IsRevoked:
		// Revoked out of band or lost by the cache; next check is served from cache
		_ = s.PublishRevocation(ctx, token)
		return fmt.Errorf("access token %s: %w", accessID, apperrors.ErrTokenRevoked)
	case s.IsAccessExpired(token):
		return fmt.Errorf("access token %s: %w", accessID, apperrors.ErrTokenInvalid)
	}

	return nil
}

// RevokeAccess flips revoked flag of the access record and its refresh child
// Cache is not touched: call PublishRevocation once the transaction is committed
// If record not exists returns apperrors.ErrTokenNotFound
func (s *Store) RevokeAccess(ctx context.Context, accessID uuid.UUID) (models.AccessToken, error) {
	token, err := s.storage.Access().Revoke(ctx, accessID)
	if err != nil {
		return token, fmt.Errorf("error while revoking access token. Err: %w", err)
	}

	err = s.storage.Refresh().RevokeByAccessID(ctx, accessID)
	if err != nil {
		return token, fmt.Errorf("error while revoking refresh token. Err: %w", err)
	}

	return token, nil
}

// PublishRevocation puts revoked record to the cache until the record expires
// No-op without cache
func (s *Store) PublishRevocation(ctx context.Context, token models.AccessToken) error {
	if s.cache == nil {
		return nil
	}

	if err := s.cache.Revoke(ctx, token.ID, token.ExpiresAt); err != nil {
		return fmt.Errorf("error while publishing revocation. Err: %w", err)
	}
	return nil
}

// UseRefresh consumes the refresh record; a refresh token works once
// Revoked or reused record gives apperrors.ErrTokenRevoked, expired apperrors.ErrTokenInvalid
func (s *Store) UseRefresh(ctx context.Context, refreshID uuid.UUID) (models.RefreshToken, error) {
	token, err := s.storage.Refresh().Use(ctx, refreshID)
	if err != nil {
		return token, fmt.Errorf("error while using refresh token. Err: %w", err)
	}

	if s.IsRefreshExpired(token) {
		return token, fmt.Errorf("refresh token %s: %w", refreshID, apperrors.ErrTokenInvalid)
	}

	return token, nil
}

// Purge deletes records no token can be checked against anymore
func (s *Store) Purge(ctx context.Context) (int64, error) {
	deleted, err := s.storage.Access().DeleteExpired(ctx, s.clock())
	if err != nil {
		return 0, fmt.Errorf("error while purging tokens. Err: %w", err)
	}
	return deleted, nil
}

package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/nkiryanov/bookstore/internal/apperrors"
	"github.com/nkiryanov/bookstore/internal/logger"
	"github.com/nkiryanov/bookstore/internal/models"
	"github.com/nkiryanov/bookstore/internal/repository"
	"github.com/nkiryanov/bookstore/internal/service/auth/tokenmanager"
	"github.com/nkiryanov/bookstore/internal/service/auth/tokenstore"
)

type Config struct {
	// Hasher to compare user passwords on login
	// DefaultHasher used if not set
	Hasher PasswordHasher

	// Consult token store on every authentication
	// When off only signature and expiry are checked; revoked token lives until it expires
	StrictRevocation bool
}

// Auth service
type AuthService struct {
	hasher PasswordHasher
	strict bool

	// Signs and parses tokens
	tokens *tokenmanager.TokenManager

	// Token records; rebound to transaction storage on write flows
	store *tokenstore.Store

	storage repository.Storage
	logger  logger.Logger

	// Hash to compare against when user not found; keeps timing the same
	dummyHash func() (string, error)
}

func NewService(cfg Config, tokens *tokenmanager.TokenManager, store *tokenstore.Store, storage repository.Storage, l logger.Logger) (*AuthService, error) {
	if tokens == nil || store == nil || storage == nil {
		return nil, errors.New("token manager, token store and storage must not be nil")
	}

	hasher := cfg.Hasher
	if hasher == nil {
		hasher = DefaultHasher
	}

	if l == nil {
		l = logger.NewNoOpLogger()
	}

	return &AuthService{
		hasher:  hasher,
		strict:  cfg.StrictRevocation,
		tokens:  tokens,
		store:   store,
		storage: storage,
		logger:  l,
		dummyHash: sync.OnceValues(func() (string, error) {
			return hasher.Hash("not-a-real-password")
		}),
	}, nil
}

// Login verifies credentials and issues new session
// Unknown user and wrong password both return apperrors.ErrInvalidCredentials
func (s *AuthService) Login(ctx context.Context, username string, password string) (models.Session, error) {
	var session models.Session

	err := s.storage.InTx(ctx, func(tx repository.Storage) error {
		user, err := tx.User().GetUserByUsername(ctx, username)
		switch {
		case errors.Is(err, apperrors.ErrUserNotFound):
			s.comparePasswordNoUser(password)
			s.logger.Info("Login failed", "username", username, "reason", "user not found")
			return apperrors.ErrInvalidCredentials
		case err != nil:
			return fmt.Errorf("error while getting user. Err: %w", err)
		}

		if err := s.hasher.Compare(user.HashedPassword, password); err != nil {
			s.logger.Info("Login failed", "username", username, "reason", "password mismatch")
			return apperrors.ErrInvalidCredentials
		}

		session, err = s.issue(ctx, s.store.WithStorage(tx), user)
		return err
	})
	if err != nil {
		return models.Session{}, err
	}

	s.logger.Info("User logged in", "user_id", session.UserID)
	return session, nil
}

// Refresh exchanges refresh token to new session
// Refresh token works once; the access token it was paired with is revoked
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (models.Session, error) {
	claims, err := s.tokens.Parse(tokenmanager.KindRefresh, refreshToken)
	if err != nil {
		return models.Session{}, err
	}

	var (
		session models.Session
		revoked models.AccessToken
	)

	err = s.storage.InTx(ctx, func(tx repository.Storage) error {
		store := s.store.WithStorage(tx)

		refresh, err := store.UseRefresh(ctx, claims.ID)
		switch {
		case errors.Is(err, apperrors.ErrTokenNotFound):
			return fmt.Errorf("%w: %w", apperrors.ErrTokenRevoked, err)
		case err != nil:
			return err
		}

		access, err := store.RevokeAccess(ctx, refresh.AccessTokenID)
		if err != nil {
			return err
		}
		revoked = access
		if access.UserID != claims.UserID {
			return fmt.Errorf("%w: refresh token subject does not own the session", apperrors.ErrTokenInvalid)
		}

		user, err := tx.User().GetUserByID(ctx, claims.UserID)
		switch {
		case errors.Is(err, apperrors.ErrUserNotFound):
			return fmt.Errorf("%w: %w", apperrors.ErrTokenInvalid, err)
		case err != nil:
			return fmt.Errorf("error while getting user. Err: %w", err)
		}

		session, err = s.issue(ctx, store, user)
		return err
	})
	if err != nil {
		return models.Session{}, err
	}
	s.publish(ctx, revoked)

	s.logger.Info("Session refreshed", "user_id", session.UserID)
	return session, nil
}

// Logout revokes session the access token belongs to
func (s *AuthService) Logout(ctx context.Context, accessID uuid.UUID) error {
	token, err := s.Revoke(ctx, accessID)
	if err != nil {
		return err
	}

	s.logger.Info("User logged out", "user_id", token.UserID)
	return nil
}

// Revoke flips revoked flag of access record and its refresh record
// If record not exists returns apperrors.ErrTokenNotFound
func (s *AuthService) Revoke(ctx context.Context, accessID uuid.UUID) (models.AccessToken, error) {
	var token models.AccessToken

	err := s.storage.InTx(ctx, func(tx repository.Storage) error {
		var err error
		token, err = s.store.WithStorage(tx).RevokeAccess(ctx, accessID)
		return err
	})
	if err != nil {
		return token, err
	}
	s.publish(ctx, token)

	return token, nil
}

// Tell the cache about committed revocation
// Database stays the source of truth, so failure is only logged
func (s *AuthService) publish(ctx context.Context, token models.AccessToken) {
	if err := s.store.PublishRevocation(ctx, token); err != nil {
		s.logger.Warn("Revocation not published to cache", "token_id", token.ID, "error", err)
	}
}

// Authenticate verifies access token and returns its claims
// Invalid token gives apperrors.ErrTokenInvalid; revoked one apperrors.ErrTokenRevoked (only when strict)
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (models.TokenClaims, error) {
	claims, err := s.tokens.Parse(tokenmanager.KindAccess, accessToken)
	if err != nil {
		return models.TokenClaims{}, err
	}

	if s.strict {
		if err := s.store.CheckAccess(ctx, claims.ID); err != nil {
			return models.TokenClaims{}, err
		}
	}

	return claims, nil
}

// Create records first, then sign tokens for them
// Called within transaction: signing failure rolls the records back
func (s *AuthService) issue(ctx context.Context, store *tokenstore.Store, user models.User) (models.Session, error) {
	access, err := store.CreateAccessRecord(ctx, user.ID)
	if err != nil {
		return models.Session{}, err
	}

	refresh, err := store.CreateRefreshRecord(ctx, access.ID)
	if err != nil {
		return models.Session{}, err
	}

	accessToken, err := s.tokens.MintAccess(access.ID, user, access.ExpiresAt)
	if err != nil {
		return models.Session{}, err
	}

	refreshToken, err := s.tokens.MintRefresh(refresh.ID, user.ID, refresh.ExpiresAt)
	if err != nil {
		return models.Session{}, err
	}

	return models.Session{
		Access:  accessToken,
		Refresh: refreshToken,
		UserID:  user.ID,
	}, nil
}

func (s *AuthService) comparePasswordNoUser(password string) {
	hash, err := s.dummyHash()
	if err != nil {
		s.logger.Error("Dummy hash is not available", "error", err)
		return
	}
	_ = s.hasher.Compare(hash, password)
}

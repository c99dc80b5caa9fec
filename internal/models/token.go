package models

import (
	"time"

	"github.com/google/uuid"
)

// Persisted state of an issued access token
type AccessToken struct {
	ID        uuid.UUID
	UserID    int64
	IsRevoked bool
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Token is expired when now is at or after ExpiresAt
func (t AccessToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// Persisted state of an issued refresh token
// Always belongs to exactly one access token
type RefreshToken struct {
	ID            uuid.UUID
	AccessTokenID uuid.UUID
	IsRevoked     bool
	ExpiresAt     time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (t RefreshToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// Claims extracted from a verified signed token
// Role, Username and Email are set for access tokens only
type TokenClaims struct {
	ID        uuid.UUID
	UserID    int64
	IssuedAt  time.Time
	ExpiresAt time.Time
	Role      string
	Username  string
	Email     string
}

type IssuedToken struct {
	Value     string
	ExpiresAt time.Time
}

// Session is what a successful login or refresh hands back to the client
type Session struct {
	Access  IssuedToken
	Refresh IssuedToken
	UserID  int64
}

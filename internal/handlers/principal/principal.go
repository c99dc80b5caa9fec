package principal

import (
	"context"

	"github.com/google/uuid"

	"github.com/nkiryanov/bookstore/internal/models"
)

type ctxKey string

const (
	claimsKey    ctxKey = "claims"
	principalKey ctxKey = "principal"
	trailKey     ctxKey = "trail"
)

// Authenticated and authorized caller of the request
// Lives as long as the request does
type Principal struct {
	UserID  int64
	TokenID uuid.UUID
	Role    models.Role
}

// Single capability derived from the role
func (p Principal) Authority() string {
	return p.Role.Authority()
}

// Create a new context with the principal
func New(ctx context.Context, p Principal) context.Context {
	if t, ok := ctx.Value(trailKey).(*Trail); ok {
		t.record(p)
	}
	return context.WithValue(ctx, principalKey, p)
}

// Extract the principal from the context
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}

// Verified access token claims, set before the role is checked
func WithClaims(ctx context.Context, c models.TokenClaims) context.Context {
	if t, ok := ctx.Value(trailKey).(*Trail); ok {
		t.record(Principal{UserID: c.UserID, TokenID: c.ID, Role: models.Role(c.Role)})
	}
	return context.WithValue(ctx, claimsKey, c)
}

func ClaimsFromContext(ctx context.Context) (models.TokenClaims, bool) {
	c, ok := ctx.Value(claimsKey).(models.TokenClaims)
	return c, ok
}

// Trail remembers who the request was made by after inner handlers return
// Outer middleware can't see contexts derived further down the chain, the trail is shared by pointer
type Trail struct {
	principal Principal
	known     bool
}

func (t *Trail) record(p Principal) {
	t.principal = p
	t.known = true
}

// Caller of the request; false for anonymous requests and rejected tokens
func (t *Trail) Principal() (Principal, bool) {
	return t.principal, t.known
}

// WithTrail starts recording the caller of the request
func WithTrail(ctx context.Context) (context.Context, *Trail) {
	t := &Trail{}
	return context.WithValue(ctx, trailKey, t), t
}

package rediscache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "bookstore:revoked:"

// Denylist of revoked access token ids
// Keys expire together with the token they describe, so the set never outgrows live tokens
type RevocationCache struct {
	client *redis.Client
	prefix string
}

func NewRevocationCache(client *redis.Client) *RevocationCache {
	return &RevocationCache{client: client, prefix: defaultKeyPrefix}
}

func (c *RevocationCache) key(id uuid.UUID) string {
	return c.prefix + id.String()
}

// Mark token revoked until expiresAt
// Already expired token is not stored: expiry check rejects it anyway
func (c *RevocationCache) Revoke(ctx context.Context, id uuid.UUID, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}

	if err := c.client.Set(ctx, c.key(id), "1", ttl).Err(); err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	return nil
}

func (c *RevocationCache) IsRevoked(ctx context.Context, id uuid.UUID) (bool, error) {
	err := c.client.Get(ctx, c.key(id)).Err()

	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, redis.Nil):
		return false, nil
	default:
		return false, fmt.Errorf("redis error: %w", err)
	}
}

// Connect to redis and ping it
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis is not reachable. Err: %w", err)
	}

	return client, nil
}

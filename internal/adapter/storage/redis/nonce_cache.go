package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// NonceCache implements ports.NonceCache. It is the fast-path replay check
// over consumed token nonces; the settlements table's unique constraint
// stays the final arbiter, so the cache surviving restarts or running
// multi-instance is a latency concern, not a correctness one.
type NonceCache struct {
	client *goredis.Client
	prefix string
}

// NewNonceCache creates a new Redis-backed nonce cache.
func NewNonceCache(client *goredis.Client) *NonceCache {
	return &NonceCache{
		client: client,
		prefix: "nonce:",
	}
}

// IsConsumed reports whether the nonce was already marked consumed.
func (c *NonceCache) IsConsumed(ctx context.Context, nonce string) (bool, error) {
	n, err := c.client.Exists(ctx, c.prefix+nonce).Result()
	if err != nil {
		return false, fmt.Errorf("redis nonce check: %w", err)
	}
	return n > 0, nil
}

// MarkConsumed records the nonce after a successful settlement commit.
func (c *NonceCache) MarkConsumed(ctx context.Context, nonce string, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.prefix+nonce, 1, ttl).Err(); err != nil {
		return fmt.Errorf("redis nonce mark: %w", err)
	}
	return nil
}

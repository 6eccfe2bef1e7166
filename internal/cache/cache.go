// Package cache provides a fail-safe Redis cache used for the public
// language/tag directories. "Fail-safe" means Redis being down or
// unconfigured behaves exactly like a cache miss — the caller falls through
// to the store and the response is merely slower, never wrong.
//
// A nil *Client is valid and disables caching entirely, which is how the
// server runs when REDIS_ADDR isn't set.
package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client wraps redis.Client, swallowing connectivity errors.
type Client struct {
	client *redis.Client
}

// New creates a Redis-backed cache client. It does not dial eagerly; the
// first Get/Set establishes the connection.
func New(addr, password string, db int) *Client {
	return &Client{client: redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})}
}

// Get returns the cached bytes, or nil on a miss — including the "miss" of
// Redis being unreachable.
func (c *Client) Get(ctx context.Context, key string) []byte {
	if c == nil || c.client == nil {
		return nil
	}
	res, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		// redis.Nil and real failures alike: treat as a miss.
		return nil
	}
	return res
}

// Set stores value under key with the given TTL, ignoring Redis errors.
func (c *Client) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if c == nil || c.client == nil {
		return
	}
	_ = c.client.Set(ctx, key, value, ttl).Err()
}

// Close releases the underlying connection pool.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// Package db defines the distributed key-value store contract backing
// the L2 cache tier.
package db

import (
	"context"
	"time"
)

// Store is the distributed KV store consumed by the cache tier. All
// implementations must be safe for unlimited concurrent callers.
type Store interface {
	// Get returns the value at key, or ErrKeyNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// SetWithTTL stores a value with an expiration.
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Del deletes keys and returns how many existed.
	Del(ctx context.Context, keys ...string) (int64, error)
	// Scan returns all keys matching a glob pattern.
	Scan(ctx context.Context, pattern string) ([]string, error)

	Ping(ctx context.Context) error
	WaitForReady(ctx context.Context, timeout time.Duration) error
	Close()
}

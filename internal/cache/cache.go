// Package cache implements the two-level read-through cache: a fast
// in-process bounded LRU (L1) backed by a shared distributed KV store
// (L2). Values are JSON-serialized; TTLs are per call.
//
// The cache owns no domain semantics. Callers supply opaque keys; only
// the search orchestrator derives keys and is permitted to invalidate
// by pattern.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/ridelist/searchd/internal/db"
	"github.com/ridelist/searchd/internal/domain"
	"github.com/ridelist/searchd/internal/metrics"
)

// DefaultL1TTLCap bounds L1 entry lifetime regardless of the requested
// TTL. Short so that the soft inconsistency window after a failed L2
// write self-heals quickly.
const DefaultL1TTLCap = 5 * time.Minute

// DefaultL1Size bounds the in-process entry count.
const DefaultL1Size = 4096

// l1Entry carries the serialized value and its own expiry; the LRU has
// no native TTL support.
type l1Entry struct {
	data      []byte
	expiresAt time.Time
}

// Manager is the two-tier cache. Safe for unlimited concurrent callers:
// the LRU is internally synchronized and L2 access goes through the
// thread-safe store client.
//
// There is no single-flight deduplication: concurrent misses for the
// same key legitimately perform duplicate upstream work.
type Manager struct {
	store db.Store
	l1    *lru.Cache[string, l1Entry]
	l1Cap time.Duration
	log   *zap.Logger
	now   func() time.Time
}

// New creates a cache manager. size <= 0 and cap <= 0 fall back to the
// package defaults.
func New(store db.Store, size int, l1Cap time.Duration, log *zap.Logger) (*Manager, error) {
	if size <= 0 {
		size = DefaultL1Size
	}
	if l1Cap <= 0 {
		l1Cap = DefaultL1TTLCap
	}
	if log == nil {
		log = zap.NewNop()
	}

	l1, err := lru.New[string, l1Entry](size)
	if err != nil {
		return nil, fmt.Errorf("create l1 cache: %w", err)
	}

	return &Manager{
		store: store,
		l1:    l1,
		l1Cap: l1Cap,
		log:   log,
		now:   time.Now,
	}, nil
}

// Get reads key into dest, consulting L1 first and falling back to L2
// with an L1 backfill. Returns false on absence. Backend failures and
// undecodable values degrade to a miss; a search must never fail
// because the cache did.
func (m *Manager) Get(ctx context.Context, key string, dest any) bool {
	if entry, ok := m.l1.Get(key); ok {
		if m.now().Before(entry.expiresAt) {
			if err := json.Unmarshal(entry.data, dest); err == nil {
				metrics.CacheHit(metrics.TierL1)
				return true
			}
			metrics.CacheError(metrics.TierL1)
			m.l1.Remove(key)
		} else {
			m.l1.Remove(key)
		}
	}
	metrics.CacheMiss(metrics.TierL1)

	data, err := m.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			metrics.CacheMiss(metrics.TierL2)
			return false
		}
		metrics.CacheError(metrics.TierL2)
		m.log.Warn("l2 read failed, treating as miss",
			zap.String("key", key), zap.Error(err))
		return false
	}

	if err := json.Unmarshal(data, dest); err != nil {
		metrics.CacheError(metrics.TierL2)
		m.log.Warn("undecodable cache value, treating as miss",
			zap.String("key", key), zap.Error(err))
		return false
	}
	metrics.CacheHit(metrics.TierL2)

	// Backfill L1 at the capped TTL; the L2 entry remains authoritative.
	m.l1.Add(key, l1Entry{data: data, expiresAt: m.now().Add(m.l1Cap)})
	return true
}

// Set writes L2 first (authoritative, full TTL), then L1 at
// min(ttl, l1Cap). A failed L2 write still warms L1 and reports the
// failure; the entry self-expires within the L1 cap, which keeps the
// inconsistency soft.
func (m *Manager) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %w", domain.ErrSerialization, key, err)
	}

	l2Err := m.store.SetWithTTL(ctx, key, data, ttl)

	l1TTL := ttl
	if l1TTL > m.l1Cap {
		l1TTL = m.l1Cap
	}
	m.l1.Add(key, l1Entry{data: data, expiresAt: m.now().Add(l1TTL)})

	if l2Err != nil {
		return fmt.Errorf("l2 write %s: %w", key, l2Err)
	}
	return nil
}

// Delete removes keys from both tiers and returns the number of keys
// that existed in L2. Idempotent, safe to call redundantly.
func (m *Manager) Delete(ctx context.Context, keys ...string) (int, error) {
	for _, k := range keys {
		m.l1.Remove(k)
	}
	n, err := m.store.Del(ctx, keys...)
	if err != nil {
		return 0, fmt.Errorf("delete keys: %w", err)
	}
	metrics.CacheInvalidated(int(n))
	return int(n), nil
}

// InvalidatePattern deletes all L2 keys matching the glob pattern and
// evicts the same key set from L1 by exact key (L1 has no pattern
// scan). O(matching keys).
func (m *Manager) InvalidatePattern(ctx context.Context, pattern string) (int, error) {
	keys, err := m.store.Scan(ctx, pattern)
	if err != nil {
		return 0, fmt.Errorf("scan %q: %w", pattern, err)
	}
	if len(keys) == 0 {
		return 0, nil
	}

	n, err := m.store.Del(ctx, keys...)
	if err != nil {
		return 0, fmt.Errorf("delete matched keys: %w", err)
	}
	for _, k := range keys {
		m.l1.Remove(k)
	}
	metrics.CacheInvalidated(int(n))
	return int(n), nil
}

// Backend is the read/write subset of the cache that GetOrCompute
// needs. *Manager satisfies it, as does any narrower cache interface a
// consumer depends on.
type Backend interface {
	Get(ctx context.Context, key string, dest any) bool
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

// GetOrCompute returns the cached value at key or computes and stores
// it. forceRefresh skips the read and recomputes; if the compute then
// fails, any stale cached value is returned instead of the error. A
// failed write-back does not fail the call; the computed value is
// still returned. Concurrent callers may race to populate the same
// missing key; the duplicate work is accepted over the complexity of
// coalescing.
func GetOrCompute[T any](
	ctx context.Context, c Backend, key string, ttl time.Duration,
	forceRefresh bool, fn func(context.Context) (T, error),
) (T, error) {
	var cached T
	if !forceRefresh && c.Get(ctx, key, &cached) {
		return cached, nil
	}

	computed, err := fn(ctx)
	if err != nil {
		if forceRefresh {
			var stale T
			if c.Get(ctx, key, &stale) {
				return stale, nil
			}
		}
		var zero T
		return zero, err
	}

	_ = c.Set(ctx, key, computed, ttl)
	return computed, nil
}

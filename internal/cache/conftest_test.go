package cache

import (
	"context"
	"errors"
	"path"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ridelist/searchd/internal/db"
)

var errStoreDown = errors.New("store down")

// fakeStore is an in-memory db.Store double with fault injection.
type fakeStore struct {
	mu      sync.Mutex
	entries map[string]fakeEntry

	failGet bool
	failSet bool
	failDel bool

	getCalls int
	setCalls int
}

type fakeEntry struct {
	data []byte
	ttl  time.Duration
}

func newFakeStore() *fakeStore {
	return &fakeStore{entries: map[string]fakeEntry{}}
}

func (f *fakeStore) Get(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	if f.failGet {
		return nil, &db.Error{Op: db.OpGet, Err: errStoreDown}
	}
	e, ok := f.entries[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return e.data, nil
}

func (f *fakeStore) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setCalls++
	if f.failSet {
		return &db.Error{Op: db.OpSet, Err: errStoreDown}
	}
	f.entries[key] = fakeEntry{data: value, ttl: ttl}
	return nil
}

func (f *fakeStore) Del(_ context.Context, keys ...string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDel {
		return 0, &db.Error{Op: db.OpDel, Err: errStoreDown}
	}
	var n int64
	for _, k := range keys {
		if _, ok := f.entries[k]; ok {
			delete(f.entries, k)
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) Scan(_ context.Context, pattern string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var keys []string
	for k := range f.entries {
		if ok, _ := path.Match(pattern, k); ok {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (f *fakeStore) Ping(context.Context) error { return nil }

func (f *fakeStore) WaitForReady(context.Context, time.Duration) error { return nil }

func (f *fakeStore) Close() {}

func (f *fakeStore) ttlOf(key string) time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.entries[key].ttl
}

func newTestManager(t *testing.T, store db.Store) *Manager {
	t.Helper()
	m, err := New(store, 16, time.Minute, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return m
}

package recommend

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ridelist/searchd/internal/domain"
	"github.com/ridelist/searchd/internal/domain/activity"
	"github.com/ridelist/searchd/internal/domain/listing"
	"github.com/ridelist/searchd/internal/domain/search/filter"
)

type mockListings struct {
	mu            sync.Mutex
	candidates    []listing.Candidate
	retrieveErr   error
	retrieveCalls int
	lastFilter    filter.Filter
}

func (m *mockListings) Retrieve(_ context.Context, f filter.Filter) ([]listing.Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retrieveCalls++
	m.lastFilter = f
	if m.retrieveErr != nil {
		return nil, m.retrieveErr
	}
	out := make([]listing.Candidate, 0, len(m.candidates))
	for _, c := range m.candidates {
		if f.MinPrice != nil && c.Price < *f.MinPrice {
			continue
		}
		if f.MaxPrice != nil && c.Price > *f.MaxPrice {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (m *mockListings) Get(_ context.Context, id int64) (*listing.Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.candidates {
		if c.ID == id {
			out := c
			return &out, nil
		}
	}
	return nil, fmt.Errorf("%w: listing %d", domain.ErrNotFound, id)
}

type mockActivity struct {
	actions    []activity.Action
	engagement map[int64]activity.Engagement
	err        error
}

func (m *mockActivity) RecentActions(_ context.Context, userID int64, _ int) ([]activity.Action, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []activity.Action
	for _, a := range m.actions {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *mockActivity) RecentEngagement(context.Context, int) (map[int64]activity.Engagement, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.engagement, nil
}

type mockCache struct {
	mu   sync.Mutex
	data map[string][]byte
	ttls map[string]time.Duration
}

func newMockCache() *mockCache {
	return &mockCache{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *mockCache) Get(_ context.Context, key string, dest any) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.data[key]
	if !ok {
		return false
	}
	return json.Unmarshal(raw, dest) == nil
}

func (m *mockCache) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.data[key] = raw
	m.ttls[key] = ttl
	return nil
}

func (m *mockCache) Delete(_ context.Context, keys ...string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int
	for _, k := range keys {
		if _, ok := m.data[k]; ok {
			delete(m.data, k)
			n++
		}
	}
	return n, nil
}

func viewAction(userID, listingID, brandID int64, price float64) activity.Action {
	return activity.Action{
		UserID: userID, ListingID: listingID, Kind: activity.KindView,
		BrandID: brandID, CityID: 1, Price: price,
		FuelType: "gasoline", Transmission: "automatic",
		CreatedAt: time.Now().Add(-24 * time.Hour),
	}
}

package search

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/ridelist/searchd/internal/domain/listing"
	"github.com/ridelist/searchd/internal/domain/profile"
	"github.com/ridelist/searchd/internal/domain/search/filter"
)

type mockRetriever struct {
	mu            sync.Mutex
	candidates    []listing.Candidate
	retrieveErr   error
	enrichErr     error
	retrieveCalls int
	enrichCalls   int
}

func (m *mockRetriever) Retrieve(_ context.Context, _ filter.Filter) ([]listing.Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retrieveCalls++
	if m.retrieveErr != nil {
		return nil, m.retrieveErr
	}
	out := make([]listing.Candidate, len(m.candidates))
	copy(out, m.candidates)
	return out, nil
}

func (m *mockRetriever) ImagesFor(_ context.Context, ids []int64) (map[int64][]listing.Image, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enrichCalls++
	if m.enrichErr != nil {
		return nil, m.enrichErr
	}
	out := map[int64][]listing.Image{}
	for _, id := range ids {
		out[id] = []listing.Image{{ListingID: id, URL: "https://img.test/a.jpg", Position: 0}}
	}
	return out, nil
}

func (m *mockRetriever) FeaturesFor(_ context.Context, ids []int64) (map[int64][]listing.Feature, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enrichCalls++
	if m.enrichErr != nil {
		return nil, m.enrichErr
	}
	out := map[int64][]listing.Feature{}
	for _, id := range ids {
		out[id] = []listing.Feature{{ID: 1, Name: "Airbags"}}
	}
	return out, nil
}

func (m *mockRetriever) SellersFor(_ context.Context, ids []int64) (map[int64]listing.SellerDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enrichCalls++
	if m.enrichErr != nil {
		return nil, m.enrichErr
	}
	out := map[int64]listing.SellerDetail{}
	for _, id := range ids {
		out[id] = listing.SellerDetail{ID: 100 + id, Name: "Seller"}
	}
	return out, nil
}

// mockCache stores marshaled values like the real tier so tests
// exercise the same encode/decode round trip.
type mockCache struct {
	mu       sync.Mutex
	data     map[string][]byte
	ttls     map[string]time.Duration
	getErr   bool
	setErr   error
	getCalls int
	setCalls int
}

func newMockCache() *mockCache {
	return &mockCache{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *mockCache) Get(_ context.Context, key string, dest any) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls++
	if m.getErr {
		return false
	}
	raw, ok := m.data[key]
	if !ok {
		return false
	}
	return json.Unmarshal(raw, dest) == nil
}

func (m *mockCache) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setCalls++
	if m.setErr != nil {
		return m.setErr
	}
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
			delete(m.ttls, k)
			n++
		}
	}
	return n, nil
}

func (m *mockCache) InvalidatePattern(_ context.Context, pattern string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := pattern
	if len(prefix) > 0 && prefix[len(prefix)-1] == '*' {
		prefix = prefix[:len(prefix)-1]
	}
	var n int
	for k := range m.data {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			delete(m.data, k)
			delete(m.ttls, k)
			n++
		}
	}
	return n, nil
}

type mockProfiles struct {
	prof *profile.Profile
	err  error
}

func (m *mockProfiles) ProfileFor(context.Context, int64) (*profile.Profile, error) {
	return m.prof, m.err
}

func listingFixture(n int) []listing.Candidate {
	out := make([]listing.Candidate, n)
	for i := range out {
		out[i] = listing.Candidate{
			ID:           int64(i + 1),
			Title:        "Toyota Vios 1.3 E",
			BrandName:    "Toyota",
			ModelName:    "Vios",
			CityName:     "Quezon City",
			Price:        600000 + float64(i)*10000,
			Year:         2018 + i%5,
			Mileage:      30000 + i*1000,
			FuelType:     "gasoline",
			Transmission: "automatic",
			QualityScore: 7,
			SellerRating: 4.2,
			ViewCount:    int64(100 * (i + 1)),
			PostedAt:     time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Hour),
		}
	}
	return out
}

package search

import (
	"context"
	"time"

	"github.com/ridelist/searchd/internal/domain/listing"
	"github.com/ridelist/searchd/internal/domain/profile"
	"github.com/ridelist/searchd/internal/domain/search/filter"
)

// Retriever translates a filter into an unranked candidate set and
// serves the page-scoped enrichment lookups.
type Retriever interface {
	Retrieve(ctx context.Context, f filter.Filter) ([]listing.Candidate, error)
	ImagesFor(ctx context.Context, ids []int64) (map[int64][]listing.Image, error)
	FeaturesFor(ctx context.Context, ids []int64) (map[int64][]listing.Feature, error)
	SellersFor(ctx context.Context, ids []int64) (map[int64]listing.SellerDetail, error)
}

// Cache is the slice of the cache tier the orchestrator consumes. The
// orchestrator owns key derivation and TTL policy; it is the only
// component permitted to invalidate by pattern.
type Cache interface {
	Get(ctx context.Context, key string, dest any) bool
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) (int, error)
	InvalidatePattern(ctx context.Context, pattern string) (int, error)
}

// ProfileSource resolves the acting user's derived preference profile.
// A nil profile (or an error, which is swallowed) simply disables the
// personalization term.
type ProfileSource interface {
	ProfileFor(ctx context.Context, userID int64) (*profile.Profile, error)
}

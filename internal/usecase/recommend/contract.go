package recommend

import (
	"context"
	"time"

	"github.com/ridelist/searchd/internal/domain/activity"
	"github.com/ridelist/searchd/internal/domain/listing"
	"github.com/ridelist/searchd/internal/domain/search/filter"
)

// ListingSource serves candidate sets and single-listing lookups.
type ListingSource interface {
	Retrieve(ctx context.Context, f filter.Filter) ([]listing.Candidate, error)
	Get(ctx context.Context, id int64) (*listing.Candidate, error)
}

// ActivitySource reads the tracked user action log.
type ActivitySource interface {
	RecentActions(ctx context.Context, userID int64, windowDays int) ([]activity.Action, error)
	RecentEngagement(ctx context.Context, windowDays int) (map[int64]activity.Engagement, error)
}

// Cache is the slice of the cache tier this service consumes.
type Cache interface {
	Get(ctx context.Context, key string, dest any) bool
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) (int, error)
}

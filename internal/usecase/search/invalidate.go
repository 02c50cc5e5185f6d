package search

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// InvalidateListing evicts every cached response that could contain the
// listing. Cached search keys are opaque hashes, so the whole search
// namespace goes; the listing-scoped derived keys are evicted exactly.
// Idempotent: a second call with nothing left to evict succeeds.
func (s *Service) InvalidateListing(ctx context.Context, listingID int64) error {
	n, err := s.cache.InvalidatePattern(ctx, KeyPrefix+"*")
	if err != nil {
		return fmt.Errorf("invalidate search namespace: %w", err)
	}

	if _, err := s.cache.Delete(ctx,
		fmt.Sprintf("similar:v1:%d", listingID),
		"trending:v1",
	); err != nil {
		return fmt.Errorf("invalidate listing %d derived keys: %w", listingID, err)
	}

	s.log.Info("listing invalidated",
		zap.Int64("listing_id", listingID), zap.Int("evicted", n))
	return nil
}

// InvalidateLocation evicts cached responses after a geographic data
// change (city boundaries, coordinates). Search keys do not encode the
// city in recoverable form, so this clears the search namespace.
func (s *Service) InvalidateLocation(ctx context.Context, cityID int64) error {
	n, err := s.cache.InvalidatePattern(ctx, KeyPrefix+"*")
	if err != nil {
		return fmt.Errorf("invalidate location %d: %w", cityID, err)
	}

	s.log.Info("location invalidated",
		zap.Int64("city_id", cityID), zap.Int("evicted", n))
	return nil
}

// Package recommend produces personalized, similar-item, and trending
// result sets. It is a sibling of the search orchestrator: same cache
// tier, same retrieval layer, but driven by a derived preference
// profile instead of an explicit query.
package recommend

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/ridelist/searchd/internal/cache"
	"github.com/ridelist/searchd/internal/domain/activity"
	"github.com/ridelist/searchd/internal/domain/listing"
	"github.com/ridelist/searchd/internal/domain/profile"
	"github.com/ridelist/searchd/internal/domain/search/filter"
	"github.com/ridelist/searchd/internal/domain/search/result"
	"github.com/ridelist/searchd/internal/usecase/ranking"
)

// Cache keys and TTLs. The listing-invalidation path deletes the exact
// similar/trending keys, so they must not embed a caller-chosen limit:
// each caches a fixed-size head and slices on read.
const (
	profileKeyFmt   = "profile:v1:%d"
	recommendKeyFmt = "recommend:v1:%d"
	similarKeyFmt   = "similar:v1:%d"
	trendingKey     = "trending:v1"

	profileTTL   = 15 * time.Minute
	recommendTTL = 5 * time.Minute
	similarTTL   = 10 * time.Minute
	trendingTTL  = 30 * time.Minute

	cachedHeadSize = 50
)

// TrendingWindowDays is the engagement window trending scores over.
const TrendingWindowDays = 7

// Trending signal weights. Engagement outweighs promotion, but a
// featured or boosted listing with moderate traffic still surfaces.
const (
	trendViewWeight     = 1.0
	trendFavoriteWeight = 3.0
	trendInquiryWeight  = 5.0
	trendFeaturedBonus  = 20.0
	trendBoostBonus     = 10.0
)

// Similarity term weights for SimilarTo.
const (
	simModelBrandWeight = 0.40
	simPriceWeight      = 0.25
	simYearWeight       = 0.15
	simFuelWeight       = 0.10
	simTransWeight      = 0.10

	simSameModel = 1.0
	simSameBrand = 0.6

	// simYearSpan is the model-year gap at which the year term hits 0.
	simYearSpan = 10.0
)

// Options tune one recommendation call.
type Options struct {
	Limit int
	// IncludeViewed keeps listings the user already viewed in the set.
	IncludeViewed bool
}

func (o Options) normalize() Options {
	if o.Limit <= 0 || o.Limit > cachedHeadSize {
		o.Limit = 10
	}
	return o
}

// Service computes recommendation result sets.
type Service struct {
	listings ListingSource
	actions  ActivitySource
	cache    Cache
	log      *zap.Logger
}

// New creates a recommendation service.
func New(listings ListingSource, actions ActivitySource, cache Cache, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{listings: listings, actions: actions, cache: cache, log: log}
}

// ProfileFor returns the user's derived preference profile, cached for
// a bounded window. A user with no recent activity yields (nil, nil).
func (s *Service) ProfileFor(ctx context.Context, userID int64) (*profile.Profile, error) {
	key := fmt.Sprintf(profileKeyFmt, userID)

	var cached profile.Profile
	if s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	acts, err := s.actions.RecentActions(ctx, userID, ProfileWindowDays)
	if err != nil {
		return nil, fmt.Errorf("recent actions for user %d: %w", userID, err)
	}

	prof := BuildProfile(userID, acts)
	if prof == nil {
		return nil, nil
	}

	if err := s.cache.Set(ctx, key, prof, profileTTL); err != nil {
		s.log.Warn("profile cache write failed", zap.Int64("user_id", userID), zap.Error(err))
	}
	return prof, nil
}

// Recommend returns listings personalized to the user's derived
// profile. Falls back to trending for users without enough activity.
// The user's own listings are always excluded; already-viewed listings
// are excluded unless opts.IncludeViewed is set.
func (s *Service) Recommend(ctx context.Context, userID int64, opts Options) ([]result.ScoredCandidate, error) {
	opts = opts.normalize()

	prof, err := s.ProfileFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	if prof == nil {
		return s.Trending(ctx, opts.Limit)
	}

	key := fmt.Sprintf(recommendKeyFmt, userID)
	var cached []result.ScoredCandidate
	if s.cache.Get(ctx, key, &cached) {
		return head(cached, opts.Limit), nil
	}

	cands, err := s.listings.Retrieve(ctx, profileFilter(prof))
	if err != nil {
		return nil, fmt.Errorf("retrieve recommendation candidates: %w", err)
	}

	scored := make([]result.ScoredCandidate, 0, len(cands))
	for _, c := range cands {
		if c.SellerID == userID {
			continue
		}
		if !opts.IncludeViewed && prof.HasViewed(c.ID) {
			continue
		}
		scored = append(scored, result.ScoredCandidate{
			Candidate: c,
			Score:     recommendScore(c, prof),
		})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	scored = head(scored, cachedHeadSize)

	if err := s.cache.Set(ctx, key, scored, recommendTTL); err != nil {
		s.log.Warn("recommend cache write failed", zap.Int64("user_id", userID), zap.Error(err))
	}
	return head(scored, opts.Limit), nil
}

// SimilarTo returns listings similar to one reference listing: same
// model over same brand, then price, year, fuel, and transmission
// proximity. The reference itself and the reference seller's other
// listings are excluded.
func (s *Service) SimilarTo(ctx context.Context, listingID int64, opts Options) ([]result.ScoredCandidate, error) {
	opts = opts.normalize()

	key := fmt.Sprintf(similarKeyFmt, listingID)
	var cached []result.ScoredCandidate
	if s.cache.Get(ctx, key, &cached) {
		return head(cached, opts.Limit), nil
	}

	ref, err := s.listings.Get(ctx, listingID)
	if err != nil {
		return nil, fmt.Errorf("reference listing %d: %w", listingID, err)
	}

	cands, err := s.listings.Retrieve(ctx, similarFilter(ref))
	if err != nil {
		return nil, fmt.Errorf("retrieve similarity candidates: %w", err)
	}

	scored := make([]result.ScoredCandidate, 0, len(cands))
	for _, c := range cands {
		if c.ID == ref.ID || c.SellerID == ref.SellerID {
			continue
		}
		scored = append(scored, result.ScoredCandidate{
			Candidate: c,
			Score:     SimilarityScore(c, *ref),
		})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	scored = head(scored, cachedHeadSize)

	if err := s.cache.Set(ctx, key, scored, similarTTL); err != nil {
		s.log.Warn("similar cache write failed", zap.Int64("listing_id", listingID), zap.Error(err))
	}
	return head(scored, opts.Limit), nil
}

// Trending returns the currently hottest listings, scored by recent
// engagement plus promotional flags. Served from cache on a long TTL;
// the background warmer keeps the entry fresh.
func (s *Service) Trending(ctx context.Context, limit int) ([]result.ScoredCandidate, error) {
	if limit <= 0 || limit > cachedHeadSize {
		limit = 10
	}

	scored, err := cache.GetOrCompute(ctx, s.cache, trendingKey, trendingTTL, false, s.computeTrending)
	if err != nil {
		return nil, err
	}
	return head(scored, limit), nil
}

// RefreshTrending recomputes the trending set and overwrites the cached
// entry regardless of its remaining TTL. Used by the scheduled warmer.
// A failed recompute keeps serving the previous entry and is not an
// error as long as one exists.
func (s *Service) RefreshTrending(ctx context.Context) error {
	scored, err := cache.GetOrCompute(ctx, s.cache, trendingKey, trendingTTL, true, s.computeTrending)
	if err != nil {
		return fmt.Errorf("refresh trending: %w", err)
	}
	s.log.Info("trending refreshed", zap.Int("listings", len(scored)))
	return nil
}

// InvalidateProfile evicts the user's cached profile and personalized
// recommendations, forcing re-derivation on the next call. Idempotent.
func (s *Service) InvalidateProfile(ctx context.Context, userID int64) error {
	_, err := s.cache.Delete(ctx,
		fmt.Sprintf(profileKeyFmt, userID),
		fmt.Sprintf(recommendKeyFmt, userID),
	)
	if err != nil {
		return fmt.Errorf("invalidate profile %d: %w", userID, err)
	}
	return nil
}

func (s *Service) computeTrending(ctx context.Context) ([]result.ScoredCandidate, error) {
	cands, err := s.listings.Retrieve(ctx, filter.Filter{})
	if err != nil {
		return nil, fmt.Errorf("retrieve trending candidates: %w", err)
	}

	engagement, err := s.actions.RecentEngagement(ctx, TrendingWindowDays)
	if err != nil {
		return nil, fmt.Errorf("recent engagement: %w", err)
	}

	scored := make([]result.ScoredCandidate, 0, len(cands))
	for _, c := range cands {
		scored = append(scored, result.ScoredCandidate{
			Candidate: c,
			Score:     TrendingScore(c, engagement[c.ID]),
		})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return head(scored, cachedHeadSize), nil
}

// recommendScore reuses the ranking formula with the profile-match term
// standing in for free-text relevance; the proximity, quality,
// reputation, and popularity terms carry over unchanged.
func recommendScore(c listing.Candidate, prof *profile.Profile) float64 {
	match := ranking.ProfileMatchScore(c, prof)

	var minP, maxP *float64
	if prof.HasPriceBand() {
		minP, maxP = &prof.MinPrice, &prof.MaxPrice
	}

	s := (ranking.WeightText+ranking.WeightPersonal)*match +
		ranking.WeightPrice*ranking.PriceFitScore(c.Price, minP, maxP) +
		ranking.WeightProximity*ranking.ProximityScore(c.DistanceKm) +
		ranking.WeightQuality*ranking.QualityScore(c.QualityScore) +
		ranking.WeightReputation*ranking.ReputationScore(c.SellerRating) +
		ranking.WeightPopularity*ranking.PopularityScore(c.ViewCount)

	if c.Featured {
		s += ranking.FeaturedBoost
	}
	s += math.Min(float64(c.BoostCount)*ranking.BoostStep, ranking.BoostCap)

	if s > 1 {
		s = 1
	}
	return s
}

// SimilarityScore measures candidate-to-reference similarity in [0,1].
func SimilarityScore(c, ref listing.Candidate) float64 {
	var modelBrand float64
	switch {
	case c.ModelID != 0 && c.ModelID == ref.ModelID:
		modelBrand = simSameModel
	case c.BrandID != 0 && c.BrandID == ref.BrandID:
		modelBrand = simSameBrand
	}

	var priceTerm float64
	if ref.Price > 0 {
		priceTerm = 1 - math.Abs(c.Price-ref.Price)/ref.Price
		if priceTerm < 0 {
			priceTerm = 0
		}
	}

	yearTerm := 1 - math.Abs(float64(c.Year-ref.Year))/simYearSpan
	if yearTerm < 0 {
		yearTerm = 0
	}

	var fuelTerm, transTerm float64
	if c.FuelType != "" && c.FuelType == ref.FuelType {
		fuelTerm = 1
	}
	if c.Transmission != "" && c.Transmission == ref.Transmission {
		transTerm = 1
	}

	return simModelBrandWeight*modelBrand +
		simPriceWeight*priceTerm +
		simYearWeight*yearTerm +
		simFuelWeight*fuelTerm +
		simTransWeight*transTerm
}

// TrendingScore is the weighted recent-engagement count plus
// promotional bonuses. Unbounded by design; it only orders, never
// blends with other terms.
func TrendingScore(c listing.Candidate, e activity.Engagement) float64 {
	s := trendViewWeight*float64(e.Views) +
		trendFavoriteWeight*float64(e.Favorites) +
		trendInquiryWeight*float64(e.Inquiries)

	if c.Featured {
		s += trendFeaturedBonus
	}
	s += trendBoostBonus * float64(c.BoostCount)
	return s
}

// profileFilter widens the derived price band into a retrieval filter.
// Brand and city affinities stay out of the filter on purpose: they
// bias the score, not the candidate set, so near-miss listings still
// surface.
func profileFilter(prof *profile.Profile) filter.Filter {
	var f filter.Filter
	if prof.HasPriceBand() {
		minP, maxP := prof.MinPrice, prof.MaxPrice
		f.MinPrice = &minP
		f.MaxPrice = &maxP
	}
	return f
}

// similarFilter bounds the similarity candidate set to a generous price
// corridor around the reference so scoring stays cheap.
func similarFilter(ref *listing.Candidate) filter.Filter {
	var f filter.Filter
	if ref.Price > 0 {
		minP := ref.Price * 0.5
		maxP := ref.Price * 1.5
		f.MinPrice = &minP
		f.MaxPrice = &maxP
	}
	return f
}

func head(s []result.ScoredCandidate, n int) []result.ScoredCandidate {
	if len(s) > n {
		return s[:n]
	}
	return s
}

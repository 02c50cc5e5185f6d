// Package search orchestrates ranked listing search: cache-key
// derivation, the two-tier cache policy, candidate retrieval, ranking,
// pagination, page enrichment, facets, and explicit invalidation.
package search

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ridelist/searchd/internal/analytics"
	"github.com/ridelist/searchd/internal/domain"
	"github.com/ridelist/searchd/internal/domain/listing"
	"github.com/ridelist/searchd/internal/domain/profile"
	"github.com/ridelist/searchd/internal/domain/search/filter"
	"github.com/ridelist/searchd/internal/domain/search/options"
	"github.com/ridelist/searchd/internal/domain/search/result"
	"github.com/ridelist/searchd/internal/metrics"
	"github.com/ridelist/searchd/internal/usecase/ranking"
)

// Service is the search orchestrator. One instance serves unlimited
// concurrent calls; the cache tier is the only shared mutable state.
type Service struct {
	repo     Retriever
	cache    Cache
	profiles ProfileSource
	events   analytics.Emitter
	log      *zap.Logger
}

// New creates a search service.
func New(repo Retriever, cache Cache, events analytics.Emitter, log *zap.Logger) *Service {
	if events == nil {
		events = analytics.NopEmitter{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, cache: cache, events: events, log: log}
}

// WithProfiles connects a preference-profile source enabling the
// personalization ranking term.
func (s *Service) WithProfiles(ps ProfileSource) *Service {
	s.profiles = ps
	return s
}

// Search executes one ranked search call:
// derive key -> cache lookup -> on miss retrieve, rank, paginate,
// enrich the page, facet, write back -> respond.
//
// Cache failures degrade to the miss path; a retrieval failure fails
// the whole call so callers can distinguish "no matches" from "search
// failed".
func (s *Service) Search(ctx context.Context, f filter.Filter, o options.Options) (*result.Response, error) {
	start := time.Now()

	f = f.Normalize()
	o = o.Normalize()
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	if err := o.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}

	key := deriveKey(f, o)

	var cached result.Response
	if s.cache.Get(ctx, key, &cached) {
		cached.Metadata.CacheHit = true
		cached.Metadata.QueryTimeMs = time.Since(start).Milliseconds()
		metrics.ObserveSearch(time.Since(start), true)
		s.emit(ctx, f, o, cached.Total, true, time.Since(start))
		return &cached, nil
	}

	prof := s.profileFor(ctx, o.UserID)

	cands, err := s.repo.Retrieve(ctx, f)
	if err != nil {
		s.log.Error("candidate retrieval failed",
			zap.String("filter_hash", f.Hash()), zap.Error(err))
		return nil, fmt.Errorf("retrieve candidates: %w", err)
	}

	ranked := ranking.Rank(cands, f, prof)
	applySort(ranked, o.Sort)

	total := len(ranked)
	page := paginate(ranked, o.Page, o.PageSize)

	if err := s.enrich(ctx, page, o); err != nil {
		s.log.Error("page enrichment failed",
			zap.String("filter_hash", f.Hash()), zap.Error(err))
		return nil, fmt.Errorf("enrich page: %w", err)
	}

	resp := &result.Response{
		Results:    page,
		Total:      total,
		Page:       o.Page,
		TotalPages: totalPages(total, o.PageSize),
		Facets:     buildFacets(cands),
		Metadata: result.Metadata{
			QueryTimeMs:  time.Since(start).Milliseconds(),
			CacheHit:     false,
			Personalized: prof != nil,
		},
	}

	if err := s.cache.Set(ctx, key, resp, ttlFor(f)); err != nil {
		// Write-back is best-effort; the response is already complete.
		s.log.Warn("cache write-back failed",
			zap.String("filter_hash", f.Hash()), zap.Error(err))
	}

	metrics.ObserveSearch(time.Since(start), false)
	s.emit(ctx, f, o, total, false, time.Since(start))
	return resp, nil
}

func (s *Service) profileFor(ctx context.Context, userID int64) *profile.Profile {
	if s.profiles == nil || userID == 0 {
		return nil
	}
	prof, err := s.profiles.ProfileFor(ctx, userID)
	if err != nil {
		// Personalization is optional; a failed profile lookup must not
		// fail the search.
		s.log.Warn("profile lookup failed", zap.Int64("user_id", userID), zap.Error(err))
		return nil
	}
	return prof
}

func (s *Service) emit(
	ctx context.Context, f filter.Filter, o options.Options,
	total int, cacheHit bool, d time.Duration,
) {
	s.events.SearchExecuted(ctx, analytics.SearchEvent{
		FilterHash: f.Hash(),
		Query:      f.Query,
		UserID:     o.UserID,
		Page:       o.Page,
		Total:      total,
		CacheHit:   cacheHit,
		Duration:   d,
	})
}

// applySort reorders the relevance-ranked slice by the active sort
// mode. The input arrives ordered by relevance, so a stable re-sort
// keeps relevance as the tiebreaker and retrieval order beyond that.
func applySort(ranked []result.ScoredCandidate, mode options.Sort) {
	if mode == options.SortRelevance || mode == "" {
		return
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return sortKey(ranked[i], mode) > sortKey(ranked[j], mode)
	})
}

// sortKey maps a candidate to a value sorted descending: higher key
// means earlier placement. Cheaper/closer/newer rank first under their
// respective modes. A missing distance sinks to the end, which realizes
// the fallback to the relevance tiebreaker when geo is absent.
func sortKey(c result.ScoredCandidate, mode options.Sort) float64 {
	switch mode {
	case options.SortPrice:
		return -c.Price
	case options.SortYear:
		return float64(c.Year)
	case options.SortMileage:
		return -float64(c.Mileage)
	case options.SortDistance:
		if c.DistanceKm == nil {
			return math.Inf(-1)
		}
		return -*c.DistanceKm
	case options.SortRecency:
		return float64(c.PostedAt.Unix())
	case options.SortPopularity:
		return float64(c.ViewCount)
	default:
		return c.Score
	}
}

// paginate slices the full ranked order. Total always reflects the full
// set; a page past the end is empty but valid.
func paginate(ranked []result.ScoredCandidate, page, size int) []result.ScoredCandidate {
	offset := (page - 1) * size
	if offset >= len(ranked) {
		return []result.ScoredCandidate{}
	}
	end := offset + size
	if end > len(ranked) {
		end = len(ranked)
	}
	return ranked[offset:end]
}

func totalPages(total, size int) int {
	if total == 0 {
		return 0
	}
	return (total + size - 1) / size
}

// enrich attaches images, features, and seller detail to the paginated
// page only. The three lookups are independent reads and run
// concurrently.
func (s *Service) enrich(ctx context.Context, page []result.ScoredCandidate, o options.Options) error {
	if len(page) == 0 || (!o.IncludeImages && !o.IncludeFeatures && !o.IncludeSeller) {
		return nil
	}

	ids := make([]int64, len(page))
	for i, c := range page {
		ids[i] = c.ID
	}

	var (
		images   map[int64][]listing.Image
		features map[int64][]listing.Feature
		sellers  map[int64]listing.SellerDetail
	)

	g, gctx := errgroup.WithContext(ctx)
	if o.IncludeImages {
		g.Go(func() error {
			var err error
			images, err = s.repo.ImagesFor(gctx, ids)
			return err
		})
	}
	if o.IncludeFeatures {
		g.Go(func() error {
			var err error
			features, err = s.repo.FeaturesFor(gctx, ids)
			return err
		})
	}
	if o.IncludeSeller {
		g.Go(func() error {
			var err error
			sellers, err = s.repo.SellersFor(gctx, ids)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err //nolint:wrapcheck // caller adds context
	}

	for i := range page {
		id := page[i].ID
		page[i].Images = images[id]
		page[i].Features = features[id]
		if sd, ok := sellers[id]; ok {
			detail := sd
			page[i].Seller = &detail
		}
	}
	return nil
}

// buildFacets aggregates counts over the full candidate set (not the
// page) to drive UI filter widgets.
func buildFacets(cands []listing.Candidate) result.Facets {
	f := result.Facets{
		Brands:        map[string]int{},
		Cities:        map[string]int{},
		FuelTypes:     map[string]int{},
		Transmissions: map[string]int{},
		PriceBands:    map[string]int{},
	}
	for _, c := range cands {
		f.Brands[c.BrandName]++
		f.Cities[c.CityName]++
		f.FuelTypes[c.FuelType]++
		f.Transmissions[c.Transmission]++
		f.PriceBands[priceBand(c.Price)]++
	}
	return f
}

func priceBand(price float64) string {
	switch {
	case price < 500_000:
		return "under_500k"
	case price < 1_000_000:
		return "500k_1m"
	case price < 2_000_000:
		return "1m_2m"
	default:
		return "over_2m"
	}
}

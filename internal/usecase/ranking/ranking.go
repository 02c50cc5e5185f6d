// Package ranking scores and orders candidate sets with a weighted
// multi-factor formula. Scoring is deterministic: fixed inputs always
// produce the same total order, with retrieval order breaking ties.
package ranking

import (
	"math"
	"sort"
	"strings"

	"github.com/ridelist/searchd/internal/domain/listing"
	"github.com/ridelist/searchd/internal/domain/profile"
	"github.com/ridelist/searchd/internal/domain/search/filter"
	"github.com/ridelist/searchd/internal/domain/search/result"
)

// Factor weights. Each term is normalized to [0,1] before weighting.
const (
	WeightText       = 0.25
	WeightPrice      = 0.20
	WeightProximity  = 0.20
	WeightQuality    = 0.15
	WeightReputation = 0.10
	WeightPopularity = 0.05
	WeightPersonal   = 0.05
)

// Flat boosts applied after the weighted sum.
const (
	FeaturedBoost = 0.10
	BoostStep     = 0.05
	BoostCap      = 0.20
)

// Rank scores candidates against the filter (and optional preference
// profile) and returns them ordered by descending score. Ties preserve
// the retrieval order of the input slice.
func Rank(cands []listing.Candidate, f filter.Filter, prof *profile.Profile) []result.ScoredCandidate {
	f = f.Normalize()

	scored := make([]result.ScoredCandidate, len(cands))
	for i, c := range cands {
		scored[i] = result.ScoredCandidate{
			Candidate: c,
			Score:     Score(c, f, prof),
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return scored
}

// Score computes the final relevance score in [0,1] for one candidate.
func Score(c listing.Candidate, f filter.Filter, prof *profile.Profile) float64 {
	s := WeightText*TextScore(c, f.Query) +
		WeightPrice*PriceFitScore(c.Price, f.MinPrice, f.MaxPrice) +
		WeightProximity*ProximityScore(c.DistanceKm) +
		WeightQuality*QualityScore(c.QualityScore) +
		WeightReputation*ReputationScore(c.SellerRating) +
		WeightPopularity*PopularityScore(c.ViewCount) +
		WeightPersonal*ProfileMatchScore(c, prof)

	if c.Featured {
		s += FeaturedBoost
	}
	s += math.Min(float64(c.BoostCount)*BoostStep, BoostCap)

	return clamp01(s)
}

// TextScore is the best substring-coverage ratio of the query tokens
// against the title, brand name, and model name. Zero without a query.
func TextScore(c listing.Candidate, query string) float64 {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return 0
	}
	tokens := strings.Fields(query)

	best := 0.0
	for _, target := range []string{c.Title, c.BrandName, c.ModelName} {
		if cov := coverage(tokens, strings.ToLower(target)); cov > best {
			best = cov
		}
	}
	return best
}

func coverage(tokens []string, target string) float64 {
	if len(tokens) == 0 || target == "" {
		return 0
	}
	matched := 0
	for _, tok := range tokens {
		if strings.Contains(target, tok) {
			matched++
		}
	}
	return float64(matched) / float64(len(tokens))
}

// PriceFitScore is 1.0 inside [min,max] (bounds inclusive) and decays
// linearly to 0 outside, over a span equal to the supplied range width.
// Without any price bound the term is neutral (exactly 1.0), never
// penalizing.
func PriceFitScore(price float64, minPrice, maxPrice *float64) float64 {
	if minPrice == nil && maxPrice == nil {
		return 1.0
	}

	var lo, hi, width float64
	switch {
	case minPrice != nil && maxPrice != nil:
		lo, hi = *minPrice, *maxPrice
		width = hi - lo
	case minPrice != nil:
		lo, hi = *minPrice, math.Inf(1)
		width = lo
	default:
		lo, hi = 0, *maxPrice
		width = hi
	}
	if width <= 0 {
		width = 1
	}

	if price >= lo && price <= hi {
		return 1.0
	}

	var overshoot float64
	if price < lo {
		overshoot = lo - price
	} else {
		overshoot = price - hi
	}
	return clamp01(1 - overshoot/width)
}

// ProximityScore maps a distance in kilometers to [0,1] in tiers; zero
// when no distance is attached (order-neutral across the set).
func ProximityScore(distanceKm *float64) float64 {
	if distanceKm == nil {
		return 0
	}
	d := *distanceKm
	switch {
	case d <= 5:
		return 1.0
	case d <= 25:
		return 0.8
	case d <= 100:
		return 0.5
	default:
		return math.Max(0.1, 1-d/500)
	}
}

// QualityScore normalizes the precomputed quality score to [0,1].
func QualityScore(q float64) float64 {
	return clamp01(q / listing.QualityScoreMax)
}

// ReputationScore normalizes the seller average rating to [0,1].
func ReputationScore(rating float64) float64 {
	return clamp01(rating / listing.SellerRatingMax)
}

// PopularityScore is log(viewCount+1)/100, capped at 1.
func PopularityScore(viewCount int64) float64 {
	if viewCount < 0 {
		return 0
	}
	return math.Min(1, math.Log(float64(viewCount)+1)/100)
}

// Profile-match component weights.
const (
	profileBrandWeight = 0.35
	profilePriceWeight = 0.25
	profileCityWeight  = 0.20
	profileFuelWeight  = 0.10
	profileTransWeight = 0.10
)

// ProfileMatchScore measures how well a candidate matches a derived
// preference profile, in [0,1]. Zero without a profile.
func ProfileMatchScore(c listing.Candidate, prof *profile.Profile) float64 {
	if prof == nil {
		return 0
	}

	s := 0.0
	if prof.PrefersBrand(c.BrandID) {
		s += profileBrandWeight
	}
	if prof.HasPriceBand() && c.Price >= prof.MinPrice && c.Price <= prof.MaxPrice {
		s += profilePriceWeight
	}
	if prof.PrefersCity(c.CityID) {
		s += profileCityWeight
	}
	if prof.FuelType != "" && strings.EqualFold(c.FuelType, prof.FuelType) {
		s += profileFuelWeight
	}
	if prof.Transmission != "" && strings.EqualFold(c.Transmission, prof.Transmission) {
		s += profileTransWeight
	}
	return s
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

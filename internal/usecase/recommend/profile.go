package recommend

import (
	"sort"

	"github.com/ridelist/searchd/internal/domain/activity"
	"github.com/ridelist/searchd/internal/domain/profile"
)

// Preference derivation parameters.
const (
	// ProfileWindowDays is the trailing activity window profiles derive
	// from.
	ProfileWindowDays = 90

	// PriceSpread widens the observed price band on both sides so the
	// retrieval filter does not overfit to a handful of actions.
	PriceSpread = 0.30

	// maxAffinities bounds brand and city affinity lists.
	maxAffinities = 3
)

// Action weights for frequency counting. Favoriting and inquiring are
// stronger preference signals than a view.
const (
	weightView     = 1
	weightFavorite = 3
	weightInquiry  = 5
)

// BuildProfile derives a preference profile from recent actions.
// Returns nil when there is no activity to derive from.
func BuildProfile(userID int64, actions []activity.Action) *profile.Profile {
	if len(actions) == 0 {
		return nil
	}

	brandFreq := map[int64]int{}
	cityFreq := map[int64]int{}
	fuelFreq := map[string]int{}
	transFreq := map[string]int{}
	var viewed []int64

	var priceSum float64
	var priceWeight int

	for _, a := range actions {
		w := actionWeight(a.Kind)
		if a.BrandID != 0 {
			brandFreq[a.BrandID] += w
		}
		if a.CityID != 0 {
			cityFreq[a.CityID] += w
		}
		if a.FuelType != "" {
			fuelFreq[a.FuelType] += w
		}
		if a.Transmission != "" {
			transFreq[a.Transmission] += w
		}
		if a.Price > 0 {
			priceSum += a.Price * float64(w)
			priceWeight += w
		}
		if a.Kind == activity.KindView {
			viewed = append(viewed, a.ListingID)
		}
	}

	p := &profile.Profile{
		UserID:           userID,
		BrandIDs:         topIDs(brandFreq, maxAffinities),
		CityIDs:          topIDs(cityFreq, maxAffinities),
		FuelType:         dominant(fuelFreq),
		Transmission:     dominant(transFreq),
		ViewedListingIDs: viewed,
	}

	if priceWeight > 0 {
		mean := priceSum / float64(priceWeight)
		p.MinPrice = mean * (1 - PriceSpread)
		p.MaxPrice = mean * (1 + PriceSpread)
	}
	return p
}

func actionWeight(k activity.Kind) int {
	switch k {
	case activity.KindFavorite:
		return weightFavorite
	case activity.KindInquiry:
		return weightInquiry
	default:
		return weightView
	}
}

// topIDs returns the n highest-frequency ids, frequency descending with
// id ascending as the tiebreaker for a deterministic result.
func topIDs(freq map[int64]int, n int) []int64 {
	ids := make([]int64, 0, len(freq))
	for id := range freq {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if freq[ids[i]] != freq[ids[j]] {
			return freq[ids[i]] > freq[ids[j]]
		}
		return ids[i] < ids[j]
	})
	if len(ids) > n {
		ids = ids[:n]
	}
	return ids
}

// dominant returns the single value holding a strict majority of the
// weighted frequency mass, or "" when preference is split.
func dominant(freq map[string]int) string {
	var total, best int
	var bestKey string
	for k, v := range freq {
		total += v
		if v > best || (v == best && k < bestKey) {
			best, bestKey = v, k
		}
	}
	if total == 0 || best*2 <= total {
		return ""
	}
	return bestKey
}

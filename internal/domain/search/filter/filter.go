// Package filter defines the structured search filter and its
// normalization rules.
package filter

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ridelist/searchd/internal/domain/geo"
)

// Filter is a mapping of optional predicates over the listing set.
// Zero values and nil pointers mean "predicate absent".
//
// Invariant: a radius predicate requires both Latitude and Longitude;
// absence of either disables distance filtering and distance-based sort
// falls back to a secondary sort key.
type Filter struct {
	Query   string `json:"query,omitempty"`
	BrandID int64  `json:"brand_id,omitempty"`
	ModelID int64  `json:"model_id,omitempty"`
	CityID  int64  `json:"city_id,omitempty"`

	MinPrice   *float64 `json:"min_price,omitempty"`
	MaxPrice   *float64 `json:"max_price,omitempty"`
	MinYear    *int     `json:"min_year,omitempty"`
	MaxYear    *int     `json:"max_year,omitempty"`
	MaxMileage *int     `json:"max_mileage,omitempty"`

	FuelTypes     []string `json:"fuel_types,omitempty"`
	Transmissions []string `json:"transmissions,omitempty"`
	Conditions    []string `json:"conditions,omitempty"`
	FeatureIDs    []int64  `json:"feature_ids,omitempty"`

	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	RadiusKm  *float64 `json:"radius_km,omitempty"`

	FinancingAvailable *bool `json:"financing_available,omitempty"`
	AccidentFree       *bool `json:"accident_free,omitempty"`

	MinSellerRating *float64 `json:"min_seller_rating,omitempty"`

	PostedAfter  *time.Time `json:"posted_after,omitempty"`
	PostedBefore *time.Time `json:"posted_before,omitempty"`
}

// Normalize returns a canonical copy: query trimmed and lowercased,
// array-valued predicates de-duplicated and stable-sorted, empty slices
// dropped. Two semantically identical filters normalize to identical
// values regardless of field insertion order.
func (f Filter) Normalize() Filter {
	f.Query = strings.ToLower(strings.TrimSpace(f.Query))
	f.FuelTypes = normalizeStrings(f.FuelTypes)
	f.Transmissions = normalizeStrings(f.Transmissions)
	f.Conditions = normalizeStrings(f.Conditions)
	f.FeatureIDs = normalizeInt64s(f.FeatureIDs)
	return f
}

// Validate rejects malformed predicates. It does not defend against a
// radius without a center; that degrades to no geo clause per the
// Filter invariant.
func (f Filter) Validate() error {
	if f.RadiusKm != nil && *f.RadiusKm < 0 {
		return fmt.Errorf("radius_km must be non-negative, got %f", *f.RadiusKm)
	}
	if f.MinPrice != nil && *f.MinPrice < 0 {
		return fmt.Errorf("min_price must be non-negative, got %f", *f.MinPrice)
	}
	if f.MaxPrice != nil && *f.MaxPrice < 0 {
		return fmt.Errorf("max_price must be non-negative, got %f", *f.MaxPrice)
	}
	if f.MinPrice != nil && f.MaxPrice != nil && *f.MinPrice > *f.MaxPrice {
		return fmt.Errorf("min_price %f exceeds max_price %f", *f.MinPrice, *f.MaxPrice)
	}
	if f.MinYear != nil && f.MaxYear != nil && *f.MinYear > *f.MaxYear {
		return fmt.Errorf("min_year %d exceeds max_year %d", *f.MinYear, *f.MaxYear)
	}
	if f.MaxMileage != nil && *f.MaxMileage < 0 {
		return fmt.Errorf("max_mileage must be non-negative, got %d", *f.MaxMileage)
	}
	if f.MinSellerRating != nil && (*f.MinSellerRating < 0 || *f.MinSellerRating > 5) {
		return fmt.Errorf("min_seller_rating must be in [0,5], got %f", *f.MinSellerRating)
	}
	if f.Latitude != nil || f.Longitude != nil {
		// A missing coordinate checks as 0, which is always in range.
		var p geo.Point
		if f.Latitude != nil {
			p.Lat = *f.Latitude
		}
		if f.Longitude != nil {
			p.Lon = *f.Longitude
		}
		if !geo.Valid(p) {
			return fmt.Errorf("coordinates out of range: lat %f, lon %f", p.Lat, p.Lon)
		}
	}
	return nil
}

// HasCenter reports whether both coordinates are present.
func (f Filter) HasCenter() bool {
	return f.Latitude != nil && f.Longitude != nil
}

// HasGeo reports whether the full geo predicate (center + radius) is
// present and distance filtering applies.
func (f Filter) HasGeo() bool {
	return f.HasCenter() && f.RadiusKm != nil
}

// HasPriceBound reports whether at least one price bound is present.
func (f Filter) HasPriceBound() bool {
	return f.MinPrice != nil || f.MaxPrice != nil
}

// Specificity counts the narrowing predicates that drive the cache TTL
// policy: brand, model, city, and free-text query.
func (f Filter) Specificity() int {
	n := 0
	if f.BrandID != 0 {
		n++
	}
	if f.ModelID != 0 {
		n++
	}
	if f.CityID != 0 {
		n++
	}
	if strings.TrimSpace(f.Query) != "" {
		n++
	}
	return n
}

// Hash returns a short stable digest of the normalized filter, used to
// correlate log lines with the originating query.
func (f Filter) Hash() string {
	data, err := json.Marshal(f.Normalize())
	if err != nil {
		return "unhashable"
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8])
}

func normalizeStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil
	}
	sort.Strings(out)
	return out
}

func normalizeInt64s(in []int64) []int64 {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[int64]struct{}, len(in))
	out := make([]int64, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

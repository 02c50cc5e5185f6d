// Package profile defines the derived user preference profile driving
// personalization. Profiles are computed on demand from recent user
// activity and cached for a bounded window; this subsystem never
// persists them.
package profile

// Profile is a user's derived preference set: brand affinities, a price
// band, preferred locations, and fuel/transmission affinities.
type Profile struct {
	UserID int64 `json:"user_id"`

	BrandIDs []int64 `json:"brand_ids,omitempty"`
	CityIDs  []int64 `json:"city_ids,omitempty"`

	MinPrice float64 `json:"min_price"`
	MaxPrice float64 `json:"max_price"`

	FuelType     string `json:"fuel_type,omitempty"`
	Transmission string `json:"transmission,omitempty"`

	// ViewedListingIDs lets recommendation calls exclude already-seen
	// listings.
	ViewedListingIDs []int64 `json:"viewed_listing_ids,omitempty"`
}

// HasPriceBand reports whether enough activity existed to derive a
// usable price band.
func (p *Profile) HasPriceBand() bool {
	return p != nil && p.MaxPrice > 0
}

// PrefersBrand reports whether brandID is among the derived affinities.
func (p *Profile) PrefersBrand(brandID int64) bool {
	if p == nil {
		return false
	}
	for _, id := range p.BrandIDs {
		if id == brandID {
			return true
		}
	}
	return false
}

// PrefersCity reports whether cityID is among the derived affinities.
func (p *Profile) PrefersCity(cityID int64) bool {
	if p == nil {
		return false
	}
	for _, id := range p.CityIDs {
		if id == cityID {
			return true
		}
	}
	return false
}

// HasViewed reports whether listingID appears in the recent view set.
func (p *Profile) HasViewed(listingID int64) bool {
	if p == nil {
		return false
	}
	for _, id := range p.ViewedListingIDs {
		if id == listingID {
			return true
		}
	}
	return false
}

// Package listing holds the denormalized read projections used by the
// search and recommendation paths.
package listing

import "time"

// QualityScoreMax is the scale of the precomputed listing quality score.
const QualityScoreMax = 10.0

// SellerRatingMax is the scale of seller average ratings.
const SellerRatingMax = 5.0

// Candidate is a listing row eligible for ranking: the listing joined
// with brand/model/location/seller names plus precomputed quality and
// popularity signals. Immutable for the duration of a single search call.
type Candidate struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	BrandID  int64  `json:"brand_id"`
	ModelID  int64  `json:"model_id"`
	CityID   int64  `json:"city_id"`
	SellerID int64  `json:"seller_id"`

	BrandName string `json:"brand_name"`
	ModelName string `json:"model_name"`
	CityName  string `json:"city_name"`

	Price        float64 `json:"price"`
	Year         int     `json:"year"`
	Mileage      int     `json:"mileage"`
	FuelType     string  `json:"fuel_type"`
	Transmission string  `json:"transmission"`
	Condition    string  `json:"condition"`

	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`

	SellerName   string  `json:"seller_name"`
	SellerRating float64 `json:"seller_rating"` // 0..5

	QualityScore float64 `json:"quality_score"` // 0..10
	ViewCount    int64   `json:"view_count"`
	Featured     bool    `json:"featured"`
	BoostCount   int     `json:"boost_count"`

	FinancingAvailable bool `json:"financing_available"`
	AccidentFree       bool `json:"accident_free"`

	PostedAt time.Time `json:"posted_at"`

	// DistanceKm is attached by candidate retrieval when the filter
	// carries a geo predicate; nil otherwise.
	DistanceKm *float64 `json:"distance_km,omitempty"`
}

// Image is one listing photo, page-scoped enrichment data.
type Image struct {
	ListingID int64  `json:"listing_id"`
	URL       string `json:"url"`
	Position  int    `json:"position"`
}

// Feature is a single equipment feature attached to a listing.
type Feature struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// SellerDetail is the enriched seller projection for a result page.
type SellerDetail struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	Rating       float64 `json:"rating"`
	ReviewCount  int     `json:"review_count"`
	ListingCount int     `json:"listing_count"`
	MemberSince  string  `json:"member_since"`
}

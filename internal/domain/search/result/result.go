// Package result defines the ranked search response types.
package result

import "github.com/ridelist/searchd/internal/domain/listing"

// ScoredCandidate is a candidate with its relevance score in [0,1] and,
// when geo-filtered, a distance in kilometers. Page-scoped enrichment
// data is attached after pagination.
type ScoredCandidate struct {
	listing.Candidate

	Score float64 `json:"score"`

	Images   []listing.Image       `json:"images,omitempty"`
	Features []listing.Feature     `json:"features,omitempty"`
	Seller   *listing.SellerDetail `json:"seller,omitempty"`
}

// Facets are aggregated candidate counts grouped by filterable
// attributes, computed over the full candidate set (not the page).
type Facets struct {
	Brands        map[string]int `json:"brands,omitempty"`
	Cities        map[string]int `json:"cities,omitempty"`
	FuelTypes     map[string]int `json:"fuel_types,omitempty"`
	Transmissions map[string]int `json:"transmissions,omitempty"`
	PriceBands    map[string]int `json:"price_bands,omitempty"`
}

// Metadata describes how a response was produced.
type Metadata struct {
	QueryTimeMs  int64 `json:"query_time_ms"`
	CacheHit     bool  `json:"cache_hit"`
	Personalized bool  `json:"personalized"`
}

// Response is a ranked, paginated search result. Total always reflects
// the full ranked set size, not just the returned page.
type Response struct {
	Results    []ScoredCandidate `json:"results"`
	Total      int               `json:"total"`
	Page       int               `json:"page"`
	TotalPages int               `json:"total_pages"`
	Facets     Facets            `json:"facets"`
	Metadata   Metadata          `json:"metadata"`
}

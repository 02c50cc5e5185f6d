// Package options defines per-call search options: sort mode,
// pagination, and enrichment toggles.
package options

import "fmt"

// Sort is the active sort mode for a search call.
type Sort string

// Supported sort modes.
const (
	SortRelevance  Sort = "relevance"
	SortPrice      Sort = "price"
	SortYear       Sort = "year"
	SortMileage    Sort = "mileage"
	SortDistance   Sort = "distance"
	SortRecency    Sort = "recency"
	SortPopularity Sort = "popularity"
)

// IsValid reports whether s is a known sort mode.
func (s Sort) IsValid() bool {
	switch s {
	case SortRelevance, SortPrice, SortYear, SortMileage, SortDistance, SortRecency, SortPopularity:
		return true
	}
	return false
}

// Pagination bounds.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Options control sorting, pagination, enrichment, and personalization
// of one search call.
type Options struct {
	Sort     Sort `json:"sort,omitempty"`
	Page     int  `json:"page,omitempty"`
	PageSize int  `json:"page_size,omitempty"`

	IncludeImages   bool `json:"include_images,omitempty"`
	IncludeFeatures bool `json:"include_features,omitempty"`
	IncludeSeller   bool `json:"include_seller,omitempty"`

	// UserID is the acting user for personalization; 0 means anonymous.
	UserID int64 `json:"user_id,omitempty"`
}

// Normalize fills defaults for absent values: sort=relevance, page=1,
// page_size=20 clamped to MaxPageSize. Only zero values count as
// absent; explicitly negative paging is left for Validate to reject.
func (o Options) Normalize() Options {
	if o.Sort == "" {
		o.Sort = SortRelevance
	}
	if o.Page == 0 {
		o.Page = 1
	}
	if o.PageSize == 0 {
		o.PageSize = DefaultPageSize
	}
	if o.PageSize > MaxPageSize {
		o.PageSize = MaxPageSize
	}
	return o
}

// Validate rejects malformed options. Meant to run after Normalize for
// caller-supplied values that are explicitly out of range.
func (o Options) Validate() error {
	if !o.Sort.IsValid() {
		return fmt.Errorf("unknown sort mode %q", o.Sort)
	}
	if o.Page < 1 {
		return fmt.Errorf("page must be >= 1, got %d", o.Page)
	}
	if o.PageSize < 1 || o.PageSize > MaxPageSize {
		return fmt.Errorf("page_size must be in [1,%d], got %d", MaxPageSize, o.PageSize)
	}
	return nil
}

// Package activity defines the tracked user action projections consumed
// by preference derivation and trending.
package activity

import "time"

// Kind is a tracked action type.
type Kind string

// Tracked action kinds.
const (
	KindView     Kind = "view"
	KindFavorite Kind = "favorite"
	KindInquiry  Kind = "inquiry"
)

// Action is one tracked user action with a snapshot of the listing
// attributes at the time of the action. The snapshot keeps preference
// derivation independent of later listing edits.
type Action struct {
	UserID    int64
	ListingID int64
	Kind      Kind

	BrandID      int64
	CityID       int64
	Price        float64
	FuelType     string
	Transmission string

	CreatedAt time.Time
}

// Engagement aggregates recent action counts for one listing.
type Engagement struct {
	Views     int
	Favorites int
	Inquiries int
}

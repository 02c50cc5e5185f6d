// Package activity reads the tracked user action log consumed by
// preference derivation and trending.
package activity

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ridelist/searchd/internal/domain"
	"github.com/ridelist/searchd/internal/domain/activity"
)

// Repo reads user actions from the relational store.
type Repo struct {
	db *sql.DB
}

// New wraps an existing database handle.
func New(db *sql.DB) *Repo {
	return &Repo{db: db}
}

// RecentActions returns the user's tracked actions within the trailing
// window, newest first.
func (r *Repo) RecentActions(ctx context.Context, userID int64, windowDays int) ([]activity.Action, error) {
	since := time.Now().AddDate(0, 0, -windowDays)

	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, listing_id, action, brand_id, city_id, price, fuel_type, transmission, created_at
		FROM user_actions
		WHERE user_id = ? AND created_at >= ?
		ORDER BY created_at DESC`,
		userID, since)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch recent actions: %w", domain.ErrUpstreamUnavailable, err)
	}
	defer rows.Close()

	var out []activity.Action
	for rows.Next() {
		var a activity.Action
		var kind string
		if err := rows.Scan(&a.UserID, &a.ListingID, &kind, &a.BrandID, &a.CityID,
			&a.Price, &a.FuelType, &a.Transmission, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan action: %w", err)
		}
		a.Kind = activity.Kind(kind)
		out = append(out, a)
	}
	return out, rows.Err() //nolint:wrapcheck // plain iteration error
}

// RecentEngagement aggregates per-listing view/favorite/inquiry counts
// across all users within the trailing window.
func (r *Repo) RecentEngagement(ctx context.Context, windowDays int) (map[int64]activity.Engagement, error) {
	since := time.Now().AddDate(0, 0, -windowDays)

	rows, err := r.db.QueryContext(ctx, `
		SELECT listing_id, action, COUNT(*)
		FROM user_actions
		WHERE created_at >= ?
		GROUP BY listing_id, action`,
		since)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch engagement: %w", domain.ErrUpstreamUnavailable, err)
	}
	defer rows.Close()

	out := make(map[int64]activity.Engagement)
	for rows.Next() {
		var listingID int64
		var kind string
		var count int
		if err := rows.Scan(&listingID, &kind, &count); err != nil {
			return nil, fmt.Errorf("scan engagement: %w", err)
		}
		e := out[listingID]
		switch activity.Kind(kind) {
		case activity.KindView:
			e.Views += count
		case activity.KindFavorite:
			e.Favorites += count
		case activity.KindInquiry:
			e.Inquiries += count
		}
		out[listingID] = e
	}
	return out, rows.Err() //nolint:wrapcheck // plain iteration error
}

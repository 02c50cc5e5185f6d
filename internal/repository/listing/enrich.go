package listing

import (
	"context"
	"fmt"

	"github.com/ridelist/searchd/internal/domain"
	"github.com/ridelist/searchd/internal/domain/listing"
)

// ImagesFor returns images for the given listing ids, ordered by
// position. Meant for an already-paginated page, never the full set.
func (r *Repo) ImagesFor(ctx context.Context, ids []int64) (map[int64][]listing.Image, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `SELECT listing_id, url, position FROM listing_images
		WHERE listing_id IN (` + placeholders(len(ids)) + `) ORDER BY listing_id, position`

	rows, err := r.db.QueryContext(ctx, query, int64sToArgs(ids)...)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch images: %w", domain.ErrUpstreamUnavailable, err)
	}
	defer rows.Close()

	out := make(map[int64][]listing.Image, len(ids))
	for rows.Next() {
		var img listing.Image
		if err := rows.Scan(&img.ListingID, &img.URL, &img.Position); err != nil {
			return nil, fmt.Errorf("scan image: %w", err)
		}
		out[img.ListingID] = append(out[img.ListingID], img)
	}
	return out, rows.Err() //nolint:wrapcheck // plain iteration error
}

// FeaturesFor returns the feature list for the given listing ids.
func (r *Repo) FeaturesFor(ctx context.Context, ids []int64) (map[int64][]listing.Feature, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `SELECT lf.listing_id, f.id, f.name
		FROM listing_features lf JOIN features f ON f.id = lf.feature_id
		WHERE lf.listing_id IN (` + placeholders(len(ids)) + `) ORDER BY lf.listing_id, f.id`

	rows, err := r.db.QueryContext(ctx, query, int64sToArgs(ids)...)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch features: %w", domain.ErrUpstreamUnavailable, err)
	}
	defer rows.Close()

	out := make(map[int64][]listing.Feature, len(ids))
	for rows.Next() {
		var listingID int64
		var f listing.Feature
		if err := rows.Scan(&listingID, &f.ID, &f.Name); err != nil {
			return nil, fmt.Errorf("scan feature: %w", err)
		}
		out[listingID] = append(out[listingID], f)
	}
	return out, rows.Err() //nolint:wrapcheck // plain iteration error
}

// SellersFor returns the enriched seller projection keyed by listing id.
func (r *Repo) SellersFor(ctx context.Context, ids []int64) (map[int64]listing.SellerDetail, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `SELECT l.id, s.id, s.name, s.rating, s.review_count, s.listing_count, s.member_since
		FROM listings l JOIN sellers s ON s.id = l.seller_id
		WHERE l.id IN (` + placeholders(len(ids)) + `)`

	rows, err := r.db.QueryContext(ctx, query, int64sToArgs(ids)...)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch sellers: %w", domain.ErrUpstreamUnavailable, err)
	}
	defer rows.Close()

	out := make(map[int64]listing.SellerDetail, len(ids))
	for rows.Next() {
		var listingID int64
		var s listing.SellerDetail
		if err := rows.Scan(&listingID, &s.ID, &s.Name, &s.Rating, &s.ReviewCount, &s.ListingCount, &s.MemberSince); err != nil {
			return nil, fmt.Errorf("scan seller: %w", err)
		}
		out[listingID] = s
	}
	return out, rows.Err() //nolint:wrapcheck // plain iteration error
}

func int64sToArgs(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

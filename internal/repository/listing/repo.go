// Package listing is the relational candidate-retrieval repository. It
// translates a structured filter into a parameterized query and returns
// typed candidate projections, constructed once at this boundary.
package listing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite" // pure-Go sqlite driver

	"github.com/ridelist/searchd/internal/domain"
	"github.com/ridelist/searchd/internal/domain/geo"
	"github.com/ridelist/searchd/internal/domain/listing"
	"github.com/ridelist/searchd/internal/domain/search/filter"
)

// Repo retrieves listing candidates from the relational store.
type Repo struct {
	db *sql.DB
}

// Open opens (or creates) the sqlite listing store at path and applies
// the schema. Use ":memory:" for tests.
func Open(path string) (*Repo, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open listing store: %w", err)
	}

	// WAL for concurrent readers alongside the single writer.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := Migrate(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Repo{db: db}, nil
}

// New wraps an existing database handle.
func New(db *sql.DB) *Repo {
	return &Repo{db: db}
}

// Close closes the underlying handle.
func (r *Repo) Close() error {
	return r.db.Close() //nolint:wrapcheck // delegating close
}

// DB exposes the underlying handle so sibling repositories can share
// one connection pool.
func (r *Repo) DB() *sql.DB {
	return r.db
}

const candidateColumns = `
	l.id, l.title, l.brand_id, l.model_id, l.city_id, l.seller_id,
	b.name, m.name, c.name,
	l.price, l.year, l.mileage, l.fuel_type, l.transmission, l.condition,
	l.latitude, l.longitude,
	s.name, s.rating,
	l.quality_score, l.view_count, l.featured, l.boost_count,
	l.financing_available, l.accident_free, l.posted_at`

const candidateJoins = `
	FROM listings l
	JOIN brands b ON b.id = l.brand_id
	JOIN models m ON m.id = l.model_id
	JOIN cities c ON c.id = l.city_id
	JOIN sellers s ON s.id = l.seller_id`

// Retrieve returns the unranked candidate set matching the filter. Each
// predicate becomes a conjunctive condition; array-valued predicates are
// set memberships; the feature predicate requires ALL listed features.
// Only approved, active, non-deleted listings are eligible.
//
// A geo predicate applies a coarse bounding-box prefilter in SQL, then
// exact haversine filtering in Go, attaching the computed distance to
// every surviving row. A radius without a center degrades to no geo
// clause per the filter contract.
func (r *Repo) Retrieve(ctx context.Context, f filter.Filter) ([]listing.Candidate, error) {
	f = f.Normalize()

	b := &predicateBuilder{}
	b.add("l.status = ?", "approved")
	b.add("l.is_active = 1")
	b.add("l.deleted_at IS NULL")

	if f.Query != "" {
		like := "%" + f.Query + "%"
		b.add("(lower(l.title) LIKE ? OR lower(b.name) LIKE ? OR lower(m.name) LIKE ?)", like, like, like)
	}
	if f.BrandID != 0 {
		b.add("l.brand_id = ?", f.BrandID)
	}
	if f.ModelID != 0 {
		b.add("l.model_id = ?", f.ModelID)
	}
	if f.CityID != 0 {
		b.add("l.city_id = ?", f.CityID)
	}
	if f.MinPrice != nil {
		b.add("l.price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		b.add("l.price <= ?", *f.MaxPrice)
	}
	if f.MinYear != nil {
		b.add("l.year >= ?", *f.MinYear)
	}
	if f.MaxYear != nil {
		b.add("l.year <= ?", *f.MaxYear)
	}
	if f.MaxMileage != nil {
		b.add("l.mileage <= ?", *f.MaxMileage)
	}
	b.addIn("l.fuel_type", f.FuelTypes)
	b.addIn("l.transmission", f.Transmissions)
	b.addIn("l.condition", f.Conditions)
	if f.FinancingAvailable != nil && *f.FinancingAvailable {
		b.add("l.financing_available = 1")
	}
	if f.AccidentFree != nil && *f.AccidentFree {
		b.add("l.accident_free = 1")
	}
	if f.MinSellerRating != nil {
		b.add("s.rating >= ?", *f.MinSellerRating)
	}
	if f.PostedAfter != nil {
		b.add("l.posted_at >= ?", *f.PostedAfter)
	}
	if f.PostedBefore != nil {
		b.add("l.posted_at <= ?", *f.PostedBefore)
	}

	// Intersection semantics: the listing must carry every requested
	// feature, enforced by a distinct count equal to the set size.
	if len(f.FeatureIDs) > 0 {
		sub := `l.id IN (
			SELECT listing_id FROM listing_features
			WHERE feature_id IN (` + placeholders(len(f.FeatureIDs)) + `)
			GROUP BY listing_id
			HAVING COUNT(DISTINCT feature_id) = ?)`
		args := make([]any, 0, len(f.FeatureIDs)+1)
		for _, id := range f.FeatureIDs {
			args = append(args, id)
		}
		args = append(args, len(f.FeatureIDs))
		b.add(sub, args...)
	}

	if f.HasGeo() {
		box := geo.BoxAround(geo.Point{Lat: *f.Latitude, Lon: *f.Longitude}, *f.RadiusKm)
		b.add("l.latitude IS NOT NULL AND l.longitude IS NOT NULL")
		b.add("l.latitude BETWEEN ? AND ?", box.MinLat, box.MaxLat)
		b.add("l.longitude BETWEEN ? AND ?", box.MinLon, box.MaxLon)
	}

	// Deterministic retrieval order; ranking relies on it for stable
	// tie-breaking.
	query := "SELECT" + candidateColumns + candidateJoins + " WHERE " + b.sql() + " ORDER BY l.id"

	rows, err := r.db.QueryContext(ctx, query, b.args...)
	if err != nil {
		return nil, fmt.Errorf("%w: retrieve candidates: %w", domain.ErrUpstreamUnavailable, err)
	}
	defer rows.Close()

	var out []listing.Candidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate candidates: %w", domain.ErrUpstreamUnavailable, err)
	}

	if f.HasCenter() {
		out = attachDistances(out, geo.Point{Lat: *f.Latitude, Lon: *f.Longitude}, f.RadiusKm)
	}

	return out, nil
}

// Get returns a single candidate by id regardless of filter predicates,
// still honoring the eligibility gate.
func (r *Repo) Get(ctx context.Context, id int64) (*listing.Candidate, error) {
	query := "SELECT" + candidateColumns + candidateJoins +
		" WHERE l.id = ? AND l.status = 'approved' AND l.is_active = 1 AND l.deleted_at IS NULL"

	row := r.db.QueryRowContext(ctx, query, id)
	c, err := scanCandidate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("listing %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get listing %d: %w", domain.ErrUpstreamUnavailable, id, err)
	}
	return &c, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanCandidate(s scanner) (listing.Candidate, error) {
	var c listing.Candidate
	var lat, lon sql.NullFloat64
	var featured, financing, accidentFree int

	err := s.Scan(
		&c.ID, &c.Title, &c.BrandID, &c.ModelID, &c.CityID, &c.SellerID,
		&c.BrandName, &c.ModelName, &c.CityName,
		&c.Price, &c.Year, &c.Mileage, &c.FuelType, &c.Transmission, &c.Condition,
		&lat, &lon,
		&c.SellerName, &c.SellerRating,
		&c.QualityScore, &c.ViewCount, &featured, &c.BoostCount,
		&financing, &accidentFree, &c.PostedAt,
	)
	if err != nil {
		return listing.Candidate{}, err //nolint:wrapcheck // callers add context
	}

	if lat.Valid && lon.Valid {
		c.Latitude = &lat.Float64
		c.Longitude = &lon.Float64
	}
	c.Featured = featured != 0
	c.FinancingAvailable = financing != 0
	c.AccidentFree = accidentFree != 0
	return c, nil
}

// attachDistances computes exact great-circle distance from the center
// for every candidate with coordinates and, when a radius is present,
// drops candidates outside it (the SQL bounding box is only coarse).
func attachDistances(cands []listing.Candidate, center geo.Point, radiusKm *float64) []listing.Candidate {
	out := cands[:0]
	for _, c := range cands {
		if c.Latitude == nil || c.Longitude == nil {
			if radiusKm == nil {
				out = append(out, c)
			}
			continue
		}
		d := geo.Distance(center, geo.Point{Lat: *c.Latitude, Lon: *c.Longitude})
		if radiusKm != nil && d > *radiusKm {
			continue
		}
		dist := d
		c.DistanceKm = &dist
		out = append(out, c)
	}
	return out
}

package listing

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is the relational layout of the listing read store. Kept as a
// single idempotent script so tests and dev environments can build an
// in-memory database.
const schema = `
CREATE TABLE IF NOT EXISTS brands (
	id   INTEGER PRIMARY KEY,
	name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS models (
	id       INTEGER PRIMARY KEY,
	brand_id INTEGER NOT NULL REFERENCES brands(id),
	name     TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS cities (
	id        INTEGER PRIMARY KEY,
	name      TEXT NOT NULL,
	latitude  REAL,
	longitude REAL
);

CREATE TABLE IF NOT EXISTS sellers (
	id            INTEGER PRIMARY KEY,
	name          TEXT NOT NULL,
	rating        REAL NOT NULL DEFAULT 0,
	review_count  INTEGER NOT NULL DEFAULT 0,
	listing_count INTEGER NOT NULL DEFAULT 0,
	member_since  TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS listings (
	id                  INTEGER PRIMARY KEY,
	title               TEXT NOT NULL,
	brand_id            INTEGER NOT NULL REFERENCES brands(id),
	model_id            INTEGER NOT NULL REFERENCES models(id),
	city_id             INTEGER NOT NULL REFERENCES cities(id),
	seller_id           INTEGER NOT NULL REFERENCES sellers(id),
	price               REAL NOT NULL,
	year                INTEGER NOT NULL,
	mileage             INTEGER NOT NULL DEFAULT 0,
	fuel_type           TEXT NOT NULL,
	transmission        TEXT NOT NULL,
	condition           TEXT NOT NULL,
	latitude            REAL,
	longitude           REAL,
	quality_score       REAL NOT NULL DEFAULT 0,
	view_count          INTEGER NOT NULL DEFAULT 0,
	featured            INTEGER NOT NULL DEFAULT 0,
	boost_count         INTEGER NOT NULL DEFAULT 0,
	financing_available INTEGER NOT NULL DEFAULT 0,
	accident_free       INTEGER NOT NULL DEFAULT 0,
	status              TEXT NOT NULL DEFAULT 'pending',
	is_active           INTEGER NOT NULL DEFAULT 1,
	deleted_at          TIMESTAMP,
	posted_at           TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_listings_status ON listings(status, is_active);
CREATE INDEX IF NOT EXISTS idx_listings_brand ON listings(brand_id);
CREATE INDEX IF NOT EXISTS idx_listings_city ON listings(city_id);
CREATE INDEX IF NOT EXISTS idx_listings_price ON listings(price);

CREATE TABLE IF NOT EXISTS features (
	id   INTEGER PRIMARY KEY,
	name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS listing_features (
	listing_id INTEGER NOT NULL REFERENCES listings(id),
	feature_id INTEGER NOT NULL REFERENCES features(id),
	PRIMARY KEY (listing_id, feature_id)
);

CREATE TABLE IF NOT EXISTS listing_images (
	listing_id INTEGER NOT NULL REFERENCES listings(id),
	url        TEXT NOT NULL,
	position   INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS user_actions (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id      INTEGER NOT NULL,
	listing_id   INTEGER NOT NULL,
	action       TEXT NOT NULL,
	brand_id     INTEGER NOT NULL DEFAULT 0,
	city_id      INTEGER NOT NULL DEFAULT 0,
	price        REAL NOT NULL DEFAULT 0,
	fuel_type    TEXT NOT NULL DEFAULT '',
	transmission TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_user_actions_user ON user_actions(user_id, created_at);
CREATE INDEX IF NOT EXISTS idx_user_actions_listing ON user_actions(listing_id, created_at);
`

// Migrate applies the schema. Safe to run repeatedly.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply listing schema: %w", err)
	}
	return nil
}

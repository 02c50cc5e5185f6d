package activity

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domainactivity "github.com/ridelist/searchd/internal/domain/activity"
	listingrepo "github.com/ridelist/searchd/internal/repository/listing"
)

func newTestRepo(t *testing.T) (*Repo, *sql.DB) {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, listingrepo.Migrate(context.Background(), db))
	return New(db), db
}

func insertAction(t *testing.T, db *sql.DB, userID, listingID int64, kind string, age time.Duration) {
	t.Helper()
	_, err := db.Exec(`
		INSERT INTO user_actions (user_id, listing_id, action, brand_id, city_id, price, fuel_type, transmission, created_at)
		VALUES (?, ?, ?, 1, 1, 650000, 'gasoline', 'automatic', ?)`,
		userID, listingID, kind, time.Now().Add(-age))
	require.NoError(t, err)
}

func TestRecentActions_WindowAndUserScoped(t *testing.T) {
	repo, db := newTestRepo(t)

	insertAction(t, db, 42, 1, "view", 24*time.Hour)
	insertAction(t, db, 42, 2, "favorite", 48*time.Hour)
	insertAction(t, db, 42, 3, "view", 120*24*time.Hour) // outside the window
	insertAction(t, db, 7, 4, "view", 24*time.Hour)      // different user

	got, err := repo.RecentActions(context.Background(), 42, 90)
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Newest first.
	require.Equal(t, int64(1), got[0].ListingID)
	require.Equal(t, domainactivity.KindView, got[0].Kind)
	require.Equal(t, int64(2), got[1].ListingID)
	require.Equal(t, domainactivity.KindFavorite, got[1].Kind)

	// Attribute snapshot comes back intact.
	require.Equal(t, int64(1), got[0].BrandID)
	require.Equal(t, 650000.0, got[0].Price)
}

func TestRecentActions_NoActivity(t *testing.T) {
	repo, _ := newTestRepo(t)

	got, err := repo.RecentActions(context.Background(), 42, 90)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestRecentEngagement_AggregatesPerListing(t *testing.T) {
	repo, db := newTestRepo(t)

	insertAction(t, db, 1, 10, "view", time.Hour)
	insertAction(t, db, 2, 10, "view", time.Hour)
	insertAction(t, db, 3, 10, "favorite", time.Hour)
	insertAction(t, db, 1, 20, "inquiry", time.Hour)
	insertAction(t, db, 1, 30, "view", 30*24*time.Hour) // outside the window

	got, err := repo.RecentEngagement(context.Background(), 7)
	require.NoError(t, err)

	require.Equal(t, domainactivity.Engagement{Views: 2, Favorites: 1}, got[10])
	require.Equal(t, domainactivity.Engagement{Inquiries: 1}, got[20])
	require.NotContains(t, got, int64(30))
}

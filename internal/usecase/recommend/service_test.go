package recommend

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/ridelist/searchd/internal/domain/activity"
	"github.com/ridelist/searchd/internal/domain/listing"
)

func testCandidates() []listing.Candidate {
	return []listing.Candidate{
		{ID: 1, Title: "Toyota Vios", BrandID: 1, ModelID: 11, CityID: 1, SellerID: 100,
			Price: 650000, Year: 2020, FuelType: "gasoline", Transmission: "automatic",
			QualityScore: 8, SellerRating: 4.5},
		{ID: 2, Title: "Toyota Corolla", BrandID: 1, ModelID: 12, CityID: 1, SellerID: 101,
			Price: 700000, Year: 2019, FuelType: "gasoline", Transmission: "automatic",
			QualityScore: 7, SellerRating: 4.0},
		{ID: 3, Title: "Ford Ranger", BrandID: 3, ModelID: 31, CityID: 2, SellerID: 102,
			Price: 1200000, Year: 2021, FuelType: "diesel", Transmission: "manual",
			QualityScore: 9, SellerRating: 4.8},
	}
}

func TestRecommend_PrefersProfileMatches(t *testing.T) {
	listings := &mockListings{candidates: testCandidates()}
	acts := &mockActivity{actions: []activity.Action{
		viewAction(42, 99, 1, 650000), // brand 1, gasoline, automatic
	}}
	svc := New(listings, acts, newMockCache(), nil)

	got, err := svc.Recommend(context.Background(), 42, Options{Limit: 3})
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if len(got) == 0 {
		t.Fatal("empty recommendations")
	}
	if got[0].BrandID != 1 {
		t.Errorf("top recommendation brand = %d, want profile brand 1", got[0].BrandID)
	}
}

func TestRecommend_ExcludesOwnAndViewedListings(t *testing.T) {
	cands := testCandidates()
	cands[0].SellerID = 42 // user's own listing
	listings := &mockListings{candidates: cands}
	acts := &mockActivity{actions: []activity.Action{
		viewAction(42, 2, 1, 650000), // listing 2 already viewed
	}}
	svc := New(listings, acts, newMockCache(), nil)

	got, err := svc.Recommend(context.Background(), 42, Options{Limit: 10})
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	for _, r := range got {
		if r.SellerID == 42 {
			t.Errorf("listing %d belongs to the acting user", r.ID)
		}
		if r.ID == 2 {
			t.Error("already-viewed listing 2 returned")
		}
	}
}

func TestRecommend_NoActivityFallsBackToTrending(t *testing.T) {
	listings := &mockListings{candidates: testCandidates()}
	acts := &mockActivity{engagement: map[int64]activity.Engagement{
		3: {Views: 100, Favorites: 10, Inquiries: 5},
	}}
	svc := New(listings, acts, newMockCache(), nil)

	got, err := svc.Recommend(context.Background(), 7, Options{Limit: 3})
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if len(got) == 0 {
		t.Fatal("empty fallback")
	}
	if got[0].ID != 3 {
		t.Errorf("top fallback = %d, want the most engaged listing 3", got[0].ID)
	}
}

func TestRecommend_SecondCallServedFromCache(t *testing.T) {
	listings := &mockListings{candidates: testCandidates()}
	acts := &mockActivity{actions: []activity.Action{viewAction(42, 99, 1, 650000)}}
	svc := New(listings, acts, newMockCache(), nil)

	if _, err := svc.Recommend(context.Background(), 42, Options{}); err != nil {
		t.Fatal(err)
	}
	calls := listings.retrieveCalls

	if _, err := svc.Recommend(context.Background(), 42, Options{}); err != nil {
		t.Fatal(err)
	}
	if listings.retrieveCalls != calls {
		t.Errorf("retrieve calls grew from %d to %d on a cached call", calls, listings.retrieveCalls)
	}
}

func TestSimilarTo_RanksSameModelAboveSameBrand(t *testing.T) {
	ref := listing.Candidate{ID: 10, BrandID: 1, ModelID: 11, SellerID: 200,
		Price: 650000, Year: 2020, FuelType: "gasoline", Transmission: "automatic"}
	sameModel := listing.Candidate{ID: 11, BrandID: 1, ModelID: 11, SellerID: 201,
		Price: 640000, Year: 2020, FuelType: "gasoline", Transmission: "automatic"}
	sameBrand := listing.Candidate{ID: 12, BrandID: 1, ModelID: 12, SellerID: 202,
		Price: 640000, Year: 2020, FuelType: "gasoline", Transmission: "automatic"}

	listings := &mockListings{candidates: []listing.Candidate{ref, sameModel, sameBrand}}
	svc := New(listings, &mockActivity{}, newMockCache(), nil)

	got, err := svc.SimilarTo(context.Background(), 10, Options{Limit: 5})
	if err != nil {
		t.Fatalf("similarTo: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d results, want 2", len(got))
	}
	if got[0].ID != 11 {
		t.Errorf("top similar = %d, want same-model listing 11", got[0].ID)
	}
}

func TestSimilarTo_ExcludesReferenceAndItsSeller(t *testing.T) {
	cands := testCandidates()
	sibling := cands[0]
	sibling.ID = 99 // same seller as the reference
	listings := &mockListings{candidates: append(cands, sibling)}
	svc := New(listings, &mockActivity{}, newMockCache(), nil)

	got, err := svc.SimilarTo(context.Background(), 1, Options{Limit: 10})
	if err != nil {
		t.Fatalf("similarTo: %v", err)
	}
	for _, r := range got {
		if r.ID == 1 {
			t.Error("reference listing returned")
		}
		if r.SellerID == 100 {
			t.Errorf("listing %d from the reference seller returned", r.ID)
		}
	}
}

func TestSimilarTo_UnknownReference(t *testing.T) {
	svc := New(&mockListings{}, &mockActivity{}, newMockCache(), nil)

	if _, err := svc.SimilarTo(context.Background(), 404, Options{}); err == nil {
		t.Fatal("want error for unknown reference listing")
	}
}

func TestSimilarityScore_Terms(t *testing.T) {
	ref := listing.Candidate{BrandID: 1, ModelID: 11, Price: 1000000, Year: 2020,
		FuelType: "gasoline", Transmission: "automatic"}

	identical := ref
	if got := SimilarityScore(identical, ref); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("identical listing score = %f, want 1.0", got)
	}

	unrelated := listing.Candidate{BrandID: 9, ModelID: 99, Price: 3000000, Year: 2005,
		FuelType: "diesel", Transmission: "manual"}
	if got := SimilarityScore(unrelated, ref); got != 0 {
		t.Errorf("unrelated listing score = %f, want 0", got)
	}

	sameBrandOnly := listing.Candidate{BrandID: 1, ModelID: 12, Price: 3000000, Year: 2005,
		FuelType: "diesel", Transmission: "manual"}
	want := simModelBrandWeight * simSameBrand
	if got := SimilarityScore(sameBrandOnly, ref); math.Abs(got-want) > 1e-9 {
		t.Errorf("same-brand-only score = %f, want %f", got, want)
	}
}

func TestTrending_OrderedByEngagement(t *testing.T) {
	listings := &mockListings{candidates: testCandidates()}
	acts := &mockActivity{engagement: map[int64]activity.Engagement{
		1: {Views: 10},
		2: {Views: 5, Inquiries: 10}, // 5 + 50 = 55
		3: {Favorites: 2},            // 6
	}}
	svc := New(listings, acts, newMockCache(), nil)

	got, err := svc.Trending(context.Background(), 3)
	if err != nil {
		t.Fatalf("trending: %v", err)
	}
	wantOrder := []int64{2, 1, 3}
	for i, want := range wantOrder {
		if got[i].ID != want {
			t.Fatalf("position %d = listing %d, want %d (order %v)", i, got[i].ID, want, wantOrder)
		}
	}
}

func TestTrending_PromotionalBonuses(t *testing.T) {
	quiet := listing.Candidate{ID: 1}
	featured := listing.Candidate{ID: 2, Featured: true, BoostCount: 2}

	if TrendingScore(featured, activity.Engagement{}) <= TrendingScore(quiet, activity.Engagement{Views: 30}) {
		t.Error("featured+boosted listing should outrank 30 plain views")
	}
}

func TestTrending_SecondCallServedFromCache(t *testing.T) {
	listings := &mockListings{candidates: testCandidates()}
	acts := &mockActivity{engagement: map[int64]activity.Engagement{1: {Views: 1}}}
	svc := New(listings, acts, newMockCache(), nil)

	if _, err := svc.Trending(context.Background(), 3); err != nil {
		t.Fatal(err)
	}
	calls := listings.retrieveCalls

	if _, err := svc.Trending(context.Background(), 3); err != nil {
		t.Fatal(err)
	}
	if listings.retrieveCalls != calls {
		t.Errorf("retrieve calls grew from %d to %d on a cached call", calls, listings.retrieveCalls)
	}
}

func TestRefreshTrending_KeepsStaleEntryOnComputeFailure(t *testing.T) {
	listings := &mockListings{candidates: testCandidates()}
	acts := &mockActivity{engagement: map[int64]activity.Engagement{1: {Views: 1}}}
	cache := newMockCache()
	svc := New(listings, acts, cache, nil)

	if _, err := svc.Trending(context.Background(), 3); err != nil {
		t.Fatal(err)
	}
	warm := string(cache.data[trendingKey])

	listings.retrieveErr = errors.New("listing store down")
	if err := svc.RefreshTrending(context.Background()); err != nil {
		t.Fatalf("refresh with warm cache must fall back, got %v", err)
	}
	if string(cache.data[trendingKey]) != warm {
		t.Error("stale trending entry was lost")
	}

	// Without a previous entry the failure surfaces.
	delete(cache.data, trendingKey)
	if err := svc.RefreshTrending(context.Background()); err == nil {
		t.Fatal("refresh with cold cache must report the compute failure")
	}
}

func TestRefreshTrending_OverwritesCachedEntry(t *testing.T) {
	listings := &mockListings{candidates: testCandidates()}
	acts := &mockActivity{engagement: map[int64]activity.Engagement{1: {Views: 1}}}
	cache := newMockCache()
	svc := New(listings, acts, cache, nil)

	if _, err := svc.Trending(context.Background(), 3); err != nil {
		t.Fatal(err)
	}
	before := string(cache.data[trendingKey])

	acts.engagement = map[int64]activity.Engagement{3: {Inquiries: 50}}
	if err := svc.RefreshTrending(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if string(cache.data[trendingKey]) == before {
		t.Error("refresh did not overwrite the cached trending entry")
	}
}

func TestInvalidateProfile_ForcesRederivation(t *testing.T) {
	listings := &mockListings{candidates: testCandidates()}
	acts := &mockActivity{actions: []activity.Action{viewAction(42, 99, 1, 650000)}}
	cache := newMockCache()
	svc := New(listings, acts, cache, nil)

	if _, err := svc.Recommend(context.Background(), 42, Options{}); err != nil {
		t.Fatal(err)
	}
	if len(cache.data) == 0 {
		t.Fatal("expected cached profile and recommendations")
	}

	if err := svc.InvalidateProfile(context.Background(), 42); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, ok := cache.data[fmt.Sprintf(profileKeyFmt, int64(42))]; ok {
		t.Error("profile entry survived invalidation")
	}
	if _, ok := cache.data[fmt.Sprintf(recommendKeyFmt, int64(42))]; ok {
		t.Error("recommendation entry survived invalidation")
	}

	// Idempotent.
	if err := svc.InvalidateProfile(context.Background(), 42); err != nil {
		t.Errorf("second invalidate: %v", err)
	}
}

func TestRecommend_ActivitySourceFailurePropagates(t *testing.T) {
	svc := New(&mockListings{}, &mockActivity{err: errors.New("log store down")}, newMockCache(), nil)

	if _, err := svc.Recommend(context.Background(), 42, Options{}); err == nil {
		t.Fatal("want activity failure to surface")
	}
}

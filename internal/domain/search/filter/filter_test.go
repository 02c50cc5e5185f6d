package filter

import (
	"reflect"
	"testing"
)

func f64(v float64) *float64 { return &v }

func TestNormalize_Canonicalizes(t *testing.T) {
	f := Filter{
		Query:      "  Toyota VIOS ",
		FuelTypes:  []string{"Diesel", " gasoline", "diesel", ""},
		FeatureIDs: []int64{3, 1, 2, 1},
	}

	n := f.Normalize()
	if n.Query != "toyota vios" {
		t.Errorf("query = %q", n.Query)
	}
	if !reflect.DeepEqual(n.FuelTypes, []string{"diesel", "gasoline"}) {
		t.Errorf("fuel_types = %v", n.FuelTypes)
	}
	if !reflect.DeepEqual(n.FeatureIDs, []int64{1, 2, 3}) {
		t.Errorf("feature_ids = %v", n.FeatureIDs)
	}
}

func TestNormalize_EmptySlicesBecomeNil(t *testing.T) {
	f := Filter{FuelTypes: []string{}, Conditions: []string{"  "}}
	n := f.Normalize()
	if n.FuelTypes != nil || n.Conditions != nil {
		t.Errorf("empty slices should normalize to nil: %+v", n)
	}
}

func TestHash_StableAcrossEquivalentFilters(t *testing.T) {
	a := Filter{Query: "VIOS", FuelTypes: []string{"b", "a"}}
	b := Filter{Query: "vios ", FuelTypes: []string{"a", "b"}}
	if a.Hash() != b.Hash() {
		t.Error("equivalent filters hash differently")
	}

	c := Filter{Query: "civic"}
	if a.Hash() == c.Hash() {
		t.Error("different filters collide")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		f       Filter
		wantErr bool
	}{
		{"empty", Filter{}, false},
		{"negative radius", Filter{RadiusKm: f64(-1)}, true},
		{"negative min price", Filter{MinPrice: f64(-1)}, true},
		{"inverted price band", Filter{MinPrice: f64(100), MaxPrice: f64(50)}, true},
		{"latitude out of range", Filter{Latitude: f64(91)}, true},
		{"longitude out of range", Filter{Longitude: f64(-181)}, true},
		{"both coordinates out of range", Filter{Latitude: f64(-91), Longitude: f64(181)}, true},
		{"boundary coordinates", Filter{Latitude: f64(90), Longitude: f64(-180)}, false},
		{"rating above scale", Filter{MinSellerRating: f64(5.5)}, true},
		{"valid geo", Filter{Latitude: f64(14.6), Longitude: f64(121.0), RadiusKm: f64(25)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.f.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestHasGeo(t *testing.T) {
	if (Filter{RadiusKm: f64(10)}).HasGeo() {
		t.Error("radius without center must not count as geo")
	}
	if !(Filter{Latitude: f64(14.6), Longitude: f64(121.0), RadiusKm: f64(10)}).HasGeo() {
		t.Error("full geo predicate not detected")
	}
}

func TestSpecificity(t *testing.T) {
	if got := (Filter{}).Specificity(); got != 0 {
		t.Errorf("empty filter specificity = %d", got)
	}
	full := Filter{Query: "vios", BrandID: 1, ModelID: 2, CityID: 3, MinPrice: f64(1)}
	if got := full.Specificity(); got != 4 {
		t.Errorf("specificity = %d, want 4 (price bound does not count)", got)
	}
}

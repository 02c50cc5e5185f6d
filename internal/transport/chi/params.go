package chi

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ridelist/searchd/internal/domain/search/filter"
	"github.com/ridelist/searchd/internal/domain/search/options"
)

// filterFromQuery maps URL query parameters onto the structured filter.
// Unknown parameters are ignored; malformed values are rejected.
func filterFromQuery(q url.Values) (filter.Filter, error) {
	var f filter.Filter
	var err error

	f.Query = q.Get("q")

	if f.BrandID, err = int64Query(q, "brand_id"); err != nil {
		return f, err
	}
	if f.ModelID, err = int64Query(q, "model_id"); err != nil {
		return f, err
	}
	if f.CityID, err = int64Query(q, "city_id"); err != nil {
		return f, err
	}

	if f.MinPrice, err = floatPtrQuery(q, "min_price"); err != nil {
		return f, err
	}
	if f.MaxPrice, err = floatPtrQuery(q, "max_price"); err != nil {
		return f, err
	}
	if f.MinYear, err = intPtrQuery(q, "min_year"); err != nil {
		return f, err
	}
	if f.MaxYear, err = intPtrQuery(q, "max_year"); err != nil {
		return f, err
	}
	if f.MaxMileage, err = intPtrQuery(q, "max_mileage"); err != nil {
		return f, err
	}

	f.FuelTypes = csvQuery(q, "fuel_types")
	f.Transmissions = csvQuery(q, "transmissions")
	f.Conditions = csvQuery(q, "conditions")
	if f.FeatureIDs, err = int64CSVQuery(q, "feature_ids"); err != nil {
		return f, err
	}

	if f.Latitude, err = floatPtrQuery(q, "lat"); err != nil {
		return f, err
	}
	if f.Longitude, err = floatPtrQuery(q, "lon"); err != nil {
		return f, err
	}
	if f.RadiusKm, err = floatPtrQuery(q, "radius_km"); err != nil {
		return f, err
	}

	if f.MinSellerRating, err = floatPtrQuery(q, "min_seller_rating"); err != nil {
		return f, err
	}

	if q.Get("financing_available") == "true" {
		v := true
		f.FinancingAvailable = &v
	}
	if q.Get("accident_free") == "true" {
		v := true
		f.AccidentFree = &v
	}

	return f, nil
}

func optionsFromQuery(q url.Values) (options.Options, error) {
	var o options.Options
	var err error

	o.Sort = options.Sort(q.Get("sort"))

	var page, size *int
	if page, err = intPtrQuery(q, "page"); err != nil {
		return o, err
	}
	if size, err = intPtrQuery(q, "page_size"); err != nil {
		return o, err
	}
	// An absent parameter takes the default; an explicit value below 1
	// is rejected here because 0 is indistinguishable from absent once
	// it lands in the options struct.
	if page != nil {
		if *page < 1 {
			return o, fmt.Errorf("page must be >= 1, got %d", *page)
		}
		o.Page = *page
	}
	if size != nil {
		if *size < 1 {
			return o, fmt.Errorf("page_size must be >= 1, got %d", *size)
		}
		o.PageSize = *size
	}

	o.IncludeImages = boolQuery(q, "include_images")
	o.IncludeFeatures = boolQuery(q, "include_features")
	o.IncludeSeller = boolQuery(q, "include_seller")

	if o.UserID, err = int64Query(q, "user_id"); err != nil {
		return o, err
	}
	return o, nil
}

func int64Param(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", name, raw)
	}
	return v, nil
}

func int64Query(q url.Values, name string) (int64, error) {
	raw := q.Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", name, raw)
	}
	return v, nil
}

func intQuery(q url.Values, name string, def int) int {
	raw := q.Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

func intPtrQuery(q url.Values, name string) (*int, error) {
	raw := q.Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("%s must be an integer, got %q", name, raw)
	}
	return &v, nil
}

func floatPtrQuery(q url.Values, name string) (*float64, error) {
	raw := q.Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("%s must be a number, got %q", name, raw)
	}
	return &v, nil
}

func boolQuery(q url.Values, name string) bool {
	return q.Get(name) == "true"
}

func csvQuery(q url.Values, name string) []string {
	raw := q.Get(name)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func int64CSVQuery(q url.Values, name string) ([]int64, error) {
	raw := csvQuery(q, name)
	if raw == nil {
		return nil, nil
	}
	out := make([]int64, len(raw))
	for i, p := range raw {
		v, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s must be comma-separated integers, got %q", name, p)
		}
		out[i] = v
	}
	return out, nil
}

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Cache tier labels.
const (
	TierL1 = "l1"
	TierL2 = "l2"
)

var (
	cacheRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "searchd",
			Name:      "cache_requests_total",
			Help:      "Cache lookups by tier and outcome",
		},
		[]string{"tier", "outcome"},
	)

	cacheInvalidationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "searchd",
			Name:      "cache_invalidations_total",
			Help:      "Keys evicted through explicit invalidation",
		},
	)

	searchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "searchd",
			Name:      "search_duration_seconds",
			Help:      "End-to-end search call duration",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"cache"},
	)
)

func init() {
	prometheus.MustRegister(cacheRequestsTotal)
	prometheus.MustRegister(cacheInvalidationsTotal)
	prometheus.MustRegister(searchDuration)
}

// CacheHit counts a lookup served by the given tier.
func CacheHit(tier string) {
	cacheRequestsTotal.WithLabelValues(tier, "hit").Inc()
}

// CacheMiss counts a lookup the given tier could not serve.
func CacheMiss(tier string) {
	cacheRequestsTotal.WithLabelValues(tier, "miss").Inc()
}

// CacheError counts a failed lookup against the given tier, including
// undecodable values (treated as misses by the caller).
func CacheError(tier string) {
	cacheRequestsTotal.WithLabelValues(tier, "error").Inc()
}

// CacheInvalidated counts keys removed by explicit invalidation.
func CacheInvalidated(n int) {
	cacheInvalidationsTotal.Add(float64(n))
}

// ObserveSearch records one search call duration with its cache outcome.
func ObserveSearch(d time.Duration, cacheHit bool) {
	outcome := "miss"
	if cacheHit {
		outcome = "hit"
	}
	searchDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

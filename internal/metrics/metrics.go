package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HierarchyFetchTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bizdir_hierarchy_fetch_total",
		Help: "Hierarchy catalog fetches by entity kind, source and result",
	}, []string{"kind", "source", "result"})
	MatcherResultTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bizdir_matcher_result_total",
		Help: "Cascading matcher outcomes by level and strategy (exact, substring, remote, miss)",
	}, []string{"level", "strategy"})
	GeocodeRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bizdir_geocode_requests_total",
		Help: "Reverse-geocode provider calls by provider and result",
	}, []string{"provider", "result"})
	GeocodeDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bizdir_geocode_duration_ms",
		Help:    "Reverse-geocode provider call duration in milliseconds",
		Buckets: []float64{5, 10, 20, 50, 100, 200, 500, 1000, 2000, 5000},
	}, []string{"provider"})
	ResolutionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bizdir_location_resolutions_total",
		Help: "Completed detection runs by outcome (resolved/unresolved) and level or reason",
	}, []string{"outcome", "detail"})
	SearchFallbackTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bizdir_search_fallback_total",
		Help: "Location-scoped searches by requested level and applied level (none when exhausted)",
	}, []string{"requested", "applied"})
	ActiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "bizdir_location_sessions_active",
		Help: "Location sessions currently held in memory",
	})
)

func init() {
	prometheus.MustRegister(HierarchyFetchTotal)
	prometheus.MustRegister(MatcherResultTotal)
	prometheus.MustRegister(GeocodeRequestsTotal)
	prometheus.MustRegister(GeocodeDurationMs)
	prometheus.MustRegister(ResolutionsTotal)
	prometheus.MustRegister(SearchFallbackTotal)
	prometheus.MustRegister(ActiveSessions)
}

// Handler exposes the default registry for scraping.
func Handler() http.Handler {
	return promhttp.Handler()
}

package nodeapi

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts outbound node API calls by endpoint, method and outcome.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "envpanel_nodeapi_requests_total",
			Help: "Total number of node API requests made (by endpoint, method and status).",
		},
		[]string{"endpoint", "method", "status"},
	)

	// RequestDuration measures node API round-trip latency.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "envpanel_nodeapi_request_duration_seconds",
			Help:    "Duration of node API requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms → ~10s
		},
		[]string{"endpoint", "method"},
	)

	// TreeCacheHits counts tree fetches answered from the local HTTP cache.
	TreeCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "envpanel_nodeapi_tree_cache_hits_total",
			Help: "Number of variables-tree responses served from the HTTP cache.",
		},
	)
)

func observe(endpoint, method, status string, start time.Time) {
	RequestsTotal.WithLabelValues(endpoint, method, status).Inc()
	RequestDuration.WithLabelValues(endpoint, method).Observe(time.Since(start).Seconds())
}

// Package metrics holds the Prometheus collectors shared by the upstream clients
// and the fingerprint cache.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_requests_total",
			Help: "Total number of requests sent to third-party APIs",
		},
		[]string{"upstream", "outcome"}, // outcome: ok, http_error, transport_error, breaker_open
	)

	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_request_duration_seconds",
			Help:    "Duration of requests sent to third-party APIs in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"upstream"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fingerprint_cache_lookups_total",
			Help: "Total number of fingerprint cache lookups",
		},
		[]string{"namespace", "result"}, // result: hit, miss, error
	)
)

// RecordUpstream records the outcome and latency of one upstream call.
func RecordUpstream(upstream, outcome string, started time.Time) {
	UpstreamRequests.WithLabelValues(upstream, outcome).Inc()
	UpstreamRequestDuration.WithLabelValues(upstream).Observe(time.Since(started).Seconds())
}

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ProviderRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookstream_provider_requests_total",
			Help: "Provider search calls by source and outcome",
		},
		[]string{"source", "outcome"}, // ok, error, breaker_open
	)

	ProviderErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookstream_provider_errors_total",
			Help: "Provider calls that failed and were normalized to an empty result",
		},
		[]string{"source"},
	)

	ProviderTimeouts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookstream_provider_timeouts_total",
			Help: "Calls abandoned by the timeout guard",
		},
		[]string{"label"},
	)

	ProviderLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bookstream_provider_duration_seconds",
			Help:    "Provider search latency in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"source"},
	)

	ProviderResults = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bookstream_provider_results",
			Help:    "Number of records returned per provider call",
			Buckets: []float64{0, 1, 5, 10, 15, 30, 50},
		},
		[]string{"source"},
	)

	DedupeDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bookstream_dedupe_dropped_total",
			Help: "Records dropped by fingerprint deduplication",
		},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookstream_http_requests_total",
			Help: "HTTP requests by method, path and status",
		},
		[]string{"method", "path", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bookstream_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// ObserveProvider records one provider call.
func ObserveProvider(source, outcome string, results int, d time.Duration) {
	ProviderRequests.WithLabelValues(source, outcome).Inc()
	ProviderLatency.WithLabelValues(source).Observe(d.Seconds())
	if outcome == "ok" {
		ProviderResults.WithLabelValues(source).Observe(float64(results))
	} else {
		ProviderErrors.WithLabelValues(source).Inc()
	}
}

// ObserveHTTP records one served request. path should be the route pattern,
// not the raw URL, to keep label cardinality bounded.
func ObserveHTTP(method, path string, status int, d time.Duration) {
	HTTPRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	HTTPDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

// BreakerState is 0 closed, 1 half-open, 2 open.
var BreakerState = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "bookstream_provider_breaker_state",
		Help: "Provider circuit breaker state (0 closed, 1 half-open, 2 open)",
	},
	[]string{"source"},
)

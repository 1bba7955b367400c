package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP Metrics
//
// These metrics track round trips made by the HTTP transport. Status codes
// are recorded as-is; the library never treats them as failures.

var (
	// HTTPResponseDuration tracks time to response headers.
	// Labels: method, status
	HTTPResponseDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "courier_http_response_duration_seconds",
			Help:    "Time until response headers were received",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "status"},
	)

	// HTTPRequestsTotal counts round trips by method and status.
	// Labels: method, status ("error" when no response was received)
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "courier_http_requests_total",
			Help: "Total number of HTTP round trips",
		},
		[]string{"method", "status"},
	)

	// AuthChallengesTotal counts 401 Basic challenges answered with stored credentials.
	AuthChallengesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "courier_auth_challenges_total",
			Help: "Total Basic auth challenges answered",
		},
	)
)

// RecordRoundTrip records a completed round trip.
func RecordRoundTrip(method, status string, seconds float64) {
	HTTPRequestsTotal.WithLabelValues(method, status).Inc()
	if status != "error" {
		HTTPResponseDuration.WithLabelValues(method, status).Observe(seconds)
	}
}

// RecordAuthChallenge records an answered auth challenge.
func RecordAuthChallenge() {
	AuthChallengesTotal.Inc()
}

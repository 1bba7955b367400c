package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Download Metrics
//
// These metrics track download sessions from start to their terminal state.
// Labels use the session target kind (memory, json, file) so slow or
// failing JSON endpoints can be told apart from bulk file transfers.

var (
	// SessionDuration tracks time spent in the Running state.
	// Labels: target (memory, json, file)
	SessionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "courier_session_duration_seconds",
			Help:    "Time from request start to terminal state in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms to ~80s
		},
		[]string{"target"},
	)

	// SessionBytes tracks the number of response bytes received per session.
	// Labels: target
	SessionBytes = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "courier_session_received_bytes",
			Help:    "Response bytes received per session",
			Buckets: prometheus.ExponentialBuckets(256, 4, 12), // 256B to ~1GB
		},
		[]string{"target"},
	)

	// SessionsTotal counts sessions by terminal outcome.
	// Labels: target, outcome (completed, failed, cancelled)
	SessionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "courier_sessions_total",
			Help: "Total number of sessions by terminal outcome",
		},
		[]string{"target", "outcome"},
	)

	// ActiveSessions tracks the number of sessions currently Running.
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "courier_active_sessions",
			Help: "Number of sessions in the Running state",
		},
	)

	// ReceivedBytesTotal counts response bytes across all sessions.
	// Labels: target
	ReceivedBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "courier_received_bytes_total",
			Help: "Total response bytes received",
		},
		[]string{"target"},
	)
)

// SessionStarted records a session entering Running.
func SessionStarted() {
	ActiveSessions.Inc()
}

// SessionFinished records a session leaving Running.
func SessionFinished(target, outcome string, durationSeconds float64, received int64) {
	ActiveSessions.Dec()
	SessionsTotal.WithLabelValues(target, outcome).Inc()
	SessionDuration.WithLabelValues(target).Observe(durationSeconds)
	SessionBytes.WithLabelValues(target).Observe(float64(received))
}

// RecordReceived adds a received chunk to the byte counter.
func RecordReceived(target string, n int) {
	ReceivedBytesTotal.WithLabelValues(target).Add(float64(n))
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Session Metrics
//
// Failures grouped by error kind. Invalid URLs never reach Running, so they
// only show up here and not in the download histograms.

var (
	// ErrorsTotal counts terminal failures by kind.
	// Labels: kind (invalid_url, transport, decode, file_system, background_expired)
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "courier_errors_total",
			Help: "Total session failures by error kind",
		},
		[]string{"kind"},
	)
)

// RecordError records a failure by error kind.
func RecordError(kind string) {
	ErrorsTotal.WithLabelValues(kind).Inc()
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// NetworkActivity mirrors the activity indicator counter.
	NetworkActivity = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "courier_network_activity",
			Help: "Current value of the network activity indicator counter",
		},
	)

	// IndicatorUnderflows counts decrease calls made while the counter was already zero.
	IndicatorUnderflows = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "courier_indicator_underflows_total",
			Help: "Decrease calls ignored because the counter was zero",
		},
	)
)

// RecordActivity publishes the current indicator counter.
func RecordActivity(count int) {
	NetworkActivity.Set(float64(count))
}

// RecordUnderflow records an ignored decrease.
func RecordUnderflow() {
	IndicatorUnderflows.Inc()
}

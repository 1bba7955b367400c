package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// WebSocket Metrics
//
// These metrics track the activity feed that pushes indicator state to UI
// clients over WebSocket.

var (
	// ActiveWebSocketConnections tracks currently connected feed clients.
	ActiveWebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "courier_websocket_connections_active",
			Help: "Number of active WebSocket connections",
		},
	)

	// WebSocketMessagesTotal counts messages sent over WebSocket connections.
	// Labels: type (activity, ping)
	WebSocketMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "courier_websocket_messages_total",
			Help: "Total number of WebSocket messages sent",
		},
		[]string{"type"},
	)
)

// Helper functions for WebSocket metrics

// WebSocketConnected increments the active connection counter.
// Call this when a new WebSocket connection is established.
func WebSocketConnected() {
	ActiveWebSocketConnections.Inc()
}

// WebSocketDisconnected decrements the active connection counter.
// Call this when a WebSocket connection is closed.
func WebSocketDisconnected() {
	ActiveWebSocketConnections.Dec()
}

// RecordActivityMessage records an indicator state message.
func RecordActivityMessage() {
	WebSocketMessagesTotal.WithLabelValues("activity").Inc()
}

// RecordPingMessage records a keepalive ping.
func RecordPingMessage() {
	WebSocketMessagesTotal.WithLabelValues("ping").Inc()
}

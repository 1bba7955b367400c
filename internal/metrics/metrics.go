// Package metrics provides Prometheus metrics for monitoring courier downloads.
//
// The metrics package is organized into logical modules:
//
//   - download.go: session lifecycle, outcome, size and duration metrics
//   - session.go: failures grouped by error kind
//   - activity.go: network activity indicator state
//   - http.go: transport round trips and response status codes
//   - websocket.go: activity feed connections and messages
//
// Usage Examples:
//
// Recording a session:
//
//	start := time.Now()
//	metrics.SessionStarted()
//	// ... transfer ...
//	metrics.SessionFinished("memory", "completed", time.Since(start).Seconds(), received)
//
// Recording indicator state:
//
//	metrics.RecordActivity(count)
//
// All metrics are registered with the default Prometheus registry and can be
// exposed with promhttp.Handler().
package metrics

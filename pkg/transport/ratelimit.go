package transport

import (
	"golang.org/x/time/rate"
)

// newLimiter returns a limiter shared by every response body read on the
// transport, or nil when limiting is disabled.
func newLimiter(kbps int64) *rate.Limiter {
	if kbps <= 0 {
		return nil
	}

	bytesPerSecond := kbps * 1024
	burst := max(
		// 100ms burst
		int(bytesPerSecond/10),
		// Minimum 4KB burst
		4096,
	)
	return rate.NewLimiter(rate.Limit(bytesPerSecond), burst)
}

package download

import (
	"sync"

	"github.com/zulfikawr/courier/internal/metrics"
	"go.uber.org/zap"
)

// ActivityIndicator counts in-flight network activity. Every running session
// holds one token. UI code shows a busy indicator while Active reports true.
type ActivityIndicator struct {
	// notify serializes observer calls so transitions are seen in order.
	notify    sync.Mutex
	mu        sync.Mutex
	count     int
	observers []func(active bool)
	logger    *zap.Logger
}

// NewActivityIndicator returns an inactive indicator. A nil logger disables
// underflow logging.
func NewActivityIndicator(logger *zap.Logger) *ActivityIndicator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityIndicator{logger: logger}
}

// Increase takes one token.
func (a *ActivityIndicator) Increase() {
	a.update(func(count int) (int, bool) { return count + 1, true })
}

// Decrease releases one token. Calling it with no tokens held is ignored.
func (a *ActivityIndicator) Decrease() {
	ok := a.update(func(count int) (int, bool) {
		if count == 0 {
			return 0, false
		}
		return count - 1, true
	})
	if !ok {
		metrics.RecordUnderflow()
		a.logger.Warn("Activity indicator decreased below zero; ignoring")
	}
}

// Reset drops all tokens.
func (a *ActivityIndicator) Reset() {
	a.update(func(int) (int, bool) { return 0, true })
}

// Active reports whether any token is held.
func (a *ActivityIndicator) Active() bool {
	return a.Count() > 0
}

// Count returns the number of tokens held.
func (a *ActivityIndicator) Count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.count
}

// OnChange registers fn to be called whenever Active changes. Observers must
// not call Increase, Decrease or Reset.
func (a *ActivityIndicator) OnChange(fn func(active bool)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.observers = append(a.observers, fn)
}

func (a *ActivityIndicator) update(next func(int) (int, bool)) bool {
	a.notify.Lock()
	defer a.notify.Unlock()

	a.mu.Lock()
	before := a.count
	after, ok := next(before)
	a.count = after
	observers := a.observers
	a.mu.Unlock()

	if !ok {
		return false
	}
	metrics.RecordActivity(after)
	if (before > 0) != (after > 0) {
		for _, fn := range observers {
			fn(after > 0)
		}
	}
	return true
}

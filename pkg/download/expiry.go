package download

import "sync"

// ExpiryNotifier signals that the process is about to lose its permission to
// keep running in the background.
type ExpiryNotifier interface {
	// Expiring returns a channel that is closed once expiry begins.
	Expiring() <-chan struct{}
}

// BackgroundTask is an ExpiryNotifier driven by the process lifecycle code,
// for example a signal handler.
type BackgroundTask struct {
	once sync.Once
	ch   chan struct{}
}

// NewBackgroundTask returns a task that has not expired.
func NewBackgroundTask() *BackgroundTask {
	return &BackgroundTask{ch: make(chan struct{})}
}

// Expiring implements ExpiryNotifier.
func (b *BackgroundTask) Expiring() <-chan struct{} {
	return b.ch
}

// Expire signals expiry. Further calls do nothing.
func (b *BackgroundTask) Expire() {
	b.once.Do(func() { close(b.ch) })
}

// Expired reports whether Expire has been called.
func (b *BackgroundTask) Expired() bool {
	select {
	case <-b.ch:
		return true
	default:
		return false
	}
}

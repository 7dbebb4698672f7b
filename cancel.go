package parlink

import "sync/atomic"

// CancelToken is an explicit cancellation handle, passed through the
// sender and receiver state machines and polled at every suspension point
// and loop iteration. This replaces the source implementation's
// process-global interrupt flag (spec.md §9 "Design Notes"): a signal
// handler in cmd/parlink calls Cancel() on receipt of SIGINT, and the
// state machines observe it cooperatively rather than reading a package
// global. A zero-value *CancelToken is never cancelled.
type CancelToken struct {
	cancelled atomic.Bool
}

// NewCancelToken returns a fresh, uncancelled token.
func NewCancelToken() *CancelToken {
	return &CancelToken{}
}

// Cancel marks the token cancelled. Safe to call from a signal handler.
func (t *CancelToken) Cancel() {
	if t == nil {
		return
	}
	t.cancelled.Store(true)
}

// Cancelled reports whether Cancel has been called.
func (t *CancelToken) Cancelled() bool {
	if t == nil {
		return false
	}
	return t.cancelled.Load()
}

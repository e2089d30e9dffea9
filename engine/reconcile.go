package engine

import (
	"sync"
	"time"

	"github.com/bep/debounce"
)

// Reconciler coalesces reconciliation requests issued during rapid drag
// sequences: Trigger may be called on every position change, and the run
// function fires once the changes settle for the configured wait. Closing
// the reconciler cancels any pending run; a session must close it before
// ending.
type Reconciler struct {
	mu        sync.Mutex
	closed    bool
	debounced func(func())
	run       func()
}

// NewReconciler returns a reconciler that invokes run after position
// changes have been quiet for wait.
func NewReconciler(wait time.Duration, run func()) *Reconciler {
	return &Reconciler{
		debounced: debounce.New(wait),
		run:       run,
	}
}

// Trigger schedules a debounced reconciliation run.
func (r *Reconciler) Trigger() {
	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return
	}
	r.debounced(func() {
		r.mu.Lock()
		closed := r.closed
		r.mu.Unlock()
		if closed {
			return
		}
		r.run()
	})
}

// Close cancels any pending run and rejects further triggers.
func (r *Reconciler) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	// Replace whatever is pending with a no-op so the timer fires inertly.
	r.debounced(func() {})
}

// Package debounce delays propagation of a rapidly-changing value until it
// has been stable for a fixed interval.
package debounce

import (
	"sync"
	"time"
)

// Debouncer holds back updates until no new value has arrived for the
// configured delay, then hands the latest value to fn exactly once. A zero
// delay makes Update synchronous.
type Debouncer[T any] struct {
	mu      sync.Mutex
	delay   time.Duration
	fn      func(T)
	timer   *time.Timer
	pending T
	has     bool
	stopped bool
}

// New creates a debouncer that calls fn with the settled value.
func New[T any](delay time.Duration, fn func(T)) *Debouncer[T] {
	return &Debouncer[T]{delay: delay, fn: fn}
}

// Update records a new value and restarts the settle timer. Any previously
// scheduled delivery is cancelled; only the latest value fires.
func (d *Debouncer[T]) Update(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if d.delay <= 0 {
		d.fn(v)
		return
	}

	d.pending = v
	d.has = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.fire)
}

func (d *Debouncer[T]) fire() {
	d.mu.Lock()
	if d.stopped || !d.has {
		d.mu.Unlock()
		return
	}
	v := d.pending
	d.has = false
	d.mu.Unlock()

	d.fn(v)
}

// Flush delivers a pending value immediately instead of waiting out the
// delay. No-op when nothing is pending.
func (d *Debouncer[T]) Flush() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.mu.Unlock()
	d.fire()
}

// Stop cancels any pending delivery and rejects further updates. Safe to
// call more than once.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	d.has = false
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

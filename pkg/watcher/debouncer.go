// Package watcher reloads a tree file when it changes on disk, coalescing
// editor save bursts and falling back to polling when fsnotify is
// unavailable.
package watcher

import (
	"sync"
	"time"
)

// DefaultDebounceDuration is the default debounce window.
const DefaultDebounceDuration = 250 * time.Millisecond

// Debouncer coalesces bursts of Trigger calls into one callback, run once
// the burst has been quiet for the debounce window. Only the callback of
// the last Trigger runs.
type Debouncer struct {
	duration time.Duration

	mu    sync.Mutex
	timer *time.Timer
	// gen identifies the latest Trigger; a timer that fires for an older
	// generation does nothing.
	gen uint64
}

// NewDebouncer returns a debouncer. A zero duration selects
// DefaultDebounceDuration.
func NewDebouncer(duration time.Duration) *Debouncer {
	if duration <= 0 {
		duration = DefaultDebounceDuration
	}
	return &Debouncer{duration: duration}
}

// Trigger (re)starts the window and replaces the pending callback.
func (d *Debouncer) Trigger(callback func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gen++
	gen := d.gen

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.duration, func() {
		d.mu.Lock()
		// Stop can lose the race against a timer that already fired.
		current := gen == d.gen
		if current {
			d.timer = nil
		}
		d.mu.Unlock()

		if current {
			callback()
		}
	})
}

// Pending reports whether a callback is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

// Cancel drops any pending callback.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Duration returns the debounce window.
func (d *Debouncer) Duration() time.Duration {
	return d.duration
}

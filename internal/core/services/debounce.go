package services

import (
	"sync"
	"time"
)

// stopper is the part of *time.Timer the debouncer needs
type stopper interface {
	Stop() bool
}

// Debouncer runs only the last of a burst of calls, once the calls have
// been quiet for the configured delay
type Debouncer struct {
	mu        sync.Mutex
	delay     time.Duration
	timer     stopper
	seq       uint64
	afterFunc func(time.Duration, func()) stopper
}

// NewDebouncer creates a debouncer with the given quiet period
func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{
		delay: delay,
		afterFunc: func(d time.Duration, f func()) stopper {
			return time.AfterFunc(d, f)
		},
	}
}

// Delay returns the quiet period
func (d *Debouncer) Delay() time.Duration {
	return d.delay
}

// Trigger schedules fn, replacing whatever was scheduled before
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.seq++
	seq := d.seq
	d.timer = d.afterFunc(d.delay, func() {
		d.mu.Lock()
		current := d.seq == seq
		if current {
			d.timer = nil
		}
		d.mu.Unlock()

		// A timer that fired while being replaced must not run.
		if current {
			fn()
		}
	})
}

// Cancel drops any scheduled call
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.seq++
}

// Pending reports whether a call is scheduled
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

// Package resyncflag implements spec.md §4.4: a boolean augmented
// with a reset interval, used by the Coordinator to throttle
// re-synchronization attempts.
package resyncflag

import (
	"sync"
	"time"
)

// Flag is a boolean with a time-to-live. Set marks it true and
// (re)arms a deadline in the future; once the deadline passes without
// another Set, IsSet reports false again. There is no background
// goroutine - the deadline is checked lazily on IsSet, which is all
// the Coordinator ever needs and avoids a timer to leak on Close.
type Flag struct {
	interval time.Duration

	mu       sync.Mutex
	set      bool
	deadline time.Time
	now      func() time.Time
}

// New builds a Flag that auto-clears `interval` after the most recent
// Set. The default used by Coordinator is 20 minutes (spec.md §4.4).
func New(interval time.Duration) *Flag {
	return &Flag{interval: interval, now: time.Now}
}

// Set marks the flag true and arms the deadline interval in the
// future.
func (f *Flag) Set() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.set = true
	f.deadline = f.now().Add(f.interval)
}

// Reset clears the flag immediately and disarms the deadline.
func (f *Flag) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.set = false
	f.deadline = time.Time{}
}

// IsSet reports the current value, auto-clearing first if the
// deadline has passed.
func (f *Flag) IsSet() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.set && f.now().After(f.deadline) {
		f.set = false
	}
	return f.set
}

// Package clock provides the time source shared by the controller tasks.
// Everything that reads the time or blocks on it goes through a Clock so that
// tests can drive the whole controller with simulated time.
package clock

import (
	"sync"
	"time"
)

// Clock reads the current time and blocks for a duration.
type Clock interface {
	Now() time.Time

	// Sleep blocks the caller for d. Used for beep pulses, which
	// deliberately stall the calling task.
	Sleep(d time.Duration)

	// After returns a channel that receives once d has elapsed.
	After(d time.Duration) <-chan time.Time
}

// Wall is the real clock.
type Wall struct{}

// Now returns time.Now().
func (Wall) Now() time.Time { return time.Now() }

// Sleep calls time.Sleep.
func (Wall) Sleep(d time.Duration) { time.Sleep(d) }

// After calls time.After.
func (Wall) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Fake is a manually advanced clock. Sleep and After advance the clock
// immediately instead of blocking, so a test observes exactly the time a
// real run would have spent.
type Fake struct {
	mu  sync.Mutex
	now time.Time
}

// NewFake creates a Fake clock starting at start.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

// Now returns the simulated time.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Sleep advances the simulated time by d.
func (f *Fake) Sleep(d time.Duration) {
	f.Advance(d)
}

// After advances the simulated time by d and returns a channel that is
// already ready.
func (f *Fake) After(d time.Duration) <-chan time.Time {
	t := f.Advance(d)
	ch := make(chan time.Time, 1)
	ch <- t
	return ch
}

// Advance moves the simulated time forward by d and returns the new time.
// Negative durations are ignored.
func (f *Fake) Advance(d time.Duration) time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	if d > 0 {
		f.now = f.now.Add(d)
	}
	return f.now
}

// Set moves the simulated time to t.
func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	f.now = t
	f.mu.Unlock()
}

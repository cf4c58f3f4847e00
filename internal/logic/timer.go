package logic

import "time"

// CookTimer owns the remaining cook time. A zero StartTick or LastUpdate
// means unset.
type CookTimer struct {
	increment time.Duration
	maxTime   time.Duration

	Remaining  time.Duration // always within [0, maxTime]
	Running    bool
	StartTick  time.Time
	LastUpdate time.Time
}

// NewCookTimer creates an idle timer.
func NewCookTimer(increment, maxTime time.Duration) *CookTimer {
	return &CookTimer{increment: increment, maxTime: maxTime}
}

// TickResult describes what one Advance did.
type TickResult struct {
	Decremented bool
	// Exhausted is set on the single tick that took Remaining to zero.
	Exhausted bool
	// WasRunning is set with Exhausted when the timer was running, i.e.
	// the completion sequence is due.
	WasRunning bool
	// Show and Seconds are set whenever time remains.
	Show    bool
	Seconds int
}

// AddTime adds one increment, clamped to the maximum. StartTick and
// LastUpdate are set to now only if unset, so only the first press after
// idle initialises them. Returns true if this press started a new cook.
func (c *CookTimer) AddTime(now time.Time) bool {
	c.Remaining += c.increment
	if c.Remaining > c.maxTime {
		c.Remaining = c.maxTime
	}

	started := c.StartTick.IsZero()
	if started {
		c.StartTick = now
	}
	if c.LastUpdate.IsZero() {
		c.LastUpdate = now
	}
	return started
}

// Advance subtracts the wall-clock time elapsed since LastUpdate. It does
// nothing while idle.
func (c *CookTimer) Advance(now time.Time) TickResult {
	var r TickResult

	if c.Remaining != 0 && !c.LastUpdate.IsZero() {
		elapsed := now.Sub(c.LastUpdate)
		if elapsed < 0 {
			elapsed = 0
		}
		c.Remaining -= elapsed
		c.LastUpdate = now
		r.Decremented = true

		if c.Remaining <= 0 {
			c.Remaining = 0
			c.StartTick = time.Time{}
			c.LastUpdate = time.Time{}
			r.Exhausted = true
			r.WasRunning = c.Running
		}
	}

	if c.Remaining != 0 {
		r.Show = true
		r.Seconds = int(c.Remaining / time.Second)
	}
	return r
}

// Start marks the timer running.
func (c *CookTimer) Start() {
	c.Running = true
}

// Stop marks the timer stopped.
func (c *CookTimer) Stop() {
	c.Running = false
}

// Idle reports whether there is no time left and no decrement pending.
func (c *CookTimer) Idle() bool {
	return c.Remaining == 0 && c.LastUpdate.IsZero()
}

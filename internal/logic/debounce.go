package logic

import "time"

// Debouncer turns level samples of a button into presses spaced more than
// window apart.
//
// It is level-triggered: every pressed sample is a candidate, so a button
// held down fires again once more than the window has elapsed since the last
// accepted press. The first pressed sample ever is accepted. Rejected
// samples leave the state untouched.
type Debouncer struct {
	window    time.Duration
	lastPress time.Time
}

// NewDebouncer creates a debouncer with the given minimum spacing.
func NewDebouncer(window time.Duration) *Debouncer {
	return &Debouncer{window: window}
}

// Sample processes one reading of the button taken at now.
func (d *Debouncer) Sample(pressed bool, now time.Time) PressResult {
	if !pressed {
		return NoPress
	}
	if !d.lastPress.IsZero() && now.Sub(d.lastPress) <= d.window {
		return Ignored
	}
	d.lastPress = now
	return Press
}

// LastPress returns the time of the last accepted press, or the zero time.
func (d *Debouncer) LastPress() time.Time {
	return d.lastPress
}

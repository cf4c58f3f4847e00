// Package logic contains the pure cook-timer and button logic.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import "time"

// PressResult is the outcome of one button sample.
type PressResult int

const (
	NoPress PressResult = iota // button not pressed
	Press                      // accepted press
	Ignored                    // pressed, but inside the debounce window
)

func (r PressResult) String() string {
	switch r {
	case NoPress:
		return "NO_PRESS"
	case Press:
		return "PRESS"
	case Ignored:
		return "IGNORED"
	}
	return "UNKNOWN"
}

// EventType represents a cook timer transition.
type EventType string

const (
	EventCookStart EventType = "COOK_START" // first press from idle
	EventTimeAdded EventType = "TIME_ADDED" // press while already cooking
	EventCookDone  EventType = "COOK_DONE"  // remaining time ran out
)

// Event represents a transition to be published.
type Event struct {
	Timestamp time.Time
	Type      EventType
	Remaining time.Duration
	Session   string // identifies one cook, from COOK_START to COOK_DONE
}

// EventCounts tracks button and cook activity since startup.
type EventCounts struct {
	Presses   int // accepted presses
	Ignored   int // presses rejected by debounce
	Completed int // cooks that ran to zero
}

// State is a point-in-time view of the cook timer and its outputs.
type State struct {
	Remaining time.Duration
	Running   bool
	Light     bool
	Session   string
	Counts    EventCounts
}

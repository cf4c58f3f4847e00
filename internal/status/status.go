// Package status provides a thread-safe status tracker for the microwave
// controller. The scheduler goroutine writes it; HTTP handlers and the MQTT
// heartbeat read it.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/microwave-oven/internal/clock"
	"github.com/sweeney/microwave-oven/internal/logic"
)

// NetworkInfo contains network state as reported by pi-helper.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains controller configuration for display.
type Config struct {
	IncrementMs int64
	MaxTimeMs   int64
	DebounceMs  int64
	HeartbeatMs int64
	Broker      string
	HTTPAddr    string
}

// TaskHealth mirrors the scheduler's per-task counters. Kept local so status
// does not depend on the scheduler.
type TaskHealth struct {
	Name     string
	Runs     int
	Failures int
	LastErr  string
}

// Snapshot is a point-in-time view of controller state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Cook          logic.State
	HeaterDuty    int
	Tasks         []TaskHealth
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the controller started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable controller state behind an RWMutex.
type Tracker struct {
	clock clock.Clock

	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker. The start time is taken from clk.
func NewTracker(clk clock.Clock, cfg Config) *Tracker {
	return &Tracker{
		clock: clk,
		snap: Snapshot{
			StartTime: clk.Now(),
			Config:    cfg,
		},
	}
}

// Update records the cook state and current heater duty.
func (t *Tracker) Update(cook logic.State, heaterDuty int) {
	t.mu.Lock()
	t.snap.Cook = cook
	t.snap.HeaterDuty = heaterDuty
	t.mu.Unlock()
}

// SetTasks records scheduler task health.
func (t *Tracker) SetTasks(tasks []TaskHealth) {
	t.mu.Lock()
	t.snap.Tasks = tasks
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the controller state.
// Now is read from the tracker's clock at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	s.Tasks = append([]TaskHealth(nil), t.snap.Tasks...)
	t.mu.RUnlock()
	s.Now = t.clock.Now()
	return s
}

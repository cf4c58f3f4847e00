package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Cook          CookJSON     `json:"cook"`
	HeaterDuty    int          `json:"heater_duty"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"event_counts"`
	Tasks         []TaskJSON   `json:"tasks,omitempty"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// CookJSON is the JSON representation of the cook timer.
type CookJSON struct {
	Running     bool   `json:"running"`
	RemainingMs int64  `json:"remaining_ms"`
	Light       bool   `json:"light"`
	Session     string `json:"session,omitempty"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	Presses   int `json:"presses"`
	Ignored   int `json:"ignored"`
	Completed int `json:"completed"`
}

// TaskJSON is the JSON representation of one scheduler task.
type TaskJSON struct {
	Name      string `json:"name"`
	Runs      int    `json:"runs"`
	Failures  int    `json:"failures"`
	LastError string `json:"last_error,omitempty"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of controller config.
type ConfigJSON struct {
	IncrementMs int64  `json:"increment_ms"`
	MaxTimeMs   int64  `json:"max_time_ms"`
	DebounceMs  int64  `json:"debounce_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Broker      string `json:"broker"`
	HTTPAddr    string `json:"http_addr"`
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		Cook: CookJSON{
			Running:     snap.Cook.Running,
			RemainingMs: snap.Cook.Remaining.Milliseconds(),
			Light:       snap.Cook.Light,
			Session:     snap.Cook.Session,
		},
		HeaterDuty:    snap.HeaterDuty,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Presses:   snap.Cook.Counts.Presses,
			Ignored:   snap.Cook.Counts.Ignored,
			Completed: snap.Cook.Counts.Completed,
		},
		Config: ConfigJSON{
			IncrementMs: snap.Config.IncrementMs,
			MaxTimeMs:   snap.Config.MaxTimeMs,
			DebounceMs:  snap.Config.DebounceMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			HTTPAddr:    snap.Config.HTTPAddr,
		},
	}
	inner.Tasks = tasksJSON(snap.Tasks)
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

func tasksJSON(tasks []TaskHealth) []TaskJSON {
	var out []TaskJSON
	for _, th := range tasks {
		out = append(out, TaskJSON{Name: th.Name, Runs: th.Runs, Failures: th.Failures, LastError: th.LastErr})
	}
	return out
}

// FormatTasksJSON returns the scheduler task health as an indented JSON
// array. An empty list encodes as [].
func FormatTasksJSON(snap Snapshot) []byte {
	tasks := tasksJSON(snap.Tasks)
	if tasks == nil {
		tasks = []TaskJSON{}
	}
	data, _ := json.MarshalIndent(tasks, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}

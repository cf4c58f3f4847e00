package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/microwave-oven/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	// seconds renders a remaining time the way the front panel shows it.
	"seconds": func(d time.Duration) string {
		return fmt.Sprintf("00:%02d", int(d/time.Second))
	},
	"ms": func(ms int64) string {
		return (time.Duration(ms) * time.Millisecond).String()
	},
	"percent": func(duty int) string {
		return fmt.Sprintf("%d%%", duty*100/1023)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="1">
<title>Microwave</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.connected { color: green; }
.disconnected { color: red; }
.fail { color: red; }
</style>
</head>
<body>
<h1>Microwave</h1>

<h2>Cook</h2>
<table>
<tr><th>State</th><td id="cook-state" class="{{if .Cook.Running}}on{{else}}off{{end}}">{{if .Cook.Running}}COOKING{{else}}IDLE{{end}}</td></tr>
<tr><th>Remaining</th><td id="remaining">{{if .Cook.Running}}{{seconds .Cook.Remaining}}{{else}}-{{end}}</td></tr>
<tr><th>Light</th><td class="{{if .Cook.Light}}on{{else}}off{{end}}">{{if .Cook.Light}}ON{{else}}OFF{{end}}</td></tr>
{{if .Cook.Session}}<tr><th>Session</th><td>{{.Cook.Session}}</td></tr>{{end}}
</table>

<h2>Oven</h2>
<table>
<tr><th>Heater</th><td id="heater">{{.HeaterDuty}} ({{percent .HeaterDuty}})</td></tr>
</table>

<h2>Event Counts</h2>
<table>
<tr><th>Presses</th><td>{{.Cook.Counts.Presses}}</td></tr>
<tr><th>Ignored</th><td>{{.Cook.Counts.Ignored}}</td></tr>
<tr><th>Completed</th><td>{{.Cook.Counts.Completed}}</td></tr>
</table>

{{if .Tasks}}<h2>Tasks</h2>
<table>
{{range .Tasks}}<tr><th>{{.Name}}</th><td{{if .Failures}} class="fail" title="{{.LastErr}}"{{end}}>{{.Runs}} runs, {{.Failures}} failures</td></tr>
{{end}}</table>{{end}}

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02 15:04:05 UTC"}}</td></tr>
<tr><th>Increment</th><td>{{ms .Config.IncrementMs}}</td></tr>
<tr><th>Max time</th><td>{{ms .Config.MaxTimeMs}}</td></tr>
<tr><th>Debounce</th><td>{{ms .Config.DebounceMs}}</td></tr>
<tr><th>Heartbeat</th><td>{{if .Config.HeartbeatMs}}{{ms .Config.HeartbeatMs}}{{else}}disabled{{end}}</td></tr>
</table>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) error {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	return indexTmpl.Execute(w, data)
}

package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/sweeney/microwave-oven/internal/clock"
	"github.com/sweeney/microwave-oven/internal/logic"
	"github.com/sweeney/microwave-oven/internal/status"
)

func newTestServer(t *testing.T) (*httptest.Server, *status.Tracker, *clock.Fake) {
	t.Helper()
	clk := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	cfg := status.Config{
		IncrementMs: 5000,
		MaxTimeMs:   25000,
		DebounceMs:  100,
		HeartbeatMs: 900000,
		Broker:      "tcp://192.168.1.200:1883",
		HTTPAddr:    ":80",
	}
	tr := status.NewTracker(clk, cfg)
	srv := New(":0", tr, zaptest.NewLogger(t).Sugar())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, tr, clk
}

func getJSON(t *testing.T, url string) status.StatusJSON {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()

	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	return sj
}

func getBody(t *testing.T, url string) (int, string, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, resp.Header.Get("Content-Type"), string(body)
}

func TestJSONEndpoint(t *testing.T) {
	ts, tr, clk := newTestServer(t)
	tr.Update(logic.State{
		Remaining: 7 * time.Second,
		Running:   true,
		Light:     true,
		Counts:    logic.EventCounts{Presses: 2, Ignored: 1},
	}, 640)
	tr.SetMQTTConnected(true)
	clk.Advance(time.Minute)

	code, ct, _ := getBody(t, ts.URL+"/index.json")
	if code != 200 {
		t.Errorf("status: got %d, want 200", code)
	}
	if ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}

	sj := getJSON(t, ts.URL+"/index.json")
	if !sj.Status.Cook.Running || sj.Status.Cook.RemainingMs != 7000 {
		t.Errorf("cook: got %+v", sj.Status.Cook)
	}
	if sj.Status.HeaterDuty != 640 {
		t.Errorf("HeaterDuty: got %d, want 640", sj.Status.HeaterDuty)
	}
	if sj.Status.Counts.Presses != 2 || sj.Status.Counts.Ignored != 1 {
		t.Errorf("Counts: got %+v", sj.Status.Counts)
	}
	if !sj.Status.MQTT.Connected || sj.Status.MQTT.Broker != "tcp://192.168.1.200:1883" {
		t.Errorf("MQTT: got %+v", sj.Status.MQTT)
	}
	if sj.Status.UptimeSeconds != 60 {
		t.Errorf("UptimeSeconds: got %d, want 60", sj.Status.UptimeSeconds)
	}
	if sj.Status.Config.DebounceMs != 100 {
		t.Errorf("Config.DebounceMs: got %d, want 100", sj.Status.Config.DebounceMs)
	}
}

func TestJSONNetworkInfo(t *testing.T) {
	ts, tr, _ := newTestServer(t)
	tr.SetNetwork(&status.NetworkInfo{Type: "wifi", IP: "192.168.1.42", Status: "connected", SSID: "MyNet"})

	sj := getJSON(t, ts.URL+"/index.json")
	if sj.Status.Network == nil {
		t.Fatal("expected Network in JSON")
	}
	if sj.Status.Network.IP != "192.168.1.42" {
		t.Errorf("Network.IP: got %q, want 192.168.1.42", sj.Status.Network.IP)
	}
}

func TestHTMLEndpointIdle(t *testing.T) {
	ts, _, _ := newTestServer(t)

	code, ct, body := getBody(t, ts.URL+"/")
	if code != 200 {
		t.Errorf("status: got %d, want 200", code)
	}
	if !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type: got %q, want text/html", ct)
	}
	if !strings.Contains(body, "IDLE") {
		t.Error("idle page should say IDLE")
	}
	if !strings.Contains(body, `<td id="remaining">-</td>`) {
		t.Error("idle page should not show a remaining time")
	}
}

func TestHTMLEndpointCooking(t *testing.T) {
	ts, tr, _ := newTestServer(t)
	tr.Update(logic.State{Remaining: 12400 * time.Millisecond, Running: true, Light: true, Session: "abc"}, 1023)
	tr.SetTasks([]status.TaskHealth{{Name: "oven", Runs: 4, Failures: 1, LastErr: "adc: read: stale"}})

	_, _, body := getBody(t, ts.URL+"/index.html")
	for _, want := range []string{"COOKING", "00:12", "1023 (100%)", "abc", "4 runs, 1 failures", "adc: read: stale"} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}
}

func TestHTMLHeartbeatDisabled(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	tr := status.NewTracker(clk, status.Config{})
	ts := httptest.NewServer(New(":0", tr, zaptest.NewLogger(t).Sugar()).Handler())
	defer ts.Close()

	_, _, body := getBody(t, ts.URL+"/")
	if !strings.Contains(body, "disabled") {
		t.Error("zero heartbeat should render as disabled")
	}
}

func TestNotFoundForUnknownPath(t *testing.T) {
	ts, _, _ := newTestServer(t)

	code, _, _ := getBody(t, ts.URL+"/nonexistent")
	if code != 404 {
		t.Errorf("status: got %d, want 404", code)
	}
}

func TestCacheControlFollowsCookState(t *testing.T) {
	ts, tr, _ := newTestServer(t)

	cacheControl := func(path string) string {
		t.Helper()
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		return resp.Header.Get("Cache-Control")
	}

	for _, path := range []string{"/", "/index.json"} {
		if got := cacheControl(path); got != "max-age=1" {
			t.Errorf("idle %s: Cache-Control %q, want max-age=1", path, got)
		}
	}

	tr.Update(logic.State{Remaining: 5 * time.Second, Running: true, Light: true}, 0)
	for _, path := range []string{"/", "/index.json"} {
		if got := cacheControl(path); got != "no-store" {
			t.Errorf("cooking %s: Cache-Control %q, want no-store", path, got)
		}
	}
}

func TestTasksEndpoint(t *testing.T) {
	ts, tr, _ := newTestServer(t)

	code, ctype, body := getBody(t, ts.URL+"/tasks.json")
	if code != http.StatusOK || ctype != "application/json" {
		t.Fatalf("got %d %q, want 200 application/json", code, ctype)
	}
	if strings.TrimSpace(body) != "[]" {
		t.Errorf("no tasks yet: got %q, want []", body)
	}

	tr.SetTasks([]status.TaskHealth{
		{Name: "button", Runs: 100},
		{Name: "oven", Runs: 4, Failures: 2, LastErr: "adc: read: stale"},
	})
	_, _, body = getBody(t, ts.URL+"/tasks.json")

	var tasks []status.TaskJSON
	if err := json.Unmarshal([]byte(body), &tasks); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []status.TaskJSON{
		{Name: "button", Runs: 100},
		{Name: "oven", Runs: 4, Failures: 2, LastError: "adc: read: stale"},
	}
	if len(tasks) != len(want) {
		t.Fatalf("tasks: got %d, want %d", len(tasks), len(want))
	}
	for i := range want {
		if tasks[i] != want[i] {
			t.Errorf("task %d: got %+v, want %+v", i, tasks[i], want[i])
		}
	}
}

func TestStatusIsReadOnly(t *testing.T) {
	ts, _, _ := newTestServer(t)

	for _, path := range []string{"/", "/index.json", "/tasks.json"} {
		resp, err := http.Post(ts.URL+path, "application/json", strings.NewReader("{}"))
		if err != nil {
			t.Fatalf("POST %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusMethodNotAllowed {
			t.Errorf("POST %s: got %d, want 405", path, resp.StatusCode)
		}
		if got := resp.Header.Get("Allow"); got != "GET, HEAD" {
			t.Errorf("POST %s: Allow %q", path, got)
		}
	}
}

func TestStateChangesReflectedInResponse(t *testing.T) {
	ts, tr, _ := newTestServer(t)

	if getJSON(t, ts.URL+"/index.json").Status.Cook.Running {
		t.Error("expected idle initially")
	}

	tr.Update(logic.State{Remaining: 5 * time.Second, Running: true, Light: true}, 0)
	tr.SetMQTTConnected(true)

	sj := getJSON(t, ts.URL+"/index.json")
	if !sj.Status.Cook.Running {
		t.Error("expected running after update")
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected MQTT connected after update")
	}
}

func TestUptimeFormat(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{42 * time.Second, "42s"},
		{3*time.Minute + 5*time.Second, "3m 5s"},
		{2*time.Hour + 1*time.Second, "2h 0m 1s"},
		{49*time.Hour + 30*time.Minute, "2d 1h 30m 0s"},
	}
	for _, tt := range tests {
		clk := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
		tr := status.NewTracker(clk, status.Config{})
		clk.Advance(tt.d)

		var sb strings.Builder
		if err := renderHTML(&sb, tr.Snapshot()); err != nil {
			t.Fatalf("render: %v", err)
		}
		if !strings.Contains(sb.String(), "<td>"+tt.want+"</td>") {
			t.Errorf("uptime %v: page missing %q", tt.d, tt.want)
		}
	}
}

package status

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"
)

var start = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func fixedTracker(cfg Config, now time.Time) *Tracker {
	tr := NewTracker(start, cfg)
	tr.now = func() time.Time { return now }
	return tr
}

func TestNewTracker(t *testing.T) {
	cfg := Config{PollMs: 100, Broker: "tcp://localhost:1883", HTTPAddr: ":8080"}
	snap := NewTracker(start, cfg).Snapshot()

	if !snap.StartTime.Equal(start) {
		t.Errorf("StartTime: got %v, want %v", snap.StartTime, start)
	}
	if snap.Config != cfg {
		t.Errorf("Config: got %+v, want %+v", snap.Config, cfg)
	}
	if snap.Samples != 0 || snap.Distance != 0 || snap.MQTTConnected {
		t.Errorf("expected zero ride state, got %+v", snap)
	}
}

func TestSampleAndSnapshot(t *testing.T) {
	tr := NewTracker(start, Config{})
	at := start.Add(5 * time.Second)

	tr.SetDevice("/dev/ttyACM0")
	tr.SetRules(3)
	tr.Sample(at, 18.5, 0.25, 5, []string{"w", "shift"})
	tr.BadSample()
	tr.BadSample()

	snap := tr.Snapshot()
	if snap.Device != "/dev/ttyACM0" {
		t.Errorf("Device: got %q", snap.Device)
	}
	if snap.Rules != 3 {
		t.Errorf("Rules: got %d, want 3", snap.Rules)
	}
	if snap.Speed != 18.5 || snap.Distance != 0.25 || snap.Samples != 5 {
		t.Errorf("ride totals wrong: %+v", snap)
	}
	if snap.BadSamples != 2 {
		t.Errorf("BadSamples: got %d, want 2", snap.BadSamples)
	}
	if !snap.LastSample.Equal(at) {
		t.Errorf("LastSample: got %v, want %v", snap.LastSample, at)
	}
	if strings.Join(snap.ActiveKeys, ",") != "w,shift" {
		t.Errorf("ActiveKeys: got %v", snap.ActiveKeys)
	}

	tr.SetActiveKeys(nil)
	if len(tr.Snapshot().ActiveKeys) != 0 {
		t.Error("expected no active keys after SetActiveKeys(nil)")
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	tr := NewTracker(start, Config{})
	active := []string{"w"}
	tr.Sample(start, 10, 0, 1, active)

	active[0] = "mutated"
	snap := tr.Snapshot()
	if snap.ActiveKeys[0] != "w" {
		t.Error("tracker should not alias the caller's slice")
	}

	snap.ActiveKeys[0] = "mutated"
	if tr.Snapshot().ActiveKeys[0] != "w" {
		t.Error("snapshot should not alias tracker state")
	}
}

func TestSnapshotUptime(t *testing.T) {
	snap := fixedTracker(Config{}, start.Add(90*time.Second)).Snapshot()
	if snap.Uptime() != 90*time.Second {
		t.Errorf("Uptime: got %v, want 90s", snap.Uptime())
	}
}

func TestSetMQTTConnected(t *testing.T) {
	tr := NewTracker(start, Config{})
	tr.SetMQTTConnected(true)
	if !tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=true")
	}
	tr.SetMQTTConnected(false)
	if tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=false")
	}
}

func TestFormatJSON(t *testing.T) {
	tr := fixedTracker(Config{PollMs: 100, HeartbeatMs: 60000, Broker: "tcp://b:1883", HTTPAddr: ":8080", ConfigPath: "keys.json"}, start.Add(61500*time.Millisecond))
	tr.SetDevice("/dev/ttyACM0")
	tr.Sample(start.Add(time.Minute), 20, 1.23456, 600, []string{"w"})

	var parsed StatusJSON
	if err := json.Unmarshal(FormatJSON(tr.Snapshot()), &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	s := parsed.Status

	if s.Event != "" || s.Reason != "" {
		t.Errorf("web status should not carry event/reason: %+v", s)
	}
	if s.Distance != 1.235 {
		t.Errorf("Distance: got %v, want 1.235", s.Distance)
	}
	if s.UptimeSeconds != 61 {
		t.Errorf("UptimeSeconds: got %d, want 61", s.UptimeSeconds)
	}
	if s.StartTime != "2026-03-14T09:00:00Z" || s.LastSample != "2026-03-14T09:01:00Z" {
		t.Errorf("times wrong: start=%s last=%s", s.StartTime, s.LastSample)
	}
	if s.MQTT.Broker != "tcp://b:1883" || s.Config.PollMs != 100 || s.Config.ConfigPath != "keys.json" {
		t.Errorf("config wrong: %+v", s.Config)
	}
}

func TestFormatJSONEmptyActiveKeysIsArray(t *testing.T) {
	data := FormatJSON(fixedTracker(Config{}, start).Snapshot())
	if !strings.Contains(string(data), `"active_keys": []`) {
		t.Errorf("expected empty array for active_keys:\n%s", data)
	}
	if strings.Contains(string(data), "last_sample") {
		t.Errorf("last_sample should be omitted before the first sample:\n%s", data)
	}
}

func TestFormatStatusEvent(t *testing.T) {
	snap := fixedTracker(Config{}, start).Snapshot()

	tests := []struct {
		event, reason string
		wantReason    bool
	}{
		{"STARTUP", "", false},
		{"HEARTBEAT", "", false},
		{"SHUTDOWN", "SIGTERM", true},
	}
	for _, tt := range tests {
		t.Run(tt.event, func(t *testing.T) {
			data := FormatStatusEvent(snap, tt.event, tt.reason)
			if strings.Contains(string(data), "\n") {
				t.Error("event payload should be compact")
			}
			var parsed StatusJSON
			if err := json.Unmarshal(data, &parsed); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			if parsed.Status.Event != tt.event {
				t.Errorf("Event: got %q, want %q", parsed.Status.Event, tt.event)
			}
			if got := strings.Contains(string(data), `"reason"`); got != tt.wantReason {
				t.Errorf("reason present = %v, want %v", got, tt.wantReason)
			}
		})
	}
}

func TestConcurrentAccess(t *testing.T) {
	tr := NewTracker(start, Config{})
	var wg sync.WaitGroup

	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				tr.Sample(start, float64(j), float64(i), j, []string{"w"})
				tr.BadSample()
				tr.SetMQTTConnected(j%2 == 0)
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				FormatJSON(tr.Snapshot())
			}
		}()
	}
	wg.Wait()

	if got := tr.Snapshot().BadSamples; got != 800 {
		t.Errorf("BadSamples: got %d, want 800", got)
	}
}

package status

import (
	"encoding/json"
	"math"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

type StatusInner struct {
	Event         string     `json:"event,omitempty"`
	Reason        string     `json:"reason,omitempty"`
	Device        string     `json:"device"`
	Speed         float64    `json:"speed"`
	Distance      float64    `json:"distance"`
	Samples       int        `json:"samples"`
	BadSamples    int        `json:"bad_samples"`
	LastSample    string     `json:"last_sample,omitempty"`
	ActiveKeys    []string   `json:"active_keys"`
	Rules         int        `json:"rules"`
	UptimeSeconds int64      `json:"uptime_seconds"`
	StartTime     string     `json:"start_time"`
	Timestamp     string     `json:"timestamp"`
	MQTT          MQTTStatus `json:"mqtt"`
	Config        ConfigJSON `json:"config"`
}

type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

type ConfigJSON struct {
	PollMs      int64  `json:"poll_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Broker      string `json:"broker"`
	HTTPAddr    string `json:"http_addr"`
	ConfigPath  string `json:"config_path"`
	DryRun      bool   `json:"dry_run"`
}

// round3 keeps distances readable; the odometer itself is not rounded.
func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		Device:        snap.Device,
		Speed:         snap.Speed,
		Distance:      round3(snap.Distance),
		Samples:       snap.Samples,
		BadSamples:    snap.BadSamples,
		ActiveKeys:    snap.ActiveKeys,
		Rules:         snap.Rules,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Config: ConfigJSON{
			PollMs:      snap.Config.PollMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			HTTPAddr:    snap.Config.HTTPAddr,
			ConfigPath:  snap.Config.ConfigPath,
			DryRun:      snap.Config.DryRun,
		},
	}
	if inner.ActiveKeys == nil {
		inner.ActiveKeys = []string{}
	}
	if !snap.LastSample.IsZero() {
		inner.LastSample = snap.LastSample.UTC().Format(time.RFC3339)
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the compact JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}

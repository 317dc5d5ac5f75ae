package mqtt

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sweeney/deskcycle-kb/internal/logic"
)

var testTime = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func TestTopics(t *testing.T) {
	if Topic != "deskcycle/kb/events" {
		t.Errorf("unexpected topic: %s", Topic)
	}
	if TopicSystem != "deskcycle/kb/system" {
		t.Errorf("unexpected system topic: %s", TopicSystem)
	}
}

func TestFormatPayloadExactJSON(t *testing.T) {
	event := logic.Event{
		Timestamp: testTime,
		Key:       "w",
		Mode:      logic.ModeHold,
		Action:    logic.ActionKeyDown,
		Speed:     12.5,
	}

	got, err := FormatPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := `{"key":{"timestamp":"2026-03-14T09:30:00Z","name":"w","mode":"HOLD_KEY","action":"KEY_DOWN","speed":12.5}}`
	if string(got) != want {
		t.Errorf("got  %s\nwant %s", got, want)
	}
}

func TestFormatPayloadActions(t *testing.T) {
	tests := []struct {
		mode   logic.Mode
		action logic.Action
	}{
		{logic.ModeHold, logic.ActionKeyDown},
		{logic.ModeHold, logic.ActionKeyUp},
		{logic.ModeToggle, logic.ActionPress},
		{logic.ModeTypewrite, logic.ActionType},
	}

	for _, tt := range tests {
		t.Run(string(tt.action), func(t *testing.T) {
			payload, err := FormatPayload(logic.Event{Timestamp: testTime, Key: "k", Mode: tt.mode, Action: tt.action})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			var parsed Payload
			if err := json.Unmarshal(payload, &parsed); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			if parsed.Key.Mode != string(tt.mode) {
				t.Errorf("mode: got %s, want %s", parsed.Key.Mode, tt.mode)
			}
			if parsed.Key.Action != string(tt.action) {
				t.Errorf("action: got %s, want %s", parsed.Key.Action, tt.action)
			}
		})
	}
}

func TestFormatPayloadConvertsToUTC(t *testing.T) {
	zone := time.FixedZone("UTC+2", 2*60*60)
	payload, err := FormatPayload(logic.Event{Timestamp: time.Date(2026, 3, 14, 11, 30, 0, 0, zone)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var parsed Payload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Key.Timestamp != "2026-03-14T09:30:00Z" {
		t.Errorf("unexpected timestamp: %s", parsed.Key.Timestamp)
	}
}

func TestFormatSystemPayload(t *testing.T) {
	tests := []struct {
		name  string
		event SystemEvent
		want  string
	}{
		{
			"shutdown with reason",
			SystemEvent{Timestamp: testTime, Event: "SHUTDOWN", Reason: "SIGINT"},
			`{"system":{"timestamp":"2026-03-14T09:30:00Z","event":"SHUTDOWN","reason":"SIGINT"}}`,
		},
		{
			"reason omitted",
			SystemEvent{Timestamp: testTime, Event: "RECONNECTED"},
			`{"system":{"timestamp":"2026-03-14T09:30:00Z","event":"RECONNECTED"}}`,
		},
		{
			"raw payload wins",
			SystemEvent{Timestamp: testTime, Event: "HEARTBEAT", RawPayload: []byte(`{"raw":true}`)},
			`{"raw":true}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FormatSystemPayload(tt.event)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("got  %s\nwant %s", got, tt.want)
			}
		})
	}
}

func TestFakePublisherRecords(t *testing.T) {
	f := NewFakePublisher()

	if err := f.Publish(logic.Event{Timestamp: testTime, Key: "w", Action: logic.ActionKeyDown}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.PublishSystem(SystemEvent{Timestamp: testTime, Event: "STARTUP"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.PublishSystem(SystemEvent{Timestamp: testTime, Event: "SHUTDOWN", Retained: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.Events) != 1 || len(f.Payloads) != 1 {
		t.Fatalf("expected 1 event and payload, got %d/%d", len(f.Events), len(f.Payloads))
	}
	names := f.SystemEventNames()
	if len(names) != 2 || names[0] != "STARTUP" || names[1] != "SHUTDOWN" {
		t.Errorf("unexpected system events: %v", names)
	}
	if !f.SystemEvents[1].Retained {
		t.Error("retained flag not recorded")
	}
}

func TestFakePublisherErrors(t *testing.T) {
	f := NewFakePublisher()
	boom := errors.New("broker gone")
	f.PublishError = boom
	f.PublishSystemError = boom

	if err := f.Publish(logic.Event{}); !errors.Is(err, boom) {
		t.Errorf("Publish: expected injected error, got %v", err)
	}
	if err := f.PublishSystem(SystemEvent{}); !errors.Is(err, boom) {
		t.Errorf("PublishSystem: expected injected error, got %v", err)
	}
	if len(f.Events) != 0 || len(f.SystemEvents) != 0 {
		t.Error("failed publishes should not be recorded")
	}
}

func TestFakePublisherReset(t *testing.T) {
	f := NewFakePublisher()
	f.Connected = true
	f.Publish(logic.Event{})
	f.PublishSystem(SystemEvent{Event: "STARTUP"})
	f.Close()

	f.Reset()

	if len(f.Events) != 0 || len(f.SystemEvents) != 0 || f.Closed || f.Connected {
		t.Errorf("reset left state behind: %+v", f)
	}
}

func TestDiscard(t *testing.T) {
	var p Publisher = Discard{}
	if err := p.Publish(logic.Event{}); err != nil {
		t.Errorf("Publish: %v", err)
	}
	if err := p.PublishSystem(SystemEvent{}); err != nil {
		t.Errorf("PublishSystem: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if (Discard{}).IsConnected() {
		t.Error("Discard should never report connected")
	}
}

func TestRealPublisherBuffersWhileDisconnected(t *testing.T) {
	p := &RealPublisher{pending: newRingBuffer(4)}

	if err := p.Publish(logic.Event{Timestamp: testTime, Key: "w"}); err != nil {
		t.Fatalf("Publish while offline: %v", err)
	}
	if err := p.PublishSystem(SystemEvent{Timestamp: testTime, Event: "HEARTBEAT", Retained: true}); err != nil {
		t.Fatalf("PublishSystem while offline: %v", err)
	}

	if p.pending.len() != 2 {
		t.Fatalf("expected 2 buffered messages, got %d", p.pending.len())
	}
	got := p.pending.drainAll()
	if got[0].topic != Topic || got[0].qos != 0 {
		t.Errorf("event buffered wrong: %+v", got[0])
	}
	if got[1].topic != TopicSystem || got[1].qos != 1 || !got[1].retained {
		t.Errorf("system event buffered wrong: %+v", got[1])
	}
	if p.IsConnected() {
		t.Error("should not report connected")
	}
}

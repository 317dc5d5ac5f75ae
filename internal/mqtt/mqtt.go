// Package mqtt publishes key events and ride lifecycle events, with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/deskcycle-kb/internal/logic"
)

// Topic is the MQTT topic for key events.
const Topic = "deskcycle/kb/events"

// TopicSystem is the MQTT topic for lifecycle events.
const TopicSystem = "deskcycle/kb/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a key event to the broker.
	// Errors are reported but must never stop the ride.
	Publish(event logic.Event) error

	// PublishSystem sends a lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent is a lifecycle event: STARTUP, SHUTDOWN, HEARTBEAT, RELOAD.
type SystemEvent struct {
	Timestamp  time.Time
	Event      string
	Reason     string // shutdown cause or reload source
	RawPayload []byte // pre-formatted JSON; returned as-is by FormatSystemPayload
	Retained   bool
}

// Payload is the key event message.
type Payload struct {
	Key KeyPayload `json:"key"`
}

// KeyPayload contains the key event details.
type KeyPayload struct {
	Timestamp string  `json:"timestamp"`
	Name      string  `json:"name"`
	Mode      string  `json:"mode"`
	Action    string  `json:"action"`
	Speed     float64 `json:"speed"`
}

// FormatPayload creates the JSON payload for a key event.
func FormatPayload(event logic.Event) ([]byte, error) {
	payload := Payload{
		Key: KeyPayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Name:      event.Key,
			Mode:      string(event.Mode),
			Action:    string(event.Action),
			Speed:     event.Speed,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload is used for events that don't carry a full status snapshot (LWT, RECONNECTED).
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

// Discard is the Publisher used when no broker is configured.
type Discard struct{}

func (Discard) Publish(logic.Event) error       { return nil }
func (Discard) PublishSystem(SystemEvent) error { return nil }
func (Discard) Close() error                    { return nil }
func (Discard) IsConnected() bool               { return false }

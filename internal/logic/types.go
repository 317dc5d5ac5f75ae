// Package logic contains the pure speed-to-key decision logic.
// This package has NO external dependencies (no serial, uinput, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters and keyboard side effects
// go through the Keyboard interface.
package logic

import (
	"errors"
	"math"
	"time"
)

// Mode selects how a rule drives its key.
type Mode string

const (
	ModeHold      Mode = "HOLD_KEY"
	ModeToggle    Mode = "TOGGLE_KEY"
	ModeTypewrite Mode = "TYPEWRITE_KEY"
)

// Valid reports whether m is one of the known modes.
func (m Mode) Valid() bool {
	switch m {
	case ModeHold, ModeToggle, ModeTypewrite:
		return true
	}
	return false
}

// Action is the keyboard side effect a rule emitted.
type Action string

const (
	ActionNone    Action = ""
	ActionKeyDown Action = "KEY_DOWN"
	ActionKeyUp   Action = "KEY_UP"
	ActionPress   Action = "PRESS"
	ActionType    Action = "TYPE"
)

// Unbounded is the MaxSpeed used when a rule has no upper limit.
var Unbounded = math.Inf(1)

// ErrInvalidKeyConfig is returned when a rule cannot be built from its configuration.
var ErrInvalidKeyConfig = errors.New("invalid key config")

// Keyboard performs OS-level key injection.
type Keyboard interface {
	KeyDown(name string) error
	KeyUp(name string) error
	Press(name string) error
	TypeLiteral(text string) error
}

// RuleConfig is one configured speed range, already deserialized.
type RuleConfig struct {
	Key      string
	MinSpeed float64
	MaxSpeed float64 // Unbounded when the configuration omits it
	Mode     Mode    // empty means ModeHold
}

// Event records one side effect emitted during evaluation.
type Event struct {
	Timestamp time.Time
	Key       string
	Mode      Mode
	Action    Action
	Speed     float64
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Distance  float64
	Samples   int
}

// Package status provides a thread-safe view of the ride in progress.
// The polling loop writes it; the web server, heartbeat, and LED read it.
package status

import (
	"sync"
	"time"
)

// Config is the daemon configuration shown on the status page.
type Config struct {
	PollMs      int64
	HeartbeatMs int64
	Broker      string
	HTTPAddr    string
	ConfigPath  string
	DryRun      bool
}

// Snapshot is a point-in-time copy of the ride state, safe to use after the lock is released.
type Snapshot struct {
	Device        string
	Speed         float64
	Distance      float64
	Samples       int
	BadSamples    int
	LastSample    time.Time
	ActiveKeys    []string
	Rules         int
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the ride started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable ride state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{StartTime: startTime, Config: cfg},
		now:  time.Now,
	}
}

// SetDevice records the endpoint the speedometer was found on.
func (t *Tracker) SetDevice(name string) {
	t.mu.Lock()
	t.snap.Device = name
	t.mu.Unlock()
}

// SetRules records how many rules are loaded.
func (t *Tracker) SetRules(n int) {
	t.mu.Lock()
	t.snap.Rules = n
	t.mu.Unlock()
}

// Sample records a valid speed reading and the running totals.
func (t *Tracker) Sample(at time.Time, speed, distance float64, samples int, active []string) {
	keys := append([]string(nil), active...)
	t.mu.Lock()
	t.snap.LastSample = at
	t.snap.Speed = speed
	t.snap.Distance = distance
	t.snap.Samples = samples
	t.snap.ActiveKeys = keys
	t.mu.Unlock()
}

// BadSample counts a reading that could not be parsed.
func (t *Tracker) BadSample() {
	t.mu.Lock()
	t.snap.BadSamples++
	t.mu.Unlock()
}

// SetActiveKeys replaces the active key list, e.g. after every rule was released.
func (t *Tracker) SetActiveKeys(active []string) {
	keys := append([]string(nil), active...)
	t.mu.Lock()
	t.snap.ActiveKeys = keys
	t.mu.Unlock()
}

func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a copy of the ride state with Now set to the current time.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	s.ActiveKeys = append([]string(nil), t.snap.ActiveKeys...)
	t.mu.RUnlock()
	s.Now = t.now()
	return s
}

package logic

import "time"

// Heartbeat schedules periodic status reports.
type Heartbeat struct {
	interval  time.Duration
	startTime time.Time
	last      time.Time
}

// NewHeartbeat creates a schedule. The first heartbeat is due interval after startTime.
func NewHeartbeat(interval time.Duration, startTime time.Time) *Heartbeat {
	return &Heartbeat{
		interval:  interval,
		startTime: startTime,
		last:      startTime,
	}
}

// Check returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if the interval has not elapsed,
// or if interval is <= 0 (disabled).
func (h *Heartbeat) Check(now time.Time, odo *Odometer) *HeartbeatData {
	if h.interval <= 0 {
		return nil
	}

	if now.Sub(h.last) < h.interval {
		return nil
	}

	h.last = now
	data := &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(h.startTime),
	}
	if odo != nil {
		data.Distance = odo.Total()
		data.Samples = odo.Samples()
	}
	return data
}

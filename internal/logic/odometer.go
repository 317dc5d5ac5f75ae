package logic

import "time"

// Odometer integrates speed samples into distance travelled.
// Speed is in distance units per hour; the total is in distance units.
type Odometer struct {
	startTime time.Time
	last      time.Time
	total     float64
	samples   int
}

// NewOdometer creates an odometer whose time base starts at startTime.
func NewOdometer(startTime time.Time) *Odometer {
	return &Odometer{
		startTime: startTime,
		last:      startTime,
	}
}

// Add accounts for one valid sample taken at now and returns the distance it contributed.
// The elapsed time is measured from the previous valid sample, so callers must not
// call Add for samples they discarded.
func (o *Odometer) Add(speed float64, now time.Time) float64 {
	dt := now.Sub(o.last).Seconds()
	o.last = now
	o.samples++

	d := speed / 3600 * dt
	o.total += d
	return d
}

// Total returns the accumulated distance.
func (o *Odometer) Total() float64 {
	return o.total
}

// Samples returns the number of valid samples accounted for.
func (o *Odometer) Samples() int {
	return o.samples
}

// LastSample returns the time of the last valid sample (the start time if there was none).
func (o *Odometer) LastSample() time.Time {
	return o.last
}

// StartTime returns the time the odometer started.
func (o *Odometer) StartTime() time.Time {
	return o.startTime
}

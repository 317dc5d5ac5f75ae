package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"syscall"
	"time"

	"github.com/sweeney/deskcycle-kb/internal/device"
	"github.com/sweeney/deskcycle-kb/internal/gpio"
	"github.com/sweeney/deskcycle-kb/internal/logic"
	"github.com/sweeney/deskcycle-kb/internal/mqtt"
	"github.com/sweeney/deskcycle-kb/internal/status"
)

// sampler is the part of device.Session the loop needs.
type sampler interface {
	Sample() (float64, error)
}

// loopDeps are the collaborators runLoop drives. All of them are owned by
// the loop goroutine except the tracker.
type loopDeps struct {
	sampler    sampler
	kb         logic.Keyboard
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus // may be nil
	tracker    *status.Tracker
	led        gpio.Indicator
	heartbeat  time.Duration
	now        func() time.Time
}

// rideSummary is what the loop reports when it stops.
type rideSummary struct {
	Start      time.Time
	End        time.Time
	Distance   float64
	Samples    int
	BadSamples int
	Reason     string
}

func (s rideSummary) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

// runLoop samples on every tick until a signal arrives or the device fails.
// Rule sets received on reload replace the current one after it has been released.
// Every held or toggled key is released exactly once before runLoop returns.
func runLoop(d loopDeps, rules *logic.RuleSet, tick <-chan time.Time, reload <-chan *logic.RuleSet, sig <-chan os.Signal) (sum rideSummary, err error) {
	start := d.now()
	odo := logic.NewOdometer(start)
	hb := logic.NewHeartbeat(d.heartbeat, start)
	bad := 0

	d.tracker.SetRules(rules.Len())

	defer func() {
		t := d.now()
		release(d, rules, t)

		sum = rideSummary{
			Start:      start,
			End:        t,
			Distance:   odo.Total(),
			Samples:    odo.Samples(),
			BadSamples: bad,
			Reason:     sum.Reason,
		}
		if err != nil {
			sum.Reason = err.Error()
		}
		publishSystem(d, t, "SHUTDOWN", sum.Reason, true)
	}()

	for {
		// Cancellation wins over a pending tick.
		select {
		case s := <-sig:
			sum.Reason = signalName(s)
			log.Printf("received %v, shutting down", s)
			return sum, nil
		default:
		}

		select {
		case s := <-sig:
			sum.Reason = signalName(s)
			log.Printf("received %v, shutting down", s)
			return sum, nil

		case next, ok := <-reload:
			if !ok {
				reload = nil
				continue
			}
			t := d.now()
			release(d, rules, t)
			rules = next
			d.tracker.SetRules(rules.Len())
			log.Printf("config: now using %d rules", rules.Len())
			publishSystem(d, t, "RELOAD", "", false)

		case <-tick:
			t := d.now()
			speed, serr := d.sampler.Sample()
			if errors.Is(serr, device.ErrBadSample) {
				bad++
				d.tracker.BadSample()
				debugf("skipping sample: %v", serr)
				continue
			}
			if serr != nil {
				return sum, fmt.Errorf("sample: %w", serr)
			}

			odo.Add(speed, t)
			debugf("speed=%.2f distance=%.4f", speed, odo.Total())

			events, kerr := rules.Evaluate(speed, t, d.kb)
			if kerr != nil {
				log.Printf("keyboard: %v", kerr)
			}
			publishEvents(d, events)

			active := rules.Active()
			setLED(d, len(active) > 0)
			d.tracker.Sample(t, speed, odo.Total(), odo.Samples(), active)
			if d.mqttStatus != nil {
				d.tracker.SetMQTTConnected(d.mqttStatus.IsConnected())
			}

			if hbData := hb.Check(t, odo); hbData != nil {
				log.Printf("heartbeat: uptime=%v distance=%.3f samples=%d",
					hbData.Uptime, hbData.Distance, hbData.Samples)
				publishSystem(d, t, "HEARTBEAT", "", false)
			}
		}
	}
}

// release deactivates every rule in rs and reports what it did.
func release(d loopDeps, rs *logic.RuleSet, t time.Time) {
	events, err := rs.DeactivateAll(t, d.kb)
	if err != nil {
		log.Printf("keyboard: release: %v", err)
	}
	publishEvents(d, events)
	setLED(d, false)
	d.tracker.SetActiveKeys(rs.Active())
}

func publishEvents(d loopDeps, events []logic.Event) {
	for _, e := range events {
		log.Printf("key: %s %s (speed %.1f)", e.Action, e.Key, e.Speed)
		if err := d.publisher.Publish(e); err != nil {
			log.Printf("mqtt: publish error: %v", err)
		}
	}
}

// publishSystem sends a lifecycle event carrying the full status snapshot.
func publishSystem(d loopDeps, t time.Time, event, reason string, retained bool) {
	if d.mqttStatus != nil {
		d.tracker.SetMQTTConnected(d.mqttStatus.IsConnected())
	}
	se := mqtt.SystemEvent{
		Timestamp:  t,
		Event:      event,
		Reason:     reason,
		Retained:   retained,
		RawPayload: status.FormatStatusEvent(d.tracker.Snapshot(), event, reason),
	}
	if err := d.publisher.PublishSystem(se); err != nil {
		log.Printf("mqtt: failed to publish %s event: %v", event, err)
	}
}

func setLED(d loopDeps, on bool) {
	if err := d.led.Set(on); err != nil {
		log.Printf("gpio: %v", err)
	}
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}

// Command deskcycle-kb turns DeskCycle pedalling speed into keyboard input.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sweeney/deskcycle-kb/internal/config"
	"github.com/sweeney/deskcycle-kb/internal/device"
	"github.com/sweeney/deskcycle-kb/internal/gpio"
	"github.com/sweeney/deskcycle-kb/internal/history"
	"github.com/sweeney/deskcycle-kb/internal/keyboard"
	"github.com/sweeney/deskcycle-kb/internal/logic"
	"github.com/sweeney/deskcycle-kb/internal/mqtt"
	"github.com/sweeney/deskcycle-kb/internal/status"
	"github.com/sweeney/deskcycle-kb/internal/web"
)

// Exit codes.
const (
	exitOK             = 0
	exitConfigNotFound = 1
	exitConfigInvalid  = 2
	exitDeviceNotFound = 3
	exitFatal          = 4
)

// deviceName is the name the virtual keyboard registers with the kernel.
const deviceName = "DeskCycle Keyboard"

var verbose bool

func debugf(format string, args ...any) {
	if verbose {
		log.Printf("debug: "+format, args...)
	}
}

type options struct {
	file         string
	devices      string
	readTimeout  time.Duration
	poll         time.Duration
	broker       string
	heartbeat    time.Duration
	httpAddr     string
	ledPin       int
	historyPath  string
	printHistory bool
	dryRun       bool
	watch        bool
}

func main() {
	var o options
	flag.StringVar(&o.file, "f", "", "Key configuration file (path, or name inside the config directory)")
	flag.StringVar(&o.file, "file", "", "Alias for -f")
	flag.StringVar(&o.devices, "d", "", "Serial device(s) to try, comma separated (empty scans every port)")
	flag.StringVar(&o.devices, "device", "", "Alias for -d")
	flag.DurationVar(&o.readTimeout, "read-timeout", device.DefaultReadTimeout, "Serial read timeout")
	flag.DurationVar(&o.poll, "poll", 100*time.Millisecond, "Speed polling interval")
	flag.StringVar(&o.broker, "broker", "", "MQTT broker address (empty to disable)")
	flag.DurationVar(&o.heartbeat, "heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	flag.StringVar(&o.httpAddr, "http", "", "HTTP status address, e.g. :8080 (empty to disable)")
	flag.IntVar(&o.ledPin, "led-pin", gpio.Disabled, "BCM pin for the activity LED (-1 to disable)")
	flag.StringVar(&o.historyPath, "history", "", "SQLite ride history file (empty to disable)")
	flag.BoolVar(&o.printHistory, "print-history", false, "Print ride history and exit")
	flag.BoolVar(&o.dryRun, "dry-run", false, "Log key actions instead of injecting them")
	flag.BoolVar(&o.watch, "watch", false, "Reload the key configuration when the file changes")
	flag.BoolVar(&verbose, "v", false, "Verbose debug logging")
	flag.Parse()

	if err := run(o); err != nil {
		fmt.Fprintf(os.Stderr, "deskcycle-kb: %v\n", err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, config.ErrNotFound):
		return exitConfigNotFound
	case errors.Is(err, config.ErrInvalid):
		return exitConfigInvalid
	case errors.Is(err, device.ErrDeviceNotFound):
		return exitDeviceNotFound
	}
	return exitFatal
}

// splitDevices turns the -d flag into a candidate list. Empty means scan.
func splitDevices(s string) []string {
	var out []string
	for _, d := range strings.Split(s, ",") {
		if d = strings.TrimSpace(d); d != "" {
			out = append(out, d)
		}
	}
	return out
}

// loadRules resolves name against the per-user config directory and loads it.
func loadRules(name string) (string, *logic.RuleSet, error) {
	dir, err := config.DefaultDir()
	if err != nil {
		debugf("no config directory: %v", err)
		dir = ""
	}
	path, err := config.Resolve(name, dir)
	if err != nil {
		return "", nil, err
	}
	rules, err := config.Load(path, keyboard.IsValidKey)
	if err != nil {
		return "", nil, err
	}
	return path, rules, nil
}

type closingKeyboard interface {
	logic.Keyboard
	io.Closer
}

func openKeyboard(dryRun bool) (closingKeyboard, error) {
	if dryRun {
		return keyboard.NewDryRun(log.Default()), nil
	}
	kb, err := keyboard.NewUinput(keyboard.DefaultUinputPath, deviceName)
	if err != nil {
		return nil, fmt.Errorf("init keyboard: %w", err)
	}
	return kb, nil
}

func openLED(pin int) gpio.Indicator {
	if pin == gpio.Disabled {
		return gpio.Nop{}
	}
	led, err := gpio.NewRealIndicator(gpio.DefaultChip, pin)
	if err != nil {
		log.Printf("gpio: LED disabled: %v", err)
		return gpio.Nop{}
	}
	return led
}

func openPublisher(broker string) (mqtt.Publisher, mqtt.ConnectionStatus) {
	if broker == "" {
		return mqtt.Discard{}, nil
	}
	pub, err := mqtt.NewRealPublisher(broker, mqtt.DefaultBufferSize)
	if err != nil {
		log.Printf("mqtt: disabled: %v", err)
		return mqtt.Discard{}, nil
	}
	return pub, pub
}

// notifyShutdown starts catching SIGINT and SIGTERM on the returned channel.
func notifyShutdown() (<-chan os.Signal, func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	return ch, func() { signal.Stop(ch) }
}

func run(o options) error {
	if o.printHistory {
		return printHistory(os.Stdout, o.historyPath)
	}

	path, rules, err := loadRules(o.file)
	if err != nil {
		return err
	}
	log.Printf("config: loaded %d rules from %s", rules.Len(), path)

	kb, err := openKeyboard(o.dryRun)
	if err != nil {
		return err
	}
	defer kb.Close()

	// A signal after discovery stays pending until runLoop picks it up.
	sigCh, stopSignals := notifyShutdown()
	defer stopSignals()

	// Discovery can take a while with many ports; let a signal abort it.
	discoverCtx, stopDiscover := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	session, err := device.Discover(discoverCtx, device.NewSerialOpener(o.readTimeout), splitDevices(o.devices))
	stopDiscover()
	if errors.Is(err, context.Canceled) {
		log.Printf("interrupted during device discovery")
		return nil
	}
	if err != nil {
		return err
	}
	defer session.Close()

	publisher, connStatus := openPublisher(o.broker)
	defer publisher.Close()

	led := openLED(o.ledPin)
	defer led.Close()

	tracker := status.NewTracker(time.Now(), status.Config{
		PollMs:      o.poll.Milliseconds(),
		HeartbeatMs: o.heartbeat.Milliseconds(),
		Broker:      o.broker,
		HTTPAddr:    o.httpAddr,
		ConfigPath:  path,
		DryRun:      o.dryRun,
	})
	tracker.SetDevice(session.Name())
	tracker.SetRules(rules.Len())

	var store *history.Store
	if o.historyPath != "" {
		store, err = history.Open(o.historyPath)
		if err != nil {
			log.Printf("history: disabled: %v", err)
			store = nil
		} else {
			defer store.Close()
		}
	}

	snap := tracker.Snapshot()
	if err := publisher.PublishSystem(mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}); err != nil {
		log.Printf("mqtt: failed to publish startup event: %v", err)
	}

	if o.httpAddr != "" {
		var rides web.RideLister
		if store != nil {
			rides = store
		}
		srv := web.New(o.httpAddr, tracker, rides)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", o.httpAddr)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var reload <-chan *logic.RuleSet
	if o.watch {
		reload, err = config.Watch(ctx, path, keyboard.IsValidKey, config.DefaultDebounce)
		if err != nil {
			log.Printf("config: not watching %s: %v", path, err)
		}
	}

	log.Printf("started: poll=%v broker=%q heartbeat=%v dry-run=%v", o.poll, o.broker, o.heartbeat, o.dryRun)

	ticker := time.NewTicker(o.poll)
	defer ticker.Stop()

	sum, loopErr := runLoop(loopDeps{
		sampler:    session,
		kb:         kb,
		publisher:  publisher,
		mqttStatus: connStatus,
		tracker:    tracker,
		led:        led,
		heartbeat:  o.heartbeat,
		now:        time.Now,
	}, rules, ticker.C, reload, sigCh)

	fmt.Printf("distance traveled: %.3f\n", sum.Distance)

	if store != nil {
		if _, err := store.Record(history.Ride{
			Start:      sum.Start,
			End:        sum.End,
			Device:     session.Name(),
			Distance:   sum.Distance,
			Samples:    sum.Samples,
			BadSamples: sum.BadSamples,
			Reason:     sum.Reason,
		}); err != nil {
			log.Printf("history: %v", err)
		}
	}

	return loopErr
}

func printHistory(w io.Writer, path string) error {
	if path == "" {
		return errors.New("-print-history needs -history")
	}
	store, err := history.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	totals, err := store.Totals()
	if err != nil {
		return err
	}
	rides, err := store.Recent(20)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "rides: %d  distance: %.3f  time: %v\n", totals.Rides, totals.Distance, totals.Duration.Truncate(time.Second))
	for _, r := range rides {
		fmt.Fprintf(w, "%s  %8v  %8.3f  %s\n",
			r.Start.Local().Format("2006-01-02 15:04"), r.Duration().Truncate(time.Second), r.Distance, r.Reason)
	}
	return nil
}

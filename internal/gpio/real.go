//go:build linux

package gpio

import (
	"errors"
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealIndicator drives an LED on a GPIO line.
type RealIndicator struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
	on   bool
}

// NewRealIndicator requests pin (BCM numbering) on chip as an output, initially off.
func NewRealIndicator(chip string, pin int) (*RealIndicator, error) {
	c, err := gpiocdev.NewChip(chip)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	line, err := c.RequestLine(pin, gpiocdev.AsOutput(0), gpiocdev.WithConsumer("deskcycle-kb"))
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("request LED pin %d: %w", pin, err)
	}

	return &RealIndicator{chip: c, line: line}, nil
}

// Set drives the LED.
func (r *RealIndicator) Set(on bool) error {
	if on == r.on {
		return nil
	}
	v := 0
	if on {
		v = 1
	}
	if err := r.line.SetValue(v); err != nil {
		return fmt.Errorf("set LED: %w", err)
	}
	r.on = on
	return nil
}

// Close turns the LED off and returns the line to an input with pull-down,
// matching the Pi boot default.
func (r *RealIndicator) Close() error {
	var errs []error
	if r.line != nil {
		if err := r.line.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("clear LED: %w", err))
		}
		if err := r.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure LED pin: %w", err))
		}
		if err := r.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close LED pin: %w", err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Package gpio drives the activity LED through the Linux GPIO character device.
// A fake implementation allows testing without hardware.
package gpio

// Indicator is a single on/off output.
type Indicator interface {
	// Set drives the output. Setting the current state again is a no-op.
	Set(on bool) error

	// Close turns the output off and releases the line.
	Close() error
}

// DefaultChip is the GPIO chip the LED line is requested from.
const DefaultChip = "gpiochip0"

// Disabled is the -led-pin value that turns the LED off entirely.
const Disabled = -1

// Nop is the Indicator used when no LED is wired.
type Nop struct{}

func (Nop) Set(bool) error { return nil }
func (Nop) Close() error   { return nil }

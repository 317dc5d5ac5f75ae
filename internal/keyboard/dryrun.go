package keyboard

import (
	"fmt"
	"log"
)

// DryRun logs key actions instead of injecting them. Unknown keys still fail,
// so a dry run catches the same errors a real keyboard would.
type DryRun struct {
	logger *log.Logger
}

// NewDryRun creates a DryRun that writes to logger (the standard logger if nil).
func NewDryRun(logger *log.Logger) *DryRun {
	if logger == nil {
		logger = log.Default()
	}
	return &DryRun{logger: logger}
}

func (d *DryRun) check(name string) error {
	if !IsValidKey(name) {
		return fmt.Errorf("unknown key %q", name)
	}
	return nil
}

// KeyDown logs a key down.
func (d *DryRun) KeyDown(name string) error {
	if err := d.check(name); err != nil {
		return err
	}
	d.logger.Printf("keyboard: down %s", name)
	return nil
}

// KeyUp logs a key up.
func (d *DryRun) KeyUp(name string) error {
	if err := d.check(name); err != nil {
		return err
	}
	d.logger.Printf("keyboard: up %s", name)
	return nil
}

// Press logs a single press.
func (d *DryRun) Press(name string) error {
	if err := d.check(name); err != nil {
		return err
	}
	d.logger.Printf("keyboard: press %s", name)
	return nil
}

// TypeLiteral logs typed text.
func (d *DryRun) TypeLiteral(text string) error {
	for _, r := range text {
		if _, ok := strokeFor(r); !ok {
			return fmt.Errorf("cannot type %q", r)
		}
	}
	d.logger.Printf("keyboard: type %q", text)
	return nil
}

// Close does nothing.
func (d *DryRun) Close() error { return nil }

//go:build !linux

package keyboard

import "errors"

// DefaultUinputPath is unused on non-Linux platforms.
const DefaultUinputPath = ""

// Uinput is not available on non-Linux platforms.
type Uinput struct{}

// NewUinput returns an error on non-Linux platforms.
func NewUinput(path, name string) (*Uinput, error) {
	return nil, errors.New("keyboard: uinput not supported on this platform (requires Linux)")
}

// KeyDown is not implemented on non-Linux platforms.
func (u *Uinput) KeyDown(name string) error { return errors.New("keyboard: not supported") }

// KeyUp is not implemented on non-Linux platforms.
func (u *Uinput) KeyUp(name string) error { return errors.New("keyboard: not supported") }

// Press is not implemented on non-Linux platforms.
func (u *Uinput) Press(name string) error { return errors.New("keyboard: not supported") }

// TypeLiteral is not implemented on non-Linux platforms.
func (u *Uinput) TypeLiteral(text string) error { return errors.New("keyboard: not supported") }

// Close is not implemented on non-Linux platforms.
func (u *Uinput) Close() error { return nil }

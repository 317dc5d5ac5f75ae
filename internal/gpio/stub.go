//go:build !linux

package gpio

import "errors"

// RealIndicator is not available on non-Linux platforms.
type RealIndicator struct{}

// NewRealIndicator returns an error on non-Linux platforms.
func NewRealIndicator(chip string, pin int) (*RealIndicator, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

func (r *RealIndicator) Set(bool) error {
	return errors.New("gpio: not supported")
}

func (r *RealIndicator) Close() error {
	return nil
}

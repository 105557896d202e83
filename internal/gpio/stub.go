//go:build !linux

package gpio

import "errors"

// RealRelay is not available on non-Linux platforms.
type RealRelay struct{}

// NewRealRelay returns an error on non-Linux platforms.
func NewRealRelay(chip string, pin int, name string, activeLow bool) (*RealRelay, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// Set is not implemented on non-Linux platforms.
func (r *RealRelay) Set(on bool) error {
	return errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (r *RealRelay) Close() error {
	return nil
}

// ADCSensor is not available on non-Linux platforms.
type ADCSensor struct{}

// NewADCSensor returns an error on non-Linux platforms.
func NewADCSensor(bus, address int, channel string) (*ADCSensor, error) {
	return nil, errors.New("gpio: adc not supported on this platform (requires Linux)")
}

// Read is not implemented on non-Linux platforms.
func (s *ADCSensor) Read() (int, error) {
	return 0, errors.New("gpio: adc not supported")
}

// Close is not implemented on non-Linux platforms.
func (s *ADCSensor) Close() error {
	return nil
}

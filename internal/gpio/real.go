//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealRelay drives a relay from an output line on the Linux GPIO character device.
type RealRelay struct {
	line *gpiocdev.Line
	name string
}

// NewRealRelay requests the given BCM pin on chip as an output, initially
// released. activeLow suits relay boards that energise on a low input.
func NewRealRelay(chip string, pin int, name string, activeLow bool) (*RealRelay, error) {
	opts := []gpiocdev.LineReqOption{gpiocdev.AsOutput(0), gpiocdev.WithConsumer("irrigation-" + name)}
	if activeLow {
		opts = append(opts, gpiocdev.AsActiveLow)
	}
	line, err := gpiocdev.RequestLine(chip, pin, opts...)
	if err != nil {
		return nil, fmt.Errorf("request %s pin %d: %w", name, pin, err)
	}
	return &RealRelay{line: line, name: name}, nil
}

// Set energises or releases the relay.
func (r *RealRelay) Set(on bool) error {
	v := 0
	if on {
		v = 1
	}
	if err := r.line.SetValue(v); err != nil {
		return fmt.Errorf("set %s: %w", r.name, err)
	}
	return nil
}

// Close releases the relay and then the line.
// The relay is driven off first so that neither pump nor valve is left
// energised across a restart.
func (r *RealRelay) Close() error {
	var errs []error

	if r.line != nil {
		if err := r.line.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("release %s: %w", r.name, err))
		}
		if err := r.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", r.name, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

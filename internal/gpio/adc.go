//go:build linux

package gpio

import (
	"fmt"

	"gobot.io/x/gobot/v2/drivers/i2c"
	"gobot.io/x/gobot/v2/platforms/raspi"
)

// ADCSensor reads the level sensor through an ADS1115 on the Pi's I2C bus.
type ADCSensor struct {
	adaptor *raspi.Adaptor
	driver  *i2c.ADS1x15Driver
	channel string
}

// NewADCSensor connects to the ADS1115 at the given bus and address and reads
// from channel ("0".."3").
func NewADCSensor(bus, address int, channel string) (*ADCSensor, error) {
	adaptor := raspi.NewAdaptor()
	if err := adaptor.Connect(); err != nil {
		return nil, fmt.Errorf("connect raspi adaptor: %w", err)
	}

	driver := i2c.NewADS1115Driver(adaptor, i2c.WithBus(bus), i2c.WithAddress(address))
	if err := driver.Start(); err != nil {
		adaptor.Finalize()
		return nil, fmt.Errorf("start ads1115 at bus %d addr 0x%02x: %w", bus, address, err)
	}

	return &ADCSensor{
		adaptor: adaptor,
		driver:  driver,
		channel: channel,
	}, nil
}

// Read returns the configured channel scaled to the 10-bit range.
func (s *ADCSensor) Read() (int, error) {
	count, err := s.driver.AnalogRead(s.channel)
	if err != nil {
		return 0, fmt.Errorf("read ads1115 channel %s: %w", s.channel, err)
	}
	return ScaleADS1115(count), nil
}

// Close halts the driver and releases the I2C bus.
func (s *ADCSensor) Close() error {
	var errs []error

	if s.driver != nil {
		if err := s.driver.Halt(); err != nil {
			errs = append(errs, fmt.Errorf("halt ads1115: %w", err))
		}
	}
	if s.adaptor != nil {
		if err := s.adaptor.Finalize(); err != nil {
			errs = append(errs, fmt.Errorf("finalize adaptor: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

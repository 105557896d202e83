// Package gpio provides the controller's pin I/O with hardware abstraction.
// The real implementations use the Linux GPIO character device for the relays
// and an ADS1115 ADC on I2C for the water-level sensor.
// The fake implementations allow testing without hardware.
package gpio

// LevelSensor reads the raw water-level sensor value.
type LevelSensor interface {
	// Read returns the raw reading on a 10-bit scale (0..1023 across the
	// sensor supply). Higher values mean less water.
	Read() (int, error)

	// Close releases sensor resources.
	Close() error
}

// Relay drives a single digital output.
type Relay interface {
	// Set energises (true) or releases (false) the relay.
	Set(on bool) error

	// Close releases the output line.
	Close() error
}

// Pin definitions (BCM numbering)
const (
	DefaultPinPump  = 12
	DefaultPinValve = 14
)

// ADC defaults for the level sensor.
const (
	DefaultADCBus     = 1
	DefaultADCAddress = 0x48
	DefaultADCChannel = "0"
)

// ADS1115 conversion as configured by gobot's driver defaults (gain ±4.096V).
const (
	ads1115FullScaleMV = 4096
	ads1115MaxCount    = 32767

	// SensorSupplyMV is the level sensor's supply, the top of its output range.
	SensorSupplyMV = 3300

	// Resolution is the size of the scale Read reports on.
	Resolution = 1024
)

// ScaleADS1115 maps a signed 16-bit ADS1115 count to the 10-bit scale the
// level calibration uses, with the sensor supply at the top of the range.
func ScaleADS1115(count int) int {
	if count <= 0 {
		return 0
	}
	mv := count * ads1115FullScaleMV / ads1115MaxCount
	v := mv * Resolution / SensorSupplyMV
	if v >= Resolution {
		return Resolution - 1
	}
	return v
}

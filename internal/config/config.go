// Package config loads daemon settings from command-line flags. Every flag
// takes its default from an environment variable, and a .env file in the
// working directory is loaded first if present.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sweeney/irrigation-controller/internal/gpio"
	"github.com/sweeney/irrigation-controller/internal/logic"
)

// Clock sources.
const (
	ClockRemote = "remote" // wall clock pushed over MQTT
	ClockLocal  = "local"  // host clock pushed into the controller every tick
)

// Config holds runtime configuration for the daemon.
type Config struct {
	Tick      time.Duration
	Heartbeat time.Duration

	Broker   string
	ClientID string
	Username string
	Password string

	HTTPAddr string

	GPIOChip   string
	PinPump    int
	PinValve   int
	ActiveLow  bool
	ADCBus     int
	ADCAddress int
	ADCChannel string

	RawMin         int
	RawMax         int
	Duration       time.Duration
	Interval       int
	ClockSource    string
	ClockSyncEvery time.Duration

	InfluxURL    string
	InfluxToken  string
	InfluxOrg    string
	InfluxBucket string

	PrintState bool
}

// Load reads .env (ignoring a missing file) and parses args, which should
// not include the program name.
func Load(args []string) (Config, error) {
	_ = godotenv.Load(".env")
	return parse(args, os.Stderr)
}

func parse(args []string, output io.Writer) (Config, error) {
	var c Config
	fs := flag.NewFlagSet("irrigation-controller", flag.ContinueOnError)
	fs.SetOutput(output)

	fs.DurationVar(&c.Tick, "tick", envDuration("IRRIGATION_TICK", time.Second), "Control loop tick interval")
	fs.DurationVar(&c.Heartbeat, "heartbeat", envDuration("IRRIGATION_HEARTBEAT", 15*time.Minute), "Heartbeat interval (0 to disable)")

	fs.StringVar(&c.Broker, "broker", envString("MQTT_BROKER", "tcp://192.168.1.200:1883"), "MQTT broker address")
	fs.StringVar(&c.ClientID, "client-id", envString("MQTT_CLIENT_ID", "irrigation-controller"), "MQTT client ID")
	fs.StringVar(&c.Username, "mqtt-user", envString("MQTT_USERNAME", ""), "MQTT username")
	fs.StringVar(&c.Password, "mqtt-pass", envString("MQTT_PASSWORD", ""), "MQTT password")

	fs.StringVar(&c.HTTPAddr, "http", envString("IRRIGATION_HTTP", ":80"), "HTTP status address (empty to disable)")

	fs.StringVar(&c.GPIOChip, "gpio-chip", envString("GPIO_CHIP", "gpiochip0"), "GPIO character device")
	fs.IntVar(&c.PinPump, "pin-pump", envInt("GPIO_PIN_PUMP", gpio.DefaultPinPump), "BCM pin number for the pump relay")
	fs.IntVar(&c.PinValve, "pin-valve", envInt("GPIO_PIN_VALVE", gpio.DefaultPinValve), "BCM pin number for the valve relay")
	fs.BoolVar(&c.ActiveLow, "active-low", envBool("GPIO_ACTIVE_LOW", false), "Relay board energises on a low output")
	fs.IntVar(&c.ADCBus, "adc-bus", envInt("ADC_BUS", gpio.DefaultADCBus), "I2C bus of the level sensor ADC")
	fs.IntVar(&c.ADCAddress, "adc-addr", envInt("ADC_ADDRESS", gpio.DefaultADCAddress), "I2C address of the level sensor ADC")
	fs.StringVar(&c.ADCChannel, "adc-channel", envString("ADC_CHANNEL", gpio.DefaultADCChannel), "ADC channel wired to the level sensor")

	fs.IntVar(&c.RawMin, "raw-min", envInt("LEVEL_RAW_MIN", logic.DefaultRawMin), "Sensor reading (10-bit scale) for a full reservoir")
	fs.IntVar(&c.RawMax, "raw-max", envInt("LEVEL_RAW_MAX", logic.DefaultRawMax), "Sensor reading (10-bit scale) for an empty reservoir")
	fs.DurationVar(&c.Duration, "duration", envDuration("PUMP_DURATION", logic.DefaultDuration), "Pump run duration until set remotely")
	fs.IntVar(&c.Interval, "interval", envInt("CYCLE_INTERVAL", logic.DefaultInterval), "Schedule preset at startup (3, 6, 9 or 12)")
	fs.StringVar(&c.ClockSource, "clock", envString("CLOCK_SOURCE", ClockRemote), `Wall clock source ("remote" or "local")`)
	fs.DurationVar(&c.ClockSyncEvery, "clock-sync-every", envDuration("CLOCK_SYNC_EVERY", logic.DefaultClockSyncEvery), "How often to request a remote clock push (0 to disable)")

	fs.StringVar(&c.InfluxURL, "influx-url", envString("INFLUX_URL", ""), "InfluxDB URL for history (empty to disable)")
	fs.StringVar(&c.InfluxToken, "influx-token", envString("INFLUX_TOKEN", ""), "InfluxDB API token")
	fs.StringVar(&c.InfluxOrg, "influx-org", envString("INFLUX_ORG", ""), "InfluxDB organisation")
	fs.StringVar(&c.InfluxBucket, "influx-bucket", envString("INFLUX_BUCKET", "irrigation"), "InfluxDB bucket")

	fs.BoolVar(&c.PrintState, "print-state", false, "Print the reservoir level and exit")

	if err := fs.Parse(args); err != nil {
		return c, err
	}
	if err := c.validate(); err != nil {
		return c, err
	}
	return c, nil
}

func (c Config) validate() error {
	if c.Tick <= 0 {
		return errors.New("tick must be positive")
	}
	if c.Heartbeat < 0 {
		return errors.New("heartbeat must not be negative")
	}
	if c.RawMax <= c.RawMin {
		return fmt.Errorf("raw-max (%d) must be greater than raw-min (%d)", c.RawMax, c.RawMin)
	}
	if c.Duration <= 0 {
		return errors.New("duration must be positive")
	}
	if _, ok := logic.Preset(c.Interval); !ok {
		return fmt.Errorf("interval %d is not a schedule preset", c.Interval)
	}
	if c.ClockSource != ClockRemote && c.ClockSource != ClockLocal {
		return fmt.Errorf("unknown clock source %q", c.ClockSource)
	}
	if c.ClockSyncEvery < 0 {
		return errors.New("clock-sync-every must not be negative")
	}
	if c.InfluxURL != "" && c.InfluxOrg == "" {
		return errors.New("influx-org is required when influx-url is set")
	}
	return nil
}

// Logic returns the controller configuration. With a local clock source no
// remote clock pushes are requested.
func (c Config) Logic() logic.Config {
	cfg := logic.Config{
		Calibration:    logic.Calibration{RawMin: c.RawMin, RawMax: c.RawMax},
		Duration:       c.Duration,
		Interval:       c.Interval,
		ClockSyncEvery: c.ClockSyncEvery,
	}
	if c.ClockSource == ClockLocal {
		cfg.ClockSyncEvery = 0
	}
	return cfg
}

// HistoryEnabled reports whether outputs should be recorded to InfluxDB.
func (c Config) HistoryEnabled() bool {
	return c.InfluxURL != ""
}

func envString(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	// Base 0 accepts the 0x48 form used for I2C addresses.
	i, err := strconv.ParseInt(v, 0, 64)
	if err != nil {
		log.Printf("config: ignoring %s=%q: %v", key, v, err)
		return def
	}
	return int(i)
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("config: ignoring %s=%q: %v", key, v, err)
		return def
	}
	return b
}

func envDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("config: ignoring %s=%q: %v", key, v, err)
		return def
	}
	return d
}

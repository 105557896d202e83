// Package logic contains the pure control logic for the irrigation controller.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters, and every operation
// returns the outputs it produced instead of performing I/O.
package logic

import "time"

// Thresholds for the reservoir level, in percent.
const (
	UpperThreshold = 95
	LowerThreshold = 5
)

// ReservoirStatus is the classification of the reservoir level.
type ReservoirStatus string

const (
	ReservoirUnknown ReservoirStatus = ""
	ReservoirOK      ReservoirStatus = "OK"
	ReservoirFull    ReservoirStatus = "FULL"
	ReservoirEmpty   ReservoirStatus = "EMPTY"
)

// ValveState is the state of the reservoir inlet valve.
type ValveState string

const (
	ValveOpen   ValveState = "OPEN"
	ValveClosed ValveState = "CLOSED"
)

// PumpState is the state of the irrigation pump.
type PumpState string

const (
	PumpIdle    PumpState = "IDLE"
	PumpRunning PumpState = "RUNNING"
)

// OutputKind identifies what an Output drives.
type OutputKind string

const (
	OutputPumpProgress   OutputKind = "PUMP_PROGRESS"   // gauge, 0..100
	OutputReservoirLevel OutputKind = "RESERVOIR_LEVEL" // gauge, 0..100
	OutputStatus         OutputKind = "STATUS"          // Text carries the status line
	OutputPumpControl    OutputKind = "PUMP_CONTROL"    // echo of the manual pump switch, 0/1
	OutputValve          OutputKind = "VALVE"           // echo of the valve, 1 = closed
	OutputInputsEnabled  OutputKind = "INPUTS_ENABLED"  // duration/interval inputs, 1 = enabled
	OutputClockSync      OutputKind = "CLOCK_SYNC"      // request for a clock push
	OutputPumpRelay      OutputKind = "PUMP_RELAY"      // physical pump relay, 1 = on
	OutputValveRelay     OutputKind = "VALVE_RELAY"     // physical valve relay, 1 = closed
)

// Physical reports whether the output drives a relay rather than the dashboard.
func (k OutputKind) Physical() bool {
	return k == OutputPumpRelay || k == OutputValveRelay
}

// Output is a single effect produced by the controller.
type Output struct {
	Timestamp time.Time
	Kind      OutputKind
	Value     int
	Text      string
}

// CommandKind identifies a remote input.
type CommandKind string

const (
	CommandPump      CommandKind = "PUMP"      // 1 starts the pump, anything else stops it
	CommandDuration  CommandKind = "DURATION"  // pump run duration in seconds
	CommandInterval  CommandKind = "INTERVAL"  // schedule preset: 3, 6, 9 or 12
	CommandClock     CommandKind = "CLOCK"     // epoch-like seconds, local time
	CommandConnected CommandKind = "CONNECTED" // remote link (re)established
)

// Command is an asynchronous input delivered to the control loop.
type Command struct {
	Kind  CommandKind
	Value int64
}

// Clock is the wall-clock time of day as last pushed by the clock source.
type Clock struct {
	Hour   int
	Minute int
	Synced bool
}

// ClockFromEpoch decomposes an epoch-like seconds value into hour and minute.
func ClockFromEpoch(v int64) Clock {
	sec := v % 86400
	if sec < 0 {
		sec += 86400
	}
	return Clock{
		Hour:   int(sec / 3600),
		Minute: int(sec % 3600 / 60),
		Synced: true,
	}
}

// Snapshot is a point-in-time copy of the controller state.
type Snapshot struct {
	Level         int
	Reservoir     ReservoirStatus
	Valve         ValveState
	Pump          PumpState
	Progress      int
	PumpStartedAt time.Time
	RunDuration   time.Duration
	Duration      time.Duration
	InputsEnabled bool
	Interval      int
	Table         Table
	NextCycleHour int
	Clock         Clock
	LastStatus    string
	CyclesStarted int
}

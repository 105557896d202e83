package logic

import "time"

// DefaultClockSyncEvery is how often a clock push is requested.
const DefaultClockSyncEvery = time.Minute

// Config configures a Controller.
type Config struct {
	Calibration Calibration
	// Duration is the pump run duration until a duration command arrives.
	Duration time.Duration
	// Interval is the schedule preset installed at startup.
	Interval int
	// ClockSyncEvery throttles clock-sync requests from Tick and Advance.
	// Zero disables periodic requests.
	ClockSyncEvery time.Duration
}

// DefaultConfig returns the stock controller configuration.
func DefaultConfig() Config {
	return Config{
		Calibration:    DefaultCalibration(),
		Duration:       DefaultDuration,
		Interval:       DefaultInterval,
		ClockSyncEvery: DefaultClockSyncEvery,
	}
}

// Controller owns all irrigation state. It is not safe for concurrent use:
// one control loop calls Tick, Advance and Apply, and every call returns the
// outputs to dispatch in order.
type Controller struct {
	cfg       Config
	reservoir *Reservoir
	valve     *Valve
	pump      *Pump
	scheduler *Scheduler
	clock     Clock

	lastSyncRequest time.Time
	lastStatus      string
}

// NewController creates a Controller with an idle pump, an open valve and
// the configured schedule preset.
func NewController(cfg Config) *Controller {
	c := &Controller{
		cfg:       cfg,
		reservoir: NewReservoir(cfg.Calibration),
		valve:     NewValve(),
		pump:      NewPump(cfg.Duration),
		scheduler: NewScheduler(),
	}
	if t, ok := Preset(cfg.Interval); ok {
		c.scheduler.table = t
		c.scheduler.interval = cfg.Interval
	}
	return c
}

func (c *Controller) emitter(now time.Time) *emitter {
	return &emitter{now: now, lastStatus: &c.lastStatus}
}

// Tick runs one control cycle with a fresh sensor reading: reservoir check,
// schedule check, then pump step.
func (c *Controller) Tick(now time.Time, raw int) []Output {
	e := c.emitter(now)
	c.valve.Apply(c.reservoir.Evaluate(raw, e), e)
	c.advance(now, e)
	return e.outs
}

// Advance runs the schedule check and pump step without a new reading, using
// the last known level. Used when the sensor cannot be read.
func (c *Controller) Advance(now time.Time) []Output {
	e := c.emitter(now)
	c.advance(now, e)
	return e.outs
}

func (c *Controller) advance(now time.Time, e *emitter) {
	c.requestClockSync(now, e)
	if c.scheduler.Due(c.clock, e) {
		c.pump.Start(now, c.reservoir.Level(), e)
	}
	c.pump.Step(now, c.reservoir.Level(), e)
}

func (c *Controller) requestClockSync(now time.Time, e *emitter) {
	if c.cfg.ClockSyncEvery <= 0 {
		return
	}
	if !c.lastSyncRequest.IsZero() && now.Sub(c.lastSyncRequest) < c.cfg.ClockSyncEvery {
		return
	}
	c.lastSyncRequest = now
	e.emit(OutputClockSync, 1)
}

// Apply handles a remote command.
func (c *Controller) Apply(now time.Time, cmd Command) []Output {
	e := c.emitter(now)
	switch cmd.Kind {
	case CommandPump:
		if cmd.Value == 1 {
			c.pump.Start(now, c.reservoir.Level(), e)
		} else {
			c.pump.Stop(e)
		}
	case CommandDuration:
		c.pump.SetDuration(cmd.Value)
	case CommandInterval:
		c.scheduler.Install(int(cmd.Value), c.clock, e)
	case CommandClock:
		first := !c.clock.Synced
		c.clock = ClockFromEpoch(cmd.Value)
		if first {
			c.scheduler.Recompute(c.clock, e)
		}
	case CommandConnected:
		// The dashboard switch is echoed off even when idle so a stale "on"
		// left from before the link dropped does not linger.
		wasRunning := c.pump.State() == PumpRunning
		c.pump.Stop(e)
		if !wasRunning {
			e.emit(OutputPumpControl, 0)
		}
		e.emit(OutputValve, boolToInt(c.valve.State() == ValveClosed))
		e.emit(OutputReservoirLevel, c.reservoir.Level())
		c.lastSyncRequest = now
		e.emit(OutputClockSync, 1)
		c.scheduler.Recompute(c.clock, e)
	}
	return e.outs
}

// Snapshot returns a copy of the controller state.
func (c *Controller) Snapshot() Snapshot {
	return Snapshot{
		Level:         c.reservoir.Level(),
		Reservoir:     c.reservoir.Status(),
		Valve:         c.valve.State(),
		Pump:          c.pump.State(),
		Progress:      c.pump.progress,
		PumpStartedAt: c.pump.StartedAt(),
		RunDuration:   c.pump.run,
		Duration:      c.pump.duration,
		InputsEnabled: c.pump.inputsOn,
		Interval:      c.scheduler.Interval(),
		Table:         c.scheduler.Table(),
		NextCycleHour: c.scheduler.Next(),
		Clock:         c.clock,
		LastStatus:    c.lastStatus,
		CyclesStarted: c.pump.cycles,
	}
}

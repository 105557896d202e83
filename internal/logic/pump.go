package logic

import "time"

// DefaultDuration is the pump run duration until the dashboard sets one.
const DefaultDuration = 64 * time.Second

// MaxDuration bounds the run duration. Longer requests are clamped to it.
const MaxDuration = 24 * time.Hour

// Pump runs the irrigation pump for a bounded duration. The run is advanced
// one tick at a time by Step and never blocks the caller.
type Pump struct {
	state     PumpState
	startedAt time.Time
	duration  time.Duration // applies to the next start
	run       time.Duration // captured at start
	progress  int
	inputsOn  bool
	cycles    int
}

// NewPump creates an idle Pump with the given default run duration.
func NewPump(duration time.Duration) *Pump {
	return &Pump{
		state:    PumpIdle,
		duration: duration,
		inputsOn: true,
	}
}

// Start begins a run unless one is in progress or the reservoir is too low
// to run without drying out the pump. A refused start bounces the dashboard
// switch back to 0.
func (p *Pump) Start(now time.Time, level int, e *emitter) bool {
	if p.state == PumpRunning {
		return false
	}
	// Exclusive, so a start is never granted at a level Step would abort.
	if level <= LowerThreshold {
		e.emit(OutputPumpControl, 0)
		return false
	}

	p.state = PumpRunning
	p.startedAt = now
	p.run = p.duration
	p.cycles++

	e.status(StatusPumpStart)
	e.emit(OutputPumpRelay, 1)
	e.emit(OutputPumpControl, 1)
	p.setInputs(false, e)
	return true
}

// Stop ends a run if one is in progress. The progress gauge is zeroed and the
// configuration inputs are re-enabled in every case so that any abort path
// leaves the dashboard usable.
func (p *Pump) Stop(e *emitter) {
	if p.state == PumpRunning {
		p.state = PumpIdle
		e.status(StatusPumpIdle)
		e.emit(OutputPumpRelay, 0)
		e.emit(OutputPumpControl, 0)
	}
	p.progress = 0
	e.emit(OutputPumpProgress, 0)
	p.setInputs(true, e)
}

// Step advances a running pump by one tick. It reports progress while time
// remains and the reservoir holds water, and stops the pump otherwise.
func (p *Pump) Step(now time.Time, level int, e *emitter) {
	if p.state != PumpRunning {
		return
	}
	elapsed := now.Sub(p.startedAt)
	if elapsed < 0 {
		elapsed = 0
	}
	if p.run > 0 && elapsed < p.run && level > LowerThreshold {
		p.progress = int(elapsed.Milliseconds() * 100 / p.run.Milliseconds())
		e.emit(OutputPumpProgress, p.progress)
		return
	}
	p.Stop(e)
}

// SetDuration sets the run duration in seconds for the next start.
// Negative values are ignored and values above MaxDuration are clamped.
func (p *Pump) SetDuration(seconds int64) {
	if seconds < 0 {
		return
	}
	if seconds > int64(MaxDuration/time.Second) {
		p.duration = MaxDuration
		return
	}
	p.duration = time.Duration(seconds) * time.Second
}

func (p *Pump) setInputs(on bool, e *emitter) {
	p.inputsOn = on
	e.emit(OutputInputsEnabled, boolToInt(on))
}

// State returns the pump state.
func (p *Pump) State() PumpState {
	return p.state
}

// StartedAt returns the start time of the current or last run.
func (p *Pump) StartedAt() time.Time {
	return p.startedAt
}

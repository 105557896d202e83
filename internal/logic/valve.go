package logic

// Valve drives the reservoir inlet valve. There is no feedback sensor, so
// relay writes are assumed to succeed.
type Valve struct {
	state ValveState
}

// NewValve creates a Valve in the open position.
func NewValve() *Valve {
	return &Valve{state: ValveOpen}
}

// Apply moves the valve to the given state. Re-asserting the current state
// produces no outputs.
func (v *Valve) Apply(to ValveState, e *emitter) {
	if v.state == to {
		return
	}
	v.state = to
	closed := boolToInt(to == ValveClosed)
	e.emit(OutputValveRelay, closed)
	e.emit(OutputValve, closed)
}

// State returns the current valve state.
func (v *Valve) State() ValveState {
	return v.state
}

package logic

// Default raw sensor range. The sensor reads higher when the tank is emptier.
const (
	DefaultRawMin = 400
	DefaultRawMax = 1024
)

// Calibration maps raw sensor readings to a fill percentage.
// RawMin corresponds to 100% and RawMax to 0%.
type Calibration struct {
	RawMin int
	RawMax int
}

// DefaultCalibration returns the calibration for the stock sensor.
func DefaultCalibration() Calibration {
	return Calibration{RawMin: DefaultRawMin, RawMax: DefaultRawMax}
}

// Level converts a raw reading to a percentage clamped to [0,100].
func (c Calibration) Level(raw int) int {
	if c.RawMax == c.RawMin {
		return 0
	}
	level := (raw-c.RawMin)*(0-100)/(c.RawMax-c.RawMin) + 100
	if level < 0 {
		return 0
	}
	if level > 100 {
		return 100
	}
	return level
}

// Reservoir classifies the water level and decides the valve position.
type Reservoir struct {
	cal    Calibration
	level  int
	status ReservoirStatus
}

// NewReservoir creates a Reservoir with no reading yet.
func NewReservoir(cal Calibration) *Reservoir {
	return &Reservoir{cal: cal}
}

// Evaluate maps a raw reading, reports the level gauge and announces status
// transitions. It returns the valve state the level calls for.
func (r *Reservoir) Evaluate(raw int, e *emitter) ValveState {
	r.level = r.cal.Level(raw)
	e.emit(OutputReservoirLevel, r.level)

	switch {
	case r.level >= UpperThreshold:
		r.transition(ReservoirFull, StatusReservoirFull, e)
		return ValveClosed
	case r.level <= LowerThreshold:
		r.transition(ReservoirEmpty, StatusReservoirEmpty, e)
		return ValveOpen
	default:
		r.transition(ReservoirOK, StatusReservoirOK, e)
		return ValveOpen
	}
}

func (r *Reservoir) transition(to ReservoirStatus, text string, e *emitter) {
	if r.status == to {
		return
	}
	r.status = to
	e.status(text)
}

// Level returns the most recent level in percent.
func (r *Reservoir) Level() int {
	return r.level
}

// Status returns the current classification.
func (r *Reservoir) Status() ReservoirStatus {
	return r.status
}

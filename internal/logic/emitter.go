package logic

import "time"

// emitter collects the outputs of one controller operation in order.
type emitter struct {
	now  time.Time
	outs []Output

	// lastStatus is the most recent status line, kept for snapshots.
	lastStatus *string
}

func (e *emitter) emit(kind OutputKind, value int) {
	e.outs = append(e.outs, Output{Timestamp: e.now, Kind: kind, Value: value})
}

func (e *emitter) status(text string) {
	e.outs = append(e.outs, Output{Timestamp: e.now, Kind: OutputStatus, Text: text})
	if e.lastStatus != nil {
		*e.lastStatus = text
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

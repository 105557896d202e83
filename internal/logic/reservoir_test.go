package logic

import (
	"testing"
	"time"
)

// rawForLevel returns a raw reading that maps to the given level with the
// default calibration.
func rawForLevel(t *testing.T, level int) int {
	t.Helper()
	cal := DefaultCalibration()
	for raw := cal.RawMin; raw <= cal.RawMax; raw++ {
		if cal.Level(raw) == level {
			return raw
		}
	}
	t.Fatalf("no raw reading maps to level %d", level)
	return 0
}

func statusTexts(outs []Output) []string {
	var texts []string
	for _, o := range outs {
		if o.Kind == OutputStatus {
			texts = append(texts, o.Text)
		}
	}
	return texts
}

func countKind(outs []Output, kind OutputKind) int {
	n := 0
	for _, o := range outs {
		if o.Kind == kind {
			n++
		}
	}
	return n
}

func TestCalibrationLevel(t *testing.T) {
	cal := DefaultCalibration()
	tests := []struct {
		raw  int
		want int
	}{
		{400, 100},
		{1024, 0},
		{712, 50},
		{431, 96},
		{993, 5},
		{0, 100},    // below range clamps
		{1500, 0},   // above range clamps
		{-100, 100}, // garbage clamps
	}
	for _, tt := range tests {
		if got := cal.Level(tt.raw); got != tt.want {
			t.Errorf("Level(%d): got %d, want %d", tt.raw, got, tt.want)
		}
	}
}

func TestCalibrationLevelInverted(t *testing.T) {
	cal := DefaultCalibration()
	prev := cal.Level(cal.RawMin)
	for raw := cal.RawMin + 1; raw <= cal.RawMax; raw++ {
		got := cal.Level(raw)
		if got > prev {
			t.Fatalf("level rose from %d to %d at raw %d", prev, got, raw)
		}
		prev = got
	}
}

func TestCalibrationDegenerate(t *testing.T) {
	cal := Calibration{RawMin: 500, RawMax: 500}
	if got := cal.Level(500); got != 0 {
		t.Errorf("degenerate calibration: got %d, want 0", got)
	}
}

func TestReservoirEmitsLevelEveryTick(t *testing.T) {
	r := NewReservoir(DefaultCalibration())
	for i := 0; i < 3; i++ {
		e := &emitter{now: time.Now()}
		r.Evaluate(712, e)
		if countKind(e.outs, OutputReservoirLevel) != 1 {
			t.Fatalf("tick %d: expected one level gauge, got %v", i, e.outs)
		}
		if e.outs[0].Value != 50 {
			t.Errorf("tick %d: level: got %d, want 50", i, e.outs[0].Value)
		}
	}
}

func TestReservoirFullAnnouncedOnce(t *testing.T) {
	r := NewReservoir(DefaultCalibration())
	raw := rawForLevel(t, 97)

	e := &emitter{}
	if got := r.Evaluate(raw, e); got != ValveClosed {
		t.Errorf("valve: got %s, want CLOSED", got)
	}
	if texts := statusTexts(e.outs); len(texts) != 1 || texts[0] != StatusReservoirFull {
		t.Errorf("first FULL tick: got %v", texts)
	}

	for i := 0; i < 5; i++ {
		e = &emitter{}
		if got := r.Evaluate(raw, e); got != ValveClosed {
			t.Errorf("tick %d: valve: got %s, want CLOSED", i, got)
		}
		if texts := statusTexts(e.outs); len(texts) != 0 {
			t.Errorf("tick %d: repeated announcement %v", i, texts)
		}
	}
	if r.Status() != ReservoirFull {
		t.Errorf("status: got %s, want FULL", r.Status())
	}
}

func TestReservoirTransitions(t *testing.T) {
	r := NewReservoir(DefaultCalibration())
	steps := []struct {
		level      int
		wantStatus ReservoirStatus
		wantValve  ValveState
		wantText   string
	}{
		{50, ReservoirOK, ValveOpen, StatusReservoirOK},
		{95, ReservoirFull, ValveClosed, StatusReservoirFull},
		{60, ReservoirOK, ValveOpen, StatusReservoirOK},
		{5, ReservoirEmpty, ValveOpen, StatusReservoirEmpty},
		{2, ReservoirEmpty, ValveOpen, ""},
		{100, ReservoirFull, ValveClosed, StatusReservoirFull},
		{0, ReservoirEmpty, ValveOpen, StatusReservoirEmpty},
	}
	for i, s := range steps {
		e := &emitter{}
		valve := r.Evaluate(rawForLevel(t, s.level), e)
		if valve != s.wantValve {
			t.Errorf("step %d: valve: got %s, want %s", i, valve, s.wantValve)
		}
		if r.Status() != s.wantStatus {
			t.Errorf("step %d: status: got %s, want %s", i, r.Status(), s.wantStatus)
		}
		texts := statusTexts(e.outs)
		if s.wantText == "" {
			if len(texts) != 0 {
				t.Errorf("step %d: unexpected announcement %v", i, texts)
			}
			continue
		}
		if len(texts) != 1 || texts[0] != s.wantText {
			t.Errorf("step %d: announcement: got %v, want %q", i, texts, s.wantText)
		}
	}
}

func TestValveIdempotent(t *testing.T) {
	v := NewValve()

	e := &emitter{}
	v.Apply(ValveOpen, e)
	if len(e.outs) != 0 {
		t.Errorf("re-asserting OPEN produced outputs: %v", e.outs)
	}

	e = &emitter{}
	v.Apply(ValveClosed, e)
	if len(e.outs) != 2 {
		t.Fatalf("closing: expected relay and echo, got %v", e.outs)
	}
	if e.outs[0].Kind != OutputValveRelay || e.outs[0].Value != 1 {
		t.Errorf("relay output: got %+v", e.outs[0])
	}
	if e.outs[1].Kind != OutputValve || e.outs[1].Value != 1 {
		t.Errorf("echo output: got %+v", e.outs[1])
	}

	e = &emitter{}
	v.Apply(ValveClosed, e)
	if len(e.outs) != 0 {
		t.Errorf("re-asserting CLOSED produced outputs: %v", e.outs)
	}

	e = &emitter{}
	v.Apply(ValveOpen, e)
	if len(e.outs) != 2 || e.outs[0].Value != 0 || e.outs[1].Value != 0 {
		t.Errorf("opening: got %v", e.outs)
	}
	if v.State() != ValveOpen {
		t.Errorf("state: got %s, want OPEN", v.State())
	}
}

package history

import (
	"strings"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/sweeney/irrigation-controller/internal/logic"
)

func newTestTagger() *runTagger {
	n := 0
	return &runTagger{newID: func() string {
		n++
		return "run-" + string(rune('0'+n))
	}}
}

func line(p *write.Point) string {
	return write.PointToLineProtocol(p, time.Second)
}

func TestPointGauge(t *testing.T) {
	tg := newTestTagger()
	ts := time.Date(2026, 6, 2, 6, 0, 0, 0, time.UTC)

	p := tg.point(logic.Output{Timestamp: ts, Kind: logic.OutputReservoirLevel, Value: 42})
	if p == nil {
		t.Fatal("expected a point for reservoir level")
	}
	got := line(p)
	if !strings.HasPrefix(got, "irrigation,output=RESERVOIR_LEVEL value=42i ") {
		t.Errorf("unexpected line protocol: %q", got)
	}
	if !strings.Contains(got, "1780380000") {
		t.Errorf("expected timestamp in seconds, got %q", got)
	}
}

func TestPointSkipsEchoes(t *testing.T) {
	tg := newTestTagger()
	for _, kind := range []logic.OutputKind{
		logic.OutputPumpControl,
		logic.OutputValve,
		logic.OutputInputsEnabled,
		logic.OutputClockSync,
	} {
		if p := tg.point(logic.Output{Kind: kind, Value: 1}); p != nil {
			t.Errorf("%s: expected no point", kind)
		}
	}
}

func TestPointStatusText(t *testing.T) {
	tg := newTestTagger()
	p := tg.point(logic.Output{Timestamp: time.Now(), Kind: logic.OutputStatus, Text: "Reservoir full"})
	if p == nil {
		t.Fatal("expected a point for status")
	}
	if !strings.Contains(line(p), `text="Reservoir full"`) {
		t.Errorf("expected text field, got %q", line(p))
	}
}

func TestPointRunTagging(t *testing.T) {
	tg := newTestTagger()
	now := time.Now()

	before := tg.point(logic.Output{Timestamp: now, Kind: logic.OutputPumpProgress, Value: 0})
	if strings.Contains(line(before), "run=") {
		t.Errorf("no run tag expected before the pump starts: %q", line(before))
	}

	start := tg.point(logic.Output{Timestamp: now, Kind: logic.OutputPumpRelay, Value: 1})
	progress := tg.point(logic.Output{Timestamp: now, Kind: logic.OutputPumpProgress, Value: 50})
	stop := tg.point(logic.Output{Timestamp: now, Kind: logic.OutputPumpRelay, Value: 0})
	after := tg.point(logic.Output{Timestamp: now, Kind: logic.OutputPumpProgress, Value: 0})

	for name, p := range map[string]*write.Point{"start": start, "progress": progress, "stop": stop} {
		if !strings.Contains(line(p), "run=run-1") {
			t.Errorf("%s: expected run-1 tag, got %q", name, line(p))
		}
	}
	if strings.Contains(line(after), "run=") {
		t.Errorf("run tag should clear after stop: %q", line(after))
	}

	second := tg.point(logic.Output{Timestamp: now, Kind: logic.OutputPumpRelay, Value: 1})
	if !strings.Contains(line(second), "run=run-2") {
		t.Errorf("second run should get a new ID, got %q", line(second))
	}
}

func TestFakeRecorder(t *testing.T) {
	f := NewFakeRecorder()
	f.Record(logic.Output{Kind: logic.OutputReservoirLevel, Value: 10})
	f.Close()

	if len(f.Outputs) != 1 {
		t.Errorf("expected 1 output, got %d", len(f.Outputs))
	}
	if !f.Closed {
		t.Error("expected Closed=true")
	}
}

// Compile-time interface checks.
var (
	_ Recorder = (*FakeRecorder)(nil)
	_ Recorder = (*InfluxRecorder)(nil)
)

package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sweeney/irrigation-controller/internal/logic"
)

func TestObserveGauges(t *testing.T) {
	m := New()
	now := time.Now()

	m.Observe(logic.Output{Timestamp: now, Kind: logic.OutputReservoirLevel, Value: 63})
	m.Observe(logic.Output{Timestamp: now, Kind: logic.OutputPumpProgress, Value: 50})
	m.Observe(logic.Output{Timestamp: now, Kind: logic.OutputValveRelay, Value: 1})
	m.Observe(logic.Output{Timestamp: now, Kind: logic.OutputInputsEnabled, Value: 0})

	if got := testutil.ToFloat64(m.reservoirLevel); got != 63 {
		t.Errorf("reservoir level: got %v, want 63", got)
	}
	if got := testutil.ToFloat64(m.pumpProgress); got != 50 {
		t.Errorf("pump progress: got %v, want 50", got)
	}
	if got := testutil.ToFloat64(m.valveClosed); got != 1 {
		t.Errorf("valve closed: got %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.inputsEnabled); got != 0 {
		t.Errorf("inputs enabled: got %v, want 0", got)
	}
}

func TestObservePumpRelayCountsCycles(t *testing.T) {
	m := New()

	m.Observe(logic.Output{Kind: logic.OutputPumpRelay, Value: 1})
	m.Observe(logic.Output{Kind: logic.OutputPumpRelay, Value: 0})
	m.Observe(logic.Output{Kind: logic.OutputPumpRelay, Value: 1})

	if got := testutil.ToFloat64(m.cyclesStarted); got != 2 {
		t.Errorf("cycles started: got %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.pumpRunning); got != 1 {
		t.Errorf("pump running: got %v, want 1", got)
	}
}

func TestObserveIgnoresTextOutputs(t *testing.T) {
	m := New()
	m.Observe(logic.Output{Kind: logic.OutputStatus, Text: "Reservoir OK"})
	m.Observe(logic.Output{Kind: logic.OutputClockSync, Value: 1})

	if got := testutil.ToFloat64(m.reservoirLevel); got != 0 {
		t.Errorf("reservoir level should be untouched, got %v", got)
	}
}

func TestCounters(t *testing.T) {
	m := New()

	m.Command(logic.CommandPump)
	m.Command(logic.CommandPump)
	m.Command(logic.CommandInterval)
	m.SensorError()
	m.PublishError()
	m.PublishError()

	if got := testutil.ToFloat64(m.commandsTotal.WithLabelValues("PUMP")); got != 2 {
		t.Errorf("PUMP commands: got %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.commandsTotal.WithLabelValues("INTERVAL")); got != 1 {
		t.Errorf("INTERVAL commands: got %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.sensorErrors); got != 1 {
		t.Errorf("sensor errors: got %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.publishErrors); got != 2 {
		t.Errorf("publish errors: got %v, want 2", got)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.Observe(logic.Output{Kind: logic.OutputReservoirLevel, Value: 1})
	m.Command(logic.CommandPump)
	m.SensorError()
	m.PublishError()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("nil handler: got %d, want 404", rec.Code)
	}
}

func TestWrapHandlerCountsRequests(t *testing.T) {
	m := New()
	h := m.WrapHandler("/api/pump", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/pump", nil))

	if got := testutil.ToFloat64(m.httpRequests.WithLabelValues("/api/pump", "202")); got != 1 {
		t.Errorf("requests: got %v, want 1", got)
	}
}

func TestHandlerExposition(t *testing.T) {
	m := New()
	m.Observe(logic.Output{Kind: logic.OutputReservoirLevel, Value: 42})

	ts := httptest.NewServer(m.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if !strings.Contains(string(body), "irrigation_reservoir_level_percent 42") {
		t.Errorf("exposition missing reservoir level:\n%s", body)
	}
}

// Package history records controller outputs to InfluxDB so the
// reservoir level and pump runs can be charted over time.
package history

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/sweeney/irrigation-controller/internal/logic"
)

const measurement = "irrigation"

// HealthTimeout bounds the startup health check.
const HealthTimeout = 5 * time.Second

// Recorder persists controller outputs.
type Recorder interface {
	Record(out logic.Output)
	Close() error
}

// recorded lists the output kinds worth keeping. Echoes and clock sync
// requests only matter to the live dashboard.
var recorded = map[logic.OutputKind]bool{
	logic.OutputReservoirLevel: true,
	logic.OutputPumpProgress:   true,
	logic.OutputPumpRelay:      true,
	logic.OutputValveRelay:     true,
	logic.OutputStatus:         true,
}

// runTagger assigns a run ID to every point written while the pump relay
// is on, so the progress points of one run can be grouped.
type runTagger struct {
	current string
	newID   func() string
}

func newRunTagger() *runTagger {
	return &runTagger{newID: uuid.NewString}
}

// point builds the point for out, or nil if the kind is not recorded.
func (r *runTagger) point(out logic.Output) *write.Point {
	if !recorded[out.Kind] {
		return nil
	}
	if out.Kind == logic.OutputPumpRelay && out.Value == 1 {
		r.current = r.newID()
	}

	p := influxdb2.NewPointWithMeasurement(measurement).
		AddTag("output", string(out.Kind)).
		AddField("value", out.Value).
		SetTime(out.Timestamp)
	if out.Text != "" {
		p.AddField("text", out.Text)
	}
	if r.current != "" {
		p.AddTag("run", r.current)
	}

	if out.Kind == logic.OutputPumpRelay && out.Value == 0 {
		r.current = ""
	}
	return p
}

// InfluxRecorder writes points through the non-blocking write API. Writes
// are batched by the client library; failures are logged.
type InfluxRecorder struct {
	client influxdb2.Client
	api    api.WriteAPI
	tagger *runTagger
	done   chan struct{}
}

// NewInfluxRecorder creates a recorder for the given server and bucket.
// Caller should call Close() when done.
func NewInfluxRecorder(url, token, org, bucket string) *InfluxRecorder {
	client := influxdb2.NewClientWithOptions(url, token,
		influxdb2.DefaultOptions().SetBatchSize(50).SetFlushInterval(10000))
	r := &InfluxRecorder{
		client: client,
		api:    client.WriteAPI(org, bucket),
		tagger: newRunTagger(),
		done:   make(chan struct{}),
	}
	go r.logErrors()
	return r
}

func (r *InfluxRecorder) logErrors() {
	errs := r.api.Errors()
	for {
		select {
		case err := <-errs:
			log.Printf("history: write: %v", err)
		case <-r.done:
			return
		}
	}
}

// Health checks that InfluxDB is reachable and the token is valid.
func (r *InfluxRecorder) Health(ctx context.Context) error {
	if _, err := r.client.Health(ctx); err != nil {
		return fmt.Errorf("influx health: %w", err)
	}
	return nil
}

// Record queues a point for out. It never blocks on the network.
func (r *InfluxRecorder) Record(out logic.Output) {
	if p := r.tagger.point(out); p != nil {
		r.api.WritePoint(p)
	}
}

// Close flushes pending points and releases the client.
func (r *InfluxRecorder) Close() error {
	r.api.Flush()
	close(r.done)
	r.client.Close()
	return nil
}

// FakeRecorder records outputs for test assertions.
type FakeRecorder struct {
	Outputs []logic.Output
	Closed  bool
}

// NewFakeRecorder creates a FakeRecorder for testing.
func NewFakeRecorder() *FakeRecorder {
	return &FakeRecorder{}
}

// Record stores out.
func (f *FakeRecorder) Record(out logic.Output) {
	f.Outputs = append(f.Outputs, out)
}

// Close marks the recorder as closed.
func (f *FakeRecorder) Close() error {
	f.Closed = true
	return nil
}

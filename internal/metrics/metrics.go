// Package metrics exposes controller state and activity as Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sweeney/irrigation-controller/internal/logic"
)

const namespace = "irrigation"

// Metrics holds the controller's collectors on a private registry. All
// methods are safe to call on a nil *Metrics.
type Metrics struct {
	registry *prometheus.Registry

	reservoirLevel prometheus.Gauge
	pumpProgress   prometheus.Gauge
	pumpRunning    prometheus.Gauge
	valveClosed    prometheus.Gauge
	inputsEnabled  prometheus.Gauge
	cyclesStarted  prometheus.Counter
	commandsTotal  *prometheus.CounterVec
	sensorErrors   prometheus.Counter
	publishErrors  prometheus.Counter
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
}

// New creates and registers the controller metrics.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		reservoirLevel: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reservoir_level_percent",
			Help:      "Last reservoir level reading, 0 to 100.",
		}),
		pumpProgress: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pump_progress_percent",
			Help:      "Progress of the current pump run, 0 to 100.",
		}),
		pumpRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pump_running",
			Help:      "Pump relay state (1 running, 0 idle).",
		}),
		valveClosed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "valve_closed",
			Help:      "Inlet valve relay state (1 closed, 0 open).",
		}),
		inputsEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "inputs_enabled",
			Help:      "Whether the duration and interval inputs are accepted.",
		}),
		cyclesStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pump_cycles_started_total",
			Help:      "Total pump runs started, scheduled or manual.",
		}),
		commandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Total commands applied by kind.",
		}, []string{"kind"}),
		sensorErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sensor_read_errors_total",
			Help:      "Total failed reservoir level reads.",
		}),
		publishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      "Total outputs that could not be handed to the broker client.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total count of HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Histogram of HTTP request durations by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}

	m.registry.MustRegister(
		m.reservoirLevel,
		m.pumpProgress,
		m.pumpRunning,
		m.valveClosed,
		m.inputsEnabled,
		m.cyclesStarted,
		m.commandsTotal,
		m.sensorErrors,
		m.publishErrors,
		m.httpRequests,
		m.httpDuration,
		collectors.NewGoCollector(),
	)

	m.inputsEnabled.Set(1)

	return m
}

// Observe updates the metrics affected by one controller output.
func (m *Metrics) Observe(out logic.Output) {
	if m == nil {
		return
	}
	v := float64(out.Value)
	switch out.Kind {
	case logic.OutputReservoirLevel:
		m.reservoirLevel.Set(v)
	case logic.OutputPumpProgress:
		m.pumpProgress.Set(v)
	case logic.OutputPumpRelay:
		m.pumpRunning.Set(v)
		if out.Value == 1 {
			m.cyclesStarted.Inc()
		}
	case logic.OutputValveRelay:
		m.valveClosed.Set(v)
	case logic.OutputInputsEnabled:
		m.inputsEnabled.Set(v)
	}
}

// Command counts an applied command.
func (m *Metrics) Command(kind logic.CommandKind) {
	if m == nil {
		return
	}
	m.commandsTotal.WithLabelValues(string(kind)).Inc()
}

// SensorError counts a failed level read.
func (m *Metrics) SensorError() {
	if m == nil {
		return
	}
	m.sensorErrors.Inc()
}

// PublishError counts a failed publish.
func (m *Metrics) PublishError() {
	if m == nil {
		return
	}
	m.publishErrors.Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// WrapHandler records request counts and durations for route.
func (m *Metrics) WrapHandler(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(recorder, r)

		if m != nil {
			m.httpRequests.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
			m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		}
	})
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

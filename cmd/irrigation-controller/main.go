// Command irrigation-controller keeps the reservoir topped up, runs the pump
// on a daily schedule and mirrors its state to the dashboard over MQTT.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/irrigation-controller/internal/config"
	"github.com/sweeney/irrigation-controller/internal/gpio"
	"github.com/sweeney/irrigation-controller/internal/history"
	"github.com/sweeney/irrigation-controller/internal/logic"
	"github.com/sweeney/irrigation-controller/internal/metrics"
	"github.com/sweeney/irrigation-controller/internal/mqtt"
	"github.com/sweeney/irrigation-controller/internal/status"
	"github.com/sweeney/irrigation-controller/internal/web"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if err := run(cfg); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(cfg config.Config) error {
	// Initialize level sensor
	sensor, err := gpio.NewADCSensor(cfg.ADCBus, cfg.ADCAddress, cfg.ADCChannel)
	if err != nil {
		return fmt.Errorf("init level sensor: %w", err)
	}
	defer sensor.Close()

	// Print state mode
	if cfg.PrintState {
		raw, err := sensor.Read()
		if err != nil {
			return fmt.Errorf("read level sensor: %w", err)
		}
		cal := cfg.Logic().Calibration
		fmt.Printf("raw: %d, level: %d%%\n", raw, cal.Level(raw))
		return nil
	}

	// Initialize relays. Close drives them off, so the pump stops even if
	// the loop exits abnormally.
	pump, err := gpio.NewRealRelay(cfg.GPIOChip, cfg.PinPump, "pump", cfg.ActiveLow)
	if err != nil {
		return fmt.Errorf("init pump relay: %w", err)
	}
	defer pump.Close()
	valve, err := gpio.NewRealRelay(cfg.GPIOChip, cfg.PinValve, "valve", cfg.ActiveLow)
	if err != nil {
		return fmt.Errorf("init valve relay: %w", err)
	}
	defer valve.Close()

	// Commands from MQTT and HTTP are funnelled into the control loop.
	commands := make(chan logic.Command, 16)

	// Initialize MQTT
	client, err := mqtt.NewRealClient(mqtt.Options{
		Broker:   cfg.Broker,
		ClientID: cfg.ClientID,
		Username: cfg.Username,
		Password: cfg.Password,
	}, commands)
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer client.Close()

	m := metrics.New()

	var recorder history.Recorder
	if cfg.HistoryEnabled() {
		influx := history.NewInfluxRecorder(cfg.InfluxURL, cfg.InfluxToken, cfg.InfluxOrg, cfg.InfluxBucket)
		ctx, cancel := context.WithTimeout(context.Background(), history.HealthTimeout)
		if err := influx.Health(ctx); err != nil {
			log.Printf("history: %v (points will be retried by the client)", err)
		}
		cancel()
		defer influx.Close()
		recorder = influx
	}

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		TickMs:      cfg.Tick.Milliseconds(),
		HeartbeatMs: cfg.Heartbeat.Milliseconds(),
		Broker:      cfg.Broker,
		HTTPAddr:    cfg.HTTPAddr,
		ClockSource: cfg.ClockSource,
		History:     cfg.HistoryEnabled(),
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	ctrl := logic.NewController(cfg.Logic())
	tracker.Update(ctrl.Snapshot())
	tracker.SetMQTTConnected(client.IsConnected())

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      mqtt.EventStartup,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, mqtt.EventStartup, ""),
	}
	if err := client.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}

	// Start HTTP status server
	if cfg.HTTPAddr != "" {
		srv := web.New(cfg.HTTPAddr, tracker, commands, m)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTPAddr)
	}

	log.Printf("started: tick=%v broker=%s interval=%d duration=%v clock=%s heartbeat=%v",
		cfg.Tick, cfg.Broker, cfg.Interval, cfg.Duration, cfg.ClockSource, cfg.Heartbeat)

	ticker := time.NewTicker(cfg.Tick)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	l := &loop{
		ctrl:       ctrl,
		sensor:     sensor,
		pump:       pump,
		valve:      valve,
		publisher:  client,
		mqttStatus: client,
		tracker:    tracker,
		metrics:    m,
		history:    recorder,
		heartbeat:  cfg.Heartbeat,
		localClock: cfg.ClockSource == config.ClockLocal,
		now:        time.Now,
	}
	return l.run(ticker.C, commands, sigCh)
}

// loop owns the controller. Everything that changes controller state runs on
// the goroutine that calls run.
type loop struct {
	ctrl       *logic.Controller
	sensor     gpio.LevelSensor
	pump       gpio.Relay
	valve      gpio.Relay
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus // optional
	tracker    *status.Tracker       // optional
	metrics    *metrics.Metrics      // optional
	history    history.Recorder      // optional
	heartbeat  time.Duration
	localClock bool
	now        func() time.Time

	lastHeartbeat time.Time
}

func (l *loop) run(tick <-chan time.Time, commands <-chan logic.Command, sig <-chan os.Signal) error {
	l.lastHeartbeat = l.now()

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			l.shutdown(signalName(s))
			return nil

		case cmd := <-commands:
			log.Printf("command: %s %d", cmd.Kind, cmd.Value)
			l.metrics.Command(cmd.Kind)
			l.dispatch(l.ctrl.Apply(l.now(), cmd))
			l.updateTracker()

		case t := <-tick:
			if l.localClock {
				l.dispatch(l.ctrl.Apply(t, logic.Command{Kind: logic.CommandClock, Value: localEpoch(t)}))
			}

			raw, err := l.sensor.Read()
			if err != nil {
				log.Printf("level sensor read error: %v", err)
				l.metrics.SensorError()
				l.dispatch(l.ctrl.Advance(t))
			} else {
				l.dispatch(l.ctrl.Tick(t, raw))
			}
			if l.tracker != nil {
				l.tracker.RecordTick(err == nil)
			}

			l.updateTracker()
			l.checkHeartbeat(t)
		}
	}
}

// dispatch drives the relays and forwards every output to the publisher,
// metrics and history. Failures are logged and never stop the loop.
func (l *loop) dispatch(outs []logic.Output) {
	for _, out := range outs {
		switch out.Kind {
		case logic.OutputPumpRelay:
			if err := l.pump.Set(out.Value == 1); err != nil {
				log.Printf("pump relay error: %v", err)
			}
		case logic.OutputValveRelay:
			if err := l.valve.Set(out.Value == 1); err != nil {
				log.Printf("valve relay error: %v", err)
			}
		case logic.OutputStatus:
			log.Printf("status: %s", out.Text)
		}

		if err := l.publisher.Publish(out); err != nil {
			log.Printf("publish error: %v", err)
			l.metrics.PublishError()
		}
		l.metrics.Observe(out)
		if l.history != nil {
			l.history.Record(out)
		}
	}
}

func (l *loop) updateTracker() {
	if l.tracker == nil {
		return
	}
	l.tracker.Update(l.ctrl.Snapshot())
	if l.mqttStatus != nil {
		l.tracker.SetMQTTConnected(l.mqttStatus.IsConnected())
	}
}

func (l *loop) checkHeartbeat(t time.Time) {
	if l.heartbeat <= 0 || t.Sub(l.lastHeartbeat) < l.heartbeat {
		return
	}
	l.lastHeartbeat = t

	cs := l.ctrl.Snapshot()
	log.Printf("heartbeat: level=%d%% pump=%s valve=%s cycles=%d next=%d:00",
		cs.Level, cs.Pump, cs.Valve, cs.CyclesStarted, cs.NextCycleHour)

	hbEvent := mqtt.SystemEvent{
		Timestamp: t,
		Event:     mqtt.EventHeartbeat,
	}
	if l.tracker != nil {
		// Refresh network info for heartbeat
		if net := readNetworkInfo(); net != nil {
			l.tracker.SetNetwork(net)
		}
		hbEvent.RawPayload = status.FormatStatusEvent(l.tracker.Snapshot(), mqtt.EventHeartbeat, "")
	}
	if err := l.publisher.PublishSystem(hbEvent); err != nil {
		log.Printf("heartbeat publish error: %v", err)
	}
}

// shutdown stops the pump and publishes the retained SHUTDOWN event.
func (l *loop) shutdown(reason string) {
	t := l.now()
	if l.ctrl.Snapshot().Pump == logic.PumpRunning {
		log.Printf("stopping pump")
	}
	l.dispatch(l.ctrl.Apply(t, logic.Command{Kind: logic.CommandPump, Value: 0}))

	event := mqtt.SystemEvent{
		Timestamp: t,
		Event:     mqtt.EventShutdown,
		Reason:    reason,
		Retained:  true,
	}
	if l.tracker != nil {
		l.updateTracker()
		event.RawPayload = status.FormatStatusEvent(l.tracker.Snapshot(), mqtt.EventShutdown, reason)
	}
	if err := l.publisher.PublishSystem(event); err != nil {
		log.Printf("failed to publish shutdown event: %v", err)
	} else {
		log.Printf("published shutdown event")
	}
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}

// localEpoch returns t as seconds since the epoch in t's own time zone, the
// form the remote clock pushes.
func localEpoch(t time.Time) int64 {
	_, offset := t.Zone()
	return t.Unix() + int64(offset)
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}

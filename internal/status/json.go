package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/irrigation-controller/internal/logic"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string        `json:"event,omitempty"`
	Reason        string        `json:"reason,omitempty"`
	Reservoir     ReservoirJSON `json:"reservoir"`
	Valve         string        `json:"valve"`
	Pump          PumpJSON      `json:"pump"`
	Schedule      ScheduleJSON  `json:"schedule"`
	Display       string        `json:"display"`
	UptimeSeconds int64         `json:"uptime_seconds"`
	StartTime     string        `json:"start_time"`
	Timestamp     string        `json:"timestamp"`
	Ticks         uint64        `json:"ticks"`
	SensorErrors  int           `json:"sensor_errors"`
	MQTT          MQTTStatus    `json:"mqtt"`
	Network       *NetworkJSON  `json:"network,omitempty"`
	Config        ConfigJSON    `json:"config"`
}

// ReservoirJSON reports the last reservoir reading.
type ReservoirJSON struct {
	Level  int    `json:"level"`
	Status string `json:"status"`
}

// PumpJSON reports the pump state and the current or last run.
type PumpJSON struct {
	State           string `json:"state"`
	Progress        int    `json:"progress"`
	StartedAt       string `json:"started_at,omitempty"`
	DurationSeconds int64  `json:"duration_seconds"`
	InputsEnabled   bool   `json:"inputs_enabled"`
	CyclesStarted   int    `json:"cycles_started"`
}

// ScheduleJSON reports the active cycle table and the wall clock.
type ScheduleJSON struct {
	Interval      int    `json:"interval"`
	Table         []int  `json:"table"`
	NextCycleHour int    `json:"next_cycle_hour"`
	Clock         string `json:"clock,omitempty"`
	ClockSynced   bool   `json:"clock_synced"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	TickMs      int64  `json:"tick_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Broker      string `json:"broker"`
	HTTPAddr    string `json:"http_addr"`
	ClockSource string `json:"clock_source"`
	History     bool   `json:"history"`
}

// ReservoirOrUnknown returns the reservoir status, or UNKNOWN before the
// first reading.
func ReservoirOrUnknown(s logic.ReservoirStatus) string {
	if s == logic.ReservoirUnknown {
		return "UNKNOWN"
	}
	return string(s)
}

// ClockText formats the wall clock as HH:MM, or "" if it was never synced.
func ClockText(c logic.Clock) string {
	if !c.Synced {
		return ""
	}
	return logic.FormatClock(c)
}

func buildInner(snap Snapshot) StatusInner {
	cs := snap.Controller
	pump := PumpJSON{
		State:           string(cs.Pump),
		Progress:        cs.Progress,
		DurationSeconds: int64(cs.Duration / time.Second),
		InputsEnabled:   cs.InputsEnabled,
		CyclesStarted:   cs.CyclesStarted,
	}
	if !cs.PumpStartedAt.IsZero() {
		pump.StartedAt = cs.PumpStartedAt.UTC().Format(time.RFC3339)
	}

	return StatusInner{
		Reservoir: ReservoirJSON{Level: cs.Level, Status: ReservoirOrUnknown(cs.Reservoir)},
		Valve:     string(cs.Valve),
		Pump:      pump,
		Schedule: ScheduleJSON{
			Interval:      cs.Interval,
			Table:         cs.Table[:],
			NextCycleHour: cs.NextCycleHour,
			Clock:         ClockText(cs.Clock),
			ClockSynced:   cs.Clock.Synced,
		},
		Display:       cs.LastStatus,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		Ticks:         snap.Ticks,
		SensorErrors:  snap.SensorErrors,
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Config: ConfigJSON{
			TickMs:      snap.Config.TickMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			HTTPAddr:    snap.Config.HTTPAddr,
			ClockSource: snap.Config.ClockSource,
			History:     snap.Config.History,
		},
	}
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}

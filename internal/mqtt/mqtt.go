// Package mqtt connects the controller to the remote dashboard over MQTT,
// with abstraction for testing. Outputs are published as telemetry and
// command topics are translated into logic.Command values.
package mqtt

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/sweeney/irrigation-controller/internal/logic"
)

// TopicPrefix is the root of every topic used by the controller.
const TopicPrefix = "irrigation/controller"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = TopicPrefix + "/system"

// Command topics. Payloads are plain integers; the dashboard publishes them
// retained so a fresh subscription replays the current settings.
const (
	TopicCmdPump     = TopicPrefix + "/cmd/pump"
	TopicCmdDuration = TopicPrefix + "/cmd/duration"
	TopicCmdInterval = TopicPrefix + "/cmd/interval"
	TopicRTC         = TopicPrefix + "/rtc"
)

var commandTopics = map[string]logic.CommandKind{
	TopicCmdPump:     logic.CommandPump,
	TopicCmdDuration: logic.CommandDuration,
	TopicCmdInterval: logic.CommandInterval,
	TopicRTC:         logic.CommandClock,
}

// route describes how one output kind is published.
type route struct {
	topic    string
	qos      byte
	retained bool
	buffered bool // kept while offline and replayed on reconnect
}

var routes = map[logic.OutputKind]route{
	logic.OutputPumpProgress:   {topic: TopicPrefix + "/gauge/pump_progress"},
	logic.OutputReservoirLevel: {topic: TopicPrefix + "/gauge/reservoir_level"},
	logic.OutputStatus:         {topic: TopicPrefix + "/status", qos: 1, retained: true, buffered: true},
	logic.OutputPumpControl:    {topic: TopicPrefix + "/state/pump", qos: 1, retained: true, buffered: true},
	logic.OutputValve:          {topic: TopicPrefix + "/state/valve", qos: 1, retained: true, buffered: true},
	logic.OutputInputsEnabled:  {topic: TopicPrefix + "/state/inputs_enabled", qos: 1, retained: true, buffered: true},
	logic.OutputClockSync:      {topic: TopicPrefix + "/rtc/sync"},
}

// OutputTopic returns the topic for an output kind. Relay outputs have no
// topic and are never published.
func OutputTopic(kind logic.OutputKind) (string, bool) {
	r, ok := routes[kind]
	return r.topic, ok
}

// CommandTopics returns the topics the controller subscribes to.
func CommandTopics() []string {
	return []string{TopicCmdPump, TopicCmdDuration, TopicCmdInterval, TopicRTC}
}

// ErrUnknownTopic is returned by ParseCommand for topics that carry no command.
var ErrUnknownTopic = errors.New("mqtt: not a command topic")

// Replayable reports whether a retained message on a command topic may be
// applied. The pump switch is momentary: a retained "1" replayed on
// resubscribe would restart a run that the reconnect resync just stopped.
func Replayable(topic string) bool {
	return topic != TopicCmdPump
}

// ParseCommand converts a command message into a logic.Command.
func ParseCommand(topic string, payload []byte) (logic.Command, error) {
	kind, ok := commandTopics[topic]
	if !ok {
		return logic.Command{}, ErrUnknownTopic
	}
	s := strings.TrimSpace(string(payload))
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		// Dashboards commonly send numeric widgets as "3.0".
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return logic.Command{}, fmt.Errorf("parse %s payload %q: %w", topic, s, err)
		}
		if math.IsNaN(f) || f >= math.MaxInt64 || f <= math.MinInt64 {
			return logic.Command{}, fmt.Errorf("parse %s payload %q: out of range", topic, s)
		}
		v = int64(f)
	}
	return logic.Command{Kind: kind, Value: v}, nil
}

// Publisher publishes controller outputs and lifecycle events.
type Publisher interface {
	// Publish sends a controller output to the broker. Outputs without a
	// topic are ignored. Returns error if publishing fails (should not crash
	// the process).
	Publish(out logic.Output) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// Lifecycle event names.
const (
	EventStartup   = "STARTUP"
	EventShutdown  = "SHUTDOWN"
	EventHeartbeat = "HEARTBEAT"
	EventOffline   = "OFFLINE"
)

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure for outputs.
type Payload struct {
	Irrigation OutputPayload `json:"irrigation"`
}

// OutputPayload contains the output details.
type OutputPayload struct {
	Timestamp string `json:"timestamp"`
	Output    string `json:"output"`
	Value     int    `json:"value"`
	Text      string `json:"text,omitempty"`
}

// FormatPayload creates the JSON payload for a controller output.
func FormatPayload(out logic.Output) ([]byte, error) {
	payload := Payload{
		Irrigation: OutputPayload{
			Timestamp: out.Timestamp.UTC().Format(time.RFC3339),
			Output:    string(out.Kind),
			Value:     out.Value,
			Text:      out.Text,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

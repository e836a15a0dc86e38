// Package mqtt publishes compressor transitions and lifecycle events to an
// MQTT broker, with a fake for tests.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/fridge-thermostat/internal/logic"
)

// Topic is the MQTT topic for compressor events.
const Topic = "home/fridge/thermostat/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "home/fridge/thermostat/system"

// System event names.
const (
	SystemStartup     = "STARTUP"
	SystemShutdown    = "SHUTDOWN"
	SystemHeartbeat   = "HEARTBEAT"
	SystemReconnected = "RECONNECTED"
	SystemLost        = "CONNECTION_LOST"
)

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a compressor event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event logic.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string
	Reason     string // e.g. "SIGTERM" (shutdown only)
	RawPayload []byte // pre-formatted JSON; returned as-is by FormatSystemPayload
	Retained   bool
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Fridge FridgePayload `json:"fridge"`
}

// FridgePayload contains the compressor event details.
type FridgePayload struct {
	Timestamp    string `json:"timestamp"`
	Event        string `json:"event"`
	State        string `json:"state"`
	SetpointMdeg int    `json:"setpoint_mdeg"`
	CurrentMdeg  int    `json:"current_mdeg"`
	Fault        bool   `json:"fault,omitempty"`
}

// FormatPayload creates the JSON payload for a compressor event.
func FormatPayload(event logic.Event) ([]byte, error) {
	payload := Payload{
		Fridge: FridgePayload{
			Timestamp:    event.Timestamp.UTC().Format(time.RFC3339),
			Event:        string(event.Type),
			State:        string(logic.StateOf(event.Type == logic.EventCoolingOn)),
			SetpointMdeg: event.SetpointMdeg,
			CurrentMdeg:  event.CurrentMdeg,
			Fault:        event.Fault,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload is the payload of simple system events (LWT, RECONNECTED)
// that carry no status snapshot.
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

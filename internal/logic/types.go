// Package logic contains the pure control logic of the fridge thermostat:
// the per-tick sample record, temperature mapping, the hysteresis controller
// and the status LED blinker.
// This package has NO external dependencies (no GPIO, ADC, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import "time"

// State represents the control state of the compressor.
type State string

const (
	StateIdle    State = "IDLE"
	StateCooling State = "COOLING"
)

// StateOf converts the compressor command into a State.
func StateOf(cooling bool) State {
	if cooling {
		return StateCooling
	}
	return StateIdle
}

// EventType represents a compressor transition.
type EventType string

const (
	EventCoolingOn  EventType = "COOLING_ON"
	EventCoolingOff EventType = "COOLING_OFF"
)

// Event represents a compressor transition to be published.
type Event struct {
	Timestamp    time.Time
	Type         EventType
	SetpointMdeg int
	CurrentMdeg  int
	Fault        bool // transition forced by an input failure
}

// Record is the shared sample record. Stages write its fields in pipeline
// order each tick. On a fault tick the readings and temperatures are not
// rewritten and still hold the last successful tick's values.
type Record struct {
	// Timestamp is the extended hardware counter value at acquisition.
	Timestamp uint64

	SetpointRaw      int
	SetpointClipped  int
	SetpointFiltered int
	SetpointMdeg     int

	CurrentRaw      int
	CurrentClipped  int
	CurrentFiltered int
	CurrentMdeg     int

	// Compressor is the control decision: true = cooling.
	Compressor bool
	// LED is the status indicator phase driven this tick.
	LED bool
	// Fault is set when the analog inputs could not be read.
	Fault bool
}

// Counts tracks transitions and faults since startup.
type Counts struct {
	Ticks       uint64
	CoolingOn   int
	CoolingOff  int
	Faults      int
	WriteErrors int
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    Counts
	Cooling   bool
	// CoolingTime is the accumulated time spent cooling.
	CoolingTime time.Duration
}

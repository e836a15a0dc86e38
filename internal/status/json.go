package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/fridge-thermostat/internal/trace"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event          string       `json:"event,omitempty"`
	Reason         string       `json:"reason,omitempty"`
	RunID          string       `json:"run_id"`
	State          string       `json:"state"`
	Fault          bool         `json:"fault"`
	Ready          bool         `json:"ready"`
	Setpoint       Temperature  `json:"setpoint"`
	Current        Temperature  `json:"current"`
	LED            bool         `json:"led"`
	UptimeSeconds  int64        `json:"uptime_seconds"`
	CoolingSeconds int64        `json:"cooling_seconds"`
	StartTime      string       `json:"start_time"`
	Timestamp      string       `json:"timestamp"`
	MQTT           Connection   `json:"mqtt"`
	Redis          *Connection  `json:"redis,omitempty"`
	Counts         CountsJSON   `json:"counts"`
	Network        *NetworkJSON `json:"network,omitempty"`
	Config         ConfigJSON   `json:"config"`
}

// Temperature is one analog channel as raw reading and milli-degrees.
type Temperature struct {
	Raw     int    `json:"raw"`
	Mdeg    int    `json:"mdeg"`
	Degrees string `json:"degrees"`
}

// Connection reports the state of an outbound connection.
type Connection struct {
	Connected bool   `json:"connected"`
	Addr      string `json:"addr"`
}

// CountsJSON is the JSON representation of the counters.
type CountsJSON struct {
	Ticks       uint64 `json:"ticks"`
	CoolingOn   int    `json:"cooling_on"`
	CoolingOff  int    `json:"cooling_off"`
	Faults      int    `json:"faults"`
	WriteErrors int    `json:"write_errors"`
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
	TickMs         int64  `json:"tick_ms"`
	HysteresisMdeg int    `json:"hysteresis_mdeg"`
	FilterOrder    string `json:"filter_order"`
	HeartbeatMs    int64  `json:"heartbeat_ms"`
	Broker         string `json:"broker"`
	HTTPAddr       string `json:"http_addr"`
}

func buildInner(snap Snapshot) StatusInner {
	rec := snap.Record
	state := string(snap.State())
	if !snap.Ready {
		state = "UNKNOWN"
	}

	inner := StatusInner{
		RunID:          snap.RunID,
		State:          state,
		Fault:          rec.Fault,
		Ready:          snap.Ready,
		Setpoint:       Temperature{Raw: rec.SetpointRaw, Mdeg: rec.SetpointMdeg, Degrees: trace.FormatMdeg(rec.SetpointMdeg)},
		Current:        Temperature{Raw: rec.CurrentRaw, Mdeg: rec.CurrentMdeg, Degrees: trace.FormatMdeg(rec.CurrentMdeg)},
		LED:            rec.LED,
		UptimeSeconds:  int64(snap.Uptime().Truncate(time.Second).Seconds()),
		CoolingSeconds: int64(snap.CoolingTime.Truncate(time.Second).Seconds()),
		StartTime:      snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:      snap.Now.UTC().Format(time.RFC3339),
		MQTT:           Connection{Connected: snap.MQTTConnected, Addr: snap.Config.Broker},
		Counts: CountsJSON{
			Ticks:       snap.Counts.Ticks,
			CoolingOn:   snap.Counts.CoolingOn,
			CoolingOff:  snap.Counts.CoolingOff,
			Faults:      snap.Counts.Faults,
			WriteErrors: snap.Counts.WriteErrors,
		},
		Config: ConfigJSON{
			TickMs:         snap.Config.TickMs,
			HysteresisMdeg: snap.Config.HysteresisMdeg,
			FilterOrder:    snap.Config.FilterOrder,
			HeartbeatMs:    snap.Config.HeartbeatMs,
			Broker:         snap.Config.Broker,
			HTTPAddr:       snap.Config.HTTPAddr,
		},
	}
	if snap.Config.RedisAddr != "" {
		inner.Redis = &Connection{Connected: snap.RedisConnected, Addr: snap.Config.RedisAddr}
	}
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
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}

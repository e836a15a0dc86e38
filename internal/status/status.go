// Package status provides a thread-safe status tracker for the thermostat
// daemon. The control loop writes it; HTTP handlers and MQTT status events
// read snapshots of it.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/fridge-thermostat/internal/logic"
)

// NetworkInfo contains network state as reported by the host.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	TickMs         int64
	HysteresisMdeg int
	FilterOrder    string
	HeartbeatMs    int64
	Broker         string
	RedisAddr      string
	HTTPAddr       string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	RunID          string
	Record         logic.Record
	Ready          bool // at least one tick has completed
	Counts         logic.Counts
	CoolingTime    time.Duration
	StartTime      time.Time
	Now            time.Time
	MQTTConnected  bool
	RedisConnected bool
	Network        *NetworkInfo
	Config         Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// State returns the compressor state of the last record.
func (s Snapshot) State() logic.State {
	return logic.StateOf(s.Record.Compressor)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker for one daemon run.
func NewTracker(startTime time.Time, runID string, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			RunID:     runID,
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update stores the latest record and counters. Called after every tick.
func (t *Tracker) Update(rec logic.Record, counts logic.Counts, coolingTime time.Duration) {
	t.mu.Lock()
	t.snap.Record = rec
	t.snap.Counts = counts
	t.snap.CoolingTime = coolingTime
	t.snap.Ready = true
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetRedisConnected sets the Redis connection status.
func (t *Tracker) SetRedisConnected(connected bool) {
	t.mu.Lock()
	t.snap.RedisConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}

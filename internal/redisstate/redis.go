// Package redisstate mirrors the thermostat state into a Redis hash and
// announces compressor transitions on a pub/sub channel.
package redisstate

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sweeney/fridge-thermostat/internal/logger"
	"github.com/sweeney/fridge-thermostat/internal/logic"
)

const (
	eventQueue   = 16
	writeTimeout = 2 * time.Second
)

type snapshot struct {
	rec    logic.Record
	counts logic.Counts
}

// Mirror writes state to Redis from its own goroutine. Submit and Notify
// never block, so the control loop is not held up by the network.
type Mirror struct {
	client  *redis.Client
	key     string
	channel string
	log     *logger.Logger

	latest chan snapshot
	events chan logic.Event

	connected atomic.Bool
	dropped   atomic.Int64
}

// New creates a mirror for the Redis server at addr. No connection is made
// until Run is called.
func New(addr, key, channel string, l *logger.Logger) *Mirror {
	if l == nil {
		l = logger.Discard()
	}
	return &Mirror{
		client: redis.NewClient(&redis.Options{
			Addr: addr,
			DB:   0,
		}),
		key:     key,
		channel: channel,
		log:     l,
		latest:  make(chan snapshot, 1),
		events:  make(chan logic.Event, eventQueue),
	}
}

// Submit replaces the pending state snapshot with rec and counts.
func (m *Mirror) Submit(rec logic.Record, counts logic.Counts) {
	s := snapshot{rec: rec, counts: counts}
	for {
		select {
		case m.latest <- s:
			return
		default:
		}
		select {
		case <-m.latest:
		default:
		}
	}
}

// Notify queues a transition for publishing. Events are dropped when the
// queue is full.
func (m *Mirror) Notify(event logic.Event) {
	select {
	case m.events <- event:
	default:
		m.dropped.Add(1)
	}
}

// Dropped returns the number of events discarded by Notify.
func (m *Mirror) Dropped() int64 {
	return m.dropped.Load()
}

// IsConnected reports whether the last Redis write succeeded.
func (m *Mirror) IsConnected() bool {
	return m.connected.Load()
}

// Run writes submitted state and events until ctx is done.
func (m *Mirror) Run(ctx context.Context) {
	m.log.Infof("mirroring state to redis at %s (key %q)", m.client.Options().Addr, m.key)
	for {
		select {
		case <-ctx.Done():
			return
		case s := <-m.latest:
			m.result(m.update(ctx, s))
		case e := <-m.events:
			m.result(m.publish(ctx, e))
		}
	}
}

func (m *Mirror) result(err error) {
	if err != nil {
		if m.connected.Swap(false) {
			m.log.Warnf("redis write failed: %v", err)
		}
		return
	}
	if !m.connected.Swap(true) {
		m.log.Infof("redis connected")
	}
}

func (m *Mirror) update(ctx context.Context, s snapshot) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return m.client.HSet(ctx, m.key, Fields(s.rec, s.counts)).Err()
}

func (m *Mirror) publish(ctx context.Context, e logic.Event) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	pipe := m.client.Pipeline()
	pipe.HSet(ctx, m.key, "event", string(e.Type), "event:timestamp", e.Timestamp.UTC().Format(time.RFC3339))
	pipe.Publish(ctx, m.channel, EventMessage(e))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish %s: %w", e.Type, err)
	}
	return nil
}

// Close releases the Redis client.
func (m *Mirror) Close() error {
	return m.client.Close()
}

// Fields returns the hash fields describing rec and counts.
func Fields(rec logic.Record, counts logic.Counts) map[string]interface{} {
	return map[string]interface{}{
		"state":         string(logic.StateOf(rec.Compressor)),
		"fault":         strconv.FormatBool(rec.Fault),
		"setpoint:mdeg": rec.SetpointMdeg,
		"setpoint:raw":  rec.SetpointRaw,
		"current:mdeg":  rec.CurrentMdeg,
		"current:raw":   rec.CurrentRaw,
		"led":           strconv.FormatBool(rec.LED),
		"timestamp":     strconv.FormatUint(rec.Timestamp, 10),
		"ticks":         strconv.FormatUint(counts.Ticks, 10),
		"cooling:on":    counts.CoolingOn,
		"cooling:off":   counts.CoolingOff,
		"faults":        counts.Faults,
	}
}

// EventMessage returns the pub/sub message announcing a transition:
// the event type, with a ":fault" suffix for forced transitions.
func EventMessage(e logic.Event) string {
	if e.Fault {
		return string(e.Type) + ":fault"
	}
	return string(e.Type)
}

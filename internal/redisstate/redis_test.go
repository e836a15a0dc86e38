package redisstate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/fridge-thermostat/internal/logic"
)

func TestFields(t *testing.T) {
	rec := logic.Record{
		Timestamp:    123456,
		SetpointRaw:  400,
		SetpointMdeg: 10000,
		CurrentRaw:   160,
		CurrentMdeg:  12000,
		Compressor:   true,
		LED:          true,
	}
	counts := logic.Counts{Ticks: 42, CoolingOn: 3, CoolingOff: 2, Faults: 1}

	f := Fields(rec, counts)
	assert.Equal(t, "COOLING", f["state"])
	assert.Equal(t, "false", f["fault"])
	assert.Equal(t, 10000, f["setpoint:mdeg"])
	assert.Equal(t, 12000, f["current:mdeg"])
	assert.Equal(t, 400, f["setpoint:raw"])
	assert.Equal(t, 160, f["current:raw"])
	assert.Equal(t, "true", f["led"])
	assert.Equal(t, "123456", f["timestamp"])
	assert.Equal(t, "42", f["ticks"])
	assert.Equal(t, 3, f["cooling:on"])
	assert.Equal(t, 2, f["cooling:off"])
	assert.Equal(t, 1, f["faults"])
}

func TestFieldsIdleFault(t *testing.T) {
	f := Fields(logic.Record{Fault: true}, logic.Counts{})
	assert.Equal(t, "IDLE", f["state"])
	assert.Equal(t, "true", f["fault"])
}

func TestEventMessage(t *testing.T) {
	assert.Equal(t, "COOLING_ON", EventMessage(logic.Event{Type: logic.EventCoolingOn}))
	assert.Equal(t, "COOLING_OFF:fault", EventMessage(logic.Event{Type: logic.EventCoolingOff, Fault: true}))
}

func TestSubmitKeepsLatest(t *testing.T) {
	m := New("127.0.0.1:0", "fridge", "fridge", nil)
	defer m.Close()

	for i := 1; i <= 5; i++ {
		m.Submit(logic.Record{CurrentMdeg: i}, logic.Counts{Ticks: uint64(i)})
	}

	require.Len(t, m.latest, 1)
	s := <-m.latest
	assert.Equal(t, 5, s.rec.CurrentMdeg)
	assert.Equal(t, uint64(5), s.counts.Ticks)
}

func TestNotifyDropsWhenFull(t *testing.T) {
	m := New("127.0.0.1:0", "fridge", "fridge", nil)
	defer m.Close()

	for i := 0; i < eventQueue+3; i++ {
		m.Notify(logic.Event{Timestamp: time.Unix(int64(i), 0), Type: logic.EventCoolingOn})
	}

	assert.Len(t, m.events, eventQueue)
	assert.Equal(t, int64(3), m.Dropped())
	first := <-m.events
	assert.Equal(t, int64(0), first.Timestamp.Unix())
}

func TestNotConnectedBeforeRun(t *testing.T) {
	m := New("127.0.0.1:0", "fridge", "fridge", nil)
	defer m.Close()
	assert.False(t, m.IsConnected())
}

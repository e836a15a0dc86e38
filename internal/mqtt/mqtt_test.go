package mqtt

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sweeney/fridge-thermostat/internal/logic"
)

func TestFormatPayload(t *testing.T) {
	event := logic.Event{
		Timestamp:    time.Date(2026, 2, 2, 22, 18, 12, 0, time.UTC),
		Type:         logic.EventCoolingOn,
		SetpointMdeg: 10000,
		CurrentMdeg:  11000,
	}

	payload, err := FormatPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed Payload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Fridge.Timestamp != "2026-02-02T22:18:12Z" {
		t.Errorf("unexpected timestamp: %s", parsed.Fridge.Timestamp)
	}
	if parsed.Fridge.Event != "COOLING_ON" {
		t.Errorf("unexpected event: %s", parsed.Fridge.Event)
	}
	if parsed.Fridge.State != "COOLING" {
		t.Errorf("unexpected state: %s", parsed.Fridge.State)
	}
	if parsed.Fridge.SetpointMdeg != 10000 || parsed.Fridge.CurrentMdeg != 11000 {
		t.Errorf("unexpected temperatures: %+v", parsed.Fridge)
	}
}

func TestFormatPayloadExactJSON(t *testing.T) {
	event := logic.Event{
		Timestamp:    time.Date(2026, 2, 2, 22, 18, 12, 0, time.UTC),
		Type:         logic.EventCoolingOff,
		SetpointMdeg: 5000,
		CurrentMdeg:  3900,
	}

	payload, err := FormatPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := `{"fridge":{"timestamp":"2026-02-02T22:18:12Z","event":"COOLING_OFF","state":"IDLE","setpoint_mdeg":5000,"current_mdeg":3900}}`
	if string(payload) != want {
		t.Errorf("got  %s\nwant %s", payload, want)
	}
}

func TestFormatPayloadFault(t *testing.T) {
	event := logic.Event{
		Timestamp: time.Date(2026, 2, 2, 22, 18, 12, 0, time.UTC),
		Type:      logic.EventCoolingOff,
		Fault:     true,
	}

	payload, err := FormatPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed Payload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if !parsed.Fridge.Fault {
		t.Error("expected fault flag in payload")
	}
}

func TestFormatPayloadUsesUTC(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	event := logic.Event{
		Timestamp: time.Date(2026, 2, 2, 23, 18, 12, 0, loc),
		Type:      logic.EventCoolingOn,
	}

	payload, err := FormatPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed Payload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Fridge.Timestamp != "2026-02-02T22:18:12Z" {
		t.Errorf("expected UTC timestamp, got %s", parsed.Fridge.Timestamp)
	}
}

func TestFakePublisher(t *testing.T) {
	pub := NewFakePublisher()

	events := []logic.Event{
		{Timestamp: time.Now(), Type: logic.EventCoolingOn, SetpointMdeg: 10000, CurrentMdeg: 11000},
		{Timestamp: time.Now(), Type: logic.EventCoolingOff, SetpointMdeg: 10000, CurrentMdeg: 9000},
	}

	for _, e := range events {
		if err := pub.Publish(e); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if len(pub.Events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(pub.Events))
	}
	if len(pub.Payloads) != 2 {
		t.Fatalf("expected 2 payloads, got %d", len(pub.Payloads))
	}
	if pub.Events[0].Type != logic.EventCoolingOn {
		t.Errorf("first event: got %s", pub.Events[0].Type)
	}

	var parsed Payload
	if err := json.Unmarshal(pub.Payloads[1], &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Fridge.Event != "COOLING_OFF" {
		t.Errorf("second payload event: got %s", parsed.Fridge.Event)
	}
}

func TestFakePublisherError(t *testing.T) {
	pub := NewFakePublisher()
	pub.PublishError = errors.New("broker down")
	pub.PublishSystemError = errors.New("broker down")

	if err := pub.Publish(logic.Event{Type: logic.EventCoolingOn}); err == nil {
		t.Error("expected error from Publish")
	}
	if err := pub.PublishSystem(SystemEvent{Event: SystemStartup}); err == nil {
		t.Error("expected error from PublishSystem")
	}
	if len(pub.Events) != 0 || len(pub.SystemEvents) != 0 {
		t.Error("failed publishes should not be recorded")
	}
}

func TestFakePublisherResetAndClose(t *testing.T) {
	pub := NewFakePublisher()
	pub.Publish(logic.Event{Type: logic.EventCoolingOn})
	pub.PublishSystem(SystemEvent{Event: SystemStartup})
	pub.Connected = false
	pub.Close()

	if !pub.Closed {
		t.Error("expected Closed")
	}

	pub.Reset()
	if len(pub.Events) != 0 || len(pub.SystemEvents) != 0 || pub.Closed {
		t.Errorf("reset left state behind: %+v", pub)
	}
	if !pub.IsConnected() {
		t.Error("reset should restore the connected default")
	}
}

func TestFakePublisherImplementsInterfaces(t *testing.T) {
	var _ Publisher = NewFakePublisher()
	var _ ConnectionStatus = NewFakePublisher()
	var _ Publisher = (*RealPublisher)(nil)
	var _ ConnectionStatus = (*RealPublisher)(nil)
}

func TestTopics(t *testing.T) {
	if Topic != "home/fridge/thermostat/events" {
		t.Errorf("unexpected topic: %s", Topic)
	}
	if TopicSystem != "home/fridge/thermostat/system" {
		t.Errorf("unexpected system topic: %s", TopicSystem)
	}
}

func TestFormatSystemPayloadExactJSON(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC),
		Event:     SystemShutdown,
		Reason:    "SIGTERM",
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := `{"system":{"timestamp":"2026-02-03T10:00:00Z","event":"SHUTDOWN","reason":"SIGTERM"}}`
	if string(payload) != want {
		t.Errorf("got  %s\nwant %s", payload, want)
	}
}

func TestFormatSystemPayloadOmitsEmptyReason(t *testing.T) {
	payload, err := FormatSystemPayload(SystemEvent{
		Timestamp: time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC),
		Event:     SystemReconnected,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := `{"system":{"timestamp":"2026-02-03T10:00:00Z","event":"RECONNECTED"}}`
	if string(payload) != want {
		t.Errorf("got  %s\nwant %s", payload, want)
	}
}

func TestFormatSystemPayloadRawPassthrough(t *testing.T) {
	raw := []byte(`{"system":{"event":"HEARTBEAT","counts":{}}}`)
	payload, err := FormatSystemPayload(SystemEvent{Event: SystemHeartbeat, RawPayload: raw})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(payload) != string(raw) {
		t.Errorf("raw payload not returned as-is: %s", payload)
	}
}

func TestFakePublisherSystemEventNames(t *testing.T) {
	pub := NewFakePublisher()
	pub.PublishSystem(SystemEvent{Event: SystemStartup})
	pub.PublishSystem(SystemEvent{Event: SystemHeartbeat})
	pub.PublishSystem(SystemEvent{Event: SystemShutdown, Reason: "SIGINT"})

	got := pub.SystemEventNames()
	want := []string{"STARTUP", "HEARTBEAT", "SHUTDOWN"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d: got %s, want %s", i, got[i], want[i])
		}
	}
	if len(pub.SystemPayloads) != 3 {
		t.Errorf("expected 3 system payloads, got %d", len(pub.SystemPayloads))
	}
}

package internal

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/fridge-thermostat/internal/adc"
	"github.com/sweeney/fridge-thermostat/internal/config"
	"github.com/sweeney/fridge-thermostat/internal/gpio"
	"github.com/sweeney/fridge-thermostat/internal/logic"
	"github.com/sweeney/fridge-thermostat/internal/mqtt"
	"github.com/sweeney/fridge-thermostat/internal/pipeline"
	"github.com/sweeney/fridge-thermostat/internal/status"
	"github.com/sweeney/fridge-thermostat/internal/trace"
)

// rig wires a pipeline to fakes and fans results out the way the daemon does.
type rig struct {
	adc        adc.Reader
	compressor *gpio.FakeOutput
	led        *gpio.FakeOutput
	publisher  *mqtt.FakePublisher
	stats      *logic.Stats
	tracker    *status.Tracker
	pipe       *pipeline.Pipeline
	start      time.Time
	ticks      int
}

func newRig(t *testing.T, cfg *config.Config, reader adc.Reader, compressor *gpio.FakeOutput, hw pipeline.Hardware) *rig {
	t.Helper()
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	r := &rig{
		adc:        reader,
		compressor: compressor,
		led:        gpio.NewFakeOutput("led"),
		publisher:  mqtt.NewFakePublisher(),
		stats:      logic.NewStats(start),
		tracker:    status.NewTracker(start, "integration", status.Config{TickMs: cfg.Tick.Milliseconds()}),
		start:      start,
	}
	hw.ADC = reader
	hw.Compressor = compressor
	hw.LED = r.led
	p, err := pipeline.New(cfg, hw, nil)
	if err != nil {
		t.Fatalf("pipeline.New: %v", err)
	}
	r.pipe = p
	return r
}

func (r *rig) step(t *testing.T) pipeline.Result {
	t.Helper()
	now := r.start.Add(time.Duration(r.ticks) * 100 * time.Millisecond)
	r.ticks++

	res := r.pipe.Tick(now)
	r.stats.Observe(now, res.Record, res.Event)
	r.stats.AddWriteErrors(res.WriteErrors)
	if res.Event != nil {
		if err := r.publisher.Publish(*res.Event); err != nil {
			t.Logf("publish error: %v", err)
		}
	}
	r.tracker.Update(res.Record, r.stats.Counts(), r.stats.CoolingTime(now))
	return res
}

// TestIntegrationRampToCooling drives the current channel up through the
// cooling threshold and checks the single transition reaches MQTT.
func TestIntegrationRampToCooling(t *testing.T) {
	samples := adc.Ramp(400, 50, 200)
	for i := 0; i < 50; i++ {
		samples = append(samples, adc.Sample{Setpoint: 400, Current: 200})
	}
	cfg := config.Default()
	r := newRig(t, cfg, adc.NewFakeReader(samples), gpio.NewFakeOutput("compressor"), pipeline.Hardware{})

	onTick := -1
	for i := range samples {
		res := r.step(t)
		if onTick < 0 && res.Record.CurrentMdeg >= logic.SetpointMidMdeg+cfg.Control.HysteresisMdeg {
			onTick = i
		}
	}

	if onTick < 0 {
		t.Fatal("threshold never reached")
	}
	if len(r.publisher.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(r.publisher.Events))
	}

	var parsed mqtt.Payload
	if err := json.Unmarshal(r.publisher.Payloads[0], &parsed); err != nil {
		t.Fatalf("invalid payload: %v", err)
	}
	if parsed.Fridge.Event != "COOLING_ON" || parsed.Fridge.State != "COOLING" {
		t.Errorf("payload: %+v", parsed.Fridge)
	}
	if parsed.Fridge.SetpointMdeg != 10000 {
		t.Errorf("payload setpoint: got %d", parsed.Fridge.SetpointMdeg)
	}
	if parsed.Fridge.CurrentMdeg < 11000 {
		t.Errorf("payload current below threshold: %d", parsed.Fridge.CurrentMdeg)
	}
	wantTime := r.start.Add(time.Duration(onTick) * 100 * time.Millisecond)
	if !r.publisher.Events[0].Timestamp.Equal(wantTime) {
		t.Errorf("event time: got %v, want %v", r.publisher.Events[0].Timestamp, wantTime)
	}

	counts := r.stats.Counts()
	if counts.CoolingOn != 1 || counts.CoolingOff != 0 {
		t.Errorf("counts: %+v", counts)
	}
	if r.tracker.Snapshot().State() != logic.StateCooling {
		t.Error("tracker should report cooling")
	}
}

// TestIntegrationClosedLoopSimulator runs the pipeline against the fridge
// simulator and checks the controller holds the temperature around the
// setpoint with a bounded number of compressor cycles.
func TestIntegrationClosedLoopSimulator(t *testing.T) {
	cfg := config.Default()
	compressor := gpio.NewFakeOutput("compressor")
	sim := adc.NewSimulator(400, 130, compressor.Level, 42)
	r := newRig(t, cfg, sim, compressor, pipeline.Hardware{})

	const ticks = 3000
	for i := 0; i < ticks; i++ {
		res := r.step(t)
		if i < 20 {
			continue
		}
		if res.Record.CurrentMdeg < 8000 || res.Record.CurrentMdeg > 12000 {
			t.Fatalf("tick %d: filtered temperature %d mdeg left the control band", i, res.Record.CurrentMdeg)
		}
		if res.Record.SetpointMdeg != logic.SetpointMidMdeg {
			t.Fatalf("tick %d: setpoint glitch reached mapping: %d", i, res.Record.SetpointMdeg)
		}
	}

	counts := r.stats.Counts()
	if counts.CoolingOn < 2 {
		t.Errorf("expected repeated cooling cycles, got %d", counts.CoolingOn)
	}
	if d := counts.CoolingOn - counts.CoolingOff; d < 0 || d > 1 {
		t.Errorf("on/off counts out of step: %+v", counts)
	}
	// compressor toggles at most once per transition
	if got := compressor.Toggles(); got != counts.CoolingOn+counts.CoolingOff {
		t.Errorf("compressor toggles %d, transitions %d", got, counts.CoolingOn+counts.CoolingOff)
	}
	if len(r.publisher.Events) != counts.CoolingOn+counts.CoolingOff {
		t.Errorf("published %d events for %d transitions", len(r.publisher.Events), counts.CoolingOn+counts.CoolingOff)
	}
}

// TestIntegrationFaultPublishesForcedOff checks that an ADC failure while
// cooling reaches MQTT as a forced COOLING_OFF and counts as a fault.
func TestIntegrationFaultPublishesForcedOff(t *testing.T) {
	reader := adc.NewFakeReader([]adc.Sample{{Setpoint: 400, Current: 3000}})
	r := newRig(t, config.Default(), reader, gpio.NewFakeOutput("compressor"), pipeline.Hardware{})

	r.step(t)
	reader.ReadError = errors.New("bridge unplugged")
	r.step(t)
	r.step(t)

	if len(r.publisher.Events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(r.publisher.Events))
	}
	var parsed mqtt.Payload
	if err := json.Unmarshal(r.publisher.Payloads[1], &parsed); err != nil {
		t.Fatalf("invalid payload: %v", err)
	}
	if parsed.Fridge.Event != "COOLING_OFF" || !parsed.Fridge.Fault {
		t.Errorf("payload: %+v", parsed.Fridge)
	}
	if r.compressor.High {
		t.Error("compressor left running during a fault")
	}
	if got := r.stats.Counts().Faults; got != 2 {
		t.Errorf("faults: got %d, want 2", got)
	}

	var sj status.StatusJSON
	if err := json.Unmarshal(status.FormatJSON(r.tracker.Snapshot()), &sj); err != nil {
		t.Fatalf("invalid status: %v", err)
	}
	if !sj.Status.Fault || sj.Status.State != "IDLE" {
		t.Errorf("status: fault=%v state=%s", sj.Status.Fault, sj.Status.State)
	}
}

// TestIntegrationPublishFailureDoesNotStopControl checks that the control
// loop keeps running when MQTT is down.
func TestIntegrationPublishFailureDoesNotStopControl(t *testing.T) {
	reader := adc.NewFakeReader([]adc.Sample{{Setpoint: 400, Current: 3000}})
	r := newRig(t, config.Default(), reader, gpio.NewFakeOutput("compressor"), pipeline.Hardware{})
	r.publisher.PublishError = errors.New("broker down")

	for i := 0; i < 5; i++ {
		r.step(t)
	}
	if !r.compressor.High {
		t.Error("compressor should run regardless of MQTT")
	}
	if r.stats.Counts().Ticks != 5 {
		t.Errorf("ticks: got %d", r.stats.Counts().Ticks)
	}
}

// TestIntegrationTraceAndRecording runs traced and recorded ticks through the
// asynchronous writer and the CSV recorder.
func TestIntegrationTraceAndRecording(t *testing.T) {
	var traceBuf, csvBuf bytes.Buffer
	tw := trace.NewAsyncWriter(&traceBuf, 256)
	rec, err := pipeline.NewCSVRecorder(&csvBuf)
	if err != nil {
		t.Fatalf("NewCSVRecorder: %v", err)
	}

	samples := adc.Ramp(400, 100, 160)
	r := newRig(t, config.Default(), adc.NewFakeReader(samples), gpio.NewFakeOutput("compressor"),
		pipeline.Hardware{Trace: tw, Recorder: rec})

	for range samples {
		r.step(t)
	}
	tw.Close()
	if err := rec.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	lines := strings.Split(strings.TrimSuffix(traceBuf.String(), "\n"), "\n")
	if len(lines) != len(samples) {
		t.Fatalf("trace lines: got %d, want %d", len(lines), len(samples))
	}
	if !strings.HasPrefix(lines[0], "[stopped]: setpoint: 10.000 deg\tcurrent: 6.000 deg") {
		t.Errorf("first trace line: %q", lines[0])
	}

	rows, err := csv.NewReader(&csvBuf).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != len(samples)+1 {
		t.Fatalf("csv rows: got %d, want %d", len(rows), len(samples)+1)
	}
	if rows[0][0] != "timestamp" || rows[1][5] != "100" {
		t.Errorf("csv: header %v first row %v", rows[0], rows[1])
	}

	// trace tags agree with the recorded compressor state
	for i, line := range lines {
		cooling := rows[i+1][9] == "true"
		if cooling != strings.HasPrefix(line, trace.TagCooling) {
			t.Errorf("tick %d: trace %q disagrees with compressor=%v", i, line, cooling)
		}
	}
}

// Package pipeline runs the thermostat control tick: acquire, condition,
// map, control, actuate and trace, in that order, over one record owned by
// the pipeline.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sweeney/fridge-thermostat/internal/adc"
	"github.com/sweeney/fridge-thermostat/internal/config"
	"github.com/sweeney/fridge-thermostat/internal/filter"
	"github.com/sweeney/fridge-thermostat/internal/gpio"
	"github.com/sweeney/fridge-thermostat/internal/logger"
	"github.com/sweeney/fridge-thermostat/internal/logic"
	"github.com/sweeney/fridge-thermostat/internal/trace"
)

// Hardware bundles the collaborators the pipeline drives.
type Hardware struct {
	ADC        adc.Reader
	Compressor gpio.Output
	LED        gpio.Output
	// Counter feeds the record timestamp. Nil uses a microsecond counter.
	Counter Counter
	// Trace receives one line per tick. Nil disables tracing.
	// Writes must not block; wrap slow sinks in trace.AsyncWriter.
	Trace io.Writer
	// Recorder receives every completed record. Nil disables recording.
	Recorder Recorder
}

// Result is the outcome of one tick.
type Result struct {
	Record logic.Record
	// Event is set when the compressor state changed this tick.
	Event *logic.Event
	// WriteErrors counts failed output writes this tick.
	WriteErrors int
}

type stage struct {
	name string
	run  func(rec *logic.Record)
}

// Pipeline owns all filter, control and actuation state. It is driven by a
// single goroutine and is not safe for concurrent use.
type Pipeline struct {
	hw    Hardware
	log   *logger.Logger
	clock *Clock

	adcMin, adcMax int
	setpoint       filter.Filter
	current        filter.Filter
	controller     *logic.Controller
	blinker        *logic.Blinker

	stages []stage

	// rec lives for the life of the pipeline. A fault tick leaves the
	// readings and mapped temperatures of the last good tick in place.
	rec logic.Record

	// per-tick scratch, reset by Tick
	now         time.Time
	event       *logic.Event
	writeErrors int

	faulted bool
}

// New builds a pipeline from cfg. Invalid filter, control or LED parameters
// are rejected so the daemon refuses to start.
func New(cfg *config.Config, hw Hardware, l *logger.Logger) (*Pipeline, error) {
	if hw.ADC == nil || hw.Compressor == nil || hw.LED == nil {
		return nil, fmt.Errorf("pipeline: adc, compressor and led are required")
	}
	if l == nil {
		l = logger.Discard()
	}
	if hw.Counter == nil {
		hw.Counter = NewMicrosCounter(time.Now)
	}
	if cfg.ADC.Min > cfg.ADC.Max {
		return nil, fmt.Errorf("pipeline: adc min %d > max %d", cfg.ADC.Min, cfg.ADC.Max)
	}

	order, err := filter.ParseOrder(cfg.Filter.Order)
	if err != nil {
		return nil, err
	}
	setpoint, err := newChain(order, cfg.Filter.PlausibleEnabled, cfg.Setpoint)
	if err != nil {
		return nil, fmt.Errorf("setpoint filter: %w", err)
	}
	current, err := newChain(order, cfg.Filter.PlausibleEnabled, cfg.Current)
	if err != nil {
		return nil, fmt.Errorf("current filter: %w", err)
	}
	controller, err := logic.NewController(cfg.Control.HysteresisMdeg)
	if err != nil {
		return nil, err
	}
	blinker, err := logic.NewBlinker(cfg.LED.IdleDivisor)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		hw:         hw,
		log:        l,
		clock:      NewClock(hw.Counter),
		adcMin:     cfg.ADC.Min,
		adcMax:     cfg.ADC.Max,
		setpoint:   setpoint,
		current:    current,
		controller: controller,
		blinker:    blinker,
	}
	p.stages = []stage{
		{"acquire", p.acquire},
		{"condition", p.condition},
		{"setpoint", p.mapSetpoint},
		{"current", p.mapCurrent},
		{"control", p.control},
		{"compressor", p.driveCompressor},
		{"led", p.driveLED},
		{"trace", p.trace},
		{"record", p.record},
	}
	return p, nil
}

func newChain(order filter.Order, plausibleEnabled bool, ch config.ChannelConfig) (*filter.Chain, error) {
	domain, err := filter.ParseDomain(ch.Domain)
	if err != nil {
		return nil, err
	}
	mean, err := filter.NewMean(ch.Window, domain)
	if err != nil {
		return nil, err
	}
	var plausible *filter.Plausible
	if plausibleEnabled {
		plausible, err = filter.NewPlausible(ch.MaxFails, ch.MaxJump)
		if err != nil {
			return nil, err
		}
	}
	return filter.NewChain(order, plausible, mean)
}

// Tick runs every stage once, in order, and returns the completed record.
// A tick always runs to completion.
func (p *Pipeline) Tick(now time.Time) Result {
	p.now = now
	p.event = nil
	p.writeErrors = 0

	p.rec.Fault = false
	for _, s := range p.stages {
		s.run(&p.rec)
	}
	if p.log.Level() >= logger.LogLevelDebug {
		p.log.Debugf("tick: %+v", p.rec)
	}

	return Result{Record: p.rec, Event: p.event, WriteErrors: p.writeErrors}
}

// Run executes ticks until ctx is done or budget ticks have run (budget <= 0
// means unbounded). Each tick waits for a value on tick first; a nil tick
// channel repeats immediately. fn, if non-nil, is called after every tick.
// Cancellation is only observed between ticks. Run returns the number of
// ticks executed.
func (p *Pipeline) Run(ctx context.Context, budget int, tick <-chan time.Time, now func() time.Time, fn func(Result)) int {
	n := 0
	for budget <= 0 || n < budget {
		if tick != nil {
			select {
			case <-ctx.Done():
				return n
			case <-tick:
			}
		} else if ctx.Err() != nil {
			return n
		}

		res := p.Tick(now())
		n++
		if fn != nil {
			fn(res)
		}
	}
	return n
}

// StageNames returns the stage names in execution order.
func (p *Pipeline) StageNames() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.name
	}
	return names
}

// Cooling reports the current control state.
func (p *Pipeline) Cooling() bool {
	return p.controller.Cooling()
}

func (p *Pipeline) acquire(rec *logic.Record) {
	rec.Timestamp = p.clock.Now()

	setpoint, current, err := p.hw.ADC.Read()
	if err != nil {
		rec.Fault = true
		if !p.faulted {
			p.log.Warnf("adc read failed, forcing compressor off: %v", err)
		}
		p.faulted = true
		return
	}
	if p.faulted {
		p.log.Infof("adc read recovered")
		p.faulted = false
	}

	rec.SetpointRaw = setpoint
	rec.SetpointClipped = logic.Clip(setpoint, p.adcMin, p.adcMax)
	rec.CurrentRaw = current
	rec.CurrentClipped = logic.Clip(current, p.adcMin, p.adcMax)
}

func (p *Pipeline) condition(rec *logic.Record) {
	if rec.Fault {
		return
	}
	rec.SetpointFiltered = p.setpoint.Filter(rec.SetpointClipped)
	rec.CurrentFiltered = p.current.Filter(rec.CurrentClipped)
}

func (p *Pipeline) mapSetpoint(rec *logic.Record) {
	if rec.Fault {
		return
	}
	rec.SetpointMdeg = logic.SetpointMdeg(rec.SetpointFiltered)
}

func (p *Pipeline) mapCurrent(rec *logic.Record) {
	if rec.Fault {
		return
	}
	rec.CurrentMdeg = logic.CurrentMdeg(rec.CurrentFiltered)
}

func (p *Pipeline) control(rec *logic.Record) {
	var transition *logic.EventType
	if rec.Fault {
		transition = p.controller.ForceIdle()
	} else {
		_, transition = p.controller.Step(rec.SetpointMdeg, rec.CurrentMdeg)
	}
	rec.Compressor = p.controller.Cooling()

	if transition != nil {
		p.event = &logic.Event{
			Timestamp:    p.now,
			Type:         *transition,
			SetpointMdeg: rec.SetpointMdeg,
			CurrentMdeg:  rec.CurrentMdeg,
			Fault:        rec.Fault,
		}
	}
}

func (p *Pipeline) driveCompressor(rec *logic.Record) {
	if err := gpio.Set(p.hw.Compressor, rec.Compressor); err != nil {
		p.writeErrors++
		p.log.Warnf("compressor write failed: %v", err)
	}
}

func (p *Pipeline) driveLED(rec *logic.Record) {
	rec.LED = p.blinker.Step(rec.Compressor)
	if err := gpio.Set(p.hw.LED, rec.LED); err != nil {
		p.writeErrors++
		p.log.Debugf("led write failed: %v", err)
	}
}

func (p *Pipeline) trace(rec *logic.Record) {
	if p.hw.Trace == nil {
		return
	}
	io.WriteString(p.hw.Trace, trace.Format(*rec))
}

func (p *Pipeline) record(rec *logic.Record) {
	if p.hw.Recorder != nil {
		p.hw.Recorder.Record(*rec)
	}
}

// Command fridge-thermostat reads the setpoint dial and the temperature
// sensor, runs the hysteresis controller and drives the compressor relay.
// Compressor transitions are published to MQTT and mirrored into Redis.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/sweeney/fridge-thermostat/internal/adc"
	"github.com/sweeney/fridge-thermostat/internal/config"
	"github.com/sweeney/fridge-thermostat/internal/gpio"
	"github.com/sweeney/fridge-thermostat/internal/logger"
	"github.com/sweeney/fridge-thermostat/internal/logic"
	"github.com/sweeney/fridge-thermostat/internal/mqtt"
	"github.com/sweeney/fridge-thermostat/internal/pipeline"
	"github.com/sweeney/fridge-thermostat/internal/redisstate"
	"github.com/sweeney/fridge-thermostat/internal/status"
	"github.com/sweeney/fridge-thermostat/internal/trace"
	"github.com/sweeney/fridge-thermostat/internal/web"
)

func main() {
	f := newFlags(flag.ExitOnError)
	f.parse(os.Args[1:])

	cfg, err := config.Load(f.configPath)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	f.apply(cfg)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("fatal: %v", err)
	}

	if f.printConfig {
		out, err := cfg.Marshal()
		if err != nil {
			log.Fatalf("fatal: %v", err)
		}
		os.Stdout.Write(out)
		return
	}

	level, err := logger.ParseLevel(f.logLevel)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	l := logger.NewLogger(log.New(os.Stderr, "", log.LstdFlags), level)

	if err := run(cfg, f.options, l); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// options are the flags that select behavior rather than configuration.
type options struct {
	configPath  string
	fake        bool
	ticks       int
	logLevel    string
	printConfig bool
	record      string
}

// flags holds parsed command-line values. Configuration flags only override
// the config file when given explicitly.
type flags struct {
	options
	fs *flag.FlagSet

	tick          time.Duration
	adcPort       string
	adcBaud       int
	pinCompressor int
	pinLED        int
	tracePort     string
	broker        string
	heartbeat     time.Duration
	redis         string
	http          string
}

func newFlags(onError flag.ErrorHandling) *flags {
	def := config.Default()
	f := &flags{fs: flag.NewFlagSet("fridge-thermostat", onError)}
	fs := f.fs

	fs.StringVar(&f.configPath, "config", "/etc/fridge-thermostat.yaml", "YAML config file (missing file = defaults)")
	fs.BoolVar(&f.fake, "fake", false, "Run against a simulated fridge instead of hardware")
	fs.IntVar(&f.ticks, "ticks", 0, "Stop after this many ticks (0 = run until signalled)")
	fs.StringVar(&f.logLevel, "log-level", "info", "Log level: error, warn, info, debug")
	fs.BoolVar(&f.printConfig, "print-config", false, "Print the effective config and exit")
	fs.StringVar(&f.record, "record", "", "Write every tick record to this CSV file")

	fs.DurationVar(&f.tick, "tick", def.Tick, "Control tick period")
	fs.StringVar(&f.adcPort, "adc-port", def.Hardware.ADCPort, "Serial port of the ADC bridge")
	fs.IntVar(&f.adcBaud, "adc-baud", def.Hardware.ADCBaud, "Baud rate of the ADC bridge")
	fs.IntVar(&f.pinCompressor, "pin-compressor", gpio.DefaultPinCompressor, "BCM pin number of the compressor relay")
	fs.IntVar(&f.pinLED, "pin-led", gpio.DefaultPinLED, "BCM pin number of the status LED")
	fs.StringVar(&f.tracePort, "trace-port", "", "Serial port for trace lines (empty = stdout)")
	fs.StringVar(&f.broker, "broker", def.MQTT.Broker, "MQTT broker address (empty to disable)")
	fs.DurationVar(&f.heartbeat, "heartbeat", def.MQTT.Heartbeat, "Heartbeat interval (0 to disable)")
	fs.StringVar(&f.redis, "redis", "", "Redis address for the state mirror (empty to disable)")
	fs.StringVar(&f.http, "http", def.HTTP.Addr, "HTTP status address (empty to disable)")
	return f
}

func (f *flags) parse(args []string) error {
	return f.fs.Parse(args)
}

// apply copies explicitly set configuration flags into cfg.
func (f *flags) apply(cfg *config.Config) {
	f.fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "tick":
			cfg.Tick = f.tick
		case "adc-port":
			cfg.Hardware.ADCPort = f.adcPort
		case "adc-baud":
			cfg.Hardware.ADCBaud = f.adcBaud
		case "pin-compressor":
			cfg.Hardware.PinCompressor = f.pinCompressor
		case "pin-led":
			cfg.Hardware.PinLED = f.pinLED
		case "trace-port":
			cfg.Hardware.TracePort = f.tracePort
		case "broker":
			cfg.MQTT.Broker = f.broker
		case "heartbeat":
			cfg.MQTT.Heartbeat = f.heartbeat
		case "redis":
			cfg.Redis.Addr = f.redis
		case "http":
			cfg.HTTP.Addr = f.http
		}
	})
}

// hardware holds the opened devices and how to release them.
type hardware struct {
	adc        adc.Reader
	compressor gpio.Output
	led        gpio.Output
	close      func()
}

func openHardware(cfg *config.Config, fake bool, l *logger.Logger) (*hardware, error) {
	if fake {
		compressor := &simOutput{name: "compressor", log: l}
		led := &simOutput{name: "led"}
		sim := adc.NewSimulator(400, 130, compressor.Level, time.Now().UnixNano())
		return &hardware{adc: sim, compressor: compressor, led: led, close: func() {}}, nil
	}

	reader, err := adc.NewSerialReader(cfg.Hardware.ADCPort, cfg.Hardware.ADCBaud)
	if err != nil {
		return nil, fmt.Errorf("init adc: %w", err)
	}
	compressor, err := gpio.NewRealOutput(cfg.Hardware.GPIOChip, cfg.Hardware.PinCompressor)
	if err != nil {
		reader.Close()
		return nil, fmt.Errorf("init compressor: %w", err)
	}
	led, err := gpio.NewRealOutput(cfg.Hardware.GPIOChip, cfg.Hardware.PinLED)
	if err != nil {
		compressor.Close()
		reader.Close()
		return nil, fmt.Errorf("init led: %w", err)
	}
	return &hardware{
		adc:        reader,
		compressor: compressor,
		led:        led,
		close: func() {
			led.Close()
			compressor.Close()
			reader.Close()
		},
	}, nil
}

func run(cfg *config.Config, opts options, l *logger.Logger) error {
	hw, err := openHardware(cfg, opts.fake, l.WithTag("sim"))
	if err != nil {
		return err
	}
	defer hw.close()

	// Trace sink
	var sink io.Writer = os.Stdout
	if cfg.Hardware.TracePort != "" {
		port, err := trace.OpenUART(cfg.Hardware.TracePort, cfg.Hardware.TraceBaud)
		if err != nil {
			return err
		}
		defer port.Close()
		sink = port
	}
	traceWriter := trace.NewAsyncWriter(sink, trace.DefaultDepth)
	defer traceWriter.Close()

	// Optional CSV recording
	var recorder pipeline.Recorder
	if opts.record != "" {
		rec, closeRec, err := openRecording(opts.record)
		if err != nil {
			return err
		}
		defer func() {
			if err := closeRec(); err != nil {
				log.Printf("record file %s: %v", opts.record, err)
			}
		}()
		recorder = rec
	}

	pipe, err := pipeline.New(cfg, pipeline.Hardware{
		ADC:        hw.adc,
		Compressor: hw.compressor,
		LED:        hw.led,
		Trace:      traceWriter,
		Recorder:   recorder,
	}, l.WithTag("pipeline"))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	startTime := time.Now()
	runID := uuid.NewString()
	tracker := status.NewTracker(startTime, runID, status.Config{
		TickMs:         cfg.Tick.Milliseconds(),
		HysteresisMdeg: cfg.Control.HysteresisMdeg,
		FilterOrder:    cfg.Filter.Order,
		HeartbeatMs:    cfg.MQTT.Heartbeat.Milliseconds(),
		Broker:         cfg.MQTT.Broker,
		RedisAddr:      cfg.Redis.Addr,
		HTTPAddr:       cfg.HTTP.Addr,
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	d := &daemon{
		pipe:      pipe,
		stats:     logic.NewStats(startTime),
		tracker:   tracker,
		heartbeat: cfg.MQTT.Heartbeat,
	}

	// MQTT
	if cfg.MQTT.Broker != "" {
		publisher, err := mqtt.NewRealPublisher(cfg.MQTT.Broker, cfg.MQTT.ClientID, l.WithTag("mqtt"))
		if err != nil {
			log.Printf("mqtt disabled: %v", err)
		} else {
			// sends run off the control loop; Close flushes the queue
			async := mqtt.NewAsyncPublisher(publisher, mqtt.QueueDepth, l.WithTag("mqtt"))
			defer async.Close()
			d.publisher = async
			d.mqttStatus = publisher
			tracker.SetMQTTConnected(publisher.IsConnected())
		}
	}

	// Redis state mirror
	if cfg.Redis.Addr != "" {
		mirror := redisstate.New(cfg.Redis.Addr, cfg.Redis.Key, cfg.Redis.Channel, l.WithTag("redis"))
		defer mirror.Close()
		go mirror.Run(ctx)
		d.mirror = mirror
	}

	d.publishSystem(mqtt.SystemStartup, "", true)

	// HTTP status server
	if cfg.HTTP.Addr != "" {
		var accessLog io.Writer
		if l.Level() >= logger.LogLevelDebug {
			accessLog = log.Writer()
		}
		srv := web.New(cfg.HTTP.Addr, tracker, accessLog)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTP.Addr)
	}

	log.Printf("started: run=%s tick=%v hysteresis=%dmdeg filter=%s fake=%v broker=%q redis=%q",
		runID, cfg.Tick, cfg.Control.HysteresisMdeg, cfg.Filter.Order, opts.fake, cfg.MQTT.Broker, cfg.Redis.Addr)

	ticker := time.NewTicker(cfg.Tick)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	reason := runLoop(ctx, d, opts.ticks, ticker.C, time.Now, sigCh)

	if err := gpio.Set(hw.compressor, false); err != nil {
		log.Printf("failed to stop compressor: %v", err)
	}
	d.publishSystem(mqtt.SystemShutdown, reason, true)
	return nil
}

// openRecording creates the CSV record file. The returned close function
// flushes buffered rows and reports the first write or close error.
func openRecording(path string) (*pipeline.CSVRecorder, func() error, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create record file: %w", err)
	}
	rec, err := pipeline.NewCSVRecorder(file)
	if err != nil {
		file.Close()
		return nil, nil, err
	}
	closeFn := func() error {
		return errors.Join(rec.Flush(), file.Close())
	}
	return rec, closeFn, nil
}

// stateMirror is the part of redisstate.Mirror the run loop uses.
type stateMirror interface {
	Submit(rec logic.Record, counts logic.Counts)
	Notify(event logic.Event)
	IsConnected() bool
}

// daemon fans each tick result out to counters, status and publishers.
type daemon struct {
	pipe       *pipeline.Pipeline
	stats      *logic.Stats
	tracker    *status.Tracker
	publisher  mqtt.Publisher        // nil when MQTT is disabled
	mqttStatus mqtt.ConnectionStatus // nil when MQTT is disabled
	mirror     stateMirror           // nil when Redis is disabled
	heartbeat  time.Duration
}

// runLoop runs the pipeline until the tick budget is spent, ctx is done or a
// signal arrives. It returns the shutdown reason.
func runLoop(ctx context.Context, d *daemon, budget int, tick <-chan time.Time, now func() time.Time, sig <-chan os.Signal) string {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	reasonCh := make(chan string, 1)
	go func() {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			reasonCh <- signalName(s)
			cancel()
		case <-ctx.Done():
		}
	}()

	var last time.Time
	stamp := func() time.Time {
		last = now()
		return last
	}
	n := d.pipe.Run(ctx, budget, tick, stamp, func(res pipeline.Result) {
		d.onTick(last, res)
	})
	cancel()
	log.Printf("stopped after %d ticks", n)

	select {
	case r := <-reasonCh:
		return r
	default:
	}
	if budget > 0 && n >= budget {
		return "TICK_BUDGET"
	}
	return "CANCELLED"
}

func (d *daemon) onTick(t time.Time, res pipeline.Result) {
	d.stats.Observe(t, res.Record, res.Event)
	d.stats.AddWriteErrors(res.WriteErrors)
	counts := d.stats.Counts()

	if e := res.Event; e != nil {
		log.Printf("event: %s (setpoint=%s current=%s fault=%v)",
			e.Type, trace.FormatMdeg(e.SetpointMdeg), trace.FormatMdeg(e.CurrentMdeg), e.Fault)
		if d.publisher != nil {
			if err := d.publisher.Publish(*e); err != nil {
				// Don't crash on publish failure
				log.Printf("publish error: %v", err)
			}
		}
		if d.mirror != nil {
			d.mirror.Notify(*e)
		}
	}

	d.tracker.Update(res.Record, counts, d.stats.CoolingTime(t))
	if d.mqttStatus != nil {
		d.tracker.SetMQTTConnected(d.mqttStatus.IsConnected())
	}
	if d.mirror != nil {
		d.mirror.Submit(res.Record, counts)
		d.tracker.SetRedisConnected(d.mirror.IsConnected())
	}

	if hb := d.stats.CheckHeartbeat(t, d.heartbeat); hb != nil {
		log.Printf("heartbeat: uptime=%v ticks=%d cooling_on=%d cooling_off=%d faults=%d cooling_time=%v",
			hb.Uptime, hb.Counts.Ticks, hb.Counts.CoolingOn, hb.Counts.CoolingOff, hb.Counts.Faults, hb.CoolingTime)
		// Refresh network info for heartbeat
		if net := readNetworkInfo(); net != nil {
			d.tracker.SetNetwork(net)
		}
		d.publishSystem(mqtt.SystemHeartbeat, "", false)
	}
}

// publishSystem publishes a lifecycle event carrying a full status snapshot.
func (d *daemon) publishSystem(event, reason string, retained bool) {
	if d.publisher == nil {
		return
	}
	if d.mqttStatus != nil {
		d.tracker.SetMQTTConnected(d.mqttStatus.IsConnected())
	}
	snap := d.tracker.Snapshot()
	e := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      event,
		Reason:     reason,
		Retained:   retained,
		RawPayload: status.FormatStatusEvent(snap, event, reason),
	}
	if err := d.publisher.PublishSystem(e); err != nil {
		log.Printf("failed to publish %s event: %v", strings.ToLower(event), err)
		return
	}
	log.Printf("published %s event", strings.ToLower(event))
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}

// simOutput stands in for a GPIO line in -fake mode.
type simOutput struct {
	name string
	high bool
	log  *logger.Logger // nil = silent
}

func (o *simOutput) SetHigh() error { return o.set(true) }
func (o *simOutput) SetLow() error  { return o.set(false) }
func (o *simOutput) Close() error   { return o.set(false) }

func (o *simOutput) set(high bool) error {
	if high != o.high && o.log != nil {
		o.log.Debugf("%s -> %v", o.name, high)
	}
	o.high = high
	return nil
}

// Level reports the driven level.
func (o *simOutput) Level() bool {
	return o.high
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}

// Package config loads the thermostat configuration from a YAML file.
// The configuration is read once at startup and never reloaded.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/fridge-thermostat/internal/filter"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

// Config represents the thermostat configuration.
type Config struct {
	Tick     time.Duration  `yaml:"tick"`
	ADC      ADCConfig      `yaml:"adc"`
	Filter   FilterConfig   `yaml:"filter"`
	Setpoint ChannelConfig  `yaml:"setpoint"`
	Current  ChannelConfig  `yaml:"current"`
	Control  ControlConfig  `yaml:"control"`
	LED      LEDConfig      `yaml:"led"`
	Hardware HardwareConfig `yaml:"hardware"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	Redis    RedisConfig    `yaml:"redis"`
	HTTP     HTTPConfig     `yaml:"http"`
}

// ADCConfig contains the clipping range of raw readings.
type ADCConfig struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

// FilterConfig selects the filter cascade shared by both channels.
type FilterConfig struct {
	Order            string `yaml:"order"` // plausible-first or mean-first
	PlausibleEnabled bool   `yaml:"plausible_enabled"`
}

// ChannelConfig contains the filter parameters of one analog channel.
type ChannelConfig struct {
	Window   int    `yaml:"window"`    // mean filter window N
	Domain   string `yaml:"domain"`    // int or float
	MaxJump  int    `yaml:"max_jump"`  // plausibility diff
	MaxFails int    `yaml:"max_fails"` // plausibility num_fails
}

// ControlConfig contains the hysteresis controller parameters.
type ControlConfig struct {
	HysteresisMdeg int `yaml:"hysteresis_mdeg"`
}

// LEDConfig contains the status LED parameters.
type LEDConfig struct {
	IdleDivisor int `yaml:"idle_divisor"` // ticks per toggle while idle
}

// HardwareConfig names the devices the daemon drives.
type HardwareConfig struct {
	ADCPort       string `yaml:"adc_port"`
	ADCBaud       int    `yaml:"adc_baud"`
	GPIOChip      string `yaml:"gpio_chip"`
	PinCompressor int    `yaml:"pin_compressor"`
	PinLED        int    `yaml:"pin_led"`
	TracePort     string `yaml:"trace_port"` // empty = stdout
	TraceBaud     int    `yaml:"trace_baud"`
}

// MQTTConfig contains the event publisher settings. An empty broker disables MQTT.
type MQTTConfig struct {
	Broker    string        `yaml:"broker"`
	ClientID  string        `yaml:"client_id"`
	Heartbeat time.Duration `yaml:"heartbeat"`
}

// RedisConfig contains the state mirror settings. An empty address disables Redis.
type RedisConfig struct {
	Addr    string `yaml:"addr"`
	Key     string `yaml:"key"`
	Channel string `yaml:"channel"`
}

// HTTPConfig contains the status server settings. An empty address disables it.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the build-time constants of the thermostat.
func Default() *Config {
	return &Config{
		Tick: 100 * time.Millisecond,
		ADC: ADCConfig{
			Min: 0,
			Max: 4096,
		},
		Filter: FilterConfig{
			Order:            string(filter.PlausibleFirst),
			PlausibleEnabled: true,
		},
		Setpoint: ChannelConfig{
			Window:   10,
			Domain:   string(filter.DomainFloat),
			MaxJump:  50,
			MaxFails: 10,
		},
		Current: ChannelConfig{
			Window:   10,
			Domain:   string(filter.DomainFloat),
			MaxJump:  50,
			MaxFails: 10,
		},
		Control: ControlConfig{
			HysteresisMdeg: 1000,
		},
		LED: LEDConfig{
			IdleDivisor: 5,
		},
		Hardware: HardwareConfig{
			ADCPort:       "/dev/ttyACM0",
			ADCBaud:       115200,
			GPIOChip:      "gpiochip0",
			PinCompressor: 17,
			PinLED:        27,
			TraceBaud:     115200,
		},
		MQTT: MQTTConfig{
			Broker:    "tcp://192.168.1.200:1883",
			ClientID:  "fridge-thermostat",
			Heartbeat: 15 * time.Minute,
		},
		Redis: RedisConfig{
			Key:     "fridge",
			Channel: "fridge",
		},
		HTTP: HTTPConfig{
			Addr: ":80",
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist the
// defaults are returned. Fields missing from the file keep their defaults.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Marshal returns the YAML form of the configuration.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// ensureDefaults fills empty names. Numeric fields are left alone so that an
// explicit zero is caught by Validate.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Filter.Order == "" {
		c.Filter.Order = def.Filter.Order
	}
	if c.Setpoint.Domain == "" {
		c.Setpoint.Domain = def.Setpoint.Domain
	}
	if c.Current.Domain == "" {
		c.Current.Domain = def.Current.Domain
	}
	if c.Hardware.GPIOChip == "" {
		c.Hardware.GPIOChip = def.Hardware.GPIOChip
	}
	if c.Redis.Key == "" {
		c.Redis.Key = def.Redis.Key
	}
	if c.Redis.Channel == "" {
		c.Redis.Channel = def.Redis.Channel
	}
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if c.Tick <= 0 {
		errs = append(errs, fmt.Errorf("tick must be > 0, got %v", c.Tick))
	}
	if c.ADC.Min > c.ADC.Max {
		errs = append(errs, fmt.Errorf("adc min %d > max %d", c.ADC.Min, c.ADC.Max))
	}
	if _, err := filter.ParseOrder(c.Filter.Order); err != nil {
		errs = append(errs, err)
	}
	errs = append(errs, c.Setpoint.validate("setpoint")...)
	errs = append(errs, c.Current.validate("current")...)
	if c.Control.HysteresisMdeg <= 0 {
		errs = append(errs, fmt.Errorf("control.hysteresis_mdeg must be > 0, got %d", c.Control.HysteresisMdeg))
	}
	if c.LED.IdleDivisor < 1 {
		errs = append(errs, fmt.Errorf("led.idle_divisor must be >= 1, got %d", c.LED.IdleDivisor))
	}
	if c.MQTT.Heartbeat < 0 {
		errs = append(errs, fmt.Errorf("mqtt.heartbeat must be >= 0, got %v", c.MQTT.Heartbeat))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

func (ch ChannelConfig) validate(name string) []error {
	var errs []error
	if ch.Window < 1 || ch.Window > filter.MaxWindow {
		errs = append(errs, fmt.Errorf("%s.window must be in [1, %d], got %d", name, filter.MaxWindow, ch.Window))
	}
	if _, err := filter.ParseDomain(ch.Domain); err != nil {
		errs = append(errs, fmt.Errorf("%s.domain: %w", name, err))
	}
	if ch.MaxJump < 0 {
		errs = append(errs, fmt.Errorf("%s.max_jump must be >= 0, got %d", name, ch.MaxJump))
	}
	if ch.MaxFails < 0 {
		errs = append(errs, fmt.Errorf("%s.max_fails must be >= 0, got %d", name, ch.MaxFails))
	}
	return errs
}

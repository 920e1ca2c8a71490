// Package config loads the dashclock YAML configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/dashclock/internal/analog"
	"github.com/sweeney/dashclock/internal/dashboard"
	"github.com/sweeney/dashclock/internal/diag"
	"github.com/sweeney/dashclock/internal/display"
	"github.com/sweeney/dashclock/internal/gpio"
	"github.com/sweeney/dashclock/internal/logic"
	"github.com/sweeney/dashclock/internal/ranging"
)

// Config is the whole file. Durations are Go duration strings ("250ms").
type Config struct {
	Pins    PinsConfig    `yaml:"pins"`
	Buttons ButtonsConfig `yaml:"buttons"`
	Display DisplayConfig `yaml:"display"`
	Clock   ClockConfig   `yaml:"clock"`
	Ranging RangingConfig `yaml:"ranging"`
	Diag    DiagConfig    `yaml:"diag"`
	MQTT    MQTTConfig    `yaml:"mqtt"`
	HTTP    HTTPConfig    `yaml:"http"`
}

// PinsConfig holds BCM line offsets.
type PinsConfig struct {
	Reverse         int    `yaml:"reverse"`
	Echo            int    `yaml:"echo"`
	Trigger         int    `yaml:"trigger"`
	Status          int    `yaml:"status"`
	ReverseDebounce string `yaml:"reverse_debounce"` // empty or "0s" = no filtering
}

// ButtonsConfig describes the resistor ladder on the ADC.
type ButtonsConfig struct {
	SPIPort   string     `yaml:"spi_port"` // "" = first SPI port
	Channel   int        `yaml:"channel"`
	Mode      BandConfig `yaml:"mode"`
	Increment BandConfig `yaml:"increment"`
	Decrement BandConfig `yaml:"decrement"`
}

// BandConfig is a half-open raw ADC range [lo, hi).
type BandConfig struct {
	Lo int `yaml:"lo"`
	Hi int `yaml:"hi"`
}

// DisplayConfig selects the OLED bus and title.
type DisplayConfig struct {
	I2CBus string `yaml:"i2c_bus"`
	Title  string `yaml:"title"`
}

// ClockConfig controls the loop and the clock state machine.
type ClockConfig struct {
	Frame       string `yaml:"frame"`
	IdleTimeout int    `yaml:"idle_timeout"` // seconds
}

// RangingConfig holds the ranging timing in microseconds.
type RangingConfig struct {
	TriggerPulseUs uint64 `yaml:"trigger_pulse_us"`
	EchoTimeoutUs  uint64 `yaml:"echo_timeout_us"`
	PulseTimeoutUs uint64 `yaml:"pulse_timeout_us"`
	RecoveryUs     uint64 `yaml:"recovery_us"`
}

// DiagConfig selects the diagnostic UART. Empty port disables it.
type DiagConfig struct {
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
}

// MQTTConfig configures telemetry. Empty broker disables it.
type MQTTConfig struct {
	Broker    string `yaml:"broker"`
	Heartbeat string `yaml:"heartbeat"` // "0s" disables
}

// HTTPConfig configures the status page. Empty addr disables it.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the stock configuration.
func Default() *Config {
	r := ranging.DefaultConfig()
	return &Config{
		Pins: PinsConfig{
			Reverse:         gpio.DefaultPinReverse,
			Echo:            gpio.DefaultPinEcho,
			Trigger:         gpio.DefaultPinTrigger,
			Status:          gpio.DefaultPinStatus,
			ReverseDebounce: "0s",
		},
		Buttons: ButtonsConfig{
			Channel:   analog.DefaultChannel,
			Mode:      band(logic.DefaultBands.Mode),
			Increment: band(logic.DefaultBands.Increment),
			Decrement: band(logic.DefaultBands.Decrement),
		},
		Display: DisplayConfig{
			Title: display.DefaultTitle,
		},
		Clock: ClockConfig{
			Frame:       "20ms",
			IdleTimeout: logic.DefaultIdleTimeout,
		},
		Ranging: RangingConfig{
			TriggerPulseUs: r.TriggerPulse,
			EchoTimeoutUs:  r.EchoTimeout,
			PulseTimeoutUs: r.PulseTimeout,
			RecoveryUs:     r.Recovery,
		},
		Diag: DiagConfig{
			Baud: diag.DefaultBaud,
		},
		MQTT: MQTTConfig{
			Heartbeat: "15m",
		},
	}
}

func band(b logic.Band) BandConfig {
	return BandConfig{Lo: b.Lo, Hi: b.Hi}
}

// Load reads the YAML file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over Default, so fields missing from the file keep
// their default values, then validates the result.
func Parse(data []byte) (*Config, error) {
	c := Default()
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyDefaults(c)
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// applyDefaults restores settings that an explicit empty value would
// leave unusable.
func applyDefaults(c *Config) {
	d := Default()
	if c.Pins.ReverseDebounce == "" {
		c.Pins.ReverseDebounce = d.Pins.ReverseDebounce
	}
	if c.Display.Title == "" {
		c.Display.Title = d.Display.Title
	}
	if c.Clock.Frame == "" {
		c.Clock.Frame = d.Clock.Frame
	}
	if c.Clock.IdleTimeout == 0 {
		c.Clock.IdleTimeout = d.Clock.IdleTimeout
	}
	if c.Diag.Baud == 0 {
		c.Diag.Baud = d.Diag.Baud
	}
	if c.MQTT.Heartbeat == "" {
		c.MQTT.Heartbeat = d.MQTT.Heartbeat
	}
}

type namedBand struct {
	name string
	band BandConfig
}

// Validate checks ranges and duration strings.
func (c *Config) Validate() error {
	if err := c.validatePins(); err != nil {
		return err
	}
	if c.Buttons.Channel < 0 || c.Buttons.Channel > 7 {
		return fmt.Errorf("buttons.channel %d out of range 0-7", c.Buttons.Channel)
	}
	bands := []namedBand{
		{"mode", c.Buttons.Mode},
		{"increment", c.Buttons.Increment},
		{"decrement", c.Buttons.Decrement},
	}
	for _, b := range bands {
		if b.band.Lo < 0 || b.band.Hi > 1024 || b.band.Lo >= b.band.Hi {
			return fmt.Errorf("buttons.%s: invalid band [%d,%d)", b.name, b.band.Lo, b.band.Hi)
		}
	}
	for i := range bands {
		for j := i + 1; j < len(bands); j++ {
			a, b := bands[i], bands[j]
			if a.band.Lo < b.band.Hi && b.band.Lo < a.band.Hi {
				return fmt.Errorf("buttons.%s [%d,%d) overlaps buttons.%s [%d,%d)",
					a.name, a.band.Lo, a.band.Hi, b.name, b.band.Lo, b.band.Hi)
			}
		}
	}
	if c.Ranging.EchoTimeoutUs == 0 {
		return fmt.Errorf("ranging.echo_timeout_us must be positive")
	}
	if c.Ranging.PulseTimeoutUs == 0 {
		return fmt.Errorf("ranging.pulse_timeout_us must be positive")
	}
	if c.Clock.IdleTimeout < 0 {
		return fmt.Errorf("clock.idle_timeout %d is negative", c.Clock.IdleTimeout)
	}
	frame, err := c.FrameInterval()
	if err != nil {
		return err
	}
	if frame <= 0 {
		return fmt.Errorf("clock.frame must be positive, got %v", frame)
	}
	if _, err := c.ReverseDebounce(); err != nil {
		return err
	}
	if _, err := c.HeartbeatInterval(); err != nil {
		return err
	}
	return nil
}

// FrameInterval returns the loop period.
func (c *Config) FrameInterval() (time.Duration, error) {
	return parseDuration("clock.frame", c.Clock.Frame)
}

// ReverseDebounce returns the reverse-line debounce.
func (c *Config) ReverseDebounce() (time.Duration, error) {
	return parseDuration("pins.reverse_debounce", c.Pins.ReverseDebounce)
}

// HeartbeatInterval returns the MQTT heartbeat period, 0 if disabled.
func (c *Config) HeartbeatInterval() (time.Duration, error) {
	return parseDuration("mqtt.heartbeat", c.MQTT.Heartbeat)
}

func parseDuration(field, s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: negative duration %v", field, d)
	}
	return d, nil
}

func (c *Config) validatePins() error {
	seen := make(map[int]string)
	for _, p := range []struct {
		name   string
		offset int
	}{
		{"reverse", c.Pins.Reverse},
		{"echo", c.Pins.Echo},
		{"trigger", c.Pins.Trigger},
		{"status", c.Pins.Status},
	} {
		if p.offset < 0 {
			return fmt.Errorf("pins.%s: negative offset %d", p.name, p.offset)
		}
		if other, ok := seen[p.offset]; ok {
			return fmt.Errorf("pins.%s: offset %d already used by pins.%s", p.name, p.offset, other)
		}
		seen[p.offset] = p.name
	}
	return nil
}

// GPIOPins converts the pin section.
func (c *Config) GPIOPins() gpio.Pins {
	return gpio.Pins{
		Reverse: c.Pins.Reverse,
		Echo:    c.Pins.Echo,
		Trigger: c.Pins.Trigger,
		Status:  c.Pins.Status,
	}
}

// RangingTiming converts the ranging section.
func (c *Config) RangingTiming() ranging.Config {
	return ranging.Config{
		TriggerPulse: c.Ranging.TriggerPulseUs,
		EchoTimeout:  c.Ranging.EchoTimeoutUs,
		PulseTimeout: c.Ranging.PulseTimeoutUs,
		Recovery:     c.Ranging.RecoveryUs,
	}
}

// Dashboard converts the controller settings. The config must be valid.
func (c *Config) Dashboard() dashboard.Config {
	debounce, _ := c.ReverseDebounce()
	return dashboard.Config{
		ButtonChannel: c.Buttons.Channel,
		Bands: logic.Bands{
			Mode:      logic.Band{Lo: c.Buttons.Mode.Lo, Hi: c.Buttons.Mode.Hi},
			Increment: logic.Band{Lo: c.Buttons.Increment.Lo, Hi: c.Buttons.Increment.Hi},
			Decrement: logic.Band{Lo: c.Buttons.Decrement.Lo, Hi: c.Buttons.Decrement.Hi},
		},
		IdleTimeout:       c.Clock.IdleTimeout,
		ReverseDebounceMs: uint64(debounce.Milliseconds()),
		Title:             c.Display.Title,
	}
}

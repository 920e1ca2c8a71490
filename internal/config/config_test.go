package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/dashclock/internal/logic"
)

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	if err := c.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	frame, _ := c.FrameInterval()
	if frame != 20*time.Millisecond {
		t.Errorf("expected 20ms frame, got %v", frame)
	}
	if c.Dashboard().Bands != logic.DefaultBands {
		t.Errorf("expected default bands, got %+v", c.Dashboard().Bands)
	}
}

func TestParseEmptyUsesDefaults(t *testing.T) {
	c, err := Parse([]byte(""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	d := Default()
	if c.Pins != d.Pins {
		t.Errorf("expected default pins %+v, got %+v", d.Pins, c.Pins)
	}
	if c.Ranging != d.Ranging {
		t.Errorf("expected default ranging %+v, got %+v", d.Ranging, c.Ranging)
	}
	if c.MQTT.Broker != "" || c.HTTP.Addr != "" || c.Diag.Port != "" {
		t.Error("expected optional surfaces disabled by default")
	}
}

func TestParseOverrides(t *testing.T) {
	data := `
pins:
  reverse: 5
  echo: 6
  trigger: 13
  status: 19
  reverse_debounce: 40ms
buttons:
  channel: 2
  mode: {lo: 800, hi: 900}
  increment: {lo: 500, hi: 600}
  decrement: {lo: 100, hi: 200}
display:
  title: CLIO
clock:
  frame: 50ms
  idle_timeout: 8
ranging:
  trigger_pulse_us: 12
  echo_timeout_us: 30000
  pulse_timeout_us: 40000
  recovery_us: 60000
diag:
  port: /dev/ttyAMA0
mqtt:
  broker: tcp://localhost:1883
  heartbeat: 1m
http:
  addr: ":8080"
`
	c, err := Parse([]byte(data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pins := c.GPIOPins()
	if pins.Reverse != 5 || pins.Echo != 6 || pins.Trigger != 13 || pins.Status != 19 {
		t.Errorf("unexpected pins: %+v", pins)
	}

	dc := c.Dashboard()
	if dc.ButtonChannel != 2 || dc.IdleTimeout != 8 || dc.Title != "CLIO" {
		t.Errorf("unexpected dashboard config: %+v", dc)
	}
	if dc.ReverseDebounceMs != 40 {
		t.Errorf("expected 40ms debounce, got %d", dc.ReverseDebounceMs)
	}
	if dc.Bands.Mode != (logic.Band{Lo: 800, Hi: 900}) {
		t.Errorf("unexpected mode band: %+v", dc.Bands.Mode)
	}

	rt := c.RangingTiming()
	if rt.TriggerPulse != 12 || rt.EchoTimeout != 30000 || rt.PulseTimeout != 40000 || rt.Recovery != 60000 {
		t.Errorf("unexpected ranging timing: %+v", rt)
	}

	if c.Diag.Baud != 9600 {
		t.Errorf("expected default baud, got %d", c.Diag.Baud)
	}
	hb, _ := c.HeartbeatInterval()
	if hb != time.Minute {
		t.Errorf("expected 1m heartbeat, got %v", hb)
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"bad yaml", "pins: [", "parse config"},
		{"bad frame", "clock: {frame: soon}", "clock.frame"},
		{"zero frame", "clock: {frame: 0s}", "must be positive"},
		{"bad band", "buttons: {mode: {lo: 500, hi: 400}, increment: {lo: 1, hi: 2}, decrement: {lo: 3, hi: 4}}", "buttons.mode"},
		{"bad channel", "buttons: {channel: 9}", "out of range"},
		{"negative heartbeat", "mqtt: {heartbeat: -1s}", "mqtt.heartbeat"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dashclock.yaml")
	if err := os.WriteFile(path, []byte("http: {addr: \":9090\"}\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.HTTP.Addr != ":9090" {
		t.Errorf("expected :9090, got %q", c.HTTP.Addr)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestParsePartialSectionKeepsDefaults(t *testing.T) {
	c, err := Parse([]byte("ranging:\n  recovery_us: 300000\npins:\n  reverse_debounce: 50ms\nbuttons:\n  increment: {lo: 220, hi: 290}\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	d := Default()

	rt := c.RangingTiming()
	if rt.Recovery != 300000 {
		t.Errorf("expected recovery 300000, got %d", rt.Recovery)
	}
	if rt.TriggerPulse != d.Ranging.TriggerPulseUs || rt.EchoTimeout != d.Ranging.EchoTimeoutUs || rt.PulseTimeout != d.Ranging.PulseTimeoutUs {
		t.Errorf("expected default timeouts kept, got %+v", rt)
	}

	if c.GPIOPins() != d.GPIOPins() {
		t.Errorf("expected default pins kept, got %+v", c.GPIOPins())
	}
	if c.Dashboard().ReverseDebounceMs != 50 {
		t.Errorf("expected 50ms debounce, got %d", c.Dashboard().ReverseDebounceMs)
	}

	bands := c.Dashboard().Bands
	if bands.Increment != (logic.Band{Lo: 220, Hi: 290}) {
		t.Errorf("unexpected increment band: %+v", bands.Increment)
	}
	if bands.Mode != logic.DefaultBands.Mode || bands.Decrement != logic.DefaultBands.Decrement {
		t.Errorf("expected other bands kept, got %+v", bands)
	}
	if c.Buttons.Channel != 5 {
		t.Errorf("expected default channel 5, got %d", c.Buttons.Channel)
	}
}

func TestParseChannelZero(t *testing.T) {
	c, err := Parse([]byte("buttons: {channel: 0}"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Dashboard().ButtonChannel != 0 {
		t.Errorf("expected channel 0, got %d", c.Dashboard().ButtonChannel)
	}
}

func TestParseRejectsUnusableSettings(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"overlapping bands", "buttons: {mode: {lo: 100, hi: 300}, increment: {lo: 210, hi: 280}, decrement: {lo: 130, hi: 200}}", "overlaps"},
		{"touching bands are fine", "buttons: {mode: {lo: 280, hi: 450}, increment: {lo: 200, hi: 280}, decrement: {lo: 130, hi: 200}}", ""},
		{"zero echo timeout", "ranging: {echo_timeout_us: 0}", "ranging.echo_timeout_us"},
		{"zero pulse timeout", "ranging: {pulse_timeout_us: 0}", "ranging.pulse_timeout_us"},
		{"shared pin", "pins: {echo: 17}", "already used"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			if tt.want == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

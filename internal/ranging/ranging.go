// Package ranging measures distance with an HC-SR04 style ultrasonic
// sensor: a trigger pulse starts a ping and the echo line stays high for
// the round-trip time of the sound.
package ranging

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3/physic"

	"github.com/sweeney/dashclock/internal/gpio"
	"github.com/sweeney/dashclock/internal/timebase"
)

var (
	// ErrNoEcho means the echo line never went high.
	ErrNoEcho = errors.New("no echo")
	// ErrPulseTimeout means the echo line never went low again.
	ErrPulseTimeout = errors.New("echo pulse exceeded timeout")
)

// Config holds the ranging timing, all in microseconds.
type Config struct {
	TriggerPulse uint64 // trigger high time
	EchoTimeout  uint64 // wait for the echo to start
	PulseTimeout uint64 // wait for the echo to end
	Recovery     uint64 // quiet time after every cycle
}

// DefaultConfig returns the timing the sensor was built around.
func DefaultConfig() Config {
	return Config{
		TriggerPulse: 10,
		EchoTimeout:  1000000,
		PulseTimeout: 1000000,
		Recovery:     250000,
	}
}

// Sample is one completed measurement.
type Sample struct {
	DistanceCm  uint32
	PulseMicros uint64
}

// Distance returns the measurement as a physical distance.
func (s Sample) Distance() physic.Distance {
	return physic.Distance(s.DistanceCm) * 10 * physic.MilliMetre
}

// PulseToCentimeters converts an echo pulse width to centimeters. Sound
// covers 1cm in 29.1us, and the echo covers the distance twice, so the
// divisor is 58.2. Integer form: us * 5 / 291.
func PulseToCentimeters(micros uint64) uint32 {
	return uint32(micros * 5 / 291)
}

// Engine runs measurement cycles.
type Engine struct {
	clock   timebase.Clock
	trigger gpio.Output
	echo    gpio.Input
	cfg     Config
}

// New creates an Engine.
func New(clock timebase.Clock, trigger gpio.Output, echo gpio.Input, cfg Config) *Engine {
	return &Engine{
		clock:   clock,
		trigger: trigger,
		echo:    echo,
		cfg:     cfg,
	}
}

// Measure fires one ping and times the echo. Every wait is bounded by the
// configured timeouts. It returns ErrNoEcho or ErrPulseTimeout when the
// sensor gives no usable pulse.
func (e *Engine) Measure() (Sample, error) {
	if err := e.trigger.Set(true); err != nil {
		return Sample{}, fmt.Errorf("start trigger: %w", err)
	}
	timebase.Delay(e.clock, e.cfg.TriggerPulse)
	if err := e.trigger.Set(false); err != nil {
		return Sample{}, fmt.Errorf("end trigger: %w", err)
	}

	var readErr error
	level := func(want bool) func() bool {
		return func() bool {
			v, err := e.echo.Get()
			if err != nil {
				readErr = err
				return true
			}
			return v == want
		}
	}

	if !timebase.WaitFor(e.clock, e.cfg.EchoTimeout, level(true)) {
		return Sample{}, ErrNoEcho
	}
	if readErr != nil {
		return Sample{}, fmt.Errorf("read echo: %w", readErr)
	}
	start := e.clock.NowMicros()

	if !timebase.WaitFor(e.clock, e.cfg.PulseTimeout, level(false)) {
		return Sample{}, ErrPulseTimeout
	}
	if readErr != nil {
		return Sample{}, fmt.Errorf("read echo: %w", readErr)
	}
	width := timebase.Elapsed(e.clock.NowMicros(), start)

	return Sample{
		DistanceCm:  PulseToCentimeters(width),
		PulseMicros: width,
	}, nil
}

// Recover waits out the recovery time so the next ping does not catch the
// tail of the previous echo.
func (e *Engine) Recover() {
	timebase.Delay(e.clock, e.cfg.Recovery)
}

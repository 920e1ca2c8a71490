//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

const consumer = "dashclock"

// RealLines drives the dashboard lines on actual hardware using the Linux
// GPIO character device.
type RealLines struct {
	chip    *gpiocdev.Chip
	reverse *gpiocdev.Line
	echo    *gpiocdev.Line
	trigger *gpiocdev.Line
	status  *gpiocdev.Line
}

// NewRealLines requests the four dashboard lines on gpiochip0.
func NewRealLines(pins Pins) (*RealLines, error) {
	chip, err := gpiocdev.NewChip("gpiochip0", gpiocdev.WithConsumer(consumer))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}
	r := &RealLines{chip: chip}

	// Inputs use pull-down so a disconnected reverse lamp reads as low.
	r.reverse, err = chip.RequestLine(pins.Reverse, gpiocdev.AsInput, gpiocdev.WithPullDown)
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("request reverse pin %d: %w", pins.Reverse, err)
	}

	r.echo, err = chip.RequestLine(pins.Echo, gpiocdev.AsInput, gpiocdev.WithPullDown)
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("request echo pin %d: %w", pins.Echo, err)
	}

	r.trigger, err = chip.RequestLine(pins.Trigger, gpiocdev.AsOutput(0))
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("request trigger pin %d: %w", pins.Trigger, err)
	}

	r.status, err = chip.RequestLine(pins.Status, gpiocdev.AsOutput(0))
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("request status pin %d: %w", pins.Status, err)
	}

	return r, nil
}

// Reverse returns the reverse-gear input.
func (r *RealLines) Reverse() Input { return lineInput{r.reverse, "reverse"} }

// Echo returns the ranging echo input.
func (r *RealLines) Echo() Input { return lineInput{r.echo, "echo"} }

// Trigger returns the ranging trigger output.
func (r *RealLines) Trigger() Output { return lineOutput{r.trigger, "trigger"} }

// Status returns the armed/active indicator output.
func (r *RealLines) Status() Output { return lineOutput{r.status, "status"} }

type lineInput struct {
	line *gpiocdev.Line
	name string
}

func (l lineInput) Get() (bool, error) {
	v, err := l.line.Value()
	if err != nil {
		return false, fmt.Errorf("read %s pin: %w", l.name, err)
	}
	return v != 0, nil
}

type lineOutput struct {
	line *gpiocdev.Line
	name string
}

func (l lineOutput) Set(high bool) error {
	v := 0
	if high {
		v = 1
	}
	if err := l.line.SetValue(v); err != nil {
		return fmt.Errorf("write %s pin: %w", l.name, err)
	}
	return nil
}

// Close releases GPIO resources.
// Outputs are driven low, then every line is reconfigured to input with
// pull-down (matching Pi boot defaults) before closing.
func (r *RealLines) Close() error {
	var errs []error

	for _, out := range []*gpiocdev.Line{r.trigger, r.status} {
		if out == nil {
			continue
		}
		if err := out.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("drive pin %d low: %w", out.Offset(), err))
		}
	}

	for _, l := range []*gpiocdev.Line{r.reverse, r.echo, r.trigger, r.status} {
		if l == nil {
			continue
		}
		if err := l.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure pin %d: %w", l.Offset(), err))
		}
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pin %d: %w", l.Offset(), err))
		}
	}

	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

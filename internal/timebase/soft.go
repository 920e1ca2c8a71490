package timebase

import (
	"context"
	"time"
)

// Defaults model an 8-bit timer clocked at 20 MHz with no prescaler.
const (
	DefaultPeriod      = 256
	DefaultQuantumNsec = 50
)

// SoftTimer is a free-running counter driven by the Go monotonic clock.
// Run plays the part of the overflow interrupt.
type SoftTimer struct {
	start       time.Time
	now         func() time.Time
	period      uint64
	quantumNsec uint64

	// handled counts overflows delivered by Run. Guarded by the
	// interrupt critical section.
	handled uint64
}

// NewSoftTimer creates a SoftTimer that starts counting immediately.
func NewSoftTimer(period uint32, quantumNsec uint64) *SoftTimer {
	return newSoftTimer(period, quantumNsec, time.Now)
}

func newSoftTimer(period uint32, quantumNsec uint64, now func() time.Time) *SoftTimer {
	return &SoftTimer{
		start:       now(),
		now:         now,
		period:      uint64(period),
		quantumNsec: quantumNsec,
	}
}

func (t *SoftTimer) counts() uint64 {
	return uint64(t.now().Sub(t.start)) / t.quantumNsec
}

// Sample implements Timer.
func (t *SoftTimer) Sample() (uint32, uint32) {
	c := t.counts()
	return uint32(c % t.period), uint32(c/t.period - t.handled)
}

// Run delivers overflows to handler until ctx is cancelled, checking every
// interval. Each handler call happens with interrupts disabled.
func (t *SoftTimer) Run(ctx context.Context, interval time.Duration, handler func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.deliver(handler)
		}
	}
}

func (t *SoftTimer) deliver(handler func()) {
	state := disableInterrupts()
	due := t.counts() / t.period
	for t.handled < due {
		handler()
		t.handled++
	}
	restoreInterrupts(state)
}

// Start wires a SoftTimer to a new Base and runs its overflow handler in
// the background until ctx is cancelled.
func Start(ctx context.Context) *Base {
	timer := NewSoftTimer(DefaultPeriod, DefaultQuantumNsec)
	base := New(timer, DefaultPeriod, DefaultQuantumNsec)
	go timer.Run(ctx, time.Millisecond, base.Overflow)
	return base
}

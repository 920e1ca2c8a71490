// Package timebase provides the free-running microsecond/millisecond clock
// every other component measures elapsed time against.
//
// The clock is built the way a microcontroller builds it: a hardware counter
// wraps at a fixed period and an overflow handler accumulates whole periods
// into a 64-bit monotonic counter. The handler is the only writer; readers
// take a short critical section so the counter, the sub-period count and the
// pending-overflow state are sampled together.
package timebase

import "sync/atomic"

// Clock is the read side of the time base.
type Clock interface {
	NowMicros() uint64
	NowMillis() uint64
}

// Timer is a free-running counter that wraps every period counts.
type Timer interface {
	// Sample returns the current count within the period and the number
	// of overflows that have happened but have not been handled yet.
	// It is only called with interrupts disabled.
	Sample() (count uint32, pending uint32)
}

// Base combines a Timer with the overflow counter.
type Base struct {
	timer       Timer
	period      uint64
	quantumNsec uint64

	// ticks is the monotonic counter, in timer counts. Written only by
	// Overflow.
	ticks atomic.Uint64
}

// New creates a Base for a timer that wraps every period counts, each
// count lasting quantumNsec nanoseconds.
func New(timer Timer, period uint32, quantumNsec uint64) *Base {
	return &Base{
		timer:       timer,
		period:      uint64(period),
		quantumNsec: quantumNsec,
	}
}

// Overflow is the overflow interrupt handler. It must stay O(1).
func (b *Base) Overflow() {
	b.ticks.Add(b.period)
}

// Ticks returns the raw overflow counter.
func (b *Base) Ticks() uint64 {
	return b.ticks.Load()
}

// NowMicros returns microseconds since the timer started.
func (b *Base) NowMicros() uint64 {
	state := disableInterrupts()
	ticks := b.ticks.Load()
	count, pending := b.timer.Sample()
	restoreInterrupts(state)

	ticks += uint64(pending)*b.period + uint64(count) + 1
	return ticks * b.quantumNsec / 1000
}

// NowMillis returns milliseconds since the timer started.
func (b *Base) NowMillis() uint64 {
	return b.NowMicros() / 1000
}

// Elapsed returns the time from mark to now. The operand order keeps the
// unsigned difference correct across a counter wrap.
func Elapsed(now, mark uint64) uint64 {
	return now - mark
}

package timebase

import "sync"

// Fake is a Clock for tests. Every NowMicros call returns the current
// value and then advances it by Step, so spin-waits always make progress.
type Fake struct {
	mu     sync.Mutex
	micros uint64
	Step   uint64
}

// NewFake creates a Fake starting at start microseconds.
func NewFake(start, step uint64) *Fake {
	return &Fake{micros: start, Step: step}
}

// NowMicros implements Clock.
func (f *Fake) NowMicros() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	v := f.micros
	f.micros += f.Step
	return v
}

// NowMillis implements Clock.
func (f *Fake) NowMillis() uint64 {
	return f.NowMicros() / 1000
}

// Peek returns the current reading without advancing.
func (f *Fake) Peek() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.micros
}

// Advance moves the clock forward by micros.
func (f *Fake) Advance(micros uint64) {
	f.mu.Lock()
	f.micros += micros
	f.mu.Unlock()
}

// Set jumps the clock to micros.
func (f *Fake) Set(micros uint64) {
	f.mu.Lock()
	f.micros = micros
	f.mu.Unlock()
}

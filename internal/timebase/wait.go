package timebase

import "runtime"

// WaitFor polls cond until it reports true or timeoutMicros have elapsed
// on clock. It returns false on timeout.
func WaitFor(clock Clock, timeoutMicros uint64, cond func() bool) bool {
	start := clock.NowMicros()
	for {
		if cond() {
			return true
		}
		if Elapsed(clock.NowMicros(), start) > timeoutMicros {
			return false
		}
		runtime.Gosched()
	}
}

// Delay spins for at least micros microseconds.
func Delay(clock Clock, micros uint64) {
	WaitFor(clock, micros, func() bool { return false })
}

package logic

// SelectMode picks the main mode from the reverse-gear line. It is a pure
// function of the current reading.
func SelectMode(reverse bool) MainMode {
	if reverse {
		return MainParking
	}
	return MainClock
}

// LineFilter optionally debounces a digital line before SelectMode sees it.
// With a zero debounce every sample passes straight through, so a single
// misread flips the mode for one frame.
type LineFilter struct {
	debounceMs uint64
	stable     bool

	pending      bool
	hasPending   bool
	pendingSince uint64
}

// NewLineFilter creates a filter that starts low.
func NewLineFilter(debounceMs uint64) *LineFilter {
	return &LineFilter{debounceMs: debounceMs}
}

// Process takes a raw sample taken at nowMs and returns the filtered level.
func (f *LineFilter) Process(level bool, nowMs uint64) bool {
	if f.debounceMs == 0 {
		f.stable = level
		return level
	}

	if level == f.stable {
		// Back to the stable level, drop any pending change
		f.hasPending = false
		return f.stable
	}

	if !f.hasPending || f.pending != level {
		f.pending = level
		f.pendingSince = nowMs
		f.hasPending = true
		return f.stable
	}

	if nowMs-f.pendingSince >= f.debounceMs {
		f.stable = level
		f.hasPending = false
	}
	return f.stable
}

// Level returns the last filtered level.
func (f *LineFilter) Level() bool {
	return f.stable
}

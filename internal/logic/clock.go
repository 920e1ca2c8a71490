package logic

// DefaultIdleTimeout is the number of idle seconds after which a setting
// mode reverts to Normal.
const DefaultIdleTimeout = 5

// modeTransitions maps each mode to the mode a Mode-button edge selects.
var modeTransitions = map[ClockMode]ClockMode{
	ModeNormal:         ModeSettingHours,
	ModeSettingHours:   ModeSettingMinutes,
	ModeSettingMinutes: ModeNormal,
}

// adjuster applies a signed step to the field a setting mode edits.
type adjuster func(t *ClockTime, delta int)

// adjusters maps each mode to its Increment/Decrement action.
// Normal has no entry: the buttons do nothing there.
var adjusters = map[ClockMode]adjuster{
	ModeSettingHours: func(t *ClockTime, delta int) {
		t.Hours = wrap(t.Hours+delta, 24)
	},
	ModeSettingMinutes: func(t *ClockTime, delta int) {
		t.Minutes = wrap(t.Minutes+delta, 60)
	},
}

// Clock is the clock state machine. It owns the displayed time, the mode
// and the idle counter.
type Clock struct {
	time        ClockTime
	mode        ClockMode
	idle        int
	idleTimeout int
}

// NewClock creates a clock at 00:00:00 in Normal mode.
// idleTimeout <= 0 selects DefaultIdleTimeout.
func NewClock(idleTimeout int) *Clock {
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	return &Clock{idleTimeout: idleTimeout}
}

// Time returns the current time.
func (c *Clock) Time() ClockTime {
	return c.time
}

// Mode returns the current mode.
func (c *Clock) Mode() ClockMode {
	return c.mode
}

// Idle returns the idle counter.
func (c *Clock) Idle() int {
	return c.idle
}

// Tick advances the clock by one elapsed second. In Normal the seconds
// advance with rollover; in a setting mode the idle counter advances
// instead and the mode reverts to Normal when it reaches the timeout.
func (c *Clock) Tick() *Transition {
	if c.mode == ModeNormal {
		c.advance()
		return nil
	}

	c.idle++
	if c.idle < c.idleTimeout {
		return nil
	}
	return c.setMode(ModeNormal, ReasonTimeout)
}

// Press applies one button edge. It returns the mode transition, if the
// edge caused one.
func (c *Clock) Press(b Button) *Transition {
	switch b {
	case ButtonMode:
		return c.setMode(modeTransitions[c.mode], ReasonButton)
	case ButtonIncrement:
		c.adjust(1)
	case ButtonDecrement:
		c.adjust(-1)
	}
	return nil
}

func (c *Clock) adjust(delta int) {
	c.idle = 0
	if adj, ok := adjusters[c.mode]; ok {
		adj(&c.time, delta)
	}
}

func (c *Clock) setMode(to ClockMode, reason Reason) *Transition {
	tr := &Transition{From: c.mode, To: to, Reason: reason}
	c.mode = to
	c.idle = 0
	return tr
}

func (c *Clock) advance() {
	c.time.Seconds++
	if c.time.Seconds < 60 {
		return
	}
	c.time.Seconds = 0
	c.time.Minutes++
	if c.time.Minutes < 60 {
		return
	}
	c.time.Minutes = 0
	c.time.Hours = (c.time.Hours + 1) % 24
}

func wrap(v, n int) int {
	v %= n
	if v < 0 {
		v += n
	}
	return v
}

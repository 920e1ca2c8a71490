// Package logic contains the pure dashboard logic: the clock state machine,
// the analog button decoder and main-mode selection.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is supplied by the caller as elapsed-second ticks or millisecond readings.
package logic

import (
	"fmt"
	"time"
)

// ClockTime is the displayed wall-clock time.
type ClockTime struct {
	Hours   int // 0-23
	Minutes int // 0-59
	Seconds int // 0-59
}

// String formats the time as HH:MM:SS.
func (t ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hours, t.Minutes, t.Seconds)
}

// ClockMode is the state of the clock state machine.
type ClockMode int

const (
	ModeNormal ClockMode = iota
	ModeSettingHours
	ModeSettingMinutes
)

func (m ClockMode) String() string {
	switch m {
	case ModeNormal:
		return "NORMAL"
	case ModeSettingHours:
		return "SETTING_HOURS"
	case ModeSettingMinutes:
		return "SETTING_MINUTES"
	}
	return "UNKNOWN"
}

// MainMode selects which view owns the display for a frame.
type MainMode int

const (
	MainClock MainMode = iota
	MainParking
)

func (m MainMode) String() string {
	if m == MainParking {
		return "PARKING"
	}
	return "CLOCK"
}

// Button identifies a logical button on the resistor ladder.
type Button int

const (
	ButtonNone Button = iota
	ButtonMode
	ButtonIncrement
	ButtonDecrement
)

func (b Button) String() string {
	switch b {
	case ButtonMode:
		return "MODE"
	case ButtonIncrement:
		return "INCREMENT"
	case ButtonDecrement:
		return "DECREMENT"
	}
	return "NONE"
}

// Reason explains a clock mode transition.
type Reason string

const (
	ReasonButton  Reason = "BUTTON"
	ReasonTimeout Reason = "TIMEOUT"
)

// Transition describes a clock mode change.
type Transition struct {
	From   ClockMode
	To     ClockMode
	Reason Reason
}

// EventType represents a dashboard event to be published.
type EventType string

const (
	EventParkingOn  EventType = "PARKING_ON"
	EventParkingOff EventType = "PARKING_OFF"
	EventClockMode  EventType = "CLOCK_MODE"
	EventTimeSet    EventType = "TIME_SET"
)

// Event is a dashboard state change.
// Timestamp is wall-clock time stamped by the publisher side; the core
// only knows UptimeMs.
type Event struct {
	Timestamp time.Time
	Type      EventType
	MainMode  MainMode
	ClockMode ClockMode
	Reason    Reason
	Time      ClockTime
	// Uptime is the time base reading in milliseconds.
	UptimeMs uint64
}

// Package dashboard runs one cooperative iteration of the dashboard: the
// one-second cadence, mode arbitration, button handling and the frame of
// whichever view owns the display.
package dashboard

import (
	"errors"
	"log"

	"github.com/sweeney/dashclock/internal/analog"
	"github.com/sweeney/dashclock/internal/display"
	"github.com/sweeney/dashclock/internal/gpio"
	"github.com/sweeney/dashclock/internal/logic"
	"github.com/sweeney/dashclock/internal/ranging"
	"github.com/sweeney/dashclock/internal/timebase"
)

// Ranger measures distance. *ranging.Engine implements it.
type Ranger interface {
	Measure() (ranging.Sample, error)
	Recover()
}

// Beater emits the once-per-second diagnostic line. *diag.Heartbeat
// implements it.
type Beater interface {
	Beat()
}

// Config holds the tunables of the controller.
type Config struct {
	ButtonChannel     int
	Bands             logic.Bands
	IdleTimeout       int
	ReverseDebounceMs uint64
	Title             string
}

// DefaultConfig returns the stock settings.
func DefaultConfig() Config {
	return Config{
		ButtonChannel: analog.DefaultChannel,
		Bands:         logic.DefaultBands,
		IdleTimeout:   logic.DefaultIdleTimeout,
		Title:         display.DefaultTitle,
	}
}

// Deps are the adapters the controller drives.
type Deps struct {
	Clock     timebase.Clock
	Reverse   gpio.Input
	Status    gpio.Output
	Ranger    Ranger
	ADC       analog.ADC
	Display   display.Presenter
	Heartbeat Beater // optional
}

// Stats counts what the controller has seen since start.
type Stats struct {
	Frames         uint64 `json:"frames"`
	Seconds        uint64 `json:"seconds"`
	Measurements   uint64 `json:"measurements"`
	NoEcho         uint64 `json:"no_echo"`
	PulseTimeouts  uint64 `json:"pulse_timeouts"`
	RangingErrors  uint64 `json:"ranging_errors"`
	ButtonEdges    uint64 `json:"button_edges"`
	ParkingEntries uint64 `json:"parking_entries"`
	ReadErrors     uint64 `json:"read_errors"`
}

// State is a copy of the controller state for observers.
type State struct {
	MainMode    logic.MainMode
	ClockMode   logic.ClockMode
	Time        logic.ClockTime
	DistanceCm  uint32
	HasDistance bool
	UptimeMs    uint64
	Stats       Stats
}

// Controller owns all dashboard state. It is not safe for concurrent use;
// observers get copies through State.
type Controller struct {
	deps    Deps
	channel int

	decoder *logic.Decoder
	clock   *logic.Clock
	filter  *logic.LineFilter
	blink   display.Blinker
	clockV  display.ClockView
	parkV   display.ParkingView

	mode       logic.MainMode
	secondMark uint64
	uptimeMs   uint64

	distanceCm  uint32
	hasDistance bool

	stats   Stats
	failing map[string]bool
}

// New creates a controller in Clock mode at 00:00:00. The one-second
// cadence starts at the current time base reading.
func New(cfg Config, deps Deps) *Controller {
	if cfg.Title == "" {
		cfg.Title = display.DefaultTitle
	}
	if cfg.Bands == (logic.Bands{}) {
		cfg.Bands = logic.DefaultBands
	}
	now := deps.Clock.NowMillis()
	return &Controller{
		deps:       deps,
		channel:    cfg.ButtonChannel,
		decoder:    logic.NewDecoder(cfg.Bands),
		clock:      logic.NewClock(cfg.IdleTimeout),
		filter:     logic.NewLineFilter(cfg.ReverseDebounceMs),
		clockV:     display.ClockView{Title: cfg.Title},
		secondMark: now,
		uptimeMs:   now,
		failing:    make(map[string]bool),
	}
}

// Step runs one iteration and returns the events it produced, in order.
// In Parking mode it blocks for one ranging cycle including recovery.
func (c *Controller) Step() []logic.Event {
	var events []logic.Event
	now := c.deps.Clock.NowMillis()
	c.uptimeMs = now
	c.stats.Frames++

	events = append(events, c.tickSeconds(now)...)

	events = append(events, c.arbitrate(now)...)

	events = append(events, c.handleButtons()...)

	if c.mode == logic.MainParking {
		c.parkingFrame()
	} else {
		c.clockFrame(c.deps.Clock.NowMillis())
	}

	return events
}

// tickSeconds runs the per-second work once for every whole second since
// the last mark. The mark moves by exactly one second each time so a long
// frame is caught up rather than lost.
func (c *Controller) tickSeconds(now uint64) []logic.Event {
	var events []logic.Event
	for timebase.Elapsed(now, c.secondMark) >= 1000 {
		c.secondMark += 1000
		c.stats.Seconds++
		if c.deps.Heartbeat != nil {
			c.deps.Heartbeat.Beat()
		}
		if tr := c.clock.Tick(); tr != nil {
			log.Printf("clock: %s -> %s (%s)", tr.From, tr.To, tr.Reason)
			events = append(events, c.event(logic.EventClockMode, tr.Reason))
		}
	}
	return events
}

func (c *Controller) arbitrate(now uint64) []logic.Event {
	raw, err := c.deps.Reverse.Get()
	if err != nil {
		c.stats.ReadErrors++
		c.fail("read reverse line", err)
		return nil
	}
	c.cleared("read reverse line")

	mode := logic.SelectMode(c.filter.Process(raw, now))
	if mode == c.mode {
		return nil
	}
	c.mode = mode

	if mode == logic.MainParking {
		c.stats.ParkingEntries++
		c.setStatus(true)
		log.Printf("mode: parking")
		return []logic.Event{c.event(logic.EventParkingOn, "")}
	}
	c.setStatus(false)
	log.Printf("mode: clock")
	return []logic.Event{c.event(logic.EventParkingOff, "")}
}

// handleButtons feeds the decoder on every frame so the latches track the
// ladder in both modes. Edges only act on the clock in Clock mode.
func (c *Controller) handleButtons() []logic.Event {
	raw, err := c.deps.ADC.ReadChannel(c.channel)
	if err != nil {
		c.stats.ReadErrors++
		c.fail("read buttons", err)
		return nil
	}
	c.cleared("read buttons")

	b := c.decoder.Sample(raw)
	if b == logic.ButtonNone {
		return nil
	}
	c.stats.ButtonEdges++
	if c.mode != logic.MainClock {
		return nil
	}

	before := c.clock.Time()
	if tr := c.clock.Press(b); tr != nil {
		log.Printf("clock: %s -> %s (%s)", tr.From, tr.To, tr.Reason)
		return []logic.Event{c.event(logic.EventClockMode, tr.Reason)}
	}
	if c.clock.Time() != before {
		return []logic.Event{c.event(logic.EventTimeSet, logic.ReasonButton)}
	}
	return nil
}

func (c *Controller) parkingFrame() {
	c.setStatus(false)
	s, err := c.deps.Ranger.Measure()
	switch {
	case err == nil:
		c.stats.Measurements++
		c.distanceCm = s.DistanceCm
		c.hasDistance = true
		c.render(c.parkV.Draw(c.deps.Display, s.DistanceCm))
	case errors.Is(err, ranging.ErrNoEcho):
		c.stats.NoEcho++
	case errors.Is(err, ranging.ErrPulseTimeout):
		c.stats.PulseTimeouts++
	default:
		c.stats.RangingErrors++
		c.fail("measure", err)
	}
	c.deps.Ranger.Recover()
	c.setStatus(true)
}

func (c *Controller) clockFrame(now uint64) {
	mark := display.FieldNone
	switch c.clock.Mode() {
	case logic.ModeSettingHours:
		mark = display.FieldHours
	case logic.ModeSettingMinutes:
		mark = display.FieldMinutes
	}
	if mark != display.FieldNone && !c.blink.Visible(now) {
		mark = display.FieldNone
	}
	c.render(c.clockV.Draw(c.deps.Display, c.clock.Time(), mark))
}

func (c *Controller) render(err error) {
	if err != nil {
		c.fail("render", err)
		return
	}
	c.cleared("render")
}

func (c *Controller) setStatus(level bool) {
	if err := c.deps.Status.Set(level); err != nil {
		c.fail("set status line", err)
		return
	}
	c.cleared("set status line")
}

// fail logs the first error of a run of failures of the same operation.
func (c *Controller) fail(op string, err error) {
	if !c.failing[op] {
		log.Printf("dashboard: %s: %v", op, err)
	}
	c.failing[op] = true
}

func (c *Controller) cleared(op string) {
	if c.failing[op] {
		log.Printf("dashboard: %s recovered", op)
		delete(c.failing, op)
	}
}

func (c *Controller) event(t logic.EventType, reason logic.Reason) logic.Event {
	return logic.Event{
		Type:      t,
		MainMode:  c.mode,
		ClockMode: c.clock.Mode(),
		Reason:    reason,
		Time:      c.clock.Time(),
		UptimeMs:  c.uptimeMs,
	}
}

// State returns a copy of the current state.
func (c *Controller) State() State {
	return State{
		MainMode:    c.mode,
		ClockMode:   c.clock.Mode(),
		Time:        c.clock.Time(),
		DistanceCm:  c.distanceCm,
		HasDistance: c.hasDistance,
		UptimeMs:    c.uptimeMs,
		Stats:       c.stats,
	}
}

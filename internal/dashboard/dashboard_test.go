package dashboard

import (
	"errors"
	"testing"

	"github.com/sweeney/dashclock/internal/analog"
	"github.com/sweeney/dashclock/internal/display"
	"github.com/sweeney/dashclock/internal/gpio"
	"github.com/sweeney/dashclock/internal/logic"
	"github.com/sweeney/dashclock/internal/ranging"
	"github.com/sweeney/dashclock/internal/timebase"
)

type rangeResult struct {
	cm  uint32
	err error
}

type fakeRanger struct {
	results  []rangeResult
	measures int
	recovers int
}

func (r *fakeRanger) Measure() (ranging.Sample, error) {
	i := r.measures
	if i >= len(r.results) {
		i = len(r.results) - 1
	}
	r.measures++
	res := r.results[i]
	if res.err != nil {
		return ranging.Sample{}, res.err
	}
	return ranging.Sample{DistanceCm: res.cm}, nil
}

func (r *fakeRanger) Recover() {
	r.recovers++
}

type countingBeater struct {
	beats int
}

func (b *countingBeater) Beat() {
	b.beats++
}

type rig struct {
	clock   *timebase.Fake
	reverse *gpio.FakeInput
	status  *gpio.FakeOutput
	ranger  *fakeRanger
	adc     *analog.FakeADC
	screen  *display.Recorder
	beat    *countingBeater
	ctrl    *Controller
}

func newRig(reverse []bool, adc []int, ranges ...rangeResult) *rig {
	if len(ranges) == 0 {
		ranges = []rangeResult{{cm: 100}}
	}
	r := &rig{
		clock:   timebase.NewFake(0, 0),
		reverse: gpio.NewFakeInput(reverse...),
		status:  gpio.NewFakeOutput(),
		ranger:  &fakeRanger{results: ranges},
		adc:     analog.NewFakeADC(adc...),
		screen:  display.NewRecorder(),
		beat:    &countingBeater{},
	}
	r.ctrl = New(DefaultConfig(), Deps{
		Clock:     r.clock,
		Reverse:   r.reverse,
		Status:    r.status,
		Ranger:    r.ranger,
		ADC:       r.adc,
		Display:   r.screen,
		Heartbeat: r.beat,
	})
	return r
}

func (r *rig) advanceMs(ms uint64) {
	r.clock.Advance(ms * 1000)
}

func eventTypes(events []logic.Event) []logic.EventType {
	var out []logic.EventType
	for _, e := range events {
		out = append(out, e.Type)
	}
	return out
}

func TestSecondCadence(t *testing.T) {
	r := newRig([]bool{false}, []int{0})

	r.ctrl.Step()
	if got := r.ctrl.State().Time; got != (logic.ClockTime{}) {
		t.Fatalf("expected 00:00:00 before a second elapsed, got %s", got)
	}

	r.advanceMs(1000)
	r.ctrl.Step()
	if got := r.ctrl.State().Time.Seconds; got != 1 {
		t.Errorf("expected 1 second, got %d", got)
	}

	// A long stall is caught up second by second.
	r.advanceMs(3500)
	r.ctrl.Step()
	if got := r.ctrl.State().Time.Seconds; got != 4 {
		t.Errorf("expected 4 seconds after catch-up, got %d", got)
	}
	r.advanceMs(500)
	r.ctrl.Step()
	if got := r.ctrl.State().Time.Seconds; got != 5 {
		t.Errorf("expected the half second to carry over, got %d", got)
	}

	if r.beat.beats != 5 {
		t.Errorf("expected 5 heartbeats, got %d", r.beat.beats)
	}

	texts := r.screen.Texts()
	if len(texts) != 3 || texts[1] != "00:00" || texts[2] != "05" {
		t.Errorf("unexpected clock frame: %v", texts)
	}
}

func TestParkingEntryAndExit(t *testing.T) {
	r := newRig([]bool{false, true, true, false}, []int{0}, rangeResult{cm: 123})

	if ev := r.ctrl.Step(); len(ev) != 0 {
		t.Fatalf("expected no events in clock mode, got %v", eventTypes(ev))
	}

	ev := r.ctrl.Step()
	if len(ev) != 1 || ev[0].Type != logic.EventParkingOn {
		t.Fatalf("expected PARKING_ON, got %v", eventTypes(ev))
	}
	if ev[0].MainMode != logic.MainParking {
		t.Errorf("expected event main mode PARKING, got %s", ev[0].MainMode)
	}

	want := []bool{true, false, true}
	got := r.status.History()
	if len(got) != len(want) {
		t.Fatalf("expected status levels %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("status[%d]: expected %v, got %v", i, want[i], got[i])
		}
	}

	texts := r.screen.Texts()
	if len(texts) != 3 || texts[1] != "123" {
		t.Errorf("unexpected parking frame: %v", texts)
	}

	if ev := r.ctrl.Step(); len(ev) != 0 {
		t.Errorf("expected no events while parking, got %v", eventTypes(ev))
	}

	ev = r.ctrl.Step()
	if len(ev) != 1 || ev[0].Type != logic.EventParkingOff {
		t.Fatalf("expected PARKING_OFF, got %v", eventTypes(ev))
	}
	if r.status.Level() {
		t.Error("expected status line low after leaving parking")
	}

	st := r.ctrl.State()
	if st.Stats.ParkingEntries != 1 || st.Stats.Measurements != 2 {
		t.Errorf("unexpected stats: %+v", st.Stats)
	}
	if !st.HasDistance || st.DistanceCm != 123 {
		t.Errorf("expected last distance 123, got %+v", st)
	}
	if r.ranger.recovers != 2 {
		t.Errorf("expected 2 recoveries, got %d", r.ranger.recovers)
	}
}

func TestNoEchoLeavesDisplayStale(t *testing.T) {
	r := newRig([]bool{true}, []int{0},
		rangeResult{cm: 50},
		rangeResult{err: ranging.ErrNoEcho},
		rangeResult{err: ranging.ErrPulseTimeout},
	)

	r.ctrl.Step()
	r.ctrl.Step()
	r.ctrl.Step()

	if r.screen.Count() != 1 {
		t.Errorf("expected only the first cycle to render, got %d frames", r.screen.Count())
	}
	if texts := r.screen.Texts(); texts[1] != "50" {
		t.Errorf("expected stale distance 50, got %v", texts)
	}

	st := r.ctrl.State().Stats
	if st.NoEcho != 1 || st.PulseTimeouts != 1 || st.Measurements != 1 {
		t.Errorf("unexpected stats: %+v", st)
	}
	if r.ranger.recovers != 3 {
		t.Errorf("expected recovery after every cycle, got %d", r.ranger.recovers)
	}
	if !r.status.Level() {
		t.Error("expected status line high after recovery")
	}
}

func TestButtonsSetTime(t *testing.T) {
	// idle, MODE, release, INC, release, INC held, release, DEC
	r := newRig([]bool{false}, []int{0, 400, 0, 250, 0, 250, 250, 0, 150})

	var all []logic.Event
	for i := 0; i < 9; i++ {
		all = append(all, r.ctrl.Step()...)
	}

	want := []logic.EventType{logic.EventClockMode, logic.EventTimeSet, logic.EventTimeSet, logic.EventTimeSet}
	got := eventTypes(all)
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event[%d]: expected %s, got %s", i, want[i], got[i])
		}
	}

	if all[0].ClockMode != logic.ModeSettingHours || all[0].Reason != logic.ReasonButton {
		t.Errorf("unexpected mode event: %+v", all[0])
	}

	st := r.ctrl.State()
	if st.Time.Hours != 1 {
		t.Errorf("expected hours 1 after +1 +1 -1, got %d", st.Time.Hours)
	}
	if st.Stats.ButtonEdges != 4 {
		t.Errorf("expected 4 edges, got %d", st.Stats.ButtonEdges)
	}
}

func TestButtonsIgnoredWhileParking(t *testing.T) {
	// MODE pressed during parking and still held when reverse drops.
	r := newRig([]bool{true, false}, []int{400})

	r.ctrl.Step()
	ev := r.ctrl.Step()

	if r.ctrl.State().ClockMode != logic.ModeNormal {
		t.Errorf("expected clock mode unchanged, got %s", r.ctrl.State().ClockMode)
	}
	if len(ev) != 1 || ev[0].Type != logic.EventParkingOff {
		t.Errorf("expected only PARKING_OFF, got %v", eventTypes(ev))
	}
	if got := r.ctrl.State().Stats.ButtonEdges; got != 1 {
		t.Errorf("expected the edge counted once, got %d", got)
	}
}

func TestIdleTimeoutReverts(t *testing.T) {
	r := newRig([]bool{false}, []int{400})

	ev := r.ctrl.Step()
	if len(ev) != 1 || r.ctrl.State().ClockMode != logic.ModeSettingHours {
		t.Fatalf("expected entry into SETTING_HOURS, got %v", eventTypes(ev))
	}

	r.advanceMs(4000)
	if ev := r.ctrl.Step(); len(ev) != 0 {
		t.Fatalf("expected no revert after 4s, got %v", eventTypes(ev))
	}

	r.advanceMs(1000)
	ev = r.ctrl.Step()
	if len(ev) != 1 || ev[0].Reason != logic.ReasonTimeout || ev[0].ClockMode != logic.ModeNormal {
		t.Fatalf("expected timeout revert, got %+v", ev)
	}
	if got := r.ctrl.State().Time.Seconds; got != 0 {
		t.Errorf("expected seconds frozen while setting, got %d", got)
	}
}

func TestSettingMarkBlinks(t *testing.T) {
	r := newRig([]bool{false}, []int{400})

	r.advanceMs(100)
	r.ctrl.Step()
	if texts := r.screen.Texts(); len(texts) != 3 {
		t.Errorf("expected mark hidden early in the cycle, got %v", texts)
	}

	r.advanceMs(200)
	r.ctrl.Step()
	texts := r.screen.Texts()
	if len(texts) != 4 || texts[3] != "----" {
		t.Errorf("expected mark visible, got %v", texts)
	}
}

func TestReverseReadErrorKeepsMode(t *testing.T) {
	r := newRig([]bool{true}, []int{0})
	r.ctrl.Step()

	r.reverse.ReadError = errors.New("line gone")
	if ev := r.ctrl.Step(); len(ev) != 0 {
		t.Errorf("expected no events on read error, got %v", eventTypes(ev))
	}

	st := r.ctrl.State()
	if st.MainMode != logic.MainParking {
		t.Errorf("expected parking kept, got %s", st.MainMode)
	}
	if st.Stats.ReadErrors != 1 {
		t.Errorf("expected 1 read error, got %d", st.Stats.ReadErrors)
	}
}

func TestADCReadErrorSkipsButtons(t *testing.T) {
	r := newRig([]bool{false}, []int{400})
	r.adc.ReadError = errors.New("spi fault")

	if ev := r.ctrl.Step(); len(ev) != 0 {
		t.Errorf("expected no events, got %v", eventTypes(ev))
	}
	if r.screen.Count() != 1 {
		t.Error("expected the clock frame to render anyway")
	}

	r.adc.ReadError = nil
	if ev := r.ctrl.Step(); len(ev) != 1 {
		t.Errorf("expected the press once reads recover, got %v", eventTypes(ev))
	}
}

func TestStatusWriteErrorDoesNotStopRanging(t *testing.T) {
	r := newRig([]bool{true}, []int{0}, rangeResult{cm: 42})
	r.status.WriteError = errors.New("line busy")

	r.ctrl.Step()

	if r.ranger.measures != 1 {
		t.Errorf("expected a measurement, got %d", r.ranger.measures)
	}
	if texts := r.screen.Texts(); len(texts) != 3 || texts[1] != "42" {
		t.Errorf("unexpected frame: %v", texts)
	}
}

func TestReverseDebounce(t *testing.T) {
	r := newRig([]bool{true, true, true}, []int{0})
	cfg := DefaultConfig()
	cfg.ReverseDebounceMs = 100
	r.ctrl = New(cfg, Deps{
		Clock: r.clock, Reverse: r.reverse, Status: r.status,
		Ranger: r.ranger, ADC: r.adc, Display: r.screen,
	})

	if ev := r.ctrl.Step(); len(ev) != 0 {
		t.Fatalf("expected the first sample held back, got %v", eventTypes(ev))
	}
	r.advanceMs(50)
	if ev := r.ctrl.Step(); len(ev) != 0 {
		t.Fatalf("expected no change before debounce, got %v", eventTypes(ev))
	}
	r.advanceMs(50)
	if ev := r.ctrl.Step(); len(ev) != 1 || ev[0].Type != logic.EventParkingOn {
		t.Fatalf("expected PARKING_ON after debounce, got %v", eventTypes(ev))
	}
}

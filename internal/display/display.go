// Package display renders the dashboard views on a small monochrome
// display.
package display

import (
	"strconv"

	"github.com/sweeney/dashclock/internal/logic"
)

// Presenter is the set of display primitives the views draw with.
// Coordinates are pixels from the top-left corner; size is an integer
// text scale.
type Presenter interface {
	Clear()
	SetCursor(x, y int)
	WriteString(text string, size int)
	Render() error
}

// Glyph metrics of the display font at size 1.
const (
	glyphWidth  = 7
	glyphHeight = 13
	screenWidth = 128
)

// Clock view layout.
const (
	clockTimeX  = 10
	clockTimeY  = 16
	clockSecX   = clockTimeX + 5*2*glyphWidth + 4
	clockSecY   = clockTimeY + glyphHeight
	clockMarkY  = clockTimeY + 2*glyphHeight + 2
	clockMarkHX = clockTimeX
	clockMarkMX = clockTimeX + 3*2*glyphWidth
)

// Parking view layout.
const (
	parkingLabel = "PARK DISTANCE"
	parkingDistX = 18
	parkingDistY = 18
	parkingUnitY = parkingDistY + glyphHeight
)

// DefaultTitle is shown above the clock.
const DefaultTitle = "RENAULT 19"

// Field selects the clock field marked while setting.
type Field int

const (
	FieldNone Field = iota
	FieldHours
	FieldMinutes
)

func centered(text string) int {
	x := (screenWidth - len(text)*glyphWidth) / 2
	if x < 0 {
		return 0
	}
	return x
}

func twoDigits(v int) string {
	if v < 10 {
		return "0" + strconv.Itoa(v)
	}
	return strconv.Itoa(v)
}

// ClockView draws HH:MM with small seconds and an optional edit mark.
type ClockView struct {
	Title string
}

// Draw renders one clock frame.
func (v ClockView) Draw(p Presenter, t logic.ClockTime, mark Field) error {
	title := v.Title
	if title == "" {
		title = DefaultTitle
	}

	p.Clear()
	p.SetCursor(centered(title), 0)
	p.WriteString(title, 1)
	p.SetCursor(clockTimeX, clockTimeY)
	p.WriteString(twoDigits(t.Hours)+":"+twoDigits(t.Minutes), 2)
	p.SetCursor(clockSecX, clockSecY)
	p.WriteString(twoDigits(t.Seconds), 1)

	switch mark {
	case FieldHours:
		p.SetCursor(clockMarkHX, clockMarkY)
		p.WriteString("----", 1)
	case FieldMinutes:
		p.SetCursor(clockMarkMX, clockMarkY)
		p.WriteString("----", 1)
	}

	return p.Render()
}

// ParkingView draws the measured distance.
type ParkingView struct{}

// Draw renders one parking frame.
func (ParkingView) Draw(p Presenter, distanceCm uint32) error {
	digits := strconv.FormatUint(uint64(distanceCm), 10)

	p.Clear()
	p.SetCursor(centered(parkingLabel), 0)
	p.WriteString(parkingLabel, 1)
	p.SetCursor(parkingDistX, parkingDistY)
	p.WriteString(digits, 2)
	p.SetCursor(parkingDistX+len(digits)*2*glyphWidth+4, parkingUnitY)
	p.WriteString("cm", 1)

	return p.Render()
}

// Blinker gates the edit mark: hidden for the first 250ms of each 500ms
// cycle, visible for the rest.
type Blinker struct {
	mark uint64
}

// Visible reports whether the mark shows at nowMs and restarts the cycle
// once it has run its course.
func (b *Blinker) Visible(nowMs uint64) bool {
	elapsed := nowMs - b.mark
	if elapsed < 250 {
		return false
	}
	if elapsed > 500 {
		b.mark = nowMs
	}
	return true
}

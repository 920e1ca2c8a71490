package logic

// Band is a half-open range [Lo, Hi) of raw ADC readings.
type Band struct {
	Lo int
	Hi int
}

// Contains reports whether raw falls inside the band.
func (b Band) Contains(raw int) bool {
	return raw >= b.Lo && raw < b.Hi
}

// Bands maps each logical button to its band on the shared channel.
type Bands struct {
	Mode      Band
	Increment Band
	Decrement Band
}

// DefaultBands are the bands of the three-button resistor ladder read by
// a 10-bit ADC.
var DefaultBands = Bands{
	Mode:      Band{Lo: 340, Hi: 450},
	Increment: Band{Lo: 210, Hi: 280},
	Decrement: Band{Lo: 130, Hi: 200},
}

// Classify returns the button whose band contains raw, or ButtonNone.
func (b Bands) Classify(raw int) Button {
	switch {
	case b.Mode.Contains(raw):
		return ButtonMode
	case b.Increment.Contains(raw):
		return ButtonIncrement
	case b.Decrement.Contains(raw):
		return ButtonDecrement
	}
	return ButtonNone
}

// Classify classifies raw against DefaultBands.
func Classify(raw int) Button {
	return DefaultBands.Classify(raw)
}

// Decoder turns raw readings into button edges.
type Decoder struct {
	bands   Bands
	pressed [4]bool // indexed by Button
}

// NewDecoder creates a Decoder for the given bands.
func NewDecoder(bands Bands) *Decoder {
	return &Decoder{bands: bands}
}

// Sample updates every button latch from raw and returns the button that
// went from released to pressed on this sample, or ButtonNone. Holding a
// reading inside a band fires once.
func (d *Decoder) Sample(raw int) Button {
	edge := ButtonNone
	for _, btn := range []Button{ButtonMode, ButtonIncrement, ButtonDecrement} {
		in := d.band(btn).Contains(raw)
		if in && !d.pressed[btn] {
			edge = btn
		}
		d.pressed[btn] = in
	}
	return edge
}

// Pressed reports the latch for b.
func (d *Decoder) Pressed(b Button) bool {
	if b <= ButtonNone || int(b) >= len(d.pressed) {
		return false
	}
	return d.pressed[b]
}

func (d *Decoder) band(b Button) Band {
	switch b {
	case ButtonMode:
		return d.bands.Mode
	case ButtonIncrement:
		return d.bands.Increment
	}
	return d.bands.Decrement
}

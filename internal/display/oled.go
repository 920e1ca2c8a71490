package display

import (
	"fmt"
	"image"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"
)

// OLED is a Presenter for a 128x64 SSD1306 on I2C. Drawing goes to an
// off-screen canvas; Render pushes the whole frame.
type OLED struct {
	bus    i2c.BusCloser
	dev    *ssd1306.Dev
	canvas *image1bit.VerticalLSB
	cursor image.Point
}

// OpenOLED initialises the host drivers and opens the display on the named
// I2C bus ("" selects the first one).
func OpenOLED(bus string) (*OLED, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init host: %w", err)
	}

	b, err := i2creg.Open(bus)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %q: %w", bus, err)
	}

	opts := ssd1306.DefaultOpts
	dev, err := ssd1306.NewI2C(b, &opts)
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("open ssd1306: %w", err)
	}

	return &OLED{
		bus:    b,
		dev:    dev,
		canvas: image1bit.NewVerticalLSB(dev.Bounds()),
	}, nil
}

// Clear blanks the canvas.
func (o *OLED) Clear() {
	draw.Draw(o.canvas, o.canvas.Bounds(), &image.Uniform{C: image1bit.Off}, image.Point{}, draw.Src)
	o.cursor = image.Point{}
}

// SetCursor moves the top-left corner of the next string.
func (o *OLED) SetCursor(x, y int) {
	o.cursor = image.Pt(x, y)
}

// WriteString draws text at the cursor, scaled by size, and advances the
// cursor past it.
func (o *OLED) WriteString(text string, size int) {
	if size < 1 {
		size = 1
	}
	glyphs := renderText(text)
	b := glyphs.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if glyphs.AlphaAt(x, y).A < 0x80 {
				continue
			}
			for dy := 0; dy < size; dy++ {
				for dx := 0; dx < size; dx++ {
					o.canvas.Set(o.cursor.X+x*size+dx, o.cursor.Y+y*size+dy, image1bit.On)
				}
			}
		}
	}
	o.cursor.X += b.Dx() * size
}

// Render sends the canvas to the display.
func (o *OLED) Render() error {
	if err := o.dev.Draw(o.dev.Bounds(), o.canvas, image.Point{}); err != nil {
		return fmt.Errorf("draw ssd1306: %w", err)
	}
	return nil
}

// Close blanks the display and releases the bus.
func (o *OLED) Close() error {
	var errs []error
	if err := o.dev.Halt(); err != nil {
		errs = append(errs, fmt.Errorf("halt ssd1306: %w", err))
	}
	if err := o.bus.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close i2c bus: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// renderText draws text with the 7x13 font into an alpha mask whose
// top-left corner is the top of the first glyph cell.
func renderText(text string) *image.Alpha {
	face := basicfont.Face7x13
	mask := image.NewAlpha(image.Rect(0, 0, len(text)*face.Advance, face.Height))
	d := font.Drawer{
		Dst:  mask,
		Src:  image.Opaque,
		Face: face,
		Dot:  fixed.P(0, face.Ascent),
	}
	d.DrawString(text)
	return mask
}

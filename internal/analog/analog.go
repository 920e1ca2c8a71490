// Package analog reads the button ladder through an ADC.
package analog

import (
	"errors"
	"fmt"
	"sync"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// DefaultChannel is the ADC channel the button ladder is wired to.
const DefaultChannel = 5

// ADC reads raw samples. Values are in the device resolution (0-1023 for
// a 10-bit converter).
type ADC interface {
	ReadChannel(ch int) (int, error)
}

// MCP3008 is an 8-channel 10-bit SPI ADC.
type MCP3008 struct {
	port spi.PortCloser
	conn spi.Conn
}

// OpenMCP3008 initialises the host drivers and opens the ADC on the named
// SPI port ("" selects the first one).
func OpenMCP3008(port string) (*MCP3008, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init host: %w", err)
	}

	p, err := spireg.Open(port)
	if err != nil {
		return nil, fmt.Errorf("open spi port %q: %w", port, err)
	}

	c, err := p.Connect(1*physic.MegaHertz, spi.Mode0, 8)
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("connect spi: %w", err)
	}

	return &MCP3008{port: p, conn: c}, nil
}

// ReadChannel performs one single-ended conversion on ch.
func (m *MCP3008) ReadChannel(ch int) (int, error) {
	return readMCP3008(m.conn, ch)
}

// Close releases the SPI port.
func (m *MCP3008) Close() error {
	return m.port.Close()
}

// conn is the part of spi.Conn the conversion needs.
type conn interface {
	Tx(w, r []byte) error
}

func readMCP3008(c conn, ch int) (int, error) {
	if ch < 0 || ch > 7 {
		return 0, fmt.Errorf("mcp3008: invalid channel %d", ch)
	}

	// Start bit, then single-ended mode and channel in the high nibble.
	w := []byte{0x01, byte(0x08|ch) << 4, 0x00}
	r := make([]byte, 3)
	if err := c.Tx(w, r); err != nil {
		return 0, fmt.Errorf("mcp3008 read channel %d: %w", ch, err)
	}
	return int(r[1]&0x03)<<8 | int(r[2]), nil
}

// FakeADC is a test double that returns scripted readings.
type FakeADC struct {
	mu sync.Mutex

	// Samples contains scripted readings to return.
	// Each call to ReadChannel() consumes the next sample.
	Samples []int

	// index tracks current position in Samples
	index int

	// Channels records the channel of every read.
	Channels []int

	// ReadError, if set, will be returned by ReadChannel()
	ReadError error
}

// NewFakeADC creates a FakeADC with the given samples.
func NewFakeADC(samples ...int) *FakeADC {
	return &FakeADC{Samples: samples}
}

// ReadChannel returns the next scripted sample.
// If samples are exhausted, returns the last sample repeatedly.
func (f *FakeADC) ReadChannel(ch int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Channels = append(f.Channels, ch)
	if f.ReadError != nil {
		return 0, f.ReadError
	}
	if len(f.Samples) == 0 {
		return 0, errors.New("no samples configured")
	}

	i := f.index
	if i >= len(f.Samples) {
		i = len(f.Samples) - 1
	} else {
		f.index++
	}
	return f.Samples[i], nil
}

// Push appends readings to the script.
func (f *FakeADC) Push(samples ...int) {
	f.mu.Lock()
	f.Samples = append(f.Samples, samples...)
	f.mu.Unlock()
}

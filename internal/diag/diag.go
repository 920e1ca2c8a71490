// Package diag emits the once-per-second diagnostic line on a serial port.
package diag

import (
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/tarm/serial"
)

// Line is written once per elapsed second.
const Line = "SECOND!\n"

// DefaultBaud matches the firmware UART setting.
const DefaultBaud = 9600

// Heartbeat writes Line to w. Write failures are logged once per run of
// failures and otherwise ignored.
type Heartbeat struct {
	mu      sync.Mutex
	w       io.Writer
	failing bool
	beats   uint64
	errors  uint64
}

// NewHeartbeat creates a Heartbeat writing to w. A nil writer discards.
func NewHeartbeat(w io.Writer) *Heartbeat {
	if w == nil {
		w = io.Discard
	}
	return &Heartbeat{w: w}
}

// Beat writes one line.
func (h *Heartbeat) Beat() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.beats++
	if _, err := io.WriteString(h.w, Line); err != nil {
		h.errors++
		if !h.failing {
			log.Printf("diag: write failed: %v", err)
		}
		h.failing = true
		return
	}
	if h.failing {
		log.Printf("diag: write recovered after %d errors", h.errors)
	}
	h.failing = false
}

// Counts returns the number of beats and failed writes.
func (h *Heartbeat) Counts() (beats, errors uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.beats, h.errors
}

// OpenSerial opens the named UART at baud (0 selects DefaultBaud), 8N1.
func OpenSerial(name string, baud int) (io.WriteCloser, error) {
	if baud <= 0 {
		baud = DefaultBaud
	}
	p, err := serial.OpenPort(&serial.Config{Name: name, Baud: baud})
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", name, err)
	}
	return p, nil
}

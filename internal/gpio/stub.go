//go:build !linux

package gpio

import "errors"

// RealLines is not available on non-Linux platforms.
type RealLines struct{}

// NewRealLines returns an error on non-Linux platforms.
func NewRealLines(pins Pins) (*RealLines, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

func (r *RealLines) Reverse() Input  { return unsupported{} }
func (r *RealLines) Echo() Input     { return unsupported{} }
func (r *RealLines) Trigger() Output { return unsupported{} }
func (r *RealLines) Status() Output  { return unsupported{} }

// Close is not implemented on non-Linux platforms.
func (r *RealLines) Close() error {
	return nil
}

type unsupported struct{}

func (unsupported) Get() (bool, error) { return false, errors.New("gpio: not supported") }
func (unsupported) Set(bool) error     { return errors.New("gpio: not supported") }

// Package gpio provides digital line access with hardware abstraction.
// The real implementation uses Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Input is a digital input line. Get returns true when the line is high.
type Input interface {
	Get() (bool, error)
}

// Output is a digital output line.
type Output interface {
	Set(high bool) error
}

// InputFunc adapts a function to Input.
type InputFunc func() (bool, error)

// Get calls f.
func (f InputFunc) Get() (bool, error) {
	return f()
}

// Pins holds line offsets (BCM numbering).
type Pins struct {
	Reverse int // reverse-gear signal, input
	Echo    int // ranging sensor echo, input
	Trigger int // ranging sensor trigger, output
	Status  int // armed/active indicator, output
}

// Default pin assignments (BCM numbering)
const (
	DefaultPinReverse = 17
	DefaultPinEcho    = 24
	DefaultPinTrigger = 23
	DefaultPinStatus  = 27
)

// DefaultPins returns the default pin assignments.
func DefaultPins() Pins {
	return Pins{
		Reverse: DefaultPinReverse,
		Echo:    DefaultPinEcho,
		Trigger: DefaultPinTrigger,
		Status:  DefaultPinStatus,
	}
}

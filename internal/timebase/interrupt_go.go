//go:build !tinygo

package timebase

import "sync"

// irqMu stands in for the interrupt enable flag: the overflow handler and
// every reader hold it, so a read never overlaps a handler run.
var irqMu sync.Mutex

type irqState struct{}

func disableInterrupts() irqState {
	irqMu.Lock()
	return irqState{}
}

func restoreInterrupts(irqState) {
	irqMu.Unlock()
}

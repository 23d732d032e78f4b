//go:build tinygo

package core

import "runtime/interrupt"

// timerLock is the interrupt mask saved while the timer list is edited.
type timerLock = interrupt.State

// lockTimers keeps interrupt handlers that schedule timers off the list
// until unlockTimers restores the saved mask.
func lockTimers() timerLock {
	return interrupt.Disable()
}

func unlockTimers(l timerLock) {
	interrupt.Restore(l)
}

//go:build !tinygo

package core

// Host builds have no interrupt handlers; the timer list is only touched
// from the poll loop.
type timerLock struct{}

func lockTimers() timerLock { return timerLock{} }

func unlockTimers(timerLock) {}

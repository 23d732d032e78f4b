package core

import "sync/atomic"

// TimerFreq is the tick rate of GetTime. Targets feed SetTime from a
// 1 MHz hardware counter.
const TimerFreq = 1000000

// systemTicks is written by the poll loop and read from handlers and the
// link reader, so it only goes through atomics. uptimeHigh and lastTicks
// belong to the poll loop.
var (
	systemTicks atomic.Uint32
	uptimeHigh  uint32
	lastTicks   uint32
)

// GetTime returns the current system time in timer ticks.
func GetTime() uint32 {
	return systemTicks.Load()
}

// SetTime publishes a new hardware tick count. Wraps of the 32-bit
// counter are folded into the uptime high word.
func SetTime(ticks uint32) {
	if ticks < lastTicks {
		uptimeHigh++
	}
	lastTicks = ticks
	systemTicks.Store(ticks)
}

// GetUptime returns the 64-bit tick count since boot.
func GetUptime() uint64 {
	return uint64(uptimeHigh)<<32 | uint64(GetTime())
}

// TimerFromUS converts microseconds to timer ticks.
func TimerFromUS(us uint32) uint32 {
	return uint32(uint64(us) * TimerFreq / 1000000)
}

// TimerToUS converts timer ticks to microseconds.
func TimerToUS(ticks uint32) uint32 {
	return uint32(uint64(ticks) * 1000000 / TimerFreq)
}

// TimerInit clears the tick state at boot.
func TimerInit() {
	uptimeHigh = 0
	lastTicks = 0
	systemTicks.Store(0)
}

// ProcessTimers runs due timers against the latest tick count.
func ProcessTimers() {
	currentTime = GetTime()
	TimerDispatch()
}

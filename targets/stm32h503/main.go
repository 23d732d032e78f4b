//go:build stm32h503

// Command stm32h503 is the firmware image for STM32H503 boards. The
// startup code must have enabled the GPIO port clocks in RCC before main
// runs; the image never touches RCC.
package main

import (
	"device/arm"
	"machine"
	"time"

	"stm32io/core"
	"stm32io/targets/stm32h5"
)

var boot = time.Now()

// initDebug is replaced by debug.go in builds with the debug tag.
var initDebug = func() {}

// setupGPIO returns the GPIO driver and the pin enumeration. Optional
// backends replace it from an init function.
var setupGPIO = func() (core.GPIODriver, []string) {
	return stm32h5.NewGPIODriver(), stm32h5.PinNames()
}

func main() {
	initLink()
	initDebug()

	drv, names := setupGPIO()
	stm32h5.Boot(drv, names)

	fw := stm32h5.NewFirmware(machine.Serial)
	core.SetResetHandler(arm.SystemReset)

	go readLoop(fw)

	for {
		fw.Poll(now())
		time.Sleep(10 * time.Microsecond)
	}
}

// now returns microseconds since boot; it wraps with the 32-bit clock.
func now() uint32 {
	return uint32(time.Since(boot).Microseconds())
}

// readLoop drains the UART into the firmware input buffer.
func readLoop(fw *stm32h5.Firmware) {
	var buf [64]byte
	for {
		n := 0
		for n < len(buf) && machine.Serial.Buffered() > 0 {
			b, err := machine.Serial.ReadByte()
			if err != nil {
				break
			}
			buf[n] = b
			n++
		}
		if n > 0 {
			fw.Feed(buf[:n])
		}
		time.Sleep(100 * time.Microsecond)
	}
}

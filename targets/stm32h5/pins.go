package stm32h5

import (
	"stm32io/core"
	"stm32io/gpio"
)

// MCU is the name reported in the dictionary.
const MCU = "stm32h503"

// PinName returns the conventional name of a flat pin number, e.g. "PB3".
func PinName(pin core.GPIOPin) string {
	if pin >= NumPins {
		return "P?"
	}
	n := pin % gpio.PinCount
	name := "P" + gpio.Port(pin/gpio.PinCount).String()
	if n >= 10 {
		name += string(rune('0' + n/10))
	}
	return name + string(rune('0'+n%10))
}

// PinNames lists every pin name indexed by GPIOPin. Pins of ports the
// chip does not bond out are left empty.
func PinNames() []string {
	names := make([]string, NumPins)
	for i := range names {
		pin := core.GPIOPin(i)
		if _, _, err := Split(pin); err == nil {
			names[i] = PinName(pin)
		}
	}
	return names
}

// Register installs drv as the GPIO driver and publishes the chip
// constants and the "pin" enumeration. Call before the dictionary is built.
func Register(drv core.GPIODriver, pinNames []string) {
	core.SetGPIODriver(drv)
	core.RegisterConstant("MCU", MCU)
	core.RegisterConstant("CLOCK_FREQ", uint32(core.TimerFreq))
	core.RegisterEnumeration("pin", pinNames)
}

//go:build stm32h503 && mcp23017

package main

import (
	"machine"

	"stm32io/core"
	"stm32io/targets/expander"
	"stm32io/targets/stm32h5"
)

// With the mcp23017 tag an expander on I2C0 provides pins from
// stm32h5.NumPins onwards. The image still boots without it.
func init() {
	setupGPIO = func() (core.GPIODriver, []string) {
		onChip := stm32h5.NewGPIODriver()
		names := stm32h5.PinNames()

		bus := machine.I2C0
		if err := bus.Configure(machine.I2CConfig{Frequency: 400 * machine.KHz}); err != nil {
			return onChip, names
		}
		exp, err := expander.New(bus, expander.DefaultAddress, stm32h5.NumPins)
		if err != nil {
			return onChip, names
		}
		mux := expander.NewMux().
			Add(0, stm32h5.NumPins, onChip).
			Add(exp.Base(), expander.PinCount, exp)
		return mux, exp.AppendPinNames(names)
	}
}

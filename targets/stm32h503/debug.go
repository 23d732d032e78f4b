//go:build stm32h503 && debug

package main

import (
	"machine"

	"stm32io/core"
	"stm32io/targets/stm32h5"
)

const debugBaudRate = 115200

func init() {
	initDebug = initDebugUART
}

// initDebugUART sends debug output to UART1 so it never mixes with the
// protocol link on machine.Serial.
func initDebugUART() {
	uart := machine.UART1
	if err := uart.Configure(machine.UARTConfig{BaudRate: debugBaudRate}); err != nil {
		return
	}
	core.SetDebugWriter(func(msg string) {
		uart.Write([]byte(msg))
		uart.Write([]byte("\r\n"))
	})
	core.SetDebugEnabled(true)
	core.InitAsyncDebug()
	core.DebugPrintln("=== " + stm32h5.MCU + " debug UART ===")
}

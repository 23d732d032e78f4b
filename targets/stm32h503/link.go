//go:build stm32h503

package main

import "machine"

const baudRate = 250000

func initLink() {
	err := machine.Serial.Configure(machine.UARTConfig{BaudRate: baudRate})
	if err != nil {
		return
	}
}

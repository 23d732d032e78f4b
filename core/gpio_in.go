package core

import (
	"stm32io/protocol"
)

// DigitalIn is one configured input pin.
type DigitalIn struct {
	OID  uint8
	Pin  GPIOPin
	Pull Pull
}

var digitalInputs = make(map[uint8]*DigitalIn)

func initDigitalInCommands() {
	RegisterCommand("config_digital_in", "oid=%c pin=%u pull=%c", handleConfigDigitalIn)
	RegisterCommand("query_digital_in", "oid=%c", handleQueryDigitalIn)
	RegisterResponse("digital_in_state", "oid=%c value=%c")
}

func initPortCommands() {
	RegisterCommand("config_gpio_port", "port=%c output=%c pull=%c", handleConfigGPIOPort)
	RegisterCommand("set_gpio_port", "port=%c value=%hu", handleSetGPIOPort)
	RegisterCommand("query_gpio_port", "port=%c", handleQueryGPIOPort)
	RegisterResponse("gpio_port_state", "port=%c value=%hu")
}

// handleConfigDigitalIn: config_digital_in oid=%c pin=%u pull=%c
func handleConfigDigitalIn(data *[]byte) error {
	args, err := decodeArgs(data, 3)
	if err != nil {
		return err
	}
	din := &DigitalIn{
		OID:  uint8(args[0]),
		Pin:  GPIOPin(args[1]),
		Pull: Pull(args[2]),
	}
	if err := configureInput(din.Pin, din.Pull); err != nil {
		DebugPrintln("[GPIO] config_digital_in pin=" + utoa(args[1]) + ": " + err.Error())
		return err
	}
	digitalInputs[din.OID] = din
	return nil
}

// handleQueryDigitalIn: query_digital_in oid=%c
func handleQueryDigitalIn(data *[]byte) error {
	oid, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	din, ok := digitalInputs[uint8(oid)]
	if !ok {
		return nil
	}
	level, err := MustGPIO().GetPin(din.Pin)
	if err != nil {
		return err
	}
	SendResponse("digital_in_state", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, uint32(din.OID))
		protocol.EncodeVLQUint(output, boolToUint(level))
	})
	return nil
}

// handleConfigGPIOPort: config_gpio_port port=%c output=%c pull=%c
func handleConfigGPIOPort(data *[]byte) error {
	args, err := decodeArgs(data, 3)
	if err != nil {
		return err
	}
	pd, err := PortAccess()
	if err != nil {
		return err
	}
	return pd.ConfigurePort(uint8(args[0]), args[1] != 0, Pull(args[2]))
}

// handleSetGPIOPort: set_gpio_port port=%c value=%hu
func handleSetGPIOPort(data *[]byte) error {
	args, err := decodeArgs(data, 2)
	if err != nil {
		return err
	}
	pd, err := PortAccess()
	if err != nil {
		return err
	}
	return pd.WritePort(uint8(args[0]), uint16(args[1]))
}

// handleQueryGPIOPort: query_gpio_port port=%c
func handleQueryGPIOPort(data *[]byte) error {
	port, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	pd, err := PortAccess()
	if err != nil {
		return err
	}
	value, err := pd.ReadPort(uint8(port))
	if err != nil {
		return err
	}
	SendResponse("gpio_port_state", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, port)
		protocol.EncodeVLQUint(output, uint32(value))
	})
	return nil
}

func resetDigitalIn() {
	digitalInputs = make(map[uint8]*DigitalIn)
}

func boolToUint(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

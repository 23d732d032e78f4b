// Package stm32h5 adapts the STM32H5 GPIO register driver to the core
// HAL. Pins are numbered port*16 + pin, so PA0 is 0, PB3 is 19 and PH15
// is 127.
package stm32h5

import (
	"errors"

	"stm32io/core"
	"stm32io/gpio"
)

var (
	ErrInvalidPin  = errors.New("stm32h5: pin out of range")
	ErrInvalidPort = errors.New("stm32h5: port not implemented")
)

// NumPins is the size of the flat pin space, including unimplemented ports.
const NumPins = 8 * gpio.PinCount

// GPIODriver implements core.GPIODriver and core.PortDriver on the
// on-chip GPIO banks. Unlike the register driver it reports bad pins
// instead of ignoring them.
type GPIODriver struct{}

func NewGPIODriver() *GPIODriver {
	return &GPIODriver{}
}

// Split returns the port and pin of a flat pin number.
func Split(pin core.GPIOPin) (gpio.Port, gpio.Pin, error) {
	if pin >= NumPins {
		return 0, 0, ErrInvalidPin
	}
	port := gpio.Port(pin / gpio.PinCount)
	if !port.Implemented() {
		return 0, 0, ErrInvalidPort
	}
	return port, gpio.Pin(pin % gpio.PinCount), nil
}

// Join is the inverse of Split.
func Join(port gpio.Port, pin gpio.Pin) core.GPIOPin {
	return core.GPIOPin(port)*gpio.PinCount + core.GPIOPin(pin)
}

func (d *GPIODriver) configure(pin core.GPIOPin, dir gpio.Direction, pull gpio.Pull) error {
	port, p, err := Split(pin)
	if err != nil {
		core.DebugPrintln("[GPIO] configure " + PinName(pin) + ": " + err.Error())
		return err
	}
	gpio.Configure(port, gpio.Single(p), dir, pull)
	return nil
}

func (d *GPIODriver) ConfigureOutput(pin core.GPIOPin) error {
	return d.configure(pin, gpio.Output, gpio.PullNone)
}

func (d *GPIODriver) ConfigureInput(pin core.GPIOPin) error {
	return d.configure(pin, gpio.Input, gpio.PullNone)
}

func (d *GPIODriver) ConfigureInputPullUp(pin core.GPIOPin) error {
	return d.configure(pin, gpio.Input, gpio.PullUp)
}

func (d *GPIODriver) ConfigureInputPullDown(pin core.GPIOPin) error {
	return d.configure(pin, gpio.Input, gpio.PullDown)
}

func (d *GPIODriver) SetPin(pin core.GPIOPin, value bool) error {
	port, p, err := Split(pin)
	if err != nil {
		return err
	}
	gpio.WritePin(port, p, value)
	return nil
}

func (d *GPIODriver) GetPin(pin core.GPIOPin) (bool, error) {
	port, p, err := Split(pin)
	if err != nil {
		return false, err
	}
	return gpio.ReadPin(port, p), nil
}

func (d *GPIODriver) ReadPin(pin core.GPIOPin) bool {
	v, _ := d.GetPin(pin)
	return v
}

func checkPort(port uint8) (gpio.Port, error) {
	p := gpio.Port(port)
	if !p.Implemented() {
		core.DebugPrintln("[GPIO] port " + p.String() + ": not implemented")
		return 0, ErrInvalidPort
	}
	return p, nil
}

// ConfigurePort sets all sixteen pins of a port in one pass.
func (d *GPIODriver) ConfigurePort(port uint8, output bool, pull core.Pull) error {
	p, err := checkPort(port)
	if err != nil {
		return err
	}
	dir := gpio.Input
	if output {
		dir = gpio.Output
	}
	gpio.Configure(p, gpio.All, dir, halPull(pull))
	return nil
}

func (d *GPIODriver) WritePort(port uint8, value uint16) error {
	p, err := checkPort(port)
	if err != nil {
		return err
	}
	gpio.WritePort(p, value)
	return nil
}

func (d *GPIODriver) ReadPort(port uint8) (uint16, error) {
	p, err := checkPort(port)
	if err != nil {
		return 0, err
	}
	return gpio.ReadPort(p), nil
}

func halPull(p core.Pull) gpio.Pull {
	switch p {
	case core.PullUp:
		return gpio.PullUp
	case core.PullDown:
		return gpio.PullDown
	default:
		return gpio.PullNone
	}
}

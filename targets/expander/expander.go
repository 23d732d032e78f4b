// Package expander drives an MCP23017 16-pin I2C port expander through the
// core GPIO HAL. Its pins occupy a block of the flat pin space starting at
// a configurable base, so they can follow the on-chip pins.
package expander

import (
	"errors"

	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/mcp23017"

	"stm32io/core"
)

// DefaultAddress is the bus address with A0-A2 tied low.
const DefaultAddress = 0x20

// PinCount is the number of pins on one expander.
const PinCount = mcp23017.PinCount

var (
	// ErrUnsupportedPull is returned for pull-down; the chip only has pull-ups.
	ErrUnsupportedPull = errors.New("expander: pull-down not supported")
	ErrInvalidPin      = errors.New("expander: pin out of range")
	ErrInvalidPort     = errors.New("expander: wrong port")
	ErrUnalignedBase   = errors.New("expander: base must be a multiple of 16")
)

// Expander implements core.GPIODriver and core.PortDriver for one chip.
type Expander struct {
	dev  *mcp23017.Device
	base core.GPIOPin
}

// New opens the chip at addr on bus. base is the flat pin number of GPA0
// and must be port aligned so the chip answers to exactly one port number.
func New(bus drivers.I2C, addr uint8, base core.GPIOPin) (*Expander, error) {
	if base%PinCount != 0 {
		return nil, ErrUnalignedBase
	}
	dev, err := mcp23017.NewI2C(bus, addr)
	if err != nil {
		return nil, err
	}
	return &Expander{dev: dev, base: base}, nil
}

// Base returns the flat pin number of the first expander pin.
func (e *Expander) Base() core.GPIOPin {
	return e.base
}

// Port returns the port number the expander answers to.
func (e *Expander) Port() uint8 {
	return uint8(e.base / PinCount)
}

// Contains reports whether pin belongs to this expander.
func (e *Expander) Contains(pin core.GPIOPin) bool {
	return pin >= e.base && pin < e.base+PinCount
}

func (e *Expander) pin(pin core.GPIOPin) (mcp23017.Pin, error) {
	if !e.Contains(pin) {
		return mcp23017.Pin{}, ErrInvalidPin
	}
	return e.dev.Pin(int(pin - e.base)), nil
}

func (e *Expander) setMode(pin core.GPIOPin, mode mcp23017.PinMode) error {
	p, err := e.pin(pin)
	if err != nil {
		core.DebugPrintln("[EXP] configure: " + err.Error())
		return err
	}
	return p.SetMode(mode)
}

func (e *Expander) ConfigureOutput(pin core.GPIOPin) error {
	return e.setMode(pin, mcp23017.Output)
}

func (e *Expander) ConfigureInput(pin core.GPIOPin) error {
	return e.setMode(pin, mcp23017.Input)
}

func (e *Expander) ConfigureInputPullUp(pin core.GPIOPin) error {
	return e.setMode(pin, mcp23017.Input|mcp23017.Pullup)
}

func (e *Expander) ConfigureInputPullDown(pin core.GPIOPin) error {
	return ErrUnsupportedPull
}

func (e *Expander) SetPin(pin core.GPIOPin, value bool) error {
	p, err := e.pin(pin)
	if err != nil {
		return err
	}
	return p.Set(value)
}

func (e *Expander) GetPin(pin core.GPIOPin) (bool, error) {
	p, err := e.pin(pin)
	if err != nil {
		return false, err
	}
	return p.Get()
}

func (e *Expander) ReadPin(pin core.GPIOPin) bool {
	v, _ := e.GetPin(pin)
	return v
}

func (e *Expander) checkPort(port uint8) error {
	if port != e.Port() {
		return ErrInvalidPort
	}
	return nil
}

// ConfigurePort sets the mode of all sixteen pins at once.
func (e *Expander) ConfigurePort(port uint8, output bool, pull core.Pull) error {
	if err := e.checkPort(port); err != nil {
		return err
	}
	mode := mcp23017.Input
	switch {
	case output:
		mode = mcp23017.Output
	case pull == core.PullUp:
		mode |= mcp23017.Pullup
	case pull == core.PullDown:
		return ErrUnsupportedPull
	}
	// A single entry is applied to every pin.
	return e.dev.SetModes([]mcp23017.PinMode{mode})
}

func (e *Expander) WritePort(port uint8, value uint16) error {
	if err := e.checkPort(port); err != nil {
		return err
	}
	return e.dev.SetPins(mcp23017.Pins(value), ^mcp23017.Pins(0))
}

func (e *Expander) ReadPort(port uint8) (uint16, error) {
	if err := e.checkPort(port); err != nil {
		return 0, err
	}
	pins, err := e.dev.GetPins()
	return uint16(pins), err
}

// AppendPinNames extends a pin enumeration with GPA0..GPB7 at the
// expander's pin numbers.
func (e *Expander) AppendPinNames(names []string) []string {
	end := int(e.base) + PinCount
	for len(names) < end {
		names = append(names, "")
	}
	for i := 0; i < PinCount; i++ {
		bank := "GPA"
		if i >= 8 {
			bank = "GPB"
		}
		names[int(e.base)+i] = bank + string(rune('0'+i%8))
	}
	return names
}

// Package gpio drives the STM32H5 GPIO register banks directly.
//
// Each port owns a bank of twelve 32-bit registers. The driver computes the
// bank address from the port index and performs the bit-field updates needed
// to set pin direction, output type, slew rate and pull resistors, plus
// atomic single-pin writes through BSRR and whole-port reads and writes.
//
// Invalid addresses (unimplemented port, pin index >= 16) are ignored: the
// call touches no register and returns the zero value. Callers that need
// strict validation check Valid first.
//
// Nothing here takes a lock. WritePin is atomic in hardware; the single-pin
// path of Configure is a read-modify-write and concurrent Configure calls on
// the same port must be serialized by the caller.
package gpio

// Port identifies one GPIO port (GPIOA = 0, GPIOB = 1, ...).
type Port uint8

const (
	PortA Port = iota
	PortB
	PortC
	PortD
	PortE
	PortF
	PortG
	PortH

	portSlots = 8
)

// implementedPorts has a bit set for every port with a bank on STM32H503.
const implementedPorts uint8 = 1<<PortA | 1<<PortB | 1<<PortC | 1<<PortD | 1<<PortH

// Implemented reports whether the port has a register bank on this chip.
func (p Port) Implemented() bool {
	return p < portSlots && implementedPorts&(uint8(1)<<p) != 0
}

// String returns "A".."H", or "?" for values past the last port slot.
func (p Port) String() string {
	if p >= portSlots {
		return "?"
	}
	return string(rune('A' + p))
}

// PinCount is the number of pins per port.
const PinCount = 16

// Pin is a pin index within a port.
type Pin uint8

// Pins selects the pins a configuration applies to: every pin of the port
// (All) or exactly one (Single).
type Pins struct {
	pin Pin
	all bool
}

// All selects all sixteen pins of a port.
var All = Pins{all: true}

// Single selects one pin.
func Single(p Pin) Pins {
	return Pins{pin: p}
}

// IsAll reports whether the selector is the bulk selector.
func (s Pins) IsAll() bool { return s.all }

// Pin returns the selected pin. It is meaningless when IsAll is true.
func (s Pins) Pin() Pin { return s.pin }

// Direction is the pin direction.
type Direction uint8

const (
	Input Direction = iota
	Output
)

// Pull is the pull resistor setting. The values are the PUPDR field codes.
type Pull uint8

const (
	PullNone Pull = iota
	PullUp
	PullDown
)

// Valid reports whether (port, pins) addresses implemented hardware.
func Valid(port Port, pins Pins) bool {
	if !port.Implemented() {
		return false
	}
	return pins.all || pins.pin < PinCount
}

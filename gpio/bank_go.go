//go:build !tinygo

package gpio

import "sync/atomic"

// Register32 is the host stand-in for a memory-mapped register. Loads and
// stores go through sync/atomic so none are cached, merged or dropped.
type Register32 struct {
	Reg uint32
}

// Get loads the register.
func (r *Register32) Get() uint32 {
	return atomic.LoadUint32(&r.Reg)
}

// Set stores value into the register.
func (r *Register32) Set(value uint32) {
	atomic.StoreUint32(&r.Reg, value)
}

// SetBits reads the register, ORs in value and writes it back.
func (r *Register32) SetBits(value uint32) {
	r.Set(r.Get() | value)
}

// ClearBits reads the register, clears the bits in value and writes it back.
func (r *Register32) ClearBits(value uint32) {
	r.Set(r.Get() &^ value)
}

// HasBits reports whether any bit of value is set in the register.
func (r *Register32) HasBits(value uint32) bool {
	return r.Get()&value > 0
}

// ReplaceBits replaces the field mask<<pos with value<<pos in one
// read-modify-write.
func (r *Register32) ReplaceBits(value uint32, mask uint32, pos uint8) {
	r.Set(r.Get()&^(mask<<pos) | value<<pos)
}

// registerFile backs every port slot on the host so the driver can be
// exercised without hardware. Unimplemented slots are never handed out.
var registerFile [portSlots]Bank

var banks = [portSlots]*Bank{
	&registerFile[PortA],
	&registerFile[PortB],
	&registerFile[PortC],
	&registerFile[PortD],
	&registerFile[PortE],
	&registerFile[PortF],
	&registerFile[PortG],
	&registerFile[PortH],
}

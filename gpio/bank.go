package gpio

import "unsafe"

// Register bank addresses (RM0492, GPIO section).
const (
	bankBase   = 0x42020000
	bankStride = 0x400
	bankSize   = 0x34
)

// Bank is the register layout of one GPIO port. Field order and widths are
// fixed by hardware.
type Bank struct {
	MODER   Register32 // 0x00 mode, 2 bits/pin
	OTYPER  Register32 // 0x04 output type, 1 bit/pin
	OSPEEDR Register32 // 0x08 output speed, 2 bits/pin
	PUPDR   Register32 // 0x0C pull-up/pull-down, 2 bits/pin
	IDR     Register32 // 0x10 input data
	ODR     Register32 // 0x14 output data
	BSRR    Register32 // 0x18 bit set (low half) / reset (high half)
	LCKR    Register32 // 0x1C configuration lock
	AFR     [2]Register32
	BRR     Register32 // 0x28 bit reset
	HSLVR   Register32 // 0x2C high-speed low-voltage
	SECCFGR Register32 // 0x30 secure configuration
}

// The layout must be exactly bankSize bytes on every build.
var (
	_ [bankSize - unsafe.Sizeof(Bank{})]struct{}
	_ [unsafe.Sizeof(Bank{}) - bankSize]struct{}
)

// bankAddr returns the bus address of a port's register bank.
func bankAddr(p Port) uintptr {
	return bankBase + uintptr(p)*bankStride
}

// BankOf returns the register bank of an implemented port, or nil.
func BankOf(p Port) *Bank {
	if !p.Implemented() {
		return nil
	}
	return banks[p]
}

// MODER field codes.
const (
	ModeInput     = 0
	ModeOutput    = 1
	ModeAlternate = 2
	ModeAnalog    = 3
)

// OTYPER field codes.
const (
	OutputPushPull  = 0
	OutputOpenDrain = 1
)

// OSPEEDR field codes.
const (
	SpeedLow      = 0
	SpeedMedium   = 1
	SpeedHigh     = 2
	SpeedVeryHigh = 3
)

// Field widths and masks.
const (
	mask1 = 0x1
	mask2 = 0x3

	// lanes2 replicates a 2-bit code into all sixteen lanes of a register.
	lanes2 = 0x55555555
	// lanes1 replicates a 1-bit code into all sixteen lanes.
	lanes1 = 0x0000FFFF

	portMask   = 0xFFFF
	resetShift = 16
)

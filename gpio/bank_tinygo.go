//go:build tinygo

package gpio

import (
	"runtime/volatile"
	"unsafe"
)

// Register32 is a memory-mapped register accessed with volatile loads and
// stores.
type Register32 = volatile.Register32

// banks overlays the hardware register banks, indexed by port.
var banks = [portSlots]*Bank{
	(*Bank)(unsafe.Pointer(bankAddr(PortA))),
	(*Bank)(unsafe.Pointer(bankAddr(PortB))),
	(*Bank)(unsafe.Pointer(bankAddr(PortC))),
	(*Bank)(unsafe.Pointer(bankAddr(PortD))),
	(*Bank)(unsafe.Pointer(bankAddr(PortE))),
	(*Bank)(unsafe.Pointer(bankAddr(PortF))),
	(*Bank)(unsafe.Pointer(bankAddr(PortG))),
	(*Bank)(unsafe.Pointer(bankAddr(PortH))),
}

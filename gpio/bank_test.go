package gpio

import (
	"testing"
	"unsafe"
)

func TestBankLayout(t *testing.T) {
	var b Bank
	offsets := []struct {
		name string
		got  uintptr
		want uintptr
	}{
		{"MODER", unsafe.Offsetof(b.MODER), 0x00},
		{"OTYPER", unsafe.Offsetof(b.OTYPER), 0x04},
		{"OSPEEDR", unsafe.Offsetof(b.OSPEEDR), 0x08},
		{"PUPDR", unsafe.Offsetof(b.PUPDR), 0x0C},
		{"IDR", unsafe.Offsetof(b.IDR), 0x10},
		{"ODR", unsafe.Offsetof(b.ODR), 0x14},
		{"BSRR", unsafe.Offsetof(b.BSRR), 0x18},
		{"LCKR", unsafe.Offsetof(b.LCKR), 0x1C},
		{"AFR", unsafe.Offsetof(b.AFR), 0x20},
		{"BRR", unsafe.Offsetof(b.BRR), 0x28},
		{"HSLVR", unsafe.Offsetof(b.HSLVR), 0x2C},
		{"SECCFGR", unsafe.Offsetof(b.SECCFGR), 0x30},
	}
	for _, o := range offsets {
		if o.got != o.want {
			t.Errorf("%s at offset %#x, want %#x", o.name, o.got, o.want)
		}
	}
}

func TestBankAddr(t *testing.T) {
	cases := map[Port]uintptr{
		PortA: 0x42020000,
		PortB: 0x42020400,
		PortD: 0x42020C00,
		PortH: 0x42021C00,
	}
	for p, want := range cases {
		if got := bankAddr(p); got != want {
			t.Errorf("bankAddr(%s) = %#x, want %#x", p, got, want)
		}
	}
}

func TestBankOf(t *testing.T) {
	for p := Port(0); p < portSlots; p++ {
		b := BankOf(p)
		if p.Implemented() && b == nil {
			t.Errorf("BankOf(%s) = nil for implemented port", p)
		}
		if !p.Implemented() && b != nil {
			t.Errorf("BankOf(%s) returned a bank for unimplemented port", p)
		}
	}
	if BankOf(PortA) == BankOf(PortB) {
		t.Error("ports A and B share a bank")
	}
}

func TestRegisterReplaceBits(t *testing.T) {
	var r Register32
	r.Set(0xFFFFFFFF)
	r.ReplaceBits(0x1, 0x3, 4)
	if got := r.Get(); got != 0xFFFFFFDF {
		t.Errorf("ReplaceBits = %08X, want FFFFFFDF", got)
	}
}

func TestPortString(t *testing.T) {
	if PortA.String() != "A" || PortH.String() != "H" || Port(9).String() != "?" {
		t.Errorf("unexpected port names: %s %s %s", PortA, PortH, Port(9))
	}
}

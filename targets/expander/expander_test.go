package expander

import (
	"errors"
	"testing"

	"tinygo.org/x/drivers/tester"

	"stm32io/core"
	"stm32io/targets/stm32h5"
)

// MCP23017 register addresses, port A; port B is the next address.
const (
	regIODIR = 0x00
	regIOPOL = 0x02
	regGPPU  = 0x0C
	regGPIO  = 0x12
)

const testBase = 128

var (
	_ core.GPIODriver = (*Expander)(nil)
	_ core.PortDriver = (*Expander)(nil)
	_ core.GPIODriver = (*Mux)(nil)
	_ core.PortDriver = (*Mux)(nil)
)

func newChip(t *testing.T) (*Expander, *tester.I2CDevice8) {
	t.Helper()
	bus := tester.NewI2CBus(t)
	fdev := bus.NewDevice(DefaultAddress)
	// Every pin is an input after reset.
	fdev.Registers[regIODIR] = 0xff
	fdev.Registers[regIODIR+1] = 0xff
	e, err := New(bus, DefaultAddress, testBase)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e, fdev
}

func TestNewUnalignedBase(t *testing.T) {
	bus := tester.NewI2CBus(t)
	bus.NewDevice(DefaultAddress)
	if _, err := New(bus, DefaultAddress, 130); !errors.Is(err, ErrUnalignedBase) {
		t.Errorf("New with base 130 = %v, want ErrUnalignedBase", err)
	}
}

func TestNewBadAddress(t *testing.T) {
	bus := tester.NewI2CBus(t)
	if _, err := New(bus, 0x50, testBase); err == nil {
		t.Error("New accepted an address outside the chip's range")
	}
}

func TestPortNumber(t *testing.T) {
	e, _ := newChip(t)
	if e.Port() != 8 {
		t.Errorf("Port() = %d, want 8", e.Port())
	}
	if e.Base() != testBase {
		t.Errorf("Base() = %d", e.Base())
	}
	if !e.Contains(testBase) || !e.Contains(testBase+15) || e.Contains(testBase+16) || e.Contains(testBase-1) {
		t.Error("Contains has the wrong range")
	}
}

func TestConfigureOutputAndSet(t *testing.T) {
	e, fdev := newChip(t)

	if err := e.ConfigureOutput(testBase + 2); err != nil {
		t.Fatalf("ConfigureOutput: %v", err)
	}
	if got := fdev.Registers[regIODIR]; got != 0b11111011 {
		t.Errorf("IODIRA = %08b, want 11111011", got)
	}
	if got := fdev.Registers[regIODIR+1]; got != 0xff {
		t.Errorf("IODIRB = %08b, want all inputs", got)
	}

	if err := e.SetPin(testBase+2, true); err != nil {
		t.Fatalf("SetPin: %v", err)
	}
	if got := fdev.Registers[regGPIO]; got != 0b100 {
		t.Errorf("GPIOA = %08b, want 00000100", got)
	}
	if v, err := e.GetPin(testBase + 2); err != nil || !v {
		t.Errorf("GetPin = %v, %v, want true", v, err)
	}

	if err := e.SetPin(testBase+2, false); err != nil {
		t.Fatalf("SetPin low: %v", err)
	}
	if got := fdev.Registers[regGPIO]; got != 0 {
		t.Errorf("GPIOA = %08b after low, want 0", got)
	}
	if e.ReadPin(testBase + 2) {
		t.Error("ReadPin = true after driving low")
	}
}

func TestConfigureInputPulls(t *testing.T) {
	e, fdev := newChip(t)

	if err := e.ConfigureInputPullUp(testBase + 9); err != nil {
		t.Fatalf("ConfigureInputPullUp: %v", err)
	}
	if got := fdev.Registers[regGPPU+1]; got != 0b10 {
		t.Errorf("GPPUB = %08b, want 00000010", got)
	}
	if got := fdev.Registers[regIODIR+1]; got != 0xff {
		t.Errorf("IODIRB = %08b, want all inputs", got)
	}

	if err := e.ConfigureInput(testBase + 9); err != nil {
		t.Fatalf("ConfigureInput: %v", err)
	}
	if got := fdev.Registers[regGPPU+1]; got != 0 {
		t.Errorf("GPPUB = %08b after floating input, want 0", got)
	}
	if got := fdev.Registers[regIOPOL] | fdev.Registers[regIOPOL+1]; got != 0 {
		t.Errorf("IOPOL = %08b, inputs must not be inverted", got)
	}
}

func TestPullDownUnsupported(t *testing.T) {
	e, fdev := newChip(t)
	before := fdev.Registers

	if err := e.ConfigureInputPullDown(testBase); !errors.Is(err, ErrUnsupportedPull) {
		t.Errorf("ConfigureInputPullDown = %v, want ErrUnsupportedPull", err)
	}
	if err := e.ConfigurePort(e.Port(), false, core.PullDown); !errors.Is(err, ErrUnsupportedPull) {
		t.Errorf("ConfigurePort pull-down = %v, want ErrUnsupportedPull", err)
	}
	if fdev.Registers != before {
		t.Error("registers changed by a rejected pull-down")
	}
}

func TestInvalidPin(t *testing.T) {
	e, _ := newChip(t)

	for _, pin := range []core.GPIOPin{0, testBase - 1, testBase + 16} {
		if err := e.SetPin(pin, true); !errors.Is(err, ErrInvalidPin) {
			t.Errorf("SetPin(%d) = %v, want ErrInvalidPin", pin, err)
		}
		if err := e.ConfigureOutput(pin); !errors.Is(err, ErrInvalidPin) {
			t.Errorf("ConfigureOutput(%d) = %v, want ErrInvalidPin", pin, err)
		}
		if _, err := e.GetPin(pin); !errors.Is(err, ErrInvalidPin) {
			t.Errorf("GetPin(%d) = %v, want ErrInvalidPin", pin, err)
		}
	}
}

func TestPortAccess(t *testing.T) {
	e, fdev := newChip(t)
	port := e.Port()

	if err := e.ConfigurePort(port, true, core.PullNone); err != nil {
		t.Fatalf("ConfigurePort output: %v", err)
	}
	if fdev.Registers[regIODIR] != 0 || fdev.Registers[regIODIR+1] != 0 {
		t.Errorf("IODIR = %02X %02X, want all outputs", fdev.Registers[regIODIR], fdev.Registers[regIODIR+1])
	}

	if err := e.WritePort(port, 0xA55A); err != nil {
		t.Fatalf("WritePort: %v", err)
	}
	if fdev.Registers[regGPIO] != 0x5A || fdev.Registers[regGPIO+1] != 0xA5 {
		t.Errorf("GPIO = %02X %02X, want 5A A5", fdev.Registers[regGPIO], fdev.Registers[regGPIO+1])
	}

	fdev.Registers[regGPIO] = 0x34
	fdev.Registers[regGPIO+1] = 0x12
	if v, err := e.ReadPort(port); err != nil || v != 0x1234 {
		t.Errorf("ReadPort = %04X, %v, want 1234", v, err)
	}

	if err := e.ConfigurePort(port, false, core.PullUp); err != nil {
		t.Fatalf("ConfigurePort pull-up: %v", err)
	}
	if fdev.Registers[regIODIR] != 0xff || fdev.Registers[regGPPU] != 0xff || fdev.Registers[regGPPU+1] != 0xff {
		t.Error("ConfigurePort pull-up did not make every pin a pulled-up input")
	}
}

func TestWrongPort(t *testing.T) {
	e, _ := newChip(t)
	if err := e.WritePort(0, 1); !errors.Is(err, ErrInvalidPort) {
		t.Errorf("WritePort(0) = %v, want ErrInvalidPort", err)
	}
	if _, err := e.ReadPort(9); !errors.Is(err, ErrInvalidPort) {
		t.Errorf("ReadPort(9) = %v, want ErrInvalidPort", err)
	}
	if err := e.ConfigurePort(7, true, core.PullNone); !errors.Is(err, ErrInvalidPort) {
		t.Errorf("ConfigurePort(7) = %v, want ErrInvalidPort", err)
	}
}

func TestBusError(t *testing.T) {
	e, fdev := newChip(t)
	fdev.Err = errors.New("nack")

	if err := e.SetPin(testBase, true); err == nil {
		t.Error("SetPin succeeded on a failing bus")
	}
	if _, err := e.GetPin(testBase); err == nil {
		t.Error("GetPin succeeded on a failing bus")
	}
	if e.ReadPin(testBase) {
		t.Error("ReadPin = true on a failing bus")
	}
}

func TestAppendPinNames(t *testing.T) {
	e, _ := newChip(t)
	names := e.AppendPinNames(stm32h5.PinNames())

	if len(names) != testBase+PinCount {
		t.Fatalf("len = %d, want %d", len(names), testBase+PinCount)
	}
	want := map[int]string{0: "PA0", 127: "PH15", 128: "GPA0", 135: "GPA7", 136: "GPB0", 143: "GPB7"}
	for i, name := range want {
		if names[i] != name {
			t.Errorf("names[%d] = %q, want %q", i, names[i], name)
		}
	}
}

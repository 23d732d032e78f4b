package expander

import (
	"errors"
	"testing"

	"tinygo.org/x/drivers/tester"

	"stm32io/core"
	"stm32io/gpio"
	"stm32io/targets/stm32h5"
)

func clearPortA(t *testing.T) *gpio.Bank {
	t.Helper()
	b := gpio.BankOf(gpio.PortA)
	*b = gpio.Bank{}
	return b
}

// pinOnly hides the port methods of a driver.
type pinOnly struct{ core.GPIODriver }

func newMux(t *testing.T) (*Mux, *Expander, *tester.I2CDevice8) {
	t.Helper()
	e, fdev := newChip(t)
	m := NewMux().
		Add(0, stm32h5.NumPins, stm32h5.NewGPIODriver()).
		Add(e.Base(), PinCount, e)
	return m, e, fdev
}

func TestMuxRoutesPins(t *testing.T) {
	bank := clearPortA(t)
	m, _, fdev := newMux(t)

	if err := m.SetPin(5, true); err != nil {
		t.Fatalf("SetPin on-chip: %v", err)
	}
	if got := bank.BSRR.Get(); got != 1<<5 {
		t.Errorf("PortA BSRR = %08X, want %08X", got, uint32(1<<5))
	}

	if err := m.ConfigureOutput(testBase + 1); err != nil {
		t.Fatalf("ConfigureOutput expander: %v", err)
	}
	if err := m.SetPin(testBase+1, true); err != nil {
		t.Fatalf("SetPin expander: %v", err)
	}
	if got := fdev.Registers[regGPIO]; got != 0b10 {
		t.Errorf("expander GPIOA = %08b, want 00000010", got)
	}
	if !m.ReadPin(testBase + 1) {
		t.Error("ReadPin through the mux = false")
	}

	if err := m.SetPin(testBase+PinCount, true); !errors.Is(err, ErrNoRoute) {
		t.Errorf("SetPin past the last route = %v, want ErrNoRoute", err)
	}
}

func TestMuxPullsFollowTheBackend(t *testing.T) {
	bank := clearPortA(t)
	m, e, _ := newMux(t)

	if err := m.ConfigureInputPullDown(3); err != nil {
		t.Fatalf("pull-down on-chip: %v", err)
	}
	if got := bank.PUPDR.Get() >> 6 & 3; got != uint32(gpio.PullDown) {
		t.Errorf("PA3 pull field = %d, want %d", got, gpio.PullDown)
	}
	if err := m.ConfigureInputPullDown(e.Base()); !errors.Is(err, ErrUnsupportedPull) {
		t.Errorf("pull-down on expander = %v, want ErrUnsupportedPull", err)
	}
	if err := m.ConfigureInputPullUp(e.Base()); err != nil {
		t.Errorf("pull-up on expander: %v", err)
	}
	if err := m.ConfigureInput(e.Base()); err != nil {
		t.Errorf("floating input on expander: %v", err)
	}
}

func TestMuxRoutesPorts(t *testing.T) {
	bank := clearPortA(t)
	m, e, _ := newMux(t)

	if err := m.WritePort(0, 0x00FF); err != nil {
		t.Fatalf("WritePort(0): %v", err)
	}
	if got := bank.ODR.Get(); got != 0x00FF {
		t.Errorf("PortA ODR = %08X, want 000000FF", got)
	}

	if err := m.ConfigurePort(e.Port(), true, core.PullNone); err != nil {
		t.Fatalf("ConfigurePort expander: %v", err)
	}
	if err := m.WritePort(e.Port(), 0x0101); err != nil {
		t.Fatalf("WritePort expander: %v", err)
	}
	if v, err := m.ReadPort(e.Port()); err != nil || v != 0x0101 {
		t.Errorf("ReadPort expander = %04X, %v, want 0101", v, err)
	}

	if _, err := m.ReadPort(4); !errors.Is(err, stm32h5.ErrInvalidPort) {
		t.Errorf("ReadPort(4) = %v, want stm32h5.ErrInvalidPort", err)
	}
	if err := m.WritePort(9, 0); !errors.Is(err, ErrNoRoute) {
		t.Errorf("WritePort(9) = %v, want ErrNoRoute", err)
	}
}

func TestMuxWithoutPortDriver(t *testing.T) {
	m := NewMux().Add(0, stm32h5.NumPins, pinOnly{stm32h5.NewGPIODriver()})
	if err := m.WritePort(0, 1); !errors.Is(err, core.ErrNoPortDriver) {
		t.Errorf("WritePort = %v, want core.ErrNoPortDriver", err)
	}
	if err := m.SetPin(0, true); err != nil {
		t.Errorf("SetPin through a pin-only driver: %v", err)
	}
}

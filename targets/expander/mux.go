package expander

import (
	"errors"

	"stm32io/core"
)

var ErrNoRoute = errors.New("gpio mux: no driver for pin")

type route struct {
	first, count core.GPIOPin
	drv          core.GPIODriver
}

// Mux presents several drivers as one. Each owns a contiguous block of
// pin numbers; port numbers are routed by the block holding pin 0 of the
// port. Drivers receive pin and port numbers unchanged.
type Mux struct {
	routes []route
}

func NewMux() *Mux {
	return &Mux{}
}

// Add routes pins [first, first+count) to drv. Earlier routes win on
// overlap.
func (m *Mux) Add(first, count core.GPIOPin, drv core.GPIODriver) *Mux {
	m.routes = append(m.routes, route{first: first, count: count, drv: drv})
	return m
}

func (m *Mux) lookup(pin core.GPIOPin) (core.GPIODriver, error) {
	for _, r := range m.routes {
		if pin >= r.first && pin-r.first < r.count {
			return r.drv, nil
		}
	}
	return nil, ErrNoRoute
}

func (m *Mux) ConfigureOutput(pin core.GPIOPin) error {
	d, err := m.lookup(pin)
	if err != nil {
		return err
	}
	return d.ConfigureOutput(pin)
}

func (m *Mux) ConfigureInput(pin core.GPIOPin) error {
	d, err := m.lookup(pin)
	if err != nil {
		return err
	}
	return d.ConfigureInput(pin)
}

func (m *Mux) ConfigureInputPullUp(pin core.GPIOPin) error {
	d, err := m.lookup(pin)
	if err != nil {
		return err
	}
	return d.ConfigureInputPullUp(pin)
}

func (m *Mux) ConfigureInputPullDown(pin core.GPIOPin) error {
	d, err := m.lookup(pin)
	if err != nil {
		return err
	}
	return d.ConfigureInputPullDown(pin)
}

func (m *Mux) SetPin(pin core.GPIOPin, value bool) error {
	d, err := m.lookup(pin)
	if err != nil {
		return err
	}
	return d.SetPin(pin, value)
}

func (m *Mux) GetPin(pin core.GPIOPin) (bool, error) {
	d, err := m.lookup(pin)
	if err != nil {
		return false, err
	}
	return d.GetPin(pin)
}

func (m *Mux) ReadPin(pin core.GPIOPin) bool {
	v, _ := m.GetPin(pin)
	return v
}

func (m *Mux) portDriver(port uint8) (core.PortDriver, error) {
	d, err := m.lookup(core.GPIOPin(port) * PinCount)
	if err != nil {
		return nil, err
	}
	pd, ok := d.(core.PortDriver)
	if !ok {
		return nil, core.ErrNoPortDriver
	}
	return pd, nil
}

func (m *Mux) ConfigurePort(port uint8, output bool, pull core.Pull) error {
	pd, err := m.portDriver(port)
	if err != nil {
		return err
	}
	return pd.ConfigurePort(port, output, pull)
}

func (m *Mux) WritePort(port uint8, value uint16) error {
	pd, err := m.portDriver(port)
	if err != nil {
		return err
	}
	return pd.WritePort(port, value)
}

func (m *Mux) ReadPort(port uint8) (uint16, error) {
	pd, err := m.portDriver(port)
	if err != nil {
		return 0, err
	}
	return pd.ReadPort(port)
}

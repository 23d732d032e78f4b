package mcu

import (
	"fmt"
	"strconv"
	"strings"
)

// Pull is the bias code sent with input configuration.
type Pull uint8

const (
	PullNone Pull = iota
	PullUp
	PullDown
)

// ParsePull accepts "", "none", "up" and "down".
func ParsePull(s string) (Pull, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return PullNone, nil
	case "up":
		return PullUp, nil
	case "down":
		return PullDown, nil
	}
	return 0, fmt.Errorf("bad pull %q (want up, down or none)", s)
}

// ResolvePin maps a pin name from the "pin" enumeration, e.g. "PA5", to its
// number. Plain numbers are passed through.
func (m *MCU) ResolvePin(name string) (uint32, error) {
	if n, err := strconv.ParseUint(name, 10, 32); err == nil {
		return uint32(n), nil
	}
	if m.dictionary == nil {
		return 0, ErrNoDictionary
	}
	pins := m.dictionary.Enumerations["pin"]
	if v, ok := pins[name]; ok {
		return uint32(v), nil
	}
	if v, ok := pins[strings.ToUpper(name)]; ok {
		return uint32(v), nil
	}
	return 0, fmt.Errorf("%w: %s", ErrUnknownPin, name)
}

// ParsePort accepts a port letter ("A".."H") or a port number.
func ParsePort(s string) (uint8, error) {
	if len(s) == 1 {
		c := s[0] | 0x20
		if c >= 'a' && c <= 'h' {
			return c - 'a', nil
		}
	}
	n, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("bad port %q", s)
	}
	return uint8(n), nil
}

func (m *MCU) allocateOID() uint8 {
	oid := m.nextOID
	m.nextOID++
	return oid
}

func boolArg(v bool) uint32 {
	if v {
		return 1
	}
	return 0
}

// ConfigureOutput makes pin a digital output driven to value and returns
// the object id used to drive it afterwards.
func (m *MCU) ConfigureOutput(pin string, value bool) (uint8, error) {
	n, err := m.ResolvePin(pin)
	if err != nil {
		return 0, err
	}
	oid := m.allocateOID()
	// default_value=0, max_duration=0: no safety timeout.
	if err := m.Send("config_digital_out", uint32(oid), n, boolArg(value), 0, 0); err != nil {
		return 0, err
	}
	return oid, nil
}

// SetPin drives a configured output.
func (m *MCU) SetPin(oid uint8, value bool) error {
	return m.Send("update_digital_out", uint32(oid), boolArg(value))
}

// ConfigureInput makes pin a digital input with the given bias and returns
// its object id.
func (m *MCU) ConfigureInput(pin string, pull Pull) (uint8, error) {
	n, err := m.ResolvePin(pin)
	if err != nil {
		return 0, err
	}
	oid := m.allocateOID()
	if err := m.Send("config_digital_in", uint32(oid), n, uint32(pull)); err != nil {
		return 0, err
	}
	return oid, nil
}

// QueryPin reads a configured input.
func (m *MCU) QueryPin(oid uint8) (bool, error) {
	params, err := m.Query("digital_in_state", func(p map[string]uint32) bool {
		return p["oid"] == uint32(oid)
	}, "query_digital_in", uint32(oid))
	if err != nil {
		return false, err
	}
	return params["value"] != 0, nil
}

// ConfigurePort sets all sixteen pins of port to the same direction and
// bias.
func (m *MCU) ConfigurePort(port uint8, output bool, pull Pull) error {
	return m.Send("config_gpio_port", uint32(port), boolArg(output), uint32(pull))
}

// WritePort sets the output latch of a whole port.
func (m *MCU) WritePort(port uint8, value uint16) error {
	return m.Send("set_gpio_port", uint32(port), uint32(value))
}

// QueryPort reads the input levels of a whole port.
func (m *MCU) QueryPort(port uint8) (uint16, error) {
	params, err := m.Query("gpio_port_state", func(p map[string]uint32) bool {
		return p["port"] == uint32(port)
	}, "query_gpio_port", uint32(port))
	if err != nil {
		return 0, err
	}
	return uint16(params["value"]), nil
}

// GetClock returns the MCU's 32-bit clock.
func (m *MCU) GetClock() (uint32, error) {
	params, err := m.Query("clock", nil, "get_clock")
	if err != nil {
		return 0, err
	}
	return params["clock"], nil
}

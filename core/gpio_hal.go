package core

import "errors"

// GPIOPin identifies a hardware GPIO pin number as it appears on the wire.
// Targets define how the number maps onto their banks.
type GPIOPin uint32

// Pull selects the bias applied to an input pin.
type Pull uint8

const (
	PullNone Pull = iota
	PullUp
	PullDown
)

var ErrNoPortDriver = errors.New("gpio: driver has no port access")

// GPIODriver is the abstract GPIO interface that core code uses.
// Platform-specific implementations handle actual hardware control.
type GPIODriver interface {
	// ConfigureOutput configures a pin as a push-pull digital output
	ConfigureOutput(pin GPIOPin) error

	// ConfigureInput configures a pin as a floating digital input
	ConfigureInput(pin GPIOPin) error

	ConfigureInputPullUp(pin GPIOPin) error
	ConfigureInputPullDown(pin GPIOPin) error

	// SetPin drives the pin high (true) or low (false)
	SetPin(pin GPIOPin, value bool) error

	// GetPin reads the current pin level
	GetPin(pin GPIOPin) (bool, error)

	// ReadPin is GetPin without the error, false on failure
	ReadPin(pin GPIOPin) bool
}

// PortDriver is implemented by drivers that can move a whole 16-pin port
// in one register access.
type PortDriver interface {
	ConfigurePort(port uint8, output bool, pull Pull) error
	WritePort(port uint8, value uint16) error
	ReadPort(port uint8) (uint16, error)
}

// Global singleton used by core code.
var gpioDriver GPIODriver

// SetGPIODriver is called by target-specific code to register its driver.
func SetGPIODriver(d GPIODriver) {
	gpioDriver = d
}

// MustGPIO returns the configured driver or panics if missing.
func MustGPIO() GPIODriver {
	if gpioDriver == nil {
		panic("GPIO driver not configured")
	}
	return gpioDriver
}

// PortAccess returns the registered driver's port interface.
func PortAccess() (PortDriver, error) {
	if pd, ok := MustGPIO().(PortDriver); ok {
		return pd, nil
	}
	return nil, ErrNoPortDriver
}

// configureInput applies the requested bias through the HAL.
func configureInput(pin GPIOPin, pull Pull) error {
	drv := MustGPIO()
	switch pull {
	case PullUp:
		return drv.ConfigureInputPullUp(pin)
	case PullDown:
		return drv.ConfigureInputPullDown(pin)
	default:
		return drv.ConfigureInput(pin)
	}
}

// Package serial opens the link to the MCU.
package serial

import "io"

// DefaultBaud is the UART rate the firmware configures.
const DefaultBaud = 250000

// Port is an open link. Tests substitute one end of a net.Pipe.
type Port interface {
	io.ReadWriteCloser

	// Flush pushes out anything the driver still buffers.
	Flush() error
}

// Config selects the device and line settings.
type Config struct {
	// Device path, e.g. "/dev/ttyUSB0" or "COM3".
	Device string

	Baud int

	// ReadTimeout in milliseconds; 0 blocks.
	ReadTimeout int
}

// DefaultConfig returns the settings the firmware expects on device.
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        DefaultBaud,
		ReadTimeout: 100,
	}
}

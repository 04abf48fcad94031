package serial

import (
	"io"
	"net"
)

// Port represents a serial port interface
// This abstraction allows for different implementations:
// - Native serial (using github.com/tarm/serial)
// - In-memory pipes (sim mode and tests)
type Port interface {
	io.ReadWriteCloser

	// Flush flushes any buffered data
	Flush() error
}

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/ttyACM0", "COM3")
	Device string

	// Baud rate (USB CDC ignores this)
	Baud int

	// Read timeout in milliseconds (0 = blocking)
	ReadTimeout int
}

// DefaultConfig returns the configuration for a picoservo board
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        115200,
		ReadTimeout: 100,
	}
}

// pipePort is a Port over one end of an in-memory pipe
type pipePort struct {
	net.Conn
}

func (p pipePort) Flush() error { return nil }

// Pipe returns two connected in-memory ports. Bytes written to one are
// read from the other.
func Pipe() (Port, Port) {
	a, b := net.Pipe()
	return pipePort{a}, pipePort{b}
}

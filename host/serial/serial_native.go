//go:build !wasm

package serial

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/tarm/serial"
)

// ttyPort is a Port backed by an OS serial device
type ttyPort struct {
	*serial.Port
	device string
}

// Open opens the device named in cfg. A nil cfg is an error.
func Open(cfg *Config) (Port, error) {
	if cfg == nil {
		return nil, errors.New("serial: nil config")
	}

	p, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Device,
		Baud:        cfg.Baud,
		ReadTimeout: time.Duration(cfg.ReadTimeout) * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Device, err)
	}
	return &ttyPort{Port: p, device: cfg.Device}, nil
}

// Read returns 0, nil when the read timeout expires with nothing received
func (p *ttyPort) Read(b []byte) (int, error) {
	n, err := p.Port.Read(b)
	if n == 0 && errors.Is(err, io.EOF) {
		return 0, nil
	}
	return n, err
}

func (p *ttyPort) String() string { return p.device }

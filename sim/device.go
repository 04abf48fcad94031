package sim

import (
	"errors"
	"io"
	"net"
	"os"

	"picoservo/core"
	"picoservo/protocol"
)

// Device runs the firmware command loop in process: frames read from a
// stream go through a protocol.Transport into a core.Controller driving
// a Backend, and acks and responses are written back.
type Device struct {
	backend    *Backend
	controller *core.Controller
	transport  *protocol.Transport
	output     *protocol.ScratchOutput
	input      *protocol.FifoBuffer
}

// NewDevice wires a controller and transport to backend
func NewDevice(backend *Backend) *Device {
	d := &Device{
		backend: backend,
		output:  protocol.NewScratchOutput(),
		input:   protocol.NewFifoBuffer(256),
	}
	d.controller = core.NewController(backend, nil)
	d.transport = protocol.NewTransport(d.output, d.controller.HandleCommand)
	d.controller.SetResponseSender(d.transport.SendCommand)
	d.transport.SetResetCallback(d.controller.Reset)
	return d
}

// Backend returns the simulated PWM block
func (d *Device) Backend() *Backend {
	return d.backend
}

// Controller returns the device's controller
func (d *Device) Controller() *core.Controller {
	return d.controller
}

// Serve processes conn until it is closed. A closed stream returns nil.
func (d *Device) Serve(conn io.ReadWriter) error {
	buf := make([]byte, 128)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			d.input.Write(buf[:n])
			d.transport.Receive(d.input)
			if werr := d.flush(conn); werr != nil {
				return closedOK(werr)
			}
		}
		if err != nil {
			return closedOK(err)
		}
	}
}

func (d *Device) flush(w io.Writer) error {
	res := d.output.Result()
	if len(res) == 0 {
		return nil
	}
	out := append([]byte(nil), res...)
	d.output.Reset()
	_, err := w.Write(out)
	return err
}

func closedOK(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, net.ErrClosed) || errors.Is(err, os.ErrClosed) {
		return nil
	}
	return err
}

package mcu

import (
	"errors"
	"fmt"
	"io"
	"time"

	"picoservo/core"
	"picoservo/host/serial"
	"picoservo/protocol"
)

// DeviceError is an error_response sent by the device
type DeviceError struct {
	OID  uint8
	Code uint8
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("device error on oid %d: %s (code %d)", e.OID, protocol.ErrorCodeName(e.Code), e.Code)
}

// State is the decoded pwm_state response
type State struct {
	OID     uint8
	Pin     uint32
	Slice   uint32
	Ticks   uint16
	Enabled bool
}

// MCU represents a connection to a picoservo board
type MCU struct {
	// Transport layer
	transport *protocol.HostTransport

	// Connection state
	connected bool

	// How long Query waits for pwm_state after the ack
	responseTimeout time.Duration
}

// NewMCU creates a new MCU instance (not yet connected)
func NewMCU() *MCU {
	return &MCU{
		responseTimeout: time.Second,
	}
}

// Connect connects to an MCU via serial port
func (m *MCU) Connect(device string) error {
	return m.ConnectWithConfig(serial.DefaultConfig(device))
}

// ConnectWithConfig connects to an MCU with a custom serial config
func (m *MCU) ConnectWithConfig(cfg *serial.Config) error {
	port, err := serial.Open(cfg)
	if err != nil {
		return fmt.Errorf("failed to open serial port: %w", err)
	}

	m.Attach(port)

	// Give MCU time to initialize (if it just powered on)
	time.Sleep(100 * time.Millisecond)

	return nil
}

// Attach uses an already open stream, such as a serial.Pipe end
func (m *MCU) Attach(port io.ReadWriteCloser) {
	m.transport = protocol.NewHostTransport(port)
	m.connected = true
}

// Close closes the connection to the MCU
func (m *MCU) Close() error {
	if m.transport != nil {
		if err := m.transport.Close(); err != nil {
			return err
		}
	}
	m.connected = false
	return nil
}

// IsConnected returns whether the MCU is connected
func (m *MCU) IsConnected() bool {
	return m.connected
}

// ConfigPWM configures pin as a raw PWM output under oid.
// A divider of 0 selects the device default.
func (m *MCU) ConfigPWM(oid uint8, pin uint32, divider float32) error {
	if divider < 0 {
		return fmt.Errorf("clock divider must be positive, got %v", divider)
	}
	div := uint32(divider*protocol.DividerScale + 0.5)
	_, err := m.exchange(protocol.CmdConfigPWM, 0, uint32(oid), pin, div)
	return err
}

// ConfigServo configures pin as a servo under oid.
// Zero calibration fields select the device defaults.
func (m *MCU) ConfigServo(oid uint8, pin uint32, cal core.ServoCalibration) error {
	_, err := m.exchange(protocol.CmdConfigServo, 0, uint32(oid), pin,
		uint32(cal.StartTicks), uint32(cal.EndTicks), cal.MaxDegrees)
	return err
}

// SetTicks sets the high-tick count of an output
func (m *MCU) SetTicks(oid uint8, ticks uint16) error {
	_, err := m.exchange(protocol.CmdSetPWMTicks, 0, uint32(oid), uint32(ticks))
	return err
}

// SetDuty sets the duty cycle of an output in percent
func (m *MCU) SetDuty(oid uint8, percent float32) error {
	if percent < 0 {
		return fmt.Errorf("duty cycle must be positive, got %v", percent)
	}
	centi := uint32(percent*protocol.DutyScale + 0.5)
	_, err := m.exchange(protocol.CmdSetPWMDuty, 0, uint32(oid), centi)
	return err
}

// SetEnabled starts or stops the slice driving an output
func (m *MCU) SetEnabled(oid uint8, enabled bool) error {
	var v uint32
	if enabled {
		v = 1
	}
	_, err := m.exchange(protocol.CmdSetPWMEnable, 0, uint32(oid), v)
	return err
}

// SetAngle turns a servo
func (m *MCU) SetAngle(oid uint8, degrees uint32) error {
	_, err := m.exchange(protocol.CmdSetServoAngle, 0, uint32(oid), degrees)
	return err
}

// Release frees an object on the device
func (m *MCU) Release(oid uint8) error {
	_, err := m.exchange(protocol.CmdReleaseOID, 0, uint32(oid))
	return err
}

// Query reads back an object's pin, slice and output state
func (m *MCU) Query(oid uint8) (State, error) {
	payload, err := m.exchange(protocol.CmdQueryPWM, protocol.CmdPWMState, uint32(oid))
	if err != nil {
		return State{}, err
	}

	var v [5]uint32
	for i := range v {
		if v[i], err = protocol.DecodeVLQUint(&payload); err != nil {
			return State{}, fmt.Errorf("failed to decode pwm_state: %w", err)
		}
	}
	return State{
		OID:     uint8(v[0]),
		Pin:     v[1],
		Slice:   v[2],
		Ticks:   uint16(v[3]),
		Enabled: v[4] != 0,
	}, nil
}

// exchange sends one command and waits for its ack. Responses the device
// framed before the ack are already queued: an error_response becomes a
// *DeviceError, and a response with ID want has its arguments returned.
// want 0 means no response is expected.
func (m *MCU) exchange(cmdID uint16, want uint16, args ...uint32) ([]byte, error) {
	if !m.connected {
		return nil, fmt.Errorf("not connected to MCU")
	}

	// Drop anything left over from an earlier command
	for {
		if _, ok := m.transport.PollResponse(); !ok {
			break
		}
	}

	err := m.transport.SendCommand(cmdID, func(output protocol.OutputBuffer) {
		for _, a := range args {
			protocol.EncodeVLQUint(output, a)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to send command %d: %w", cmdID, err)
	}

	var found []byte
	for {
		resp, ok := m.transport.PollResponse()
		if !ok {
			break
		}
		payload, derr := m.classify(resp, want)
		if derr != nil {
			return nil, derr
		}
		if payload != nil {
			found = payload
		}
	}

	if want != 0 && found == nil {
		resp, err := m.transport.ReceiveResponse(m.responseTimeout)
		if err != nil {
			return nil, fmt.Errorf("failed to receive response: %w", err)
		}
		payload, derr := m.classify(resp, want)
		if derr != nil {
			return nil, derr
		}
		if payload == nil {
			return nil, errors.New("unexpected response from device")
		}
		found = payload
	}
	return found, nil
}

// classify decodes a response. It returns the arguments of a want response,
// a *DeviceError for error_response, and nil, nil for anything else.
func (m *MCU) classify(resp protocol.Message, want uint16) ([]byte, error) {
	payload := resp.Payload
	id, err := protocol.DecodeVLQUint(&payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode response command ID: %w", err)
	}

	switch {
	case uint16(id) == protocol.CmdErrorResponse:
		oid, err1 := protocol.DecodeVLQUint(&payload)
		code, err2 := protocol.DecodeVLQUint(&payload)
		if err1 != nil || err2 != nil {
			return nil, fmt.Errorf("failed to decode error_response")
		}
		return nil, &DeviceError{OID: uint8(oid), Code: uint8(code)}
	case want != 0 && uint16(id) == want:
		if payload == nil {
			payload = []byte{}
		}
		return payload, nil
	}
	return nil, nil
}

package mcu

import (
	"errors"
	"testing"

	"picoservo/core"
	"picoservo/host/serial"
	"picoservo/protocol"
	"picoservo/sim"
)

// newSimMCU connects an MCU to an in-process device on a sim.Backend
func newSimMCU(t *testing.T) (*MCU, *sim.Backend) {
	t.Helper()

	hostPort, devicePort := serial.Pipe()
	backend := sim.NewBackend()
	go sim.NewDevice(backend).Serve(devicePort)

	m := NewMCU()
	m.Attach(hostPort)
	t.Cleanup(func() {
		m.Close()
		devicePort.Close()
	})
	return m, backend
}

func TestMCUServo(t *testing.T) {
	m, backend := newSimMCU(t)

	if err := m.ConfigServo(1, 2, core.ServoCalibration{}); err != nil {
		t.Fatalf("ConfigServo failed: %v", err)
	}
	if err := m.SetAngle(1, 45); err != nil {
		t.Fatalf("SetAngle failed: %v", err)
	}
	if backend.Level(2) != 3050 {
		t.Errorf("Level(2) = %d, want 3050", backend.Level(2))
	}

	state, err := m.Query(1)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	want := State{OID: 1, Pin: 2, Slice: 1, Ticks: 3050, Enabled: true}
	if state != want {
		t.Errorf("Query = %+v, want %+v", state, want)
	}
}

func TestMCUPWMOutput(t *testing.T) {
	m, backend := newSimMCU(t)

	if err := m.ConfigPWM(3, 8, 0); err != nil {
		t.Fatalf("ConfigPWM failed: %v", err)
	}
	if err := m.SetDuty(3, 50); err != nil {
		t.Fatalf("SetDuty failed: %v", err)
	}
	if backend.Level(8) != 32767 {
		t.Errorf("Level(8) = %d, want 32767", backend.Level(8))
	}

	if err := m.SetTicks(3, 1000); err != nil {
		t.Fatalf("SetTicks failed: %v", err)
	}
	if err := m.SetEnabled(3, false); err != nil {
		t.Fatalf("SetEnabled failed: %v", err)
	}
	if backend.Enabled(4) {
		t.Error("Slice 4 still enabled")
	}

	state, err := m.Query(3)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if state.Ticks != 1000 || state.Enabled {
		t.Errorf("Query = %+v, want ticks 1000 disabled", state)
	}

	if err := m.Release(3); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if _, err := m.Query(3); err == nil {
		t.Error("Query on released oid succeeded")
	}
}

func TestMCUCustomDivider(t *testing.T) {
	m, backend := newSimMCU(t)

	if err := m.ConfigPWM(1, 0, core.DefaultClockDivider); err != nil {
		t.Fatalf("ConfigPWM failed: %v", err)
	}
	if d := backend.Divider(0); d < 38.1475 || d > 38.1477 {
		t.Errorf("Divider(0) = %v, want 38.1476", d)
	}
}

func TestMCUDeviceErrors(t *testing.T) {
	m, _ := newSimMCU(t)

	err := m.SetAngle(9, 90)
	var devErr *DeviceError
	if !errors.As(err, &devErr) {
		t.Fatalf("Expected DeviceError, got %v", err)
	}
	if devErr.OID != 9 || devErr.Code != protocol.ErrCodeUnknownOID {
		t.Errorf("DeviceError = %+v, want oid 9 unknown oid", devErr)
	}

	if err := m.ConfigServo(1, 2, core.ServoCalibration{}); err != nil {
		t.Fatalf("ConfigServo failed: %v", err)
	}
	err = m.ConfigPWM(2, 3, 20)
	if !errors.As(err, &devErr) || devErr.Code != protocol.ErrCodeSliceConflict {
		t.Errorf("Expected slice conflict, got %v", err)
	}

	// The link keeps working after an error
	if err := m.SetAngle(1, 180); err != nil {
		t.Errorf("SetAngle after error failed: %v", err)
	}
}

func TestMCUNotConnected(t *testing.T) {
	m := NewMCU()
	if err := m.SetAngle(1, 90); err == nil {
		t.Error("Expected error when not connected")
	}
	if m.IsConnected() {
		t.Error("New MCU reports connected")
	}
}

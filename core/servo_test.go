package core

import (
	"errors"
	"testing"
)

func TestDegreesToTicks(t *testing.T) {
	cal := DefaultServoCalibration()

	tests := []struct {
		degrees uint32
		want    uint16
	}{
		{0, 1400},
		{45, 3050},
		{90, 4700},
		{180, 8000},
		{200, 8000}, // Clamped
	}

	for _, tt := range tests {
		if got := DegreesToTicks(tt.degrees, cal); got != tt.want {
			t.Errorf("DegreesToTicks(%d) = %d, want %d", tt.degrees, got, tt.want)
		}
	}
}

func TestDegreesToTicksFullRange(t *testing.T) {
	cal := DefaultServoCalibration()

	prev := uint16(0)
	for d := uint32(0); d <= HalfTurnDegrees; d++ {
		want := uint16(ServoStartTicks + d*(ServoEndTicks-ServoStartTicks)/HalfTurnDegrees)
		got := DegreesToTicks(d, cal)
		if got != want {
			t.Errorf("DegreesToTicks(%d) = %d, want %d", d, got, want)
		}
		if got < prev {
			t.Errorf("DegreesToTicks not monotonic at %d degrees", d)
		}
		prev = got
	}
}

func TestDegreesToTicksCustomCalibration(t *testing.T) {
	cal := ServoCalibration{StartTicks: 2000, EndTicks: 6000, MaxDegrees: 270}

	if got := DegreesToTicks(135, cal); got != 4000 {
		t.Errorf("DegreesToTicks(135) = %d, want 4000", got)
	}
	if got := DegreesToTicks(0, ServoCalibration{StartTicks: 1500}); got != 1500 {
		t.Errorf("Zero max degrees should give the start ticks, got %d", got)
	}
}

func TestServoCalibrationValidate(t *testing.T) {
	tests := []struct {
		name    string
		cal     ServoCalibration
		wantErr bool
	}{
		{"default", DefaultServoCalibration(), false},
		{"zero max degrees", ServoCalibration{StartTicks: 1400, EndTicks: 8000}, true},
		{"end below start", ServoCalibration{StartTicks: 8000, EndTicks: 1400, MaxDegrees: 180}, true},
		{"equal endpoints", ServoCalibration{StartTicks: 5000, EndTicks: 5000, MaxDegrees: 180}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cal.Validate()
			if tt.wantErr && !errors.Is(err, ErrInvalidInput) {
				t.Errorf("Expected ErrInvalidInput, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}

func TestServoSetRotation(t *testing.T) {
	backend := newFakeBackend()

	servo, err := NewServo(backend, NewSliceRegistry(), 2, DefaultServoCalibration())
	if err != nil {
		t.Fatalf("NewServo failed: %v", err)
	}

	if backend.dividers[1] != DefaultClockDivider {
		t.Errorf("Servo slice divider = %v, want %v", backend.dividers[1], DefaultClockDivider)
	}
	if !backend.enabled[1] {
		t.Error("Servo slice not enabled")
	}

	servo.SetRotation(90)
	if backend.levels[2] != 4700 {
		t.Errorf("Level at 90 degrees = %d, want 4700", backend.levels[2])
	}
	if servo.Rotation() != 90 {
		t.Errorf("Rotation() = %d, want 90", servo.Rotation())
	}

	servo.SetRotation(360)
	if backend.levels[2] != 8000 {
		t.Errorf("Level at 360 degrees = %d, want 8000", backend.levels[2])
	}
	if servo.Rotation() != 180 {
		t.Errorf("Rotation() after clamp = %d, want 180", servo.Rotation())
	}
}

func TestNewServoRejectsBadCalibration(t *testing.T) {
	backend := newFakeBackend()
	cal := ServoCalibration{StartTicks: 8000, EndTicks: 1400, MaxDegrees: 180}

	if _, err := NewServo(backend, NewSliceRegistry(), 2, cal); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("Expected ErrInvalidInput, got %v", err)
	}
	if backend.assigned[2] {
		t.Error("Rejected servo still claimed its pin")
	}
}

func TestServoClose(t *testing.T) {
	backend := newFakeBackend()
	registry := NewSliceRegistry()

	servo, err := NewServo(backend, registry, 6, DefaultServoCalibration())
	if err != nil {
		t.Fatalf("NewServo failed: %v", err)
	}
	servo.Close()

	if backend.enabled[3] {
		t.Error("Slice 3 still enabled after servo closed")
	}
	if registry.Holders(3) != 0 {
		t.Errorf("Expected slice 3 free, got %d holders", registry.Holders(3))
	}
}

func TestServoRotationAfterClose(t *testing.T) {
	backend := newFakeBackend()

	servo, err := NewServo(backend, NewSliceRegistry(), 6, DefaultServoCalibration())
	if err != nil {
		t.Fatalf("NewServo failed: %v", err)
	}
	servo.SetRotation(45)
	servo.Close()
	servo.SetRotation(90)

	if servo.Rotation() != 45 {
		t.Errorf("Rotation() after Close = %d, want 45", servo.Rotation())
	}
	if backend.levels[6] != 3050 {
		t.Errorf("Pin 6 level = %d, want 3050", backend.levels[6])
	}
}

package core

import "testing"

func TestUtoa(t *testing.T) {
	tests := []struct {
		n    uint32
		want string
	}{
		{0, "0"},
		{7, "7"},
		{65535, "65535"},
		{4294967295, "4294967295"},
	}
	for _, tt := range tests {
		if got := utoa(tt.n); got != tt.want {
			t.Errorf("utoa(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}

	if got := itoa(-42); got != "-42" {
		t.Errorf("itoa(-42) = %q", got)
	}
}

func TestFtoa(t *testing.T) {
	tests := []struct {
		f        float32
		decimals int
		want     string
	}{
		{38.1476, 4, "38.1476"},
		{50, 2, "50.00"},
		{0.5, 1, "0.5"},
		{12.75, 0, "13"},
		{-1.25, 2, "-1.25"},
	}
	for _, tt := range tests {
		if got := ftoa(tt.f, tt.decimals); got != tt.want {
			t.Errorf("ftoa(%v, %d) = %q, want %q", tt.f, tt.decimals, got, tt.want)
		}
	}
}

func TestTraceLines(t *testing.T) {
	var lines []string
	SetDebugWriter(func(s string) { lines = append(lines, s) })
	SetDebugEnabled(true)
	defer func() {
		SetDebugEnabled(false)
		SetDebugWriter(func(string) {})
	}()

	backend := newFakeBackend()
	servo, err := NewServo(backend, NewSliceRegistry(), 2, DefaultServoCalibration())
	if err != nil {
		t.Fatalf("NewServo failed: %v", err)
	}
	servo.SetRotation(90)

	want := []string{
		"pwm: slice=1 divider=38.1476",
		"servo: pin=2 degrees=90",
		"pwm: pin=2 ticks=4700",
	}
	if len(lines) != len(want) {
		t.Fatalf("Got trace lines %q, want %q", lines, want)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("Line %d = %q, want %q", i, lines[i], want[i])
		}
	}

	SetDebugEnabled(false)
	servo.SetRotation(10)
	if len(lines) != len(want) {
		t.Error("Trace output written while debug disabled")
	}
}

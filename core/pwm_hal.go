package core

// PWMPin identifies a hardware pin capable of PWM output
type PWMPin uint32

// PWMSlice identifies a hardware PWM timer unit.
// On RP2040 each slice drives two adjacent pins that share one clock divider.
type PWMSlice uint32

// RP2040Slice maps GPIO N to the slice driving it, (N >> 1) & 7
func RP2040Slice(pin PWMPin) PWMSlice {
	return PWMSlice((pin >> 1) & 7)
}

// PWMBackend is the register-level PWM interface that core code uses.
// Platform-specific implementations handle actual hardware control;
// sim.Backend provides one for host builds and tests.
type PWMBackend interface {
	// AssignPinToPWM routes the pin to the PWM function.
	// Returns an error wrapping ErrInvalidInput if the pin has no PWM output.
	AssignPinToPWM(pin PWMPin) error

	// PinToSlice returns the slice driving the pin. Must be pure.
	PinToSlice(pin PWMPin) PWMSlice

	// SetSliceClockDivider sets the divider applied to the reference clock
	SetSliceClockDivider(slice PWMSlice, divider float32)

	// SetSliceEnabled starts or stops the slice counter
	SetSliceEnabled(slice PWMSlice, enabled bool)

	// SetPinLevel sets the number of ticks per wrap the pin stays high
	SetPinLevel(pin PWMPin, ticks uint16)
}

// Global singleton used by firmware targets.
var pwmBackend PWMBackend

// SetPWMBackend is called by target-specific code to register its backend.
func SetPWMBackend(b PWMBackend) {
	pwmBackend = b
}

// MustPWM returns the configured backend or panics if missing.
func MustPWM() PWMBackend {
	if pwmBackend == nil {
		panic("PWM backend not configured")
	}
	return pwmBackend
}

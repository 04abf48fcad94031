// PWM (Pulse Width Modulation) channel control
// Drives one pin at a fixed 50Hz wrap frequency through a PWMBackend
package core

import "math"

const (
	// PWMTopTicks is the counter value at which a slice wraps (16-bit counter)
	PWMTopTicks = 65535

	// PWMFrequencyHz is the fixed output frequency, one servo frame
	PWMFrequencyHz = 50

	// ReferenceClockHz is the RP2040 default system clock feeding the PWM slices
	ReferenceClockHz = 125000000

	// DefaultClockDivider brings the 125MHz reference down to a 50Hz wrap:
	// 125MHz / (65535 * 50Hz) = 38.1476
	// It must be re-derived (see ClockDividerFor) for any other reference clock.
	DefaultClockDivider float32 = 38.1476
)

// PWMConfig holds the per-channel settings applied at construction
type PWMConfig struct {
	// ClockDivider divides the reference clock; 0 selects DefaultClockDivider
	ClockDivider float32
}

// DefaultPWMConfig returns the 50Hz configuration for a 125MHz reference clock
func DefaultPWMConfig() PWMConfig {
	return PWMConfig{ClockDivider: DefaultClockDivider}
}

// ClockDividerFor returns the divider that makes a 65535-tick wrap run at hz
// from a reference clock of refHz.
func ClockDividerFor(refHz, hz uint32) float32 {
	if hz == 0 {
		return 0
	}
	return float32(float64(refHz) / (float64(PWMTopTicks) * float64(hz)))
}

// DutyToTicks converts a duty-cycle percentage to a high-tick count.
// The result truncates: DutyToTicks(50) == 32767.
// Only percentages in [0, 100] give defined results; SetDutyCycle enforces that.
func DutyToTicks(percentage float32) uint16 {
	ticks := percentage / 100.0 * PWMTopTicks
	return uint16(ticks)
}

// MaxClockDivider is the largest divider the 8.4 fixed-point register holds
const MaxClockDivider float32 = 255 + 15.0/16

// ValidClockDivider reports whether divider can be programmed as is.
// Dividers outside 1..MaxClockDivider would be clamped by EncodeClockDivider.
func ValidClockDivider(divider float32) bool {
	return divider >= 1 && divider <= MaxClockDivider
}

// EncodeClockDivider converts a divider to the RP2040 DIV register layout:
// integer part in bits 11:4, sixteenths in bits 3:0. The fraction is
// truncated as the pico-sdk does. The result is clamped to 1.0..255.9375.
func EncodeClockDivider(divider float32) uint32 {
	if !(divider >= 1) {
		return 1 << 4
	}
	if divider >= 256 {
		return 0xFF<<4 | 0x0F
	}
	whole := uint32(divider)
	frac := uint32((divider - float32(whole)) * 16)
	return whole<<4 | frac&0x0F
}

// defaultSliceRegistry is shared by channels created without an explicit registry
var defaultSliceRegistry = NewSliceRegistry()

// DefaultSliceRegistry returns the registry used when none is supplied
func DefaultSliceRegistry() *SliceRegistry {
	return defaultSliceRegistry
}

// HardwarePWM represents a pin configured for PWM output.
// The enabled state is not cached; it lives in the backend.
type HardwarePWM struct {
	pin      PWMPin
	slice    PWMSlice
	divider  float32
	backend  PWMBackend
	registry *SliceRegistry
	closed   bool
}

// NewHardwarePWM claims pin for PWM output, sets its slice to the configured
// clock divider and enables the slice.
// A nil registry selects DefaultSliceRegistry.
func NewHardwarePWM(backend PWMBackend, registry *SliceRegistry, pin PWMPin, cfg PWMConfig) (*HardwarePWM, error) {
	if backend == nil {
		return nil, invalidInput("nil PWM backend")
	}
	if registry == nil {
		registry = defaultSliceRegistry
	}

	divider := cfg.ClockDivider
	if divider == 0 {
		divider = DefaultClockDivider
	}
	if !ValidClockDivider(divider) {
		return nil, invalidInput("clock divider " + ftoa(divider, 4) + " outside 1..255.9375")
	}

	if err := backend.AssignPinToPWM(pin); err != nil {
		return nil, err
	}
	slice := backend.PinToSlice(pin)

	// Claim before touching the divider so a conflict leaves the slice alone
	if err := registry.Claim(slice, pin, divider); err != nil {
		return nil, err
	}

	pwm := &HardwarePWM{
		pin:      pin,
		slice:    slice,
		divider:  divider,
		backend:  backend,
		registry: registry,
	}

	backend.SetSliceClockDivider(slice, divider)
	traceSliceDivider(slice, divider)
	pwm.Enable()

	return pwm, nil
}

// Pin returns the pin this channel drives
func (p *HardwarePWM) Pin() PWMPin {
	return p.pin
}

// Slice returns the hardware slice driving the pin
func (p *HardwarePWM) Slice() PWMSlice {
	return p.slice
}

// ClockDivider returns the divider the slice was configured with
func (p *HardwarePWM) ClockDivider() float32 {
	return p.divider
}

// SetDutyCycle sets the fraction of each period the output stays high.
// percentage must be within [0, 100].
func (p *HardwarePWM) SetDutyCycle(percentage float32) error {
	if p.closed {
		return ErrClosed
	}
	if math.IsNaN(float64(percentage)) || percentage < 0 || percentage > 100 {
		return invalidInput("duty cycle " + ftoa(percentage, 2) + "% outside 0..100")
	}
	p.SetHighTicks(DutyToTicks(percentage))
	return nil
}

// SetHighTicks sets the number of ticks per wrap the output stays high.
// The counter wraps at PWMTopTicks.
func (p *HardwarePWM) SetHighTicks(ticks uint16) {
	if p.closed {
		return
	}
	tracePinTicks(p.pin, ticks)
	p.backend.SetPinLevel(p.pin, ticks)
}

// Enable starts the slice counter
func (p *HardwarePWM) Enable() {
	if p.closed {
		return
	}
	p.backend.SetSliceEnabled(p.slice, true)
}

// Disable stops the slice counter.
// Note that this also stops the other pin sharing the slice.
func (p *HardwarePWM) Disable() {
	if p.closed {
		return
	}
	p.backend.SetSliceEnabled(p.slice, false)
}

// Close releases the pin's hold on its slice.
// The slice is disabled once no pin holds it anymore.
func (p *HardwarePWM) Close() {
	if p.closed {
		return
	}
	if p.registry.Release(p.slice, p.pin) {
		p.backend.SetSliceEnabled(p.slice, false)
	}
	p.closed = true
}

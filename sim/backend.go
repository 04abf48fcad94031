// Package sim provides an in-memory RP2040 PWM block for host builds,
// the picoservo CLI's -sim mode and tests.
package sim

import (
	"fmt"
	"sync"

	"picoservo/core"
)

const (
	// NumPins is the number of RP2040 user GPIOs (GPIO0-GPIO29)
	NumPins = 30

	// NumSlices is the number of RP2040 PWM slices
	NumSlices = 8
)

// Backend implements core.PWMBackend in memory.
// It is safe for concurrent use.
type Backend struct {
	mu sync.Mutex

	refHz    uint32
	assigned [NumPins]bool
	levels   [NumPins]uint16
	writes   [NumPins][]uint16
	dividers [NumSlices]float32
	enabled  [NumSlices]bool
}

// NewBackend returns a backend clocked at core.ReferenceClockHz
func NewBackend() *Backend {
	return NewBackendWithClock(core.ReferenceClockHz)
}

// NewBackendWithClock returns a backend whose slices divide refHz
func NewBackendWithClock(refHz uint32) *Backend {
	return &Backend{refHz: refHz}
}

func (b *Backend) AssignPinToPWM(pin core.PWMPin) error {
	if pin >= NumPins {
		return fmt.Errorf("sim: gpio %d has no PWM function: %w", pin, core.ErrInvalidInput)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.assigned[pin] = true
	return nil
}

func (b *Backend) PinToSlice(pin core.PWMPin) core.PWMSlice {
	return core.RP2040Slice(pin)
}

func (b *Backend) SetSliceClockDivider(slice core.PWMSlice, divider float32) {
	if slice >= NumSlices {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dividers[slice] = divider
}

func (b *Backend) SetSliceEnabled(slice core.PWMSlice, enabled bool) {
	if slice >= NumSlices {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.enabled[slice] = enabled
}

func (b *Backend) SetPinLevel(pin core.PWMPin, ticks uint16) {
	if pin >= NumPins {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.levels[pin] = ticks
	b.writes[pin] = append(b.writes[pin], ticks)
}

// Level returns the high-tick count last written to pin
func (b *Backend) Level(pin core.PWMPin) uint16 {
	if pin >= NumPins {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.levels[pin]
}

// LevelWrites returns every level written to pin, oldest first
func (b *Backend) LevelWrites(pin core.PWMPin) []uint16 {
	if pin >= NumPins {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]uint16(nil), b.writes[pin]...)
}

// Assigned reports whether pin was routed to PWM
func (b *Backend) Assigned(pin core.PWMPin) bool {
	if pin >= NumPins {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.assigned[pin]
}

// Divider returns the clock divider set on slice
func (b *Backend) Divider(slice core.PWMSlice) float32 {
	if slice >= NumSlices {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dividers[slice]
}

// Enabled reports whether slice is counting
func (b *Backend) Enabled(slice core.PWMSlice) bool {
	if slice >= NumSlices {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.enabled[slice]
}

// FrequencyHz returns the wrap frequency slice produces, or 0 if no
// divider has been set
func (b *Backend) FrequencyHz(slice core.PWMSlice) float64 {
	div := b.Divider(slice)
	if div <= 0 {
		return 0
	}
	return float64(b.refHz) / (float64(div) * core.PWMTopTicks)
}

// DutyPercent returns the fraction of each period pin is high
func (b *Backend) DutyPercent(pin core.PWMPin) float64 {
	return float64(b.Level(pin)) / core.PWMTopTicks * 100
}

package core

import "sync"

// dividerTolerance is the largest divider difference treated as agreement.
// The RP2040 divider register only holds 4 fractional bits.
const dividerTolerance = 1e-4

// sliceClaim tracks the divider a slice runs at and the pins holding it
type sliceClaim struct {
	divider float32
	pins    map[PWMPin]struct{}
}

// SliceRegistry records which pins hold each PWM slice and the clock
// divider the slice was configured with. Channels sharing a slice must
// agree on the divider; the registry rejects a claim that does not.
type SliceRegistry struct {
	mu     sync.Mutex
	slices map[PWMSlice]*sliceClaim
}

// NewSliceRegistry creates an empty registry
func NewSliceRegistry() *SliceRegistry {
	return &SliceRegistry{
		slices: make(map[PWMSlice]*sliceClaim),
	}
}

// Claim registers pin on slice at the given divider.
// The first claim on a slice fixes its divider. Later claims must match it
// within dividerTolerance or ErrSliceConflict is returned. A pin has one
// holder at a time; claiming it again returns ErrPinInUse.
func (r *SliceRegistry) Claim(slice PWMSlice, pin PWMPin, divider float32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	claim, exists := r.slices[slice]
	if !exists {
		r.slices[slice] = &sliceClaim{
			divider: divider,
			pins:    map[PWMPin]struct{}{pin: {}},
		}
		return nil
	}
	if _, held := claim.pins[pin]; held {
		return pinInUse("pin " + utoa(uint32(pin)) + " on slice " + utoa(uint32(slice)))
	}

	diff := claim.divider - divider
	if diff < 0 {
		diff = -diff
	}
	if diff > dividerTolerance {
		return sliceConflict("slice " + utoa(uint32(slice)) +
			" runs at divider " + ftoa(claim.divider, 4) +
			", pin " + utoa(uint32(pin)) + " wants " + ftoa(divider, 4))
	}

	claim.pins[pin] = struct{}{}
	return nil
}

// Release drops pin's hold on slice.
// Returns true if no pins hold the slice anymore.
func (r *SliceRegistry) Release(slice PWMSlice, pin PWMPin) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	claim, exists := r.slices[slice]
	if !exists {
		return true
	}
	delete(claim.pins, pin)
	if len(claim.pins) == 0 {
		delete(r.slices, slice)
		return true
	}
	return false
}

// Divider returns the divider a slice is claimed at
func (r *SliceRegistry) Divider(slice PWMSlice) (float32, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	claim, exists := r.slices[slice]
	if !exists {
		return 0, false
	}
	return claim.divider, true
}

// Holders returns the number of pins holding a slice
func (r *SliceRegistry) Holders(slice PWMSlice) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if claim, exists := r.slices[slice]; exists {
		return len(claim.pins)
	}
	return 0
}

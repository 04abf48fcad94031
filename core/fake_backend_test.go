package core

// fakeBackend records every register-level call for assertions
type fakeBackend struct {
	assigned  map[PWMPin]bool
	dividers  map[PWMSlice]float32
	enabled   map[PWMSlice]bool
	levels    map[PWMPin]uint16
	noPWM     map[PWMPin]bool // Pins AssignPinToPWM rejects
	enableLog []bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		assigned: make(map[PWMPin]bool),
		dividers: make(map[PWMSlice]float32),
		enabled:  make(map[PWMSlice]bool),
		levels:   make(map[PWMPin]uint16),
		noPWM:    make(map[PWMPin]bool),
	}
}

func (f *fakeBackend) AssignPinToPWM(pin PWMPin) error {
	if f.noPWM[pin] {
		return invalidInput("pin " + utoa(uint32(pin)) + " has no PWM function")
	}
	f.assigned[pin] = true
	return nil
}

func (f *fakeBackend) PinToSlice(pin PWMPin) PWMSlice {
	return RP2040Slice(pin)
}

func (f *fakeBackend) SetSliceClockDivider(slice PWMSlice, divider float32) {
	f.dividers[slice] = divider
}

func (f *fakeBackend) SetSliceEnabled(slice PWMSlice, enabled bool) {
	f.enabled[slice] = enabled
	f.enableLog = append(f.enableLog, enabled)
}

func (f *fakeBackend) SetPinLevel(pin PWMPin, ticks uint16) {
	f.levels[pin] = ticks
}

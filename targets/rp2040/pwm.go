//go:build rp2040

package main

import (
	"device/rp"
	"machine"
	"runtime/volatile"
	"unsafe"

	"picoservo/core"
)

const (
	// numGPIO is the number of RP2040 user GPIOs
	numGPIO = 30

	// numSlices is the number of RP2040 PWM slices
	numSlices = 8

	// sliceStride is the distance between slice register blocks
	sliceStride = 0x14

	csrEnable = 1 << 0
)

// sliceRegs is one slice's register block (CSR, DIV, CTR, CC, TOP)
type sliceRegs struct {
	CSR volatile.Register32
	DIV volatile.Register32
	CTR volatile.Register32
	CC  volatile.Register32
	TOP volatile.Register32
}

// RP2040PWMBackend implements core.PWMBackend on the RP2040 PWM block.
// Every slice runs with TOP = 65535 in free-running mode.
type RP2040PWMBackend struct{}

// NewRP2040PWMBackend creates the RP2040 PWM backend
func NewRP2040PWMBackend() *RP2040PWMBackend {
	return &RP2040PWMBackend{}
}

func (b *RP2040PWMBackend) regs(slice core.PWMSlice) *sliceRegs {
	return (*sliceRegs)(unsafe.Add(unsafe.Pointer(rp.PWM), sliceStride*uintptr(slice)))
}

// AssignPinToPWM routes the pin's function select to PWM
func (b *RP2040PWMBackend) AssignPinToPWM(pin core.PWMPin) error {
	if pin >= numGPIO {
		return core.ErrInvalidInput
	}
	machine.Pin(pin).Configure(machine.PinConfig{Mode: machine.PinPWM})

	top := &b.regs(b.PinToSlice(pin)).TOP
	if top.Get() != core.PWMTopTicks {
		top.Set(core.PWMTopTicks)
	}
	return nil
}

// PinToSlice uses the fixed RP2040 pin to slice wiring
func (b *RP2040PWMBackend) PinToSlice(pin core.PWMPin) core.PWMSlice {
	return core.RP2040Slice(pin)
}

// SetSliceClockDivider writes the 8.4 fixed point divider
func (b *RP2040PWMBackend) SetSliceClockDivider(slice core.PWMSlice, divider float32) {
	if slice >= numSlices {
		return
	}
	b.regs(slice).DIV.Set(core.EncodeClockDivider(divider))
}

// SetSliceEnabled starts or stops the slice counter
func (b *RP2040PWMBackend) SetSliceEnabled(slice core.PWMSlice, enabled bool) {
	if slice >= numSlices {
		return
	}
	csr := &b.regs(slice).CSR
	if enabled {
		csr.SetBits(csrEnable)
	} else {
		csr.ClearBits(csrEnable)
	}
}

// SetPinLevel writes the channel compare value. Even pins use channel A
// (CC bits 15:0), odd pins channel B (CC bits 31:16).
func (b *RP2040PWMBackend) SetPinLevel(pin core.PWMPin, ticks uint16) {
	if pin >= numGPIO {
		return
	}
	cc := &b.regs(b.PinToSlice(pin)).CC
	if pin&1 == 0 {
		cc.ReplaceBits(uint32(ticks), 0xFFFF, 0)
	} else {
		cc.ReplaceBits(uint32(ticks), 0xFFFF, 16)
	}
}

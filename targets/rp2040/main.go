//go:build rp2040

package main

import (
	"machine"
	"time"

	"picoservo/core"
	"picoservo/protocol"
)

// traceEnabled routes core trace lines to UART0. It takes GPIO0/1 away
// from PWM slice 0.
const traceEnabled = false

// Writes that fail this many times in a row mean the host has gone away
const maxWriteFailures = 10

var (
	rx         *protocol.FifoBuffer
	tx         *protocol.ScratchOutput
	transport  *protocol.Transport
	controller *core.Controller

	faults uint32

	// hostGone is set after repeated write failures. The next received
	// byte starts a new session.
	hostGone      bool
	writeFailures uint32
)

func main() {
	if err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0}); err != nil {
		return
	}
	// USB CDC-ACM
	if err := machine.Serial.Configure(machine.UARTConfig{}); err != nil {
		return
	}
	InitDebugUART(traceEnabled)

	setup()
	go readLoop()

	for {
		poll()
		time.Sleep(10 * time.Microsecond)
	}
}

func setup() {
	core.SetPWMBackend(NewRP2040PWMBackend())
	controller = core.NewController(core.MustPWM(), nil)

	rx = protocol.NewFifoBuffer(256)
	tx = protocol.NewScratchOutput()

	transport = protocol.NewTransport(tx, controller.HandleCommand)
	controller.SetResponseSender(transport.SendCommand)
	transport.SetResetCallback(func() {
		rx.Reset()
		tx.Reset()
		controller.Reset()
	})
	transport.SetFlushCallback(flush)
}

// poll handles whatever the reader has queued. A panic drops the pending
// bytes instead of halting the board.
func poll() {
	defer func() {
		if r := recover(); r != nil {
			faults++
			rx.Reset()
			tx.Reset()
		}
	}()

	if rx.Available() > 0 {
		transport.Receive(rx)
	}
	if len(tx.Result()) > 0 {
		flush()
	}
}

func readLoop() {
	defer func() {
		if r := recover(); r != nil {
			faults++
			time.Sleep(100 * time.Millisecond)
			go readLoop()
		}
	}()

	for {
		for machine.Serial.Buffered() > 0 {
			b, err := machine.Serial.ReadByte()
			if err != nil {
				faults++
				break
			}
			if hostGone {
				hostGone = false
				writeFailures = 0
				transport.Reset()
			}
			if rx.Write([]byte{b}) == 0 {
				// FIFO full, let the main loop catch up
				faults++
				time.Sleep(10 * time.Millisecond)
			}
		}
		time.Sleep(100 * time.Microsecond)
	}
}

// flush sends the encoded output over USB and clears it
func flush() {
	out := tx.Result()
	for len(out) > 0 {
		n, err := machine.Serial.Write(out)
		if err != nil || n == 0 {
			writeFailures++
			if writeFailures > maxWriteFailures {
				hostGone = true
				writeFailures = 0
				tx.Reset()
				rx.Reset()
			}
			return
		}
		out = out[n:]
	}
	writeFailures = 0
	tx.Reset()
}

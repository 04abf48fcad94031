//go:build rp2040

package main

import (
	"machine"

	"picoservo/core"
)

var debugUART *machine.UART

// InitDebugUART initializes UART0 on GPIO0 (TX) and GPIO1 (RX) at 115200
// baud and routes core trace output to it. Tracing stays off unless
// enabled is set, since GPIO0/1 are also PWM slice 0.
func InitDebugUART(enabled bool) {
	if !enabled {
		return
	}

	debugUART = machine.UART0
	err := debugUART.Configure(machine.UARTConfig{
		BaudRate: 115200,
		TX:       machine.UART0_TX_PIN,
		RX:       machine.UART0_RX_PIN,
	})
	if err != nil {
		debugUART = nil
		return
	}

	core.SetDebugWriter(debugPrintln)
	core.SetDebugEnabled(true)
	core.DebugPrintln("=== picoservo debug UART ===")
}

// debugPrintln writes a line to the debug UART
func debugPrintln(s string) {
	if debugUART == nil {
		return
	}
	debugUART.Write([]byte(s))
	debugUART.Write([]byte("\r\n"))
}

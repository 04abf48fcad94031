package core

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

var (
	// debugPrintln is the global debug print function (can be set by platform code)
	debugPrintln DebugWriter = func(s string) {} // No-op by default

	// debugEnabled controls whether trace output is active
	debugEnabled bool = false
)

// SetDebugWriter sets the platform-specific debug output function
// This allows platforms to redirect debug output to UART, stderr, etc.
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

// SetDebugEnabled enables or disables debug output
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// IsDebugEnabled returns whether debug output is enabled
func IsDebugEnabled() bool {
	return debugEnabled
}

// DebugPrintln writes a debug message using the platform-specific writer
func DebugPrintln(msg string) {
	if debugEnabled && debugPrintln != nil {
		debugPrintln(msg)
	}
}

func tracePinTicks(pin PWMPin, ticks uint16) {
	if !debugEnabled {
		return
	}
	DebugPrintln("pwm: pin=" + utoa(uint32(pin)) + " ticks=" + utoa(uint32(ticks)))
}

func traceSliceDivider(slice PWMSlice, divider float32) {
	if !debugEnabled {
		return
	}
	DebugPrintln("pwm: slice=" + utoa(uint32(slice)) + " divider=" + ftoa(divider, 4))
}

func traceServoDegrees(pin PWMPin, degrees uint32) {
	if !debugEnabled {
		return
	}
	DebugPrintln("servo: pin=" + utoa(uint32(pin)) + " degrees=" + utoa(degrees))
}

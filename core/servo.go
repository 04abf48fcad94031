package core

const (
	// ServoStartTicks rotates an SG92R micro servo fully clockwise.
	// Determined experimentally; other servo models need their own values.
	ServoStartTicks = 1400

	// ServoEndTicks rotates an SG92R micro servo fully counter clockwise
	ServoEndTicks = 8000

	// HalfTurnDegrees is the travel of a standard hobby servo
	HalfTurnDegrees = 180
)

// ServoCalibration maps a servo's travel onto PWM high-tick counts
type ServoCalibration struct {
	StartTicks uint16 // Ticks at 0 degrees
	EndTicks   uint16 // Ticks at MaxDegrees
	MaxDegrees uint32 // Requested angles above this are clamped
}

// DefaultServoCalibration returns the SG92R endpoints over a half turn
func DefaultServoCalibration() ServoCalibration {
	return ServoCalibration{
		StartTicks: ServoStartTicks,
		EndTicks:   ServoEndTicks,
		MaxDegrees: HalfTurnDegrees,
	}
}

// Validate checks that the calibration describes a usable travel
func (c ServoCalibration) Validate() error {
	if c.MaxDegrees == 0 {
		return invalidInput("servo max degrees is zero")
	}
	if c.EndTicks < c.StartTicks {
		return invalidInput("servo end ticks " + utoa(uint32(c.EndTicks)) +
			" below start ticks " + utoa(uint32(c.StartTicks)))
	}
	return nil
}

// DegreesToTicks converts an angle to the high-tick count for the servo.
// Angles above cal.MaxDegrees are treated as cal.MaxDegrees.
func DegreesToTicks(degrees uint32, cal ServoCalibration) uint16 {
	if cal.MaxDegrees == 0 {
		return cal.StartTicks
	}
	if degrees > cal.MaxDegrees {
		degrees = cal.MaxDegrees
	}

	// Integer math gives the exact floor of delta * degrees / max
	delta := uint64(cal.EndTicks - cal.StartTicks)
	return cal.StartTicks + uint16(delta*uint64(degrees)/uint64(cal.MaxDegrees))
}

// Servo drives a hobby servo by holding a 50Hz pulse whose width follows
// the requested angle.
type Servo struct {
	pwm     *HardwarePWM
	cal     ServoCalibration
	degrees uint32
}

// NewServo configures pin for servo control.
// The pin is set up by NewHardwarePWM with DefaultPWMConfig.
func NewServo(backend PWMBackend, registry *SliceRegistry, pin PWMPin, cal ServoCalibration) (*Servo, error) {
	if err := cal.Validate(); err != nil {
		return nil, err
	}

	pwm, err := NewHardwarePWM(backend, registry, pin, DefaultPWMConfig())
	if err != nil {
		return nil, err
	}

	return &Servo{
		pwm: pwm,
		cal: cal,
	}, nil
}

// SetRotation turns the servo to degrees, clamped to the calibrated maximum
// A closed servo ignores the call.
func (s *Servo) SetRotation(degrees uint32) {
	if s.pwm.closed {
		return
	}
	if degrees > s.cal.MaxDegrees {
		degrees = s.cal.MaxDegrees
	}
	traceServoDegrees(s.pwm.Pin(), degrees)
	s.degrees = degrees
	s.pwm.SetHighTicks(DegreesToTicks(degrees, s.cal))
}

// Rotation returns the last commanded angle after clamping
func (s *Servo) Rotation() uint32 {
	return s.degrees
}

// Calibration returns the endpoints the servo was built with
func (s *Servo) Calibration() ServoCalibration {
	return s.cal
}

// PWM returns the channel driving the servo
func (s *Servo) PWM() *HardwarePWM {
	return s.pwm
}

// Close releases the servo's PWM channel
func (s *Servo) Close() {
	s.pwm.Close()
}

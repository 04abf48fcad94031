// Protocol command handlers for PWM outputs and servos
package core

import (
	"errors"
	"sync"

	"picoservo/protocol"
)

// ResponseSender frames a response for the host.
// protocol.Transport.SendCommand satisfies it.
type ResponseSender func(cmdID uint16, args func(output protocol.OutputBuffer))

// CommandError ties a handler failure to the object it concerned
type CommandError struct {
	OID uint8
	Err error
}

func (e *CommandError) Error() string {
	return "oid " + utoa(uint32(e.OID)) + ": " + e.Err.Error()
}

func (e *CommandError) Unwrap() error { return e.Err }

// maxOID is the largest object id; oids are one byte on the wire
const maxOID = 255

// pwmObject is one host-configured output, either a raw PWM pin or a servo
type pwmObject struct {
	pwm   *HardwarePWM
	servo *Servo // nil for raw PWM outputs
	ticks uint16 // Last level written
}

// Controller owns the PWM outputs and servos the host configures by OID.
// It is the firmware's bridge between protocol commands and the core types.
type Controller struct {
	mu       sync.Mutex
	backend  PWMBackend
	registry *SliceRegistry
	cmds     *CommandRegistry
	objects  map[uint8]*pwmObject
	enabled  map[PWMSlice]bool
	send     ResponseSender
}

// NewController creates a controller driving backend and registers its
// handlers in a fresh command registry.
// send may be nil until the transport exists; see SetResponseSender.
func NewController(backend PWMBackend, send ResponseSender) *Controller {
	c := &Controller{
		backend:  backend,
		registry: NewSliceRegistry(),
		cmds:     NewCommandRegistry(),
		objects:  make(map[uint8]*pwmObject),
		enabled:  make(map[PWMSlice]bool),
		send:     send,
	}
	c.registerCommands()
	return c
}

// SetResponseSender sets where responses go
func (c *Controller) SetResponseSender(send ResponseSender) {
	c.send = send
}

// Commands returns the registry holding the controller's handlers
func (c *Controller) Commands() *CommandRegistry {
	return c.cmds
}

// SliceRegistry returns the registry tracking slice dividers
func (c *Controller) SliceRegistry() *SliceRegistry {
	return c.registry
}

func (c *Controller) registerCommands() {
	handlers := map[uint16]CommandHandler{
		protocol.CmdConfigPWM:     c.handleConfigPWM,
		protocol.CmdConfigServo:   c.handleConfigServo,
		protocol.CmdSetPWMTicks:   c.handleSetPWMTicks,
		protocol.CmdSetPWMDuty:    c.handleSetPWMDuty,
		protocol.CmdSetPWMEnable:  c.handleSetPWMEnable,
		protocol.CmdSetServoAngle: c.handleSetServoAngle,
		protocol.CmdQueryPWM:      c.handleQueryPWM,
		protocol.CmdReleaseOID:    c.handleReleaseOID,
	}
	// Responses are registered with no handler so the names resolve
	for _, spec := range protocol.Commands {
		c.cmds.Register(spec.ID, spec.Name, spec.Format, handlers[spec.ID])
	}
}

// HandleCommand dispatches one command. It has the protocol.CommandHandler
// signature. Failures are reported to the host with error_response and
// returned so the transport stops processing the frame.
func (c *Controller) HandleCommand(cmdID uint16, data *[]byte) error {
	err := c.cmds.Dispatch(cmdID, data)
	if err == nil {
		return nil
	}

	var oid uint8
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		oid = cmdErr.OID
	}
	code := ErrorCode(err)
	c.respond(protocol.CmdErrorResponse, func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, uint32(oid))
		protocol.EncodeVLQUint(output, uint32(code))
	})
	return err
}

// ErrorCode maps a handler error to its error_response code
func ErrorCode(err error) uint8 {
	switch {
	case err == nil:
		return protocol.ErrCodeNone
	case errors.Is(err, ErrSliceConflict):
		return protocol.ErrCodeSliceConflict
	case errors.Is(err, ErrInvalidInput):
		return protocol.ErrCodeInvalidInput
	case errors.Is(err, ErrUnknownOID):
		return protocol.ErrCodeUnknownOID
	case errors.Is(err, ErrOIDInUse):
		return protocol.ErrCodeOIDInUse
	case errors.Is(err, ErrUnknownCommand):
		return protocol.ErrCodeUnknownCmd
	case errors.Is(err, ErrMalformed):
		return protocol.ErrCodeMalformed
	default:
		return protocol.ErrCodeMalformed
	}
}

// Reset releases every configured object (host restart)
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for oid, obj := range c.objects {
		obj.pwm.Close()
		delete(c.objects, oid)
	}
	for slice := range c.enabled {
		delete(c.enabled, slice)
	}
}

// Count returns the number of configured objects
func (c *Controller) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.objects)
}

func (c *Controller) respond(cmdID uint16, args func(output protocol.OutputBuffer)) {
	if c.send != nil {
		c.send(cmdID, args)
	}
}

// decodeArgs decodes count VLQ arguments into dst
func decodeArgs(data *[]byte, dst ...*uint32) error {
	for _, d := range dst {
		v, err := protocol.DecodeVLQUint(data)
		if err != nil {
			return err
		}
		*d = v
	}
	return nil
}

// decodeCommand decodes the leading oid and then the remaining arguments.
// An oid that does not fit in a byte is malformed.
func decodeCommand(data *[]byte, oid *uint8, rest ...*uint32) error {
	var raw uint32
	if err := decodeArgs(data, &raw); err != nil {
		return err
	}
	if raw > maxOID {
		return newWrapped("oid "+utoa(raw)+" above "+utoa(maxOID), ErrMalformed)
	}
	*oid = uint8(raw)
	return decodeArgs(data, rest...)
}

// lookup returns the object for oid; callers hold c.mu
func (c *Controller) lookup(oid uint8) (*pwmObject, error) {
	obj, exists := c.objects[oid]
	if !exists {
		return nil, &CommandError{OID: oid, Err: ErrUnknownOID}
	}
	return obj, nil
}

// handleConfigPWM configures a raw PWM output
// Format: config_pwm oid=%c pin=%u divider_x10k=%u
func (c *Controller) handleConfigPWM(data *[]byte) error {
	var oid uint8
	var pin, div uint32
	if err := decodeCommand(data, &oid, &pin, &div); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.objects[oid]; exists {
		return &CommandError{OID: oid, Err: ErrOIDInUse}
	}

	cfg := PWMConfig{ClockDivider: float32(div) / protocol.DividerScale}
	pwm, err := NewHardwarePWM(c.backend, c.registry, PWMPin(pin), cfg)
	if err != nil {
		return &CommandError{OID: oid, Err: err}
	}

	c.objects[oid] = &pwmObject{pwm: pwm}
	c.enabled[pwm.Slice()] = true
	return nil
}

// handleConfigServo configures a servo output.
// start=0 end=0 selects the SG92R endpoints, max_deg=0 a half turn.
// Format: config_servo oid=%c pin=%u start=%hu end=%hu max_deg=%u
func (c *Controller) handleConfigServo(data *[]byte) error {
	var oid uint8
	var pin, start, end, maxDeg uint32
	if err := decodeCommand(data, &oid, &pin, &start, &end, &maxDeg); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.objects[oid]; exists {
		return &CommandError{OID: oid, Err: ErrOIDInUse}
	}
	if start > PWMTopTicks || end > PWMTopTicks {
		return &CommandError{OID: oid, Err: invalidInput("servo endpoint above " + utoa(PWMTopTicks))}
	}

	cal := DefaultServoCalibration()
	if start != 0 || end != 0 {
		cal.StartTicks = uint16(start)
		cal.EndTicks = uint16(end)
	}
	if maxDeg != 0 {
		cal.MaxDegrees = maxDeg
	}

	servo, err := NewServo(c.backend, c.registry, PWMPin(pin), cal)
	if err != nil {
		return &CommandError{OID: oid, Err: err}
	}

	c.objects[oid] = &pwmObject{pwm: servo.PWM(), servo: servo}
	c.enabled[servo.PWM().Slice()] = true
	return nil
}

// handleSetPWMTicks sets the raw high-tick count
// Format: set_pwm_ticks oid=%c ticks=%hu
func (c *Controller) handleSetPWMTicks(data *[]byte) error {
	var oid uint8
	var ticks uint32
	if err := decodeCommand(data, &oid, &ticks); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	obj, err := c.lookup(oid)
	if err != nil {
		return err
	}
	if ticks > PWMTopTicks {
		return &CommandError{OID: oid, Err: invalidInput("ticks " + utoa(ticks) + " above " + utoa(PWMTopTicks))}
	}

	obj.pwm.SetHighTicks(uint16(ticks))
	obj.ticks = uint16(ticks)
	return nil
}

// handleSetPWMDuty sets the duty cycle in hundredths of a percent
// Format: set_pwm_duty oid=%c duty_centi=%u
func (c *Controller) handleSetPWMDuty(data *[]byte) error {
	var oid uint8
	var centi uint32
	if err := decodeCommand(data, &oid, &centi); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	obj, err := c.lookup(oid)
	if err != nil {
		return err
	}

	percentage := float32(centi) / protocol.DutyScale
	if err := obj.pwm.SetDutyCycle(percentage); err != nil {
		return &CommandError{OID: oid, Err: err}
	}
	obj.ticks = DutyToTicks(percentage)
	return nil
}

// handleSetPWMEnable starts or stops the object's slice
// Format: set_pwm_enable oid=%c enable=%c
func (c *Controller) handleSetPWMEnable(data *[]byte) error {
	var oid uint8
	var enable uint32
	if err := decodeCommand(data, &oid, &enable); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	obj, err := c.lookup(oid)
	if err != nil {
		return err
	}

	if enable != 0 {
		obj.pwm.Enable()
	} else {
		obj.pwm.Disable()
	}
	c.enabled[obj.pwm.Slice()] = enable != 0
	return nil
}

// handleSetServoAngle turns a servo
// Format: set_servo_angle oid=%c degrees=%u
func (c *Controller) handleSetServoAngle(data *[]byte) error {
	var oid uint8
	var degrees uint32
	if err := decodeCommand(data, &oid, &degrees); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	obj, err := c.lookup(oid)
	if err != nil {
		return err
	}
	if obj.servo == nil {
		return &CommandError{OID: oid, Err: invalidInput("oid is not a servo")}
	}

	obj.servo.SetRotation(degrees)
	obj.ticks = DegreesToTicks(obj.servo.Rotation(), obj.servo.Calibration())
	return nil
}

// handleQueryPWM reports an object's pin, slice and output state
// Format: query_pwm oid=%c
func (c *Controller) handleQueryPWM(data *[]byte) error {
	var oid uint8
	if err := decodeCommand(data, &oid); err != nil {
		return err
	}

	c.mu.Lock()
	obj, err := c.lookup(oid)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	pin := obj.pwm.Pin()
	slice := obj.pwm.Slice()
	ticks := obj.ticks
	enabled := c.enabled[slice]
	c.mu.Unlock()

	c.respond(protocol.CmdPWMState, func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, uint32(oid))
		protocol.EncodeVLQUint(output, uint32(pin))
		protocol.EncodeVLQUint(output, uint32(slice))
		protocol.EncodeVLQUint(output, uint32(ticks))
		if enabled {
			protocol.EncodeVLQUint(output, 1)
		} else {
			protocol.EncodeVLQUint(output, 0)
		}
	})
	return nil
}

// handleReleaseOID releases an object and its slice claim
// Format: release_oid oid=%c
func (c *Controller) handleReleaseOID(data *[]byte) error {
	var oid uint8
	if err := decodeCommand(data, &oid); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	obj, err := c.lookup(oid)
	if err != nil {
		return err
	}

	slice := obj.pwm.Slice()
	obj.pwm.Close()
	delete(c.objects, oid)
	if c.registry.Holders(slice) == 0 {
		delete(c.enabled, slice)
	}
	return nil
}

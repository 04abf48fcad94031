package protocol

// Command IDs. The table is fixed so the host needs no dictionary exchange.
const (
	CmdErrorResponse uint16 = iota // oid=%c code=%c (device -> host)
	CmdConfigPWM                   // oid=%c pin=%u divider_x10k=%u
	CmdConfigServo                 // oid=%c pin=%u start=%hu end=%hu max_deg=%u
	CmdSetPWMTicks                 // oid=%c ticks=%hu
	CmdSetPWMDuty                  // oid=%c duty_centi=%u
	CmdSetPWMEnable                // oid=%c enable=%c
	CmdSetServoAngle               // oid=%c degrees=%u
	CmdQueryPWM                    // oid=%c
	CmdPWMState                    // oid=%c pin=%u slice=%u ticks=%hu enabled=%c (device -> host)
	CmdReleaseOID                  // oid=%c
)

// CommandSpec names a command and its argument format
type CommandSpec struct {
	ID       uint16
	Name     string
	Format   string
	Response bool // Sent by the device
}

// Commands lists every message in ID order
var Commands = []CommandSpec{
	{CmdErrorResponse, "error_response", "oid=%c code=%c", true},
	{CmdConfigPWM, "config_pwm", "oid=%c pin=%u divider_x10k=%u", false},
	{CmdConfigServo, "config_servo", "oid=%c pin=%u start=%hu end=%hu max_deg=%u", false},
	{CmdSetPWMTicks, "set_pwm_ticks", "oid=%c ticks=%hu", false},
	{CmdSetPWMDuty, "set_pwm_duty", "oid=%c duty_centi=%u", false},
	{CmdSetPWMEnable, "set_pwm_enable", "oid=%c enable=%c", false},
	{CmdSetServoAngle, "set_servo_angle", "oid=%c degrees=%u", false},
	{CmdQueryPWM, "query_pwm", "oid=%c", false},
	{CmdPWMState, "pwm_state", "oid=%c pin=%u slice=%u ticks=%hu enabled=%c", true},
	{CmdReleaseOID, "release_oid", "oid=%c", false},
}

// Error codes carried by error_response
const (
	ErrCodeNone          uint8 = 0
	ErrCodeInvalidInput  uint8 = 1
	ErrCodeUnknownOID    uint8 = 2
	ErrCodeSliceConflict uint8 = 3
	ErrCodeOIDInUse      uint8 = 4
	ErrCodeUnknownCmd    uint8 = 5
	ErrCodeMalformed     uint8 = 6
)

// ErrorCodeName returns a readable name for an error_response code
func ErrorCodeName(code uint8) string {
	switch code {
	case ErrCodeNone:
		return "none"
	case ErrCodeInvalidInput:
		return "invalid input"
	case ErrCodeUnknownOID:
		return "unknown oid"
	case ErrCodeSliceConflict:
		return "slice conflict"
	case ErrCodeOIDInUse:
		return "oid in use"
	case ErrCodeUnknownCmd:
		return "unknown command"
	case ErrCodeMalformed:
		return "malformed arguments"
	default:
		return "unknown error"
	}
}

// Fixed-point scales used on the wire
const (
	DividerScale = 10000 // divider_x10k = divider * DividerScale
	DutyScale    = 100   // duty_centi = percent * DutyScale
)

package core

import "errors"

var (
	// ErrInvalidInput is returned for out-of-range values, pins without a
	// PWM function and inconsistent calibration.
	ErrInvalidInput = errors.New("invalid input")

	// ErrSliceConflict is returned when a channel asks for a clock divider
	// that differs from the one already set on its slice.
	ErrSliceConflict = newWrapped("slice clock divider conflict", ErrInvalidInput)

	// ErrPinInUse is returned when a pin already driven by a live channel
	// is claimed again.
	ErrPinInUse = newWrapped("pin already in use", ErrInvalidInput)

	// ErrClosed is returned when a released channel is used again.
	ErrClosed = errors.New("pwm channel closed")

	// ErrUnknownOID is returned for commands naming an unconfigured object
	ErrUnknownOID = errors.New("unknown oid")

	// ErrOIDInUse is returned when configuring an object id twice
	ErrOIDInUse = errors.New("oid already configured")

	// ErrMalformed is returned for command arguments that cannot be decoded
	// into their declared types
	ErrMalformed = errors.New("malformed command")

	// ErrUnknownCommand is returned for command IDs with no handler
	ErrUnknownCommand = errors.New("unknown command")
)

// wrappedError is a sentinel that also matches its parent with errors.Is
type wrappedError struct {
	msg    string
	parent error
}

func newWrapped(msg string, parent error) error {
	return &wrappedError{msg: msg, parent: parent}
}

func (e *wrappedError) Error() string { return e.msg }

func (e *wrappedError) Unwrap() error { return e.parent }

// invalidInput builds an error matching ErrInvalidInput with detail attached
func invalidInput(detail string) error {
	return newWrapped("invalid input: "+detail, ErrInvalidInput)
}

// sliceConflict builds an error matching ErrSliceConflict with detail attached
func sliceConflict(detail string) error {
	return newWrapped("slice clock divider conflict: "+detail, ErrSliceConflict)
}

func pinInUse(detail string) error {
	return newWrapped("pin already in use: "+detail, ErrPinInUse)
}

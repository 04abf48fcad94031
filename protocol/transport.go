package protocol

// CommandHandler is a function type for handling decoded commands.
// The handler decodes its own arguments from data and advances it.
type CommandHandler func(cmdID uint16, data *[]byte) error

// Transport handles the device side of the protocol: it validates incoming
// frames, dispatches their commands, acks them and frames responses.
// Receive and the Send methods must be called from one goroutine.
type Transport struct {
	scanner *Scanner

	// Next sequence expected from the host (0x10-0x1F); acks and responses
	// carry the same value
	nextSequence uint8

	output        OutputBuffer
	handler       CommandHandler
	resetCallback func() // Called when host reset is detected
	flushCallback func() // Called to push an ACK out immediately
}

// NewTransport creates a new Transport instance
func NewTransport(output OutputBuffer, handler CommandHandler) *Transport {
	return &Transport{
		scanner:      NewScanner(),
		nextSequence: MessageDest,
		output:       output,
		handler:      handler,
	}
}

// Receive processes incoming data from the input buffer and pops what
// was consumed. Partial frames stay in the buffer.
func (t *Transport) Receive(input InputBuffer) {
	consumed := t.scanner.Scan(input.Data(), t.handleMessage, t.encodeAckNak)
	if consumed > 0 {
		input.Pop(consumed)
	}
}

func (t *Transport) handleMessage(msg Message) {
	seq := msg.Sequence

	// Sequence back at the start while we expect more: host was restarted
	if seq == MessageDest && t.nextSequence != MessageDest {
		t.nextSequence = MessageDest
		if t.resetCallback != nil {
			t.resetCallback()
		}
	}

	if seq == t.nextSequence {
		t.nextSequence = NextSequence(seq)
		_ = t.parseFrame(msg.Payload)
	}

	// A mismatched sequence still gets an ack naming the expected one (a NAK)
	t.encodeAckNak()
}

// parseFrame extracts and dispatches commands from a frame
func (t *Transport) parseFrame(frame []byte) (err error) {
	// A panicking handler must not take down the firmware
	defer func() {
		if r := recover(); r != nil {
			t.scanner.synchronized = false
		}
	}()

	for len(frame) > 0 {
		cmdID, err := DecodeVLQUint(&frame)
		if err != nil {
			t.scanner.synchronized = false
			return err
		}

		if t.handler != nil {
			// Handler errors stop the frame but keep sync
			if err := t.handler(uint16(cmdID), &frame); err != nil {
				return err
			}
		}
	}
	return nil
}

// encodeAckNak sends an empty frame carrying the next expected sequence
func (t *Transport) encodeAckNak() {
	EncodeFrameFunc(t.output, t.nextSequence, nil)
	if t.flushCallback != nil {
		t.flushCallback()
	}
}

// SendCommand frames a command (usually a response) for the host
func (t *Transport) SendCommand(cmdID uint16, args func(output OutputBuffer)) {
	EncodeFrameFunc(t.output, t.nextSequence, func(output OutputBuffer) {
		EncodeVLQUint(output, uint32(cmdID))
		if args != nil {
			args(output)
		}
	})
}

// Reset returns the transport to its power-on state
func (t *Transport) Reset() {
	t.scanner.Reset()
	t.nextSequence = MessageDest
	if t.resetCallback != nil {
		t.resetCallback()
	}
}

// Synchronized reports whether the incoming stream is aligned on frames
func (t *Transport) Synchronized() bool {
	return t.scanner.Synchronized()
}

// NextSequence returns the sequence expected in the next host frame
func (t *Transport) NextSequence() uint8 {
	return t.nextSequence
}

// SetResetCallback sets a callback to be called when host reset is detected
func (t *Transport) SetResetCallback(callback func()) {
	t.resetCallback = callback
}

// SetFlushCallback sets a callback to immediately flush ACK messages to USB
func (t *Transport) SetFlushCallback(callback func()) {
	t.flushCallback = callback
}

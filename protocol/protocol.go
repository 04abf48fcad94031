// Package protocol implements the framed command protocol spoken between the
// picoservo host tools and the firmware. Framing follows Klipper's message
// blocks: a length byte, a sequence byte, VLQ-encoded commands, a CRC16 and
// a trailing sync byte.
package protocol

// Version represents the picoservo protocol version
const Version = "0.1.0"

// Frame layout constants
const (
	MessageHeaderSize  = 2
	MessageTrailerSize = 3
	MessageLengthMin   = MessageHeaderSize + MessageTrailerSize
	MessageLengthMax   = 64
	MessagePayloadMax  = MessageLengthMax - MessageLengthMin
	MessagePositionLen = 0
	MessagePositionSeq = 1
	MessageTrailerCRC  = 3
	MessageTrailerSync = 1
	MessageValueSync   = 0x7E
	MessageDest        = 0x10

	// Message sequence mask
	MessageSeqMask = 0x0F

	// OutputMax is the scratch space reserved for queued outgoing frames
	OutputMax = 512
)

// Message represents a decoded message block
type Message struct {
	Length   uint8
	Sequence uint8
	Payload  []byte // Frame data without header/trailer
	CRC      uint16
}

// IsAck reports whether the message carries no commands
func (m *Message) IsAck() bool {
	return len(m.Payload) == 0
}

// NextSequence returns the sequence following seq, wrapping within 0x10-0x1F
func NextSequence(seq uint8) uint8 {
	return ((seq + 1) & MessageSeqMask) | MessageDest
}

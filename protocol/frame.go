package protocol

import "errors"

var (
	ErrFrameTooLong = errors.New("frame payload too long")
	ErrFrameLength  = errors.New("invalid frame length")
	ErrFrameSync    = errors.New("missing frame sync byte")
	ErrFrameCRC     = errors.New("frame CRC mismatch")
	ErrFrameDest    = errors.New("frame sequence outside destination range")
)

// EncodeFrame writes one message block carrying payload to output
func EncodeFrame(output OutputBuffer, seq uint8, payload []byte) error {
	if len(payload) > MessagePayloadMax {
		return ErrFrameTooLong
	}
	EncodeFrameFunc(output, seq, func(o OutputBuffer) { o.Output(payload) })
	return nil
}

// EncodeFrameFunc writes a message block whose payload is produced by body.
// The length byte is patched in after body runs.
func EncodeFrameFunc(output OutputBuffer, seq uint8, body func(output OutputBuffer)) {
	cursor := output.CurPosition()
	output.Output([]byte{0, seq})
	if body != nil {
		body(output)
	}

	length := len(output.DataSince(cursor)) + MessageTrailerSize
	output.Update(cursor, uint8(length))

	crc := CRC16(output.DataSince(cursor))
	output.Output([]byte{uint8(crc >> 8), uint8(crc), MessageValueSync})
}

// ParseFrame decodes the message block at the start of data.
// It returns the number of bytes consumed; 0 with a nil error means more data
// is needed. On error the caller should resynchronize on the next sync byte.
// The returned payload aliases data.
func ParseFrame(data []byte) (Message, int, error) {
	if len(data) < MessageLengthMin {
		return Message{}, 0, nil
	}

	msgLen := int(data[MessagePositionLen])
	if msgLen < MessageLengthMin || msgLen > MessageLengthMax {
		return Message{}, 0, ErrFrameLength
	}

	seq := data[MessagePositionSeq]
	if seq&^MessageSeqMask != MessageDest {
		return Message{}, 0, ErrFrameDest
	}

	if len(data) < msgLen {
		return Message{}, 0, nil
	}

	if data[msgLen-MessageTrailerSync] != MessageValueSync {
		return Message{}, 0, ErrFrameSync
	}

	frameCRC := uint16(data[msgLen-MessageTrailerCRC])<<8 | uint16(data[msgLen-MessageTrailerCRC+1])
	if frameCRC != CRC16(data[:msgLen-MessageTrailerSize]) {
		return Message{}, 0, ErrFrameCRC
	}

	return Message{
		Length:   uint8(msgLen),
		Sequence: seq,
		Payload:  data[MessageHeaderSize : msgLen-MessageTrailerSize],
		CRC:      frameCRC,
	}, msgLen, nil
}

// Scanner splits a byte stream into message blocks, resynchronizing on the
// sync byte after corruption.
type Scanner struct {
	synchronized bool
	Dropped      uint32 // Frames discarded because of corruption
}

// NewScanner returns a Scanner that starts synchronized
func NewScanner() *Scanner {
	return &Scanner{synchronized: true}
}

// Synchronized reports whether the scanner is aligned on frame boundaries
func (s *Scanner) Synchronized() bool {
	return s.synchronized
}

// Reset marks the scanner synchronized again
func (s *Scanner) Reset() {
	s.synchronized = true
}

// Scan calls emit for every complete frame in data and returns the number
// of bytes consumed. Unconsumed bytes belong to a partial frame.
// resync, if not nil, is called each time the scanner regains sync.
func (s *Scanner) Scan(data []byte, emit func(Message), resync func()) int {
	start := len(data)

	for len(data) > 0 {
		if !s.synchronized {
			pos := -1
			for i, b := range data {
				if b == MessageValueSync {
					pos = i
					break
				}
			}
			if pos < 0 {
				data = nil
				break
			}
			data = data[pos+1:]
			s.synchronized = true
			if resync != nil {
				resync()
			}
			continue
		}

		if data[0] == MessageValueSync {
			data = data[1:]
			continue
		}

		msg, n, err := ParseFrame(data)
		if err != nil {
			s.synchronized = false
			s.Dropped++
			continue
		}
		if n == 0 {
			break
		}
		data = data[n:]
		emit(msg)
	}

	return start - len(data)
}

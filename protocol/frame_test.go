package protocol

import (
	"bytes"
	"testing"
)

func buildFrame(t *testing.T, seq uint8, payload []byte) []byte {
	t.Helper()
	out := NewScratchOutput()
	if err := EncodeFrame(out, seq, payload); err != nil {
		t.Fatalf("EncodeFrame failed: %v", err)
	}
	return append([]byte(nil), out.Result()...)
}

func TestEncodeFrameLayout(t *testing.T) {
	frame := buildFrame(t, MessageDest, nil)

	// An empty frame is exactly an ACK: len, seq, crc, sync
	if len(frame) != MessageLengthMin {
		t.Fatalf("Expected %d byte frame, got %d", MessageLengthMin, len(frame))
	}
	crc := CRC16([]byte{5, MessageDest})
	expected := []byte{5, MessageDest, byte(crc >> 8), byte(crc), MessageValueSync}
	if !bytes.Equal(frame, expected) {
		t.Errorf("Frame = %x, want %x", frame, expected)
	}
}

func TestParseFrameRoundTrip(t *testing.T) {
	payload := []byte{byte(CmdSetServoAngle), 1, 45}
	frame := buildFrame(t, 0x13, payload)

	msg, n, err := ParseFrame(frame)
	if err != nil {
		t.Fatalf("ParseFrame failed: %v", err)
	}
	if n != len(frame) {
		t.Errorf("Expected %d bytes consumed, got %d", len(frame), n)
	}
	if msg.Sequence != 0x13 {
		t.Errorf("Expected sequence 0x13, got 0x%02x", msg.Sequence)
	}
	if !bytes.Equal(msg.Payload, payload) {
		t.Errorf("Payload = %v, want %v", msg.Payload, payload)
	}
	if msg.IsAck() {
		t.Errorf("Frame with payload reported as ACK")
	}
}

func TestParseFrameErrors(t *testing.T) {
	good := buildFrame(t, MessageDest, []byte{7, 1})

	testCases := []struct {
		name   string
		mutate func([]byte) []byte
		want   error
	}{
		{"bad length", func(b []byte) []byte { b[0] = 2; return b }, ErrFrameLength},
		{"bad destination", func(b []byte) []byte { b[1] = 0x20; return b }, ErrFrameDest},
		{"bad crc", func(b []byte) []byte { b[len(b)-2] ^= 0xFF; return b }, ErrFrameCRC},
		{"bad sync", func(b []byte) []byte { b[len(b)-1] = 0; return b }, ErrFrameSync},
	}

	for _, tc := range testCases {
		frame := tc.mutate(append([]byte(nil), good...))
		if _, _, err := ParseFrame(frame); err != tc.want {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}

	// Partial frames need more data, not an error
	if _, n, err := ParseFrame(good[:len(good)-1]); n != 0 || err != nil {
		t.Errorf("Partial frame: expected (0, nil), got (%d, %v)", n, err)
	}
}

func TestEncodeFrameTooLong(t *testing.T) {
	out := NewScratchOutput()
	if err := EncodeFrame(out, MessageDest, make([]byte, MessagePayloadMax+1)); err != ErrFrameTooLong {
		t.Errorf("Expected ErrFrameTooLong, got %v", err)
	}
}

func TestScannerResync(t *testing.T) {
	first := buildFrame(t, 0x10, []byte{7, 1})
	second := buildFrame(t, 0x11, []byte{7, 2})

	corrupt := append([]byte(nil), first...)
	corrupt[2] ^= 0xFF

	stream := append([]byte{0x42, 0x42}, corrupt...)
	stream = append(stream, second...)

	var got []Message
	resyncs := 0
	s := NewScanner()
	consumed := s.Scan(stream, func(m Message) { got = append(got, m) }, func() { resyncs++ })

	if consumed != len(stream) {
		t.Errorf("Expected %d bytes consumed, got %d", len(stream), consumed)
	}
	if len(got) != 1 || got[0].Sequence != 0x11 {
		t.Fatalf("Expected only the second frame, got %d frames", len(got))
	}
	if resyncs == 0 {
		t.Errorf("Expected at least one resync")
	}
	if s.Dropped == 0 {
		t.Errorf("Expected dropped frame count to increase")
	}
}

func TestScannerPartialFrame(t *testing.T) {
	frame := buildFrame(t, 0x10, []byte{7, 1})

	s := NewScanner()
	count := 0
	consumed := s.Scan(frame[:4], func(Message) { count++ }, nil)
	if consumed != 0 || count != 0 {
		t.Fatalf("Partial frame: consumed %d, frames %d", consumed, count)
	}

	consumed = s.Scan(frame, func(Message) { count++ }, nil)
	if consumed != len(frame) || count != 1 {
		t.Errorf("Full frame: consumed %d, frames %d", consumed, count)
	}
}

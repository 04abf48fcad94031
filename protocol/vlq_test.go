package protocol

import (
	"bytes"
	"testing"
)

func TestVLQEncodeDecodeInt(t *testing.T) {
	testCases := []int32{
		0, 1, -1, 31, -32, -33, 95, 96, 127, 128, 255, -255,
		1000, -1000, 65535, -65535, 381476, 1000000, -1000000,
		1<<31 - 1, -1 << 31,
	}

	for _, expected := range testCases {
		output := NewScratchOutput()
		EncodeVLQInt(output, expected)
		encoded := output.Result()

		data := encoded
		decoded, err := DecodeVLQInt(&data)
		if err != nil {
			t.Errorf("Failed to decode VLQ for value %d: %v", expected, err)
			continue
		}
		if decoded != expected {
			t.Errorf("VLQ mismatch: expected %d, got %d (encoded as %v)", expected, decoded, encoded)
		}
		if len(data) != 0 {
			t.Errorf("VLQ decode didn't consume all bytes for value %d: %d bytes remaining", expected, len(data))
		}
	}
}

func TestVLQKnownEncodings(t *testing.T) {
	testCases := []struct {
		value    int32
		expected []byte
	}{
		{0, []byte{0x00}},
		{95, []byte{0x5F}},
		{96, []byte{0x80, 0x60}},
		{128, []byte{0x81, 0x00}},
		{1000, []byte{0x87, 0x68}},
		{-1, []byte{0x7F}},
		{-33, []byte{0xFF, 0x5F}},
		{65535, []byte{0x83, 0xFF, 0x7F}},
	}

	for _, tc := range testCases {
		output := NewScratchOutput()
		EncodeVLQInt(output, tc.value)
		if !bytes.Equal(output.Result(), tc.expected) {
			t.Errorf("EncodeVLQInt(%d) = %x, want %x", tc.value, output.Result(), tc.expected)
		}
	}
}

func TestVLQUintSequence(t *testing.T) {
	values := []uint32{6, 1, 45, 65535, 381476}

	output := NewScratchOutput()
	for _, v := range values {
		EncodeVLQUint(output, v)
	}

	data := output.Result()
	for _, expected := range values {
		got, err := DecodeVLQUint(&data)
		if err != nil {
			t.Fatalf("DecodeVLQUint failed: %v", err)
		}
		if got != expected {
			t.Errorf("Expected %d, got %d", expected, got)
		}
	}
	if len(data) != 0 {
		t.Errorf("Expected all bytes consumed, %d remaining", len(data))
	}
}

func TestVLQDecodeErrors(t *testing.T) {
	empty := []byte{}
	if _, err := DecodeVLQInt(&empty); err != ErrBufferTooSmall {
		t.Errorf("Expected ErrBufferTooSmall for empty input, got %v", err)
	}

	truncated := []byte{0x83, 0xFF}
	if _, err := DecodeVLQInt(&truncated); err != ErrBufferTooSmall {
		t.Errorf("Expected ErrBufferTooSmall for truncated input, got %v", err)
	}
	if len(truncated) != 2 {
		t.Errorf("Failed decode should not advance data, %d bytes left", len(truncated))
	}

	overlong := []byte{0x81, 0x81, 0x81, 0x81, 0x81, 0x01}
	if _, err := DecodeVLQInt(&overlong); err != ErrInvalidVLQ {
		t.Errorf("Expected ErrInvalidVLQ for overlong input, got %v", err)
	}
}

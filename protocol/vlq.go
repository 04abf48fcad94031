package protocol

import "errors"

var (
	ErrInvalidVLQ     = errors.New("invalid VLQ encoding")
	ErrBufferTooSmall = errors.New("buffer too small for VLQ")
)

// EncodeVLQInt encodes a signed integer in Klipper's VLQ format.
// Groups of 7 bits go out most significant first; every byte but the last
// has bit 7 set. A group at shift s is needed once v leaves
// [-2^(s-2), 3*2^(s-2)).
func EncodeVLQInt(output OutputBuffer, v int32) {
	var buf [5]byte
	n := 0
	for shift := uint(28); shift > 0; shift -= 7 {
		lim := int32(1) << (shift - 2)
		if n > 0 || v < -lim || v >= 3*lim {
			buf[n] = byte(v>>shift)&0x7F | 0x80
			n++
		}
	}
	buf[n] = byte(v) & 0x7F
	output.Output(buf[:n+1])
}

// EncodeVLQUint encodes an unsigned integer in VLQ format
func EncodeVLQUint(output OutputBuffer, v uint32) {
	EncodeVLQInt(output, int32(v))
}

// DecodeVLQInt decodes a VLQ signed integer and advances data past it
func DecodeVLQInt(data *[]byte) (int32, error) {
	buf := *data
	if len(buf) == 0 {
		return 0, ErrBufferTooSmall
	}

	c := uint32(buf[0])
	buf = buf[1:]
	v := c & 0x7F
	if c&0x60 == 0x60 {
		// Negative: sign extend from the first group
		v |= ^uint32(0x1F)
	}

	for n := 1; c&0x80 != 0; n++ {
		if n >= 5 {
			return 0, ErrInvalidVLQ
		}
		if len(buf) == 0 {
			return 0, ErrBufferTooSmall
		}
		c = uint32(buf[0])
		buf = buf[1:]
		v = (v << 7) | (c & 0x7F)
	}

	*data = buf
	return int32(v), nil
}

// DecodeVLQUint decodes a VLQ unsigned integer and advances data past it
func DecodeVLQUint(data *[]byte) (uint32, error) {
	v, err := DecodeVLQInt(data)
	return uint32(v), err
}

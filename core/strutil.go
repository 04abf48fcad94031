package core

// itoa converts an integer to a string without using fmt package
// Firmware builds avoid fmt to keep the image small
func itoa(n int) string {
	if n < 0 {
		return "-" + utoa(uint32(-n))
	}
	return utoa(uint32(n))
}

// utoa converts an unsigned integer to a string
func utoa(n uint32) string {
	if n == 0 {
		return "0"
	}

	var buf [10]byte
	pos := len(buf)
	for n > 0 {
		pos--
		buf[pos] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[pos:])
}

// ftoa formats a float with a fixed number of decimals, rounded to nearest.
// Used for trace lines such as the clock divider.
func ftoa(f float32, decimals int) string {
	neg := f < 0
	if neg {
		f = -f
	}

	scale := uint64(1)
	for i := 0; i < decimals; i++ {
		scale *= 10
	}

	total := uint64(float64(f)*float64(scale) + 0.5)
	s := utoa(uint32(total / scale))
	if decimals > 0 {
		digits := utoa(uint32(total % scale))
		for len(digits) < decimals {
			digits = "0" + digits
		}
		s += "." + digits
	}
	if neg {
		s = "-" + s
	}
	return s
}

package protocol

// crc16Init is the seed of the Klipper block checksum
const crc16Init = 0xFFFF

// crc16Update folds one byte into crc (CRC-16/MCRF4XX, as Klipper computes it)
func crc16Update(crc uint16, b byte) uint16 {
	b ^= byte(crc)
	b ^= b << 4
	w := uint16(b)
	return (w<<8 | crc>>8) ^ (w >> 4) ^ (w << 3)
}

// CRC16 returns the checksum of a frame's length, sequence and payload bytes
func CRC16(data []byte) uint16 {
	crc := uint16(crc16Init)
	for _, b := range data {
		crc = crc16Update(crc, b)
	}
	return crc
}

package protocol

// crc16Step folds one byte into a CRC-16/MCRF4XX accumulator (reflected
// CCITT polynomial, no final xor).
func crc16Step(crc uint16, b byte) uint16 {
	b ^= byte(crc)
	b ^= b << 4
	w := uint16(b)
	return (w<<8 | crc>>8) ^ w>>4 ^ w<<3
}

// CRC16 is the frame checksum. It covers the length, sequence and payload
// bytes and starts from 0xFFFF.
func CRC16(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc = crc16Step(crc, b)
	}
	return crc
}

// crcTrailer returns the checksum of body as it is sent on the wire,
// high byte first, just before the sync byte.
func crcTrailer(body []byte) [2]byte {
	crc := CRC16(body)
	return [2]byte{byte(crc >> 8), byte(crc)}
}

package modbus

// CRC16 computes the Modbus RTU checksum: reflected CRC-16 with polynomial
// 0xA001 and initial value 0xFFFF. The frame carries it little-endian
// (low byte first), so a CRC computed over frame+checksum is always zero.
func CRC16(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc ^= uint16(b)
		for i := 0; i < 8; i++ {
			if crc&0x0001 != 0 {
				crc = (crc >> 1) ^ 0xA001
			} else {
				crc >>= 1
			}
		}
	}
	return crc
}

// appendCRC appends the little-endian CRC of frame to frame itself.
func appendCRC(frame []byte) []byte {
	crc := CRC16(frame)
	return append(frame, byte(crc&0xFF), byte(crc>>8))
}

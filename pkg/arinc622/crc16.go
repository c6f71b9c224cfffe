// Package arinc622 implements the binary alternative wire form of spec.md
// §4.2: a PER-packed payload wrapped in an ARINC 622 frame (IMI, padded
// callsign, CRC16), grounded on original_source/src/cpdlc_msg_arinc622.c and
// cpdlc_msg_asn.c.
package arinc622

// crc16Table is the standard CRC-CCITT (poly 0x1021) lookup table, table-based
// the same way cpdlc_crc16 is in the original implementation.
var crc16Table [256]uint16

func init() {
	const poly = 0x1021
	for i := 0; i < 256; i++ {
		crc := uint16(i) << 8
		for b := 0; b < 8; b++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ poly
			} else {
				crc <<= 1
			}
		}
		crc16Table[i] = crc
	}
}

// CRC16 computes the CCITT-16 checksum over buf, seeded at 0xffff per
// cpdlc_crc16.
func CRC16(buf []byte) uint16 {
	crc := uint16(0xffff)
	for _, b := range buf {
		crc = crc<<8 ^ crc16Table[byte(crc>>8)^b]
	}
	return crc
}

package codec

import "github.com/snksoft/crc"

// Checksum algorithm constants. The parameter set is CRC-32/CKSUM (the POSIX
// cksum polynomial without length suffix), matching the producer tooling that
// seals descriptors into firmware images.
const (
	// CRC32Polynomial is the generator polynomial in normal (MSB-first) form
	CRC32Polynomial = 0x04C11DB7

	// CRC32InitialValue is the register value before the first byte
	CRC32InitialValue = 0x00000000

	// CRC32FinalXor is applied to the register after the last byte
	CRC32FinalXor = 0xFFFFFFFF

	// CRC32Check is the checksum of the ASCII string "123456789"
	CRC32Check = 0x765E7680
)

var cksumTable = crc.NewTable(&crc.Parameters{
	Width:      32,
	Polynomial: CRC32Polynomial,
	Init:       CRC32InitialValue,
	ReflectIn:  false,
	ReflectOut: false,
	FinalXor:   CRC32FinalXor,
})

// Checksum computes the descriptor CRC32 over data. It has no state, so a
// value computed when a descriptor is built into an image always matches the
// value recomputed at validation time.
func Checksum(data []byte) uint32 {
	return uint32(cksumTable.CalculateCRC(data))
}

package codec

import (
	"encoding/binary"
	"fmt"
)

// Signature marks the start of a bootable region descriptor header.
const Signature uint32 = 0x2222_2222

// Encoded record sizes for DescriptorVersion.
const (
	// HeaderSize is the size of an encoded Header in bytes
	HeaderSize = 32

	// AppImageDescriptorSize is the size of an encoded AppImageDescriptor in bytes
	AppImageDescriptorSize = 44

	// crcFieldSize is the size of the trailing CRC field on both records
	crcFieldSize = 4
)

// byteOrder is the wire byte order of every descriptor field.
var byteOrder = binary.LittleEndian

// DescriptorVersion is the layout version written by this package and the
// only version it accepts.
const DescriptorVersion Version = 0x01_0000_00

// Version is a descriptor layout version packed as 0xMM_mmmm_pp.
type Version uint32

// NewVersion packs a major/minor/patch triple.
func NewVersion(major uint8, minor uint16, patch uint8) Version {
	return Version(uint32(major)<<24 | uint32(minor)<<8 | uint32(patch))
}

// Major returns the major field.
func (v Version) Major() uint32 { return (uint32(v) >> 24) & 0xFF }

// Minor returns the minor field.
func (v Version) Minor() uint32 { return (uint32(v) >> 8) & 0xFFFF }

// Patch returns the patch field.
func (v Version) Patch() uint32 { return uint32(v) & 0xFF }

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major(), v.Minor(), v.Patch())
}

// PeekSignature returns the first field of a header without interpreting the
// rest of it.
func PeekSignature(data []byte) (uint32, error) {
	if len(data) < HeaderSize {
		return 0, &LayoutError{Record: recordHeader, Err: ErrBufferTooShort, Got: uint32(len(data)), Want: HeaderSize}
	}
	return byteOrder.Uint32(data[0:4]), nil
}

// Package codec encodes and decodes the two fixed-layout records of a
// bootable region: the region Header and the AppImageDescriptor array it
// points at.
//
// # Record Format
//
// Every field is a 32-bit little-endian unsigned integer. The header is 32
// bytes:
//
//	[Signature][Version][HeaderSize][DescSize][BaseAddr][NumSlots][ActiveSlot][HeaderCRC]
//
// An app image descriptor is 44 bytes:
//
//	[Version][Slot][AppVersion][SecurityVersion][Flags][StoredAddr]
//	[ImageSize][StoredCRCAddr][ExecCopySize][ExecAddr][DescriptorCRC]
//
// # CRC Calculation
//
// Both records end with a CRC-32/CKSUM (polynomial 0x04C11DB7, init 0, no
// reflection, final xor 0xFFFFFFFF) computed over every byte before the CRC
// field. The header CRC covers 28 bytes and the descriptor CRC covers 40.
// Use Checksum for arbitrary data, ComputeCRC and IsCRCValid to check a
// record, and Seal after changing one.
//
// # Usage
//
//	h, err := codec.DecodeHeader(buf)
//	if err != nil {
//	    return err // ErrBufferTooShort or ErrSizeFieldMismatch
//	}
//	if !h.IsCRCValid() {
//	    return errCorrupt
//	}
//
// Decoding never checks the signature, the version or the CRC. Those checks
// belong to the region package, which applies them in a fixed order.
//
// # Flags
//
// Flag bits never leave this package. ImageFlags exposes the known bits as
// booleans and keeps unknown bits in Reserved so a decoded descriptor
// re-encodes to the same bytes.
package codec

package region

import (
	"fmt"

	"github.com/ssargent/bootdesc/pkg/codec"
)

// HeaderSlot is the LoadError.Slot value for failures raised by the header
// rather than by a particular descriptor.
const HeaderSlot int64 = -1

// Errors
var (
	ErrBufferTooShort    = codec.ErrBufferTooShort
	ErrSizeFieldMismatch = codec.ErrSizeFieldMismatch

	ErrSignatureMismatch     = &RegionError{"signature mismatch"}
	ErrVersionMismatch       = &RegionError{"descriptor version mismatch"}
	ErrCRCMismatch           = &RegionError{"crc mismatch"}
	ErrSlotIndexOutOfRange   = &RegionError{"slot index out of range"}
	ErrSlotIdentityMismatch  = &RegionError{"slot identity mismatch"}
	ErrInvalidSlotCount      = &RegionError{"invalid slot count"}
	ErrBaseAddressOutOfRange = &RegionError{"app descriptor base address out of range"}
	ErrRegionTooLarge        = &RegionError{"region exceeds maximum size"}
)

// RegionError is the kind of a region failure.
type RegionError struct {
	Message string
}

func (e *RegionError) Error() string {
	return e.Message
}

// LoadError is returned by every failing operation in this package. Kind is
// one of the Err* sentinels, so errors.Is works against the sentinel.
type LoadError struct {
	Kind     error
	Slot     int64
	Found    uint32
	Expected uint32

	// Err is the codec error behind Kind, if any
	Err error
}

func (e *LoadError) Error() string {
	where := "header"
	if e.Slot != HeaderSlot {
		where = fmt.Sprintf("slot %d", e.Slot)
	}
	if e.Found == 0 && e.Expected == 0 {
		return fmt.Sprintf("region: %s: %v", where, e.Kind)
	}
	return fmt.Sprintf("region: %s: %v: found 0x%08X, expected 0x%08X", where, e.Kind, e.Found, e.Expected)
}

func (e *LoadError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

func headerError(kind error, found, expected uint32) *LoadError {
	return &LoadError{Kind: kind, Slot: HeaderSlot, Found: found, Expected: expected}
}

func slotError(kind error, slot uint32, found, expected uint32) *LoadError {
	return &LoadError{Kind: kind, Slot: int64(slot), Found: found, Expected: expected}
}

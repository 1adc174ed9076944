package codec

// Flag bits as laid out in AppImageDescriptor.flags. Callers work with
// ImageFlags; the packed form only exists on the wire.
const (
	// flagCopyToExecution requests a copy from stored_address to
	// execution_address before the image is started
	flagCopyToExecution uint32 = 1 << 0

	// flagSkipImageCRCCheck disables the boot loader's in-place image CRC check
	flagSkipImageCRCCheck uint32 = 1 << 1

	knownFlags = flagCopyToExecution | flagSkipImageCRCCheck
)

// ImageFlags is the capability set carried by an AppImageDescriptor.
type ImageFlags struct {
	// CopyToExecution copies the image to ExecutionAddress before running it.
	// When false the image executes in place.
	CopyToExecution bool `json:"copy_to_execution" yaml:"copy_to_execution"`

	// SkipImageCRCCheck tells the boot loader not to verify the image CRC
	SkipImageCRCCheck bool `json:"skip_image_crc_check" yaml:"skip_image_crc_check"`

	// Reserved holds bits this version does not assign, so they survive a
	// decode/encode round trip untouched
	Reserved uint32 `json:"reserved,omitempty" yaml:"reserved,omitempty"`
}

// ExecuteInPlace reports whether the image runs from its stored address.
func (f ImageFlags) ExecuteInPlace() bool {
	return !f.CopyToExecution
}

func unpackFlags(bits uint32) ImageFlags {
	return ImageFlags{
		CopyToExecution:   bits&flagCopyToExecution != 0,
		SkipImageCRCCheck: bits&flagSkipImageCRCCheck != 0,
		Reserved:          bits &^ knownFlags,
	}
}

func (f ImageFlags) pack() uint32 {
	bits := f.Reserved &^ knownFlags
	if f.CopyToExecution {
		bits |= flagCopyToExecution
	}
	if f.SkipImageCRCCheck {
		bits |= flagSkipImageCRCCheck
	}
	return bits
}

// Package region loads, validates, mutates and serializes a bootable region:
// one header followed by an array of app image descriptors.
//
// A Descriptors value only exists for a region that passed every check.
// Descriptors is immutable; SetActiveSlot returns a new value. Callers that
// share the underlying flash between goroutines must serialize the
// load/modify/store sequence themselves.
package region

import (
	"bytes"
	"errors"
	"iter"
	"math"

	"github.com/ssargent/bootdesc/pkg/codec"
)

// Descriptors is a validated bootable region.
type Descriptors struct {
	header      codec.Header
	apps        []codec.AppImageDescriptor
	raw         []byte
	arrayOffset uint32
	opts        options
}

// Load validates data and returns the region it describes. Checks run in a
// fixed order and the first failure is returned:
//
//  1. buffer length and signature
//  2. header and descriptor size fields
//  3. descriptor version
//  4. header CRC
//  5. slot count and active slot
//  6. descriptor array location
//  7. per slot: bounds, version, CRC, slot identity
func Load(data []byte, opts ...Option) (*Descriptors, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	sig, err := codec.PeekSignature(data)
	if err != nil {
		return nil, &LoadError{
			Kind:     ErrBufferTooShort,
			Slot:     HeaderSlot,
			Found:    uint32(len(data)),
			Expected: codec.HeaderSize,
			Err:      err,
		}
	}
	if sig != codec.Signature {
		return nil, headerError(ErrSignatureMismatch, sig, codec.Signature)
	}

	header, err := codec.DecodeHeader(data)
	if err != nil {
		le := &LoadError{Kind: ErrSizeFieldMismatch, Slot: HeaderSlot, Err: err}
		var layoutErr *codec.LayoutError
		if errors.As(err, &layoutErr) {
			le.Kind = layoutErr.Err
			le.Found = layoutErr.Got
			le.Expected = layoutErr.Want
		}
		return nil, le
	}

	if header.DescriptorVersion != codec.DescriptorVersion {
		return nil, headerError(ErrVersionMismatch, uint32(header.DescriptorVersion), uint32(codec.DescriptorVersion))
	}

	if crc := header.ComputeCRC(); header.HeaderCRC != crc {
		return nil, headerError(ErrCRCMismatch, header.HeaderCRC, crc)
	}

	if header.NumAppSlots == 0 {
		return nil, headerError(ErrInvalidSlotCount, 0, 0)
	}

	if header.ActiveAppSlot >= header.NumAppSlots {
		return nil, headerError(ErrSlotIndexOutOfRange, header.ActiveAppSlot, header.NumAppSlots)
	}

	offset, err := arrayOffset(header.AppDescriptorBaseAddress, len(data), o)
	if err != nil {
		return nil, err
	}

	// only allocate for the slots that can actually be present
	fits := (uint64(len(data)) - uint64(offset)) / codec.AppImageDescriptorSize
	apps := make([]codec.AppImageDescriptor, 0, min(fits, uint64(header.NumAppSlots)))

	for i := uint32(0); i < header.NumAppSlots; i++ {
		start := uint64(offset) + uint64(i)*codec.AppImageDescriptorSize
		end := start + codec.AppImageDescriptorSize
		if end > uint64(len(data)) {
			return nil, slotError(ErrBufferTooShort, i, uint32(len(data)), uint32(min(end, 0xFFFF_FFFF)))
		}

		desc, err := codec.DecodeAppImageDescriptor(data[start:end])
		if err != nil {
			return nil, &LoadError{Kind: ErrBufferTooShort, Slot: int64(i), Err: err}
		}

		if desc.DescriptorVersion != codec.DescriptorVersion {
			return nil, slotError(ErrVersionMismatch, i, uint32(desc.DescriptorVersion), uint32(codec.DescriptorVersion))
		}

		if crc := desc.ComputeCRC(); desc.DescriptorCRC != crc {
			return nil, slotError(ErrCRCMismatch, i, desc.DescriptorCRC, crc)
		}

		if desc.AppSlotNumber != i {
			if o.strictSlotIdentity {
				return nil, slotError(ErrSlotIdentityMismatch, i, desc.AppSlotNumber, i)
			}
			o.logger.Warn("app slot number does not match array position",
				"slot", i, "app_slot_number", desc.AppSlotNumber)
		}

		apps = append(apps, *desc)
	}

	o.logger.Debug("bootable region loaded",
		"slots", header.NumAppSlots,
		"active", header.ActiveAppSlot,
		"array_offset", offset,
		"address_mode", o.addressMode.String())

	return &Descriptors{
		header:      *header,
		apps:        apps,
		raw:         bytes.Clone(data),
		arrayOffset: offset,
		opts:        o,
	}, nil
}

// arrayOffset converts the header's base address to a buffer offset. The
// array may not overlap the header and must start inside the buffer; an
// address outside that range means the address convention or region base
// is wrong for this buffer.
func arrayOffset(base uint32, bufLen int, o options) (uint32, error) {
	offset := base
	if o.addressMode == Absolute {
		if base < o.regionBase {
			return 0, headerError(ErrBaseAddressOutOfRange, base, o.regionBase)
		}
		offset = base - o.regionBase
	}

	if offset < codec.HeaderSize || uint64(offset) >= uint64(bufLen) {
		return 0, headerError(ErrBaseAddressOutOfRange, offset, codec.HeaderSize)
	}
	return offset, nil
}

// New builds a region from scratch: a sealed header for len(apps) slots with
// the given active slot, followed by apps at baseAddress. The result is
// validated with Load using the same options, so apps must already be
// sealed and numbered by position.
func New(activeSlot, baseAddress uint32, apps []codec.AppImageDescriptor, opts ...Option) (*Descriptors, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	if len(apps) == 0 {
		return nil, headerError(ErrInvalidSlotCount, 0, 0)
	}

	offset := baseAddress
	if o.addressMode == Absolute {
		if baseAddress < o.regionBase {
			return nil, headerError(ErrBaseAddressOutOfRange, baseAddress, o.regionBase)
		}
		offset = baseAddress - o.regionBase
	}
	if offset < codec.HeaderSize {
		return nil, headerError(ErrBaseAddressOutOfRange, offset, codec.HeaderSize)
	}

	size := uint64(offset) + uint64(len(apps))*codec.AppImageDescriptorSize
	if o.maxSize > 0 && size > uint64(o.maxSize) {
		return nil, headerError(ErrRegionTooLarge, clampUint32(size), clampUint32(uint64(o.maxSize)))
	}

	header := codec.NewHeader(uint32(len(apps)), activeSlot, baseAddress)

	buf := make([]byte, size)
	copy(buf, header.Encode())
	for i := range apps {
		copy(buf[int(offset)+i*codec.AppImageDescriptorSize:], apps[i].Encode())
	}

	return Load(buf, opts...)
}

// Header returns a copy of the validated header.
func (d *Descriptors) Header() codec.Header {
	return d.header
}

// Len returns the number of app slots.
func (d *Descriptors) Len() int {
	return len(d.apps)
}

// ArrayOffset returns the buffer offset of the first app descriptor.
func (d *Descriptors) ArrayOffset() uint32 {
	return d.arrayOffset
}

// ActiveDescriptor returns the descriptor of the active slot.
func (d *Descriptors) ActiveDescriptor() (codec.AppImageDescriptor, error) {
	return d.AppAtSlot(d.header.ActiveAppSlot)
}

// AppAtSlot returns the descriptor stored in slot.
func (d *Descriptors) AppAtSlot(slot uint32) (codec.AppImageDescriptor, error) {
	if slot >= d.header.NumAppSlots || int(slot) >= len(d.apps) {
		return codec.AppImageDescriptor{}, slotError(ErrSlotIndexOutOfRange, slot, slot, d.header.NumAppSlots)
	}
	return d.apps[slot], nil
}

// All yields every slot index and descriptor in array order.
func (d *Descriptors) All() iter.Seq2[uint32, codec.AppImageDescriptor] {
	return func(yield func(uint32, codec.AppImageDescriptor) bool) {
		for i, app := range d.apps {
			if !yield(uint32(i), app) {
				return
			}
		}
	}
}

// SetActiveSlot returns a copy of d with slot marked active and the header
// CRC recomputed. d is not modified.
func (d *Descriptors) SetActiveSlot(slot uint32) (*Descriptors, error) {
	if slot >= d.header.NumAppSlots {
		return nil, slotError(ErrSlotIndexOutOfRange, slot, slot, d.header.NumAppSlots)
	}

	next := &Descriptors{
		header:      d.header,
		apps:        append([]codec.AppImageDescriptor(nil), d.apps...),
		raw:         d.raw,
		arrayOffset: d.arrayOffset,
		opts:        d.opts,
	}
	next.header.ActiveAppSlot = slot
	next.header.Seal()

	d.opts.logger.Info("active slot changed", "from", d.header.ActiveAppSlot, "to", slot)
	return next, nil
}

// Serialize returns the region as bytes ready to persist. Bytes outside the
// header and the descriptor array are carried over from the loaded buffer.
func (d *Descriptors) Serialize() []byte {
	end := int(d.arrayOffset) + len(d.apps)*codec.AppImageDescriptorSize
	out := make([]byte, max(len(d.raw), end))
	copy(out, d.raw)

	copy(out, d.header.Encode())
	for i := range d.apps {
		copy(out[int(d.arrayOffset)+i*codec.AppImageDescriptorSize:], d.apps[i].Encode())
	}
	return out
}

func clampUint32(n uint64) uint32 {
	if n > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(n)
}

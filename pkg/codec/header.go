package codec

// Header is the bootable region descriptor header. One header sits at the
// start of every bootable region and points at the app image descriptor array.
type Header struct {
	Signature                uint32  `json:"signature"`                   // Always Signature
	DescriptorVersion        Version `json:"descriptor_version"`          // Layout version of this header
	HeaderSizeBytes          uint32  `json:"descriptor_header_size_bytes"` // HeaderSize
	AppDescriptorSizeBytes   uint32  `json:"app_descriptor_size_bytes"`    // AppImageDescriptorSize
	AppDescriptorBaseAddress uint32  `json:"app_descriptor_base_address"`  // Where the descriptor array starts
	NumAppSlots              uint32  `json:"num_app_slots"`                // Descriptors in the array
	ActiveAppSlot            uint32  `json:"active_app_slot"`              // Slot the boot loader runs
	HeaderCRC                uint32  `json:"header_crc"`                   // Checksum of the fields above
}

// NewHeader returns a sealed header for the current DescriptorVersion.
func NewHeader(numAppSlots, activeAppSlot, appDescriptorBaseAddress uint32) *Header {
	h := &Header{
		Signature:                Signature,
		DescriptorVersion:        DescriptorVersion,
		HeaderSizeBytes:          HeaderSize,
		AppDescriptorSizeBytes:   AppImageDescriptorSize,
		AppDescriptorBaseAddress: appDescriptorBaseAddress,
		NumAppSlots:              numAppSlots,
		ActiveAppSlot:            activeAppSlot,
	}
	h.Seal()
	return h
}

// Encode serializes the header.
// Format: [Signature(4)][Version(4)][HeaderSize(4)][DescSize(4)][BaseAddr(4)][Slots(4)][Active(4)][CRC(4)]
func (h *Header) Encode() []byte {
	buf := make([]byte, HeaderSize)
	h.put(buf)
	return buf
}

func (h *Header) put(buf []byte) {
	byteOrder.PutUint32(buf[0:], h.Signature)
	byteOrder.PutUint32(buf[4:], uint32(h.DescriptorVersion))
	byteOrder.PutUint32(buf[8:], h.HeaderSizeBytes)
	byteOrder.PutUint32(buf[12:], h.AppDescriptorSizeBytes)
	byteOrder.PutUint32(buf[16:], h.AppDescriptorBaseAddress)
	byteOrder.PutUint32(buf[20:], h.NumAppSlots)
	byteOrder.PutUint32(buf[24:], h.ActiveAppSlot)
	byteOrder.PutUint32(buf[28:], h.HeaderCRC)
}

// DecodeHeader deserializes the first HeaderSize bytes of data. It fails if
// data is short or if either embedded size field disagrees with this layout.
func DecodeHeader(data []byte) (*Header, error) {
	if len(data) < HeaderSize {
		return nil, &LayoutError{Record: recordHeader, Err: ErrBufferTooShort, Got: uint32(len(data)), Want: HeaderSize}
	}

	h := &Header{
		Signature:                byteOrder.Uint32(data[0:4]),
		DescriptorVersion:        Version(byteOrder.Uint32(data[4:8])),
		HeaderSizeBytes:          byteOrder.Uint32(data[8:12]),
		AppDescriptorSizeBytes:   byteOrder.Uint32(data[12:16]),
		AppDescriptorBaseAddress: byteOrder.Uint32(data[16:20]),
		NumAppSlots:              byteOrder.Uint32(data[20:24]),
		ActiveAppSlot:            byteOrder.Uint32(data[24:28]),
		HeaderCRC:                byteOrder.Uint32(data[28:32]),
	}

	if h.HeaderSizeBytes != HeaderSize {
		return nil, &LayoutError{
			Record: recordHeader,
			Field:  "descriptor_header_size_bytes",
			Err:    ErrSizeFieldMismatch,
			Got:    h.HeaderSizeBytes,
			Want:   HeaderSize,
		}
	}
	if h.AppDescriptorSizeBytes != AppImageDescriptorSize {
		return nil, &LayoutError{
			Record: recordHeader,
			Field:  "app_descriptor_size_bytes",
			Err:    ErrSizeFieldMismatch,
			Got:    h.AppDescriptorSizeBytes,
			Want:   AppImageDescriptorSize,
		}
	}

	return h, nil
}

// ComputeCRC returns the checksum over every field except HeaderCRC.
func (h *Header) ComputeCRC() uint32 {
	return Checksum(h.Encode()[:HeaderSize-crcFieldSize])
}

// IsCRCValid reports whether HeaderCRC matches the current contents.
func (h *Header) IsCRCValid() bool {
	return h.HeaderCRC == h.ComputeCRC()
}

// Seal recomputes and stores HeaderCRC.
func (h *Header) Seal() {
	h.HeaderCRC = h.ComputeCRC()
}

package codec

// AppImageDescriptor describes one firmware slot: where the image is stored,
// how big it is, and how the boot loader should start it.
type AppImageDescriptor struct {
	DescriptorVersion      Version    `json:"descriptor_version"`
	AppSlotNumber          uint32     `json:"app_slot_number"`
	AppVersion             uint32     `json:"app_version"`
	SecurityVersion        uint32     `json:"security_version"`
	Flags                  ImageFlags `json:"flags"`
	StoredAddress          uint32     `json:"stored_address"`
	ImageSizeBytes         uint32     `json:"image_size_bytes"`
	StoredCRCAddress       uint32     `json:"stored_crc_address"`
	ExecutionCopySizeBytes uint32     `json:"execution_copy_size_bytes"`
	ExecutionAddress       uint32     `json:"execution_address"`
	DescriptorCRC          uint32     `json:"descriptor_crc"`
}

// ImageParams are the producer-chosen fields of a new descriptor.
type ImageParams struct {
	Slot             uint32
	AppVersion       uint32
	SecurityVersion  uint32
	Flags            ImageFlags
	StoredAddress    uint32
	ImageSizeBytes   uint32
	StoredCRCAddress uint32

	// ExecutionAddress is only used by NewRAMImage
	ExecutionAddress uint32
}

// NewExecuteInPlaceImage returns a sealed descriptor for an image that runs
// from its stored address. Any copy flag in p.Flags is cleared.
func NewExecuteInPlaceImage(p ImageParams) *AppImageDescriptor {
	flags := p.Flags
	flags.CopyToExecution = false

	d := &AppImageDescriptor{
		DescriptorVersion:      DescriptorVersion,
		AppSlotNumber:          p.Slot,
		AppVersion:             p.AppVersion,
		SecurityVersion:        p.SecurityVersion,
		Flags:                  flags,
		StoredAddress:          p.StoredAddress,
		ImageSizeBytes:         p.ImageSizeBytes,
		StoredCRCAddress:       p.StoredCRCAddress,
		ExecutionCopySizeBytes: 0,
		ExecutionAddress:       p.StoredAddress,
	}
	d.Seal()
	return d
}

// NewRAMImage returns a sealed descriptor for an image that is copied to
// p.ExecutionAddress before it runs. The whole image is copied.
func NewRAMImage(p ImageParams) *AppImageDescriptor {
	flags := p.Flags
	flags.CopyToExecution = true

	d := &AppImageDescriptor{
		DescriptorVersion:      DescriptorVersion,
		AppSlotNumber:          p.Slot,
		AppVersion:             p.AppVersion,
		SecurityVersion:        p.SecurityVersion,
		Flags:                  flags,
		StoredAddress:          p.StoredAddress,
		ImageSizeBytes:         p.ImageSizeBytes,
		StoredCRCAddress:       p.StoredCRCAddress,
		ExecutionCopySizeBytes: p.ImageSizeBytes,
		ExecutionAddress:       p.ExecutionAddress,
	}
	d.Seal()
	return d
}

// Encode serializes the descriptor.
// Format: [Version][Slot][AppVer][SecVer][Flags][Stored][Size][CRCAddr][CopySize][ExecAddr][CRC], 4 bytes each
func (d *AppImageDescriptor) Encode() []byte {
	buf := make([]byte, AppImageDescriptorSize)
	d.put(buf)
	return buf
}

func (d *AppImageDescriptor) put(buf []byte) {
	byteOrder.PutUint32(buf[0:], uint32(d.DescriptorVersion))
	byteOrder.PutUint32(buf[4:], d.AppSlotNumber)
	byteOrder.PutUint32(buf[8:], d.AppVersion)
	byteOrder.PutUint32(buf[12:], d.SecurityVersion)
	byteOrder.PutUint32(buf[16:], d.Flags.pack())
	byteOrder.PutUint32(buf[20:], d.StoredAddress)
	byteOrder.PutUint32(buf[24:], d.ImageSizeBytes)
	byteOrder.PutUint32(buf[28:], d.StoredCRCAddress)
	byteOrder.PutUint32(buf[32:], d.ExecutionCopySizeBytes)
	byteOrder.PutUint32(buf[36:], d.ExecutionAddress)
	byteOrder.PutUint32(buf[40:], d.DescriptorCRC)
}

// DecodeAppImageDescriptor deserializes the first AppImageDescriptorSize
// bytes of data.
func DecodeAppImageDescriptor(data []byte) (*AppImageDescriptor, error) {
	if len(data) < AppImageDescriptorSize {
		return nil, &LayoutError{
			Record: recordDescriptor,
			Err:    ErrBufferTooShort,
			Got:    uint32(len(data)),
			Want:   AppImageDescriptorSize,
		}
	}

	return &AppImageDescriptor{
		DescriptorVersion:      Version(byteOrder.Uint32(data[0:4])),
		AppSlotNumber:          byteOrder.Uint32(data[4:8]),
		AppVersion:             byteOrder.Uint32(data[8:12]),
		SecurityVersion:        byteOrder.Uint32(data[12:16]),
		Flags:                  unpackFlags(byteOrder.Uint32(data[16:20])),
		StoredAddress:          byteOrder.Uint32(data[20:24]),
		ImageSizeBytes:         byteOrder.Uint32(data[24:28]),
		StoredCRCAddress:       byteOrder.Uint32(data[28:32]),
		ExecutionCopySizeBytes: byteOrder.Uint32(data[32:36]),
		ExecutionAddress:       byteOrder.Uint32(data[36:40]),
		DescriptorCRC:          byteOrder.Uint32(data[40:44]),
	}, nil
}

// ComputeCRC returns the checksum over every field except DescriptorCRC.
func (d *AppImageDescriptor) ComputeCRC() uint32 {
	return Checksum(d.Encode()[:AppImageDescriptorSize-crcFieldSize])
}

// IsCRCValid reports whether DescriptorCRC matches the current contents.
func (d *AppImageDescriptor) IsCRCValid() bool {
	return d.DescriptorCRC == d.ComputeCRC()
}

// Seal recomputes and stores DescriptorCRC.
func (d *AppImageDescriptor) Seal() {
	d.DescriptorCRC = d.ComputeCRC()
}

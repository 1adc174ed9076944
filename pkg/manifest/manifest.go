// Package manifest reads the YAML description of a bootable region used to
// provision a fresh region from scratch.
//
// In the default absolute address mode base_address is measured from the
// config's region_base. The example below places the descriptor array right
// after the header of a region whose header sits at 0x08000000, so it needs
// region_base: 0x08000000 in the config.
//
// Example:
//
//	active_slot: 0
//	base_address: 0x08000020
//	slots:
//	  - mode: xip
//	    app_version: 1
//	    security_version: 1
//	    stored_address: 0x08004000
//	    image_size: 0x10000
//	    stored_crc_address: 0x08014000
//	  - mode: ram
//	    app_version: 2
//	    security_version: 1
//	    stored_address: 0x08024000
//	    image_size: 0x10000
//	    stored_crc_address: 0x08034000
//	    execution_address: 0x20000000
package manifest

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ssargent/bootdesc/pkg/codec"
	"github.com/ssargent/bootdesc/pkg/region"
)

// Image modes
const (
	ModeExecuteInPlace = "xip"
	ModeRAM            = "ram"
)

// Uint32 is a 32-bit value that accepts decimal, 0x hex, 0o octal and 0b
// binary notation in YAML. It is written back as hex.
type Uint32 uint32

func (u *Uint32) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a number", value.Line)
	}
	n, err := strconv.ParseUint(strings.TrimSpace(value.Value), 0, 32)
	if err != nil {
		return fmt.Errorf("line %d: invalid 32-bit value %q", value.Line, value.Value)
	}
	*u = Uint32(n)
	return nil
}

func (u Uint32) MarshalYAML() (interface{}, error) {
	return fmt.Sprintf("0x%08X", uint32(u)), nil
}

// Manifest describes a complete bootable region.
type Manifest struct {
	ActiveSlot  Uint32 `yaml:"active_slot"`
	BaseAddress Uint32 `yaml:"base_address"`
	Slots       []Slot `yaml:"slots"`
}

// Slot describes one app image. Its slot number is its position in the list.
type Slot struct {
	Mode              string `yaml:"mode"`
	AppVersion        Uint32 `yaml:"app_version"`
	SecurityVersion   Uint32 `yaml:"security_version"`
	StoredAddress     Uint32 `yaml:"stored_address"`
	ImageSize         Uint32 `yaml:"image_size"`
	StoredCRCAddress  Uint32 `yaml:"stored_crc_address"`
	ExecutionAddress  Uint32 `yaml:"execution_address,omitempty"`
	SkipImageCRCCheck bool   `yaml:"skip_image_crc_check,omitempty"`
}

// Parse decodes and validates a manifest.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// LoadFile reads and parses a manifest file.
func LoadFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return Parse(data)
}

// Validate checks what the region package cannot: slot modes and the
// execution address of RAM images.
func (m *Manifest) Validate() error {
	if len(m.Slots) == 0 {
		return fmt.Errorf("manifest has no slots")
	}
	for i, s := range m.Slots {
		switch strings.ToLower(s.Mode) {
		case "", ModeExecuteInPlace:
		case ModeRAM:
			if s.ExecutionAddress == 0 {
				return fmt.Errorf("slot %d: ram image needs execution_address", i)
			}
		default:
			return fmt.Errorf("slot %d: unknown mode %q", i, s.Mode)
		}
	}
	return nil
}

// Descriptors returns one sealed descriptor per slot.
func (m *Manifest) Descriptors() []codec.AppImageDescriptor {
	apps := make([]codec.AppImageDescriptor, len(m.Slots))
	for i, s := range m.Slots {
		params := codec.ImageParams{
			Slot:             uint32(i),
			AppVersion:       uint32(s.AppVersion),
			SecurityVersion:  uint32(s.SecurityVersion),
			Flags:            codec.ImageFlags{SkipImageCRCCheck: s.SkipImageCRCCheck},
			StoredAddress:    uint32(s.StoredAddress),
			ImageSizeBytes:   uint32(s.ImageSize),
			StoredCRCAddress: uint32(s.StoredCRCAddress),
			ExecutionAddress: uint32(s.ExecutionAddress),
		}
		if strings.EqualFold(s.Mode, ModeRAM) {
			apps[i] = *codec.NewRAMImage(params)
		} else {
			apps[i] = *codec.NewExecuteInPlaceImage(params)
		}
	}
	return apps
}

// Build produces a validated region from the manifest.
func (m *Manifest) Build(opts ...region.Option) (*region.Descriptors, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return region.New(uint32(m.ActiveSlot), uint32(m.BaseAddress), m.Descriptors(), opts...)
}

package api

import (
	"time"

	"github.com/ssargent/bootdesc/pkg/codec"
	"github.com/ssargent/bootdesc/pkg/history"
	"github.com/ssargent/bootdesc/pkg/region"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// SwitchRequest selects a new active slot
type SwitchRequest struct {
	Slot *uint32 `json:"slot"`
}

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Port   int
	Bind   string
	APIKey string
}

// HeaderView is the JSON form of a region header
type HeaderView struct {
	DescriptorVersion        string `json:"descriptor_version"`
	AppDescriptorBaseAddress uint32 `json:"app_descriptor_base_address"`
	NumAppSlots              uint32 `json:"num_app_slots"`
	ActiveAppSlot            uint32 `json:"active_app_slot"`
	HeaderCRC                uint32 `json:"header_crc"`
}

// SlotView is one app slot with its descriptor
type SlotView struct {
	Slot       uint32                   `json:"slot"`
	Active     bool                     `json:"active"`
	Descriptor codec.AppImageDescriptor `json:"descriptor"`
}

// RegionView is the JSON form of a validated region
type RegionView struct {
	Header HeaderView `json:"header"`
	Slots  []SlotView `json:"slots"`
}

// SnapshotView describes a stored snapshot without its bytes
type SnapshotView struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	Reason     string    `json:"reason"`
	ActiveSlot uint32    `json:"active_slot"`
	SizeBytes  int       `json:"size_bytes"`
}

// NewHeaderView converts a decoded header
func NewHeaderView(h codec.Header) HeaderView {
	return HeaderView{
		DescriptorVersion:        h.DescriptorVersion.String(),
		AppDescriptorBaseAddress: h.AppDescriptorBaseAddress,
		NumAppSlots:              h.NumAppSlots,
		ActiveAppSlot:            h.ActiveAppSlot,
		HeaderCRC:                h.HeaderCRC,
	}
}

// NewRegionView lists every slot of d in array order
func NewRegionView(d *region.Descriptors) RegionView {
	h := d.Header()
	view := RegionView{Header: NewHeaderView(h), Slots: make([]SlotView, 0, d.Len())}
	for slot, desc := range d.All() {
		view.Slots = append(view.Slots, SlotView{
			Slot:       slot,
			Active:     slot == h.ActiveAppSlot,
			Descriptor: desc,
		})
	}
	return view
}

// NewSnapshotView drops the snapshot bytes, keeping their length
func NewSnapshotView(s history.Snapshot) SnapshotView {
	return SnapshotView{
		ID:         s.ID.String(),
		CreatedAt:  s.CreatedAt,
		Reason:     s.Reason,
		ActiveSlot: s.ActiveSlot,
		SizeBytes:  len(s.Region),
	}
}

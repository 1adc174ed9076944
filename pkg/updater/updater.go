// Package updater performs region changes against a flash image the way an
// update agent does on target: load, modify, snapshot, write, re-verify.
package updater

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	"github.com/ssargent/bootdesc/pkg/codec"
	"github.com/ssargent/bootdesc/pkg/flash"
	"github.com/ssargent/bootdesc/pkg/history"
	"github.com/ssargent/bootdesc/pkg/manifest"
	"github.com/ssargent/bootdesc/pkg/region"
)

// Errors
var (
	ErrHistoryDisabled      = &UpdaterError{"snapshot history is disabled"}
	ErrRegionTooLarge       = &UpdaterError{"region does not fit the configured size"}
	ErrVerifyFailed         = &UpdaterError{"written region failed verification"}
	ErrInvalidSnapshot      = &UpdaterError{"snapshot does not hold a valid region"}
	ErrSnapshotSizeMismatch = &UpdaterError{"snapshot size does not match the region"}
)

// UpdaterError is the kind of an updater failure.
type UpdaterError struct {
	Message string
}

func (e *UpdaterError) Error() string {
	return e.Message
}

// Observer is told about every region load and slot switch.
type Observer interface {
	RegionLoaded(err error)
	SlotSwitched(active uint32, err error)
}

// Config holds the updater configuration.
type Config struct {
	// Offset is the byte offset of the region header in the image
	Offset int64

	// Size is the number of bytes making up the region. Zero means to the
	// end of the image.
	Size int64

	// RegionOptions are passed to every region.Load
	RegionOptions []region.Option

	// Logger is used for logging operations (optional)
	Logger region.Logger

	// Observer receives load and switch outcomes (optional)
	Observer Observer
}

// Updater serializes all access to one region in one image.
type Updater struct {
	mu      sync.Mutex
	image   *flash.Image
	history *history.Store
	config  Config
}

type nopObserver struct{}

func (nopObserver) RegionLoaded(error)         {}
func (nopObserver) SlotSwitched(uint32, error) {}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

// New creates an updater. store may be nil to disable snapshots.
func New(image *flash.Image, store *history.Store, config Config) *Updater {
	if config.Logger == nil {
		config.Logger = nopLogger{}
	}
	if config.Observer == nil {
		config.Observer = nopObserver{}
	}
	return &Updater{image: image, history: store, config: config}
}

func (u *Updater) loadOptions() []region.Option {
	return append(append([]region.Option(nil), u.config.RegionOptions...), region.WithLogger(u.config.Logger))
}

func (u *Updater) readRaw() ([]byte, error) {
	return u.image.ReadRegion(u.config.Offset, u.config.Size)
}

func (u *Updater) load() (*region.Descriptors, []byte, error) {
	raw, err := u.readRaw()
	if err != nil {
		return nil, nil, err
	}
	d, err := region.Load(raw, u.loadOptions()...)
	u.config.Observer.RegionLoaded(err)
	if err != nil {
		return nil, raw, err
	}
	return d, raw, nil
}

// Inspect loads and validates the region.
func (u *Updater) Inspect() (*region.Descriptors, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	d, _, err := u.load()
	return d, err
}

// Verify loads the region and logs the outcome. It is Inspect for callers
// that only need a pass or fail.
func (u *Updater) Verify() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	d, _, err := u.load()
	if err != nil {
		u.config.Logger.Warn("region failed verification", "offset", u.config.Offset, "error", err)
		return err
	}
	h := d.Header()
	u.config.Logger.Info("region verified", "slots", h.NumAppSlots, "active", h.ActiveAppSlot)
	return nil
}

// SwitchSlot marks slot active. The previous region is snapshotted before
// flash is written, and the written region is re-read and validated.
func (u *Updater) SwitchSlot(slot uint32) (*region.Descriptors, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	d, err := u.switchSlot(slot)
	u.config.Observer.SlotSwitched(slot, err)
	return d, err
}

func (u *Updater) switchSlot(slot uint32) (*region.Descriptors, error) {
	current, raw, err := u.load()
	if err != nil {
		return nil, err
	}

	from := current.Header().ActiveAppSlot
	if from == slot {
		if _, err := current.AppAtSlot(slot); err != nil {
			return nil, err
		}
		u.config.Logger.Info("slot already active", "slot", slot)
		return current, nil
	}

	next, err := current.SetActiveSlot(slot)
	if err != nil {
		return nil, err
	}

	if err := u.commit(fmt.Sprintf("switch slot %d to %d", from, slot), from, raw, next.Serialize()); err != nil {
		return nil, err
	}
	return u.reload()
}

// Provision writes a new region built from m, replacing whatever the
// region currently holds.
func (u *Updater) Provision(m *manifest.Manifest) (*region.Descriptors, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	raw, err := u.readRaw()
	if err != nil {
		return nil, err
	}

	// the cap stops a far-away base address before anything is allocated
	built, err := m.Build(append(u.loadOptions(), region.WithMaxSize(len(raw)))...)
	if errors.Is(err, region.ErrRegionTooLarge) {
		return nil, fmt.Errorf("%w: %w", ErrRegionTooLarge, err)
	}
	if err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}

	encoded := built.Serialize()

	// bytes past the new region keep their current contents
	out := bytes.Clone(raw)
	copy(out, encoded)

	if err := u.commit("provision", activeSlotOf(raw), raw, out); err != nil {
		return nil, err
	}
	return u.reload()
}

// Restore writes a snapshot back to flash. The snapshot must hold a valid
// region.
func (u *Updater) Restore(id string) (*region.Descriptors, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.history == nil {
		return nil, ErrHistoryDisabled
	}

	snapID, err := history.ParseID(id)
	if err != nil {
		return nil, err
	}
	snap, err := u.history.Get(snapID)
	if err != nil {
		return nil, err
	}
	if _, err := region.Load(snap.Region, u.loadOptions()...); err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrInvalidSnapshot, id, err)
	}

	raw, err := u.readRaw()
	if err != nil {
		return nil, err
	}
	if len(snap.Region) != len(raw) {
		return nil, fmt.Errorf("%w: snapshot is %d bytes, region is %d", ErrSnapshotSizeMismatch, len(snap.Region), len(raw))
	}

	if err := u.commit("restore "+id, activeSlotOf(raw), raw, snap.Region); err != nil {
		return nil, err
	}
	return u.reload()
}

// History returns up to limit snapshots, newest first.
func (u *Updater) History(limit int) ([]history.Snapshot, error) {
	if u.history == nil {
		return nil, ErrHistoryDisabled
	}
	return u.history.List(limit)
}

// DeleteSnapshot removes one snapshot from the history.
func (u *Updater) DeleteSnapshot(id string) error {
	if u.history == nil {
		return ErrHistoryDisabled
	}
	snapID, err := history.ParseID(id)
	if err != nil {
		return err
	}
	if err := u.history.Delete(snapID); err != nil {
		return err
	}
	u.config.Logger.Info("region snapshot deleted", "id", id)
	return nil
}

// commit snapshots previous and writes next in its place.
func (u *Updater) commit(reason string, activeSlot uint32, previous, next []byte) error {
	if u.history != nil {
		snap, err := u.history.Save(reason, activeSlot, previous)
		if err != nil {
			return err
		}
		u.config.Logger.Info("region snapshot saved", "id", snap.ID.String(), "reason", reason)
	}

	if err := u.image.WriteRegion(u.config.Offset, next); err != nil {
		return err
	}
	u.config.Logger.Info("region written", "reason", reason, "bytes", len(next))
	return nil
}

func (u *Updater) reload() (*region.Descriptors, error) {
	d, _, err := u.load()
	if err != nil {
		u.config.Logger.Error("region failed verification after write", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrVerifyFailed, err)
	}
	return d, nil
}

// activeSlotOf reads the active slot of a region that may not be valid.
func activeSlotOf(raw []byte) uint32 {
	h, err := codec.DecodeHeader(raw)
	if err != nil {
		return 0
	}
	return h.ActiveAppSlot
}

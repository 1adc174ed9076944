// Package history keeps a time-ordered record of bootable regions as they
// were before each change, so a bad switch or provision can be undone.
package history

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/segmentio/ksuid"
)

var keyPrefix = []byte("snap/")

// Errors
var (
	ErrSnapshotNotFound = &HistoryError{"snapshot not found"}
	ErrInvalidID        = &HistoryError{"invalid snapshot id"}
)

// HistoryError is the kind of a history failure.
type HistoryError struct {
	Message string
}

func (e *HistoryError) Error() string {
	return e.Message
}

// Snapshot is a stored copy of a serialized bootable region.
type Snapshot struct {
	ID         ksuid.KSUID `json:"id"`
	CreatedAt  time.Time   `json:"created_at"`
	Reason     string      `json:"reason"`
	ActiveSlot uint32      `json:"active_slot"`
	Region     []byte      `json:"region"`
}

// Store persists snapshots in pebble under KSUID keys. Keys sort by creation
// order, including snapshots taken within the same second.
type Store struct {
	db *pebble.DB

	mu   sync.Mutex
	last ksuid.KSUID
}

// Open opens or creates a snapshot store in dir.
func Open(dir string) (*Store, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open history store: %w", err)
	}

	s := &Store{db: db}
	newest, err := s.List(1)
	if err != nil {
		db.Close()
		return nil, err
	}
	if len(newest) == 1 {
		s.last = newest[0].ID
	}
	return s, nil
}

func snapshotKey(id ksuid.KSUID) []byte {
	return append(append([]byte(nil), keyPrefix...), id.Bytes()...)
}

func (s *Store) nextID() ksuid.KSUID {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := ksuid.New()
	if ksuid.Compare(id, s.last) <= 0 {
		id = s.last.Next()
	}
	s.last = id
	return id
}

// Save stores region as a new snapshot and returns it.
func (s *Store) Save(reason string, activeSlot uint32, region []byte) (Snapshot, error) {
	snap := Snapshot{
		ID:         s.nextID(),
		CreatedAt:  time.Now().UTC(),
		Reason:     reason,
		ActiveSlot: activeSlot,
		Region:     bytes.Clone(region),
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to encode snapshot: %w", err)
	}

	// snapshots guard flash writes, so they must be durable first
	if err := s.db.Set(snapshotKey(snap.ID), data, pebble.Sync); err != nil {
		return Snapshot{}, fmt.Errorf("failed to store snapshot: %w", err)
	}
	return snap, nil
}

// ParseID parses the string form of a snapshot ID.
func ParseID(id string) (ksuid.KSUID, error) {
	parsed, err := ksuid.Parse(id)
	if err != nil {
		return ksuid.Nil, fmt.Errorf("%w %q: %v", ErrInvalidID, id, err)
	}
	return parsed, nil
}

// Get returns the snapshot with the given ID.
func (s *Store) Get(id ksuid.KSUID) (Snapshot, error) {
	data, closer, err := s.db.Get(snapshotKey(id))
	if errors.Is(err, pebble.ErrNotFound) {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrSnapshotNotFound, id)
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to read snapshot: %w", err)
	}
	defer closer.Close()

	return decodeSnapshot(data)
}

func decodeSnapshot(data []byte) (Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return snap, nil
}

// List returns up to limit snapshots, newest first. A limit of zero or less
// returns every snapshot.
func (s *Store) List(limit int) ([]Snapshot, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: keyPrefix,
		UpperBound: prefixEnd(keyPrefix),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer iter.Close()

	var snaps []Snapshot
	for valid := iter.Last(); valid; valid = iter.Prev() {
		snap, err := decodeSnapshot(iter.Value())
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
		if limit > 0 && len(snaps) == limit {
			break
		}
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	return snaps, nil
}

// Delete removes a snapshot.
func (s *Store) Delete(id ksuid.KSUID) error {
	if _, err := s.Get(id); err != nil {
		return err
	}
	if err := s.db.Delete(snapshotKey(id), pebble.Sync); err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func prefixEnd(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}

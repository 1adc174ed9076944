package history

import (
	"os"
	"testing"

	"github.com/segmentio/ksuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	tmpDir, err := os.MkdirTemp("", "bootdesc_history_test")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	store, err := Open(tmpDir)
	require.NoError(t, err)
	return store, tmpDir
}

func TestSaveGet(t *testing.T) {
	store, _ := openTestStore(t)
	defer store.Close()

	region := []byte{0x22, 0x22, 0x22, 0x22, 0x00, 0x01}
	snap, err := store.Save("switch to slot 1", 0, region)
	require.NoError(t, err)
	assert.False(t, snap.ID.IsNil())

	// the caller may reuse its buffer
	region[0] = 0

	got, err := store.Get(snap.ID)
	require.NoError(t, err)
	assert.Equal(t, snap.ID, got.ID)
	assert.Equal(t, "switch to slot 1", got.Reason)
	assert.Equal(t, uint32(0), got.ActiveSlot)
	assert.Equal(t, []byte{0x22, 0x22, 0x22, 0x22, 0x00, 0x01}, got.Region)
	assert.WithinDuration(t, snap.CreatedAt, got.CreatedAt, 0)
}

func TestGet_NotFound(t *testing.T) {
	store, _ := openTestStore(t)
	defer store.Close()

	_, err := store.Get(ksuid.New())
	assert.ErrorIs(t, err, ErrSnapshotNotFound)
}

func TestList_NewestFirst(t *testing.T) {
	store, _ := openTestStore(t)
	defer store.Close()

	var ids []ksuid.KSUID
	for i := 0; i < 5; i++ {
		snap, err := store.Save("provision", uint32(i), []byte{byte(i)})
		require.NoError(t, err)
		ids = append(ids, snap.ID)
	}

	all, err := store.List(0)
	require.NoError(t, err)
	require.Len(t, all, 5)
	for i, snap := range all {
		assert.Equal(t, ids[4-i], snap.ID)
		assert.Equal(t, uint32(4-i), snap.ActiveSlot)
	}

	latest, err := store.List(2)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, ids[4], latest[0].ID)
	assert.Equal(t, ids[3], latest[1].ID)
}

func TestList_Empty(t *testing.T) {
	store, _ := openTestStore(t)
	defer store.Close()

	snaps, err := store.List(10)
	require.NoError(t, err)
	assert.Empty(t, snaps)
}

func TestDelete(t *testing.T) {
	store, _ := openTestStore(t)
	defer store.Close()

	snap, err := store.Save("switch", 1, []byte{1})
	require.NoError(t, err)

	require.NoError(t, store.Delete(snap.ID))
	_, err = store.Get(snap.ID)
	assert.ErrorIs(t, err, ErrSnapshotNotFound)

	assert.ErrorIs(t, store.Delete(snap.ID), ErrSnapshotNotFound)
}

func TestReopen_KeepsOrder(t *testing.T) {
	store, dir := openTestStore(t)

	first, err := store.Save("first", 0, []byte{1})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := Open(dir)
	require.NoError(t, err)
	defer reopened.Close()

	second, err := reopened.Save("second", 1, []byte{2})
	require.NoError(t, err)
	assert.Equal(t, 1, ksuid.Compare(second.ID, first.ID))

	snaps, err := reopened.List(0)
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, "second", snaps[0].Reason)
	assert.Equal(t, "first", snaps[1].Reason)
}

func TestParseID(t *testing.T) {
	id := ksuid.New()

	parsed, err := ParseID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)

	_, err = ParseID("not-a-ksuid")
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestPrefixEnd(t *testing.T) {
	assert.Equal(t, []byte("snap0"), prefixEnd([]byte("snap/")))
	assert.Equal(t, []byte{0x02}, prefixEnd([]byte{0x01, 0xFF}))
	assert.Nil(t, prefixEnd([]byte{0xFF}))
}

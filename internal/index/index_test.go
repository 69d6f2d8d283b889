package index_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/iamNilotpal/ember/internal/codec"
	"github.com/iamNilotpal/ember/internal/index"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSegment(t *testing.T, path string, records [][2]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	for _, kv := range records {
		_, err := codec.Encode(f, []byte(kv[0]), []byte(kv[1]))
		require.NoError(t, err)
	}
}

func TestBuildOneLastWinsOnDuplicateKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "1.store.kv")
	writeSegment(t, path, [][2]string{
		{"k1", "first"},
		{"k2", "only"},
		{"k1", "second"},
	})

	idx, err := index.BuildOne(path, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, idx.Len())

	entry, ok := idx.Lookup("k1")
	require.True(t, ok)
	value, err := index.ReadValue(path, entry)
	require.NoError(t, err)
	assert.Equal(t, "second", string(value))
}

func TestBuildOneTombstoneHasZeroValueSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "1.store.kv")
	writeSegment(t, path, [][2]string{{"k", ""}})

	idx, err := index.BuildOne(path, 1)
	require.NoError(t, err)

	entry, ok := idx.Lookup("k")
	require.True(t, ok)
	assert.EqualValues(t, 0, entry.ValueSize)

	value, err := index.ReadValue(path, entry)
	require.NoError(t, err)
	assert.Nil(t, value)
}

func TestBuildOneCorruptSegmentFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "1.store.kv")
	require.NoError(t, os.WriteFile(path, []byte{0x05, 0x00, 0x00}, 0644))

	_, err := index.BuildOne(path, 1)
	assert.Error(t, err)
}

func TestBuildAllReturnsMaxSegmentID(t *testing.T) {
	dir := t.TempDir()

	path1 := filepath.Join(dir, "1.store.kv")
	path2 := filepath.Join(dir, "2.store.kv")
	writeSegment(t, path1, [][2]string{{"a", "1"}})
	writeSegment(t, path2, [][2]string{{"b", "2"}})

	lister := pathLister{dir: dir, ids: []uint64{1, 2}}
	indexes, maxID, err := index.BuildAll(lister, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 2, maxID)
	assert.Len(t, indexes, 2)
	assert.Equal(t, uint64(1), indexes[1].SegmentID)
	assert.Equal(t, uint64(2), indexes[2].SegmentID)
}

type pathLister struct {
	dir string
	ids []uint64
}

func (p pathLister) ListSegments() ([]uint64, error) { return p.ids, nil }
func (p pathLister) PathFor(id uint64) string {
	return filepath.Join(p.dir, fmt.Sprintf("%d.store.kv", id))
}

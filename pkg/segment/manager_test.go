package segment_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/iamNilotpal/ember/pkg/segment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, nil, 0644))
}

func TestPathForAndIDFromPath(t *testing.T) {
	mgr := segment.New(t.TempDir())

	path := mgr.PathFor(42)
	assert.Equal(t, "42.store.kv", filepath.Base(path))

	id, err := segment.IDFromPath(path)
	require.NoError(t, err)
	assert.EqualValues(t, 42, id)
}

func TestIDFromPathRejectsMalformedNames(t *testing.T) {
	_, err := segment.IDFromPath("/data/not-a-segment.txt")
	assert.Error(t, err)

	_, err = segment.IDFromPath("/data/abc.store.kv")
	assert.Error(t, err)
}

func TestIsSegmentFileExcludesWAL(t *testing.T) {
	assert.True(t, segment.IsSegmentFile("1.store.kv"))
	assert.False(t, segment.IsSegmentFile(segment.WALFileName))
	assert.False(t, segment.IsSegmentFile("notes.txt"))
}

// B3: segment ids with multi-digit numbers must sort numerically, not
// lexicographically -- "11.store.kv" must sort after "9.store.kv".
func TestListSegmentsSortsNumerically(t *testing.T) {
	dir := t.TempDir()
	mgr := segment.New(dir)

	for id := uint64(1); id <= 11; id++ {
		touch(t, mgr.PathFor(id))
	}
	// The WAL and a transient compaction file must both be excluded.
	touch(t, mgr.WALPath())
	touch(t, mgr.TempPathFor(11))

	ids, err := mgr.ListSegments()
	require.NoError(t, err)

	expected := make([]uint64, 0, 11)
	for id := uint64(1); id <= 11; id++ {
		expected = append(expected, id)
	}
	assert.Equal(t, expected, ids)
}

func TestOpenForAppendCreatesAndAppends(t *testing.T) {
	mgr := segment.New(t.TempDir())

	f, err := mgr.OpenForAppend(1)
	require.NoError(t, err)
	_, err = f.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	f, err = mgr.OpenForAppend(1)
	require.NoError(t, err)
	_, err = f.Write([]byte("world"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	data, err := os.ReadFile(mgr.PathFor(1))
	require.NoError(t, err)
	assert.Equal(t, "helloworld", string(data))
}

func TestDeleteAndRenameCompacted(t *testing.T) {
	mgr := segment.New(t.TempDir())

	for id := uint64(1); id <= 3; id++ {
		touch(t, mgr.PathFor(id))
	}

	tmp, err := mgr.OpenTempForAppend(3)
	require.NoError(t, err)
	_, err = tmp.Write([]byte("merged"))
	require.NoError(t, err)
	require.NoError(t, tmp.Close())

	require.NoError(t, mgr.RenameCompacted(3))
	require.NoError(t, mgr.Delete(1))
	require.NoError(t, mgr.Delete(2))

	ids, err := mgr.ListSegments()
	require.NoError(t, err)
	assert.Equal(t, []uint64{3}, ids)

	data, err := os.ReadFile(mgr.PathFor(3))
	require.NoError(t, err)
	assert.Equal(t, "merged", string(data))
}

package memtable_test

import (
	"testing"

	"github.com/iamNilotpal/ember/internal/memtable"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutGetOverwrite(t *testing.T) {
	tbl := memtable.New()
	tbl.Put("k", []byte("v1"))
	tbl.Put("k", []byte("v2"))

	entry, ok := tbl.Get("k")
	require.True(t, ok)
	assert.Equal(t, memtable.Populated, entry.Kind)
	assert.Equal(t, []byte("v2"), entry.Value)
	assert.Equal(t, 1, tbl.Len())
}

func TestRemoveIsTombstone(t *testing.T) {
	tbl := memtable.New()
	tbl.Put("k", []byte("v"))
	tbl.Remove("k")

	entry, ok := tbl.Get("k")
	require.True(t, ok)
	assert.Equal(t, memtable.Tombstone, entry.Kind)
}

func TestEachIteratesInAscendingKeyOrder(t *testing.T) {
	tbl := memtable.New()
	tbl.Put("banana", []byte("2"))
	tbl.Put("apple", []byte("1"))
	tbl.Put("cherry", []byte("3"))

	var keys []string
	tbl.Each(func(key string, entry memtable.Entry) {
		keys = append(keys, key)
	})

	assert.Equal(t, []string{"apple", "banana", "cherry"}, keys)
}

func TestResetClearsTable(t *testing.T) {
	tbl := memtable.New()
	tbl.Put("k", []byte("v"))
	tbl.Reset()

	assert.Equal(t, 0, tbl.Len())
	_, ok := tbl.Get("k")
	assert.False(t, ok)
}

func TestDoubleRemoveIsIdempotent(t *testing.T) {
	tbl := memtable.New()
	tbl.Remove("k")
	tbl.Remove("k")

	assert.Equal(t, 1, tbl.Len())
	entry, ok := tbl.Get("k")
	require.True(t, ok)
	assert.Equal(t, memtable.Tombstone, entry.Kind)
}

// Package memtable implements the sorted, in-memory buffer of pending
// writes that sits in front of the engine's segment files. Keys are kept in
// ascending byte-lexicographic order so that a flush can walk the table
// once and produce a segment whose records are already sorted -- a
// prerequisite the engine relies on for any future sparse-index or
// merge-sort compaction optimization.
package memtable

import "sort"

// Kind distinguishes a live value from a tombstone within the memtable.
type Kind int

const (
	// Populated means the entry carries a live value.
	Populated Kind = iota
	// Tombstone means the key was removed; it still occupies a slot so a
	// flush can persist the deletion and shadow any stale segment copy.
	Tombstone
)

// Entry is one memtable slot: either a live value or a tombstone.
type Entry struct {
	Kind  Kind
	Value []byte
}

// Table is the sorted key -> Entry buffer. It is not safe for concurrent
// use by multiple goroutines; internal/engine serializes all access to it
// under its own lock.
type Table struct {
	entries map[string]Entry
	keys    []string // kept sorted ascending at all times
}

// New returns an empty Table.
func New() *Table {
	return &Table{entries: make(map[string]Entry)}
}

// Put inserts or overwrites key with a live value.
func (t *Table) Put(key string, value []byte) {
	t.set(key, Entry{Kind: Populated, Value: value})
}

// Remove marks key as deleted. The key still occupies a slot (as a
// tombstone) so the deletion itself is observable and survives a flush.
func (t *Table) Remove(key string) {
	t.set(key, Entry{Kind: Tombstone})
}

func (t *Table) set(key string, entry Entry) {
	if _, exists := t.entries[key]; !exists {
		t.insertSorted(key)
	}
	t.entries[key] = entry
}

// insertSorted adds key to the sorted key slice at its correct position.
func (t *Table) insertSorted(key string) {
	i := sort.SearchStrings(t.keys, key)
	t.keys = append(t.keys, "")
	copy(t.keys[i+1:], t.keys[i:])
	t.keys[i] = key
}

// Get returns the entry for key, if resident in the table.
func (t *Table) Get(key string) (Entry, bool) {
	e, ok := t.entries[key]
	return e, ok
}

// Len returns the number of keys currently buffered (live and tombstoned).
func (t *Table) Len() int {
	return len(t.keys)
}

// Each calls fn for every entry in ascending key order. fn must not mutate
// the table; Flush is the only caller and it only reads.
func (t *Table) Each(fn func(key string, entry Entry)) {
	for _, key := range t.keys {
		fn(key, t.entries[key])
	}
}

// Reset clears the table, discarding all entries. Called after a
// successful flush.
func (t *Table) Reset() {
	t.entries = make(map[string]Entry)
	t.keys = t.keys[:0]
}

package index

// Entry is the in-memory record of where one key's most recent value lives
// within a single segment file. ByteOffset points at the start of the
// record (the key_size field), so a reader can seek directly to it.
// ValueSize == 0 marks a tombstone persisted at flush time.
type Entry struct {
	ByteOffset int64
	KeySize    uint32
	ValueSize  uint32
}

// SegmentIndex maps every key in one segment file, tombstones included, to
// its Entry. It is
// built once, at startup or immediately after a flush/compaction writes the
// segment, and never mutated afterward -- segments are immutable.
type SegmentIndex struct {
	SegmentID uint64
	entries   map[string]Entry
}

// New returns an empty index for segmentID, ready for Set calls. Used both
// internally while scanning a segment (BuildOne) and by internal/engine
// while writing a freshly-flushed or freshly-compacted segment.
func New(segmentID uint64) *SegmentIndex {
	return &SegmentIndex{SegmentID: segmentID, entries: make(map[string]Entry)}
}

// newSegmentIndex is an unexported alias kept for readability at call sites
// internal to this package.
func newSegmentIndex(segmentID uint64) *SegmentIndex {
	return New(segmentID)
}

// Lookup returns the entry for key, if present.
func (si *SegmentIndex) Lookup(key string) (Entry, bool) {
	e, ok := si.entries[key]
	return e, ok
}

// Set inserts or overwrites the entry for key. Used both while scanning a
// segment (BuildOne) and while writing one (Engine.Flush/Compact).
func (si *SegmentIndex) Set(key string, entry Entry) {
	si.entries[key] = entry
}

// Len returns the number of distinct keys indexed for this segment.
func (si *SegmentIndex) Len() int {
	return len(si.entries)
}

// Each calls fn for every key/entry pair in the index. Iteration order is
// unspecified; Engine.Compact only needs every entry visited once.
func (si *SegmentIndex) Each(fn func(key string, entry Entry)) {
	for key, entry := range si.entries {
		fn(key, entry)
	}
}

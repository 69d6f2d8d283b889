// Package index builds and holds the in-memory, per-segment indexes that
// let the engine locate a key's record on disk without scanning a segment
// file end to end on every read. Building an index is a one-time linear
// scan; after that, a lookup is a single map access plus one seek.
package index

import (
	"io"
	"os"
	"path/filepath"

	"github.com/iamNilotpal/ember/internal/codec"
	"github.com/iamNilotpal/ember/pkg/errors"
	"go.uber.org/zap"
)

// BuildOne scans the segment file at path end to end and returns the index
// of every key it contains. Duplicate keys within a single segment are
// resolved last-wins, reflecting the flush order of a sorted memtable
// (duplicates cannot occur there) while remaining tolerant of a
// hand-constructed or corrupted file that does contain them.
//
// A decode failure here is always fatal: per the failure-model table, a
// segment that fails to parse is treated as corrupt, unlike a WAL replay
// failure which truncates gracefully.
func BuildOne(path string, segmentID uint64) (*SegmentIndex, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to read segment file").
			WithSegmentID(int(segmentID)).
			WithPath(path)
	}

	idx := newSegmentIndex(segmentID)

	cursor := 0
	for cursor < len(data) {
		offset := cursor
		rec, next, err := codec.Decode(data, cursor)
		if err != nil {
			return nil, errors.NewIndexCorruptionError("BuildOne", idx.Len(), err).
				WithSegmentID(segmentID).
				WithDetail("path", path).
				WithDetail("offset", offset)
		}

		idx.Set(string(rec.Key), Entry{
			ByteOffset: int64(offset),
			KeySize:    rec.KeySize,
			ValueSize:  rec.ValueSize,
		})
		cursor = next
	}

	return idx, nil
}

// segmentLister is the subset of pkg/segment.Manager that BuildAll needs;
// declared locally so this package doesn't import pkg/segment just to build
// indexes for whatever set of ids the caller already enumerated.
type segmentLister interface {
	ListSegments() ([]uint64, error)
	PathFor(id uint64) string
}

// BuildAll builds an index for every segment file known to mgr and returns
// the full index set plus the maximum observed segment id (0 if none
// exist), which seeds Engine.currentSegmentID on startup.
func BuildAll(mgr segmentLister, log *zap.SugaredLogger) (map[uint64]*SegmentIndex, uint64, error) {
	ids, err := mgr.ListSegments()
	if err != nil {
		return nil, 0, err
	}

	indexes := make(map[uint64]*SegmentIndex, len(ids))
	var maxID uint64

	for _, id := range ids {
		idx, err := BuildOne(mgr.PathFor(id), id)
		if err != nil {
			return nil, 0, err
		}
		indexes[id] = idx
		if id > maxID {
			maxID = id
		}
		if log != nil {
			log.Infow("built segment index", "segmentID", id, "keys", idx.Len())
		}
	}

	return indexes, maxID, nil
}

// readValueAt opens the segment at path and reads exactly valueSize bytes
// starting at the value's offset within the record: byteOffset + 4 (key
// size field) + keySize + 4 (value size field). It is used by Engine.Get
// for a segment-resident key.
func readValueAt(path string, byteOffset int64, keySize, valueSize uint32) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.ClassifyFileOpenError(err, path, filepath.Base(path))
	}
	defer f.Close()

	valueOffset := byteOffset + 4 + int64(keySize) + 4
	if _, err := f.Seek(valueOffset, io.SeekStart); err != nil {
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to seek to value offset").
			WithPath(path).WithOffset(int(valueOffset))
	}

	value := make([]byte, valueSize)
	if valueSize > 0 {
		if _, err := io.ReadFull(f, value); err != nil {
			return nil, errors.NewStorageError(err, errors.ErrorCodePayloadReadFailure, "failed to read value payload").
				WithPath(path).WithOffset(int(valueOffset))
		}
	}

	return value, nil
}

// ReadValue is the exported entry point for internal/engine: given a
// segment path and an Entry located in that segment's index, returns the
// value bytes (empty for a tombstone, i.e. ValueSize == 0).
func ReadValue(path string, entry Entry) ([]byte, error) {
	if entry.ValueSize == 0 {
		return nil, nil
	}
	return readValueAt(path, entry.ByteOffset, entry.KeySize, entry.ValueSize)
}

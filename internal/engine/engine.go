// Package engine implements the core log-structured storage engine: a
// memtable backed by a write-ahead log for durability, immutable on-disk
// segments produced by flushing the memtable, and per-segment indexes that
// make reads O(1) instead of a linear file scan.
//
// The engine owns every piece of mutable state involved -- the memtable,
// the WAL writer, the segment indexes, and the current segment id -- and
// guards all of it behind a single sync.RWMutex, making Engine safe for
// concurrent use by its callers rather than pushing synchronization out to
// them.
package engine

import (
	stdErrors "errors"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/iamNilotpal/ember/internal/codec"
	"github.com/iamNilotpal/ember/internal/index"
	"github.com/iamNilotpal/ember/internal/memtable"
	"github.com/iamNilotpal/ember/internal/wal"
	"github.com/iamNilotpal/ember/pkg/errors"
	"github.com/iamNilotpal/ember/pkg/filesys"
	"github.com/iamNilotpal/ember/pkg/options"
	"github.com/iamNilotpal/ember/pkg/segment"
	"go.uber.org/zap"
)

// ErrEngineClosed is returned when attempting to perform operations on a closed engine.
var ErrEngineClosed = stdErrors.New("operation failed: cannot access closed engine")

// Engine coordinates the memtable, write-ahead log, segment manager, and
// per-segment indexes that make up a single store directory.
type Engine struct {
	mu sync.RWMutex

	dir                string
	log                *zap.SugaredLogger
	closed             atomic.Bool
	memtableBytesLimit uint64
	bytesSinceFlush    uint64
	currentSegmentID   uint64

	memtable *memtable.Table
	wal      *wal.Writer
	segments *segment.Manager
	indexes  map[uint64]*index.SegmentIndex
}

// Config holds all the parameters needed to initialize a new Engine instance.
type Config struct {
	Options *options.Options
	Logger  *zap.SugaredLogger
}

// New creates and initializes a new Engine rooted at config.Options.DataDir.
// When KeepExisting is false, the directory is recursively wiped first
// (missing is not an error); it is then ensured to exist. Every existing
// segment is scanned to rebuild its index, current segment id is seeded
// from the highest id found, and the write-ahead log is replayed into the
// memtable before New returns -- this is the engine's crash recovery path.
func New(config *Config) (*Engine, error) {
	if config == nil || config.Options == nil || config.Logger == nil {
		return nil, errors.NewConfigurationValidationError("config", "Options and Logger are both required")
	}

	opts := config.Options
	log := config.Logger

	if !opts.KeepExisting {
		log.Infow("discarding existing data directory", "dir", opts.DataDir)
		if err := filesys.DeleteDir(opts.DataDir); err != nil {
			return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to remove existing data directory").
				WithPath(opts.DataDir)
		}
	}

	if err := filesys.CreateDir(opts.DataDir, 0755, true); err != nil {
		return nil, errors.ClassifyDirectoryCreationError(err, opts.DataDir)
	}

	segments := segment.New(opts.DataDir)

	log.Infow("rebuilding segment indexes", "dir", opts.DataDir)
	indexes, maxID, err := index.BuildAll(segments, log)
	if err != nil {
		return nil, err
	}

	walPath := segments.WALPath()
	walWriter, err := wal.Open(walPath, log)
	if err != nil {
		return nil, err
	}

	table := memtable.New()
	records, err := wal.Replay(walPath, log)
	if err != nil {
		walWriter.Close()
		return nil, err
	}

	for _, rec := range records {
		if rec.ValueSize == 0 {
			table.Remove(string(rec.Key))
		} else {
			table.Put(string(rec.Key), rec.Value)
		}
	}

	log.Infow("engine recovered",
		"dir", opts.DataDir,
		"currentSegmentID", maxID,
		"replayedWALRecords", len(records),
		"segments", len(indexes),
	)

	return &Engine{
		dir:                opts.DataDir,
		log:                log,
		memtableBytesLimit: opts.MemtableBytesLimit,
		currentSegmentID:   maxID,
		memtable:           table,
		wal:                walWriter,
		segments:           segments,
		indexes:            indexes,
	}, nil
}

// validateField rejects keys/values beyond the 2^32-1 byte record limit.
func validateField(field string, b []byte) error {
	if len(b) > codec.MaxFieldSize {
		return errors.NewValueTooLargeError(field, len(b))
	}
	return nil
}

// Put stores key -> value, durably. The record is appended to the
// write-ahead log and synced before the memtable is updated, so a caller
// never observes a put that isn't yet crash-safe. If the accumulated
// key+value bytes written since the last flush exceed MemtableBytesLimit,
// Put triggers a flush before returning.
//
// A zero-length value is on-disk indistinguishable from a tombstone (the
// record codec has no separate flag for it), so Put mirrors that into the
// memtable as a Tombstone entry rather than a Populated one with an empty
// value: without this, Get would report the key present until the next
// flush and absent afterward, since WAL replay and segment reads already
// treat value_size == 0 as a tombstone (B1).
func (e *Engine) Put(key, value []byte) error {
	if err := validateField("key", key); err != nil {
		return err
	}
	if err := validateField("value", value); err != nil {
		return err
	}
	if len(key) == 0 {
		return errors.NewRequiredFieldError("key")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed.Load() {
		return ErrEngineClosed
	}

	if err := e.wal.Append(key, value); err != nil {
		return err
	}

	if len(value) == 0 {
		e.memtable.Remove(string(key))
	} else {
		e.memtable.Put(string(key), value)
	}
	e.bytesSinceFlush += uint64(len(key) + len(value))

	if e.bytesSinceFlush > e.memtableBytesLimit {
		if err := e.flushLocked(); err != nil {
			return err
		}
	}

	return nil
}

// Remove marks key as deleted, durably. Per the distilled spec's explicit
// design choice, removes do not count against bytesSinceFlush: a workload
// of pure deletes never auto-flushes, and requires an explicit Flush call.
func (e *Engine) Remove(key []byte) error {
	if len(key) == 0 {
		return errors.NewRequiredFieldError("key")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed.Load() {
		return ErrEngineClosed
	}

	if err := e.wal.Append(key, nil); err != nil {
		return err
	}

	e.memtable.Remove(string(key))
	return nil
}

// Get returns the value for key, if any. The memtable is authoritative for
// any key resident in it (I1); otherwise segments are consulted from the
// highest id down to 1, stopping (and returning not-found) at the first
// missing index -- segment ids are expected to be dense from 1 up to
// currentSegmentID.
func (e *Engine) Get(key []byte) ([]byte, bool, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.closed.Load() {
		return nil, false, ErrEngineClosed
	}

	if entry, ok := e.memtable.Get(string(key)); ok {
		if entry.Kind == memtable.Tombstone {
			return nil, false, nil
		}
		return entry.Value, true, nil
	}

	for id := e.currentSegmentID; id >= 1; id-- {
		idx, ok := e.indexes[id]
		if !ok {
			gapErr := errors.NewSegmentIDError(id, string(key))
			e.log.Debugw("stopping read at index gap",
				"segmentID", gapErr.SegmentID(), "operation", gapErr.Operation())
			break
		}

		entry, ok := idx.Lookup(string(key))
		if !ok {
			continue
		}

		if entry.ValueSize == 0 {
			return nil, false, nil
		}

		value, err := index.ReadValue(e.segments.PathFor(id), entry)
		if err != nil {
			return nil, false, err
		}
		return value, true, nil
	}

	return nil, false, nil
}

// Flush serializes the current memtable to a new segment file and
// truncates the write-ahead log. It is invoked automatically by Put once
// MemtableBytesLimit is exceeded, and can also be called directly.
func (e *Engine) Flush() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed.Load() {
		return ErrEngineClosed
	}

	return e.flushLocked()
}

// flushLocked implements the flush algorithm. Callers must already hold e.mu
// for writing.
func (e *Engine) flushLocked() error {
	if e.memtable.Len() == 0 {
		// R2: flushing an empty memtable is a no-op; no segment is created.
		return nil
	}

	nextID := e.currentSegmentID + 1

	file, err := e.segments.OpenForAppend(nextID)
	if err != nil {
		return err
	}

	newIndex := index.New(nextID)
	var offset int64

	var writeErr error
	e.memtable.Each(func(key string, entry memtable.Entry) {
		if writeErr != nil {
			return
		}

		var value []byte
		if entry.Kind == memtable.Populated {
			value = entry.Value
		}

		n, err := codec.Encode(file, []byte(key), value)
		if err != nil {
			writeErr = errors.NewStorageError(err, errors.ErrorCodeIO, "failed to write record during flush").
				WithSegmentID(int(nextID)).
				WithOffset(int(offset))
			return
		}

		newIndex.Set(key, index.Entry{
			ByteOffset: offset,
			KeySize:    uint32(len(key)),
			ValueSize:  uint32(len(value)),
		})
		offset += int64(n)
	})

	if writeErr != nil {
		file.Close()
		return writeErr
	}

	segmentPath := e.segments.PathFor(nextID)
	if err := file.Sync(); err != nil {
		file.Close()
		return errors.ClassifySyncError(err, filepath.Base(segmentPath), segmentPath, int(offset))
	}
	if err := file.Close(); err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to close flushed segment").
			WithSegmentID(int(nextID))
	}

	e.currentSegmentID = nextID
	e.indexes[nextID] = newIndex
	e.memtable.Reset()
	e.bytesSinceFlush = 0

	if err := e.wal.Close(); err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to close write-ahead log before truncation")
	}
	if err := wal.Truncate(e.segments.WALPath()); err != nil {
		return err
	}
	newWriter, err := wal.Open(e.segments.WALPath(), e.log)
	if err != nil {
		return err
	}
	e.wal = newWriter

	e.log.Infow("flushed memtable", "segmentID", nextID, "keys", newIndex.Len())
	return nil
}

// Compact merges every existing segment file into one, keeping the
// last-write-wins value per key (later segment ids overwrite earlier
// ones), and preserves the highest existing segment id as the surviving
// file's identity. It is caller-driven; there is no automatic policy.
func (e *Engine) Compact() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed.Load() {
		return ErrEngineClosed
	}

	ids, err := e.segments.ListSegments()
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	type merged struct {
		value     []byte
		tombstone bool
	}
	compacted := make(map[string]merged)
	order := make([]string, 0)

	for _, id := range ids {
		idx, ok := e.indexes[id]
		if !ok {
			continue
		}

		path := e.segments.PathFor(id)
		idx.Each(func(key string, entry index.Entry) {
			if _, exists := compacted[key]; !exists {
				order = append(order, key)
			}
			if entry.ValueSize == 0 {
				compacted[key] = merged{tombstone: true}
				return
			}
			value, readErr := index.ReadValue(path, entry)
			if readErr != nil {
				err = readErr
				return
			}
			compacted[key] = merged{value: value}
		})
		if err != nil {
			return err
		}
	}

	targetID := e.currentSegmentID

	tempFile, err := e.segments.OpenTempForAppend(targetID)
	if err != nil {
		return err
	}

	newIndex := index.New(targetID)
	var offset int64

	for _, key := range order {
		m := compacted[key]
		var value []byte
		if !m.tombstone {
			value = m.value
		}

		n, encErr := codec.Encode(tempFile, []byte(key), value)
		if encErr != nil {
			tempFile.Close()
			return errors.NewStorageError(encErr, errors.ErrorCodeIO, "failed to write record during compaction").
				WithSegmentID(int(targetID))
		}

		newIndex.Set(key, index.Entry{
			ByteOffset: offset,
			KeySize:    uint32(len(key)),
			ValueSize:  uint32(len(value)),
		})
		offset += int64(n)
	}

	tempPath := e.segments.TempPathFor(targetID)
	if err := tempFile.Sync(); err != nil {
		tempFile.Close()
		return errors.ClassifySyncError(err, filepath.Base(tempPath), tempPath, int(offset))
	}
	if err := tempFile.Close(); err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to close compacted segment").
			WithSegmentID(int(targetID))
	}

	if err := e.segments.RenameCompacted(targetID); err != nil {
		return err
	}
	e.indexes[targetID] = newIndex

	for _, id := range ids {
		if id == targetID {
			continue
		}
		if err := e.segments.Delete(id); err != nil {
			return err
		}
		delete(e.indexes, id)
	}

	e.log.Infow("compacted segments", "survivingSegmentID", targetID, "keys", newIndex.Len(), "mergedSegments", len(ids))
	return nil
}

// MemtableBytesLimit returns the current automatic-flush threshold.
func (e *Engine) MemtableBytesLimit() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.memtableBytesLimit
}

// SetMemtableBytesLimit updates the automatic-flush threshold.
func (e *Engine) SetMemtableBytesLimit(limit uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.memtableBytesLimit = limit
}

// Close gracefully shuts down the engine, closing the write-ahead log
// handle. It does not implicitly flush; callers that want a durable
// shutdown should call Flush first.
func (e *Engine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return ErrEngineClosed
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	return e.wal.Close()
}

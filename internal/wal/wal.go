// Package wal implements the write-ahead log that backs the engine's
// memtable: every put/remove is encoded as a record (internal/codec) and
// appended here before it is visible in memory, giving the engine crash
// durability without waiting for a segment flush. The log is truncated
// after every successful flush, since a flushed memtable no longer needs
// WAL-based recovery.
package wal

import (
	"os"
	"path/filepath"

	"github.com/iamNilotpal/ember/internal/codec"
	"github.com/iamNilotpal/ember/pkg/errors"
	"go.uber.org/zap"
)

// Writer is the append-only handle on a store's write-ahead log file. It is
// the only long-lived write-side handle besides whatever segment file is
// currently being flushed.
type Writer struct {
	path string
	file *os.File
	log  *zap.SugaredLogger
}

// Open opens (creating if necessary) the WAL file at path in append mode,
// positioned at the end of any existing content.
func Open(path string, log *zap.SugaredLogger) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		return nil, errors.ClassifyFileOpenError(err, path, filepath.Base(path))
	}
	return &Writer{path: path, file: f, log: log}, nil
}

// Append encodes one record and writes it to the log, syncing before it
// returns. Per the failure-model table, any I/O error here is fatal: a
// caller cannot consider a put/remove durable until Append succeeds, so the
// error is surfaced rather than retried or swallowed.
func (w *Writer) Append(key, value []byte) error {
	if _, err := codec.Encode(w.file, key, value); err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to append record to write-ahead log").
			WithPath(w.path)
	}
	if err := w.file.Sync(); err != nil {
		return errors.ClassifySyncError(err, filepath.Base(w.path), w.path, 0)
	}
	return nil
}

// Close closes the underlying file handle.
func (w *Writer) Close() error {
	return w.file.Close()
}

// Record is one successfully-replayed WAL entry, decoded in file order.
type Record struct {
	Key       []byte
	Value     []byte
	ValueSize uint32
}

// Replay reads path fully (treating a missing file as empty) and decodes
// records sequentially, returning every one it could parse in file order.
// Replay stops at the first decode failure rather than propagating it: a
// torn tail from a partial crash write is expected and tolerated, per the
// failure-model table's distinction between WAL replay (truncate) and
// segment reads (fatal).
func Replay(path string, log *zap.SugaredLogger) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to read write-ahead log").
			WithPath(path)
	}

	var records []Record
	cursor := 0
	for cursor < len(data) {
		rec, next, err := codec.Decode(data, cursor)
		if err != nil {
			if log != nil {
				log.Warnw("truncating write-ahead log replay at first bad record",
					"path", path, "offset", cursor, "error", err)
			}
			break
		}
		records = append(records, Record{Key: rec.Key, Value: rec.Value, ValueSize: rec.ValueSize})
		cursor = next
	}

	return records, nil
}

// Truncate replaces the live WAL file at path with a fresh, empty one:
// create a sibling ".temp" file, then atomically rename it over path. The
// caller must close its existing Writer before calling Truncate and reopen
// a new Writer on path afterward (internal/engine.Flush does both).
func Truncate(path string) error {
	tempPath := path + ".temp"

	f, err := os.OpenFile(tempPath, os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0644)
	if err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to create temporary write-ahead log").
			WithPath(tempPath)
	}
	if err := f.Close(); err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to close temporary write-ahead log").
			WithPath(tempPath)
	}

	if err := os.Rename(tempPath, path); err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to rename write-ahead log into place").
			WithPath(path)
	}

	return nil
}

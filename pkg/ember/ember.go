// Package ember provides a high-performance key/value data store designed
// for fast read and write operations, inspired by Bitcask. It combines a
// sorted in-memory buffer (the memtable) with an append-only log structure
// on disk to achieve high throughput, durability across restarts, and
// periodic reclamation of stale records through compaction.
package ember

import (
	"context"
	"time"

	"github.com/iamNilotpal/ember/internal/compaction"
	"github.com/iamNilotpal/ember/internal/engine"
	"github.com/iamNilotpal/ember/pkg/logger"
	"github.com/iamNilotpal/ember/pkg/options"
)

// DB is the primary entry point for interacting with an ember store. It
// wraps the underlying engine, which is already safe for concurrent use,
// and additionally owns the optional background compaction scheduler.
type DB struct {
	engine    *engine.Engine
	options   *options.Options
	scheduler *compaction.Scheduler
}

// Open creates and initializes a new DB instance rooted at dir, applying
// any functional options on top of the package defaults. If
// Options.CompactInterval is positive, a background compaction scheduler is
// started immediately.
func Open(dir string, opts ...options.OptionFunc) (*DB, error) {
	cfg := options.NewDefaultOptions()
	cfg.DataDir = dir
	for _, opt := range opts {
		opt(&cfg)
	}

	log := logger.New("ember")

	eng, err := engine.New(&engine.Config{Logger: log, Options: &cfg})
	if err != nil {
		return nil, err
	}

	db := &DB{engine: eng, options: &cfg}

	db.scheduler = compaction.NewScheduler(eng, cfg.CompactInterval, log)
	db.scheduler.Start(context.Background())

	return db, nil
}

// Put stores a key-value pair in the database. If the key already exists,
// its value is overwritten. The write is durable as soon as Put returns: it
// has already been appended to the write-ahead log.
func (db *DB) Put(key, value []byte) error {
	return db.engine.Put(key, value)
}

// Get retrieves the value associated with key. found is false when the key
// is absent or was removed; err is non-nil only on a genuine I/O or
// corruption failure.
func (db *DB) Get(key []byte) ([]byte, bool, error) {
	return db.engine.Get(key)
}

// Remove marks key as deleted. The deletion is durable immediately and will
// be persisted as a tombstone on the next flush; compaction keeps the
// tombstone rather than dropping it.
func (db *DB) Remove(key []byte) error {
	return db.engine.Remove(key)
}

// Flush writes the current memtable to a new immutable segment file,
// regardless of whether the configured byte threshold has been reached.
// Flushing an empty memtable is a no-op.
func (db *DB) Flush() error {
	return db.engine.Flush()
}

// Compact merges every existing segment into a single segment, keeping
// only the most recent value (or tombstone) for each key. Tombstones are
// retained rather than dropped; this version performs no garbage
// collection of deleted keys. It may be called at any time, independent
// of whether the background compaction scheduler is enabled.
func (db *DB) Compact() error {
	return db.engine.Compact()
}

// MemtableBytesLimit returns the byte threshold that triggers an automatic
// flush.
func (db *DB) MemtableBytesLimit() uint64 {
	return db.engine.MemtableBytesLimit()
}

// SetMemtableBytesLimit changes the automatic-flush threshold for
// subsequent writes.
func (db *DB) SetMemtableBytesLimit(limit uint64) {
	db.engine.SetMemtableBytesLimit(limit)
}

// CompactInterval returns the configured background compaction cadence.
// Zero means the scheduler is disabled and compaction is manual-only.
func (db *DB) CompactInterval() time.Duration {
	return db.options.CompactInterval
}

// Close stops the background compaction scheduler (if running) and closes
// the underlying engine, flushing no pending writes beyond what is already
// in the write-ahead log. A second Close does no further shutdown work and
// returns engine.ErrEngineClosed.
func (db *DB) Close() error {
	db.scheduler.Stop()
	return db.engine.Close()
}

// Package options provides data structures and functions for configuring
// ember. It defines the parameters that control the engine's storage
// behavior, flush threshold, and background compaction cadence.
package options

import (
	"strings"
	"time"
)

// Options defines the configuration parameters for an ember database.
type Options struct {
	// Specifies the base path where segment files and the write-ahead log
	// are stored.
	//
	// Default: "/var/lib/emberdb"
	DataDir string `json:"dataDir"`

	// KeepExisting controls whether Open preserves a pre-existing DataDir
	// (replaying its WAL and rebuilding segment indexes) or wipes it for a
	// clean start.
	//
	// Default: true
	KeepExisting bool `json:"keepExisting"`

	// MemtableBytesLimit is the threshold, in key+value bytes written since
	// the last flush, that triggers an automatic flush to a new segment.
	//
	// Default: 5 MiB
	MemtableBytesLimit uint64 `json:"memtableBytesLimit"`

	// CompactInterval configures the optional background compaction
	// scheduler. Zero disables the scheduler; Engine.Compact remains
	// callable directly regardless of this setting.
	//
	// Default: 0 (disabled)
	CompactInterval time.Duration `json:"compactInterval"`
}

// OptionFunc is a function type that modifies an ember database's configuration.
type OptionFunc func(*Options)

// WithDataDir sets the primary data directory for the database.
func WithDataDir(directory string) OptionFunc {
	return func(o *Options) {
		directory = strings.TrimSpace(directory)
		if directory != "" {
			o.DataDir = directory
		}
	}
}

// WithKeepExisting controls whether Open preserves an existing data
// directory instead of wiping it.
func WithKeepExisting(keep bool) OptionFunc {
	return func(o *Options) {
		o.KeepExisting = keep
	}
}

// WithMemtableBytesLimit sets the automatic-flush threshold.
func WithMemtableBytesLimit(limit uint64) OptionFunc {
	return func(o *Options) {
		if limit > 0 {
			o.MemtableBytesLimit = limit
		}
	}
}

// WithCompactInterval enables the background compaction scheduler at the
// given cadence. A non-positive interval leaves compaction manual-only.
func WithCompactInterval(interval time.Duration) OptionFunc {
	return func(o *Options) {
		if interval > 0 {
			o.CompactInterval = interval
		}
	}
}

package options

import "time"

const (
	// Specifies the default base directory where ember will store its data files.
	// If no other directory is specified during initialization, this path will be used.
	DefaultDataDir = "/var/lib/emberdb"

	// Defines the default time duration between automatic compaction operations.
	// Zero disables the background scheduler; Engine.Compact remains callable
	// directly regardless.
	DefaultCompactInterval = time.Duration(0)

	// Specifies the default flush threshold, in key+value bytes written since
	// the last flush. Once exceeded, the active memtable is written out to a
	// new immutable segment.
	DefaultMemtableBytesLimit uint64 = 5 * 1024 * 1024

	// Specifies whether Open preserves a pre-existing data directory by
	// default, replaying its write-ahead log and rebuilding segment indexes.
	DefaultKeepExisting = true
)

// Holds the default configuration settings for an ember instance.
var defaultOptions = Options{
	DataDir:            DefaultDataDir,
	CompactInterval:    DefaultCompactInterval,
	MemtableBytesLimit: DefaultMemtableBytesLimit,
	KeepExisting:       DefaultKeepExisting,
}

// NewDefaultOptions returns a copy of ember's default configuration.
func NewDefaultOptions() Options {
	return defaultOptions
}

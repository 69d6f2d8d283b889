// Package segment manages the on-disk segment files that make up an
// ember store: assigning ids, mapping them to filenames, creating and
// deleting the files, and enumerating a directory's segments in the order
// the engine and compaction require.
//
// Filename Format: <segment_id>.store.kv
//
// Where:
//   - segment_id: the decimal, unpadded 64-bit id assigned at flush time.
//   - .store.kv: a fixed suffix identifying the file as a segment.
//
// Example filenames:
//
//	1.store.kv
//	2.store.kv
//	11.store.kv
package segment

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/iamNilotpal/ember/pkg/errors"
	"github.com/iamNilotpal/ember/pkg/filesys"
)

// Suffix is the fixed extension every segment filename ends with.
const Suffix = ".store.kv"

// TempPrefix marks a segment file as a transient, mid-compaction artifact
// that has not yet been renamed into place.
const TempPrefix = "temp."

// WALFileName is the fixed filename of the write-ahead log within a store
// directory. Manager excludes it from ListSegments.
const WALFileName = "write_ahead_log.txt"

// Manager resolves segment ids to paths within a single store directory and
// performs the filesystem operations segment files require.
type Manager struct {
	dir string
}

// New returns a Manager rooted at dir. It does not create the directory;
// callers are expected to have done so already (internal/engine does this
// during recovery).
func New(dir string) *Manager {
	return &Manager{dir: dir}
}

// PathFor returns the absolute path of the segment file for id.
func (m *Manager) PathFor(id uint64) string {
	return filepath.Join(m.dir, fmt.Sprintf("%d%s", id, Suffix))
}

// TempPathFor returns the absolute path of the transient file compaction
// writes to before renaming it over PathFor(id).
func (m *Manager) TempPathFor(id uint64) string {
	return filepath.Join(m.dir, fmt.Sprintf("%s%d%s", TempPrefix, id, Suffix))
}

// IDFromPath parses the segment id out of a segment file path. It fails
// with ErrorCodeMalformed if the filename doesn't carry a valid decimal
// prefix before Suffix.
func IDFromPath(path string) (uint64, error) {
	base := filepath.Base(path)
	base = strings.TrimPrefix(base, TempPrefix)

	if !strings.HasSuffix(base, Suffix) {
		return 0, errors.NewMalformedError(
			nil, "filename does not end with the segment suffix",
		).WithFileName(filepath.Base(path))
	}

	idStr := strings.TrimSuffix(base, Suffix)
	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		return 0, errors.NewMalformedError(
			err, "segment filename does not carry a valid numeric id",
		).WithFileName(filepath.Base(path))
	}

	return id, nil
}

// IsSegmentFile reports whether path names a (possibly transient) segment
// file -- anything ending in Suffix that isn't the WAL.
func IsSegmentFile(path string) bool {
	base := filepath.Base(path)
	if base == WALFileName {
		return false
	}
	return strings.HasSuffix(base, Suffix)
}

// ListSegments returns every live (non-transient) segment file in dir,
// sorted by parsed numeric id ascending.
//
// This sorts by the id extracted from each filename, never by the raw
// filename string: a lexicographic sort of "1.store.kv", "11.store.kv",
// "2.store.kv" would place "11.store.kv" before "2.store.kv", which is
// wrong the moment ids reach two digits.
func (m *Manager) ListSegments() ([]uint64, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to read store directory").
			WithPath(m.dir)
	}

	ids := make([]uint64, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, TempPrefix) {
			continue
		}
		if !IsSegmentFile(name) {
			continue
		}

		id, err := IDFromPath(name)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// OpenForAppend opens (creating if necessary) the segment file for id in
// append-only mode, positioned at the end of any existing content.
func (m *Manager) OpenForAppend(id uint64) (*os.File, error) {
	path := m.PathFor(id)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		return nil, errors.ClassifyFileOpenError(err, path, filepath.Base(path))
	}
	return file, nil
}

// OpenTempForAppend opens the transient compaction file for targetID.
func (m *Manager) OpenTempForAppend(targetID uint64) (*os.File, error) {
	path := m.TempPathFor(targetID)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0644)
	if err != nil {
		return nil, errors.ClassifyFileOpenError(err, path, filepath.Base(path))
	}
	return file, nil
}

// Delete removes the segment file with the given id.
func (m *Manager) Delete(id uint64) error {
	path := m.PathFor(id)
	if err := filesys.DeleteFile(path); err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to delete segment file").
			WithSegmentID(int(id)).
			WithPath(path)
	}
	return nil
}

// Rename atomically replaces newPath's contents with oldPath's, removing
// oldPath. Used by compaction (via RenameCompacted) to rename a temp file
// over a live segment; WAL truncation renames its own file with os.Rename
// inside internal/wal.
func (m *Manager) Rename(oldPath, newPath string) error {
	if err := os.Rename(oldPath, newPath); err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to rename file into place").
			WithPath(newPath)
	}
	return nil
}

// RenameCompacted atomically replaces the segment file for targetID with
// the transient compaction file, the last step of Engine.Compact.
func (m *Manager) RenameCompacted(targetID uint64) error {
	return m.Rename(m.TempPathFor(targetID), m.PathFor(targetID))
}

// Dir returns the store directory this Manager is rooted at.
func (m *Manager) Dir() string {
	return m.dir
}

// WALPath returns the absolute path of the write-ahead log file.
func (m *Manager) WALPath() string {
	return filepath.Join(m.dir, WALFileName)
}

// Package codec implements the bit-exact on-disk framing shared by segment
// files and the write-ahead log. A record is a self-describing key/value
// pair: a 4-byte little-endian key length, the key bytes, a 4-byte
// little-endian value length, and the value bytes. The package performs no
// I/O of its own; callers supply an io.Writer to encode into and a byte
// slice to decode from.
package codec

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/iamNilotpal/ember/pkg/errors"
)

// sizeFieldWidth is the width, in bytes, of the key_size and value_size
// fields that prefix every record.
const sizeFieldWidth = 4

// MaxFieldSize is the largest permissible length, in bytes, for a single key
// or value: 2^32 - 1, the range of the little-endian size prefix.
const MaxFieldSize = math.MaxUint32

// Record is a decoded key/value pair along with the on-disk footprint it
// occupied. ValueSize == 0 is the tombstone convention; interpreting it as a
// deletion is the memtable/engine's responsibility, not this package's.
type Record struct {
	Key       []byte
	Value     []byte
	KeySize   uint32
	ValueSize uint32
	// EntrySize is the total number of bytes the record occupies on disk,
	// header included: 4 + KeySize + 4 + ValueSize.
	EntrySize uint32
}

// Encode writes a single record to w: key_size, key, value_size, value. A
// nil value is treated identically to an empty one (value_size = 0), which
// is the tombstone encoding. Encode returns the number of bytes written.
//
// Encode validates neither key nor value length; callers must reject
// oversized fields before reaching the codec (see pkg/errors.NewValueTooLargeError).
func Encode(w io.Writer, key, value []byte) (int, error) {
	var header [sizeFieldWidth]byte
	written := 0

	binary.LittleEndian.PutUint32(header[:], uint32(len(key)))
	n, err := w.Write(header[:])
	written += n
	if err != nil {
		return written, err
	}

	n, err = w.Write(key)
	written += n
	if err != nil {
		return written, err
	}

	binary.LittleEndian.PutUint32(header[:], uint32(len(value)))
	n, err = w.Write(header[:])
	written += n
	if err != nil {
		return written, err
	}

	n, err = w.Write(value)
	written += n
	if err != nil {
		return written, err
	}

	return written, nil
}

// Decode reads a single record out of buf starting at cursor. It returns the
// decoded record and the cursor position immediately past it. Decode fails
// with a *pkg/errors.StorageError carrying ErrorCodeMalformed whenever fewer
// bytes remain than a field requires -- this covers both a genuinely
// corrupt segment and the torn tail of a partial crash write in the WAL, the
// two cases distinguished by how each caller reacts to the error.
func Decode(buf []byte, cursor int) (Record, int, error) {
	start := cursor

	keySize, cursor, err := readUint32(buf, cursor)
	if err != nil {
		return Record{}, start, err
	}

	key, cursor, err := readBytes(buf, cursor, int(keySize))
	if err != nil {
		return Record{}, start, err
	}

	valueSize, cursor, err := readUint32(buf, cursor)
	if err != nil {
		return Record{}, start, err
	}

	value, cursor, err := readBytes(buf, cursor, int(valueSize))
	if err != nil {
		return Record{}, start, err
	}

	return Record{
		Key:       key,
		Value:     value,
		KeySize:   keySize,
		ValueSize: valueSize,
		EntrySize: uint32(cursor - start),
	}, cursor, nil
}

func readUint32(buf []byte, cursor int) (uint32, int, error) {
	if cursor+sizeFieldWidth > len(buf) {
		return 0, cursor, errors.NewMalformedError(
			io.ErrUnexpectedEOF, "insufficient bytes remaining for a length prefix",
		).WithOffset(cursor)
	}
	return binary.LittleEndian.Uint32(buf[cursor : cursor+sizeFieldWidth]), cursor + sizeFieldWidth, nil
}

func readBytes(buf []byte, cursor int, size int) ([]byte, int, error) {
	if cursor+size > len(buf) {
		return nil, cursor, errors.NewMalformedError(
			io.ErrUnexpectedEOF, "insufficient bytes remaining for a record field",
		).WithOffset(cursor)
	}
	// Copy rather than reslice so the decoded record stays valid after buf
	// is reused or discarded by the caller.
	out := make([]byte, size)
	copy(out, buf[cursor:cursor+size])
	return out, cursor + size, nil
}

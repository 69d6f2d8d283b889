// Package protocol implements the wire framing the TCP server and client
// exchange: a simple-string frame for control messages (PING/PONG), a
// binary key-value frame for PUT/GET/REMOVE payloads, and an error frame
// for reporting a failed request without dropping the connection.
//
// Grounded in the Redis-inspired framing sketched by the original prototype,
// with two corrections made explicit here rather than carried over silently:
// length fields are little-endian throughout (matching internal/codec's
// on-disk convention instead of the prototype's inconsistent big/little
// mix), and every field is a fixed 4-byte integer rather than an ASCII
// decimal string.
package protocol

import (
	"bufio"
	"encoding/binary"
	"io"

	"github.com/iamNilotpal/ember/pkg/errors"
)

// Frame type tags, each the first byte written to the wire.
const (
	TypeSimple byte = '+'
	TypeBinary byte = '$'
	TypeError  byte = '-'
)

// Op distinguishes the three binary-frame commands/responses. It is the
// byte immediately following the '$' type tag.
type Op byte

const (
	// OpPut carries a key and a value; sent request-only, no response.
	OpPut Op = 'P'
	// OpGet carries a key with an empty value on the request; the response
	// reuses OpGet and carries the looked-up value plus Present.
	OpGet Op = 'G'
	// OpRemove carries a key and an empty value; sent request-only, no
	// response.
	OpRemove Op = 'R'
)

const lengthFieldWidth = 4

// Frame is a single decoded unit read off the wire. Exactly one of Text or
// (Op, Key, Value) is meaningful, depending on Type.
type Frame struct {
	Type  byte
	Text  string // set for TypeSimple and TypeError
	Op    Op     // set for TypeBinary
	Key   []byte // set for TypeBinary
	Value []byte // set for TypeBinary
	// Present is meaningful only on an OpGet response: it distinguishes a
	// present-but-empty value from a not-found result, since both carry a
	// zero-length Value.
	Present bool
}

// WriteSimple writes a '+'-tagged line, e.g. "PING" or "PONG".
func WriteSimple(w io.Writer, text string) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.Write([]byte{TypeSimple}); err != nil {
		return err
	}
	if _, err := bw.WriteString(text); err != nil {
		return err
	}
	if _, err := bw.WriteString("\r\n"); err != nil {
		return err
	}
	return bw.Flush()
}

// WriteError writes a '-'-tagged error line.
func WriteError(w io.Writer, text string) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.Write([]byte{TypeError}); err != nil {
		return err
	}
	if _, err := bw.WriteString(text); err != nil {
		return err
	}
	if _, err := bw.WriteString("\r\n"); err != nil {
		return err
	}
	return bw.Flush()
}

// WriteBinary writes a '$'-tagged key-value frame:
// $<op><key-len><key><value-len><value><present>, lengths 4-byte
// little-endian and present a single trailing byte (1 or 0) so an OpGet
// response can distinguish "found, empty value" from "not found".
func WriteBinary(w io.Writer, op Op, key, value []byte, present bool) error {
	bw := bufio.NewWriter(w)

	if _, err := bw.Write([]byte{TypeBinary, byte(op)}); err != nil {
		return err
	}

	var lenBuf [lengthFieldWidth]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(key)))
	if _, err := bw.Write(lenBuf[:]); err != nil {
		return err
	}
	if _, err := bw.Write(key); err != nil {
		return err
	}

	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(value)))
	if _, err := bw.Write(lenBuf[:]); err != nil {
		return err
	}
	if _, err := bw.Write(value); err != nil {
		return err
	}

	presentByte := byte(0)
	if present {
		presentByte = 1
	}
	if err := bw.WriteByte(presentByte); err != nil {
		return err
	}

	return bw.Flush()
}

// WritePut writes a PUT request frame.
func WritePut(w io.Writer, key, value []byte) error {
	return WriteBinary(w, OpPut, key, value, false)
}

// WriteGetRequest writes a GET request frame.
func WriteGetRequest(w io.Writer, key []byte) error {
	return WriteBinary(w, OpGet, key, nil, false)
}

// WriteGetResponse writes a GET response frame, echoing back key and
// reporting whether it was found.
func WriteGetResponse(w io.Writer, key, value []byte, found bool) error {
	return WriteBinary(w, OpGet, key, value, found)
}

// WriteRemove writes a REMOVE request frame.
func WriteRemove(w io.Writer, key []byte) error {
	return WriteBinary(w, OpRemove, key, nil, false)
}

// ReadFrame reads and decodes exactly one frame from r. It returns io.EOF
// (unwrapped, checkable with errors.Is) when the connection closes cleanly
// between frames.
func ReadFrame(r *bufio.Reader) (Frame, error) {
	tag, err := r.ReadByte()
	if err != nil {
		return Frame{}, err
	}

	switch tag {
	case TypeSimple, TypeError:
		line, err := readLine(r)
		if err != nil {
			return Frame{}, err
		}
		return Frame{Type: tag, Text: line}, nil

	case TypeBinary:
		opByte, err := r.ReadByte()
		if err != nil {
			return Frame{}, err
		}
		key, err := readLengthPrefixed(r)
		if err != nil {
			return Frame{}, err
		}
		value, err := readLengthPrefixed(r)
		if err != nil {
			return Frame{}, err
		}
		presentByte, err := r.ReadByte()
		if err != nil {
			return Frame{}, err
		}
		return Frame{Type: tag, Op: Op(opByte), Key: key, Value: value, Present: presentByte == 1}, nil

	default:
		return Frame{}, errors.NewMalformedError(nil, "unrecognized frame tag").
			WithDetail("tag", tag)
	}
}

// readLine reads bytes up to and including the "\r\n" terminator and
// returns the line without it.
func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return "", err
	}
	line = line[:len(line)-1] // drop \n
	if len(line) > 0 && line[len(line)-1] == '\r' {
		line = line[:len(line)-1]
	}
	return line, nil
}

func readLengthPrefixed(r *bufio.Reader) ([]byte, error) {
	var lenBuf [lengthFieldWidth]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}

	size := binary.LittleEndian.Uint32(lenBuf[:])
	buf := make([]byte, size)
	if size > 0 {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
	}
	return buf, nil
}

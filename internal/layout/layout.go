// Package layout implements the fixed byte layouts shared by the shielded pool
// program and this client.
//
// All integers are little-endian. Variable length byte strings are prefixed
// with a u32 length (WriteVec), except inside Solana transaction messages which
// use the compact-u16 "short vec" prefix (WriteCompactU16).
package layout

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	// ErrShortBuffer is returned when a read runs past the end of the input.
	ErrShortBuffer = errors.New("layout: short buffer")

	// ErrTrailingBytes is returned by ExpectEOF when unread bytes remain.
	ErrTrailingBytes = errors.New("layout: trailing bytes")

	// ErrCompactU16Overflow is returned for values that do not fit a compact-u16.
	ErrCompactU16Overflow = errors.New("layout: compact-u16 overflow")
)

// Writer appends fixed-width fields to an in-memory buffer.
type Writer struct {
	buf bytes.Buffer
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer {
	return &Writer{}
}

// WriteFixed appends b, which must be exactly size bytes long.
func (w *Writer) WriteFixed(b []byte, size int) error {
	if len(b) != size {
		return fmt.Errorf("layout: fixed field must be %d bytes, got %d", size, len(b))
	}
	w.buf.Write(b)
	return nil
}

// WriteRaw appends b without any prefix.
func (w *Writer) WriteRaw(b []byte) {
	w.buf.Write(b)
}

func (w *Writer) WriteU8(v uint8) {
	w.buf.WriteByte(v)
}

func (w *Writer) WriteU16LE(v uint16) {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	w.buf.Write(tmp[:])
}

func (w *Writer) WriteU32LE(v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	w.buf.Write(tmp[:])
}

func (w *Writer) WriteU64LE(v uint64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	w.buf.Write(tmp[:])
}

// WriteI64LE appends v as an 8-byte two's-complement little-endian integer.
func (w *Writer) WriteI64LE(v int64) {
	w.WriteU64LE(uint64(v))
}

// WriteVec appends a u32 little-endian length followed by b. An empty or nil
// slice is written as a zero length.
func (w *Writer) WriteVec(b []byte) {
	w.WriteU32LE(uint32(len(b)))
	w.buf.Write(b)
}

// WriteCompactU16 appends n in Solana's compact-u16 encoding (7 bits per byte,
// high bit set on continuation, at most 3 bytes).
func (w *Writer) WriteCompactU16(n int) error {
	if n < 0 || n > 0xffff {
		return ErrCompactU16Overflow
	}
	v := uint16(n)
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			w.buf.WriteByte(b)
			return nil
		}
		w.buf.WriteByte(b | 0x80)
	}
}

// Bytes returns a copy of the written bytes.
func (w *Writer) Bytes() []byte {
	out := make([]byte, w.buf.Len())
	copy(out, w.buf.Bytes())
	return out
}

func (w *Writer) Len() int {
	return w.buf.Len()
}

// Reader consumes fields written by Writer.
type Reader struct {
	data []byte
	off  int
}

// NewReader returns a Reader over data. The slice is not copied.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Remaining reports the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.data) - r.off
}

// ExpectEOF fails with ErrTrailingBytes if any input is left unread.
func (r *Reader) ExpectEOF() error {
	if r.Remaining() != 0 {
		return fmt.Errorf("%w: %d", ErrTrailingBytes, r.Remaining())
	}
	return nil
}

// ReadFixed returns a copy of the next n bytes.
func (r *Reader) ReadFixed(n int) ([]byte, error) {
	if n < 0 || r.Remaining() < n {
		return nil, ErrShortBuffer
	}
	out := make([]byte, n)
	copy(out, r.data[r.off:r.off+n])
	r.off += n
	return out, nil
}

// ReadInto fills dst from the input.
func (r *Reader) ReadInto(dst []byte) error {
	if r.Remaining() < len(dst) {
		return ErrShortBuffer
	}
	copy(dst, r.data[r.off:r.off+len(dst)])
	r.off += len(dst)
	return nil
}

func (r *Reader) ReadU8() (uint8, error) {
	if r.Remaining() < 1 {
		return 0, ErrShortBuffer
	}
	v := r.data[r.off]
	r.off++
	return v, nil
}

func (r *Reader) ReadU16LE() (uint16, error) {
	if r.Remaining() < 2 {
		return 0, ErrShortBuffer
	}
	v := binary.LittleEndian.Uint16(r.data[r.off:])
	r.off += 2
	return v, nil
}

func (r *Reader) ReadU32LE() (uint32, error) {
	if r.Remaining() < 4 {
		return 0, ErrShortBuffer
	}
	v := binary.LittleEndian.Uint32(r.data[r.off:])
	r.off += 4
	return v, nil
}

func (r *Reader) ReadU64LE() (uint64, error) {
	if r.Remaining() < 8 {
		return 0, ErrShortBuffer
	}
	v := binary.LittleEndian.Uint64(r.data[r.off:])
	r.off += 8
	return v, nil
}

func (r *Reader) ReadI64LE() (int64, error) {
	v, err := r.ReadU64LE()
	return int64(v), err
}

// ReadVec reads a u32 length prefix and that many bytes.
func (r *Reader) ReadVec() ([]byte, error) {
	n, err := r.ReadU32LE()
	if err != nil {
		return nil, err
	}
	if uint64(n) > uint64(r.Remaining()) {
		return nil, ErrShortBuffer
	}
	return r.ReadFixed(int(n))
}

// ReadCompactU16 decodes a compact-u16 length.
func (r *Reader) ReadCompactU16() (int, error) {
	var v int
	for i := 0; i < 3; i++ {
		b, err := r.ReadU8()
		if err != nil {
			return 0, err
		}
		v |= int(b&0x7f) << (7 * i)
		if b&0x80 == 0 {
			if v > 0xffff {
				return 0, ErrCompactU16Overflow
			}
			return v, nil
		}
	}
	return 0, ErrCompactU16Overflow
}

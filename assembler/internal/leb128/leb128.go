// Package leb128 implements the unsigned LEB128 varints used in encoded
// procedure bodies.
package leb128

import (
	"bytes"
	"errors"
	"io"
)

// ErrOverflow is returned when a value exceeds 64 bits.
var ErrOverflow = errors.New("leb128: overflow")

// WriteU64 appends v to w
func WriteU64(w *bytes.Buffer, v uint64) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		w.WriteByte(b)
		if v == 0 {
			break
		}
	}
}

// ReadU64 reads one value from r
func ReadU64(r io.ByteReader) (uint64, error) {
	var result uint64
	var shift uint
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		if shift == 63 && b > 1 {
			return 0, ErrOverflow
		}
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, nil
		}
		shift += 7
		if shift > 63 {
			return 0, ErrOverflow
		}
	}
}

// Encode returns the encoding of v
func Encode(v uint64) []byte {
	var buf bytes.Buffer
	WriteU64(&buf, v)
	return buf.Bytes()
}

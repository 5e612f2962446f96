package felt

import (
	"encoding/binary"
	"strconv"
)

// Modulus is the Goldilocks prime 2^64 - 2^32 + 1
const Modulus uint64 = 0xFFFFFFFF00000001

// Felt is a field element in canonical form
type Felt uint64

// New reduces v into the field
func New(v uint64) Felt {
	if v >= Modulus {
		v -= Modulus
	}
	return Felt(v)
}

// Uint64 returns the canonical integer value
func (f Felt) Uint64() uint64 { return uint64(f) }

func (f Felt) String() string {
	return strconv.FormatUint(uint64(f), 10)
}

// WordSize is the number of elements in a machine word
const WordSize = 4

// Word is four field elements
type Word [WordSize]Felt

func (w Word) String() string {
	b := make([]byte, 0, 64)
	for i, f := range w {
		if i > 0 {
			b = append(b, '.')
		}
		b = strconv.AppendUint(b, uint64(f), 10)
	}
	return string(b)
}

// ElementBytes is the number of data bytes packed into one element
const ElementBytes = 4

// WordBytes is the number of data bytes packed into one word
const WordBytes = WordSize * ElementBytes

// BytesToElements packs data into elements, 4 little-endian bytes each.
// A trailing partial chunk is zero-padded.
func BytesToElements(data []byte) []Felt {
	n := (len(data) + ElementBytes - 1) / ElementBytes
	out := make([]Felt, n)
	var chunk [ElementBytes]byte
	for i := range out {
		lo := i * ElementBytes
		hi := min(lo+ElementBytes, len(data))
		chunk = [ElementBytes]byte{}
		copy(chunk[:], data[lo:hi])
		out[i] = Felt(binary.LittleEndian.Uint32(chunk[:]))
	}
	return out
}

// ElementsToBytes is the inverse of BytesToElements. Only the low 32 bits of
// each element are significant.
func ElementsToBytes(elems []Felt) []byte {
	out := make([]byte, len(elems)*ElementBytes)
	for i, e := range elems {
		binary.LittleEndian.PutUint32(out[i*ElementBytes:], uint32(e))
	}
	return out
}

// PadToWords zero-extends elems to a whole number of words
func PadToWords(elems []Felt) []Felt {
	rem := len(elems) % WordSize
	if rem == 0 {
		return elems
	}
	out := make([]Felt, len(elems)+WordSize-rem)
	copy(out, elems)
	return out
}

// Words groups a word-padded element slice into words
func Words(elems []Felt) []Word {
	elems = PadToWords(elems)
	out := make([]Word, len(elems)/WordSize)
	for i := range out {
		copy(out[i][:], elems[i*WordSize:])
	}
	return out
}

package felt

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

// DigestSize is the size of a digest in bytes
const DigestSize = 32

// Digest is a 256-bit commitment. Each 8-byte little-endian limb is a
// canonical field element, so a digest converts losslessly to a Word.
type Digest [DigestSize]byte

// Word returns the digest as four field elements
func (d Digest) Word() Word {
	var w Word
	for i := range w {
		w[i] = Felt(binary.LittleEndian.Uint64(d[i*8:]))
	}
	return w
}

// FromWord builds a digest from four field elements
func FromWord(w Word) Digest {
	var d Digest
	for i, f := range w {
		binary.LittleEndian.PutUint64(d[i*8:], uint64(f))
	}
	return d
}

// IsZero reports whether the digest is all zero bytes
func (d Digest) IsZero() bool {
	return d == Digest{}
}

// String renders the digest as 0x-prefixed hex
func (d Digest) String() string {
	return "0x" + hex.EncodeToString(d[:])
}

// MarshalText implements encoding.TextMarshaler
func (d Digest) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Digest) UnmarshalText(text []byte) error {
	p, err := ParseDigest(string(text))
	if err != nil {
		return err
	}
	*d = p
	return nil
}

// ParseDigest parses the hex form produced by Digest.String
func ParseDigest(s string) (Digest, error) {
	var d Digest
	raw, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return d, fmt.Errorf("invalid digest %q: %w", s, err)
	}
	if len(raw) != DigestSize {
		return d, fmt.Errorf("invalid digest %q: want %d bytes, got %d", s, DigestSize, len(raw))
	}
	copy(d[:], raw)
	for i := 0; i < WordSize; i++ {
		if binary.LittleEndian.Uint64(d[i*8:]) >= Modulus {
			return Digest{}, fmt.Errorf("invalid digest %q: limb %d is not a field element", s, i)
		}
	}
	return d, nil
}

// HashElements hashes a sequence of field elements into a digest.
// Elements are absorbed as 8-byte little-endian limbs into a Keccak sponge;
// the squeezed output is reduced limb-wise into the field.
func HashElements(elems []Felt) Digest {
	h := sha3.NewLegacyKeccak256()
	var buf [8]byte
	for _, e := range elems {
		binary.LittleEndian.PutUint64(buf[:], uint64(e))
		h.Write(buf[:])
	}
	var d Digest
	h.Sum(d[:0])
	return canonicalize(d)
}

// Merge hashes two digests into one
func Merge(a, b Digest) Digest {
	aw, bw := a.Word(), b.Word()
	return HashElements(append(aw[:], bw[:]...))
}

func canonicalize(d Digest) Digest {
	for i := 0; i < WordSize; i++ {
		limb := binary.LittleEndian.Uint64(d[i*8:])
		binary.LittleEndian.PutUint64(d[i*8:], uint64(New(limb)))
	}
	return d
}

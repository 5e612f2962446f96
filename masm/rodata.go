package masm

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/wippyai/miden-backend/felt"
	"github.com/wippyai/miden-backend/hir"
)

// Rodata is an initialized data segment together with the commitment to its
// contents. The VM rebuilds the segment from the advice channel at startup
// and verifies it against Digest.
type Rodata struct {
	Data   []byte
	Digest felt.Digest
	Start  NativePtr
}

// SizeInBytes returns the length of the raw data
func (r Rodata) SizeInBytes() int { return len(r.Data) }

// SizeInFelts returns the number of elements the data packs into
func (r Rodata) SizeInFelts() int {
	return (len(r.Data) + felt.ElementBytes - 1) / felt.ElementBytes
}

// SizeInWords returns the number of words the elements pad out to
func (r Rodata) SizeInWords() int {
	return (r.SizeInFelts() + felt.WordSize - 1) / felt.WordSize
}

// ToElements encodes the data as little-endian elements padded to whole
// words
func (r Rodata) ToElements() []felt.Felt {
	return felt.PadToWords(felt.BytesToElements(r.Data))
}

// NewRodata commits to a copy of data placed at the byte address start.
// start must be word aligned.
func NewRodata(start uint32, data []byte) Rodata {
	ptr := NativePtrFromAddr(start)
	if !ptr.IsWordAligned() {
		panic(fmt.Sprintf("unsupported data segment alignment %d: segment at %#x must be word aligned", ptr.Alignment(), start))
	}
	r := Rodata{Data: append([]byte(nil), data...), Start: ptr}
	r.Digest = felt.HashElements(r.ToElements())
	return r
}

// ComputeRodata commits to every initialized data segment and to the image of
// the global variable table placed at globalTableOffset. Segments whose bytes
// are all zero are skipped, since memory starts zeroed. Panics if a segment
// is not word aligned.
func ComputeRodata(globalTableOffset uint32, globals *hir.GlobalVariableTable, segments *hir.DataSegmentTable) []Rodata {
	var out []Rodata
	for _, seg := range segments.Segments() {
		if seg.IsZeroed() {
			continue
		}
		out = append(out, commit(NewRodata(seg.Offset, seg.Init)))
	}
	if !globals.IsEmpty() {
		image := globals.Image()
		if !allZero(image) {
			out = append(out, commit(NewRodata(globalTableOffset, image)))
		}
	}
	return out
}

func commit(r Rodata) Rodata {
	Logger().Debug("computed rodata commitment",
		zap.Stringer("digest", r.Digest),
		zap.Stringer("start", r.Start),
		zap.Int("bytes", r.SizeInBytes()),
		zap.Int("words", r.SizeInWords()))
	return r
}

func allZero(data []byte) bool {
	for _, b := range data {
		if b != 0 {
			return false
		}
	}
	return true
}

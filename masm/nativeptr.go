package masm

import (
	"fmt"
	"math/bits"

	"github.com/wippyai/miden-backend/felt"
)

// NativePtr is a byte address decomposed into word address, element index
// within the word, and byte offset within the element
type NativePtr struct {
	Waddr  uint32
	Index  uint8
	Offset uint8
}

// NativePtrFromAddr decomposes a byte address
func NativePtrFromAddr(addr uint32) NativePtr {
	return NativePtr{
		Waddr:  addr / felt.WordBytes,
		Index:  uint8(addr % felt.WordBytes / felt.ElementBytes),
		Offset: uint8(addr % felt.ElementBytes),
	}
}

// Addr returns the byte address
func (p NativePtr) Addr() uint32 {
	return p.Waddr*felt.WordBytes + uint32(p.Index)*felt.ElementBytes + uint32(p.Offset)
}

// IsWordAligned reports whether the pointer addresses the start of a word
func (p NativePtr) IsWordAligned() bool { return p.Index == 0 && p.Offset == 0 }

// Alignment returns the largest power of two dividing the byte address
func (p NativePtr) Alignment() uint32 {
	addr := p.Addr()
	if addr == 0 {
		return 1 << 31
	}
	return 1 << bits.TrailingZeros32(addr)
}

func (p NativePtr) String() string {
	return fmt.Sprintf("%d.%d.%d", p.Waddr, p.Index, p.Offset)
}

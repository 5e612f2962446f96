package hir

import (
	"github.com/wippyai/miden-backend/errors"
)

// StackPointerGlobal is the name of the global holding the shadow stack pointer
const StackPointerGlobal = "__stack_pointer"

// GlobalTableAlignment is the byte alignment of the global variable table in
// linear memory. It matches the size of a machine word.
const GlobalTableAlignment = 16

// GlobalVariable is one entry of the global variable table
type GlobalVariable struct {
	Name string
	Ty   Type
	// Init holds the constant initializer bytes; nil means zero-initialized.
	Init   []byte
	Offset uint32
}

// GlobalVariableTable lays out global variables sequentially, each aligned
// to its type's alignment
type GlobalVariableTable struct {
	index map[string]int
	vars  []GlobalVariable
	size  uint32
}

// NewGlobalVariableTable returns an empty table
func NewGlobalVariableTable() *GlobalVariableTable {
	return &GlobalVariableTable{index: make(map[string]int)}
}

// Declare appends a global and returns its byte offset within the table
func (t *GlobalVariableTable) Declare(name string, ty Type, init []byte) (uint32, error) {
	if _, ok := t.index[name]; ok {
		return 0, errors.Duplicate(errors.PhaseLink, "global", name)
	}
	size := ty.SizeInBytes()
	if uint32(len(init)) > size {
		return 0, errors.New(errors.PhaseLink, errors.KindInvalidInput).
			Symbol(name).
			Type(ty.String()).
			Detail("initializer of %d bytes does not fit in %d", len(init), size).
			Build()
	}
	offset := alignUp(t.size, ty.Alignment())
	t.index[name] = len(t.vars)
	t.vars = append(t.vars, GlobalVariable{
		Name:   name,
		Ty:     ty,
		Init:   append([]byte(nil), init...),
		Offset: offset,
	})
	t.size = offset + size
	return offset, nil
}

// Find returns the global named name
func (t *GlobalVariableTable) Find(name string) (GlobalVariable, bool) {
	i, ok := t.index[name]
	if !ok {
		return GlobalVariable{}, false
	}
	return t.vars[i], true
}

// Globals returns the globals in declaration order
func (t *GlobalVariableTable) Globals() []GlobalVariable { return t.vars }

// Len returns the number of globals
func (t *GlobalVariableTable) Len() int { return len(t.vars) }

// IsEmpty reports whether no globals are declared
func (t *GlobalVariableTable) IsEmpty() bool { return len(t.vars) == 0 }

// SizeInBytes returns the byte size of the table
func (t *GlobalVariableTable) SizeInBytes() uint32 { return t.size }

// Image returns the initialized contents of the table
func (t *GlobalVariableTable) Image() []byte {
	data := make([]byte, t.size)
	for _, gv := range t.vars {
		copy(data[gv.Offset:], gv.Init)
	}
	return data
}

// DataSegment is an initialized region of linear memory
type DataSegment struct {
	Init     []byte
	Offset   uint32
	Size     uint32
	Readonly bool
}

// IsZeroed reports whether every byte of the segment is zero
func (s DataSegment) IsZeroed() bool {
	for _, b := range s.Init {
		if b != 0 {
			return false
		}
	}
	return true
}

// Bytes returns the segment contents zero-extended to Size
func (s DataSegment) Bytes() []byte {
	out := make([]byte, s.Size)
	copy(out, s.Init)
	return out
}

// DataSegmentTable is the ordered set of non-overlapping data segments
type DataSegmentTable struct {
	segments []DataSegment
}

// NewDataSegmentTable returns an empty table
func NewDataSegmentTable() *DataSegmentTable {
	return &DataSegmentTable{}
}

// Declare adds a segment. Size 0 means len(init). Segments are kept sorted by
// offset and must not overlap.
func (t *DataSegmentTable) Declare(offset, size uint32, init []byte, readonly bool) error {
	if size == 0 {
		size = uint32(len(init))
	}
	if uint32(len(init)) > size {
		return errors.New(errors.PhaseLink, errors.KindInvalidInput).
			Detail("segment at %#x: initializer of %d bytes exceeds size %d", offset, len(init), size).
			Build()
	}
	end := uint64(offset) + uint64(size)
	if end > 1<<32 {
		return errors.Overflow(errors.PhaseLink, end, "u32")
	}
	pos := len(t.segments)
	for i, s := range t.segments {
		if uint64(offset) < uint64(s.Offset)+uint64(s.Size) && uint64(s.Offset) < end {
			return errors.New(errors.PhaseLink, errors.KindConflict).
				Detail("segment at %#x overlaps segment at %#x", offset, s.Offset).
				Build()
		}
		if offset < s.Offset && pos == len(t.segments) {
			pos = i
		}
	}
	seg := DataSegment{Offset: offset, Size: size, Init: append([]byte(nil), init...), Readonly: readonly}
	t.segments = append(t.segments, DataSegment{})
	copy(t.segments[pos+1:], t.segments[pos:])
	t.segments[pos] = seg
	return nil
}

// Segments returns the segments ordered by offset
func (t *DataSegmentTable) Segments() []DataSegment { return t.segments }

// NextAvailableOffset returns the first word-aligned address after the last
// segment
func (t *DataSegmentTable) NextAvailableOffset() uint32 {
	if len(t.segments) == 0 {
		return 0
	}
	last := t.segments[len(t.segments)-1]
	return alignUp(last.Offset+last.Size, GlobalTableAlignment)
}

// GlobalVariableLayout is the finished placement of the global table
type GlobalVariableLayout struct {
	GlobalTableOffset uint32
}

// ComputeGlobalLayout places the global table after the data segments
func ComputeGlobalLayout(segments *DataSegmentTable) GlobalVariableLayout {
	return GlobalVariableLayout{GlobalTableOffset: segments.NextAvailableOffset()}
}

// Default memory parameters
const (
	DefaultPageSize            = 64 * 1024
	DefaultReservedMemoryPages = 2
)

// Program is a linked IR program ready for lowering
type Program struct {
	Globals    *GlobalVariableTable
	Segments   *DataSegmentTable
	Entrypoint *FunctionIdent
	Modules    []*Module
	// ReservedMemoryBytes is the size of the linear memory region reserved
	// for data segments and globals.
	ReservedMemoryBytes uint32
	PageSize            uint32
}

// NewProgram returns a program with empty tables and default memory
// parameters
func NewProgram() *Program {
	return &Program{
		Globals:             NewGlobalVariableTable(),
		Segments:            NewDataSegmentTable(),
		ReservedMemoryBytes: DefaultReservedMemoryPages * DefaultPageSize,
		PageSize:            DefaultPageSize,
	}
}

// FromComponent collects the modules of c into a program
func FromComponent(c *Component) *Program {
	p := NewProgram()
	p.Modules = append(p.Modules, c.Modules()...)
	return p
}

package hir

import (
	"strconv"
	"strings"
)

// TypeKind discriminates Type
type TypeKind uint8

const (
	KindUnknown TypeKind = iota
	KindUnit
	KindNever
	KindI1
	KindI8
	KindU8
	KindI16
	KindU16
	KindI32
	KindU32
	KindI64
	KindU64
	KindI128
	KindU128
	KindU256
	KindF64
	KindFelt
	KindPtr
	KindNativePtr
	KindStruct
	KindArray
	KindList
)

var kindNames = [...]string{
	KindUnknown:   "?",
	KindUnit:      "()",
	KindNever:     "!",
	KindI1:        "i1",
	KindI8:        "i8",
	KindU8:        "u8",
	KindI16:       "i16",
	KindU16:       "u16",
	KindI32:       "i32",
	KindU32:       "u32",
	KindI64:       "i64",
	KindU64:       "u64",
	KindI128:      "i128",
	KindU128:      "u128",
	KindU256:      "u256",
	KindF64:       "f64",
	KindFelt:      "felt",
	KindPtr:       "ptr",
	KindNativePtr: "native-ptr",
	KindStruct:    "struct",
	KindArray:     "array",
	KindList:      "list",
}

func (k TypeKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Type is an IR type. Elem is set for Ptr, NativePtr, Array and List;
// Fields for Struct; Len for Array.
type Type struct {
	Elem   *Type
	Fields []Type
	Len    int
	Kind   TypeKind
}

// Scalar types
var (
	Unknown = Type{Kind: KindUnknown}
	Unit    = Type{Kind: KindUnit}
	Never   = Type{Kind: KindNever}
	I1      = Type{Kind: KindI1}
	I8      = Type{Kind: KindI8}
	U8      = Type{Kind: KindU8}
	I16     = Type{Kind: KindI16}
	U16     = Type{Kind: KindU16}
	I32     = Type{Kind: KindI32}
	U32     = Type{Kind: KindU32}
	I64     = Type{Kind: KindI64}
	U64     = Type{Kind: KindU64}
	I128    = Type{Kind: KindI128}
	U128    = Type{Kind: KindU128}
	U256    = Type{Kind: KindU256}
	F64     = Type{Kind: KindF64}
	Felt    = Type{Kind: KindFelt}
)

// Ptr returns a pointer to elem
func Ptr(elem Type) Type {
	return Type{Kind: KindPtr, Elem: &elem}
}

// NativePtr returns a word-addressed pointer to elem
func NativePtr(elem Type) Type {
	return Type{Kind: KindNativePtr, Elem: &elem}
}

// Array returns a fixed-size array of n elems
func Array(elem Type, n int) Type {
	return Type{Kind: KindArray, Elem: &elem, Len: n}
}

// List returns a variable-length list of elem
func List(elem Type) Type {
	return Type{Kind: KindList, Elem: &elem}
}

// Struct returns a struct with the given field types
func Struct(fields ...Type) Type {
	return Type{Kind: KindStruct, Fields: fields}
}

// IsScalar reports whether t has no component types
func (t Type) IsScalar() bool {
	switch t.Kind {
	case KindStruct, KindArray, KindList, KindPtr, KindNativePtr:
		return false
	}
	return true
}

// Equal reports structural equality
func (t Type) Equal(o Type) bool {
	if t.Kind != o.Kind || t.Len != o.Len || len(t.Fields) != len(o.Fields) {
		return false
	}
	if (t.Elem == nil) != (o.Elem == nil) {
		return false
	}
	if t.Elem != nil && !t.Elem.Equal(*o.Elem) {
		return false
	}
	for i := range t.Fields {
		if !t.Fields[i].Equal(o.Fields[i]) {
			return false
		}
	}
	return true
}

func (t Type) String() string {
	var b strings.Builder
	t.write(&b)
	return b.String()
}

func (t Type) write(b *strings.Builder) {
	switch t.Kind {
	case KindPtr, KindNativePtr, KindList:
		b.WriteByte('(')
		b.WriteString(t.Kind.String())
		b.WriteByte(' ')
		t.Elem.write(b)
		b.WriteByte(')')
	case KindArray:
		b.WriteByte('[')
		t.Elem.write(b)
		b.WriteString("; ")
		b.WriteString(strconv.Itoa(t.Len))
		b.WriteByte(']')
	case KindStruct:
		b.WriteString("(struct")
		for _, f := range t.Fields {
			b.WriteByte(' ')
			f.write(b)
		}
		b.WriteByte(')')
	default:
		b.WriteString(t.Kind.String())
	}
}

// SizeInBytes returns the byte size of t in linear memory
func (t Type) SizeInBytes() uint32 {
	switch t.Kind {
	case KindUnit, KindNever, KindUnknown:
		return 0
	case KindI1, KindI8, KindU8:
		return 1
	case KindI16, KindU16:
		return 2
	case KindI32, KindU32, KindFelt, KindPtr, KindNativePtr:
		return 4
	case KindI64, KindU64, KindF64, KindList:
		return 8
	case KindI128, KindU128:
		return 16
	case KindU256:
		return 32
	case KindArray:
		return t.Elem.SizeInBytes() * uint32(t.Len)
	case KindStruct:
		var size uint32
		for _, f := range t.Fields {
			size = alignUp(size, f.Alignment()) + f.SizeInBytes()
		}
		return alignUp(size, t.Alignment())
	}
	return 0
}

// Alignment returns the minimum byte alignment of t
func (t Type) Alignment() uint32 {
	switch t.Kind {
	case KindArray:
		return t.Elem.Alignment()
	case KindList:
		return 4
	case KindStruct:
		align := uint32(1)
		for _, f := range t.Fields {
			align = max(align, f.Alignment())
		}
		return align
	case KindI128, KindU128, KindU256:
		return 8
	}
	if s := t.SizeInBytes(); s > 0 {
		return s
	}
	return 1
}

func alignUp(n, align uint32) uint32 {
	if align <= 1 {
		return n
	}
	return (n + align - 1) / align * align
}

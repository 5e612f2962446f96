package hir

import "strings"

// ArgumentExtension says how a narrow integer is widened to a machine word
type ArgumentExtension uint8

const (
	ExtNone ArgumentExtension = iota
	ExtZext
	ExtSext
)

func (e ArgumentExtension) String() string {
	switch e {
	case ExtZext:
		return "zext"
	case ExtSext:
		return "sext"
	}
	return ""
}

// ArgumentPurpose marks special parameters
type ArgumentPurpose uint8

const (
	PurposeDefault ArgumentPurpose = iota
	// PurposeStructReturn marks a pointer through which an aggregate is
	// passed or returned indirectly.
	PurposeStructReturn
)

// AbiParam is one machine-level parameter or result
type AbiParam struct {
	Ty        Type
	Purpose   ArgumentPurpose
	Extension ArgumentExtension
}

// NewAbiParam returns a plain parameter of type ty
func NewAbiParam(ty Type) AbiParam {
	return AbiParam{Ty: ty}
}

// Sret returns a struct-return parameter of type ty
func Sret(ty Type) AbiParam {
	return AbiParam{Ty: ty, Purpose: PurposeStructReturn}
}

// Equal reports whether both params agree on type, purpose and extension
func (p AbiParam) Equal(o AbiParam) bool {
	return p.Purpose == o.Purpose && p.Extension == o.Extension && p.Ty.Equal(o.Ty)
}

func (p AbiParam) String() string {
	var b strings.Builder
	if p.Purpose == PurposeStructReturn || p.Extension != ExtNone {
		b.WriteByte('(')
		if p.Purpose == PurposeStructReturn {
			b.WriteString("sret ")
		}
		if p.Extension != ExtNone {
			b.WriteString(p.Extension.String())
			b.WriteByte(' ')
		}
		b.WriteString(p.Ty.String())
		b.WriteByte(')')
		return b.String()
	}
	return p.Ty.String()
}

// CallConv is a calling convention
type CallConv uint8

const (
	CallConvFast CallConv = iota
	CallConvSystemV
	CallConvWasm
	CallConvCanonLift
	CallConvCanonLower
	CallConvCrossCtx
	CallConvKernel
)

func (c CallConv) String() string {
	switch c {
	case CallConvFast:
		return "fast"
	case CallConvSystemV:
		return "C"
	case CallConvWasm:
		return "wasm"
	case CallConvCanonLift:
		return "canon-lift"
	case CallConvCanonLower:
		return "canon-lower"
	case CallConvCrossCtx:
		return "cross-ctx"
	case CallConvKernel:
		return "kernel"
	}
	return "unknown"
}

// Linkage controls symbol visibility
type Linkage uint8

const (
	LinkageExternal Linkage = iota
	LinkageInternal
	LinkageOdr
)

func (l Linkage) String() string {
	switch l {
	case LinkageInternal:
		return "internal"
	case LinkageOdr:
		return "odr"
	}
	return "external"
}

// Signature is a machine-level function signature
type Signature struct {
	Params  []AbiParam
	Results []AbiParam
	CC      CallConv
	Linkage Linkage
}

// NewSignature builds a fast-call external signature from plain types
func NewSignature(params, results []Type) Signature {
	sig := Signature{
		Params:  make([]AbiParam, len(params)),
		Results: make([]AbiParam, len(results)),
	}
	for i, p := range params {
		sig.Params[i] = NewAbiParam(p)
	}
	for i, r := range results {
		sig.Results[i] = NewAbiParam(r)
	}
	return sig
}

// Arity returns the number of parameters
func (s Signature) Arity() int { return len(s.Params) }

// Clone returns a deep copy of the parameter lists
func (s Signature) Clone() Signature {
	s.Params = append([]AbiParam(nil), s.Params...)
	s.Results = append([]AbiParam(nil), s.Results...)
	return s
}

// Equal reports full equality, including convention and linkage
func (s Signature) Equal(o Signature) bool {
	if s.CC != o.CC || s.Linkage != o.Linkage {
		return false
	}
	return paramsEqual(s.Params, o.Params) && paramsEqual(s.Results, o.Results)
}

func paramsEqual(a, b []AbiParam) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

func (s Signature) String() string {
	var b strings.Builder
	b.WriteString("(cc ")
	b.WriteString(s.CC.String())
	b.WriteByte(')')
	for _, p := range s.Params {
		b.WriteString(" (param ")
		b.WriteString(p.String())
		b.WriteByte(')')
	}
	for _, r := range s.Results {
		b.WriteString(" (result ")
		b.WriteString(r.String())
		b.WriteByte(')')
	}
	return b.String()
}

// Abi tags a high-level function type with the convention it follows
type Abi uint8

const (
	// AbiWasm types still follow the component model canonical ABI and need
	// lifting or lowering before they cross a context boundary.
	AbiWasm Abi = iota
	// AbiCanonical types are already native to the cross-context convention.
	AbiCanonical
)

func (a Abi) String() string {
	if a == AbiCanonical {
		return "canon"
	}
	return "wasm"
}

// FunctionType is a high-level (component) function type
type FunctionType struct {
	Params  []Type
	Results []Type
	Abi     Abi
}

// NewFunctionType returns a wasm-tagged function type
func NewFunctionType(params, results []Type) FunctionType {
	return FunctionType{Params: params, Results: results}
}

func (f FunctionType) String() string {
	var b strings.Builder
	b.WriteString("(func ")
	b.WriteString(f.Abi.String())
	for _, p := range f.Params {
		b.WriteString(" (param ")
		b.WriteString(p.String())
		b.WriteByte(')')
	}
	for _, r := range f.Results {
		b.WriteString(" (result ")
		b.WriteString(r.String())
		b.WriteByte(')')
	}
	b.WriteByte(')')
	return b.String()
}

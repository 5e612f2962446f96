package crossctx

import (
	"fmt"

	"github.com/wippyai/miden-backend/errors"
	"github.com/wippyai/miden-backend/hir"
)

// Canonical ABI flattening limits
const (
	MaxFlatParams  = 16
	MaxFlatResults = 1
)

// Direction says whether a function type is lowered into an import or
// lifted out of an export
type Direction uint8

const (
	Lift Direction = iota
	Lower
)

func (d Direction) String() string {
	if d == Lower {
		return "lower"
	}
	return "lift"
}

// FlattenType flattens a canonical ABI type into machine parameters.
// f64 is reported as an error; 128- and 256-bit integers, pointers and
// unresolved types panic.
func FlattenType(ty hir.Type) ([]hir.AbiParam, error) {
	switch ty.Kind {
	case hir.KindUnit:
		return nil, nil
	case hir.KindI1, hir.KindU8, hir.KindU16:
		return []hir.AbiParam{{Ty: hir.I32, Extension: hir.ExtZext}}, nil
	case hir.KindI8, hir.KindI16:
		return []hir.AbiParam{{Ty: hir.I32, Extension: hir.ExtSext}}, nil
	case hir.KindI32, hir.KindU32:
		return []hir.AbiParam{hir.NewAbiParam(hir.I32)}, nil
	case hir.KindI64, hir.KindU64:
		return []hir.AbiParam{hir.NewAbiParam(hir.I64)}, nil
	case hir.KindFelt:
		return []hir.AbiParam{hir.NewAbiParam(hir.Felt)}, nil
	case hir.KindF64:
		return nil, errors.New(errors.PhaseFlatten, errors.KindUnsupported).
			Type(ty.String()).
			Detail("unexpected f64 type").
			Build()
	case hir.KindI128, hir.KindU128, hir.KindU256:
		panic(fmt.Sprintf("canonical ABI type flattening: not yet implemented %s", ty))
	case hir.KindStruct:
		return FlattenTypes(ty.Fields)
	case hir.KindArray:
		elem, err := FlattenType(*ty.Elem)
		if err != nil {
			return nil, err
		}
		out := make([]hir.AbiParam, 0, len(elem)*ty.Len)
		for i := 0; i < ty.Len; i++ {
			out = append(out, elem...)
		}
		return out, nil
	case hir.KindList:
		return []hir.AbiParam{
			// backing storage
			hir.Sret(hir.Ptr(*ty.Elem)),
			// element count
			hir.NewAbiParam(hir.I32),
		}, nil
	}
	panic(fmt.Sprintf("canonical ABI type flattening: unexpected %s type", ty))
}

// FlattenTypes flattens each type and concatenates the results
func FlattenTypes(tys []hir.Type) ([]hir.AbiParam, error) {
	var out []hir.AbiParam
	for _, ty := range tys {
		flat, err := FlattenType(ty)
		if err != nil {
			return nil, err
		}
		out = append(out, flat...)
	}
	return out, nil
}

// FlattenFunctionType flattens a wasm-tagged function type into a
// cross-context signature, applying the MaxFlatParams/MaxFlatResults limits.
//
// Too many params collapse into one struct-return pointer to a struct of all
// params. Too many results become a struct-return result when lifting, or an
// extra struct-return param with no results when lowering.
func FlattenFunctionType(ft hir.FunctionType, dir Direction) (hir.Signature, error) {
	if ft.Abi != hir.AbiWasm {
		panic(fmt.Sprintf("flattening expects a wasm component type, got %s", ft))
	}

	flatParams, err := FlattenTypes(ft.Params)
	if err != nil {
		return hir.Signature{}, err
	}
	flatResults, err := FlattenTypes(ft.Results)
	if err != nil {
		return hir.Signature{}, err
	}

	if len(flatParams) > MaxFlatParams {
		tuple := hir.Struct(ft.Params...)
		flatParams = []hir.AbiParam{hir.Sret(hir.Ptr(tuple))}
	}

	if len(flatResults) > MaxFlatResults {
		result := ft.Results[0]
		if len(ft.Results) > 1 {
			result = hir.Struct(ft.Results...)
		}
		switch dir {
		case Lift:
			flatResults = []hir.AbiParam{hir.Sret(hir.Ptr(result))}
		case Lower:
			flatParams = append(flatParams, hir.Sret(hir.Ptr(result)))
			flatResults = nil
		}
	}

	return hir.Signature{
		Params:  flatParams,
		Results: flatResults,
		CC:      hir.CallConvCrossCtx,
		Linkage: hir.LinkageExternal,
	}, nil
}

// NeedsTransformation reports whether sig passes anything indirectly
// through a struct-return pointer
func NeedsTransformation(sig hir.Signature) bool {
	for _, p := range sig.Params {
		if p.Purpose == hir.PurposeStructReturn {
			return true
		}
	}
	for _, r := range sig.Results {
		if r.Purpose == hir.PurposeStructReturn {
			return true
		}
	}
	return false
}

// AssertCoreSignatureEquivalence panics unless core and flat agree on the
// number of params and results and on each param type
func AssertCoreSignatureEquivalence(core, flat hir.Signature) {
	if len(core.Params) != len(flat.Params) {
		panic(fmt.Sprintf("expected the same number of params: core %s, flattened %s", core, flat))
	}
	if len(core.Results) != len(flat.Results) {
		panic(fmt.Sprintf("expected the same number of results: core %s, flattened %s", core, flat))
	}
	for i := range core.Params {
		if !core.Params[i].Ty.Equal(flat.Params[i].Ty) {
			panic(fmt.Sprintf("expected the same type for param %d: core %s, flattened %s",
				i, core.Params[i].Ty, flat.Params[i].Ty))
		}
	}
}

package hir

import (
	"fmt"

	"github.com/tetratelabs/wazero/api"
)

// CoreValType is a core wasm value type
type CoreValType = api.ValueType

// TypeFromCore maps a core wasm value type to the IR type the frontend
// assigns it. Floats and references have no IR counterpart.
func TypeFromCore(vt CoreValType) (Type, error) {
	switch vt {
	case api.ValueTypeI32:
		return I32, nil
	case api.ValueTypeI64:
		return I64, nil
	case api.ValueTypeF64:
		return F64, nil
	}
	return Unknown, fmt.Errorf("unsupported core value type %s", api.ValueTypeName(vt))
}

// SignatureFromCore builds a signature from core wasm parameter and result
// types, as recorded by the frontend for a core function
func SignatureFromCore(params, results []CoreValType) (Signature, error) {
	sig := Signature{CC: CallConvWasm}
	for _, vt := range params {
		ty, err := TypeFromCore(vt)
		if err != nil {
			return Signature{}, err
		}
		sig.Params = append(sig.Params, NewAbiParam(ty))
	}
	for _, vt := range results {
		ty, err := TypeFromCore(vt)
		if err != nil {
			return Signature{}, err
		}
		sig.Results = append(sig.Results, NewAbiParam(ty))
	}
	return sig, nil
}

// CoreTypes returns the core wasm value types of a signature's params and
// results. Felts travel as i64 on the wasm side.
func CoreTypes(sig Signature) (params, results []CoreValType, err error) {
	conv := func(ps []AbiParam) ([]CoreValType, error) {
		out := make([]CoreValType, 0, len(ps))
		for _, p := range ps {
			switch p.Ty.Kind {
			case KindI1, KindI8, KindU8, KindI16, KindU16, KindI32, KindU32, KindPtr:
				out = append(out, api.ValueTypeI32)
			case KindI64, KindU64, KindFelt:
				out = append(out, api.ValueTypeI64)
			case KindF64:
				out = append(out, api.ValueTypeF64)
			default:
				return nil, fmt.Errorf("type %s has no core wasm representation", p.Ty)
			}
		}
		return out, nil
	}
	if params, err = conv(sig.Params); err != nil {
		return nil, nil, err
	}
	if results, err = conv(sig.Results); err != nil {
		return nil, nil, err
	}
	return params, results, nil
}

package crossctx

import "github.com/wippyai/miden-backend/hir"

// Marshaler emits the value conversions of a shim body. Arguments runs
// before the forwarded call and Results after it; both return the values to
// use in place of their inputs.
type Marshaler interface {
	Arguments(b *hir.FunctionBuilder, dir Direction, callee hir.FunctionIdent, params []hir.Value) []hir.Value
	Results(b *hir.FunctionBuilder, dir Direction, callee hir.FunctionIdent, results []hir.Value) []hir.Value
}

// Opaque forwards flattened scalars unchanged
type Opaque struct{}

// Arguments implements Marshaler
func (Opaque) Arguments(_ *hir.FunctionBuilder, _ Direction, _ hir.FunctionIdent, params []hir.Value) []hir.Value {
	return params
}

// Results implements Marshaler
func (Opaque) Results(_ *hir.FunctionBuilder, _ Direction, _ hir.FunctionIdent, results []hir.Value) []hir.Value {
	return results
}

// Config parameterizes the cross-context passes
type Config struct {
	Marshaler Marshaler
	// Entrypoint is the "module::function" export exempt from lifting
	Entrypoint string
}

func (c Config) marshaler() Marshaler {
	if c.Marshaler == nil {
		return Opaque{}
	}
	return c.Marshaler
}

package crossctx

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/wippyai/miden-backend/errors"
	"github.com/wippyai/miden-backend/hir"
)

// LiftExports generates a lifting shim for every export not yet in the
// canonical convention, except cfg.Entrypoint.
//
// A shim takes its arguments in the cross-context convention, executes the
// exported core function and returns its result. The export is re-pointed
// at the shim, which lives in a module named after the export's interface.
func LiftExports(cb *hir.ComponentBuilder, cfg Config) error {
	lifted := make(map[hir.InterfaceFunctionIdent]hir.ComponentExport)
	for _, entry := range cb.Exports() {
		exp := entry.Export
		if exp.FunctionTy.Abi == hir.AbiCanonical {
			// already lifted
			lifted[entry.Name] = exp
			continue
		}
		if cfg.Entrypoint != "" && exp.Function.String() == cfg.Entrypoint {
			lifted[entry.Name] = exp
			continue
		}

		next, err := generateLifting(cb, entry.Name, exp, cfg.marshaler())
		if err != nil {
			return err
		}
		lifted[entry.Name] = next
		Logger().Debug("lifted component export",
			zap.Stringer("export", entry.Name),
			zap.Stringer("shim", next.Function))
	}
	cb.WithExports(lifted)
	return nil
}

func generateLifting(
	cb *hir.ComponentBuilder,
	name hir.InterfaceFunctionIdent,
	exp hir.ComponentExport,
	marshaler Marshaler,
) (hir.ComponentExport, error) {
	coreSig, ok := cb.Signature(exp.Function)
	if !ok {
		return exp, errors.Report(
			fmt.Sprintf("cannot find signature for exported function %s", exp.Function),
			errors.NotFound(errors.PhaseLiftExports, "function", exp.Function.String()),
		)
	}

	flat, err := FlattenFunctionType(exp.FunctionTy, Lift)
	if err != nil {
		return exp, errors.Report(
			fmt.Sprintf("signature of exported function %s cannot be flattened", exp.Function), err)
	}
	if NeedsTransformation(flat) {
		return exp, errors.Report(
			fmt.Sprintf("signature of exported function %s requires lifting, which is not supported yet", exp.Function),
			errors.New(errors.PhaseLiftExports, errors.KindUnsupported).
				Symbol(exp.Function.String()).
				Type(flat.String()).
				Detail("struct-return convention").
				Build(),
		)
	}
	AssertCoreSignatureEquivalence(coreSig, flat)

	m := cb.Module(name.Interface.FullName)
	b, err := m.DefineFunction(name.Function, flat)
	if err != nil {
		return exp, errors.Report(
			fmt.Sprintf("cannot define lifting function for %s", name), err)
	}
	if err := b.Import(exp.Function, coreSig); err != nil {
		return exp, errors.Report(
			fmt.Sprintf("exported function %s is already imported with a different signature", exp.Function), err)
	}

	params := b.BlockParams(b.CurrentBlock())
	args := marshaler.Arguments(b, Lift, exp.Function, params)
	call := b.Exec(exp.Function, args...)
	results := marshaler.Results(b, Lift, exp.Function, b.Function().DFG.InstResults(call))
	b.Ret(results...)

	ty := exp.FunctionTy
	ty.Abi = hir.AbiCanonical
	return hir.ComponentExport{
		Function:   b.Function().ID,
		FunctionTy: ty,
		Options:    exp.Options,
	}, nil
}

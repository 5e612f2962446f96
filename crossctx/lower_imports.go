package crossctx

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/wippyai/miden-backend/errors"
	"github.com/wippyai/miden-backend/hir"
)

// LowerImportsModulePrefix prefixes the name of the module holding the
// lowering shims of one interface
const LowerImportsModulePrefix = "lower-imports-"

// LowerImports generates a lowering shim for every canonical ABI import of
// the component and re-points callers at it.
//
// A shim takes its arguments in the wasm core convention, forwards them to
// the imported function through a cross-context call and returns its
// result. The import is re-recorded as a MidenAbiImport keyed by the
// imported function.
func LowerImports(cb *hir.ComponentBuilder, analyses *hir.AnalysisManager, cfg Config) error {
	lowered := make(map[hir.FunctionIdent]hir.ComponentImport)
	for _, entry := range cb.Imports() {
		cabi, ok := entry.Import.(*hir.CanonAbiImport)
		if !ok {
			// already lowered
			lowered[entry.ID] = entry.Import
			continue
		}

		target := cabi.InterfaceFunction.FunctionIdent()
		coreSig, ok := cb.ImportSignature(target)
		if !ok {
			return errors.Report(
				fmt.Sprintf("cannot find signature for canonical ABI imported function %s", target),
				errors.NotFound(errors.PhaseLowerImports, "import signature", target.String()),
			)
		}

		imp, shim, err := generateLowering(cb, cabi.HighFuncTy, target, coreSig, cfg.marshaler())
		if err != nil {
			return err
		}
		lowered[target] = imp

		if err := callLowering(cb, shim, target, coreSig, analyses); err != nil {
			return err
		}
		Logger().Debug("lowered component import",
			zap.Stringer("import", target),
			zap.Stringer("shim", shim))
	}
	cb.WithImports(lowered)
	return nil
}

func generateLowering(
	cb *hir.ComponentBuilder,
	highTy hir.FunctionType,
	target hir.FunctionIdent,
	coreSig hir.Signature,
	marshaler Marshaler,
) (*hir.MidenAbiImport, hir.FunctionIdent, error) {
	var none hir.FunctionIdent

	if _, _, err := hir.CoreTypes(coreSig); err != nil {
		return nil, none, errors.Report(
			fmt.Sprintf("imported function %s has no core wasm signature", target),
			errors.New(errors.PhaseLowerImports, errors.KindUnsupported).
				Symbol(target.String()).
				Type(coreSig.String()).
				Cause(err).
				Build(),
		)
	}

	flat, err := FlattenFunctionType(highTy, Lower)
	if err != nil {
		return nil, none, errors.Report(
			fmt.Sprintf("signature of imported function %s cannot be flattened", target), err)
	}
	if NeedsTransformation(flat) {
		return nil, none, errors.Report(
			fmt.Sprintf("signature of imported function %s requires lowering, which is not supported yet", target),
			errors.New(errors.PhaseLowerImports, errors.KindUnsupported).
				Symbol(target.String()).
				Type(flat.String()).
				Detail("struct-return convention").
				Build(),
		)
	}
	AssertCoreSignatureEquivalence(coreSig, flat)

	m := cb.Module(LowerImportsModulePrefix + target.Module)
	b, err := m.DefineFunction(target.Function, coreSig)
	if err != nil {
		return nil, none, errors.Report(
			fmt.Sprintf("cannot define lowering function for %s", target), err)
	}
	if err := b.Import(target, flat); err != nil {
		return nil, none, errors.Report(
			fmt.Sprintf("imported function %s is already imported with a different signature", target), err)
	}

	params := b.BlockParams(b.CurrentBlock())
	args := marshaler.Arguments(b, Lower, target, params)
	call := b.Call(target, args...)
	results := marshaler.Results(b, Lower, target, b.Function().DFG.InstResults(call))
	b.Ret(results...)

	imp := &hir.MidenAbiImport{FunctionTy: hir.FunctionType{
		Abi:     hir.AbiCanonical,
		Params:  paramTypes(flat.Params),
		Results: paramTypes(flat.Results),
	}}
	return imp, b.Function().ID, nil
}

// callLowering re-points calls to target in every module except the shim's
// own, importing the shim into each rewritten function
func callLowering(
	cb *hir.ComponentBuilder,
	shim, target hir.FunctionIdent,
	coreSig hir.Signature,
	analyses *hir.AnalysisManager,
) error {
	modules := cb.TakeModules()
	defer cb.SetModules(modules)

	for _, m := range modules {
		if m.Name == shim.Module {
			continue
		}
		for _, fn := range m.Functions() {
			if !RewriteCalls(fn, target, shim) {
				continue
			}
			if analyses != nil {
				analyses.Invalidate(fn.ID)
			}
			if err := fn.DFG.ImportFunction(shim, coreSig); err != nil {
				return errors.Report(
					fmt.Sprintf("lowering function %s is already imported into %s with a different signature", shim, fn.ID),
					err)
			}
		}
	}
	return nil
}

func paramTypes(ps []hir.AbiParam) []hir.Type {
	out := make([]hir.Type, len(ps))
	for i, p := range ps {
		out[i] = p.Ty
	}
	return out
}

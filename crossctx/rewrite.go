package crossctx

import "github.com/wippyai/miden-backend/hir"

// RewriteCalls re-points every call to from in fn at to, and reports
// whether anything changed. Instructions keep their position in each block.
func RewriteCalls(fn *hir.Function, from, to hir.FunctionIdent) bool {
	dirty := false
	for _, blk := range fn.DFG.Blocks() {
		for _, inst := range fn.DFG.BlockInsts(blk) {
			data := fn.DFG.Inst(inst)
			if data.Op.IsCall() && data.Callee == from {
				fn.DFG.SetCallee(inst, to)
				dirty = true
			}
		}
	}
	return dirty
}

// CallsTo reports whether any function of m calls target
func CallsTo(m *hir.Module, target hir.FunctionIdent) bool {
	for _, fn := range m.Functions() {
		for _, callee := range fn.Callees() {
			if callee == target {
				return true
			}
		}
	}
	return false
}

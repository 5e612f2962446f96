// Package codegen lowers IR components to target modules.
//
// Lowering covers straight-line functions: a single block of const, exec,
// call and syscall instructions ending in ret. Every value occupies one
// operand stack element, so types wider than an element are rejected. The
// operand stack is modeled explicitly: arguments are copied to the top with
// dup before each invocation, and ret moves the returned values to the top
// and drops everything beneath them.
//
// Procedures of lifted interface modules are emitted into a single export
// module under interface#function names, which the masm linker maps back to
// the interface when a library is assembled.
package codegen

import (
	"github.com/wippyai/miden-backend/assembler"
	"github.com/wippyai/miden-backend/errors"
	"github.com/wippyai/miden-backend/felt"
	"github.com/wippyai/miden-backend/hir"
	"github.com/wippyai/miden-backend/masm"
)

// maxAccessDepth is the deepest stack slot dup and movup can reach
const maxAccessDepth = 15

// Options controls component lowering
type Options struct {
	// Analyses, if set, caches the callee list of each lowered function
	Analyses *hir.AnalysisManager
	// ExportModule receives lifted interface procedures. Defaults to the
	// first module of the component.
	ExportModule string
}

// LowerComponent lowers every module of c. Modules keep their names except
// lifted interface modules, whose functions move into the export module.
func LowerComponent(c *hir.Component, opts Options) ([]*masm.Module, error) {
	exportModule := opts.ExportModule
	if exportModule == "" {
		if first := c.FirstModule(); first != nil {
			exportModule = first.Name
		}
	}

	lifted := make(map[string]bool)
	for _, e := range c.Exports() {
		if e.Export.Function.Module == e.Name.Interface.FullName {
			lifted[e.Export.Function.Module] = true
		}
	}
	place := func(id hir.FunctionIdent) hir.FunctionIdent {
		if lifted[id.Module] {
			return hir.NewFunctionIdent(exportModule, masm.InterfaceProcedureName(
				hir.NewInterfaceFunctionIdent(id.Module, id.Function)))
		}
		return id
	}

	var out []*masm.Module
	byName := make(map[string]*masm.Module)
	module := func(name string, kind assembler.ModuleKind) *masm.Module {
		if m, ok := byName[name]; ok {
			return m
		}
		m := masm.NewModule(name, kind)
		byName[name] = m
		out = append(out, m)
		return m
	}

	for _, hm := range c.Modules() {
		kind := assembler.KindLibrary
		if hm.IsKernel {
			kind = assembler.KindKernel
		}
		for _, fn := range hm.Functions() {
			if opts.Analyses != nil {
				opts.Analyses.CachedCallees(fn)
			}
			id := place(fn.ID)
			f, err := LowerFunction(fn, place)
			if err != nil {
				return nil, err
			}
			f.Name = id.Function
			module(id.Module, kind).Add(f)
		}
	}
	return out, nil
}

// LowerFunction lowers fn. place maps every callee to the procedure it is
// emitted as; nil keeps callees unchanged.
func LowerFunction(fn *hir.Function, place func(hir.FunctionIdent) hir.FunctionIdent) (*masm.Function, error) {
	if place == nil {
		place = func(id hir.FunctionIdent) hir.FunctionIdent { return id }
	}
	for _, p := range fn.Signature.Params {
		if err := checkType(fn.ID, p.Ty); err != nil {
			return nil, err
		}
	}
	for _, blk := range fn.DFG.Blocks() {
		if blk != fn.EntryBlock() && len(fn.DFG.BlockInsts(blk)) > 0 {
			return nil, errors.New(errors.PhaseCodegen, errors.KindUnsupported).
				Symbol(fn.ID.String()).
				Detail("control flow across blocks").
				Build()
		}
	}

	l := &lowering{fn: fn, place: place}
	params := fn.DFG.BlockParams(fn.EntryBlock())
	for i := len(params) - 1; i >= 0; i-- {
		l.stack = append(l.stack, params[i])
	}

	insts := fn.DFG.BlockInsts(fn.EntryBlock())
	returned := false
	for _, inst := range insts {
		if returned {
			return nil, l.fail(errors.KindInvalidInput, "instruction after ret")
		}
		data := fn.DFG.Inst(inst)
		var err error
		switch {
		case data.Op == hir.OpConst:
			err = l.constant(data, fn.DFG.InstResults(inst))
		case data.Op.IsCall():
			err = l.invoke(data, fn.DFG.InstResults(inst))
		case data.Op == hir.OpRet:
			err = l.ret(data.Args)
			returned = true
		default:
			err = l.fail(errors.KindUnsupported, "opcode "+data.Op.String())
		}
		if err != nil {
			return nil, err
		}
	}
	if !returned {
		return nil, l.fail(errors.KindInvalidInput, "entry block has no ret")
	}

	f := masm.NewFunction(fn.ID.Function, fn.Signature)
	f.Exported = fn.Signature.Linkage == hir.LinkageExternal
	f.Body = l.ops
	return f, nil
}

type lowering struct {
	fn    *hir.Function
	place func(hir.FunctionIdent) hir.FunctionIdent
	stack []hir.Value
	ops   []masm.Op
}

func (l *lowering) fail(kind errors.Kind, detail string) error {
	return errors.New(errors.PhaseCodegen, kind).
		Symbol(l.fn.ID.String()).
		Detail("%s", detail).
		Build()
}

func (l *lowering) emit(ops ...masm.Op) { l.ops = append(l.ops, ops...) }

// load copies v to the top of the stack
func (l *lowering) load(v hir.Value) error {
	depth := -1
	for i := len(l.stack) - 1; i >= 0; i-- {
		if l.stack[i] == v {
			depth = len(l.stack) - 1 - i
			break
		}
	}
	if depth < 0 {
		return l.fail(errors.KindUndefined, "use of undefined value "+v.String())
	}
	if depth > maxAccessDepth {
		return l.fail(errors.KindUnsupported, "value "+v.String()+" is out of reach of dup")
	}
	l.emit(masm.Dup(uint8(depth)))
	l.stack = append(l.stack, v)
	return nil
}

func (l *lowering) constant(data *hir.InstData, results []hir.Value) error {
	if err := checkType(l.fn.ID, data.Ty); err != nil {
		return err
	}
	if data.Imm >= felt.Modulus {
		return errors.New(errors.PhaseCodegen, errors.KindOverflow).
			Symbol(l.fn.ID.String()).
			Value(data.Imm).
			Detail("constant %d is not a field element", data.Imm).
			Build()
	}
	l.emit(masm.Push(data.Imm))
	l.stack = append(l.stack, results[0])
	return nil
}

func (l *lowering) invoke(data *hir.InstData, results []hir.Value) error {
	for i := len(data.Args) - 1; i >= 0; i-- {
		if err := l.load(data.Args[i]); err != nil {
			return err
		}
	}
	for _, r := range results {
		if err := checkType(l.fn.ID, l.fn.DFG.ValueType(r)); err != nil {
			return err
		}
	}
	callee := l.place(data.Callee)
	switch data.Op {
	case hir.OpExec:
		l.emit(masm.Exec(callee))
	case hir.OpCall:
		l.emit(masm.Call(callee))
	case hir.OpSyscall:
		l.emit(masm.Syscall(callee))
	}
	l.stack = l.stack[:len(l.stack)-len(data.Args)]
	for i := len(results) - 1; i >= 0; i-- {
		l.stack = append(l.stack, results[i])
	}
	return nil
}

// ret leaves exactly vals on the stack, vals[0] on top
func (l *lowering) ret(vals []hir.Value) error {
	if !l.onTop(vals) {
		for i := len(vals) - 1; i >= 0; i-- {
			if err := l.load(vals[i]); err != nil {
				return err
			}
		}
	}
	n := len(vals)
	if n > maxAccessDepth {
		return l.fail(errors.KindUnsupported, "too many return values")
	}
	for len(l.stack) > n {
		switch n {
		case 0:
		case 1:
			l.emit(masm.Swap())
		default:
			l.emit(masm.MovUp(uint8(n)))
		}
		l.emit(masm.Drop())
		below := len(l.stack) - 1 - n
		l.stack = append(l.stack[:below], l.stack[below+1:]...)
	}
	return nil
}

// onTop reports whether the top of the stack holds vals, vals[0] on top
func (l *lowering) onTop(vals []hir.Value) bool {
	if len(vals) > len(l.stack) {
		return false
	}
	for i, v := range vals {
		if l.stack[len(l.stack)-1-i] != v {
			return false
		}
	}
	return true
}

// checkType rejects types that do not fit one stack element
func checkType(fn hir.FunctionIdent, ty hir.Type) error {
	switch ty.Kind {
	case hir.KindI1, hir.KindI8, hir.KindU8, hir.KindI16, hir.KindU16,
		hir.KindI32, hir.KindU32, hir.KindFelt, hir.KindPtr, hir.KindNativePtr:
		return nil
	}
	return errors.New(errors.PhaseCodegen, errors.KindUnsupported).
		Symbol(fn.String()).
		Type(ty.String()).
		Detail("type does not fit one stack element").
		Build()
}

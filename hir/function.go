package hir

import "fmt"

// Function is a function definition
type Function struct {
	DFG       *DataFlowGraph
	ID        FunctionIdent
	Signature Signature
	entry     Block
}

// NewFunction creates a function whose entry block takes one parameter per
// signature parameter
func NewFunction(id FunctionIdent, sig Signature) *Function {
	dfg := NewDataFlowGraph()
	entry := dfg.CreateBlock()
	for _, p := range sig.Params {
		dfg.AppendBlockParam(entry, p.Ty)
	}
	return &Function{ID: id, Signature: sig, DFG: dfg, entry: entry}
}

// EntryBlock returns the entry block
func (f *Function) EntryBlock() Block { return f.entry }

// Imports returns the external functions referenced by f
func (f *Function) Imports() []ExternalFunction { return f.DFG.Imports() }

// Callees returns the distinct call targets of f in first-use order
func (f *Function) Callees() []FunctionIdent {
	seen := make(map[FunctionIdent]bool)
	var out []FunctionIdent
	for _, b := range f.DFG.Blocks() {
		for _, inst := range f.DFG.BlockInsts(b) {
			data := f.DFG.Inst(inst)
			if data.Op.IsCall() && !seen[data.Callee] {
				seen[data.Callee] = true
				out = append(out, data.Callee)
			}
		}
	}
	return out
}

// FunctionBuilder appends instructions to a function
type FunctionBuilder struct {
	fn      *Function
	current Block
}

// NewFunctionBuilder positions a builder at the end of fn's entry block
func NewFunctionBuilder(fn *Function) *FunctionBuilder {
	return &FunctionBuilder{fn: fn, current: fn.entry}
}

// Function returns the function under construction
func (b *FunctionBuilder) Function() *Function { return b.fn }

// CurrentBlock returns the insertion block
func (b *FunctionBuilder) CurrentBlock() Block { return b.current }

// SwitchToBlock moves the insertion point to the end of blk
func (b *FunctionBuilder) SwitchToBlock(blk Block) { b.current = blk }

// CreateBlock appends a new block without moving the insertion point
func (b *FunctionBuilder) CreateBlock() Block { return b.fn.DFG.CreateBlock() }

// BlockParams returns the parameters of blk
func (b *FunctionBuilder) BlockParams(blk Block) []Value {
	return b.fn.DFG.BlockParams(blk)
}

// Import records an external function in the function's DataFlowGraph
func (b *FunctionBuilder) Import(id FunctionIdent, sig Signature) error {
	return b.fn.DFG.ImportFunction(id, sig)
}

// Exec calls callee in the current context
func (b *FunctionBuilder) Exec(callee FunctionIdent, args ...Value) Inst {
	return b.invoke(OpExec, callee, args)
}

// Call calls callee in a new context
func (b *FunctionBuilder) Call(callee FunctionIdent, args ...Value) Inst {
	return b.invoke(OpCall, callee, args)
}

// Syscall calls a kernel procedure
func (b *FunctionBuilder) Syscall(callee FunctionIdent, args ...Value) Inst {
	return b.invoke(OpSyscall, callee, args)
}

// invoke panics if callee was not imported first; the callee's signature
// determines the result values.
func (b *FunctionBuilder) invoke(op Opcode, callee FunctionIdent, args []Value) Inst {
	ext, ok := b.fn.DFG.Import(callee)
	if !ok {
		panic(fmt.Sprintf("%s of %s: callee is not imported into %s", op, callee, b.fn.ID))
	}
	results := make([]Type, len(ext.Signature.Results))
	for i, r := range ext.Signature.Results {
		results[i] = r.Ty
	}
	return b.fn.DFG.AppendInst(b.current, InstData{
		Op:     op,
		Callee: callee,
		Args:   append([]Value(nil), args...),
	}, results...)
}

// Const materializes an immediate of type ty
func (b *FunctionBuilder) Const(ty Type, imm uint64) Value {
	inst := b.fn.DFG.AppendInst(b.current, InstData{Op: OpConst, Ty: ty, Imm: imm}, ty)
	return b.fn.DFG.InstResults(inst)[0]
}

// Ret returns vals from the function
func (b *FunctionBuilder) Ret(vals ...Value) Inst {
	return b.fn.DFG.AppendInst(b.current, InstData{Op: OpRet, Args: append([]Value(nil), vals...)})
}

// FirstResult returns the first result of inst, if any
func (b *FunctionBuilder) FirstResult(inst Inst) (Value, bool) {
	res := b.fn.DFG.InstResults(inst)
	if len(res) == 0 {
		return 0, false
	}
	return res[0], true
}

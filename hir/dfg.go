package hir

import (
	"fmt"
	"sort"

	"github.com/wippyai/miden-backend/errors"
)

// Value is a handle to an SSA value
type Value uint32

func (v Value) String() string { return fmt.Sprintf("v%d", uint32(v)) }

// Block is a handle to a basic block
type Block uint32

func (b Block) String() string { return fmt.Sprintf("block%d", uint32(b)) }

// Inst is a handle to an instruction in a DataFlowGraph arena
type Inst uint32

// Opcode identifies an instruction
type Opcode uint8

const (
	// OpExec calls a procedure in the caller's context
	OpExec Opcode = iota
	// OpCall calls a procedure in a new, isolated context
	OpCall
	// OpSyscall calls a kernel procedure
	OpSyscall
	// OpConst materializes an immediate
	OpConst
	// OpRet returns from the function
	OpRet
)

func (o Opcode) String() string {
	switch o {
	case OpExec:
		return "exec"
	case OpCall:
		return "call"
	case OpSyscall:
		return "syscall"
	case OpConst:
		return "const"
	case OpRet:
		return "ret"
	}
	return "unknown"
}

// IsCall reports whether o transfers control to a callee
func (o Opcode) IsCall() bool {
	return o == OpExec || o == OpCall || o == OpSyscall
}

// InstData is the payload of one instruction
type InstData struct {
	Callee  FunctionIdent
	Ty      Type
	Args    []Value
	Results []Value
	Imm     uint64
	Op      Opcode
}

// ExternalFunction is a function referenced by a DataFlowGraph but defined
// elsewhere
type ExternalFunction struct {
	ID        FunctionIdent
	Signature Signature
}

type blockData struct {
	params []Value
	insts  []Inst
}

type valueData struct {
	ty Type
}

// DataFlowGraph holds the blocks, instructions and values of one function
type DataFlowGraph struct {
	imports map[FunctionIdent]ExternalFunction
	blocks  []blockData
	insts   []InstData
	values  []valueData
}

// NewDataFlowGraph returns an empty graph
func NewDataFlowGraph() *DataFlowGraph {
	return &DataFlowGraph{imports: make(map[FunctionIdent]ExternalFunction)}
}

// CreateBlock appends a new empty block
func (d *DataFlowGraph) CreateBlock() Block {
	d.blocks = append(d.blocks, blockData{})
	return Block(len(d.blocks) - 1)
}

// Blocks returns all blocks in creation order
func (d *DataFlowGraph) Blocks() []Block {
	out := make([]Block, len(d.blocks))
	for i := range out {
		out[i] = Block(i)
	}
	return out
}

// AppendBlockParam adds a typed parameter to b
func (d *DataFlowGraph) AppendBlockParam(b Block, ty Type) Value {
	v := d.makeValue(ty)
	d.blocks[b].params = append(d.blocks[b].params, v)
	return v
}

// BlockParams returns the parameters of b
func (d *DataFlowGraph) BlockParams(b Block) []Value {
	return d.blocks[b].params
}

// BlockInsts returns the instruction handles of b in program order
func (d *DataFlowGraph) BlockInsts(b Block) []Inst {
	return d.blocks[b].insts
}

// AppendInst adds data at the end of b, allocating one value per result type
func (d *DataFlowGraph) AppendInst(b Block, data InstData, results ...Type) Inst {
	data.Results = make([]Value, len(results))
	for i, ty := range results {
		data.Results[i] = d.makeValue(ty)
	}
	d.insts = append(d.insts, data)
	inst := Inst(len(d.insts) - 1)
	d.blocks[b].insts = append(d.blocks[b].insts, inst)
	return inst
}

// Inst returns the payload of inst. The pointer stays valid until the next
// AppendInst.
func (d *DataFlowGraph) Inst(inst Inst) *InstData {
	return &d.insts[inst]
}

// InstResults returns the values defined by inst
func (d *DataFlowGraph) InstResults(inst Inst) []Value {
	return d.insts[inst].Results
}

// ValueType returns the type of v
func (d *DataFlowGraph) ValueType(v Value) Type {
	return d.values[v].ty
}

// NumValues returns the number of values allocated so far
func (d *DataFlowGraph) NumValues() int { return len(d.values) }

func (d *DataFlowGraph) makeValue(ty Type) Value {
	d.values = append(d.values, valueData{ty: ty})
	return Value(len(d.values) - 1)
}

// Import returns the external function recorded under id
func (d *DataFlowGraph) Import(id FunctionIdent) (ExternalFunction, bool) {
	ext, ok := d.imports[id]
	return ext, ok
}

// ImportFunction records an external function. Importing the same id again
// with an equal signature is a no-op; a different signature is a conflict.
func (d *DataFlowGraph) ImportFunction(id FunctionIdent, sig Signature) error {
	if existing, ok := d.imports[id]; ok {
		if existing.Signature.Equal(sig) {
			return nil
		}
		return errors.New(errors.PhaseLink, errors.KindConflict).
			Symbol(id.String()).
			Type(sig.String()).
			Detail("already imported with signature %s", existing.Signature).
			Build()
	}
	d.imports[id] = ExternalFunction{ID: id, Signature: sig.Clone()}
	return nil
}

// Imports returns the external functions ordered by identifier
func (d *DataFlowGraph) Imports() []ExternalFunction {
	out := make([]ExternalFunction, 0, len(d.imports))
	for _, ext := range d.imports {
		out = append(out, ext)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Compare(out[j].ID) < 0 })
	return out
}

// SetCallee redirects a call instruction. It is an indexed update: the
// instruction keeps its position in its block.
func (d *DataFlowGraph) SetCallee(inst Inst, callee FunctionIdent) {
	d.insts[inst].Callee = callee
}

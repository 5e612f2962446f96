package assembler

import (
	"strconv"
	"strings"

	"github.com/wippyai/miden-backend/errors"
)

// ModuleKind controls how a module's procedures may be invoked
type ModuleKind uint8

const (
	// KindLibrary modules export procedures for exec/call
	KindLibrary ModuleKind = iota
	// KindExecutable modules define a main procedure and export nothing
	KindExecutable
	// KindKernel modules export procedures reachable only via syscall
	KindKernel
)

func (k ModuleKind) String() string {
	switch k {
	case KindLibrary:
		return "library"
	case KindExecutable:
		return "executable"
	case KindKernel:
		return "kernel"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// MainProcedure is the procedure an executable module must define
const MainProcedure = "main"

// QualifiedName is a procedure name within a module path such as std::mem
type QualifiedName struct {
	Module string `msgpack:"module"`
	Name   string `msgpack:"name"`
}

// NewQualifiedName returns module::name
func NewQualifiedName(module, name string) QualifiedName {
	return QualifiedName{Module: module, Name: name}
}

func (q QualifiedName) String() string { return q.Module + "::" + q.Name }

// Compare orders names by module path, then procedure name
func (q QualifiedName) Compare(o QualifiedName) int {
	if c := strings.Compare(q.Module, o.Module); c != 0 {
		return c
	}
	return strings.Compare(q.Name, o.Name)
}

// Instruction mnemonics the assembler resolves
const (
	OpExec    = "exec"
	OpCall    = "call"
	OpSyscall = "syscall"
	OpDynExec = "dynexec"
)

// Instruction is one AST instruction. Invocations carry a Target; all other
// instructions are opaque mnemonics with immediates.
type Instruction struct {
	Op     string
	Target QualifiedName
	Imms   []uint64
}

// Inst returns an instruction with immediates
func Inst(op string, imms ...uint64) Instruction {
	return Instruction{Op: op, Imms: imms}
}

// Invoke returns an exec, call or syscall of target
func Invoke(op string, target QualifiedName) Instruction {
	return Instruction{Op: op, Target: target}
}

// IsInvoke reports whether the instruction names a callee
func (i Instruction) IsInvoke() bool {
	switch i.Op {
	case OpExec, OpCall, OpSyscall:
		return true
	}
	return false
}

func (i Instruction) String() string {
	if i.IsInvoke() {
		return i.Op + ".::" + i.Target.String()
	}
	var b strings.Builder
	b.WriteString(i.Op)
	for _, imm := range i.Imms {
		b.WriteByte('.')
		b.WriteString(strconv.FormatUint(imm, 10))
	}
	return b.String()
}

// Procedure is a named instruction sequence
type Procedure struct {
	Name     string
	Body     []Instruction
	Exported bool
}

// Module is a named set of procedures
type Module struct {
	Path       string
	Procedures []Procedure
	Kind       ModuleKind
}

// NewModule returns an empty module
func NewModule(path string, kind ModuleKind) *Module {
	return &Module{Path: path, Kind: kind}
}

// Define appends a procedure
func (m *Module) Define(name string, exported bool, body ...Instruction) {
	m.Procedures = append(m.Procedures, Procedure{Name: name, Exported: exported, Body: body})
}

// Procedure returns the procedure named name
func (m *Module) Procedure(name string) (*Procedure, bool) {
	for i := range m.Procedures {
		if m.Procedures[i].Name == name {
			return &m.Procedures[i], true
		}
	}
	return nil, false
}

// Validate checks the structural rules for the module's kind
func (m *Module) Validate() error {
	if m.Path == "" {
		return errors.InvalidInput(errors.PhaseAssemble, "module path is empty")
	}
	seen := make(map[string]bool, len(m.Procedures))
	for _, p := range m.Procedures {
		if seen[p.Name] {
			return errors.Duplicate(errors.PhaseAssemble, "procedure", m.Path+"::"+p.Name)
		}
		seen[p.Name] = true
		if p.Exported && m.Kind == KindExecutable {
			return errors.New(errors.PhaseAssemble, errors.KindInvalidInput).
				Symbol(m.Path + "::" + p.Name).
				Detail("executable modules cannot export procedures").
				Build()
		}
		for _, inst := range p.Body {
			if inst.Op == OpSyscall && m.Kind == KindKernel {
				return errors.New(errors.PhaseAssemble, errors.KindInvalidInput).
					Symbol(m.Path + "::" + p.Name).
					Detail("syscall from a kernel procedure").
					Build()
			}
		}
	}
	if m.Kind == KindExecutable {
		if _, ok := m.Procedure(MainProcedure); !ok {
			return errors.NotFound(errors.PhaseAssemble, "procedure", m.Path+"::"+MainProcedure)
		}
	}
	return nil
}

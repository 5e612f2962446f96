package masm

import (
	"io"
	"sort"
	"strings"

	"github.com/wippyai/miden-backend/assembler"
	"github.com/wippyai/miden-backend/hir"
)

// Function is a target procedure
type Function struct {
	Name      string
	Signature hir.Signature
	Body      []Op
	Exported  bool
}

// NewFunction returns an empty procedure
func NewFunction(name string, sig hir.Signature) *Function {
	return &Function{Name: name, Signature: sig}
}

// Emit appends ops to the body
func (f *Function) Emit(ops ...Op) { f.Body = append(f.Body, ops...) }

// Module is a target module. Functions are kept ordered by name.
type Module struct {
	Name      string
	Docs      string
	functions []*Function
	Kind      assembler.ModuleKind
}

// NewModule returns an empty module
func NewModule(name string, kind assembler.ModuleKind) *Module {
	return &Module{Name: name, Kind: kind}
}

// Functions returns the functions in name order
func (m *Module) Functions() []*Function { return m.functions }

// Function returns the function named name, or nil
func (m *Module) Function(name string) *Function {
	i, ok := m.find(name)
	if !ok {
		return nil
	}
	return m.functions[i]
}

// Add inserts f, replacing a function with the same name
func (m *Module) Add(f *Function) {
	i, ok := m.find(f.Name)
	if ok {
		m.functions[i] = f
		return
	}
	m.functions = append(m.functions, nil)
	copy(m.functions[i+1:], m.functions[i:])
	m.functions[i] = f
}

func (m *Module) find(name string) (int, bool) {
	i := sort.Search(len(m.functions), func(i int) bool { return m.functions[i].Name >= name })
	return i, i < len(m.functions) && m.functions[i].Name == name
}

// IsStd reports whether the module belongs to the std namespace
func (m *Module) IsStd() bool { return inNamespace(m.Name, "std") }

// IsIntrinsics reports whether the module belongs to the intrinsics namespace
func (m *Module) IsIntrinsics() bool { return inNamespace(m.Name, "intrinsics") }

func inNamespace(path, ns string) bool {
	return path == ns || strings.HasPrefix(path, ns+"::")
}

// ToAST lowers the module to the assembler's representation
func (m *Module) ToAST() *assembler.Module {
	out := assembler.NewModule(m.Name, m.Kind)
	for _, f := range m.functions {
		body := make([]assembler.Instruction, len(f.Body))
		for i, op := range f.Body {
			body[i] = op.toAST()
		}
		out.Define(f.Name, f.Exported, body...)
	}
	return out
}

// String renders the module in assembly syntax
func (m *Module) String() string {
	var b strings.Builder
	m.write(&b)
	return b.String()
}

// WriteTo writes the module text to w
func (m *Module) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, m.String())
	return int64(n), err
}

func (m *Module) write(b *strings.Builder) {
	b.WriteString("# mod ")
	b.WriteString(m.Name)
	b.WriteByte('\n')
	if m.Docs != "" {
		for _, line := range strings.Split(m.Docs, "\n") {
			b.WriteString("#! ")
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	for _, f := range m.functions {
		b.WriteByte('\n')
		if f.Exported {
			b.WriteString("export.")
		} else {
			b.WriteString("proc.")
		}
		b.WriteString(quoteIdent(f.Name))
		b.WriteByte('\n')
		for _, op := range f.Body {
			b.WriteString("    ")
			b.WriteString(op.String())
			b.WriteByte('\n')
		}
		b.WriteString("end\n")
	}
}

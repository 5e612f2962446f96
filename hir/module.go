package hir

import "github.com/wippyai/miden-backend/errors"

// Module is a named collection of functions in definition order
type Module struct {
	index     map[string]int
	Name      string
	functions []*Function
	IsKernel  bool
}

// NewModule creates an empty module
func NewModule(name string) *Module {
	return &Module{Name: name, index: make(map[string]int)}
}

// Functions returns the functions in definition order
func (m *Module) Functions() []*Function { return m.functions }

// Function returns the function named name, or nil
func (m *Module) Function(name string) *Function {
	if i, ok := m.index[name]; ok {
		return m.functions[i]
	}
	return nil
}

// Len returns the number of functions
func (m *Module) Len() int { return len(m.functions) }

// AddFunction appends fn. A function with the same name must not exist.
func (m *Module) AddFunction(fn *Function) error {
	if _, ok := m.index[fn.ID.Function]; ok {
		return errors.Duplicate(errors.PhaseLink, "function", fn.ID.String())
	}
	if fn.ID.Module != m.Name {
		return errors.New(errors.PhaseLink, errors.KindInvalidInput).
			Symbol(fn.ID.String()).
			Detail("function belongs to module %q, not %q", fn.ID.Module, m.Name).
			Build()
	}
	m.index[fn.ID.Function] = len(m.functions)
	m.functions = append(m.functions, fn)
	return nil
}

// DefineFunction creates a function named name with sig, appends it and
// returns a builder positioned at its entry block
func (m *Module) DefineFunction(name string, sig Signature) (*FunctionBuilder, error) {
	fn := NewFunction(FunctionIdent{Module: m.Name, Function: name}, sig)
	if err := m.AddFunction(fn); err != nil {
		return nil, err
	}
	return NewFunctionBuilder(fn), nil
}

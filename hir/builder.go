package hir

import "github.com/wippyai/miden-backend/errors"

// ComponentBuilder assembles or edits a Component
type ComponentBuilder struct {
	imports  map[FunctionIdent]ComponentImport
	exports  map[InterfaceFunctionIdent]ComponentExport
	modIndex map[string]int
	modules  []*Module
}

// NewComponentBuilder returns an empty builder
func NewComponentBuilder() *ComponentBuilder {
	return &ComponentBuilder{
		imports:  make(map[FunctionIdent]ComponentImport),
		exports:  make(map[InterfaceFunctionIdent]ComponentExport),
		modIndex: make(map[string]int),
	}
}

// Load takes ownership of c's contents for editing. c must not be used
// afterwards.
func Load(c *Component) *ComponentBuilder {
	b := &ComponentBuilder{
		imports:  c.imports,
		exports:  c.exports,
		modIndex: c.modIndex,
		modules:  c.modules,
	}
	*c = Component{}
	if b.imports == nil {
		b.imports = make(map[FunctionIdent]ComponentImport)
	}
	if b.exports == nil {
		b.exports = make(map[InterfaceFunctionIdent]ComponentExport)
	}
	if b.modIndex == nil {
		b.modIndex = make(map[string]int)
	}
	return b
}

// AddModule appends m. A module with the same name must not exist.
func (b *ComponentBuilder) AddModule(m *Module) error {
	if _, ok := b.modIndex[m.Name]; ok {
		return errors.Duplicate(errors.PhaseLink, "module", m.Name)
	}
	b.modIndex[m.Name] = len(b.modules)
	b.modules = append(b.modules, m)
	return nil
}

// Module returns the module named name, creating and appending it if needed
func (b *ComponentBuilder) Module(name string) *Module {
	if i, ok := b.modIndex[name]; ok {
		return b.modules[i]
	}
	m := NewModule(name)
	b.modIndex[name] = len(b.modules)
	b.modules = append(b.modules, m)
	return m
}

// Modules returns the current modules in order
func (b *ComponentBuilder) Modules() []*Module { return b.modules }

// AddImport records imp under id, replacing any previous import
func (b *ComponentBuilder) AddImport(id FunctionIdent, imp ComponentImport) {
	b.imports[id] = imp
}

// AddExport records exp under name, replacing any previous export
func (b *ComponentBuilder) AddExport(name InterfaceFunctionIdent, exp ComponentExport) {
	b.exports[name] = exp
}

// Imports returns a key-ordered snapshot of the imports
func (b *ComponentBuilder) Imports() []ImportEntry { return sortedImports(b.imports) }

// Exports returns a key-ordered snapshot of the exports
func (b *ComponentBuilder) Exports() []ExportEntry { return sortedExports(b.exports) }

// WithImports replaces the import table
func (b *ComponentBuilder) WithImports(imports map[FunctionIdent]ComponentImport) *ComponentBuilder {
	b.imports = imports
	return b
}

// WithExports replaces the export table
func (b *ComponentBuilder) WithExports(exports map[InterfaceFunctionIdent]ComponentExport) *ComponentBuilder {
	b.exports = exports
	return b
}

// Signature returns the signature of a function defined in the builder
func (b *ComponentBuilder) Signature(id FunctionIdent) (Signature, bool) {
	return lookupSignature(b.modules, b.modIndex, id)
}

// ImportSignature returns the signature under which any function of any
// module imports id. Imports are recorded per function, so every function is
// searched.
func (b *ComponentBuilder) ImportSignature(id FunctionIdent) (Signature, bool) {
	for _, m := range b.modules {
		for _, fn := range m.Functions() {
			if ext, ok := fn.DFG.Import(id); ok {
				return ext.Signature, true
			}
		}
	}
	return Signature{}, false
}

// TakeModules removes and returns all modules
func (b *ComponentBuilder) TakeModules() []*Module {
	mods := b.modules
	b.modules = nil
	b.modIndex = make(map[string]int)
	return mods
}

// SetModules replaces the module list
func (b *ComponentBuilder) SetModules(mods []*Module) {
	b.modules = mods
	b.modIndex = make(map[string]int, len(mods))
	for i, m := range mods {
		b.modIndex[m.Name] = i
	}
}

// Build returns the finished component. Building a component with no
// modules panics.
func (b *ComponentBuilder) Build() *Component {
	if len(b.modules) == 0 {
		panic("cannot build a component with no modules")
	}
	c := &Component{
		imports:  b.imports,
		exports:  b.exports,
		modIndex: b.modIndex,
		modules:  b.modules,
	}
	*b = ComponentBuilder{}
	return c
}

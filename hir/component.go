package hir

import (
	"sort"
	"strings"
)

// CanonicalOptions are the canonical ABI options of a lifted or lowered
// function
type CanonicalOptions struct {
	Realloc    *FunctionIdent
	PostReturn *FunctionIdent
}

func (o CanonicalOptions) String() string {
	var parts []string
	if o.Realloc != nil {
		parts = append(parts, "(realloc "+o.Realloc.String()+")")
	}
	if o.PostReturn != nil {
		parts = append(parts, "(post-return "+o.PostReturn.String()+")")
	}
	return strings.Join(parts, " ")
}

// ComponentImport is an import of a component. It is one of
// *CanonAbiImport or *MidenAbiImport.
type ComponentImport interface {
	isComponentImport()
	// Type returns the high-level function type of the import
	Type() FunctionType
}

// CanonAbiImport is an import that follows the component model canonical
// ABI and still needs lowering
type CanonAbiImport struct {
	InterfaceFunction InterfaceFunctionIdent
	HighFuncTy        FunctionType
	Options           CanonicalOptions
}

func (*CanonAbiImport) isComponentImport() {}

// Type implements ComponentImport
func (i *CanonAbiImport) Type() FunctionType { return i.HighFuncTy }

// MidenAbiImport is an import already in the cross-context convention
type MidenAbiImport struct {
	FunctionTy FunctionType
}

func (*MidenAbiImport) isComponentImport() {}

// Type implements ComponentImport
func (i *MidenAbiImport) Type() FunctionType { return i.FunctionTy }

// ComponentExport is an exported function of a component
type ComponentExport struct {
	Function   FunctionIdent
	FunctionTy FunctionType
	Options    CanonicalOptions
}

// ImportEntry pairs an import with its key
type ImportEntry struct {
	Import ComponentImport
	ID     FunctionIdent
}

// ExportEntry pairs an export with its key
type ExportEntry struct {
	Export ComponentExport
	Name   InterfaceFunctionIdent
}

// Component is a set of modules compiled together with component-level
// imports and exports. Modules keep insertion order; imports and exports are
// iterated in key order.
type Component struct {
	imports  map[FunctionIdent]ComponentImport
	exports  map[InterfaceFunctionIdent]ComponentExport
	modIndex map[string]int
	modules  []*Module
}

// NewComponent returns an empty component
func NewComponent() *Component {
	return &Component{
		imports:  make(map[FunctionIdent]ComponentImport),
		exports:  make(map[InterfaceFunctionIdent]ComponentExport),
		modIndex: make(map[string]int),
	}
}

// Name joins the module names with '+'
func (c *Component) Name() string {
	names := make([]string, len(c.modules))
	for i, m := range c.modules {
		names[i] = m.Name
	}
	return strings.Join(names, "+")
}

// Modules returns the modules in order
func (c *Component) Modules() []*Module { return c.modules }

// Module returns the module named name, or nil
func (c *Component) Module(name string) *Module {
	if i, ok := c.modIndex[name]; ok {
		return c.modules[i]
	}
	return nil
}

// Contains reports whether a module named name exists
func (c *Component) Contains(name string) bool {
	_, ok := c.modIndex[name]
	return ok
}

// FirstModule returns the first module, or nil for an empty component
func (c *Component) FirstModule() *Module {
	if len(c.modules) == 0 {
		return nil
	}
	return c.modules[0]
}

// Signature returns the signature of the function id defined in this component
func (c *Component) Signature(id FunctionIdent) (Signature, bool) {
	return lookupSignature(c.modules, c.modIndex, id)
}

// Import returns the import recorded under id
func (c *Component) Import(id FunctionIdent) (ComponentImport, bool) {
	imp, ok := c.imports[id]
	return imp, ok
}

// Imports returns all imports ordered by key
func (c *Component) Imports() []ImportEntry { return sortedImports(c.imports) }

// Export returns the export recorded under name
func (c *Component) Export(name InterfaceFunctionIdent) (ComponentExport, bool) {
	exp, ok := c.exports[name]
	return exp, ok
}

// Exports returns all exports ordered by key
func (c *Component) Exports() []ExportEntry { return sortedExports(c.exports) }

func lookupSignature(modules []*Module, index map[string]int, id FunctionIdent) (Signature, bool) {
	i, ok := index[id.Module]
	if !ok {
		return Signature{}, false
	}
	fn := modules[i].Function(id.Function)
	if fn == nil {
		return Signature{}, false
	}
	return fn.Signature, true
}

func sortedImports(m map[FunctionIdent]ComponentImport) []ImportEntry {
	out := make([]ImportEntry, 0, len(m))
	for id, imp := range m {
		out = append(out, ImportEntry{ID: id, Import: imp})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Compare(out[j].ID) < 0 })
	return out
}

func sortedExports(m map[InterfaceFunctionIdent]ComponentExport) []ExportEntry {
	out := make([]ExportEntry, 0, len(m))
	for name, exp := range m {
		out = append(out, ExportEntry{Name: name, Export: exp})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name.Compare(out[j].Name) < 0 })
	return out
}

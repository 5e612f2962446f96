package masm

import (
	"context"
	"io"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/miden-backend/assembler"
	"github.com/wippyai/miden-backend/hir"
)

// AssembleConfig controls assembly of a Library or Program
type AssembleConfig struct {
	// Debug keeps procedure names in the assembled forest
	Debug bool
	// TestHarness emits the advice-driven memory loader used by the VM test
	// harness into program startup code
	TestHarness bool
}

// Library is a frozen set of modules, linked dependencies and rodata. A
// Library is immutable and safe for concurrent readers.
type Library struct {
	kernel       *assembler.Library
	stackPointer *uint32
	modules      []*Module
	libraries    []*assembler.Library
	rodata       []Rodata
}

// Get returns the module named name, or nil
func (l *Library) Get(name string) *Module {
	i, ok := l.find(name)
	if !ok {
		return nil
	}
	return l.modules[i]
}

// Contains reports whether a module named name exists
func (l *Library) Contains(name string) bool {
	_, ok := l.find(name)
	return ok
}

// Modules returns the modules in name order
func (l *Library) Modules() []*Module { return l.modules }

// Rodatas returns the committed data segments
func (l *Library) Rodatas() []Rodata { return l.rodata }

// StackPointer returns the address of the stack pointer global, if the
// program declares one
func (l *Library) StackPointer() (uint32, bool) {
	if l.stackPointer == nil {
		return 0, false
	}
	return *l.stackPointer, true
}

// LinkLibraries returns the libraries linked at assembly
func (l *Library) LinkLibraries() []*assembler.Library { return l.libraries }

// Kernel returns the linked kernel, if any
func (l *Library) Kernel() *assembler.Library { return l.kernel }

func (l *Library) find(name string) (int, bool) {
	i := sort.Search(len(l.modules), func(i int) bool { return l.modules[i].Name >= name })
	return i, i < len(l.modules) && l.modules[i].Name == name
}

func (l *Library) insert(m *Module) {
	i, ok := l.find(m.Name)
	if ok {
		l.modules[i] = m
		return
	}
	l.modules = append(l.modules, nil)
	copy(l.modules[i+1:], l.modules[i:])
	l.modules[i] = m
}

// Assemble compiles the library and attaches the rodata advice map. Exports
// of lifted interface procedures are re-keyed under their interface name.
func (l *Library) Assemble(ctx context.Context, cfg AssembleConfig) (*assembler.Library, error) {
	a, err := l.newAssembler(ctx, cfg)
	if err != nil {
		return nil, err
	}
	var lib *assembler.Library
	if l.isKernel() {
		lib, err = a.AssembleKernel()
	} else {
		lib, err = a.AssembleLibrary()
	}
	if err != nil {
		return nil, err
	}
	lib = lib.RenameExports(RecoverExportName)
	return lib.WithAdviceMap(l.AdviceMap())
}

func (l *Library) isKernel() bool {
	for _, m := range l.modules {
		if m.Kind == assembler.KindKernel {
			return true
		}
	}
	return false
}

// newAssembler registers the kernel and libraries, then every module not
// already supplied by one of them
func (l *Library) newAssembler(ctx context.Context, cfg AssembleConfig) (*assembler.Assembler, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	log := Logger()
	a := assembler.New().WithDebugMode(cfg.Debug)
	if l.kernel != nil {
		if err := a.WithKernel(l.kernel); err != nil {
			return nil, err
		}
	}

	external := make(map[string]bool)
	libraries := l.libraries
	if l.needsBuiltins() {
		libraries = append([]*assembler.Library{assembler.Builtins()}, libraries...)
	}
	for _, lib := range libraries {
		for _, path := range lib.ModulePaths() {
			log.Debug("registering library module with assembler", zap.String("module", path))
			external[path] = true
		}
		if err := a.AddLibrary(lib); err != nil {
			return nil, err
		}
	}

	for _, m := range l.modules {
		if external[m.Name] {
			log.Warn("module is already registered with the assembler as a library module, skipping",
				zap.String("module", m.Name))
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		log.Debug("adding module to assembler", zap.String("module", m.Name), zap.Stringer("kind", m.Kind))
		if err := a.AddModule(m.ToAST()); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// needsBuiltins reports whether no linked library or local module provides
// the builtin std::mem and intrinsics::mem modules
func (l *Library) needsBuiltins() bool {
	for _, lib := range l.libraries {
		for _, path := range lib.ModulePaths() {
			if assembler.IsBuiltinModule(path) {
				return false
			}
		}
	}
	for _, m := range l.modules {
		if assembler.IsBuiltinModule(m.Name) {
			return false
		}
	}
	return true
}

// AdviceMap pairs every rodata digest with its word-padded elements
func (l *Library) AdviceMap() assembler.AdviceMap {
	m := make(assembler.AdviceMap, len(l.rodata))
	for _, r := range l.rodata {
		m[r.Digest] = r.ToElements()
	}
	return m
}

// String renders every user module in name order. Modules in the std and
// intrinsics namespaces are omitted.
func (l *Library) String() string {
	var b strings.Builder
	l.write(&b)
	return b.String()
}

// WriteTo writes the library text to w
func (l *Library) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, l.String())
	return int64(n), err
}

func (l *Library) write(b *strings.Builder) {
	first := true
	for _, m := range l.modules {
		if m.IsStd() || m.IsIntrinsics() {
			continue
		}
		if !first {
			b.WriteByte('\n')
		}
		first = false
		m.write(b)
	}
}

// LibraryBuilder collects modules and dependencies for a Library. A builder
// must not be used after Freeze.
type LibraryBuilder struct {
	lib *Library
}

// NewLibraryBuilder returns an empty builder
func NewLibraryBuilder() *LibraryBuilder {
	return &LibraryBuilder{lib: &Library{}}
}

// NewLibraryBuilderFromHIR returns a builder carrying the rodata and stack
// pointer of p. No modules are added.
func NewLibraryBuilderFromHIR(p *hir.Program) *LibraryBuilder {
	b := NewLibraryBuilder()
	b.lib.rodata, b.lib.stackPointer = linkData(p)
	return b
}

func linkData(p *hir.Program) ([]Rodata, *uint32) {
	layout := hir.ComputeGlobalLayout(p.Segments)
	rodata := ComputeRodata(layout.GlobalTableOffset, p.Globals, p.Segments)
	var sp *uint32
	if gv, ok := p.Globals.Find(hir.StackPointerGlobal); ok {
		addr := layout.GlobalTableOffset + gv.Offset
		sp = &addr
	}
	return rodata, sp
}

func (b *LibraryBuilder) open() *Library {
	if b.lib == nil {
		panic("masm: library builder used after Freeze")
	}
	return b.lib
}

// Insert adds m, replacing any module with the same name
func (b *LibraryBuilder) Insert(m *Module) { b.open().insert(m) }

// LinkLibrary links lib during assembly
func (b *LibraryBuilder) LinkLibrary(lib *assembler.Library) {
	l := b.open()
	l.libraries = append(l.libraries, lib)
}

// LinkKernel links kernel during assembly
func (b *LibraryBuilder) LinkKernel(kernel *assembler.Library) { b.open().kernel = kernel }

// Freeze returns the finished Library. The builder is consumed.
func (b *LibraryBuilder) Freeze() *Library {
	l := b.open()
	b.lib = nil
	return l
}

// RecoverExportName re-keys an export whose procedure name has the form
// interface#function under a module named after the interface. Exports in
// intrinsics modules and cabi glue pass through unchanged. Panics if an
// interface export name does not split into exactly two parts.
func RecoverExportName(name assembler.QualifiedName) assembler.QualifiedName {
	if strings.HasPrefix(name.Module, "intrinsics") || strings.HasPrefix(name.Name, "cabi") {
		return name
	}
	if !strings.Contains(name.Name, "/") {
		return name
	}
	parts := strings.Split(name.Name, "#")
	if len(parts) != 2 {
		panic("masm: malformed interface export name " + name.String())
	}
	return assembler.NewQualifiedName(parts[0], parts[1])
}

// InterfaceProcedureName returns the procedure name under which an interface
// function is emitted, interface#function
func InterfaceProcedureName(id hir.InterfaceFunctionIdent) string {
	return id.Interface.FullName + "#" + id.Function
}

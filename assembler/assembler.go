package assembler

import (
	"go.uber.org/zap"

	"github.com/wippyai/miden-backend/errors"
	"github.com/wippyai/miden-backend/felt"
)

// Assembler resolves and hashes registered modules. An Assembler is not safe
// for concurrent use.
type Assembler struct {
	kernel     *Library
	libModules map[string]*Library
	modIndex   map[string]int
	libraries  []*Library
	modules    []*Module
	debug      bool
}

// New returns an assembler with no modules or libraries
func New() *Assembler {
	return &Assembler{
		libModules: make(map[string]*Library),
		modIndex:   make(map[string]int),
	}
}

// WithDebugMode keeps procedure names on assembled nodes
func (a *Assembler) WithDebugMode(on bool) *Assembler {
	a.debug = on
	return a
}

// WithKernel links the kernel that syscalls resolve against
func (a *Assembler) WithKernel(k *Library) error {
	if !k.IsKernel() {
		return errors.InvalidInput(errors.PhaseAssemble, "library is not a kernel")
	}
	if a.kernel != nil {
		return errors.Conflict(errors.PhaseAssemble, "kernel", "a kernel is already linked")
	}
	a.kernel = k
	return nil
}

// AddLibrary makes the exports of l available to registered modules
func (a *Assembler) AddLibrary(l *Library) error {
	if l.IsKernel() {
		return errors.InvalidInput(errors.PhaseAssemble, "kernels are linked with WithKernel")
	}
	paths := l.ModulePaths()
	for _, path := range paths {
		if a.hasModule(path) {
			return errors.Duplicate(errors.PhaseAssemble, "module", path)
		}
	}
	for _, path := range paths {
		Logger().Debug("registering library module", zap.String("module", path))
		a.libModules[path] = l
	}
	a.libraries = append(a.libraries, l)
	return nil
}

// AddModule registers m for assembly
func (a *Assembler) AddModule(m *Module) error {
	if m.Kind == KindExecutable {
		return errors.New(errors.PhaseAssemble, errors.KindInvalidInput).
			Symbol(m.Path).
			Detail("executable modules are assembled with AssembleProgram").
			Build()
	}
	return a.register(m)
}

func (a *Assembler) register(m *Module) error {
	if err := m.Validate(); err != nil {
		return err
	}
	if a.hasModule(m.Path) {
		return errors.Duplicate(errors.PhaseAssemble, "module", m.Path)
	}
	Logger().Debug("adding module",
		zap.String("module", m.Path),
		zap.Stringer("kind", m.Kind),
		zap.Int("procedures", len(m.Procedures)))
	a.modIndex[m.Path] = len(a.modules)
	a.modules = append(a.modules, m)
	return nil
}

func (a *Assembler) hasModule(path string) bool {
	if _, ok := a.modIndex[path]; ok {
		return true
	}
	_, ok := a.libModules[path]
	return ok
}

// AssembleLibrary compiles every registered module into a library. Kernel
// modules must be assembled with AssembleKernel.
func (a *Assembler) AssembleLibrary() (*Library, error) {
	return a.assembleLibrary(false)
}

// AssembleKernel compiles the registered kernel modules into a kernel library
func (a *Assembler) AssembleKernel() (*Library, error) {
	return a.assembleLibrary(true)
}

func (a *Assembler) assembleLibrary(kernel bool) (*Library, error) {
	if len(a.modules) == 0 {
		return nil, errors.InvalidInput(errors.PhaseAssemble, "no modules to assemble")
	}
	c := a.newCompilation()
	lib := &Library{
		forest:  c.forest,
		advice:  make(AdviceMap),
		exports: make(map[QualifiedName]felt.Digest),
		kernel:  kernel,
	}
	for _, m := range a.modules {
		if (m.Kind == KindKernel) != kernel {
			return nil, errors.New(errors.PhaseAssemble, errors.KindInvalidInput).
				Symbol(m.Path).
				Detail("%s module cannot be part of this library", m.Kind).
				Build()
		}
		lib.modules = append(lib.modules, m.Path)
		for _, p := range m.Procedures {
			name := NewQualifiedName(m.Path, p.Name)
			d, err := c.procedure(name)
			if err != nil {
				return nil, err
			}
			if p.Exported {
				lib.exports[name] = d
			}
		}
	}
	Logger().Debug("assembled library",
		zap.Bool("kernel", kernel),
		zap.Int("modules", len(lib.modules)),
		zap.Int("exports", len(lib.exports)),
		zap.Int("nodes", lib.forest.Len()))
	return lib, nil
}

// AssembleProgram compiles main, which must be an executable module, and
// everything reachable from its main procedure
func (a *Assembler) AssembleProgram(main *Module) (*Program, error) {
	if main.Kind != KindExecutable {
		return nil, errors.New(errors.PhaseAssemble, errors.KindInvalidInput).
			Symbol(main.Path).
			Detail("program root must be an executable module").
			Build()
	}
	if err := a.register(main); err != nil {
		return nil, err
	}
	defer a.unregister(main)

	c := a.newCompilation()
	entry, err := c.procedure(NewQualifiedName(main.Path, MainProcedure))
	if err != nil {
		return nil, err
	}
	prog := &Program{
		forest:     c.forest,
		advice:     make(AdviceMap),
		kernel:     a.kernel,
		entrypoint: entry,
	}
	for _, l := range a.libraries {
		prog.libraries = append(prog.libraries, l.ModulePaths()...)
	}
	Logger().Debug("assembled program",
		zap.Stringer("entrypoint", entry),
		zap.Int("nodes", prog.forest.Len()))
	return prog, nil
}

func (a *Assembler) unregister(m *Module) {
	i, ok := a.modIndex[m.Path]
	if !ok || a.modules[i] != m {
		return
	}
	delete(a.modIndex, m.Path)
	a.modules = append(a.modules[:i], a.modules[i+1:]...)
	for j := i; j < len(a.modules); j++ {
		a.modIndex[a.modules[j].Path] = j
	}
}

type compilation struct {
	a       *Assembler
	forest  *Forest
	digests map[QualifiedName]felt.Digest
	active  map[QualifiedName]bool
}

func (a *Assembler) newCompilation() *compilation {
	return &compilation{
		a:       a,
		forest:  NewForest(),
		digests: make(map[QualifiedName]felt.Digest),
		active:  make(map[QualifiedName]bool),
	}
}

// procedure returns the digest of a locally registered procedure, compiling
// it and its callees first
func (c *compilation) procedure(name QualifiedName) (felt.Digest, error) {
	if d, ok := c.digests[name]; ok {
		return d, nil
	}
	m := c.a.modules[c.a.modIndex[name.Module]]
	p, ok := m.Procedure(name.Name)
	if !ok {
		return felt.Digest{}, errors.Undefined(errors.PhaseAssemble, name.String())
	}
	if c.active[name] {
		return felt.Digest{}, errors.New(errors.PhaseAssemble, errors.KindCycle).
			Symbol(name.String()).
			Detail("procedure invokes itself").
			Build()
	}
	c.active[name] = true
	defer delete(c.active, name)

	var callees []felt.Digest
	for _, inst := range p.Body {
		if !inst.IsInvoke() {
			continue
		}
		d, err := c.resolve(m, name, inst)
		if err != nil {
			return felt.Digest{}, err
		}
		callees = append(callees, d)
	}

	body := encodeBody(p.Body, callees)
	node := Node{Body: body, Digest: hashBody(body)}
	if c.a.debug {
		node.Name = name.String()
	}
	c.forest.Add(node)
	c.digests[name] = node.Digest
	return node.Digest, nil
}

func (c *compilation) resolve(caller *Module, from QualifiedName, inst Instruction) (felt.Digest, error) {
	target := inst.Target
	if inst.Op == OpSyscall {
		if c.a.kernel == nil {
			return felt.Digest{}, errors.New(errors.PhaseAssemble, errors.KindUndefined).
				Symbol(target.String()).
				Path(from.String()).
				Detail("syscall without a linked kernel").
				Build()
		}
		d, ok := c.a.kernel.Export(target)
		if !ok {
			return felt.Digest{}, errors.Undefined(errors.PhaseAssemble, target.String())
		}
		return d, nil
	}

	if i, ok := c.a.modIndex[target.Module]; ok {
		callee := c.a.modules[i]
		p, ok := callee.Procedure(target.Name)
		if !ok {
			return felt.Digest{}, errors.Undefined(errors.PhaseAssemble, target.String())
		}
		if callee != caller {
			if !p.Exported {
				return felt.Digest{}, errors.New(errors.PhaseAssemble, errors.KindInvalidInput).
					Symbol(target.String()).
					Path(from.String()).
					Detail("procedure is not exported").
					Build()
			}
			if callee.Kind == KindKernel && caller.Kind != KindKernel {
				return felt.Digest{}, errors.New(errors.PhaseAssemble, errors.KindInvalidInput).
					Symbol(target.String()).
					Path(from.String()).
					Detail("kernel procedures are reachable only via syscall").
					Build()
			}
		}
		return c.procedure(target)
	}

	if lib, ok := c.a.libModules[target.Module]; ok {
		if d, ok := lib.Export(target); ok {
			return d, nil
		}
	}
	return felt.Digest{}, errors.New(errors.PhaseAssemble, errors.KindUndefined).
		Symbol(target.String()).
		Path(from.String()).
		Detail("reference to undefined procedure").
		Build()
}

package masm

import (
	"context"
	"io"
	"strings"

	"fortio.org/safecast"
	"go.uber.org/zap"

	"github.com/wippyai/miden-backend/assembler"
	"github.com/wippyai/miden-backend/hir"
)

// Program is a frozen Library with an optional entrypoint and the base
// address of the dynamic heap. Without an entrypoint the startup code
// dispatches on a procedure hash supplied on the operand stack.
type Program struct {
	entrypoint *hir.FunctionIdent
	Library
	heapBase uint32
}

// Entrypoint returns the procedure invoked after startup, if fixed
func (p *Program) Entrypoint() (hir.FunctionIdent, bool) {
	if p.entrypoint == nil {
		return hir.FunctionIdent{}, false
	}
	return *p.entrypoint, true
}

// HeapBase returns the first address of the dynamic heap
func (p *Program) HeapBase() uint32 { return p.heapBase }

// Assemble compiles the program rooted at its generated startup module and
// attaches the rodata advice map
func (p *Program) Assemble(ctx context.Context, cfg AssembleConfig) (*assembler.Program, error) {
	a, err := p.newAssembler(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if ep, ok := p.Entrypoint(); ok {
		Logger().Debug("assembling executable",
			zap.Stringer("entrypoint", ep),
			zap.Bool("debug", cfg.Debug),
			zap.Bool("test_harness", cfg.TestHarness))
	} else {
		Logger().Debug("assembling executable with dynamic entry",
			zap.Bool("debug", cfg.Debug),
			zap.Bool("test_harness", cfg.TestHarness))
	}
	prog, err := a.AssembleProgram(p.StartupModule(cfg.TestHarness).ToAST())
	if err != nil {
		return nil, err
	}
	return prog.WithAdviceMap(p.AdviceMap())
}

// String renders the user modules followed by the startup module
func (p *Program) String() string {
	var b strings.Builder
	p.Library.write(&b)
	if b.Len() > 0 {
		b.WriteByte('\n')
	}
	p.StartupModule(false).write(&b)
	return b.String()
}

// WriteTo writes the program text to w
func (p *Program) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, p.String())
	return int64(n), err
}

// ComputeHeapBase returns the first page boundary after the reserved region
// and the global table. A zero pageSize selects hir.DefaultPageSize. Panics
// if the result does not fit a 32-bit address.
func ComputeHeapBase(reservedMemoryBytes, globalsSize, pageSize uint32) uint32 {
	if pageSize == 0 {
		pageSize = hir.DefaultPageSize
	}
	page := uint64(pageSize)
	globals := (uint64(globalsSize) + page - 1) / page * page
	base, err := safecast.Conv[uint32](uint64(reservedMemoryBytes) + globals)
	if err != nil {
		panic("masm: unable to allocate dynamic heap: global table too large")
	}
	return base
}

// ProgramBuilder collects modules and dependencies for a Program. A builder
// must not be used after Freeze.
type ProgramBuilder struct {
	p *Program
}

// NewProgramBuilder returns an empty builder whose heap starts after the
// default reserved memory
func NewProgramBuilder() *ProgramBuilder {
	return &ProgramBuilder{p: &Program{
		heapBase: ComputeHeapBase(hir.DefaultReservedMemoryPages*hir.DefaultPageSize, 0, hir.DefaultPageSize),
	}}
}

// NewProgramBuilderFromHIR returns a builder carrying the rodata, stack
// pointer, entrypoint and heap base of p. No modules are added.
func NewProgramBuilderFromHIR(p *hir.Program) *ProgramBuilder {
	b := &ProgramBuilder{p: &Program{}}
	b.p.rodata, b.p.stackPointer = linkData(p)
	b.p.heapBase = ComputeHeapBase(p.ReservedMemoryBytes, p.Globals.SizeInBytes(), p.PageSize)
	if p.Entrypoint != nil {
		ep := *p.Entrypoint
		b.p.entrypoint = &ep
	}
	return b
}

func (b *ProgramBuilder) open() *Program {
	if b.p == nil {
		panic("masm: program builder used after Freeze")
	}
	return b.p
}

// Insert adds m, replacing any module with the same name
func (b *ProgramBuilder) Insert(m *Module) { b.open().insert(m) }

// LinkLibrary links lib during assembly
func (b *ProgramBuilder) LinkLibrary(lib *assembler.Library) {
	p := b.open()
	p.libraries = append(p.libraries, lib)
}

// LinkKernel links kernel during assembly
func (b *ProgramBuilder) LinkKernel(kernel *assembler.Library) { b.open().kernel = kernel }

// SetEntrypoint fixes the procedure invoked after startup
func (b *ProgramBuilder) SetEntrypoint(id hir.FunctionIdent) { b.open().entrypoint = &id }

// Freeze returns the finished Program. The builder is consumed.
func (b *ProgramBuilder) Freeze() *Program {
	p := b.open()
	b.p = nil
	return p
}

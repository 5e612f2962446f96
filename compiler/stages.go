package compiler

import (
	"context"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/miden-backend/assembler"
	"github.com/wippyai/miden-backend/codegen"
	"github.com/wippyai/miden-backend/crossctx"
	"github.com/wippyai/miden-backend/hir"
	"github.com/wippyai/miden-backend/masm"
)

// Artifact is the result of a compilation. Exactly one of Program and
// Library is set, together with the linked form it was assembled from.
type Artifact struct {
	Program     *assembler.Program
	Library     *assembler.Library
	MasmProgram *masm.Program
	MasmLibrary *masm.Library
	Name        string
}

// Stage is one component-to-component pass of the pipeline
type Stage interface {
	Name() string
	Run(ctx context.Context, c *hir.Component, analyses *hir.AnalysisManager) (*hir.Component, error)
}

// Stages returns the cross-context passes in the order Compile runs them
func (s *Session) Stages() []Stage {
	cfg := crossctx.Config{Entrypoint: s.Options.Entrypoint}
	return []Stage{
		crossctx.LowerImportsStage{Config: cfg},
		crossctx.LiftExportsStage{Config: cfg},
	}
}

// Compile runs c through the pipeline. p supplies globals, data segments
// and memory parameters; nil means none. c is consumed.
func (s *Session) Compile(ctx context.Context, c *hir.Component, p *hir.Program) (*Artifact, error) {
	if p == nil {
		p = hir.NewProgram()
	}
	s.applyMemory(p)

	analyses := hir.NewAnalysisManager()
	for _, st := range s.Stages() {
		start := time.Now()
		next, err := st.Run(ctx, c, analyses)
		if err != nil {
			return nil, err
		}
		c = next
		Logger().Debug("stage finished",
			zap.String("stage", st.Name()),
			zap.Duration("elapsed", time.Since(start)),
			zap.Stringer("component", c))
	}
	checkNativeImports(c)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	modules, err := codegen.LowerComponent(c, codegen.Options{Analyses: analyses})
	if err != nil {
		return nil, err
	}
	libs, kernel, err := s.LoadLibraries()
	if err != nil {
		return nil, err
	}

	cfg := masm.AssembleConfig{
		Debug:       s.Options.DebugDecorators,
		TestHarness: s.Options.TestHarness,
	}
	a := &Artifact{Name: s.Options.Name}
	if s.Options.ProjectType == ProjectLibrary {
		b := masm.NewLibraryBuilderFromHIR(p)
		link(b, modules, libs, kernel)
		a.MasmLibrary = b.Freeze()
		a.Library, err = a.MasmLibrary.Assemble(ctx, cfg)
	} else {
		b := masm.NewProgramBuilderFromHIR(p)
		link(b, modules, libs, kernel)
		if s.Options.Entrypoint != "" {
			id, perr := hir.ParseFunctionIdent(s.Options.Entrypoint)
			if perr != nil {
				return nil, perr
			}
			b.SetEntrypoint(id)
		}
		a.MasmProgram = b.Freeze()
		a.Program, err = a.MasmProgram.Assemble(ctx, cfg)
	}
	if err != nil {
		return nil, err
	}
	Logger().Info("compiled",
		zap.String("name", a.Name),
		zap.String("type", string(s.Options.ProjectType)),
		zap.Int("modules", len(modules)))
	return a, nil
}

func (s *Session) applyMemory(p *hir.Program) {
	if s.Options.ReservedMemoryBytes != 0 {
		p.ReservedMemoryBytes = s.Options.ReservedMemoryBytes
	}
	if s.Options.PageSize != 0 {
		p.PageSize = s.Options.PageSize
	}
}

type linker interface {
	Insert(m *masm.Module)
	LinkLibrary(lib *assembler.Library)
	LinkKernel(kernel *assembler.Library)
}

func link(b linker, modules []*masm.Module, libs []*assembler.Library, kernel *assembler.Library) {
	for _, m := range modules {
		b.Insert(m)
	}
	for _, lib := range libs {
		b.LinkLibrary(lib)
	}
	if kernel != nil {
		b.LinkKernel(kernel)
	}
}

// checkNativeImports warns about lowered imports of natively provided
// procedures whose recorded type differs from the native one
func checkNativeImports(c *hir.Component) {
	for _, e := range c.Imports() {
		imp, ok := e.Import.(*hir.MidenAbiImport)
		if !ok {
			continue
		}
		native, ok := crossctx.NativeFunctionType(e.ID)
		if !ok {
			continue
		}
		if !slices.EqualFunc(native.Params, imp.FunctionTy.Params, hir.Type.Equal) ||
			!slices.EqualFunc(native.Results, imp.FunctionTy.Results, hir.Type.Equal) {
			Logger().Warn("import disagrees with native signature",
				zap.Stringer("function", e.ID),
				zap.Stringer("native", native),
				zap.Stringer("imported", imp.FunctionTy))
		}
	}
}

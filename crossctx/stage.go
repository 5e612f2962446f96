package crossctx

import (
	"context"

	"github.com/wippyai/miden-backend/hir"
)

// LowerImportsStage runs LowerImports over a whole component
type LowerImportsStage struct {
	Config Config
}

// Name identifies the stage in logs
func (LowerImportsStage) Name() string { return "lower-imports" }

// Run loads c, lowers its imports and rebuilds it. c is consumed.
func (s LowerImportsStage) Run(ctx context.Context, c *hir.Component, analyses *hir.AnalysisManager) (*hir.Component, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cb := hir.Load(c)
	if err := LowerImports(cb, analyses, s.Config); err != nil {
		return nil, err
	}
	return cb.Build(), nil
}

// LiftExportsStage runs LiftExports over a whole component
type LiftExportsStage struct {
	Config Config
}

// Name identifies the stage in logs
func (LiftExportsStage) Name() string { return "lift-exports" }

// Run loads c, lifts its exports and rebuilds it. c is consumed.
func (s LiftExportsStage) Run(ctx context.Context, c *hir.Component, _ *hir.AnalysisManager) (*hir.Component, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cb := hir.Load(c)
	if err := LiftExports(cb, s.Config); err != nil {
		return nil, err
	}
	return cb.Build(), nil
}

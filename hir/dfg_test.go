package hir

import (
	"errors"
	"testing"

	berrors "github.com/wippyai/miden-backend/errors"
)

func TestFunctionBuilder(t *testing.T) {
	callee := NewFunctionIdent("std::math", "add")
	sig := NewSignature([]Type{I32, I32}, []Type{I32})

	fn := NewFunction(NewFunctionIdent("app", "main"), NewSignature([]Type{I32}, []Type{I32}))
	b := NewFunctionBuilder(fn)
	if err := b.Import(callee, sig); err != nil {
		t.Fatal(err)
	}
	x := b.BlockParams(fn.EntryBlock())[0]
	one := b.Const(I32, 1)
	call := b.Exec(callee, x, one)
	res, ok := b.FirstResult(call)
	if !ok {
		t.Fatal("call has no result")
	}
	b.Ret(res)

	insts := fn.DFG.BlockInsts(fn.EntryBlock())
	if len(insts) != 3 {
		t.Fatalf("got %d instructions", len(insts))
	}
	if op := fn.DFG.Inst(insts[1]).Op; op != OpExec {
		t.Errorf("second instruction is %s", op)
	}
	if ty := fn.DFG.ValueType(res); !ty.Equal(I32) {
		t.Errorf("result type %s", ty)
	}
	if got := fn.Callees(); len(got) != 1 || got[0] != callee {
		t.Errorf("Callees() = %v", got)
	}
}

func TestFunctionBuilder_UnimportedCalleePanics(t *testing.T) {
	fn := NewFunction(NewFunctionIdent("app", "main"), Signature{})
	b := NewFunctionBuilder(fn)
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	b.Call(NewFunctionIdent("x", "y"))
}

func TestDataFlowGraph_ImportFunction(t *testing.T) {
	dfg := NewDataFlowGraph()
	id := NewFunctionIdent("m", "f")
	sig := NewSignature([]Type{Felt}, nil)

	if err := dfg.ImportFunction(id, sig); err != nil {
		t.Fatal(err)
	}
	if err := dfg.ImportFunction(id, sig); err != nil {
		t.Errorf("re-import with same signature: %v", err)
	}
	err := dfg.ImportFunction(id, NewSignature([]Type{I32}, nil))
	if !errors.Is(err, &berrors.Error{Phase: berrors.PhaseLink, Kind: berrors.KindConflict}) {
		t.Errorf("expected conflict, got %v", err)
	}

	_ = dfg.ImportFunction(NewFunctionIdent("a", "z"), sig)
	imports := dfg.Imports()
	if len(imports) != 2 || imports[0].ID.Module != "a" {
		t.Errorf("imports not sorted: %v", imports)
	}
}

func TestDataFlowGraph_SetCallee(t *testing.T) {
	from := NewFunctionIdent("m", "old")
	to := NewFunctionIdent("m", "new")
	fn := NewFunction(NewFunctionIdent("app", "f"), Signature{})
	b := NewFunctionBuilder(fn)
	_ = b.Import(from, Signature{})
	b.Const(Felt, 3)
	call := b.Call(from)
	b.Ret()

	before := append([]Inst(nil), fn.DFG.BlockInsts(fn.EntryBlock())...)
	fn.DFG.SetCallee(call, to)
	after := fn.DFG.BlockInsts(fn.EntryBlock())
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("instruction order changed at %d", i)
		}
	}
	if fn.DFG.Inst(call).Callee != to {
		t.Error("callee not updated")
	}
}

func TestModule_AddFunction(t *testing.T) {
	m := NewModule("app")
	if _, err := m.DefineFunction("f", Signature{}); err != nil {
		t.Fatal(err)
	}
	if _, err := m.DefineFunction("f", Signature{}); err == nil {
		t.Error("duplicate function accepted")
	}
	if err := m.AddFunction(NewFunction(NewFunctionIdent("other", "g"), Signature{})); err == nil {
		t.Error("foreign function accepted")
	}
	if m.Function("f") == nil || m.Len() != 1 {
		t.Error("function not recorded")
	}
}

func TestAnalysisManager(t *testing.T) {
	am := NewAnalysisManager()
	fn := NewFunction(NewFunctionIdent("app", "f"), Signature{})
	calls := 0
	compute := func() any { calls++; return calls }

	if v := am.GetOrCompute(fn.ID, "x", compute); v != 1 {
		t.Errorf("got %v", v)
	}
	if v := am.GetOrCompute(fn.ID, "x", compute); v != 1 {
		t.Errorf("cached value not reused: %v", v)
	}
	am.Invalidate(fn.ID)
	if v := am.GetOrCompute(fn.ID, "x", compute); v != 2 {
		t.Errorf("value not recomputed after invalidation: %v", v)
	}
	if am.Invalidations(fn.ID) != 1 {
		t.Errorf("Invalidations = %d", am.Invalidations(fn.ID))
	}
	if got := am.CachedCallees(fn); len(got) != 0 {
		t.Errorf("CachedCallees = %v", got)
	}
}

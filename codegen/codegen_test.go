package codegen_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/wippyai/miden-backend/assembler"
	"github.com/wippyai/miden-backend/codegen"
	"github.com/wippyai/miden-backend/crossctx"
	berrors "github.com/wippyai/miden-backend/errors"
	"github.com/wippyai/miden-backend/felt"
	"github.com/wippyai/miden-backend/hir"
	"github.com/wippyai/miden-backend/masm"
	"github.com/wippyai/miden-backend/masm/emulator"
)

func felts(n int) []hir.Type {
	out := make([]hir.Type, n)
	for i := range out {
		out[i] = hir.Felt
	}
	return out
}

func opText(f *masm.Function) string {
	var parts []string
	for _, op := range f.Body {
		parts = append(parts, op.String())
	}
	return strings.Join(parts, " ")
}

func define(t *testing.T, name string, sig hir.Signature) *hir.FunctionBuilder {
	t.Helper()
	b, err := hir.NewModule("m").DefineFunction(name, sig)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestLowerFunction_Forwarder(t *testing.T) {
	b := define(t, "f", hir.NewSignature(felts(2), felts(1)))
	g := hir.NewFunctionIdent("m", "g")
	if err := b.Import(g, hir.NewSignature(felts(2), felts(1))); err != nil {
		t.Fatal(err)
	}
	params := b.BlockParams(b.CurrentBlock())
	res, _ := b.FirstResult(b.Exec(g, params[1], params[0]))
	b.Ret(res)

	f, err := codegen.LowerFunction(b.Function(), nil)
	if err != nil {
		t.Fatalf("LowerFunction: %v", err)
	}
	want := "dup.0 dup.2 exec.::m::g swap drop swap drop"
	if got := opText(f); got != want {
		t.Errorf("body = %s, want %s", got, want)
	}
	if !f.Exported || f.Name != "f" {
		t.Errorf("function = %s exported=%v", f.Name, f.Exported)
	}
}

func TestLowerFunction_StackEffect(t *testing.T) {
	tests := []struct {
		name  string
		build func(b *hir.FunctionBuilder)
		args  []felt.Felt
		want  []felt.Felt
	}{
		{
			name: "swap params",
			build: func(b *hir.FunctionBuilder) {
				p := b.BlockParams(b.CurrentBlock())
				b.Ret(p[1], p[0])
			},
			args: []felt.Felt{10, 20},
			want: []felt.Felt{10, 20},
		},
		{
			name: "constant",
			build: func(b *hir.FunctionBuilder) {
				b.Ret(b.Const(hir.Felt, 99))
			},
			args: []felt.Felt{10, 20},
			want: []felt.Felt{99},
		},
		{
			name: "drop all",
			build: func(b *hir.FunctionBuilder) {
				b.Ret()
			},
			args: []felt.Felt{10, 20},
			want: nil,
		},
		{
			name: "duplicate",
			build: func(b *hir.FunctionBuilder) {
				p := b.BlockParams(b.CurrentBlock())
				b.Ret(p[0], p[0], p[1])
			},
			args: []felt.Felt{10, 20},
			want: []felt.Felt{20, 10, 10},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := define(t, "f", hir.NewSignature(felts(len(tt.args)), felts(len(tt.want))))
			tt.build(b)
			f, err := codegen.LowerFunction(b.Function(), nil)
			if err != nil {
				t.Fatalf("LowerFunction: %v", err)
			}

			// args[0] is the first parameter and goes on top
			var ops []masm.Op
			for i := len(tt.args) - 1; i >= 0; i-- {
				ops = append(ops, masm.Push(tt.args[i].Uint64()))
			}
			m := emulator.New(nil)
			if err := m.Run(append(ops, f.Body...)); err != nil {
				t.Fatalf("Run: %v", err)
			}
			got := m.Stack()
			if len(got) != len(tt.want) {
				t.Fatalf("stack = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("stack = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestLowerFunction_Errors(t *testing.T) {
	tests := []struct {
		name  string
		sig   hir.Signature
		build func(b *hir.FunctionBuilder)
		kind  berrors.Kind
	}{
		{
			name:  "wide param",
			sig:   hir.NewSignature([]hir.Type{hir.I64}, nil),
			build: func(b *hir.FunctionBuilder) { b.Ret() },
			kind:  berrors.KindUnsupported,
		},
		{
			name:  "missing ret",
			sig:   hir.NewSignature(nil, nil),
			build: func(b *hir.FunctionBuilder) { b.Const(hir.Felt, 1) },
			kind:  berrors.KindInvalidInput,
		},
		{
			name: "instruction after ret",
			sig:  hir.NewSignature(nil, nil),
			build: func(b *hir.FunctionBuilder) {
				b.Ret()
				b.Const(hir.Felt, 1)
			},
			kind: berrors.KindInvalidInput,
		},
		{
			name:  "constant out of field",
			sig:   hir.NewSignature(nil, nil),
			build: func(b *hir.FunctionBuilder) { b.Ret(b.Const(hir.Felt, felt.Modulus)) },
			kind:  berrors.KindOverflow,
		},
		{
			name: "control flow",
			sig:  hir.NewSignature(nil, nil),
			build: func(b *hir.FunctionBuilder) {
				b.Ret()
				b.SwitchToBlock(b.CreateBlock())
				b.Ret()
			},
			kind: berrors.KindUnsupported,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := define(t, "f", tt.sig)
			tt.build(b)
			_, err := codegen.LowerFunction(b.Function(), nil)
			if !errors.Is(err, &berrors.Error{Phase: berrors.PhaseCodegen, Kind: tt.kind}) {
				t.Errorf("LowerFunction() error = %v, want kind %s", err, tt.kind)
			}
		})
	}
}

const walletIface = "miden:basic-wallet/basic-wallet@1.0.0"

var addAsset = hir.NewFunctionIdent(crossctx.AccountModule, crossctx.AccountAddAsset)

func walletComponent(t *testing.T) *hir.ComponentBuilder {
	t.Helper()
	coreSig := hir.NewSignature(felts(4), felts(1))

	cb := hir.NewComponentBuilder()
	b, err := cb.Module("app").DefineFunction("receive", hir.NewSignature(felts(4), felts(1)))
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Import(addAsset, coreSig); err != nil {
		t.Fatal(err)
	}
	res, _ := b.FirstResult(b.Exec(addAsset, b.BlockParams(b.CurrentBlock())...))
	b.Ret(res)

	cb.AddImport(addAsset, &hir.CanonAbiImport{
		InterfaceFunction: hir.NewInterfaceFunctionIdent(crossctx.AccountModule, crossctx.AccountAddAsset),
		HighFuncTy:        hir.NewFunctionType(felts(4), felts(1)),
	})
	cb.AddExport(hir.NewInterfaceFunctionIdent(walletIface, "receive"), hir.ComponentExport{
		Function:   hir.NewFunctionIdent("app", "receive"),
		FunctionTy: hir.NewFunctionType(felts(4), felts(1)),
	})
	return cb
}

func invokes(f *masm.Function, code masm.OpCode, target hir.FunctionIdent) bool {
	for _, op := range f.Body {
		if op.Code == code && op.Target == target {
			return true
		}
	}
	return false
}

func TestLowerComponent(t *testing.T) {
	cb := walletComponent(t)
	analyses := hir.NewAnalysisManager()
	if err := crossctx.LowerImports(cb, analyses, crossctx.Config{}); err != nil {
		t.Fatalf("LowerImports: %v", err)
	}
	if err := crossctx.LiftExports(cb, crossctx.Config{}); err != nil {
		t.Fatalf("LiftExports: %v", err)
	}
	c := cb.Build()

	mods, err := codegen.LowerComponent(c, codegen.Options{Analyses: analyses})
	if err != nil {
		t.Fatalf("LowerComponent: %v", err)
	}
	shimModule := crossctx.LowerImportsModulePrefix + crossctx.AccountModule
	if len(mods) != 2 || mods[0].Name != "app" || mods[1].Name != shimModule {
		var names []string
		for _, m := range mods {
			names = append(names, m.Name)
		}
		t.Fatalf("modules = %v", names)
	}
	app, shims := mods[0], mods[1]

	receive := app.Function("receive")
	if receive == nil {
		t.Fatal("app::receive not lowered")
	}
	if !invokes(receive, masm.OpExec, hir.NewFunctionIdent(shimModule, crossctx.AccountAddAsset)) {
		t.Errorf("receive does not exec the lowering shim: %s", opText(receive))
	}

	lowered := shims.Function(crossctx.AccountAddAsset)
	if lowered == nil || !invokes(lowered, masm.OpCall, addAsset) {
		t.Fatalf("lowering shim does not call the kernel")
	}

	name := masm.InterfaceProcedureName(hir.NewInterfaceFunctionIdent(walletIface, "receive"))
	lifted := app.Function(name)
	if lifted == nil {
		t.Fatalf("lifted export %q not placed in app", name)
	}
	if !lifted.Exported || !invokes(lifted, masm.OpExec, hir.NewFunctionIdent("app", "receive")) {
		t.Errorf("lifted export = exported:%v %s", lifted.Exported, opText(lifted))
	}

	for _, m := range c.Modules() {
		for _, fn := range m.Functions() {
			if _, ok := analyses.Get(fn.ID, hir.CalleesAnalysis); !ok {
				t.Errorf("callees of %s not cached", fn.ID)
			}
		}
	}
}

func TestLowerComponent_ExportModule(t *testing.T) {
	cb := walletComponent(t)
	if err := crossctx.LiftExports(cb, crossctx.Config{}); err != nil {
		t.Fatal(err)
	}
	mods, err := codegen.LowerComponent(cb.Build(), codegen.Options{ExportModule: "wallet"})
	if err != nil {
		t.Fatal(err)
	}
	var wallet *masm.Module
	for _, m := range mods {
		if m.Name == "wallet" {
			wallet = m
		}
	}
	if wallet == nil {
		t.Fatal("export module not created")
	}
	if wallet.Function(walletIface+"#receive") == nil {
		t.Errorf("export module lacks the lifted procedure")
	}
}

func TestLowerComponent_Kernel(t *testing.T) {
	cb := hir.NewComponentBuilder()
	m := cb.Module("kernel")
	m.IsKernel = true
	b, err := m.DefineFunction("get_id", hir.NewSignature(nil, felts(1)))
	if err != nil {
		t.Fatal(err)
	}
	b.Ret(b.Const(hir.Felt, 7))

	mods, err := codegen.LowerComponent(cb.Build(), codegen.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(mods) != 1 || mods[0].Kind != assembler.KindKernel {
		t.Fatalf("kernel module lowered as %v", mods)
	}
	if got := opText(mods[0].Function("get_id")); got != "push.7" {
		t.Errorf("body = %s", got)
	}
}

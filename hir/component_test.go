package hir

import (
	"strings"
	"testing"
)

func buildWalletComponent(t *testing.T) *Component {
	t.Helper()
	cb := NewComponentBuilder()

	target := NewFunctionIdent("miden:tx_kernel/account", "add_asset")
	coreSig := NewSignature([]Type{Felt, Felt, Felt, Felt}, []Type{Felt})

	m := cb.Module("wallet")
	b, err := m.DefineFunction("receive", NewSignature([]Type{Felt, Felt, Felt, Felt}, []Type{Felt}))
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Import(target, coreSig); err != nil {
		t.Fatal(err)
	}
	call := b.Exec(target, b.BlockParams(b.CurrentBlock())...)
	res, _ := b.FirstResult(call)
	b.Ret(res)

	cb.AddImport(target, &CanonAbiImport{
		InterfaceFunction: NewInterfaceFunctionIdent("miden:tx_kernel/account", "add_asset"),
		HighFuncTy:        NewFunctionType([]Type{Felt, Felt, Felt, Felt}, []Type{Felt}),
	})
	cb.AddExport(NewInterfaceFunctionIdent("miden:basic-wallet/basic-wallet@1.0.0", "receive"), ComponentExport{
		Function:   NewFunctionIdent("wallet", "receive"),
		FunctionTy: NewFunctionType([]Type{Felt, Felt, Felt, Felt}, []Type{Felt}),
	})
	return cb.Build()
}

func TestComponentBuilder_Build(t *testing.T) {
	c := buildWalletComponent(t)
	if c.Name() != "wallet" {
		t.Errorf("Name() = %q", c.Name())
	}
	if len(c.Imports()) != 1 || len(c.Exports()) != 1 {
		t.Fatalf("imports=%d exports=%d", len(c.Imports()), len(c.Exports()))
	}
	if _, ok := c.Signature(NewFunctionIdent("wallet", "receive")); !ok {
		t.Error("signature of defined function not found")
	}
	if _, ok := c.Signature(NewFunctionIdent("wallet", "missing")); ok {
		t.Error("signature of missing function found")
	}
}

func TestComponentBuilder_EmptyPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for component with no modules")
		}
	}()
	NewComponentBuilder().Build()
}

func TestComponentBuilder_Load(t *testing.T) {
	c := buildWalletComponent(t)
	cb := Load(c)

	sig, ok := cb.ImportSignature(NewFunctionIdent("miden:tx_kernel/account", "add_asset"))
	if !ok || sig.Arity() != 4 {
		t.Errorf("ImportSignature = %v, %v", sig, ok)
	}
	if _, ok := cb.ImportSignature(NewFunctionIdent("x", "y")); ok {
		t.Error("unexpected import signature")
	}

	if m := cb.Module("wallet"); m.Len() != 1 {
		t.Error("Module did not return the existing module")
	}
	cb.Module("shim")
	if len(cb.Modules()) != 2 {
		t.Errorf("Module did not create: %d modules", len(cb.Modules()))
	}
	if err := cb.AddModule(NewModule("shim")); err == nil {
		t.Error("duplicate module accepted")
	}

	mods := cb.TakeModules()
	if len(cb.Modules()) != 0 || len(mods) != 2 {
		t.Fatal("TakeModules did not drain")
	}
	cb.SetModules(mods)
	if got := cb.Build().Name(); got != "wallet+shim" {
		t.Errorf("Name() = %q", got)
	}
}

func TestComponent_String(t *testing.T) {
	c := buildWalletComponent(t)
	out := c.String()
	for _, want := range []string{
		"(component",
		";; Component Imports",
		"(lower (miden:tx_kernel/account#add_asset (type (func wasm",
		";; Modules",
		"(module #wallet",
		"(exec #miden:tx_kernel/account::add_asset v0 v1 v2 v3)",
		";; Component Exports",
		"(lift miden:basic-wallet/basic-wallet@1.0.0#receive (wallet::receive",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if c.String() != out {
		t.Error("printing is not deterministic")
	}
}

func TestComponent_ImportOrdering(t *testing.T) {
	cb := NewComponentBuilder()
	cb.Module("m")
	for _, name := range []string{"z", "a", "m"} {
		cb.AddImport(NewFunctionIdent("iface", name), &MidenAbiImport{})
	}
	imports := cb.Build().Imports()
	for i, want := range []string{"a", "m", "z"} {
		if imports[i].ID.Function != want {
			t.Errorf("import %d = %s, want %s", i, imports[i].ID.Function, want)
		}
	}
}

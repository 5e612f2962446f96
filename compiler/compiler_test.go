package compiler_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wippyai/miden-backend/assembler"
	"github.com/wippyai/miden-backend/compiler"
	"github.com/wippyai/miden-backend/crossctx"
	berrors "github.com/wippyai/miden-backend/errors"
	"github.com/wippyai/miden-backend/hir"
)

const walletIface = "miden:basic-wallet/basic-wallet@1.0.0"

var addAsset = hir.NewFunctionIdent(crossctx.AccountModule, crossctx.AccountAddAsset)

func felts(n int) []hir.Type {
	out := make([]hir.Type, n)
	for i := range out {
		out[i] = hir.Felt
	}
	return out
}

// walletComponent has app::main calling the kernel's add_asset with
// constants, and app::receive forwarding its parameters to it. receive is
// exported under the wallet interface.
func walletComponent(t *testing.T) *hir.Component {
	t.Helper()
	cb := hir.NewComponentBuilder()
	app := cb.Module("app")
	coreSig := hir.NewSignature(felts(4), felts(1))

	main, err := app.DefineFunction("main", hir.NewSignature(nil, nil))
	if err != nil {
		t.Fatal(err)
	}
	if err := main.Import(addAsset, coreSig); err != nil {
		t.Fatal(err)
	}
	var args []hir.Value
	for i := range 4 {
		args = append(args, main.Const(hir.Felt, uint64(i+1)))
	}
	main.Exec(addAsset, args...)
	main.Ret()

	receive, err := app.DefineFunction("receive", hir.NewSignature(felts(4), felts(1)))
	if err != nil {
		t.Fatal(err)
	}
	if err := receive.Import(addAsset, coreSig); err != nil {
		t.Fatal(err)
	}
	res, _ := receive.FirstResult(receive.Exec(addAsset, receive.BlockParams(receive.CurrentBlock())...))
	receive.Ret(res)

	cb.AddImport(addAsset, &hir.CanonAbiImport{
		InterfaceFunction: hir.NewInterfaceFunctionIdent(crossctx.AccountModule, crossctx.AccountAddAsset),
		HighFuncTy:        hir.NewFunctionType(felts(4), felts(1)),
	})
	cb.AddExport(hir.NewInterfaceFunctionIdent(walletIface, "receive"), hir.ComponentExport{
		Function:   hir.NewFunctionIdent("app", "receive"),
		FunctionTy: hir.NewFunctionType(felts(4), felts(1)),
	})
	return cb.Build()
}

// accountLibrary writes a library providing add_asset and returns its path
func accountLibrary(t *testing.T) string {
	t.Helper()
	m := assembler.NewModule(crossctx.AccountModule, assembler.KindLibrary)
	m.Define(crossctx.AccountAddAsset, true, assembler.Inst("drop"), assembler.Inst("drop"), assembler.Inst("drop"))
	a := assembler.New()
	if err := a.AddModule(m); err != nil {
		t.Fatal(err)
	}
	lib, err := a.AssembleLibrary()
	if err != nil {
		t.Fatal(err)
	}
	data, err := lib.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "account"+compiler.ExtLibrary)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func session(t *testing.T, opts compiler.Options) (*compiler.Session, *observer.ObservedLogs) {
	t.Helper()
	if err := opts.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	core, logs := observer.New(zapcore.DebugLevel)
	s := compiler.NewSessionWithLogger(opts, zap.New(core))
	t.Cleanup(s.Close)
	return s, logs
}

func TestDecodeOptions(t *testing.T) {
	opts, err := compiler.DecodeOptions(`
name = "wallet"
entrypoint = "app::main"
project_type = "program"
test_harness = true
debug_decorators = true
output_dir = "build"
emit = ["masm", "mast"]
link_libraries = ["std.masl"]
reserved_memory_bytes = 65536
page_size = 4096
verbose = true
`)
	if err != nil {
		t.Fatalf("DecodeOptions: %v", err)
	}
	want := compiler.Options{
		Name:                "wallet",
		Entrypoint:          "app::main",
		ProjectType:         compiler.ProjectProgram,
		OutputDir:           "build",
		Emit:                []compiler.OutputType{compiler.OutputMasm, compiler.OutputMast},
		LinkLibraries:       []string{"std.masl"},
		ReservedMemoryBytes: 65536,
		PageSize:            4096,
		TestHarness:         true,
		DebugDecorators:     true,
		Verbose:             true,
	}
	if opts.Name != want.Name || opts.Entrypoint != want.Entrypoint || opts.OutputDir != want.OutputDir ||
		opts.ReservedMemoryBytes != want.ReservedMemoryBytes || opts.PageSize != want.PageSize ||
		!opts.TestHarness || !opts.DebugDecorators || !opts.Verbose {
		t.Errorf("options = %+v, want %+v", opts, want)
	}
	if !opts.Emits(compiler.OutputMasm) || !opts.Emits(compiler.OutputMast) {
		t.Errorf("emit = %v", opts.Emit)
	}
	if len(opts.LinkLibraries) != 1 || opts.LinkLibraries[0] != "std.masl" {
		t.Errorf("link_libraries = %v", opts.LinkLibraries)
	}
}

func TestDecodeOptions_Defaults(t *testing.T) {
	opts, err := compiler.DecodeOptions(`name = "x"`)
	if err != nil {
		t.Fatal(err)
	}
	if opts.ProjectType != compiler.ProjectProgram || opts.OutputDir != "." || !opts.Emits(compiler.OutputMast) {
		t.Errorf("defaults not applied: %+v", opts)
	}
}

func TestDecodeOptions_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
		kind berrors.Kind
	}{
		{"syntax", `name = `, berrors.KindInvalidData},
		{"unknown key", "name = \"x\"\nshiny = true", berrors.KindInvalidInput},
		{"empty name", `name = ""`, berrors.KindInvalidInput},
		{"project type", `project_type = "kernel"`, berrors.KindInvalidInput},
		{"library entrypoint", "project_type = \"library\"\nentrypoint = \"app::main\"", berrors.KindInvalidInput},
		{"library harness", "project_type = \"library\"\ntest_harness = true", berrors.KindInvalidInput},
		{"entrypoint", `entrypoint = "main"`, berrors.KindInvalidInput},
		{"emit", `emit = ["elf"]`, berrors.KindInvalidInput},
		{"page size", `page_size = 100`, berrors.KindInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := compiler.DecodeOptions(tt.data)
			if !errors.Is(err, &berrors.Error{Phase: berrors.PhaseConfig, Kind: tt.kind}) {
				t.Errorf("DecodeOptions() error = %v, want %s", err, tt.kind)
			}
		})
	}
}

func TestLoadOptions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "midenc.toml")
	if err := os.WriteFile(path, []byte("name = \"wallet\"\nproject_type = \"library\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	opts, err := compiler.LoadOptions(path)
	if err != nil {
		t.Fatalf("LoadOptions: %v", err)
	}
	if opts.Name != "wallet" || opts.ProjectType != compiler.ProjectLibrary {
		t.Errorf("options = %+v", opts)
	}

	_, err = compiler.LoadOptions(filepath.Join(t.TempDir(), "missing.toml"))
	if !errors.Is(err, &berrors.Error{Phase: berrors.PhaseConfig, Kind: berrors.KindIO}) {
		t.Errorf("missing file error = %v", err)
	}
}

func TestCompileProgram(t *testing.T) {
	opts := compiler.DefaultOptions()
	opts.Name = "wallet"
	opts.Entrypoint = "app::main"
	opts.OutputDir = t.TempDir()
	opts.Emit = []compiler.OutputType{compiler.OutputMasm, compiler.OutputMast}
	opts.LinkLibraries = []string{accountLibrary(t)}
	s, logs := session(t, opts)
	ctx := context.Background()

	a, err := s.Compile(ctx, walletComponent(t), nil)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if a.Program == nil || a.MasmProgram == nil || a.Library != nil {
		t.Fatalf("artifact = %+v", a)
	}
	if ep, ok := a.MasmProgram.Entrypoint(); !ok || ep.String() != "app::main" {
		t.Errorf("entrypoint = %v", ep)
	}
	if !a.Program.Forest().Contains(a.Program.Entrypoint()) {
		t.Error("entrypoint digest not in forest")
	}
	if got := logs.FilterMessage("import disagrees with native signature").Len(); got != 1 {
		t.Errorf("native signature warnings = %d, want 1", got)
	}

	paths, err := s.Emit(ctx, a)
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	want := []string{
		filepath.Join(opts.OutputDir, "wallet"+compiler.ExtMasm),
		filepath.Join(opts.OutputDir, "wallet"+compiler.ExtProgram),
	}
	if len(paths) != len(want) || paths[0] != want[0] || paths[1] != want[1] {
		t.Fatalf("paths = %v, want %v", paths, want)
	}

	f, err := os.Open(want[1])
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	p, err := assembler.ReadProgram(f)
	if err != nil {
		t.Fatalf("ReadProgram: %v", err)
	}
	if p.Entrypoint() != a.Program.Entrypoint() {
		t.Errorf("entrypoint digest changed across emission")
	}

	text, err := os.ReadFile(want[0])
	if err != nil {
		t.Fatal(err)
	}
	if string(text) != a.MasmProgram.String() {
		t.Error("emitted text differs from the program rendering")
	}
}

func TestCompileLibrary(t *testing.T) {
	opts := compiler.DefaultOptions()
	opts.Name = "wallet"
	opts.ProjectType = compiler.ProjectLibrary
	opts.OutputDir = t.TempDir()
	opts.LinkLibraries = []string{accountLibrary(t)}
	s, _ := session(t, opts)
	ctx := context.Background()

	a, err := s.Compile(ctx, walletComponent(t), nil)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if a.Library == nil || a.Program != nil {
		t.Fatalf("artifact = %+v", a)
	}
	if _, ok := a.Library.Export(assembler.NewQualifiedName(walletIface, "receive")); !ok {
		t.Errorf("lifted export not recovered, exports = %v", a.Library.Exports())
	}

	paths, err := s.Emit(ctx, a)
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if len(paths) != 1 || filepath.Ext(paths[0]) != compiler.ExtLibrary {
		t.Errorf("paths = %v", paths)
	}
}

func TestCompile_MissingLibrary(t *testing.T) {
	opts := compiler.DefaultOptions()
	opts.Entrypoint = "app::main"
	s, _ := session(t, opts)

	_, err := s.Compile(context.Background(), walletComponent(t), nil)
	if !errors.Is(err, &berrors.Error{Phase: berrors.PhaseAssemble, Kind: berrors.KindUndefined}) {
		t.Errorf("Compile() error = %v, want undefined", err)
	}
}

func TestCompile_Cancelled(t *testing.T) {
	s, _ := session(t, compiler.DefaultOptions())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.Compile(ctx, walletComponent(t), nil); !errors.Is(err, context.Canceled) {
		t.Errorf("Compile() error = %v, want context.Canceled", err)
	}
}

func TestLoadLibraries_TwoKernels(t *testing.T) {
	m := assembler.NewModule("kernel", assembler.KindKernel)
	m.Define("get_id", true, assembler.Inst("push", 1))
	a := assembler.New()
	if err := a.AddModule(m); err != nil {
		t.Fatal(err)
	}
	k, err := a.AssembleKernel()
	if err != nil {
		t.Fatal(err)
	}
	data, err := k.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "kernel"+compiler.ExtLibrary)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	opts := compiler.DefaultOptions()
	opts.LinkLibraries = []string{path, path}
	s, _ := session(t, opts)
	if _, _, err := s.LoadLibraries(); !errors.Is(err, &berrors.Error{Phase: berrors.PhaseLink, Kind: berrors.KindConflict}) {
		t.Errorf("LoadLibraries() error = %v, want conflict", err)
	}
}

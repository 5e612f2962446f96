package assembler_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/wippyai/miden-backend/assembler"
	berrors "github.com/wippyai/miden-backend/errors"
	"github.com/wippyai/miden-backend/felt"
)

func q(module, name string) assembler.QualifiedName {
	return assembler.NewQualifiedName(module, name)
}

func isKind(err error, kind berrors.Kind) bool {
	return errors.Is(err, &berrors.Error{Phase: berrors.PhaseAssemble, Kind: kind})
}

func appModule() *assembler.Module {
	m := assembler.NewModule("app", assembler.KindLibrary)
	m.Define("helper", false,
		assembler.Inst("push", 1),
		assembler.Inst("add"),
	)
	m.Define("run", true,
		assembler.Invoke(assembler.OpExec, q("app", "helper")),
		assembler.Invoke(assembler.OpExec, assembler.PipeWordsToMemory),
		assembler.Inst("dropw"),
	)
	return m
}

func newAssembler(t *testing.T) *assembler.Assembler {
	t.Helper()
	a := assembler.New()
	if err := a.AddLibrary(assembler.Builtins()); err != nil {
		t.Fatalf("AddLibrary(builtins): %v", err)
	}
	return a
}

func TestAssembleLibrary(t *testing.T) {
	a := newAssembler(t)
	if err := a.AddModule(appModule()); err != nil {
		t.Fatalf("AddModule: %v", err)
	}
	lib, err := a.AssembleLibrary()
	if err != nil {
		t.Fatalf("AssembleLibrary: %v", err)
	}

	exports := lib.Exports()
	if len(exports) != 1 || exports[0].Name != q("app", "run") {
		t.Fatalf("exports = %v, want [app::run]", exports)
	}
	if _, ok := lib.Export(q("app", "helper")); ok {
		t.Error("private procedure must not be exported")
	}
	if !lib.Forest().Contains(exports[0].Digest) {
		t.Error("export digest missing from forest")
	}
	if got := lib.ModulePaths(); len(got) != 1 || got[0] != "app" {
		t.Errorf("ModulePaths() = %v", got)
	}
	if lib.IsKernel() {
		t.Error("library must not be a kernel")
	}
}

func TestAssembleLibrary_Deterministic(t *testing.T) {
	digest := func() felt.Digest {
		a := newAssembler(t)
		if err := a.AddModule(appModule()); err != nil {
			t.Fatalf("AddModule: %v", err)
		}
		lib, err := a.AssembleLibrary()
		if err != nil {
			t.Fatalf("AssembleLibrary: %v", err)
		}
		d, _ := lib.Export(q("app", "run"))
		return d
	}
	if a, b := digest(), digest(); a != b {
		t.Errorf("digests differ: %s vs %s", a, b)
	}
}

func TestAssembleLibrary_SharedBodies(t *testing.T) {
	m := assembler.NewModule("dup", assembler.KindLibrary)
	m.Define("a", true, assembler.Inst("push", 7))
	m.Define("b", true, assembler.Inst("push", 7))
	m.Define("c", true, assembler.Inst("push", 8))

	a := assembler.New()
	if err := a.AddModule(m); err != nil {
		t.Fatalf("AddModule: %v", err)
	}
	lib, err := a.AssembleLibrary()
	if err != nil {
		t.Fatalf("AssembleLibrary: %v", err)
	}
	da, _ := lib.Export(q("dup", "a"))
	db, _ := lib.Export(q("dup", "b"))
	dc, _ := lib.Export(q("dup", "c"))
	if da != db {
		t.Error("identical bodies must share a digest")
	}
	if da == dc {
		t.Error("different immediates must change the digest")
	}
	if got := lib.Forest().Len(); got != 2 {
		t.Errorf("forest has %d nodes, want 2", got)
	}
}

func TestAssemble_Errors(t *testing.T) {
	tests := []struct {
		name    string
		modules func() []*assembler.Module
		kind    berrors.Kind
	}{
		{
			name: "undefined module",
			modules: func() []*assembler.Module {
				m := assembler.NewModule("app", assembler.KindLibrary)
				m.Define("f", true, assembler.Invoke(assembler.OpExec, q("missing", "x")))
				return []*assembler.Module{m}
			},
			kind: berrors.KindUndefined,
		},
		{
			name: "undefined procedure",
			modules: func() []*assembler.Module {
				m := assembler.NewModule("app", assembler.KindLibrary)
				m.Define("f", true, assembler.Invoke(assembler.OpExec, q("app", "nope")))
				return []*assembler.Module{m}
			},
			kind: berrors.KindUndefined,
		},
		{
			name: "undefined library export",
			modules: func() []*assembler.Module {
				m := assembler.NewModule("app", assembler.KindLibrary)
				m.Define("f", true, assembler.Invoke(assembler.OpExec, q(assembler.StdMemModule, "pipe_double_words")))
				return []*assembler.Module{m}
			},
			kind: berrors.KindUndefined,
		},
		{
			name: "cycle",
			modules: func() []*assembler.Module {
				m := assembler.NewModule("app", assembler.KindLibrary)
				m.Define("a", true, assembler.Invoke(assembler.OpExec, q("app", "b")))
				m.Define("b", true, assembler.Invoke(assembler.OpCall, q("app", "a")))
				return []*assembler.Module{m}
			},
			kind: berrors.KindCycle,
		},
		{
			name: "private cross-module",
			modules: func() []*assembler.Module {
				lib := assembler.NewModule("lib", assembler.KindLibrary)
				lib.Define("hidden", false, assembler.Inst("nop"))
				app := assembler.NewModule("app", assembler.KindLibrary)
				app.Define("f", true, assembler.Invoke(assembler.OpExec, q("lib", "hidden")))
				return []*assembler.Module{lib, app}
			},
			kind: berrors.KindInvalidInput,
		},
		{
			name: "syscall without kernel",
			modules: func() []*assembler.Module {
				m := assembler.NewModule("app", assembler.KindLibrary)
				m.Define("f", true, assembler.Invoke(assembler.OpSyscall, q("kernel", "k")))
				return []*assembler.Module{m}
			},
			kind: berrors.KindUndefined,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newAssembler(t)
			for _, m := range tt.modules() {
				if err := a.AddModule(m); err != nil {
					t.Fatalf("AddModule(%s): %v", m.Path, err)
				}
			}
			_, err := a.AssembleLibrary()
			if !isKind(err, tt.kind) {
				t.Fatalf("AssembleLibrary() error = %v, want kind %s", err, tt.kind)
			}
		})
	}
}

func TestAddModule_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		module *assembler.Module
		kind   berrors.Kind
	}{
		{"duplicate path", appModule(), berrors.KindDuplicate},
		{"library path", assembler.NewModule(assembler.StdMemModule, assembler.KindLibrary), berrors.KindDuplicate},
		{"executable", assembler.NewModule("exe", assembler.KindExecutable), berrors.KindInvalidInput},
		{"empty path", assembler.NewModule("", assembler.KindLibrary), berrors.KindInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newAssembler(t)
			if err := a.AddModule(appModule()); err != nil {
				t.Fatalf("AddModule: %v", err)
			}
			if err := a.AddModule(tt.module); !isKind(err, tt.kind) {
				t.Errorf("AddModule() error = %v, want kind %s", err, tt.kind)
			}
		})
	}
}

func TestModuleValidate(t *testing.T) {
	dup := assembler.NewModule("m", assembler.KindLibrary)
	dup.Define("f", true)
	dup.Define("f", false)
	if err := dup.Validate(); !isKind(err, berrors.KindDuplicate) {
		t.Errorf("duplicate procedure: %v", err)
	}

	exe := assembler.NewModule("exe", assembler.KindExecutable)
	exe.Define("helper", false)
	if err := exe.Validate(); !isKind(err, berrors.KindNotFound) {
		t.Errorf("missing main: %v", err)
	}
	exe.Define(assembler.MainProcedure, true)
	if err := exe.Validate(); !isKind(err, berrors.KindInvalidInput) {
		t.Errorf("exported main: %v", err)
	}
}

func kernelLibrary(t *testing.T) *assembler.Library {
	t.Helper()
	k := assembler.NewModule("kernel", assembler.KindKernel)
	k.Define("get_id", true, assembler.Inst("push", 42))
	a := assembler.New()
	if err := a.AddModule(k); err != nil {
		t.Fatalf("AddModule(kernel): %v", err)
	}
	lib, err := a.AssembleKernel()
	if err != nil {
		t.Fatalf("AssembleKernel: %v", err)
	}
	return lib
}

func TestKernel(t *testing.T) {
	kernel := kernelLibrary(t)
	if !kernel.IsKernel() {
		t.Fatal("AssembleKernel must produce a kernel")
	}

	a := newAssembler(t)
	if err := a.AddLibrary(kernel); !isKind(err, berrors.KindInvalidInput) {
		t.Errorf("AddLibrary(kernel) error = %v", err)
	}
	if err := a.WithKernel(assembler.Builtins()); !isKind(err, berrors.KindInvalidInput) {
		t.Errorf("WithKernel(library) error = %v", err)
	}
	if err := a.WithKernel(kernel); err != nil {
		t.Fatalf("WithKernel: %v", err)
	}
	if err := a.WithKernel(kernel); !isKind(err, berrors.KindConflict) {
		t.Errorf("second WithKernel error = %v", err)
	}

	main := assembler.NewModule("main", assembler.KindExecutable)
	main.Define(assembler.MainProcedure, false,
		assembler.Invoke(assembler.OpSyscall, q("kernel", "get_id")),
	)
	prog, err := a.AssembleProgram(main)
	if err != nil {
		t.Fatalf("AssembleProgram: %v", err)
	}
	if prog.Kernel() != kernel {
		t.Error("program must reference its kernel")
	}

	node, _ := prog.Forest().Get(prog.Entrypoint())
	insts, err := node.Instructions()
	if err != nil {
		t.Fatalf("Instructions: %v", err)
	}
	want, _ := kernel.Export(q("kernel", "get_id"))
	if len(insts) != 1 || insts[0].Op != assembler.OpSyscall || insts[0].Callee == nil || *insts[0].Callee != want {
		t.Errorf("main body = %+v, want syscall to %s", insts, want)
	}
}

func TestAssembleKernel_RejectsLibraryModules(t *testing.T) {
	a := assembler.New()
	if err := a.AddModule(appModule()); err != nil {
		t.Fatalf("AddModule: %v", err)
	}
	if _, err := a.AssembleKernel(); !isKind(err, berrors.KindInvalidInput) {
		t.Errorf("AssembleKernel() error = %v", err)
	}
}

func mainModule() *assembler.Module {
	m := assembler.NewModule("main", assembler.KindExecutable)
	m.Define(assembler.MainProcedure, false,
		assembler.Inst("push", 4096),
		assembler.Invoke(assembler.OpExec, assembler.HeapInit),
		assembler.Invoke(assembler.OpExec, q("app", "run")),
	)
	return m
}

func TestAssembleProgram(t *testing.T) {
	a := newAssembler(t).WithDebugMode(true)
	if err := a.AddModule(appModule()); err != nil {
		t.Fatalf("AddModule: %v", err)
	}
	first, err := a.AssembleProgram(mainModule())
	if err != nil {
		t.Fatalf("AssembleProgram: %v", err)
	}
	second, err := a.AssembleProgram(mainModule())
	if err != nil {
		t.Fatalf("second AssembleProgram: %v", err)
	}
	if first.Entrypoint() != second.Entrypoint() {
		t.Error("entrypoint digest must be deterministic")
	}

	node, ok := first.Forest().Get(first.Entrypoint())
	if !ok {
		t.Fatal("entrypoint missing from forest")
	}
	if node.Name != "main::main" {
		t.Errorf("debug name = %q", node.Name)
	}
	// main, app::run and app::helper; builtins stay in their library
	if got := first.Forest().Len(); got != 3 {
		t.Errorf("forest has %d nodes, want 3", got)
	}
	if got := first.Libraries(); len(got) != 2 {
		t.Errorf("Libraries() = %v", got)
	}
}

func TestAssembleProgram_NotExecutable(t *testing.T) {
	a := newAssembler(t)
	if _, err := a.AssembleProgram(appModule()); !isKind(err, berrors.KindInvalidInput) {
		t.Errorf("AssembleProgram(library module) error = %v", err)
	}
}

func TestAdviceMap(t *testing.T) {
	elems := []felt.Felt{1, 2, 3, 4}
	key := felt.HashElements(elems)

	m := make(assembler.AdviceMap)
	if err := m.Insert(key, elems); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := m.Insert(key, elems); err != nil {
		t.Errorf("re-inserting equal data: %v", err)
	}
	if err := m.Insert(key, []felt.Felt{9}); !isKind(err, berrors.KindConflict) {
		t.Errorf("conflicting insert error = %v", err)
	}
	if err := m.Verify(); err != nil {
		t.Errorf("Verify: %v", err)
	}

	bad := assembler.AdviceMap{felt.Digest{}: elems}
	if err := bad.Verify(); !isKind(err, berrors.KindInvalidData) {
		t.Errorf("Verify(bad) error = %v", err)
	}
}

func TestBinaryRoundTrip(t *testing.T) {
	a := newAssembler(t)
	if err := a.AddModule(appModule()); err != nil {
		t.Fatalf("AddModule: %v", err)
	}
	lib, err := a.AssembleLibrary()
	if err != nil {
		t.Fatalf("AssembleLibrary: %v", err)
	}
	elems := []felt.Felt{5, 6, 7, 8}
	lib, err = lib.WithAdviceMap(assembler.AdviceMap{felt.HashElements(elems): elems})
	if err != nil {
		t.Fatalf("WithAdviceMap: %v", err)
	}

	data, err := lib.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	got, err := assembler.ReadLibrary(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ReadLibrary: %v", err)
	}
	if len(got.Exports()) != 1 || got.Exports()[0] != lib.Exports()[0] {
		t.Errorf("exports = %v, want %v", got.Exports(), lib.Exports())
	}
	if got.Forest().Len() != lib.Forest().Len() {
		t.Errorf("forest len = %d, want %d", got.Forest().Len(), lib.Forest().Len())
	}
	if err := got.AdviceMap().Verify(); err != nil || len(got.AdviceMap()) != 1 {
		t.Errorf("advice map = %v (%v)", got.AdviceMap(), err)
	}

	if _, err := assembler.ReadProgram(bytes.NewReader(data)); err == nil {
		t.Error("ReadProgram must reject a library")
	}

	prog, err := a.AssembleProgram(mainModule())
	if err != nil {
		t.Fatalf("AssembleProgram: %v", err)
	}
	pdata, err := prog.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary(program): %v", err)
	}
	gotProg, err := assembler.ReadProgram(bytes.NewReader(pdata))
	if err != nil {
		t.Fatalf("ReadProgram: %v", err)
	}
	if gotProg.Entrypoint() != prog.Entrypoint() {
		t.Errorf("entrypoint = %s, want %s", gotProg.Entrypoint(), prog.Entrypoint())
	}
}

func TestRenameExports(t *testing.T) {
	lib := assembler.Builtins()
	renamed := lib.RenameExports(func(n assembler.QualifiedName) assembler.QualifiedName {
		return q("renamed", n.Name)
	})
	want, _ := lib.Export(assembler.HeapInit)
	if got, ok := renamed.Export(q("renamed", "heap_init")); !ok || got != want {
		t.Errorf("renamed export = %s, %v", got, ok)
	}
	if _, ok := lib.Export(assembler.HeapInit); !ok {
		t.Error("RenameExports must not modify the receiver")
	}
}

func TestBuiltins(t *testing.T) {
	lib := assembler.Builtins()
	if lib != assembler.Builtins() {
		t.Error("Builtins must return a shared instance")
	}
	for _, name := range []assembler.QualifiedName{
		assembler.PipePreimageToMemory,
		assembler.PipeWordsToMemory,
		assembler.HeapInit,
		assembler.HeapBase,
	} {
		if _, ok := lib.Export(name); !ok {
			t.Errorf("builtin %s missing", name)
		}
	}
	if !assembler.IsBuiltinModule(assembler.StdMemModule) || assembler.IsBuiltinModule("app") {
		t.Error("IsBuiltinModule mismatch")
	}
}

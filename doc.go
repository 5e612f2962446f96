// Package midenbackend is the MASM backend of a compiler for the Miden VM.
//
// It turns IR components into assembled programs and libraries: data
// segments become rodata commitments loaded by generated startup code,
// cross-context imports and exports are rewritten to the canonical ABI, and
// the result is linked against compiled libraries and assembled.
//
// # Architecture Overview
//
// The module is organized into several packages with distinct responsibilities:
//
//	midenbackend/
//	├── felt/            Field elements, words, digests and element hashing
//	├── hir/             Consumed IR: types, functions, components, globals
//	├── witsig/          WIT function declarations to IR function types
//	├── crossctx/        Canonical ABI flattening, lower-imports, lift-exports
//	├── codegen/         Straight-line IR to MASM lowering
//	├── masm/            Target modules, rodata, Library/Program linking, startup code
//	│   └── emulator/    Startup code replay and commitment verification
//	├── assembler/       MAST forest, libraries, programs, binary format
//	├── compiler/        Options, session, stage pipeline, emission
//	├── errors/          Structured error types and diagnostics
//	└── cmd/midenc/      Command line tooling
//
// # Quick Start
//
// Compile a component into a program:
//
//	opts := compiler.DefaultOptions()
//	opts.Entrypoint = "app::main"
//	opts.LinkLibraries = []string{"account.masl"}
//
//	s, err := compiler.NewSession(opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer s.Close()
//
//	art, err := s.Compile(ctx, component, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	paths, err := s.Emit(ctx, art)
//
// # Rodata
//
// Every non-zero data segment is committed to by the digest of its
// elements. The startup code pushes the digest, asks the advice provider for
// the matching preimage and pipes it into memory, so a program runs only
// against the exact data it was compiled with.
//
// # Thread Safety
//
// Builders are single-goroutine. Frozen libraries and programs, and the
// assembled artifacts produced from them, are immutable and safe to share.
package midenbackend

package masm

import (
	"github.com/wippyai/miden-backend/assembler"
	"github.com/wippyai/miden-backend/hir"
)

// StartupModulePath is the path of the generated executable module
const StartupModulePath = "exec"

func builtin(q assembler.QualifiedName) hir.FunctionIdent {
	return hir.NewFunctionIdent(q.Module, q.Name)
}

// StartupModule generates the executable entry module. Its main procedure
// initializes the heap, replays every rodata segment from the advice map
// into memory, optionally loads test-harness inputs, and then invokes the
// entrypoint or dispatches dynamically.
func (p *Program) StartupModule(testHarness bool) *Module {
	main := NewFunction(assembler.MainProcedure, hir.NewSignature(nil, nil))
	main.Emit(
		Push(uint64(p.heapBase)),
		Exec(builtin(assembler.HeapInit)),
	)
	main.Emit(p.rodataInitialization()...)
	if testHarness {
		main.Emit(testHarnessLoader()...)
	}
	if ep, ok := p.Entrypoint(); ok {
		main.Emit(Exec(ep))
	} else {
		main.Emit(DynExec())
	}

	m := NewModule(StartupModulePath, assembler.KindExecutable)
	m.Add(main)
	return m
}

// rodataInitialization moves each segment from the advice map onto the
// advice stack and streams it into memory, verifying the commitment
func (p *Program) rodataInitialization() []Op {
	ops := make([]Op, 0, len(p.rodata)*6)
	pipe := builtin(assembler.PipePreimageToMemory)
	for _, r := range p.rodata {
		ops = append(ops,
			PushW(r.Digest.Word()),
			AdvPushMapVal(),
			Push(uint64(r.Start.Waddr)),
			Push(uint64(r.SizeInWords())),
			// [num_words, write_ptr, COM, ...] -> [write_ptr', ...]
			Exec(pipe),
			Drop(),
		)
	}
	return ops
}

// testHarnessLoader expects [write_ptr, num_words, words...] on the advice
// stack
func testHarnessLoader() []Op {
	return []Op{
		AdvPush(2),
		Exec(builtin(assembler.PipeWordsToMemory)),
		// HASH
		DropW(),
		// write_ptr'
		Drop(),
	}
}

package assembler

import "sync"

// Builtin module paths
const (
	StdMemModule        = "std::mem"
	IntrinsicsMemModule = "intrinsics::mem"
)

// Builtin procedures used by generated startup code
var (
	PipePreimageToMemory = NewQualifiedName(StdMemModule, "pipe_preimage_to_memory")
	PipeWordsToMemory    = NewQualifiedName(StdMemModule, "pipe_words_to_memory")
	HeapInit             = NewQualifiedName(IntrinsicsMemModule, "heap_init")
	HeapBase             = NewQualifiedName(IntrinsicsMemModule, "heap_base")
)

// heapBaseAddr is the word address where heap_init stores the heap base
const heapBaseAddr = 0xFFFF_0000

var builtins = sync.OnceValue(func() *Library {
	mem := NewModule(StdMemModule, KindLibrary)
	// [num_words, write_ptr, COM, ...] -> [write_ptr', ...]
	mem.Define(PipePreimageToMemory.Name, true,
		Inst("dup"),
		Inst("movdn", 6),
		Invoke(OpExec, NewQualifiedName(StdMemModule, "pipe_double_words")),
		Inst("assert_eqw"),
	)
	// [num_words, write_ptr, ...] -> [HASH, write_ptr', ...]
	mem.Define(PipeWordsToMemory.Name, true,
		Invoke(OpExec, NewQualifiedName(StdMemModule, "pipe_double_words")),
		Inst("movup", 4),
	)
	mem.Define("pipe_double_words", false,
		Inst("padw"),
		Inst("padw"),
		Inst("padw"),
		Inst("adv_pipe"),
		Inst("hperm"),
	)

	intrinsics := NewModule(IntrinsicsMemModule, KindLibrary)
	// [heap_base, ...] -> [...]
	intrinsics.Define(HeapInit.Name, true,
		Inst("mem_store", heapBaseAddr),
	)
	// [...] -> [heap_base, ...]
	intrinsics.Define(HeapBase.Name, true,
		Inst("mem_load", heapBaseAddr),
	)

	a := New()
	for _, m := range []*Module{mem, intrinsics} {
		if err := a.AddModule(m); err != nil {
			panic(err)
		}
	}
	lib, err := a.AssembleLibrary()
	if err != nil {
		panic(err)
	}
	return lib
})

// Builtins returns the std::mem and intrinsics::mem library. The same
// instance is returned on every call.
func Builtins() *Library { return builtins() }

// IsBuiltinModule reports whether path is provided by Builtins
func IsBuiltinModule(path string) bool {
	return path == StdMemModule || path == IntrinsicsMemModule
}

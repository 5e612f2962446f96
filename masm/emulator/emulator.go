// Package emulator replays generated startup code against an advice map.
//
// The machine implements the stack, advice and memory effects of the ops the
// startup generator emits, and the builtin std::mem and intrinsics::mem
// procedures natively. Anything else that is invoked is recorded but not
// executed. Streaming a preimage into memory verifies it against the
// commitment on the operand stack, so a replay fails if the advice data does
// not match the rodata digests baked into the code.
package emulator

import (
	"github.com/wippyai/miden-backend/assembler"
	"github.com/wippyai/miden-backend/errors"
	"github.com/wippyai/miden-backend/felt"
	"github.com/wippyai/miden-backend/hir"
	"github.com/wippyai/miden-backend/masm"
)

// Machine is a minimal operand stack, advice provider and word memory
type Machine struct {
	adviceMap assembler.AdviceMap
	memory    map[uint32]felt.Word
	heapBase  *uint32
	stack     []felt.Felt
	advice    []felt.Felt
	invoked   []hir.FunctionIdent
	dynamic   []felt.Digest
}

// New returns a machine with the given advice map and initial advice stack.
// The first element of adviceStack is the top.
func New(adviceMap assembler.AdviceMap, adviceStack ...felt.Felt) *Machine {
	return &Machine{
		adviceMap: adviceMap,
		memory:    make(map[uint32]felt.Word),
		advice:    append([]felt.Felt(nil), adviceStack...),
	}
}

// Run executes ops in order
func (m *Machine) Run(ops []masm.Op) error {
	for i, op := range ops {
		if err := m.step(op); err != nil {
			return errors.New(errors.PhaseReplay, kindOf(err)).
				Path(op.String()).
				Value(i).
				Cause(err).
				Build()
		}
	}
	return nil
}

func kindOf(err error) errors.Kind {
	if e, ok := err.(*errors.Error); ok {
		return e.Kind
	}
	return errors.KindInvalidInput
}

func (m *Machine) step(op masm.Op) error {
	switch op.Code {
	case masm.OpPush:
		m.push(felt.New(op.Imm))
	case masm.OpPushW:
		m.pushWord(op.Word)
	case masm.OpDrop:
		_, err := m.pop()
		return err
	case masm.OpDropW:
		_, err := m.popWord()
		return err
	case masm.OpDup:
		v, err := m.peek(int(op.Imm))
		if err != nil {
			return err
		}
		m.push(v)
	case masm.OpSwap:
		return m.moveUp(1)
	case masm.OpMovUp:
		return m.moveUp(int(op.Imm))
	case masm.OpMovDn:
		return m.moveDown(int(op.Imm))
	case masm.OpAdvPush:
		for i := uint64(0); i < op.Imm; i++ {
			v, err := m.popAdvice()
			if err != nil {
				return err
			}
			m.push(v)
		}
	case masm.OpAdvPushMapVal:
		return m.pushMapValue()
	case masm.OpExec, masm.OpCall, masm.OpSyscall:
		return m.invoke(op.Target)
	case masm.OpDynExec:
		w, err := m.popWord()
		if err != nil {
			return err
		}
		m.dynamic = append(m.dynamic, felt.FromWord(w))
	default:
		return errors.Unsupported(errors.PhaseReplay, "op "+op.Code.String())
	}
	return nil
}

func (m *Machine) invoke(target hir.FunctionIdent) error {
	switch assembler.NewQualifiedName(target.Module, target.Function) {
	case assembler.HeapInit:
		v, err := m.pop()
		if err != nil {
			return err
		}
		base := uint32(v)
		m.heapBase = &base
	case assembler.HeapBase:
		if m.heapBase == nil {
			return errors.New(errors.PhaseReplay, errors.KindUndefined).
				Detail("heap_base before heap_init").
				Build()
		}
		m.push(felt.Felt(*m.heapBase))
	case assembler.PipePreimageToMemory:
		return m.pipePreimage()
	case assembler.PipeWordsToMemory:
		return m.pipeWords()
	default:
		m.invoked = append(m.invoked, target)
	}
	return nil
}

// pipePreimage: [num_words, write_ptr, COM, ...] -> [write_ptr', ...]
func (m *Machine) pipePreimage() error {
	n, ptr, err := m.popCountAndPtr()
	if err != nil {
		return err
	}
	com, err := m.popWord()
	if err != nil {
		return err
	}
	elems, err := m.stream(ptr, n)
	if err != nil {
		return err
	}
	want := felt.FromWord(com)
	if got := felt.HashElements(elems); got != want {
		return errors.New(errors.PhaseRodata, errors.KindInvalidData).
			Symbol(want.String()).
			Detail("advice data at word %d hashes to %s", ptr, got).
			Build()
	}
	m.push(felt.Felt(ptr + n))
	return nil
}

// pipeWords: [num_words, write_ptr, ...] -> [HASH, write_ptr', ...]
func (m *Machine) pipeWords() error {
	n, ptr, err := m.popCountAndPtr()
	if err != nil {
		return err
	}
	elems, err := m.stream(ptr, n)
	if err != nil {
		return err
	}
	m.push(felt.Felt(ptr + n))
	m.pushWord(felt.HashElements(elems).Word())
	return nil
}

func (m *Machine) popCountAndPtr() (n, ptr uint32, err error) {
	nv, err := m.pop()
	if err != nil {
		return 0, 0, err
	}
	pv, err := m.pop()
	if err != nil {
		return 0, 0, err
	}
	if nv.Uint64() > 1<<32-1 || pv.Uint64() > 1<<32-1 {
		return 0, 0, errors.Overflow(errors.PhaseReplay, max(nv.Uint64(), pv.Uint64()), "u32")
	}
	return uint32(nv), uint32(pv), nil
}

// stream moves n words from the advice stack into memory starting at ptr
func (m *Machine) stream(ptr, n uint32) ([]felt.Felt, error) {
	elems := make([]felt.Felt, 0, int(n)*felt.WordSize)
	for i := uint32(0); i < n; i++ {
		var w felt.Word
		for j := range w {
			v, err := m.popAdvice()
			if err != nil {
				return nil, err
			}
			w[j] = v
		}
		m.memory[ptr+i] = w
		elems = append(elems, w[:]...)
	}
	return elems, nil
}

func (m *Machine) pushMapValue() error {
	if len(m.stack) < felt.WordSize {
		return underflow()
	}
	var key felt.Word
	for i := range key {
		key[i] = m.stack[len(m.stack)-1-i]
	}
	d := felt.FromWord(key)
	values, ok := m.adviceMap[d]
	if !ok {
		return errors.NotFound(errors.PhaseReplay, "advice map entry", d.String())
	}
	m.advice = append(append([]felt.Felt(nil), values...), m.advice...)
	return nil
}

func (m *Machine) push(v felt.Felt) { m.stack = append(m.stack, v) }

// pushWord leaves w[0] on top
func (m *Machine) pushWord(w felt.Word) {
	for i := felt.WordSize - 1; i >= 0; i-- {
		m.push(w[i])
	}
}

func (m *Machine) pop() (felt.Felt, error) {
	if len(m.stack) == 0 {
		return 0, underflow()
	}
	v := m.stack[len(m.stack)-1]
	m.stack = m.stack[:len(m.stack)-1]
	return v, nil
}

func (m *Machine) popWord() (felt.Word, error) {
	var w felt.Word
	if len(m.stack) < felt.WordSize {
		return w, underflow()
	}
	for i := range w {
		w[i], _ = m.pop()
	}
	return w, nil
}

func (m *Machine) peek(n int) (felt.Felt, error) {
	if n >= len(m.stack) {
		return 0, underflow()
	}
	return m.stack[len(m.stack)-1-n], nil
}

// moveUp brings the element at depth n to the top
func (m *Machine) moveUp(n int) error {
	if n >= len(m.stack) {
		return underflow()
	}
	i := len(m.stack) - 1 - n
	v := m.stack[i]
	copy(m.stack[i:], m.stack[i+1:])
	m.stack[len(m.stack)-1] = v
	return nil
}

// moveDown sinks the top element to depth n
func (m *Machine) moveDown(n int) error {
	if n >= len(m.stack) {
		return underflow()
	}
	top := len(m.stack) - 1
	i := top - n
	v := m.stack[top]
	copy(m.stack[i+1:], m.stack[i:top])
	m.stack[i] = v
	return nil
}

func (m *Machine) popAdvice() (felt.Felt, error) {
	if len(m.advice) == 0 {
		return 0, errors.New(errors.PhaseReplay, errors.KindInvalidInput).
			Detail("advice stack exhausted").
			Build()
	}
	v := m.advice[0]
	m.advice = m.advice[1:]
	return v, nil
}

func underflow() error {
	return errors.New(errors.PhaseReplay, errors.KindInvalidInput).
		Detail("operand stack underflow").
		Build()
}

// PushWord places w on the operand stack before a run, w[0] on top
func (m *Machine) PushWord(w felt.Word) { m.pushWord(w) }

// Stack returns the operand stack, top last
func (m *Machine) Stack() []felt.Felt { return m.stack }

// HeapBase returns the value passed to heap_init
func (m *Machine) HeapBase() (uint32, bool) {
	if m.heapBase == nil {
		return 0, false
	}
	return *m.heapBase, true
}

// Invoked returns the non-builtin procedures invoked, in order
func (m *Machine) Invoked() []hir.FunctionIdent { return m.invoked }

// Dispatched returns the digests passed to dynexec, in order
func (m *Machine) Dispatched() []felt.Digest { return m.dynamic }

// Word returns the memory word at waddr
func (m *Machine) Word(waddr uint32) felt.Word { return m.memory[waddr] }

// ReadBytes reads n bytes of memory starting at the byte address addr
func (m *Machine) ReadBytes(addr, n uint32) []byte {
	out := make([]byte, n)
	for i := uint32(0); i < n; i++ {
		a := addr + i
		ptr := masm.NativePtrFromAddr(a)
		elem := uint32(m.memory[ptr.Waddr][ptr.Index])
		out[i] = byte(elem >> (8 * uint32(ptr.Offset)))
	}
	return out
}

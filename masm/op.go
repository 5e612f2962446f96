package masm

import (
	"strconv"
	"strings"

	"github.com/wippyai/miden-backend/assembler"
	"github.com/wippyai/miden-backend/felt"
	"github.com/wippyai/miden-backend/hir"
)

// OpCode identifies a target instruction
type OpCode uint8

const (
	OpPush OpCode = iota
	OpPushW
	OpDrop
	OpDropW
	OpDup
	OpSwap
	OpMovUp
	OpMovDn
	OpExec
	OpCall
	OpSyscall
	OpDynExec
	OpAdvPush
	OpAdvPushMapVal
)

var opNames = [...]string{
	OpPush:          "push",
	OpPushW:         "pushw",
	OpDrop:          "drop",
	OpDropW:         "dropw",
	OpDup:           "dup",
	OpSwap:          "swap",
	OpMovUp:         "movup",
	OpMovDn:         "movdn",
	OpExec:          assembler.OpExec,
	OpCall:          assembler.OpCall,
	OpSyscall:       assembler.OpSyscall,
	OpDynExec:       assembler.OpDynExec,
	OpAdvPush:       "adv_push",
	OpAdvPushMapVal: "adv.push_mapval",
}

func (c OpCode) String() string {
	if int(c) < len(opNames) {
		return opNames[c]
	}
	return "op(" + strconv.Itoa(int(c)) + ")"
}

// IsInvoke reports whether the op names a callee
func (c OpCode) IsInvoke() bool {
	return c == OpExec || c == OpCall || c == OpSyscall
}

// Op is a single target instruction
type Op struct {
	Target hir.FunctionIdent
	Word   felt.Word
	Imm    uint64
	Code   OpCode
}

// Op constructors

func Push(v uint64) Op { return Op{Code: OpPush, Imm: v} }
func PushW(w felt.Word) Op { return Op{Code: OpPushW, Word: w} }
func Drop() Op { return Op{Code: OpDrop} }
func DropW() Op { return Op{Code: OpDropW} }
func Dup(n uint8) Op { return Op{Code: OpDup, Imm: uint64(n)} }
func Swap() Op { return Op{Code: OpSwap} }
func MovUp(n uint8) Op { return Op{Code: OpMovUp, Imm: uint64(n)} }
func MovDn(n uint8) Op { return Op{Code: OpMovDn, Imm: uint64(n)} }
func Exec(callee hir.FunctionIdent) Op { return Op{Code: OpExec, Target: callee} }
func Call(callee hir.FunctionIdent) Op { return Op{Code: OpCall, Target: callee} }
func Syscall(callee hir.FunctionIdent) Op { return Op{Code: OpSyscall, Target: callee} }
func DynExec() Op { return Op{Code: OpDynExec} }
func AdvPush(n uint8) Op { return Op{Code: OpAdvPush, Imm: uint64(n)} }
func AdvPushMapVal() Op { return Op{Code: OpAdvPushMapVal} }

// String renders the op in assembly syntax
func (o Op) String() string {
	switch o.Code {
	case OpPush, OpDup, OpMovUp, OpMovDn, OpAdvPush:
		return o.Code.String() + "." + strconv.FormatUint(o.Imm, 10)
	case OpPushW:
		return o.Code.String() + "." + felt.FromWord(o.Word).String()
	case OpExec, OpCall, OpSyscall:
		return o.Code.String() + "." + renderTarget(o.Target)
	default:
		return o.Code.String()
	}
}

// toAST lowers the op to an assembler instruction
func (o Op) toAST() assembler.Instruction {
	switch o.Code {
	case OpExec, OpCall, OpSyscall:
		return assembler.Invoke(o.Code.String(), qualify(o.Target))
	case OpPushW:
		return assembler.Inst(o.Code.String(),
			o.Word[0].Uint64(), o.Word[1].Uint64(), o.Word[2].Uint64(), o.Word[3].Uint64())
	case OpPush, OpDup, OpMovUp, OpMovDn, OpAdvPush:
		return assembler.Inst(o.Code.String(), o.Imm)
	default:
		return assembler.Inst(o.Code.String())
	}
}

func qualify(id hir.FunctionIdent) assembler.QualifiedName {
	return assembler.NewQualifiedName(id.Module, id.Function)
}

// renderTarget renders an absolute procedure path, quoting components that
// are not plain identifiers
func renderTarget(id hir.FunctionIdent) string {
	var b strings.Builder
	for _, part := range strings.Split(id.Module, "::") {
		b.WriteString("::")
		b.WriteString(quoteIdent(part))
	}
	b.WriteString("::")
	b.WriteString(quoteIdent(id.Function))
	return b.String()
}

func quoteIdent(s string) string {
	if isIdent(s) {
		return s
	}
	return strconv.Quote(s)
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

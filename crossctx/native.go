package crossctx

import "github.com/wippyai/miden-backend/hir"

// Modules whose procedures are provided natively by the transaction kernel
// or the standard library
const (
	NoteModule      = "miden:tx_kernel/note"
	AccountModule   = "miden:tx_kernel/account"
	TxModule        = "miden::tx"
	RpoFalconModule = "std::crypto::dsa::rpo_falcon"
)

// Natively provided procedure names
const (
	NoteGetInputs   = "get_inputs"
	AccountAddAsset = "add_asset"
	AccountGetID    = "get_id"
	TxCreateNote    = "create_note"
	RpoFalconVerify = "rpo_falcon512_verify"
)

func felts(n int) []hir.Type {
	out := make([]hir.Type, n)
	for i := range out {
		out[i] = hir.Felt
	}
	return out
}

func canon(params, results []hir.Type) hir.FunctionType {
	return hir.FunctionType{Abi: hir.AbiCanonical, Params: params, Results: results}
}

// NativeSignatures returns the function types of the natively provided
// procedures, keyed by module and function
func NativeSignatures() map[hir.FunctionIdent]hir.FunctionType {
	return map[hir.FunctionIdent]hir.FunctionType{
		{Module: NoteModule, Function: NoteGetInputs}:        canon(felts(1), []hir.Type{hir.I32, hir.Felt}),
		{Module: AccountModule, Function: AccountAddAsset}:   canon(felts(4), felts(4)),
		{Module: AccountModule, Function: AccountGetID}:      canon(nil, felts(1)),
		{Module: TxModule, Function: TxCreateNote}:           canon(felts(10), felts(1)),
		{Module: RpoFalconModule, Function: RpoFalconVerify}: canon(felts(8), nil),
	}
}

// NativeFunctionType looks up a natively provided procedure
func NativeFunctionType(id hir.FunctionIdent) (hir.FunctionType, bool) {
	ft, ok := NativeSignatures()[id]
	return ft, ok
}

// IsNativeModule reports whether name is provided by the kernel or the
// standard library rather than by a component
func IsNativeModule(name string) bool {
	switch name {
	case NoteModule, AccountModule, TxModule, RpoFalconModule:
		return true
	}
	return false
}

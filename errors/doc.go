// Package errors provides structured error types for the MASM backend.
//
// Errors are categorized by Phase (which compiler stage failed) and Kind
// (error category). The Error type carries the offending symbol, a type
// rendering, an item path and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseLowerImports, errors.KindUnsupported).
//		Symbol("miden:basic-wallet/basic-wallet@1.0.0#receive-asset").
//		Detail("signature requires a struct-return convention").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.NotFound(errors.PhaseLiftExports, "function", "wallet::receive")
//	err := errors.Duplicate(errors.PhaseAssemble, "module", "std::mem")
//
// Recoverable failures that should be reported to the user with a severity
// are wrapped in a Diagnostic. Diagnostic implements error and unwraps to its
// cause, so errors.Is/As see through it.
package errors

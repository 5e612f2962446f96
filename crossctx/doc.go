// Package crossctx bridges component model calling conventions across
// isolated execution contexts.
//
// FlattenFunctionType applies canonical ABI flattening to a high-level
// function type. LowerImports and LiftExports use it to synthesize shim
// functions for every canonical ABI import and export of a component, and
// re-point call sites at the shims.
//
// Both passes are idempotent: imports already in the cross-context
// convention, exports tagged canonical and the program entrypoint are left
// unchanged.
package crossctx

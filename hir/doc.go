// Package hir is the typed intermediate representation consumed by the MASM
// backend.
//
// It covers the pieces the backend reads or rewrites: the type lattice,
// function and interface identifiers, machine signatures, an arena-based
// data flow graph, modules, components with their canonical ABI imports and
// exports, and the global variable and data segment tables of a program.
//
// Instructions live in a per-function arena and are referenced by Inst
// handles. Blocks hold ordered handle lists, so rewriting an instruction is
// an indexed update that never reorders a block.
package hir

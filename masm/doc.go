// Package masm holds the target IR and the linking layer of the backend.
//
// A LibraryBuilder or ProgramBuilder collects target modules, linked
// libraries, an optional kernel and the rodata commitments computed from an
// IR program (ComputeRodata). Freeze consumes the builder and returns an
// immutable Library or Program, which can be rendered as assembly text or
// assembled into a content-addressed artifact. Programs additionally get a
// generated startup module that initializes the heap, replays every rodata
// segment from the advice map, and invokes the entrypoint.
package masm

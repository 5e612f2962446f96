// Package assembler turns target-IR modules into a content-addressed forest
// of procedures.
//
// Modules are registered with an Assembler together with any precompiled
// libraries and an optional kernel. Every procedure body is encoded with its
// callees replaced by their digests and hashed, so two procedures with the
// same code share a digest and a node. AssembleLibrary produces a Library
// whose exports map qualified names to digests; AssembleProgram produces a
// Program rooted at the digest of an executable module's main procedure.
//
// Libraries and programs carry an advice map (digest to element data) that
// the VM consults when reconstructing committed read-only data. Both can be
// serialized with MarshalBinary and read back with ReadLibrary/ReadProgram.
//
// Builtins returns the library of std and intrinsics procedures that
// generated startup code depends on.
package assembler

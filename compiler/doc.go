// Package compiler drives a component through the backend.
//
// A Session carries Options and the logger installed into every backend
// package. Compile runs the cross-context passes, lowers the component to
// target modules, links them into a Program or Library and assembles the
// result into an Artifact. Emit writes the requested outputs of an Artifact
// to the output directory.
package compiler

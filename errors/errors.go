package errors

import (
	"fmt"
	"strings"
)

// Phase indicates which compiler stage produced the error
type Phase string

const (
	PhaseRodata       Phase = "rodata"        // commitment computation
	PhaseFlatten      Phase = "flatten"       // canonical ABI flattening
	PhaseLowerImports Phase = "lower-imports" // cross-context import lowering
	PhaseLiftExports  Phase = "lift-exports"  // cross-context export lifting
	PhaseLink         Phase = "link"          // library/program linking
	PhaseCodegen      Phase = "codegen"       // IR to MASM lowering
	PhaseAssemble     Phase = "assemble"      // MAST assembly
	PhaseReplay       Phase = "replay"        // startup code replay
	PhaseEmit         Phase = "emit"          // output emission
	PhaseParse        Phase = "parse"         // WIT/artifact parsing
	PhaseConfig       Phase = "config"        // options loading
)

// Kind categorizes the error
type Kind string

const (
	KindTypeMismatch Kind = "type_mismatch"
	KindInvalidData  Kind = "invalid_data"
	KindInvalidInput Kind = "invalid_input"
	KindUnsupported  Kind = "unsupported"
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindDuplicate    Kind = "duplicate"
	KindOverflow     Kind = "overflow"
	KindUndefined    Kind = "undefined"
	KindCycle        Kind = "cycle"
	KindIO           Kind = "io"
)

// Error is the structured error type used throughout the backend
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Symbol string
	Type   string
	Detail string
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Symbol != "" || e.Type != "" {
		b.WriteString(": ")
		if e.Symbol != "" && e.Type != "" {
			b.WriteString("symbol ")
			b.WriteString(e.Symbol)
			b.WriteString(", type ")
			b.WriteString(e.Type)
		} else if e.Symbol != "" {
			b.WriteString("symbol ")
			b.WriteString(e.Symbol)
		} else {
			b.WriteString("type ")
			b.WriteString(e.Type)
		}
	}

	if e.Detail != "" {
		if e.Symbol != "" || e.Type != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the item path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Symbol sets the offending symbol (function, module or interface name)
func (b *Builder) Symbol(s string) *Builder {
	b.err.Symbol = s
	return b
}

// Type sets the offending type rendering
func (b *Builder) Type(t string) *Builder {
	b.err.Type = t
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Symbol: name,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// Conflict creates an error for a symbol declared twice with incompatible definitions
func Conflict(phase Phase, symbol, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindConflict,
		Symbol: symbol,
		Detail: detail,
	}
}

// Duplicate creates an error for a symbol registered twice
func Duplicate(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindDuplicate,
		Symbol: name,
		Detail: fmt.Sprintf("%s %q is already defined", what, name),
	}
}

// Undefined creates an error for a reference to an unknown symbol
func Undefined(phase Phase, symbol string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUndefined,
		Symbol: symbol,
		Detail: "reference to undefined procedure",
	}
}

// Overflow creates an overflow error
func Overflow(phase Phase, value any, targetType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOverflow,
		Type:   targetType,
		Detail: fmt.Sprintf("value %v overflows %s", value, targetType),
		Value:  value,
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Path:   path,
		Detail: detail,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// ParseFailed creates a parsing error
func ParseFailed(what string, cause error) *Error {
	return &Error{
		Phase:  PhaseParse,
		Kind:   KindInvalidData,
		Detail: fmt.Sprintf("parse %s", what),
		Cause:  cause,
	}
}

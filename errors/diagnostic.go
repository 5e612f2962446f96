package errors

import (
	"errors"
	"strings"
)

// Severity ranks a diagnostic
type Severity uint8

const (
	SeverityNote Severity = iota
	SeverityWarning
	SeverityError
	SeverityBug
)

func (s Severity) String() string {
	switch s {
	case SeverityNote:
		return "note"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityBug:
		return "bug"
	default:
		return "unknown"
	}
}

// Diagnostic is a user-facing report produced by a compiler stage
type Diagnostic struct {
	Cause    error
	Message  string
	Notes    []string
	Severity Severity
}

// Error implements the error interface
func (d *Diagnostic) Error() string {
	var b strings.Builder
	b.WriteString(d.Severity.String())
	b.WriteString(": ")
	b.WriteString(d.Message)
	if d.Cause != nil {
		b.WriteString(": ")
		b.WriteString(d.Cause.Error())
	}
	for _, n := range d.Notes {
		b.WriteString("\n  = note: ")
		b.WriteString(n)
	}
	return b.String()
}

// Unwrap returns the underlying error
func (d *Diagnostic) Unwrap() error {
	return d.Cause
}

// WithNote appends a note line and returns the diagnostic
func (d *Diagnostic) WithNote(note string) *Diagnostic {
	d.Notes = append(d.Notes, note)
	return d
}

// Report creates an error-severity diagnostic
func Report(message string, cause error) *Diagnostic {
	return &Diagnostic{Severity: SeverityError, Message: message, Cause: cause}
}

// Warn creates a warning-severity diagnostic
func Warn(message string) *Diagnostic {
	return &Diagnostic{Severity: SeverityWarning, Message: message}
}

// SeverityOf returns the severity of the first diagnostic in err's chain.
// Errors that carry no diagnostic are treated as SeverityError.
func SeverityOf(err error) Severity {
	var d *Diagnostic
	if errors.As(err, &d) {
		return d.Severity
	}
	return SeverityError
}

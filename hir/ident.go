package hir

import (
	"strconv"
	"strings"

	"github.com/wippyai/miden-backend/errors"
)

// FunctionIdent names a function within a module
type FunctionIdent struct {
	Module   string
	Function string
}

// NewFunctionIdent builds an identifier
func NewFunctionIdent(module, function string) FunctionIdent {
	return FunctionIdent{Module: module, Function: function}
}

// ParseFunctionIdent parses "module::function". The module part may itself
// contain "::" separators; the last one splits the function name off.
func ParseFunctionIdent(s string) (FunctionIdent, error) {
	i := strings.LastIndex(s, "::")
	if i <= 0 || i+2 >= len(s) {
		return FunctionIdent{}, errors.InvalidInput(errors.PhaseParse,
			"expected function identifier of the form module::function, got "+strconv.Quote(s))
	}
	return FunctionIdent{Module: s[:i], Function: s[i+2:]}, nil
}

func (id FunctionIdent) String() string {
	return id.Module + "::" + id.Function
}

// Compare orders identifiers by module, then function
func (id FunctionIdent) Compare(o FunctionIdent) int {
	if c := strings.Compare(id.Module, o.Module); c != 0 {
		return c
	}
	return strings.Compare(id.Function, o.Function)
}

// Version is a semantic version attached to an interface name
type Version struct {
	Major uint32
	Minor uint32
	Patch uint32
}

// ParseVersion parses a version string like "0.2.0" or "0.2"
func ParseVersion(s string) (Version, bool) {
	if s == "" {
		return Version{}, false
	}

	var v Version
	parts := strings.Split(s, ".")
	if len(parts) > 3 {
		return Version{}, false
	}

	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 32)
		if err != nil {
			return Version{}, false
		}
		switch i {
		case 0:
			v.Major = uint32(n)
		case 1:
			v.Minor = uint32(n)
		case 2:
			v.Patch = uint32(n)
		}
	}
	return v, true
}

// String returns the version as "major.minor.patch"
func (v Version) String() string {
	return strconv.FormatUint(uint64(v.Major), 10) + "." +
		strconv.FormatUint(uint64(v.Minor), 10) + "." +
		strconv.FormatUint(uint64(v.Patch), 10)
}

// InterfaceIdent names a component interface, e.g.
// "miden:basic-wallet/basic-wallet@1.0.0"
type InterfaceIdent struct {
	FullName string
}

// NewInterfaceIdent wraps a fully qualified interface name
func NewInterfaceIdent(fullName string) InterfaceIdent {
	return InterfaceIdent{FullName: fullName}
}

// Namespace returns the part before ':', or "" if absent
func (i InterfaceIdent) Namespace() string {
	ns, _, ok := strings.Cut(i.FullName, ":")
	if !ok {
		return ""
	}
	return ns
}

// Package returns the package name between ':' and '/'
func (i InterfaceIdent) Package() string {
	rest := i.FullName
	if _, after, ok := strings.Cut(rest, ":"); ok {
		rest = after
	}
	pkg, _, _ := strings.Cut(rest, "/")
	pkg, _, _ = strings.Cut(pkg, "@")
	return pkg
}

// Interface returns the bare interface name without version
func (i InterfaceIdent) Interface() string {
	_, rest, ok := strings.Cut(i.FullName, "/")
	if !ok {
		return ""
	}
	name, _, _ := strings.Cut(rest, "@")
	return name
}

// Version returns the parsed version suffix, if any
func (i InterfaceIdent) Version() (Version, bool) {
	_, v, ok := strings.Cut(i.FullName, "@")
	if !ok {
		return Version{}, false
	}
	return ParseVersion(v)
}

func (i InterfaceIdent) String() string { return i.FullName }

// InterfaceFunctionIdent names a function of a component interface
type InterfaceFunctionIdent struct {
	Interface InterfaceIdent
	Function  string
}

// NewInterfaceFunctionIdent builds an identifier
func NewInterfaceFunctionIdent(iface, function string) InterfaceFunctionIdent {
	return InterfaceFunctionIdent{Interface: InterfaceIdent{FullName: iface}, Function: function}
}

// ParseInterfaceFunctionIdent parses "interface#function"
func ParseInterfaceFunctionIdent(s string) (InterfaceFunctionIdent, error) {
	iface, fn, ok := strings.Cut(s, "#")
	if !ok || iface == "" || fn == "" || strings.Contains(fn, "#") {
		return InterfaceFunctionIdent{}, errors.InvalidInput(errors.PhaseParse,
			"expected interface function of the form interface#function, got "+strconv.Quote(s))
	}
	return NewInterfaceFunctionIdent(iface, fn), nil
}

func (id InterfaceFunctionIdent) String() string {
	return id.Interface.FullName + "#" + id.Function
}

// Compare orders identifiers by interface, then function
func (id InterfaceFunctionIdent) Compare(o InterfaceFunctionIdent) int {
	if c := strings.Compare(id.Interface.FullName, o.Interface.FullName); c != 0 {
		return c
	}
	return strings.Compare(id.Function, o.Function)
}

// FunctionIdent returns the core identifier {interface, function} used to
// address the interface function from inside a component
func (id InterfaceFunctionIdent) FunctionIdent() FunctionIdent {
	return FunctionIdent{Module: id.Interface.FullName, Function: id.Function}
}

// Package witsig parses WIT function declarations into high-level IR
// function types, so canonical ABI flattening can be driven from interface
// text.
package witsig

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/miden-backend/errors"
	"github.com/wippyai/miden-backend/hir"
)

// Func is a parsed function declaration
type Func struct {
	Name string
	Type hir.FunctionType
}

// DefaultAliases maps the Miden core type names to their IR layout
func DefaultAliases() map[string]hir.Type {
	word := hir.Struct(hir.Felt, hir.Felt, hir.Felt, hir.Felt)
	return map[string]hir.Type{
		"felt":       hir.Felt,
		"word":       word,
		"core-asset": hir.Struct(word),
		"account-id": hir.Struct(hir.Felt),
		"recipient":  hir.Struct(word),
		"tag":        hir.Struct(hir.Felt),
		"note-type":  hir.Struct(hir.Felt),
		"note-id":    hir.Struct(hir.Felt),
	}
}

var (
	funcPattern   = regexp.MustCompile(`(?:export\s+)?([a-zA-Z_][a-zA-Z0-9_-]*)\s*:\s*func\s*\(([^)]*)\)(?:\s*->\s*([^;]+))?`)
	recordPattern = regexp.MustCompile(`record\s+([a-zA-Z_][a-zA-Z0-9_-]*)\s*\{([^}]*)\}`)
	aliasPattern  = regexp.MustCompile(`type\s+([a-zA-Z_][a-zA-Z0-9_-]*)\s*=\s*([^;]+);`)
)

// Parse extracts every function declaration in text, in source order.
// Records and type aliases declared in text extend aliases; aliases may be
// nil.
func Parse(text string, aliases map[string]hir.Type) ([]Func, error) {
	known := make(map[string]hir.Type, len(aliases))
	for k, v := range aliases {
		known[k] = v
	}

	for _, m := range aliasPattern.FindAllStringSubmatch(text, -1) {
		ty, err := ParseType(m[2], known)
		if err != nil {
			return nil, errors.Wrap(errors.PhaseParse, errors.KindInvalidData, err, "parse alias "+m[1])
		}
		known[m[1]] = ty
	}

	for _, m := range recordPattern.FindAllStringSubmatch(text, -1) {
		var fields []hir.Type
		for _, f := range splitParams(m[2]) {
			ty, err := ParseType(typeOf(f), known)
			if err != nil {
				return nil, errors.Wrap(errors.PhaseParse, errors.KindInvalidData, err, "parse record "+m[1])
			}
			fields = append(fields, ty)
		}
		known[m[1]] = hir.Struct(fields...)
	}

	var funcs []Func
	for _, match := range funcPattern.FindAllStringSubmatch(text, -1) {
		fn := Func{Name: match[1]}
		for _, p := range splitParams(match[2]) {
			ty, err := ParseType(typeOf(p), known)
			if err != nil {
				return nil, errors.Wrap(errors.PhaseParse, errors.KindInvalidData, err, "parse param of "+fn.Name)
			}
			fn.Type.Params = append(fn.Type.Params, ty)
		}

		results, err := parseResults(strings.TrimSpace(match[3]), known)
		if err != nil {
			return nil, errors.Wrap(errors.PhaseParse, errors.KindInvalidData, err, "parse result of "+fn.Name)
		}
		fn.Type.Results = results
		funcs = append(funcs, fn)
	}

	if len(funcs) == 0 {
		return nil, errors.InvalidInput(errors.PhaseParse, "no functions found in WIT text")
	}
	return funcs, nil
}

func parseResults(s string, known map[string]hir.Type) ([]hir.Type, error) {
	if s == "" || s == "()" {
		return nil, nil
	}
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		var out []hir.Type
		for _, part := range splitParams(s[1 : len(s)-1]) {
			ty, err := ParseType(typeOf(part), known)
			if err != nil {
				return nil, err
			}
			out = append(out, ty)
		}
		return out, nil
	}
	ty, err := ParseType(s, known)
	if err != nil {
		return nil, err
	}
	return []hir.Type{ty}, nil
}

// ParseType parses a WIT type expression. Primitives are resolved through
// wit.ParseType; list, tuple, option and named aliases are handled here.
func ParseType(s string, aliases map[string]hir.Type) (hir.Type, error) {
	s = strings.TrimSpace(s)
	if ty, ok := aliases[s]; ok {
		return ty, nil
	}

	if inner, ok := generic(s, "list"); ok {
		if elem, n, ok := strings.Cut(inner, ","); ok {
			ty, err := ParseType(elem, aliases)
			if err != nil {
				return hir.Type{}, err
			}
			size, err := strconv.Atoi(strings.TrimSpace(n))
			if err != nil || size < 0 {
				return hir.Type{}, errors.InvalidInput(errors.PhaseParse, "invalid fixed list length in "+s)
			}
			return hir.Array(ty, size), nil
		}
		elem, err := ParseType(inner, aliases)
		if err != nil {
			return hir.Type{}, err
		}
		return hir.List(elem), nil
	}
	if inner, ok := generic(s, "tuple"); ok {
		var fields []hir.Type
		for _, p := range splitParams(inner) {
			ty, err := ParseType(p, aliases)
			if err != nil {
				return hir.Type{}, err
			}
			fields = append(fields, ty)
		}
		return hir.Struct(fields...), nil
	}
	if inner, ok := generic(s, "option"); ok {
		payload, err := ParseType(inner, aliases)
		if err != nil {
			return hir.Type{}, err
		}
		return hir.Struct(hir.U8, payload), nil
	}

	wt, err := wit.ParseType(s)
	if err != nil {
		return hir.Type{}, errors.ParseFailed("type "+strconv.Quote(s), err)
	}
	return fromPrimitive(wt)
}

func fromPrimitive(wt wit.Type) (hir.Type, error) {
	switch wt.(type) {
	case wit.Bool:
		return hir.I1, nil
	case wit.S8:
		return hir.I8, nil
	case wit.U8:
		return hir.U8, nil
	case wit.S16:
		return hir.I16, nil
	case wit.U16:
		return hir.U16, nil
	case wit.S32:
		return hir.I32, nil
	case wit.U32, wit.Char:
		return hir.U32, nil
	case wit.S64:
		return hir.I64, nil
	case wit.U64:
		return hir.U64, nil
	case wit.F64:
		return hir.F64, nil
	case wit.String:
		return hir.List(hir.U8), nil
	}
	return hir.Type{}, errors.New(errors.PhaseParse, errors.KindUnsupported).
		Type(fmt.Sprintf("%T", wt)).
		Detail("no IR representation").
		Build()
}

func generic(s, name string) (string, bool) {
	if !strings.HasPrefix(s, name+"<") || !strings.HasSuffix(s, ">") {
		return "", false
	}
	return s[len(name)+1 : len(s)-1], true
}

// typeOf strips a "name:" prefix from a parameter or field declaration
func typeOf(decl string) string {
	if idx := strings.Index(decl, ":"); idx != -1 {
		return strings.TrimSpace(decl[idx+1:])
	}
	return strings.TrimSpace(decl)
}

// splitParams splits a comma-separated list, ignoring commas nested in
// parentheses or angle brackets.
func splitParams(s string) []string {
	var result []string
	var current strings.Builder
	depth := 0

	for _, ch := range s {
		switch ch {
		case '(', '<':
			depth++
			current.WriteRune(ch)
		case ')', '>':
			depth--
			current.WriteRune(ch)
		case ',':
			if depth == 0 {
				if str := strings.TrimSpace(current.String()); str != "" {
					result = append(result, str)
				}
				current.Reset()
			} else {
				current.WriteRune(ch)
			}
		default:
			current.WriteRune(ch)
		}
	}

	if str := strings.TrimSpace(current.String()); str != "" {
		result = append(result, str)
	}

	return result
}

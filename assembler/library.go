package assembler

import (
	"sort"

	"github.com/wippyai/miden-backend/felt"
)

// Export is a named library procedure
type Export struct {
	Name   QualifiedName `msgpack:"name"`
	Digest felt.Digest   `msgpack:"digest"`
}

// Library is an assembled set of modules. Libraries are immutable.
type Library struct {
	forest  *Forest
	advice  AdviceMap
	exports map[QualifiedName]felt.Digest
	modules []string
	kernel  bool
}

// IsKernel reports whether exports are reachable only via syscall
func (l *Library) IsKernel() bool { return l.kernel }

// ModulePaths returns the paths of the modules the library was built from,
// in order
func (l *Library) ModulePaths() []string { return l.modules }

// ContainsModule reports whether the library defines module path
func (l *Library) ContainsModule(path string) bool {
	for _, m := range l.modules {
		if m == path {
			return true
		}
	}
	return false
}

// Export returns the digest of an exported procedure
func (l *Library) Export(name QualifiedName) (felt.Digest, bool) {
	d, ok := l.exports[name]
	return d, ok
}

// Exports returns the exports ordered by name
func (l *Library) Exports() []Export {
	out := make([]Export, 0, len(l.exports))
	for name, d := range l.exports {
		out = append(out, Export{Name: name, Digest: d})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name.Compare(out[j].Name) < 0 })
	return out
}

// Forest returns the procedures of the library
func (l *Library) Forest() *Forest { return l.forest }

// AdviceMap returns the library's advice map
func (l *Library) AdviceMap() AdviceMap { return l.advice }

// WithAdviceMap returns a copy of l whose advice map also holds m
func (l *Library) WithAdviceMap(m AdviceMap) (*Library, error) {
	out := *l
	out.advice = l.advice.clone()
	if err := out.advice.Merge(m); err != nil {
		return nil, err
	}
	return &out, nil
}

// RenameExports returns a copy of l with every export re-keyed through fn.
// Digests are unchanged.
func (l *Library) RenameExports(fn func(QualifiedName) QualifiedName) *Library {
	out := *l
	out.exports = make(map[QualifiedName]felt.Digest, len(l.exports))
	for name, d := range l.exports {
		out.exports[fn(name)] = d
	}
	return &out
}

// Program is an assembled executable rooted at its entrypoint procedure
type Program struct {
	forest     *Forest
	advice     AdviceMap
	kernel     *Library
	libraries  []string
	entrypoint felt.Digest
}

// Entrypoint returns the digest of the main procedure
func (p *Program) Entrypoint() felt.Digest { return p.entrypoint }

// Forest returns the procedures compiled into the program
func (p *Program) Forest() *Forest { return p.forest }

// AdviceMap returns the program's advice map
func (p *Program) AdviceMap() AdviceMap { return p.advice }

// Kernel returns the kernel the program was linked against, if any
func (p *Program) Kernel() *Library { return p.kernel }

// Libraries returns the module paths provided by linked libraries
func (p *Program) Libraries() []string { return p.libraries }

// WithAdviceMap returns a copy of p whose advice map also holds m
func (p *Program) WithAdviceMap(m AdviceMap) (*Program, error) {
	out := *p
	out.advice = p.advice.clone()
	if err := out.advice.Merge(m); err != nil {
		return nil, err
	}
	return &out, nil
}

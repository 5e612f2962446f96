package hir

import (
	"strconv"
	"strings"
)

func (c *Component) String() string {
	var b strings.Builder
	b.WriteString("(component")

	var sections []func()
	if len(c.imports) > 0 {
		sections = append(sections, func() {
			b.WriteString("    ;; Component Imports")
			for _, e := range c.Imports() {
				b.WriteString("\n    (lower ")
				writeImport(&b, e.Import)
				b.WriteByte(' ')
				b.WriteString(e.ID.String())
				b.WriteByte(')')
			}
		})
	}
	if len(c.modules) > 0 {
		sections = append(sections, func() {
			b.WriteString("    ;; Modules")
			for _, m := range c.modules {
				b.WriteByte('\n')
				m.write(&b, 1)
			}
		})
	}
	if len(c.exports) > 0 {
		sections = append(sections, func() {
			b.WriteString("    ;; Component Exports")
			for _, e := range c.Exports() {
				b.WriteString("\n    (lift ")
				b.WriteString(e.Name.String())
				b.WriteString(" (")
				b.WriteString(e.Export.Function.String())
				b.WriteByte(' ')
				b.WriteString(e.Export.FunctionTy.String())
				if opts := e.Export.Options.String(); opts != "" {
					b.WriteByte(' ')
					b.WriteString(opts)
				}
				b.WriteString("))")
			}
		})
	}

	for i, section := range sections {
		b.WriteByte('\n')
		if i > 0 {
			b.WriteByte('\n')
		}
		section()
	}
	b.WriteString(")\n")
	return b.String()
}

func writeImport(b *strings.Builder, imp ComponentImport) {
	b.WriteByte('(')
	switch imp := imp.(type) {
	case *CanonAbiImport:
		b.WriteString(imp.InterfaceFunction.String())
		b.WriteByte(' ')
		if opts := imp.Options.String(); opts != "" {
			b.WriteString(opts)
			b.WriteByte(' ')
		}
	case *MidenAbiImport:
	}
	b.WriteString("(type ")
	b.WriteString(imp.Type().String())
	b.WriteString("))")
}

func (m *Module) String() string {
	var b strings.Builder
	m.write(&b, 0)
	b.WriteByte('\n')
	return b.String()
}

func (m *Module) write(b *strings.Builder, depth int) {
	indent(b, depth)
	b.WriteString("(module #")
	b.WriteString(m.Name)
	if m.IsKernel {
		b.WriteString(" (kernel)")
	}
	for _, fn := range m.functions {
		b.WriteByte('\n')
		fn.write(b, depth+1)
	}
	b.WriteByte(')')
}

func (f *Function) String() string {
	var b strings.Builder
	f.write(&b, 0)
	return b.String()
}

func (f *Function) write(b *strings.Builder, depth int) {
	indent(b, depth)
	b.WriteString("(func (export #")
	b.WriteString(f.ID.Function)
	b.WriteString(") ")
	b.WriteString(f.Signature.String())
	for _, blk := range f.DFG.Blocks() {
		b.WriteByte('\n')
		indent(b, depth+1)
		b.WriteString("(block ")
		b.WriteString(strconv.Itoa(int(blk)))
		for _, p := range f.DFG.BlockParams(blk) {
			b.WriteString(" (param ")
			b.WriteString(p.String())
			b.WriteByte(' ')
			b.WriteString(f.DFG.ValueType(p).String())
			b.WriteByte(')')
		}
		for _, inst := range f.DFG.BlockInsts(blk) {
			b.WriteByte('\n')
			indent(b, depth+2)
			f.writeInst(b, inst)
		}
		b.WriteByte(')')
	}
	b.WriteByte(')')
}

func (f *Function) writeInst(b *strings.Builder, inst Inst) {
	data := f.DFG.Inst(inst)
	if len(data.Results) > 0 {
		b.WriteString("(let (")
		for i, r := range data.Results {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(r.String())
			b.WriteByte(' ')
			b.WriteString(f.DFG.ValueType(r).String())
		}
		b.WriteString(") ")
		defer b.WriteByte(')')
	}
	b.WriteByte('(')
	b.WriteString(data.Op.String())
	switch data.Op {
	case OpConst:
		b.WriteByte('.')
		b.WriteString(data.Ty.String())
		b.WriteByte(' ')
		b.WriteString(strconv.FormatUint(data.Imm, 10))
	case OpExec, OpCall, OpSyscall:
		b.WriteString(" #")
		b.WriteString(data.Callee.String())
	}
	for _, a := range data.Args {
		b.WriteByte(' ')
		b.WriteString(a.String())
	}
	b.WriteByte(')')
}

func indent(b *strings.Builder, depth int) {
	for i := 0; i < depth; i++ {
		b.WriteString("    ")
	}
}

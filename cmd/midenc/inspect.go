package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/wippyai/miden-backend/assembler"
	"github.com/wippyai/miden-backend/compiler"
)

func inspectCmd() *cobra.Command {
	var (
		verify bool
		nodes  bool
	)
	cmd := &cobra.Command{
		Use:   "inspect FILE",
		Short: "Describe an assembled program (.masp) or library (.masl)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			out := cmd.OutOrStdout()

			var (
				forest *assembler.Forest
				advice assembler.AdviceMap
			)
			prog, lib, err := readArtifact(args[0], data)
			if err != nil {
				return err
			}
			if prog != nil {
				describeProgram(out, prog)
				forest, advice = prog.Forest(), prog.AdviceMap()
			} else {
				describeLibrary(out, lib)
				forest, advice = lib.Forest(), lib.AdviceMap()
			}

			fmt.Fprintf(out, "  %s %d\n", paint(nameStyle, "nodes"), forest.Len())
			if nodes {
				if err := describeNodes(out, forest); err != nil {
					return err
				}
			}
			fmt.Fprintf(out, "  %s %d\n", paint(nameStyle, "advice entries"), len(advice))
			for _, e := range advice.Entries() {
				fmt.Fprintf(out, "    %s %s\n", paint(digestStyle, e.Key.String()),
					paint(dimStyle, fmt.Sprintf("%d felts", len(e.Values))))
			}

			if verify {
				if err := advice.Verify(); err != nil {
					return err
				}
				fmt.Fprintln(out, paint(okStyle, "advice map verified"))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&verify, "verify", false, "check every advice entry against its commitment")
	cmd.Flags().BoolVar(&nodes, "nodes", false, "list every forest node")
	return cmd
}

// readArtifact decodes data by extension, trying both forms for unknown ones
func readArtifact(path string, data []byte) (*assembler.Program, *assembler.Library, error) {
	switch filepath.Ext(path) {
	case compiler.ExtProgram:
		p, err := assembler.ReadProgram(bytes.NewReader(data))
		return p, nil, err
	case compiler.ExtLibrary:
		l, err := assembler.ReadLibrary(bytes.NewReader(data))
		return nil, l, err
	}
	if p, err := assembler.ReadProgram(bytes.NewReader(data)); err == nil {
		return p, nil, nil
	}
	l, err := assembler.ReadLibrary(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("%s is neither a program nor a library: %w", path, err)
	}
	return nil, l, nil
}

func describeProgram(out io.Writer, p *assembler.Program) {
	fmt.Fprintln(out, paint(titleStyle, "program"))
	fmt.Fprintf(out, "  %s %s\n", paint(nameStyle, "entrypoint"), paint(digestStyle, p.Entrypoint().String()))
	if k := p.Kernel(); k != nil {
		fmt.Fprintf(out, "  %s %v\n", paint(nameStyle, "kernel"), k.ModulePaths())
	}
	for _, lib := range p.Libraries() {
		fmt.Fprintf(out, "  %s %s\n", paint(nameStyle, "library"), lib)
	}
}

func describeLibrary(out io.Writer, l *assembler.Library) {
	title := "library"
	if l.IsKernel() {
		title = "kernel"
	}
	fmt.Fprintln(out, paint(titleStyle, title))
	for _, m := range l.ModulePaths() {
		fmt.Fprintf(out, "  %s %s\n", paint(nameStyle, "module"), m)
	}
	for _, e := range l.Exports() {
		fmt.Fprintf(out, "  %s %s\n", paint(typeStyle, e.Name.String()), paint(digestStyle, e.Digest.String()))
	}
}

func describeNodes(out io.Writer, f *assembler.Forest) error {
	for _, n := range f.Nodes() {
		insts, err := n.Instructions()
		if err != nil {
			return err
		}
		name := n.Name
		if name == "" {
			name = "(anonymous)"
		}
		fmt.Fprintf(out, "    %s %s %s\n", paint(digestStyle, n.Digest.String()), name,
			paint(dimStyle, fmt.Sprintf("%d instructions", len(insts))))
	}
	return nil
}

package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wippyai/miden-backend/hir"
	"github.com/wippyai/miden-backend/masm"
	"github.com/wippyai/miden-backend/masm/emulator"
)

func rodataCmd() *cobra.Command {
	var (
		files      []string
		raw        []string
		entrypoint string
		verify     bool
		startup    bool
	)
	cmd := &cobra.Command{
		Use:   "rodata",
		Short: "Compute data segment commitments and the startup code that loads them",
		Example: `  midenc rodata --segment 0x400=strings.bin
  midenc rodata --bytes 0=0102030405060708090a --verify`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := hir.NewProgram()
			for _, seg := range files {
				offset, path, err := splitSegment(seg)
				if err != nil {
					return err
				}
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("read %s: %w", path, err)
				}
				if err := declare(p, offset, data); err != nil {
					return err
				}
			}
			for _, seg := range raw {
				offset, text, err := splitSegment(seg)
				if err != nil {
					return err
				}
				data, err := hex.DecodeString(strings.TrimPrefix(text, "0x"))
				if err != nil {
					return fmt.Errorf("segment %q: %w", seg, err)
				}
				if err := declare(p, offset, data); err != nil {
					return err
				}
			}

			id, err := hir.ParseFunctionIdent(entrypoint)
			if err != nil {
				return err
			}
			b := masm.NewProgramBuilderFromHIR(p)
			b.SetEntrypoint(id)
			prog := b.Freeze()

			out := cmd.OutOrStdout()
			printRodata(out, prog)
			if startup {
				fmt.Fprintln(out)
				if _, err := prog.StartupModule(false).WriteTo(out); err != nil {
					return err
				}
			}
			if verify {
				if err := emulator.Verify(prog); err != nil {
					return err
				}
				fmt.Fprintln(out, paint(okStyle, "replay verified"))
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&files, "segment", nil, "data segment OFFSET=FILE (repeatable)")
	cmd.Flags().StringArrayVar(&raw, "bytes", nil, "data segment OFFSET=HEX (repeatable)")
	cmd.Flags().StringVar(&entrypoint, "entrypoint", "app::main", "procedure the startup code invokes")
	cmd.Flags().BoolVar(&verify, "verify", false, "replay the startup code and check memory against every segment")
	cmd.Flags().BoolVar(&startup, "startup", false, "print the startup module")
	return cmd
}

func splitSegment(seg string) (uint32, string, error) {
	off, rest, ok := strings.Cut(seg, "=")
	if !ok {
		return 0, "", fmt.Errorf("segment %q: want OFFSET=VALUE", seg)
	}
	v, err := strconv.ParseUint(off, 0, 32)
	if err != nil {
		return 0, "", fmt.Errorf("segment %q: offset: %w", seg, err)
	}
	return uint32(v), rest, nil
}

func declare(p *hir.Program, offset uint32, data []byte) error {
	if !masm.NativePtrFromAddr(offset).IsWordAligned() {
		return fmt.Errorf("segment offset %#x is not word aligned", offset)
	}
	return p.Segments.Declare(offset, 0, data, true)
}

func printRodata(out io.Writer, p *masm.Program) {
	rodatas := p.Rodatas()
	fmt.Fprintln(out, paint(titleStyle, fmt.Sprintf("%d commitment(s)", len(rodatas))))
	for _, r := range rodatas {
		fmt.Fprintf(out, "  %s %s\n", paint(nameStyle, "start "+r.Start.String()), paint(digestStyle, r.Digest.String()))
		fmt.Fprintf(out, "    %s\n", paint(dimStyle, fmt.Sprintf("%d bytes, %d felts, %d words",
			r.SizeInBytes(), r.SizeInFelts(), r.SizeInWords())))
	}
	fmt.Fprintf(out, "  %s %d\n", paint(nameStyle, "heap base"), p.HeapBase())
}

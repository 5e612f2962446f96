package main

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/miden-backend/crossctx"
	"github.com/wippyai/miden-backend/hir"
	"github.com/wippyai/miden-backend/witsig"
)

func flattenCmd() *cobra.Command {
	var (
		file   string
		lift   bool
		native bool
	)
	cmd := &cobra.Command{
		Use:   "flatten [declaration | module::function]...",
		Short: "Flatten WIT function declarations to core signatures",
		Long: `Flatten parses WIT function declarations such as
  "receive-asset: func(asset: core-asset)"
and prints the core signature each one lowers to. With --native the
arguments name natively provided procedures instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			dir := crossctx.Lower
			if lift {
				dir = crossctx.Lift
			}
			if native {
				return flattenNative(out, args, dir)
			}

			text := strings.Join(args, "\n")
			if file != "" {
				data, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("read %s: %w", file, err)
				}
				text = string(data) + "\n" + text
			}
			funcs, err := witsig.Parse(text, witsig.DefaultAliases())
			if err != nil {
				return err
			}
			if len(funcs) == 0 {
				return fmt.Errorf("no function declarations found")
			}
			fmt.Fprintln(out, paint(titleStyle, dir.String()))
			for _, f := range funcs {
				if err := printFlat(out, f.Name, f.Type, dir); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "read declarations from a WIT file")
	cmd.Flags().BoolVar(&lift, "lift", false, "flatten for export lifting instead of import lowering")
	cmd.Flags().BoolVar(&native, "native", false, "look up natively provided procedures by module::function")
	return cmd
}

func flattenNative(out io.Writer, args []string, dir crossctx.Direction) error {
	if len(args) == 0 {
		for id := range crossctx.NativeSignatures() {
			args = append(args, id.String())
		}
		slices.Sort(args)
	}
	fmt.Fprintln(out, paint(titleStyle, "native "+dir.String()))
	for _, arg := range args {
		id, err := hir.ParseFunctionIdent(arg)
		if err != nil {
			return err
		}
		ft, ok := crossctx.NativeFunctionType(id)
		if !ok {
			return fmt.Errorf("%s is not a natively provided procedure", id)
		}
		// native procedures already use the felt representation
		printSignature(out, id.String(), ft, hir.NewSignature(ft.Params, ft.Results))
	}
	return nil
}

func printFlat(out io.Writer, name string, ft hir.FunctionType, dir crossctx.Direction) error {
	sig, err := crossctx.FlattenFunctionType(ft, dir)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	printSignature(out, name, ft, sig)
	return nil
}

func printSignature(out io.Writer, name string, ft hir.FunctionType, sig hir.Signature) {
	fmt.Fprintf(out, "  %s %s\n", paint(nameStyle, name), paint(dimStyle, ft.String()))
	fmt.Fprintf(out, "    %s\n", paint(typeStyle, sig.String()))
	if params, results, err := hir.CoreTypes(sig); err == nil {
		fmt.Fprintf(out, "    %s\n", paint(dimStyle, "core "+coreList(params)+" -> "+coreList(results)))
	}
	if crossctx.NeedsTransformation(sig) {
		fmt.Fprintf(out, "    %s\n", paint(errorStyle, "passes values through memory"))
	}
}

func coreList(vts []hir.CoreValType) string {
	names := make([]string, len(vts))
	for i, vt := range vts {
		names[i] = api.ValueTypeName(vt)
	}
	return "(" + strings.Join(names, " ") + ")"
}

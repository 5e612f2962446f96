// Command midenc inspects the pieces of the MASM backend: canonical ABI
// flattening of WIT declarations, rodata commitments, compiled artifacts
// and compiler options.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var rootCmd = &cobra.Command{
	Use:           "midenc",
	Short:         "MASM backend tooling",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		mode, _ := cmd.Flags().GetString("color")
		switch mode {
		case "auto":
			colorEnabled = term.IsTerminal(int(os.Stdout.Fd()))
		case "on":
			colorEnabled = true
		case "off":
			colorEnabled = false
		default:
			return fmt.Errorf("invalid --color value %q (want auto, on or off)", mode)
		}
		return nil
	},
}

func main() {
	rootCmd.AddCommand(flattenCmd(), rodataCmd(), inspectCmd(), checkCmd())
	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, paint(errorStyle, "Error: ")+err.Error())
		os.Exit(1)
	}
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wippyai/miden-backend/compiler"
)

func checkCmd() *cobra.Command {
	var config string
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate compiler options and the libraries they link",
		Long: `Check loads options from a TOML file, applies flag overrides,
validates the result and reads every linked library.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := compiler.DefaultOptions()
			if config != "" {
				var err error
				if opts, err = compiler.LoadOptions(config); err != nil {
					return err
				}
			}
			if err := applyFlags(cmd, &opts); err != nil {
				return err
			}

			s, err := compiler.NewSession(opts)
			if err != nil {
				return err
			}
			defer s.Close()
			libs, kernel, err := s.LoadLibraries()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, paint(titleStyle, opts.Name))
			fmt.Fprintf(out, "  %s %s\n", paint(nameStyle, "project"), opts.ProjectType)
			if opts.Entrypoint != "" {
				fmt.Fprintf(out, "  %s %s\n", paint(nameStyle, "entrypoint"), opts.Entrypoint)
			}
			fmt.Fprintf(out, "  %s %v -> %s\n", paint(nameStyle, "emit"), opts.Emit, opts.OutputDir)
			for _, lib := range libs {
				fmt.Fprintf(out, "  %s %v\n", paint(nameStyle, "library"), lib.ModulePaths())
			}
			if kernel != nil {
				fmt.Fprintf(out, "  %s %v\n", paint(nameStyle, "kernel"), kernel.ModulePaths())
			}
			fmt.Fprintln(out, paint(okStyle, "ok"))
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&config, "config", "c", "", "TOML options file")
	f.String("name", "", "artifact name")
	f.String("entrypoint", "", "program entrypoint as module::function")
	f.String("project-type", "", "program or library")
	f.String("output-dir", "", "output directory")
	f.StringSlice("emit", nil, "outputs to emit (masm, mast)")
	f.StringSlice("link", nil, "libraries to link")
	f.Uint32("reserved-memory", 0, "bytes reserved for data segments and globals")
	f.Uint32("page-size", 0, "linear memory page size")
	f.Bool("test-harness", false, "load test inputs from the advice stack at startup")
	f.Bool("debug", false, "keep procedure names in assembled nodes")
	f.BoolP("verbose", "v", false, "log at debug level")
	return cmd
}

// applyFlags copies every flag set on the command line over opts
func applyFlags(cmd *cobra.Command, opts *compiler.Options) error {
	f := cmd.Flags()
	var err error
	set := func(name string, apply func()) {
		if err == nil && f.Changed(name) {
			apply()
		}
	}
	set("name", func() { opts.Name, err = f.GetString("name") })
	set("entrypoint", func() { opts.Entrypoint, err = f.GetString("entrypoint") })
	set("project-type", func() {
		var v string
		v, err = f.GetString("project-type")
		opts.ProjectType = compiler.ProjectType(v)
	})
	set("output-dir", func() { opts.OutputDir, err = f.GetString("output-dir") })
	set("emit", func() {
		var vs []string
		vs, err = f.GetStringSlice("emit")
		opts.Emit = nil
		for _, v := range vs {
			opts.Emit = append(opts.Emit, compiler.OutputType(v))
		}
	})
	set("link", func() { opts.LinkLibraries, err = f.GetStringSlice("link") })
	set("reserved-memory", func() { opts.ReservedMemoryBytes, err = f.GetUint32("reserved-memory") })
	set("page-size", func() { opts.PageSize, err = f.GetUint32("page-size") })
	set("test-harness", func() { opts.TestHarness, err = f.GetBool("test-harness") })
	set("debug", func() { opts.DebugDecorators, err = f.GetBool("debug") })
	set("verbose", func() { opts.Verbose, err = f.GetBool("verbose") })
	return err
}

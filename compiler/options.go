package compiler

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/wippyai/miden-backend/errors"
	"github.com/wippyai/miden-backend/felt"
	"github.com/wippyai/miden-backend/hir"
)

// ProjectType selects what a compilation produces
type ProjectType string

const (
	ProjectProgram ProjectType = "program"
	ProjectLibrary ProjectType = "library"
)

const wordBytes = felt.WordSize * 4

// OutputType names an emitted artifact form
type OutputType string

const (
	OutputMasm OutputType = "masm" // sorted text rendering
	OutputMast OutputType = "mast" // binary .masp/.masl
)

// Options configures a compilation. Zero memory parameters select the IR
// defaults.
type Options struct {
	Name                string       `toml:"name"`
	Entrypoint          string       `toml:"entrypoint"`
	ProjectType         ProjectType  `toml:"project_type"`
	OutputDir           string       `toml:"output_dir"`
	Emit                []OutputType `toml:"emit"`
	LinkLibraries       []string     `toml:"link_libraries"`
	ReservedMemoryBytes uint32       `toml:"reserved_memory_bytes"`
	PageSize            uint32       `toml:"page_size"`
	TestHarness         bool         `toml:"test_harness"`
	DebugDecorators     bool         `toml:"debug_decorators"`
	Verbose             bool         `toml:"verbose"`
}

// DefaultOptions returns options for a program emitted as binary into the
// current directory
func DefaultOptions() Options {
	return Options{
		Name:        "out",
		ProjectType: ProjectProgram,
		OutputDir:   ".",
		Emit:        []OutputType{OutputMast},
	}
}

// LoadOptions reads TOML options from path over DefaultOptions
func LoadOptions(path string) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Options{}, errors.Wrap(errors.PhaseConfig, errors.KindIO, err, "read "+path)
	}
	opts, err := DecodeOptions(string(data))
	if err != nil {
		return Options{}, fmt.Errorf("%s: %w", path, err)
	}
	return opts, nil
}

// DecodeOptions parses TOML options over DefaultOptions and validates them
func DecodeOptions(data string) (Options, error) {
	opts := DefaultOptions()
	meta, err := toml.Decode(data, &opts)
	if err != nil {
		return Options{}, errors.Wrap(errors.PhaseConfig, errors.KindInvalidData, err, "parse TOML")
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Options{}, errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Detail("unknown keys: %s", strings.Join(keys, ", ")).
			Build()
	}
	if err := opts.Validate(); err != nil {
		return Options{}, err
	}
	return opts, nil
}

// Validate checks field values and their combinations
func (o Options) Validate() error {
	if strings.TrimSpace(o.Name) == "" {
		return errors.InvalidInput(errors.PhaseConfig, "name must not be empty")
	}
	switch o.ProjectType {
	case ProjectProgram:
	case ProjectLibrary:
		if o.Entrypoint != "" {
			return errors.InvalidInput(errors.PhaseConfig, "a library has no entrypoint")
		}
		if o.TestHarness {
			return errors.InvalidInput(errors.PhaseConfig, "the test harness requires a program")
		}
	default:
		return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Value(o.ProjectType).
			Detail("unknown project type %q", o.ProjectType).
			Build()
	}
	if o.Entrypoint != "" {
		if _, err := hir.ParseFunctionIdent(o.Entrypoint); err != nil {
			return errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "entrypoint")
		}
	}
	for _, e := range o.Emit {
		if e != OutputMasm && e != OutputMast {
			return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
				Value(e).
				Detail("unknown output type %q", e).
				Build()
		}
	}
	if o.PageSize != 0 && o.PageSize%wordBytes != 0 {
		return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Value(o.PageSize).
			Detail("page size %d is not word aligned", o.PageSize).
			Build()
	}
	return nil
}

// Emits reports whether t is among the requested outputs
func (o Options) Emits(t OutputType) bool { return slices.Contains(o.Emit, t) }

package assembler

import (
	"bytes"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/wippyai/miden-backend/errors"
	"github.com/wippyai/miden-backend/felt"
)

const (
	libraryMagic  = "MASL"
	programMagic  = "MASP"
	formatVersion = 1
)

type libraryFile struct {
	Magic   string        `msgpack:"magic"`
	Modules []string      `msgpack:"modules"`
	Exports []Export      `msgpack:"exports"`
	Nodes   []Node        `msgpack:"nodes"`
	Advice  []AdviceEntry `msgpack:"advice"`
	Version uint8         `msgpack:"version"`
	Kernel  bool          `msgpack:"kernel"`
}

type programFile struct {
	Kernel     *libraryFile  `msgpack:"kernel,omitempty"`
	Magic      string        `msgpack:"magic"`
	Libraries  []string      `msgpack:"libraries"`
	Nodes      []Node        `msgpack:"nodes"`
	Advice     []AdviceEntry `msgpack:"advice"`
	Entrypoint felt.Digest   `msgpack:"entrypoint"`
	Version    uint8         `msgpack:"version"`
}

// MarshalBinary encodes the library
func (l *Library) MarshalBinary() ([]byte, error) {
	return encode(l.file())
}

// MarshalBinary encodes the program
func (p *Program) MarshalBinary() ([]byte, error) {
	f := programFile{
		Magic:      programMagic,
		Version:    formatVersion,
		Libraries:  p.libraries,
		Nodes:      p.forest.Nodes(),
		Advice:     p.advice.Entries(),
		Entrypoint: p.entrypoint,
	}
	if p.kernel != nil {
		f.Kernel = p.kernel.file()
	}
	return encode(&f)
}

func (l *Library) file() *libraryFile {
	return &libraryFile{
		Magic:   libraryMagic,
		Version: formatVersion,
		Kernel:  l.kernel,
		Modules: l.modules,
		Exports: l.Exports(),
		Nodes:   l.forest.Nodes(),
		Advice:  l.advice.Entries(),
	}
}

func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := msgpack.NewEncoder(&buf).Encode(v); err != nil {
		return nil, errors.Wrap(errors.PhaseEmit, errors.KindIO, err, "encode artifact")
	}
	return buf.Bytes(), nil
}

// ReadLibrary decodes a library written by Library.MarshalBinary
func ReadLibrary(r io.Reader) (*Library, error) {
	var f libraryFile
	if err := msgpack.NewDecoder(r).Decode(&f); err != nil {
		return nil, errors.ParseFailed("library", err)
	}
	return f.library()
}

// ReadProgram decodes a program written by Program.MarshalBinary
func ReadProgram(r io.Reader) (*Program, error) {
	var f programFile
	if err := msgpack.NewDecoder(r).Decode(&f); err != nil {
		return nil, errors.ParseFailed("program", err)
	}
	if err := checkHeader(f.Magic, programMagic, f.Version); err != nil {
		return nil, err
	}
	forest, err := readForest(f.Nodes)
	if err != nil {
		return nil, err
	}
	if !forest.Contains(f.Entrypoint) {
		return nil, errors.InvalidData(errors.PhaseParse, []string{"entrypoint"}, "entrypoint is not in the forest")
	}
	advice, err := readAdvice(f.Advice)
	if err != nil {
		return nil, err
	}
	p := &Program{
		forest:     forest,
		advice:     advice,
		libraries:  f.Libraries,
		entrypoint: f.Entrypoint,
	}
	if f.Kernel != nil {
		if p.kernel, err = f.Kernel.library(); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (f *libraryFile) library() (*Library, error) {
	if err := checkHeader(f.Magic, libraryMagic, f.Version); err != nil {
		return nil, err
	}
	forest, err := readForest(f.Nodes)
	if err != nil {
		return nil, err
	}
	advice, err := readAdvice(f.Advice)
	if err != nil {
		return nil, err
	}
	lib := &Library{
		forest:  forest,
		advice:  advice,
		exports: make(map[QualifiedName]felt.Digest, len(f.Exports)),
		modules: f.Modules,
		kernel:  f.Kernel,
	}
	for _, e := range f.Exports {
		if !forest.Contains(e.Digest) {
			return nil, errors.InvalidData(errors.PhaseParse, []string{"exports", e.Name.String()}, "export is not in the forest")
		}
		lib.exports[e.Name] = e.Digest
	}
	return lib, nil
}

func checkHeader(magic, want string, version uint8) error {
	if magic != want {
		return errors.InvalidData(errors.PhaseParse, []string{"magic"}, "unexpected artifact type "+magic)
	}
	if version != formatVersion {
		return errors.New(errors.PhaseParse, errors.KindUnsupported).
			Value(version).
			Detail("unsupported format version %d", version).
			Build()
	}
	return nil
}

func readForest(nodes []Node) (*Forest, error) {
	f := NewForest()
	for _, n := range nodes {
		if got := hashBody(n.Body); got != n.Digest {
			return nil, errors.InvalidData(errors.PhaseParse, []string{"nodes", n.Digest.String()}, "node body does not match its digest")
		}
		f.Add(n)
	}
	return f, nil
}

func readAdvice(entries []AdviceEntry) (AdviceMap, error) {
	m := make(AdviceMap, len(entries))
	for _, e := range entries {
		if err := m.Insert(e.Key, e.Values); err != nil {
			return nil, err
		}
	}
	return m, nil
}

package compiler

import (
	"context"
	"encoding"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wippyai/miden-backend/errors"
)

// File extensions of emitted artifacts
const (
	ExtMasm    = ".masm"
	ExtProgram = ".masp"
	ExtLibrary = ".masl"
)

// Emit writes the outputs requested by the options into the output
// directory and returns the written paths in sorted order. Outputs are
// written concurrently.
func (s *Session) Emit(ctx context.Context, a *Artifact) ([]string, error) {
	dir := s.Options.OutputDir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(errors.PhaseEmit, errors.KindIO, err, "create "+dir)
	}

	var (
		mu      sync.Mutex
		written []string
	)
	g, gctx := errgroup.WithContext(ctx)
	emit := func(name string, write func(io.Writer) error) {
		path := filepath.Join(dir, name)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := writeFile(path, write); err != nil {
				return err
			}
			mu.Lock()
			written = append(written, path)
			mu.Unlock()
			Logger().Debug("emitted", zap.String("path", path))
			return nil
		})
	}

	if s.Options.Emits(OutputMasm) {
		emit(a.Name+ExtMasm, func(w io.Writer) error {
			var err error
			if a.MasmProgram != nil {
				_, err = a.MasmProgram.WriteTo(w)
			} else {
				_, err = a.MasmLibrary.WriteTo(w)
			}
			return err
		})
	}
	if s.Options.Emits(OutputMast) {
		var bin encoding.BinaryMarshaler = a.Library
		ext := ExtLibrary
		if a.Program != nil {
			bin, ext = a.Program, ExtProgram
		}
		emit(a.Name+ext, func(w io.Writer) error {
			data, err := bin.MarshalBinary()
			if err != nil {
				return err
			}
			_, err = w.Write(data)
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	sort.Strings(written)
	return written, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(errors.PhaseEmit, errors.KindIO, err, "create "+path)
	}
	if err := write(f); err != nil {
		f.Close()
		return errors.Wrap(errors.PhaseEmit, errors.KindIO, err, "write "+path)
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(errors.PhaseEmit, errors.KindIO, err, "close "+path)
	}
	return nil
}

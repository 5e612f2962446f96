package compiler

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/miden-backend/assembler"
	"github.com/wippyai/miden-backend/crossctx"
	"github.com/wippyai/miden-backend/errors"
	"github.com/wippyai/miden-backend/masm"
)

// Session holds the options and logger of one compilation
type Session struct {
	logger  *zap.Logger
	Options Options
}

// NewSession validates opts and installs a logger into the backend
// packages. Verbose sessions log at debug level in development format,
// others log warnings and errors only.
func NewSession(opts Options) (*Session, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	l, err := newLogger(opts.Verbose)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "build logger")
	}
	return NewSessionWithLogger(opts, l), nil
}

// NewSessionWithLogger is NewSession with a caller-supplied logger. opts are
// not validated.
func NewSessionWithLogger(opts Options, l *zap.Logger) *Session {
	SetLogger(l)
	crossctx.SetLogger(l.Named("crossctx"))
	masm.SetLogger(l.Named("masm"))
	assembler.SetLogger(l.Named("assembler"))
	return &Session{Options: opts, logger: l}
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

// Logger returns the session logger
func (s *Session) Logger() *zap.Logger { return s.logger }

// Close flushes buffered log entries
func (s *Session) Close() {
	_ = s.logger.Sync()
}

// LoadLibraries reads every library named in the options. Kernels are
// returned separately; at most one may be linked.
func (s *Session) LoadLibraries() (libs []*assembler.Library, kernel *assembler.Library, err error) {
	for _, path := range s.Options.LinkLibraries {
		lib, err := readLibrary(path)
		if err != nil {
			return nil, nil, err
		}
		if !lib.IsKernel() {
			libs = append(libs, lib)
			continue
		}
		if kernel != nil {
			return nil, nil, errors.Conflict(errors.PhaseLink, path, "a kernel is already linked")
		}
		kernel = lib
	}
	return libs, kernel, nil
}

func readLibrary(path string) (*assembler.Library, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseLink, errors.KindIO, err, "open "+path)
	}
	defer f.Close()
	lib, err := assembler.ReadLibrary(f)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseLink, errors.KindInvalidData, err, "read library "+path)
	}
	Logger().Debug("loaded library", zap.String("path", path), zap.Strings("modules", lib.ModulePaths()))
	return lib, nil
}

package emulator

import (
	"bytes"

	"github.com/wippyai/miden-backend/assembler"
	"github.com/wippyai/miden-backend/errors"
	"github.com/wippyai/miden-backend/felt"
	"github.com/wippyai/miden-backend/masm"
)

// Replay runs the startup code of p against p's own advice map
func Replay(p *masm.Program, testHarness bool, adviceStack ...felt.Felt) (*Machine, error) {
	return ReplayWith(p, masm.AssembleConfig{TestHarness: testHarness}, p.AdviceMap(), adviceStack...)
}

// ReplayWith runs the startup code of p against an externally supplied
// advice map
func ReplayWith(p *masm.Program, cfg masm.AssembleConfig, adviceMap assembler.AdviceMap, adviceStack ...felt.Felt) (*Machine, error) {
	main := p.StartupModule(cfg.TestHarness).Function(assembler.MainProcedure)
	m := New(adviceMap, adviceStack...)
	if err := m.Run(main.Body); err != nil {
		return m, err
	}
	return m, nil
}

// Verify replays p and checks that memory holds every rodata segment and
// that the heap was initialized at the program's heap base
func Verify(p *masm.Program) error {
	m, err := Replay(p, false)
	if err != nil {
		return err
	}
	if base, ok := m.HeapBase(); !ok || base != p.HeapBase() {
		return errors.New(errors.PhaseReplay, errors.KindInvalidData).
			Value(base).
			Detail("heap initialized at %d, want %d", base, p.HeapBase()).
			Build()
	}
	for _, r := range p.Rodatas() {
		got := m.ReadBytes(r.Start.Addr(), uint32(r.SizeInBytes()))
		if !bytes.Equal(got, r.Data) {
			return errors.New(errors.PhaseReplay, errors.KindInvalidData).
				Symbol(r.Digest.String()).
				Detail("memory at %#x does not match segment", r.Start.Addr()).
				Build()
		}
	}
	return nil
}

package assembler

import (
	"slices"
	"sort"
	"strings"

	"github.com/wippyai/miden-backend/errors"
	"github.com/wippyai/miden-backend/felt"
)

// AdviceMap maps digests to the element data they commit to
type AdviceMap map[felt.Digest][]felt.Felt

// AdviceEntry is one key/value pair of an advice map
type AdviceEntry struct {
	Values []felt.Felt `msgpack:"values"`
	Key    felt.Digest `msgpack:"key"`
}

// Insert adds an entry. Inserting a different value under an existing key is
// a conflict.
func (m AdviceMap) Insert(key felt.Digest, values []felt.Felt) error {
	if prev, ok := m[key]; ok {
		if !slices.Equal(prev, values) {
			return errors.Conflict(errors.PhaseAssemble, key.String(), "advice map already holds different data for this key")
		}
		return nil
	}
	m[key] = values
	return nil
}

// Merge inserts every entry of other into m
func (m AdviceMap) Merge(other AdviceMap) error {
	for _, e := range other.Entries() {
		if err := m.Insert(e.Key, e.Values); err != nil {
			return err
		}
	}
	return nil
}

// Entries returns the entries ordered by key
func (m AdviceMap) Entries() []AdviceEntry {
	out := make([]AdviceEntry, 0, len(m))
	for k, v := range m {
		out = append(out, AdviceEntry{Key: k, Values: v})
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.Compare(out[i].Key.String(), out[j].Key.String()) < 0
	})
	return out
}

// Verify checks that every key is the hash of its values
func (m AdviceMap) Verify() error {
	for _, e := range m.Entries() {
		if got := felt.HashElements(e.Values); got != e.Key {
			return errors.New(errors.PhaseAssemble, errors.KindInvalidData).
				Symbol(e.Key.String()).
				Detail("advice data hashes to %s", got).
				Build()
		}
	}
	return nil
}

func (m AdviceMap) clone() AdviceMap {
	out := make(AdviceMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

package assembler

import (
	"bytes"
	"io"

	"github.com/wippyai/miden-backend/assembler/internal/leb128"
	"github.com/wippyai/miden-backend/errors"
	"github.com/wippyai/miden-backend/felt"
)

// Node is one assembled procedure. Body holds the encoded instructions with
// every callee replaced by its digest.
type Node struct {
	Name   string      `msgpack:"name,omitempty"`
	Body   []byte      `msgpack:"body"`
	Digest felt.Digest `msgpack:"digest"`
}

// Forest is a deduplicated set of nodes, in insertion order
type Forest struct {
	index map[felt.Digest]int
	nodes []Node
}

// NewForest returns an empty forest
func NewForest() *Forest {
	return &Forest{index: make(map[felt.Digest]int)}
}

// Add inserts n unless a node with the same digest exists, and returns the
// index of the stored node
func (f *Forest) Add(n Node) int {
	if i, ok := f.index[n.Digest]; ok {
		return i
	}
	f.index[n.Digest] = len(f.nodes)
	f.nodes = append(f.nodes, n)
	return len(f.nodes) - 1
}

// Get returns the node with digest d
func (f *Forest) Get(d felt.Digest) (Node, bool) {
	i, ok := f.index[d]
	if !ok {
		return Node{}, false
	}
	return f.nodes[i], true
}

// Contains reports whether a node with digest d exists
func (f *Forest) Contains(d felt.Digest) bool {
	_, ok := f.index[d]
	return ok
}

// Nodes returns the nodes in insertion order
func (f *Forest) Nodes() []Node { return f.nodes }

// Len returns the number of nodes
func (f *Forest) Len() int { return len(f.nodes) }

// Body instruction flags
const (
	flagNone   byte = 0
	flagCallee byte = 1
)

// encodeBody serializes instructions for hashing. callees holds the digest
// of every invocation, in order.
func encodeBody(body []Instruction, callees []felt.Digest) []byte {
	var buf bytes.Buffer
	leb128.WriteU64(&buf, uint64(len(body)))
	next := 0
	for _, inst := range body {
		leb128.WriteU64(&buf, uint64(len(inst.Op)))
		buf.WriteString(inst.Op)
		leb128.WriteU64(&buf, uint64(len(inst.Imms)))
		for _, imm := range inst.Imms {
			leb128.WriteU64(&buf, imm)
		}
		if inst.IsInvoke() {
			buf.WriteByte(flagCallee)
			d := callees[next]
			buf.Write(d[:])
			next++
		} else {
			buf.WriteByte(flagNone)
		}
	}
	return buf.Bytes()
}

// hashBody computes the digest of an encoded body
func hashBody(body []byte) felt.Digest {
	return felt.HashElements(felt.PadToWords(felt.BytesToElements(body)))
}

// DecodedInstruction is an instruction read back from a node body
type DecodedInstruction struct {
	Callee *felt.Digest
	Op     string
	Imms   []uint64
}

// Instructions decodes the node body
func (n Node) Instructions() ([]DecodedInstruction, error) {
	r := bytes.NewReader(n.Body)
	count, err := leb128.ReadU64(r)
	if err != nil {
		return nil, bodyError(n, err)
	}
	if count > uint64(len(n.Body)) {
		return nil, bodyError(n, io.ErrUnexpectedEOF)
	}
	out := make([]DecodedInstruction, 0, count)
	for i := uint64(0); i < count; i++ {
		var inst DecodedInstruction
		opLen, err := leb128.ReadU64(r)
		if err != nil {
			return nil, bodyError(n, err)
		}
		if opLen > uint64(r.Len()) {
			return nil, bodyError(n, io.ErrUnexpectedEOF)
		}
		op := make([]byte, opLen)
		if _, err := io.ReadFull(r, op); err != nil {
			return nil, bodyError(n, err)
		}
		inst.Op = string(op)
		nimm, err := leb128.ReadU64(r)
		if err != nil {
			return nil, bodyError(n, err)
		}
		if nimm > uint64(r.Len()) {
			return nil, bodyError(n, io.ErrUnexpectedEOF)
		}
		for j := uint64(0); j < nimm; j++ {
			imm, err := leb128.ReadU64(r)
			if err != nil {
				return nil, bodyError(n, err)
			}
			inst.Imms = append(inst.Imms, imm)
		}
		flag, err := r.ReadByte()
		if err != nil {
			return nil, bodyError(n, err)
		}
		switch flag {
		case flagNone:
		case flagCallee:
			var d felt.Digest
			if _, err := io.ReadFull(r, d[:]); err != nil {
				return nil, bodyError(n, err)
			}
			inst.Callee = &d
		default:
			return nil, errors.InvalidData(errors.PhaseParse, []string{n.Digest.String()}, "unknown instruction flag")
		}
		out = append(out, inst)
	}
	return out, nil
}

func bodyError(n Node, err error) error {
	return errors.New(errors.PhaseParse, errors.KindInvalidData).
		Path(n.Digest.String()).
		Detail("malformed procedure body").
		Cause(err).
		Build()
}

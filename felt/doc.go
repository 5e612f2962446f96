// Package felt implements the VM's scalar type: elements of the Goldilocks
// prime field p = 2^64 - 2^32 + 1, plus words of four elements and 256-bit
// digests rendered as words.
//
// The byte/element codec used by read-only data commitments lives here so
// the encoder and every decoder agree on one convention: bytes are grouped
// into 4-byte little-endian chunks, one chunk per element.
package felt

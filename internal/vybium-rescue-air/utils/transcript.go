// Package utils provides the Fiat-Shamir transcript used to derive the
// verifier's out-of-domain evaluation point from the prover's commitments.
package utils

import (
	"encoding/binary"

	"golang.org/x/crypto/sha3"

	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"
)

// Transcript is a Fiat-Shamir transcript. The prover and verifier absorb the
// same messages in the same order, so both derive the same challenge points
// without interaction.
type Transcript struct {
	state [32]byte
}

// NewTranscript creates a transcript domain-separated by the given label.
func NewTranscript(label string) *Transcript {
	t := &Transcript{}
	t.state = sha3.Sum256([]byte(label))
	return t
}

// Absorb mixes a prover message into the transcript state.
func (t *Transcript) Absorb(data []byte) {
	h := sha3.New256()
	h.Write(t.state[:])
	h.Write(data)
	h.Sum(t.state[:0])
}

// AbsorbElements mixes field elements into the transcript state.
func (t *Transcript) AbsorbElements(elements []field.Element) {
	buf := make([]byte, 8*len(elements))
	for i, e := range elements {
		binary.LittleEndian.PutUint64(buf[8*i:], e.Value())
	}
	t.Absorb(buf)
}

// SampleElement draws a canonical field element from the transcript. The
// draw rejection-samples 64-bit chunks of the evolving state so the result is
// uniform in [0, p).
func (t *Transcript) SampleElement() field.Element {
	for {
		t.state = sha3.Sum256(t.state[:])
		for off := 0; off+8 <= len(t.state); off += 8 {
			v := binary.LittleEndian.Uint64(t.state[off:])
			if v < field.P {
				return field.New(v)
			}
		}
	}
}

// State returns a copy of the current transcript state.
func (t *Transcript) State() []byte {
	out := make([]byte, len(t.state))
	copy(out, t.state[:])
	return out
}

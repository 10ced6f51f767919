// Package rescue implements the Rescue permutation primitives consumed by the
// hash-round AIR evaluator: the S-box layers, the MDS matrix and its inverse,
// and the periodic round constants together with their polynomial form.
//
// One permutation spans CycleLength rounds; the VM applies one round per trace
// step, so the round constants are periodic functions of the step index with
// period CycleLength.
package rescue

import (
	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"
)

const (
	// StateWidth is the number of registers owned by the hash state. The hash
	// state occupies the first StateWidth registers of a trace row.
	StateWidth = 6

	// CycleLength is the number of rounds in one permutation, and therefore the
	// period of the round-constant columns in the trace domain. Must be a power
	// of two so the cycle domain has a root of unity.
	CycleLength = 16

	// Alpha is the S-box exponent. x -> x^7 is a permutation of the Goldilocks
	// field because gcd(7, p-1) = 1.
	Alpha = 7

	// InvAlpha is the inverse S-box exponent: Alpha * InvAlpha = 1 mod (p-1).
	InvAlpha = 10540996611094048183
)

// NumConstants is the number of round-constant columns: StateWidth constants
// injected before the forward half of a round and StateWidth injected before
// the inverse half.
const NumConstants = 2 * StateWidth

// pow raises base to a uint64 power by square-and-multiply.
func pow(base field.Element, exp uint64) field.Element {
	result := field.One
	for exp > 0 {
		if exp&1 == 1 {
			result = result.Mul(base)
		}
		base = base.Mul(base)
		exp >>= 1
	}
	return result
}

// ApplySBox raises every state element to the power Alpha in place.
func ApplySBox(state []field.Element) {
	for i := range state {
		state[i] = pow(state[i], Alpha)
	}
}

// ApplyInvSBox raises every state element to the power InvAlpha in place.
// This inverts ApplySBox but has a very high algebraic degree; constraint
// evaluation never uses it, only round application does.
func ApplyInvSBox(state []field.Element) {
	for i := range state {
		state[i] = pow(state[i], InvAlpha)
	}
}

// ApplyMDS multiplies the state by the MDS matrix in place.
func ApplyMDS(state []field.Element) {
	applyMatrix(mdsMatrix, state)
}

// ApplyInvMDS multiplies the state by the inverse MDS matrix in place.
func ApplyInvMDS(state []field.Element) {
	applyMatrix(invMdsMatrix, state)
}

func applyMatrix(matrix [StateWidth][StateWidth]field.Element, state []field.Element) {
	var result [StateWidth]field.Element
	for i := 0; i < StateWidth; i++ {
		result[i] = field.Zero
		for j := 0; j < StateWidth; j++ {
			result[i] = result[i].Add(matrix[i][j].Mul(state[j]))
		}
	}
	copy(state, result[:])
}

// AddRoundConstants adds constants element-wise into the state in place.
func AddRoundConstants(state, constants []field.Element) {
	for i := range state {
		state[i] = state[i].Add(constants[i])
	}
}

// ApplyRound applies one full round of the permutation to the state in place.
// A round injects the forward constants, applies the S-box and the MDS matrix,
// then injects the backward constants, applies the inverse S-box and the MDS
// matrix again. The step index selects the round constants modulo CycleLength.
func ApplyRound(state []field.Element, step int) {
	ark := RoundConstants(step)

	AddRoundConstants(state, ark[:StateWidth])
	ApplySBox(state)
	ApplyMDS(state)

	AddRoundConstants(state, ark[StateWidth:])
	ApplyInvSBox(state)
	ApplyMDS(state)
}

// RoundConstants returns the NumConstants round constants for the given step.
// The first StateWidth entries are the forward constants, the remaining
// StateWidth the backward constants. The returned slice is shared and must not
// be modified.
func RoundConstants(step int) []field.Element {
	return roundConstants[step%CycleLength][:]
}

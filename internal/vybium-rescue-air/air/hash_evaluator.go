// Package air evaluates the algebraic constraints certifying that the Rescue
// hash instruction executed correctly on the VM's execution trace.
//
// Each evaluator in this package contributes the constraint values of a single
// instruction to a shared accumulator; the composition step combines the
// contributions of all instructions into the composition polynomial.
package air

import (
	"fmt"

	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"
	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/polynomial"

	"github.com/vybium/vybium-rescue-air/internal/vybium-rescue-air/rescue"
)

// NumAuxConstraints is the number of leading accumulator slots reserved for
// constraints not owned by any single instruction (stack-depth bookkeeping).
// Every instruction evaluator writes at this offset.
const NumAuxConstraints = 2

// HashEvaluator evaluates the transition constraints of one Rescue round.
//
// The evaluator is immutable after construction and holds no locks: concurrent
// invocations are safe as long as each writes to a disjoint region of the
// shared accumulator, which is the caller's discipline to enforce.
type HashEvaluator struct {
	traceLength int
	cycleLength int

	// arkValues stores the round constants row-major: one row of
	// rescue.NumConstants values per step of the extended cycle.
	arkValues [][]field.Element

	// arkPolys holds the round-constant columns in coefficient form, one
	// polynomial per constant, for out-of-domain evaluation.
	arkPolys []*polynomial.Polynomial
}

// NewHashEvaluator creates an evaluator for a trace of the given length
// extended by the given blow-up factor. The trace length must be a positive
// multiple of the permutation cycle length.
func NewHashEvaluator(traceLength, extensionFactor int) (*HashEvaluator, error) {
	if traceLength <= 0 || traceLength%rescue.CycleLength != 0 {
		return nil, fmt.Errorf("trace length must be a positive multiple of %d, got %d",
			rescue.CycleLength, traceLength)
	}
	if extensionFactor < 1 {
		return nil, fmt.Errorf("extension factor must be at least 1, got %d", extensionFactor)
	}

	arkPolys, arkEvaluations, err := rescue.ExtendedConstants(extensionFactor)
	if err != nil {
		return nil, fmt.Errorf("failed to extend round constants: %w", err)
	}

	cycleLength := rescue.CycleLength * extensionFactor
	if len(arkPolys) != rescue.NumConstants || len(arkEvaluations) != rescue.NumConstants {
		return nil, fmt.Errorf("expected %d round constant columns, got %d polynomials and %d evaluations",
			rescue.NumConstants, len(arkPolys), len(arkEvaluations))
	}
	for j, column := range arkEvaluations {
		if len(column) != cycleLength {
			return nil, fmt.Errorf("round constant column %d has %d evaluations, expected %d",
				j, len(column), cycleLength)
		}
	}

	// Transpose the column-major evaluations so that all constants needed for
	// one step are a single contiguous lookup on the hot path.
	arkValues := make([][]field.Element, cycleLength)
	for i := 0; i < cycleLength; i++ {
		arkValues[i] = make([]field.Element, rescue.NumConstants)
		for j := 0; j < rescue.NumConstants; j++ {
			arkValues[i][j] = arkEvaluations[j][i]
		}
	}

	return &HashEvaluator{
		traceLength: traceLength,
		cycleLength: cycleLength,
		arkValues:   arkValues,
		arkPolys:    arkPolys,
	}, nil
}

// Evaluate evaluates the hash constraints at the given step of the extended
// domain and adds the resulting values into result. This is the hot path: the
// round constants come from a precomputed table, so the cost is O(StateWidth)
// field operations.
func (e *HashEvaluator) Evaluate(current, next []field.Element, step int, opFlag field.Element, result []field.Element) {
	e.checkRows(current, next, result)

	ark := e.arkValues[step%e.cycleLength]

	e.evalHash(current, next, ark, opFlag, result[NumAuxConstraints:])
	e.evalRest(current, next, opFlag, result[NumAuxConstraints:])
}

// EvaluateAt evaluates the hash constraints at an arbitrary field point x and
// adds the resulting values into result. Unlike Evaluate this works for
// out-of-domain points, but it is significantly slower: the round constants
// are recovered by raising x to the number of constant cycles in the trace and
// evaluating each constant polynomial at the reduced point.
func (e *HashEvaluator) EvaluateAt(current, next []field.Element, x field.Element, opFlag field.Element, result []field.Element) {
	e.checkRows(current, next, result)

	numCycles := uint64(e.traceLength / rescue.CycleLength)
	xp := pow(x, numCycles)

	ark := make([]field.Element, rescue.NumConstants)
	for i, poly := range e.arkPolys {
		ark[i] = poly.Evaluate(xp)
	}

	e.evalHash(current, next, ark, opFlag, result[NumAuxConstraints:])
	e.evalRest(current, next, opFlag, result[NumAuxConstraints:])
}

// evalHash certifies one round of the Rescue permutation on the hash state,
// which occupies the first rescue.StateWidth registers of the row.
//
// The forward branch recomputes the first half of the round from the current
// row. The backward branch reconstructs the same intermediate value from the
// next row by undoing the round's linear step and reapplying the forward
// S-box, never its inverse, so the constraint degree stays bounded by Alpha.
func (e *HashEvaluator) evalHash(current, next []field.Element, ark []field.Element, opFlag field.Element, result []field.Element) {
	var part1 [rescue.StateWidth]field.Element
	copy(part1[:], current[:rescue.StateWidth])
	var part2 [rescue.StateWidth]field.Element
	copy(part2[:], next[:rescue.StateWidth])

	rescue.AddRoundConstants(part1[:], ark[:rescue.StateWidth])
	rescue.ApplySBox(part1[:])
	rescue.ApplyMDS(part1[:])

	rescue.ApplyInvMDS(part2[:])
	rescue.ApplySBox(part2[:])
	for i := 0; i < rescue.StateWidth; i++ {
		part2[i] = part2[i].Sub(ark[rescue.StateWidth+i])
	}

	for i := 0; i < min(len(result), rescue.StateWidth); i++ {
		evaluation := part2[i].Sub(part1[i])
		result[i] = result[i].Add(evaluation.Mul(opFlag))
	}
}

// evalRest enforces that registers outside the hash state are unchanged by a
// hash step, so the instruction cannot corrupt state owned by other
// instructions sharing the row.
func (e *HashEvaluator) evalRest(current, next []field.Element, opFlag field.Element, result []field.Element) {
	for i := rescue.StateWidth; i < len(result); i++ {
		evaluation := next[i].Sub(current[i])
		result[i] = result[i].Add(evaluation.Mul(opFlag))
	}
}

// checkRows validates the structural preconditions of a query. Violations are
// integration errors, not runtime conditions: truncating or padding silently
// could report a broken transition as valid, so they fail loudly instead.
func (e *HashEvaluator) checkRows(current, next, result []field.Element) {
	if len(current) != len(next) {
		panic(fmt.Sprintf("air: row length mismatch: current has %d registers, next has %d",
			len(current), len(next)))
	}
	if len(current) < rescue.StateWidth {
		panic(fmt.Sprintf("air: row has %d registers, need at least %d for the hash state",
			len(current), rescue.StateWidth))
	}
	if len(result) < NumAuxConstraints+rescue.StateWidth {
		panic(fmt.Sprintf("air: accumulator has %d slots, need at least %d",
			len(result), NumAuxConstraints+rescue.StateWidth))
	}
	if len(result)-NumAuxConstraints > len(current) {
		panic(fmt.Sprintf("air: accumulator covers %d registers but rows only have %d",
			len(result)-NumAuxConstraints, len(current)))
	}
}

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

package air

import (
	"fmt"
	"sync"

	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"
)

// StepEvaluator is implemented by per-instruction constraint evaluators. Both
// methods additively contribute the instruction's constraint values into the
// caller-owned accumulator without overwriting other contributions.
//
// Evaluate is the in-domain hot path, addressed by step index; EvaluateAt is
// the out-of-domain path, addressed by an arbitrary field point.
type StepEvaluator interface {
	Evaluate(current, next []field.Element, step int, opFlag field.Element, result []field.Element)
	EvaluateAt(current, next []field.Element, x field.Element, opFlag field.Element, result []field.Element)
}

// instructionBinding ties an evaluator to the selector column gating it.
type instructionBinding struct {
	name      string
	evaluator StepEvaluator

	// flags holds the instruction's selector value per extended-domain step.
	flags []field.Element
}

// ConstraintSet accumulates the constraint contributions of several
// instruction evaluators over a shared accumulator, one accumulator row per
// evaluated step.
type ConstraintSet struct {
	numConstraints int
	domainLength   int
	instructions   []instructionBinding
}

// NewConstraintSet creates a constraint set producing accumulators of
// numConstraints slots over an evaluation domain of domainLength steps.
func NewConstraintSet(numConstraints, domainLength int) (*ConstraintSet, error) {
	if numConstraints <= NumAuxConstraints {
		return nil, fmt.Errorf("need more than %d constraint slots, got %d",
			NumAuxConstraints, numConstraints)
	}
	if domainLength <= 0 {
		return nil, fmt.Errorf("domain length must be positive, got %d", domainLength)
	}
	return &ConstraintSet{
		numConstraints: numConstraints,
		domainLength:   domainLength,
	}, nil
}

// Add registers an instruction evaluator together with its selector column.
// The selector column must cover the whole evaluation domain.
func (cs *ConstraintSet) Add(name string, evaluator StepEvaluator, flags []field.Element) error {
	if evaluator == nil {
		return fmt.Errorf("evaluator %q cannot be nil", name)
	}
	if len(flags) != cs.domainLength {
		return fmt.Errorf("selector column for %q has %d steps, expected %d",
			name, len(flags), cs.domainLength)
	}
	cs.instructions = append(cs.instructions, instructionBinding{
		name:      name,
		evaluator: evaluator,
		flags:     flags,
	})
	return nil
}

// NumConstraints returns the accumulator width of this set.
func (cs *ConstraintSet) NumConstraints() int {
	return cs.numConstraints
}

// EvaluateDomain evaluates all registered instructions over every step of the
// extended domain and returns one accumulator row per step.
//
// rows is the extended trace, one register row per step; stride is the number
// of extended steps corresponding to one trace step, so the "next" row of step
// s is rows[(s+stride) % domain]. Workers own disjoint step ranges, so each
// accumulator row is written by exactly one goroutine and the evaluators'
// immutability makes the sweep race-free.
func (cs *ConstraintSet) EvaluateDomain(rows [][]field.Element, stride, numWorkers int) ([][]field.Element, error) {
	if len(rows) != cs.domainLength {
		return nil, fmt.Errorf("trace has %d steps, expected %d", len(rows), cs.domainLength)
	}
	if stride <= 0 || cs.domainLength%stride != 0 {
		return nil, fmt.Errorf("stride %d must be a positive divisor of the domain length %d",
			stride, cs.domainLength)
	}
	if numWorkers < 1 {
		numWorkers = 1
	}

	result := make([][]field.Element, cs.domainLength)
	for i := range result {
		result[i] = make([]field.Element, cs.numConstraints)
		for j := range result[i] {
			result[i][j] = field.Zero
		}
	}

	chunk := (cs.domainLength + numWorkers - 1) / numWorkers
	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		start := w * chunk
		if start >= cs.domainLength {
			break
		}
		end := min(start+chunk, cs.domainLength)

		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for step := start; step < end; step++ {
				current := rows[step]
				next := rows[(step+stride)%cs.domainLength]
				for _, inst := range cs.instructions {
					inst.evaluator.Evaluate(current, next, step, inst.flags[step], result[step])
				}
			}
		}(start, end)
	}
	wg.Wait()

	return result, nil
}

// EvaluateAt evaluates all registered instructions at a single out-of-domain
// point. current and next are the register rows already evaluated at the
// point, and flags holds one selector value per registered instruction, in
// registration order.
func (cs *ConstraintSet) EvaluateAt(current, next []field.Element, x field.Element, flags []field.Element) ([]field.Element, error) {
	if len(flags) != len(cs.instructions) {
		return nil, fmt.Errorf("got %d selector values for %d instructions",
			len(flags), len(cs.instructions))
	}

	result := make([]field.Element, cs.numConstraints)
	for i := range result {
		result[i] = field.Zero
	}
	for i, inst := range cs.instructions {
		inst.evaluator.EvaluateAt(current, next, x, flags[i], result)
	}
	return result, nil
}

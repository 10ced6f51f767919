package vybiumrescueair

import (
	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"

	"github.com/vybium/vybium-rescue-air/internal/vybium-rescue-air/air"
	"github.com/vybium/vybium-rescue-air/internal/vybium-rescue-air/rescue"
)

// Element is the public type for field elements used throughout the evaluator
type Element = field.Element

const (
	// StateWidth is the number of registers owned by the hash state
	StateWidth = rescue.StateWidth

	// CycleLength is the round-constant period in trace steps
	CycleLength = rescue.CycleLength

	// NumAuxConstraints is the accumulator offset at which instruction
	// evaluators write their contributions
	NumAuxConstraints = air.NumAuxConstraints
)

// Evaluator is the public interface of the hash-round constraint evaluator
type Evaluator interface {
	// Evaluate adds the hash constraint values for an in-domain step into result
	Evaluate(current, next []Element, step int, opFlag Element, result []Element)

	// EvaluateAt adds the hash constraint values at an arbitrary field point
	// into result
	EvaluateAt(current, next []Element, x Element, opFlag Element, result []Element)
}

// NewHashEvaluator creates a hash-round constraint evaluator for a trace of
// the given length, extended by the given blow-up factor.
func NewHashEvaluator(traceLength, extensionFactor int) (Evaluator, error) {
	if traceLength <= 0 || traceLength%rescue.CycleLength != 0 {
		return nil, NewError(ErrInvalidTraceLength,
			"trace length must be a positive multiple of the cycle length")
	}
	if extensionFactor < 1 {
		return nil, NewError(ErrInvalidExtensionFactor,
			"extension factor must be at least 1")
	}

	evaluator, err := air.NewHashEvaluator(traceLength, extensionFactor)
	if err != nil {
		return nil, WrapError(ErrConstantTable, "failed to construct evaluator", err)
	}
	return evaluator, nil
}

// Package vybiumrescueair provides the algebraic constraint evaluator for the
// Rescue hash instruction of the Vybium STARKs VM.
//
// The evaluator converts "the hash instruction executed correctly at this
// step" into low-degree polynomial equalities that vanish exactly when the
// witnessed transition is a genuine round of the Rescue permutation. Because
// the forward S-box is applied on both branches of the round check, the
// constraint degree stays bounded by the S-box exponent rather than by the
// much higher degree of its inverse.
//
// # Quick Start
//
// Construct the evaluator once per proving session and query it per step:
//
//	evaluator, err := vybiumrescueair.NewHashEvaluator(traceLength, extensionFactor)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// hot path, once per extended-domain step
//	evaluator.Evaluate(current, next, step, opFlag, accumulator)
//
//	// out-of-domain path, at a verifier-chosen point
//	evaluator.EvaluateAt(currentAtX, nextAtX, x, opFlag, accumulator)
//
// The evaluator is immutable after construction and safe for concurrent use,
// provided concurrent calls write to disjoint accumulator regions.
package vybiumrescueair

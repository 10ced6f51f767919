package air

import (
	"testing"

	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"

	"github.com/vybium/vybium-rescue-air/internal/vybium-rescue-air/rescue"
)

// numRegisters is the test row width: the hash state plus two user registers
const numRegisters = rescue.StateWidth + 2

// accumulatorSize covers the aux prefix plus one slot per register
const accumulatorSize = NumAuxConstraints + numRegisters

func makeRow(seed uint64) []field.Element {
	row := make([]field.Element, numRegisters)
	for i := range row {
		row[i] = field.New(seed + uint64(i)*31 + 5)
	}
	return row
}

// makeTransition builds a genuine hash-round transition at the given step:
// the hash state advances by one round, user registers are untouched.
func makeTransition(seed uint64, step int) (current, next []field.Element) {
	current = makeRow(seed)
	next = make([]field.Element, numRegisters)
	copy(next, current)
	rescue.ApplyRound(next[:rescue.StateWidth], step)
	return current, next
}

func makeAccumulator() []field.Element {
	acc := make([]field.Element, accumulatorSize)
	for i := range acc {
		acc[i] = field.Zero
	}
	return acc
}

// expectedContributions recomputes the constraint values the evaluator should
// add for the given rows, using the collaborator primitives directly.
func expectedContributions(current, next []field.Element, step int, opFlag field.Element) []field.Element {
	ark := rescue.RoundConstants(step)

	forward := make([]field.Element, rescue.StateWidth)
	copy(forward, current[:rescue.StateWidth])
	rescue.AddRoundConstants(forward, ark[:rescue.StateWidth])
	rescue.ApplySBox(forward)
	rescue.ApplyMDS(forward)

	backward := make([]field.Element, rescue.StateWidth)
	copy(backward, next[:rescue.StateWidth])
	rescue.ApplyInvMDS(backward)
	rescue.ApplySBox(backward)

	expected := make([]field.Element, numRegisters)
	for i := 0; i < rescue.StateWidth; i++ {
		backward[i] = backward[i].Sub(ark[rescue.StateWidth+i])
		expected[i] = backward[i].Sub(forward[i]).Mul(opFlag)
	}
	for i := rescue.StateWidth; i < numRegisters; i++ {
		expected[i] = next[i].Sub(current[i]).Mul(opFlag)
	}
	return expected
}

func TestNewHashEvaluator(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		evaluator, err := NewHashEvaluator(2*rescue.CycleLength, 4)
		if err != nil {
			t.Fatalf("NewHashEvaluator failed: %v", err)
		}
		if len(evaluator.arkValues) != 4*rescue.CycleLength {
			t.Errorf("constant table has %d rows, want %d",
				len(evaluator.arkValues), 4*rescue.CycleLength)
		}
		for i, row := range evaluator.arkValues {
			if len(row) != rescue.NumConstants {
				t.Fatalf("constant row %d has %d entries, want %d",
					i, len(row), rescue.NumConstants)
			}
		}
	})

	t.Run("RejectsBadTraceLength", func(t *testing.T) {
		for _, length := range []int{0, -rescue.CycleLength, rescue.CycleLength + 1} {
			if _, err := NewHashEvaluator(length, 1); err == nil {
				t.Errorf("expected error for trace length %d", length)
			}
		}
	})

	t.Run("RejectsBadExtensionFactor", func(t *testing.T) {
		for _, factor := range []int{0, -2, 3} {
			if _, err := NewHashEvaluator(2*rescue.CycleLength, factor); err == nil {
				t.Errorf("expected error for extension factor %d", factor)
			}
		}
	})
}

func TestEvaluateGenuineTransition(t *testing.T) {
	evaluator, err := NewHashEvaluator(2*rescue.CycleLength, 1)
	if err != nil {
		t.Fatalf("NewHashEvaluator failed: %v", err)
	}

	for _, step := range []int{0, 5, rescue.CycleLength - 1, rescue.CycleLength + 3} {
		current, next := makeTransition(100, step)
		acc := makeAccumulator()

		evaluator.Evaluate(current, next, step, field.One, acc)

		for i, v := range acc {
			if !v.IsZero() {
				t.Errorf("step %d: accumulator slot %d is nonzero for a genuine transition: %v",
					step, i, v)
			}
		}
	}
}

func TestEvaluatePerturbedHashState(t *testing.T) {
	evaluator, err := NewHashEvaluator(2*rescue.CycleLength, 1)
	if err != nil {
		t.Fatalf("NewHashEvaluator failed: %v", err)
	}

	const step = 5
	const lane = 2
	current, next := makeTransition(100, step)
	next[lane] = next[lane].Add(field.One)

	acc := makeAccumulator()
	evaluator.Evaluate(current, next, step, field.One, acc)

	if acc[NumAuxConstraints+lane].IsZero() {
		t.Errorf("perturbing next[%d] left its constraint satisfied", lane)
	}

	// Every contribution must match the recomputed branch difference
	expected := expectedContributions(current, next, step, field.One)
	for i := 0; i < numRegisters; i++ {
		if !acc[NumAuxConstraints+i].Equal(expected[i]) {
			t.Errorf("register %d: contribution %v, recomputed %v",
				i, acc[NumAuxConstraints+i], expected[i])
		}
	}

	// User registers were untouched, so their sub-identities still hold
	for i := rescue.StateWidth; i < numRegisters; i++ {
		if !acc[NumAuxConstraints+i].IsZero() {
			t.Errorf("user register %d picked up a hash-state perturbation", i)
		}
	}
}

func TestEvaluateGatedByFlag(t *testing.T) {
	evaluator, err := NewHashEvaluator(2*rescue.CycleLength, 1)
	if err != nil {
		t.Fatalf("NewHashEvaluator failed: %v", err)
	}

	// Rows that satisfy nothing: unrelated values everywhere
	current := makeRow(41)
	next := makeRow(977)

	acc := make([]field.Element, accumulatorSize)
	for i := range acc {
		acc[i] = field.New(uint64(1000 + i))
	}
	before := make([]field.Element, accumulatorSize)
	copy(before, acc)

	evaluator.Evaluate(current, next, 3, field.Zero, acc)

	for i := range acc {
		if !acc[i].Equal(before[i]) {
			t.Errorf("slot %d changed with flag 0: %v -> %v", i, before[i], acc[i])
		}
	}
}

func TestFastAndSlowPathsAgree(t *testing.T) {
	const traceLength = 2 * rescue.CycleLength
	const extensionFactor = 2
	evaluator, err := NewHashEvaluator(traceLength, extensionFactor)
	if err != nil {
		t.Fatalf("NewHashEvaluator failed: %v", err)
	}

	domainSize := traceLength * extensionFactor
	omega := field.PrimitiveRootOfUnity(uint64(domainSize))

	current := makeRow(71)
	next := makeRow(420)

	for _, step := range []int{0, 1, 7, 33, domainSize - 1} {
		fast := makeAccumulator()
		evaluator.Evaluate(current, next, step, field.One, fast)

		x := pow(omega, uint64(step))
		slow := makeAccumulator()
		evaluator.EvaluateAt(current, next, x, field.One, slow)

		for i := range fast {
			if !fast[i].Equal(slow[i]) {
				t.Errorf("step %d slot %d: fast path %v, slow path %v", step, i, fast[i], slow[i])
			}
		}
	}
}

func TestConstantRowPeriodicity(t *testing.T) {
	const extensionFactor = 2
	evaluator, err := NewHashEvaluator(4*rescue.CycleLength, extensionFactor)
	if err != nil {
		t.Fatalf("NewHashEvaluator failed: %v", err)
	}

	cycle := rescue.CycleLength * extensionFactor
	current := makeRow(13)
	next := makeRow(517)

	for step := 0; step < cycle; step++ {
		first := makeAccumulator()
		evaluator.Evaluate(current, next, step, field.One, first)

		second := makeAccumulator()
		evaluator.Evaluate(current, next, step+cycle, field.One, second)

		for i := range first {
			if !first[i].Equal(second[i]) {
				t.Fatalf("slot %d differs between steps %d and %d", i, step, step+cycle)
			}
		}
	}
}

func TestIdentityRegion(t *testing.T) {
	evaluator, err := NewHashEvaluator(2*rescue.CycleLength, 1)
	if err != nil {
		t.Fatalf("NewHashEvaluator failed: %v", err)
	}

	t.Run("ZeroIffUnchanged", func(t *testing.T) {
		current, next := makeTransition(55, 2)

		// Change one user register
		const lane = rescue.StateWidth + 1
		next[lane] = next[lane].Add(field.New(9))

		acc := makeAccumulator()
		evaluator.Evaluate(current, next, 2, field.One, acc)

		want := next[lane].Sub(current[lane])
		if !acc[NumAuxConstraints+lane].Equal(want) {
			t.Errorf("changed register: contribution %v, want %v",
				acc[NumAuxConstraints+lane], want)
		}
		for i := rescue.StateWidth; i < numRegisters; i++ {
			if i == lane {
				continue
			}
			if !acc[NumAuxConstraints+i].IsZero() {
				t.Errorf("unchanged register %d has nonzero contribution", i)
			}
		}
	})

	t.Run("IndependentOfHashState", func(t *testing.T) {
		// Two evaluations with different hash states but identical user
		// registers must contribute identically to the identity region.
		currentA := makeRow(55)
		nextA := makeRow(900)
		currentB := make([]field.Element, numRegisters)
		nextB := make([]field.Element, numRegisters)
		copy(currentB, currentA)
		copy(nextB, nextA)
		for i := 0; i < rescue.StateWidth; i++ {
			currentB[i] = field.New(uint64(7000 + i))
			nextB[i] = field.New(uint64(8000 + i))
		}

		accA := makeAccumulator()
		evaluator.Evaluate(currentA, nextA, 4, field.One, accA)
		accB := makeAccumulator()
		evaluator.Evaluate(currentB, nextB, 4, field.One, accB)

		for i := rescue.StateWidth; i < numRegisters; i++ {
			if !accA[NumAuxConstraints+i].Equal(accB[NumAuxConstraints+i]) {
				t.Errorf("identity contribution of register %d depends on hash state", i)
			}
		}
	})
}

// TestConcreteScenario is the end-to-end check: a short trace with extension
// factor 1, one authentic round transition, then a one-unit perturbation.
func TestConcreteScenario(t *testing.T) {
	evaluator, err := NewHashEvaluator(rescue.CycleLength, 1)
	if err != nil {
		t.Fatalf("NewHashEvaluator failed: %v", err)
	}

	const step = 3
	current, next := makeTransition(1, step)

	acc := makeAccumulator()
	evaluator.Evaluate(current, next, step, field.One, acc)
	for i, v := range acc {
		if !v.IsZero() {
			t.Fatalf("authentic transition: accumulator slot %d is %v, want zero", i, v)
		}
	}

	const lane = 4
	next[lane] = next[lane].Add(field.One)
	acc = makeAccumulator()
	evaluator.Evaluate(current, next, step, field.One, acc)

	if acc[NumAuxConstraints+lane].IsZero() {
		t.Errorf("perturbed lane %d still satisfied", lane)
	}
	expected := expectedContributions(current, next, step, field.One)
	if !acc[NumAuxConstraints+lane].Equal(expected[lane]) {
		t.Errorf("lane %d: contribution %v, recomputed difference %v",
			lane, acc[NumAuxConstraints+lane], expected[lane])
	}
	for i := rescue.StateWidth; i < numRegisters; i++ {
		if !acc[NumAuxConstraints+i].IsZero() {
			t.Errorf("user register %d affected by hash-state perturbation", i)
		}
	}
}

func TestEvaluateAdditive(t *testing.T) {
	// Contributions must add into the accumulator, not overwrite it
	evaluator, err := NewHashEvaluator(2*rescue.CycleLength, 1)
	if err != nil {
		t.Fatalf("NewHashEvaluator failed: %v", err)
	}

	const step = 6
	current := makeRow(3)
	next := makeRow(4000)

	fromZero := makeAccumulator()
	evaluator.Evaluate(current, next, step, field.One, fromZero)

	acc := make([]field.Element, accumulatorSize)
	for i := range acc {
		acc[i] = field.New(uint64(50 + i))
	}
	evaluator.Evaluate(current, next, step, field.One, acc)

	for i := range acc {
		want := field.New(uint64(50 + i)).Add(fromZero[i])
		if !acc[i].Equal(want) {
			t.Errorf("slot %d: got %v, want prior value plus contribution %v", i, acc[i], want)
		}
	}
}

func TestStructuralPreconditionsPanic(t *testing.T) {
	evaluator, err := NewHashEvaluator(2*rescue.CycleLength, 1)
	if err != nil {
		t.Fatalf("NewHashEvaluator failed: %v", err)
	}

	expectPanic := func(name string, fn func()) {
		t.Run(name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("expected a panic")
				}
			}()
			fn()
		})
	}

	expectPanic("RowLengthMismatch", func() {
		evaluator.Evaluate(makeRow(1), makeRow(1)[:numRegisters-1], 0, field.One, makeAccumulator())
	})
	expectPanic("RowTooShort", func() {
		short := make([]field.Element, rescue.StateWidth-1)
		evaluator.Evaluate(short, short, 0, field.One, makeAccumulator())
	})
	expectPanic("AccumulatorTooShort", func() {
		acc := make([]field.Element, NumAuxConstraints+rescue.StateWidth-1)
		evaluator.Evaluate(makeRow(1), makeRow(1), 0, field.One, acc)
	})
	expectPanic("AccumulatorWiderThanRows", func() {
		acc := make([]field.Element, NumAuxConstraints+numRegisters+1)
		evaluator.Evaluate(makeRow(1), makeRow(1), 0, field.One, acc)
	})
}

package rescue

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/sha3"

	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"
	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/polynomial"
)

// constantSeed domain-separates the round-constant derivation.
const constantSeed = "vybium-rescue-air v1 round constants"

// roundConstants holds the per-round injected constants: forward constants in
// columns [0, StateWidth), backward constants in [StateWidth, NumConstants).
var roundConstants [CycleLength][NumConstants]field.Element

// mdsMatrix is a Cauchy matrix m[i][j] = 1/(i + j + StateWidth). The row and
// column sequences are disjoint, so the matrix is MDS and invertible.
var mdsMatrix [StateWidth][StateWidth]field.Element

// invMdsMatrix is the inverse of mdsMatrix, computed once at package init.
var invMdsMatrix [StateWidth][StateWidth]field.Element

func init() {
	deriveRoundConstants()
	buildMdsMatrices()
}

// deriveRoundConstants fills roundConstants from a SHAKE-256 stream seeded with
// constantSeed. Each draw rejection-samples a canonical field element so the
// constants are uniform in [0, p).
func deriveRoundConstants() {
	shake := sha3.NewShake256()
	shake.Write([]byte(constantSeed))

	var buf [8]byte
	for r := 0; r < CycleLength; r++ {
		for j := 0; j < NumConstants; j++ {
			for {
				if _, err := shake.Read(buf[:]); err != nil {
					panic(fmt.Sprintf("rescue: SHAKE read failed: %v", err))
				}
				v := binary.LittleEndian.Uint64(buf[:])
				if v < field.P {
					roundConstants[r][j] = field.New(v)
					break
				}
			}
		}
	}
}

func buildMdsMatrices() {
	for i := 0; i < StateWidth; i++ {
		for j := 0; j < StateWidth; j++ {
			mdsMatrix[i][j] = field.New(uint64(i + j + StateWidth)).Inverse()
		}
	}

	inv, err := invertMatrix(mdsMatrix)
	if err != nil {
		panic(fmt.Sprintf("rescue: MDS matrix is not invertible: %v", err))
	}
	invMdsMatrix = inv
}

// invertMatrix inverts a StateWidth x StateWidth matrix by Gauss-Jordan
// elimination over the field.
func invertMatrix(m [StateWidth][StateWidth]field.Element) ([StateWidth][StateWidth]field.Element, error) {
	var aug [StateWidth][2 * StateWidth]field.Element
	for i := 0; i < StateWidth; i++ {
		for j := 0; j < StateWidth; j++ {
			aug[i][j] = m[i][j]
			aug[i][StateWidth+j] = field.Zero
		}
		aug[i][StateWidth+i] = field.One
	}

	for col := 0; col < StateWidth; col++ {
		// Find a row with a nonzero pivot in this column
		pivot := -1
		for row := col; row < StateWidth; row++ {
			if !aug[row][col].IsZero() {
				pivot = row
				break
			}
		}
		if pivot < 0 {
			var zero [StateWidth][StateWidth]field.Element
			return zero, fmt.Errorf("singular matrix at column %d", col)
		}
		aug[col], aug[pivot] = aug[pivot], aug[col]

		pivotInv := aug[col][col].Inverse()
		for j := 0; j < 2*StateWidth; j++ {
			aug[col][j] = aug[col][j].Mul(pivotInv)
		}

		for row := 0; row < StateWidth; row++ {
			if row == col || aug[row][col].IsZero() {
				continue
			}
			factor := aug[row][col]
			for j := 0; j < 2*StateWidth; j++ {
				aug[row][j] = aug[row][j].Sub(factor.Mul(aug[col][j]))
			}
		}
	}

	var out [StateWidth][StateWidth]field.Element
	for i := 0; i < StateWidth; i++ {
		for j := 0; j < StateWidth; j++ {
			out[i][j] = aug[i][StateWidth+j]
		}
	}
	return out, nil
}

// ExtendedConstants interpolates each round-constant column into a polynomial
// over the cycle domain and evaluates every polynomial densely over a domain
// extended by extensionFactor. It returns one polynomial and one evaluation
// column per constant, NumConstants of each; every evaluation column has
// CycleLength * extensionFactor entries.
func ExtendedConstants(extensionFactor int) ([]*polynomial.Polynomial, [][]field.Element, error) {
	if !isPowerOfTwo(extensionFactor) {
		return nil, nil, fmt.Errorf("extension factor must be a power of 2, got %d", extensionFactor)
	}

	baseDomain, err := NewArithmeticDomain(CycleLength)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build cycle domain: %w", err)
	}
	extendedDomain, err := NewArithmeticDomain(CycleLength * extensionFactor)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build extended domain: %w", err)
	}

	baseElements := baseDomain.Elements()
	polys := make([]*polynomial.Polynomial, NumConstants)
	evaluations := make([][]field.Element, NumConstants)

	for j := 0; j < NumConstants; j++ {
		points := make([][2]field.Element, CycleLength)
		for r := 0; r < CycleLength; r++ {
			points[r] = [2]field.Element{baseElements[r], roundConstants[r][j]}
		}
		polys[j] = polynomial.Interpolate(points)
		evaluations[j] = extendedDomain.Evaluate(polys[j])
	}

	return polys, evaluations, nil
}

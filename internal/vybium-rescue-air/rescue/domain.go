package rescue

import (
	"fmt"

	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"
	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/polynomial"
)

func isPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}

// ArithmeticDomain is a multiplicative subgroup {generator^i : i = 0..length-1}
// used to interpolate and evaluate the round-constant polynomials. Lengths are
// powers of two so a primitive root of unity of the right order exists.
type ArithmeticDomain struct {
	// Generator is a primitive n-th root of unity where n = Length
	Generator field.Element

	// Length is the number of elements in the domain (must be power of 2)
	Length int
}

// NewArithmeticDomain creates a domain with the given length
func NewArithmeticDomain(length int) (*ArithmeticDomain, error) {
	if !isPowerOfTwo(length) {
		return nil, fmt.Errorf("domain length must be a power of 2, got %d", length)
	}

	generator := field.PrimitiveRootOfUnity(uint64(length))

	return &ArithmeticDomain{
		Generator: generator,
		Length:    length,
	}, nil
}

// Elements returns all elements of the domain: {generator^i : i = 0..length-1}
func (d *ArithmeticDomain) Elements() []field.Element {
	elements := make([]field.Element, d.Length)
	current := field.One
	for i := 0; i < d.Length; i++ {
		elements[i] = current
		current = current.Mul(d.Generator)
	}
	return elements
}

// Evaluate evaluates a polynomial (in coefficient form) over the entire domain
func (d *ArithmeticDomain) Evaluate(poly *polynomial.Polynomial) []field.Element {
	domainElements := d.Elements()
	values := make([]field.Element, len(domainElements))

	for i, x := range domainElements {
		values[i] = poly.Evaluate(x)
	}

	return values
}

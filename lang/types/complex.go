package types

import "strconv"

// Complex is the type of a complex number: a pair of doubles. It is
// numeric only; complex values are not ordered.
type Complex complex128

var (
	_ Value    = Complex(0)
	_ HasEqual = Complex(0)
)

func (c Complex) String() string {
	return strconv.FormatComplex(complex128(c), 'g', -1, 128)
}

func (c Complex) Type() string { return "complex" }
func (c Complex) Truth() bool  { return c != 0 }

func (c Complex) Equals(y Value) (bool, error) {
	switch y := y.(type) {
	case Complex:
		return c == y, nil
	case Int:
		return c == Complex(complex(float64(y), 0)), nil
	case Float:
		return c == Complex(complex(float64(y), 0)), nil
	}
	return false, nil
}

package types

import (
	"math"

	"github.com/evilcandy-lang/evilcandy/lang/token"
)

// Binary applies the binary operator op to x and y. It performs the
// numeric promotions (int with float promotes to float; anything numeric
// with complex promotes to complex) and falls back to the operands'
// HasBinary implementations before giving up with a type error. The same
// table serves the machine at runtime and the constant folder at compile
// time.
func Binary(op token.Token, x, y Value) (Value, error) {
	switch op {
	case token.PLUS:
		switch x := x.(type) {
		case Int:
			switch y := y.(type) {
			case Int:
				return x + y, nil
			case Float:
				return Float(x) + y, nil
			case Complex:
				return Complex(complex(float64(x), 0)) + y, nil
			}
		case Float:
			switch y := y.(type) {
			case Int:
				return x + Float(y), nil
			case Float:
				return x + y, nil
			case Complex:
				return Complex(complex(float64(x), 0)) + y, nil
			}
		case Complex:
			if y, ok := promoteComplex(y); ok {
				return x + y, nil
			}
		case String:
			if y, ok := y.(String); ok {
				return x + y, nil
			}
		case Bytes:
			if y, ok := y.(Bytes); ok {
				return x + y, nil
			}
		case *List:
			if y, ok := y.(*List); ok {
				elems := make([]Value, 0, x.Len()+y.Len())
				elems = append(elems, x.elems...)
				elems = append(elems, y.elems...)
				return NewList(elems), nil
			}
		case *Tuple:
			if y, ok := y.(*Tuple); ok {
				elems := make([]Value, 0, x.Len()+y.Len())
				elems = append(elems, x.elems...)
				elems = append(elems, y.elems...)
				return NewTuple(elems), nil
			}
		}

	case token.MINUS:
		switch x := x.(type) {
		case Int:
			switch y := y.(type) {
			case Int:
				return x - y, nil
			case Float:
				return Float(x) - y, nil
			case Complex:
				return Complex(complex(float64(x), 0)) - y, nil
			}
		case Float:
			switch y := y.(type) {
			case Int:
				return x - Float(y), nil
			case Float:
				return x - y, nil
			case Complex:
				return Complex(complex(float64(x), 0)) - y, nil
			}
		case Complex:
			if y, ok := promoteComplex(y); ok {
				return x - y, nil
			}
		}

	case token.STAR:
		switch x := x.(type) {
		case Int:
			switch y := y.(type) {
			case Int:
				return x * y, nil
			case Float:
				return Float(x) * y, nil
			case Complex:
				return Complex(complex(float64(x), 0)) * y, nil
			}
		case Float:
			switch y := y.(type) {
			case Int:
				return x * Float(y), nil
			case Float:
				return x * y, nil
			case Complex:
				return Complex(complex(float64(x), 0)) * y, nil
			}
		case Complex:
			if y, ok := promoteComplex(y); ok {
				return x * y, nil
			}
		}

	case token.SLASH:
		switch x := x.(type) {
		case Int:
			switch y := y.(type) {
			case Int:
				if y == 0 {
					return nil, NewValueError("division by zero")
				}
				return x / y, nil
			case Float:
				if y == 0 {
					return nil, NewValueError("division by zero")
				}
				return Float(x) / y, nil
			case Complex:
				if y == 0 {
					return nil, NewValueError("division by zero")
				}
				return Complex(complex(float64(x), 0)) / y, nil
			}
		case Float:
			switch y := y.(type) {
			case Int:
				if y == 0 {
					return nil, NewValueError("division by zero")
				}
				return x / Float(y), nil
			case Float:
				if y == 0 {
					return nil, NewValueError("division by zero")
				}
				return x / y, nil
			case Complex:
				if y == 0 {
					return nil, NewValueError("division by zero")
				}
				return Complex(complex(float64(x), 0)) / y, nil
			}
		case Complex:
			if y, ok := promoteComplex(y); ok {
				if y == 0 {
					return nil, NewValueError("division by zero")
				}
				return x / y, nil
			}
		}

	case token.PERCENT:
		switch x := x.(type) {
		case Int:
			switch y := y.(type) {
			case Int:
				if y == 0 {
					return nil, NewValueError("modulo by zero")
				}
				return x % y, nil
			case Float:
				if y == 0 {
					return nil, NewValueError("modulo by zero")
				}
				return Float(math.Mod(float64(x), float64(y))), nil
			}
		case Float:
			switch y := y.(type) {
			case Int:
				if y == 0 {
					return nil, NewValueError("modulo by zero")
				}
				return Float(math.Mod(float64(x), float64(y))), nil
			case Float:
				if y == 0 {
					return nil, NewValueError("modulo by zero")
				}
				return Float(math.Mod(float64(x), float64(y))), nil
			}
		}

	case token.STARSTAR:
		switch x := x.(type) {
		case Int:
			switch y := y.(type) {
			case Int:
				return intPow(x, y)
			case Float:
				return Float(math.Pow(float64(x), float64(y))), nil
			}
		case Float:
			switch y := y.(type) {
			case Int:
				return Float(math.Pow(float64(x), float64(y))), nil
			case Float:
				return Float(math.Pow(float64(x), float64(y))), nil
			}
		}

	case token.LTLT:
		if x, y, ok := bothInts(x, y); ok {
			if y < 0 || y >= 64 {
				return nil, NewValueError("shift count out of range")
			}
			return x << uint(y), nil
		}

	case token.GTGT:
		if x, y, ok := bothInts(x, y); ok {
			if y < 0 || y >= 64 {
				return nil, NewValueError("shift count out of range")
			}
			return x >> uint(y), nil
		}

	case token.AMPERSAND:
		if x, y, ok := bothInts(x, y); ok {
			return x & y, nil
		}

	case token.PIPE:
		if x, y, ok := bothInts(x, y); ok {
			return x | y, nil
		}
		// dict | dict is the mapping union: entries of y win
		if x, ok := x.(*Dict); ok {
			if y, ok := y.(*Dict); ok {
				return dictUnion(x, y)
			}
		}

	case token.CIRCUMFLEX:
		if x, y, ok := bothInts(x, y); ok {
			return x ^ y, nil
		}

	case token.ANDAND:
		return boolInt(x.Truth() && y.Truth()), nil

	case token.PIPEPIPE:
		return boolInt(x.Truth() || y.Truth()), nil
	}

	// user-defined / auxiliary binary support
	if x, ok := x.(HasBinary); ok {
		z, err := x.Binary(op, y, Left)
		if z != nil || err != nil {
			return z, err
		}
	}
	if y, ok := y.(HasBinary); ok {
		z, err := y.Binary(op, x, Right)
		if z != nil || err != nil {
			return z, err
		}
	}

	return nil, NewTypeError("unsupported binary op: %s %s %s", x.Type(), op, y.Type())
}

func promoteComplex(v Value) (Complex, bool) {
	switch v := v.(type) {
	case Complex:
		return v, true
	case Int:
		return Complex(complex(float64(v), 0)), true
	case Float:
		return Complex(complex(float64(v), 0)), true
	}
	return 0, false
}

func bothInts(x, y Value) (Int, Int, bool) {
	xi, ok := x.(Int)
	if !ok {
		return 0, 0, false
	}
	yi, ok := y.(Int)
	if !ok {
		return 0, 0, false
	}
	return xi, yi, true
}

func boolInt(b bool) Int {
	if b {
		return 1
	}
	return 0
}

// intPow raises x to the non-negative power y; a negative exponent demotes
// to float.
func intPow(x, y Int) (Value, error) {
	if y < 0 {
		return Float(math.Pow(float64(x), float64(y))), nil
	}
	result := Int(1)
	for ; y > 0; y >>= 1 {
		if y&1 != 0 {
			result *= x
		}
		x *= x
	}
	return result, nil
}

func dictUnion(x, y *Dict) (Value, error) {
	out := NewDict(x.Len() + y.Len())
	for _, d := range [...]*Dict{x, y} {
		for _, k := range d.Keys() {
			v, _ := d.Get(k)
			if err := out.SetKey(k, v); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// Unary applies the unary operator op to x.
func Unary(op token.Token, x Value) (Value, error) {
	switch op {
	case token.MINUS:
		switch x := x.(type) {
		case Int:
			return -x, nil
		case Float:
			return -x, nil
		case Complex:
			return -x, nil
		}
	case token.PLUS:
		switch x.(type) {
		case Int, Float, Complex:
			return x, nil
		}
	case token.TILDE:
		if x, ok := x.(Int); ok {
			return ^x, nil
		}
	case token.BANG:
		return boolInt(!x.Truth()), nil
	}

	if x, ok := x.(HasUnary); ok {
		z, err := x.Unary(op)
		if z != nil || err != nil {
			return z, err
		}
	}

	return nil, NewTypeError("unsupported unary op: %s %s", op, x.Type())
}

// Abs returns the absolute value of a numeric value.
func Abs(x Value) (Value, error) {
	switch x := x.(type) {
	case Int:
		if x < 0 {
			return -x, nil
		}
		return x, nil
	case Float:
		return Float(math.Abs(float64(x))), nil
	case Complex:
		return Float(complexAbs(complex128(x))), nil
	}
	return nil, NewTypeError("unsupported abs of %s", x.Type())
}

func complexAbs(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}

// Equal reports whether x equals y, using Ordered or HasEqual when
// available and falling back to identity.
func Equal(x, y Value) (bool, error) {
	if xo, ok := x.(Ordered); ok {
		if c, err := xo.Cmp(y); err == nil {
			return c == 0, nil
		}
		// a failed ordered comparison of different types is not an error
		// for equality: the values are simply not equal
		return false, nil
	}
	if xe, ok := x.(HasEqual); ok {
		return xe.Equals(y)
	}
	return x == y, nil
}

// Compare applies the comparison operator op to x and y, yielding the
// boolean result as an Int. Ordering of values that are merely comparable
// for equality is a type error.
func Compare(op token.Token, x, y Value) (Value, error) {
	switch op {
	case token.EQEQ:
		eq, err := Equal(x, y)
		return boolInt(eq), err
	case token.NEQ:
		eq, err := Equal(x, y)
		return boolInt(!eq), err
	}

	xo, ok := x.(Ordered)
	if !ok {
		return nil, NewTypeError("%s value is not ordered", x.Type())
	}
	c, err := xo.Cmp(y)
	if err != nil {
		return nil, err
	}
	switch op {
	case token.LT:
		return boolInt(c < 0), nil
	case token.LE:
		return boolInt(c <= 0), nil
	case token.GT:
		return boolInt(c > 0), nil
	case token.GE:
		return boolInt(c >= 0), nil
	}
	return nil, NewTypeError("invalid comparison operator %s", op)
}

// AsString returns the Go string of a String value.
func AsString(v Value) (string, bool) {
	s, ok := v.(String)
	return string(s), ok
}

// AsInt returns the Go int64 of an Int value.
func AsInt(v Value) (int64, bool) {
	i, ok := v.(Int)
	return int64(i), ok
}

// Str renders a value the way print does: strings appear unquoted, every
// other value uses its String representation.
func Str(v Value) string {
	if s, ok := v.(String); ok {
		return string(s)
	}
	return v.String()
}

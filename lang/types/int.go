package types

import "strconv"

// Int is the type of an integer value, a signed 64-bit quantity. There is
// no separate boolean type: true and false are the integers 1 and 0.
type Int int64

var (
	_ Value   = Int(0)
	_ Ordered = Int(0)
)

func (i Int) String() string { return strconv.FormatInt(int64(i), 10) }
func (i Int) Type() string   { return "int" }
func (i Int) Truth() bool    { return i != 0 }

// Cmp implements comparison of two Int values. Arithmetic with Float
// promotes, so comparison against a Float converts the Int to a double.
func (i Int) Cmp(v Value) (int, error) {
	switch j := v.(type) {
	case Int:
		switch {
		case i > j:
			return +1, nil
		case i < j:
			return -1, nil
		}
		return 0, nil
	case Float:
		return floatCmp(Float(i), j), nil
	}
	return 0, NewTypeError("cannot compare int to %s", v.Type())
}

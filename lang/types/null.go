package types

// NullType is the type of null. Its only legal value is Null. (We represent
// it as a number, not struct{}, so that Null may be constant.)
type NullType byte

// Null is the unique null value.
const Null = NullType(0)

var (
	_ Value    = Null
	_ HasEqual = Null
)

func (NullType) String() string { return "null" }
func (NullType) Type() string   { return "null" }
func (NullType) Truth() bool    { return false }

func (NullType) Equals(y Value) (bool, error) {
	_, ok := y.(NullType)
	return ok, nil
}

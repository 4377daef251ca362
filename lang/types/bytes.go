package types

import (
	"strconv"
	"strings"
)

// Bytes is the type of binary data: an immutable sequence of bytes. It is
// comparable, indexable and sliceable; indexing yields integers.
type Bytes string

var (
	_ Value     = Bytes("")
	_ Ordered   = Bytes("")
	_ Indexable = Bytes("")
	_ Sliceable = Bytes("")
)

func (b Bytes) String() string    { return "b" + strconv.Quote(string(b)) }
func (b Bytes) Type() string      { return "bytes" }
func (b Bytes) Truth() bool       { return len(b) > 0 }
func (b Bytes) Len() int          { return len(b) }
func (b Bytes) Index(i int) Value { return Int(b[i]) }

func (b Bytes) Slice(start, end, step int) Value {
	if step == 1 {
		return b[start:end]
	}
	sign := signum(step)
	var out []byte
	for i := start; signum(end-i) == sign; i += step {
		out = append(out, b[i])
	}
	return Bytes(out)
}

func (b Bytes) Cmp(y Value) (int, error) {
	yb, ok := y.(Bytes)
	if !ok {
		return 0, NewTypeError("cannot compare bytes to %s", y.Type())
	}
	return strings.Compare(string(b), string(yb)), nil
}

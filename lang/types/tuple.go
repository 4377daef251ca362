package types

import "strings"

// A Tuple represents an immutable array of values (only the array is
// immutable, the values themselves are not).
type Tuple struct {
	elems []Value
}

// EmptyTuple is the value of a tuple with no elements.
var EmptyTuple = NewTuple(nil)

var (
	_ Value     = (*Tuple)(nil)
	_ Sequence  = (*Tuple)(nil)
	_ Indexable = (*Tuple)(nil)
	_ Sliceable = (*Tuple)(nil)
	_ HasEqual  = (*Tuple)(nil)
)

// NewTuple returns a tuple containing the specified elements. Callers
// should not subsequently modify elems.
func NewTuple(elems []Value) *Tuple { return &Tuple{elems: elems} }

func (t *Tuple) String() string {
	var sb strings.Builder
	sb.WriteByte('(')
	for i, e := range t.elems {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(e.String())
	}
	sb.WriteByte(')')
	return sb.String()
}

func (t *Tuple) Type() string      { return "tuple" }
func (t *Tuple) Truth() bool       { return t.Len() > 0 }
func (t *Tuple) Len() int          { return len(t.elems) }
func (t *Tuple) Index(i int) Value { return t.elems[i] }

func (t *Tuple) Slice(start, end, step int) Value {
	if step == 1 {
		return NewTuple(append([]Value{}, t.elems[start:end]...))
	}
	sign := signum(step)
	var elems []Value
	for i := start; signum(end-i) == sign; i += step {
		elems = append(elems, t.elems[i])
	}
	return NewTuple(elems)
}

func (t *Tuple) Iterate() Iterator { return &tupleIterator{elems: t.elems} }

func (t *Tuple) Equals(y Value) (bool, error) {
	yt, ok := y.(*Tuple)
	if !ok {
		return false, nil
	}
	return sliceEqual(t.elems, yt.elems)
}

type tupleIterator struct{ elems []Value }

func (it *tupleIterator) Next(p *Value) bool {
	if len(it.elems) > 0 {
		*p = it.elems[0]
		it.elems = it.elems[1:]
		return true
	}
	return false
}

func (it *tupleIterator) Done() {}

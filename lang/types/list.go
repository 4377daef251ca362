package types

import (
	"sort"
	"strings"
)

// A List is a mutable array of values. Built-in iterators lock the list on
// entry and unlock it on exit; any attempt to mutate a locked list raises a
// runtime error.
type List struct {
	elems     []Value
	itercount uint32 // number of active iterators; mutation is locked out while > 0
}

var (
	_ Value       = (*List)(nil)
	_ Sequence    = (*List)(nil)
	_ Indexable   = (*List)(nil)
	_ HasSetIndex = (*List)(nil)
	_ Sliceable   = (*List)(nil)
	_ HasEqual    = (*List)(nil)
)

// NewList returns a list containing the specified elements. Callers should
// not subsequently modify elems.
func NewList(elems []Value) *List { return &List{elems: elems} }

func (l *List) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, e := range l.elems {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(e.String())
	}
	sb.WriteByte(']')
	return sb.String()
}

func (l *List) Type() string      { return "list" }
func (l *List) Truth() bool       { return l.Len() > 0 }
func (l *List) Len() int          { return len(l.elems) }
func (l *List) Index(i int) Value { return l.elems[i] }

// checkMutable reports an error if the list should not be mutated.
// verb+" list" should describe the operation.
func (l *List) checkMutable(verb string) error {
	if l.itercount > 0 {
		return NewRuntimeError("cannot %s locked list (in use by an iterator)", verb)
	}
	return nil
}

// Lock marks the list as in-use by an iterator; Unlock releases it. Calls
// nest.
func (l *List) Lock()   { l.itercount++ }
func (l *List) Unlock() { l.itercount-- }

func (l *List) SetIndex(i int, v Value) error {
	if err := l.checkMutable("assign to element of"); err != nil {
		return err
	}
	l.elems[i] = v
	return nil
}

func (l *List) Append(v Value) error {
	if err := l.checkMutable("append to"); err != nil {
		return err
	}
	l.elems = append(l.elems, v)
	return nil
}

func (l *List) Clear() error {
	if err := l.checkMutable("clear"); err != nil {
		return err
	}
	for i := range l.elems {
		l.elems[i] = nil // aid GC
	}
	l.elems = l.elems[:0]
	return nil
}

// Sort reorders the elements in place; less reports whether x orders
// before y, or fails for incomparable elements. Sorting a locked list is
// an error.
func (l *List) Sort(less func(x, y Value) (bool, error)) error {
	if err := l.checkMutable("sort"); err != nil {
		return err
	}
	var sortErr error
	sort.SliceStable(l.elems, func(i, j int) bool {
		if sortErr != nil {
			return false
		}
		lt, err := less(l.elems[i], l.elems[j])
		if err != nil {
			sortErr = err
			return false
		}
		return lt
	})
	return sortErr
}

func (l *List) Slice(start, end, step int) Value {
	if step == 1 {
		elems := append([]Value{}, l.elems[start:end]...)
		return NewList(elems)
	}
	sign := signum(step)
	var list []Value
	for i := start; signum(end-i) == sign; i += step {
		list = append(list, l.elems[i])
	}
	return NewList(list)
}

func (l *List) Iterate() Iterator {
	l.itercount++
	return &listIterator{l: l}
}

func (l *List) Equals(y Value) (bool, error) {
	yl, ok := y.(*List)
	if !ok {
		return false, nil
	}
	return sliceEqual(l.elems, yl.elems)
}

func sliceEqual(x, y []Value) (bool, error) {
	if len(x) != len(y) {
		return false, nil
	}
	for i := range x {
		eq, err := Equal(x[i], y[i])
		if err != nil {
			return false, err
		}
		if !eq {
			return false, nil
		}
	}
	return true, nil
}

type listIterator struct {
	l *List
	i int
}

func (it *listIterator) Next(p *Value) bool {
	if it.i < it.l.Len() {
		*p = it.l.elems[it.i]
		it.i++
		return true
	}
	return false
}

func (it *listIterator) Done() {
	it.l.itercount--
}

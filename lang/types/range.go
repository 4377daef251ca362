package types

import "fmt"

// A Range is the lazily-counted sequence (start, stop, step) with step
// never zero. It is empty when the sign of step disagrees with the sign of
// stop-start.
type Range struct {
	start, stop, step int64
}

var (
	_ Value     = (*Range)(nil)
	_ Sequence  = (*Range)(nil)
	_ Indexable = (*Range)(nil)
	_ HasEqual  = (*Range)(nil)
)

// NewRange returns the range value; a zero step is a value error.
func NewRange(start, stop, step int64) (*Range, error) {
	if step == 0 {
		return nil, NewValueError("range step cannot be zero")
	}
	return &Range{start: start, stop: stop, step: step}, nil
}

func (r *Range) String() string {
	if r.step == 1 {
		return fmt.Sprintf("range(%d, %d)", r.start, r.stop)
	}
	return fmt.Sprintf("range(%d, %d, %d)", r.start, r.stop, r.step)
}

func (r *Range) Type() string { return "range" }
func (r *Range) Truth() bool  { return r.Len() > 0 }

func (r *Range) Len() int {
	d := r.stop - r.start
	if signum64(d) != signum64(r.step) {
		return 0
	}
	if r.step > 0 {
		return int((d + r.step - 1) / r.step)
	}
	return int((d + r.step + 1) / r.step)
}

func (r *Range) Index(i int) Value { return Int(r.start + int64(i)*r.step) }

func (r *Range) Iterate() Iterator { return &rangeIterator{r: r, n: r.Len()} }

func (r *Range) Equals(y Value) (bool, error) {
	yr, ok := y.(*Range)
	if !ok {
		return false, nil
	}
	return *r == *yr, nil
}

type rangeIterator struct {
	r    *Range
	i, n int
}

func (it *rangeIterator) Next(p *Value) bool {
	if it.i < it.n {
		*p = it.r.Index(it.i)
		it.i++
		return true
	}
	return false
}

func (it *rangeIterator) Done() {}

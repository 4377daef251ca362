package types

import (
	"strconv"
	"strings"
)

// Floats is a dense array of float64 values with cached statistics (sum,
// sum of squares, mean, sum of squared deviations). Every mutation
// invalidates the caches; they are recomputed on demand.
type Floats struct {
	data []float64

	statsValid bool
	sum        float64
	sum2       float64
	mean       float64
	ssdev      float64

	itercount uint32
}

var (
	_ Value       = (*Floats)(nil)
	_ Sequence    = (*Floats)(nil)
	_ Indexable   = (*Floats)(nil)
	_ HasSetIndex = (*Floats)(nil)
	_ Sliceable   = (*Floats)(nil)
)

// NewFloats returns a floats array over data. Callers should not
// subsequently modify data.
func NewFloats(data []float64) *Floats { return &Floats{data: data} }

func (f *Floats) String() string {
	var sb strings.Builder
	sb.WriteString("floats([")
	for i, v := range f.data {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
	}
	sb.WriteString("])")
	return sb.String()
}

func (f *Floats) Type() string      { return "floats" }
func (f *Floats) Truth() bool       { return len(f.data) > 0 }
func (f *Floats) Len() int          { return len(f.data) }
func (f *Floats) Index(i int) Value { return Float(f.data[i]) }

func (f *Floats) checkMutable(verb string) error {
	if f.itercount > 0 {
		return NewRuntimeError("cannot %s locked floats (in use by an iterator)", verb)
	}
	return nil
}

func (f *Floats) SetIndex(i int, v Value) error {
	if err := f.checkMutable("assign to element of"); err != nil {
		return err
	}
	d, err := asFloat(v)
	if err != nil {
		return err
	}
	f.data[i] = d
	f.statsValid = false
	return nil
}

func (f *Floats) Append(v Value) error {
	if err := f.checkMutable("append to"); err != nil {
		return err
	}
	d, err := asFloat(v)
	if err != nil {
		return err
	}
	f.data = append(f.data, d)
	f.statsValid = false
	return nil
}

func asFloat(v Value) (float64, error) {
	switch v := v.(type) {
	case Float:
		return float64(v), nil
	case Int:
		return float64(v), nil
	}
	return 0, NewTypeError("floats elements must be numbers, not %s", v.Type())
}

// stats recomputes the cached statistics if a mutation invalidated them.
func (f *Floats) stats() {
	if f.statsValid {
		return
	}
	var sum, sum2 float64
	for _, v := range f.data {
		sum += v
		sum2 += v * v
	}
	f.sum, f.sum2 = sum, sum2
	if n := float64(len(f.data)); n > 0 {
		f.mean = sum / n
		var ss float64
		for _, v := range f.data {
			d := v - f.mean
			ss += d * d
		}
		f.ssdev = ss
	} else {
		f.mean, f.ssdev = 0, 0
	}
	f.statsValid = true
}

func (f *Floats) Sum() float64 { f.stats(); return f.sum }

func (f *Floats) Sum2() float64 { f.stats(); return f.sum2 }

func (f *Floats) Mean() float64 { f.stats(); return f.mean }

// SSDev returns the sum of squared deviations from the mean.
func (f *Floats) SSDev() float64 { f.stats(); return f.ssdev }

// Min returns the smallest element; ok is false for an empty array. This
// is part of the homogeneous-array fast iteration support: no boxing of
// the elements is needed.
func (f *Floats) Min() (float64, bool) {
	if len(f.data) == 0 {
		return 0, false
	}
	m := f.data[0]
	for _, v := range f.data[1:] {
		if v < m {
			m = v
		}
	}
	return m, true
}

// Max returns the largest element; ok is false for an empty array.
func (f *Floats) Max() (float64, bool) {
	if len(f.data) == 0 {
		return 0, false
	}
	m := f.data[0]
	for _, v := range f.data[1:] {
		if v > m {
			m = v
		}
	}
	return m, true
}

// Any reports whether any element is non-zero.
func (f *Floats) Any() bool {
	for _, v := range f.data {
		if v != 0 {
			return true
		}
	}
	return false
}

// All reports whether every element is non-zero.
func (f *Floats) All() bool {
	for _, v := range f.data {
		if v == 0 {
			return false
		}
	}
	return true
}

func (f *Floats) Slice(start, end, step int) Value {
	if step == 1 {
		return NewFloats(append([]float64{}, f.data[start:end]...))
	}
	sign := signum(step)
	var out []float64
	for i := start; signum(end-i) == sign; i += step {
		out = append(out, f.data[i])
	}
	return NewFloats(out)
}

func (f *Floats) Iterate() Iterator {
	f.itercount++
	return &floatsIterator{f: f}
}

type floatsIterator struct {
	f *Floats
	i int
}

func (it *floatsIterator) Next(p *Value) bool {
	if it.i < len(it.f.data) {
		*p = Float(it.f.data[it.i])
		it.i++
		return true
	}
	return false
}

func (it *floatsIterator) Done() { it.f.itercount-- }

package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evilcandy-lang/evilcandy/lang/token"
)

func TestBinaryNumeric(t *testing.T) {
	cases := []struct {
		desc string
		op   token.Token
		x, y Value
		want Value
		err  string
	}{
		{"int add", token.PLUS, Int(2), Int(3), Int(5), ""},
		{"int sub", token.MINUS, Int(2), Int(3), Int(-1), ""},
		{"int mul", token.STAR, Int(6), Int(7), Int(42), ""},
		{"int div", token.SLASH, Int(7), Int(2), Int(3), ""},
		{"int mod", token.PERCENT, Int(7), Int(2), Int(1), ""},
		{"int pow", token.STARSTAR, Int(2), Int(10), Int(1024), ""},
		{"neg int pow is float", token.STARSTAR, Int(2), Int(-1), Float(0.5), ""},
		{"int float promotes", token.PLUS, Int(2), Float(0.5), Float(2.5), ""},
		{"float int promotes", token.STAR, Float(1.5), Int(2), Float(3), ""},
		{"complex promotes", token.PLUS, Int(1), Complex(2i), Complex(1 + 2i), ""},
		{"shift left", token.LTLT, Int(1), Int(4), Int(16), ""},
		{"shift right", token.GTGT, Int(16), Int(4), Int(1), ""},
		{"bit and", token.AMPERSAND, Int(6), Int(3), Int(2), ""},
		{"bit or", token.PIPE, Int(6), Int(3), Int(7), ""},
		{"bit xor", token.CIRCUMFLEX, Int(6), Int(3), Int(5), ""},
		{"string concat", token.PLUS, String("foo"), String("bar"), String("foobar"), ""},
		{"bytes concat", token.PLUS, Bytes("\x01"), Bytes("\x02"), Bytes("\x01\x02"), ""},
		{"div by zero", token.SLASH, Int(1), Int(0), nil, "division by zero"},
		{"mod by zero", token.PERCENT, Int(1), Int(0), nil, "modulo by zero"},
		{"shift count", token.LTLT, Int(1), Int(64), nil, "shift count out of range"},
		{"type mismatch", token.PLUS, Int(1), String("x"), nil, "unsupported binary op"},
		{"string minus", token.MINUS, String("a"), String("b"), nil, "unsupported binary op"},
	}
	for _, c := range cases {
		t.Run(c.desc, func(t *testing.T) {
			got, err := Binary(c.op, c.x, c.y)
			if c.err != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), c.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, c.want, got)
		})
	}
}

func TestBinarySequences(t *testing.T) {
	l1 := NewList([]Value{Int(1)})
	l2 := NewList([]Value{Int(2), Int(3)})
	got, err := Binary(token.PLUS, l1, l2)
	require.NoError(t, err)
	require.IsType(t, (*List)(nil), got)
	cat := got.(*List)
	require.Equal(t, 3, cat.Len())
	assert.Equal(t, Int(1), cat.Index(0))
	assert.Equal(t, Int(3), cat.Index(2))

	t1 := NewTuple([]Value{Int(1)})
	t2 := NewTuple([]Value{Int(2)})
	got, err = Binary(token.PLUS, t1, t2)
	require.NoError(t, err)
	assert.Equal(t, 2, got.(*Tuple).Len())
}

func TestBinaryDictUnion(t *testing.T) {
	d1 := NewDict(2)
	require.NoError(t, d1.SetKey("a", Int(1)))
	require.NoError(t, d1.SetKey("b", Int(2)))
	d2 := NewDict(2)
	require.NoError(t, d2.SetKey("b", Int(20)))
	require.NoError(t, d2.SetKey("c", Int(30)))

	got, err := Binary(token.PIPE, d1, d2)
	require.NoError(t, err)
	u := got.(*Dict)
	require.Equal(t, 3, u.Len())
	v, _ := u.Get("b")
	assert.Equal(t, Int(20), v, "right operand wins")
}

func TestUnary(t *testing.T) {
	got, err := Unary(token.MINUS, Int(5))
	require.NoError(t, err)
	assert.Equal(t, Int(-5), got)

	got, err = Unary(token.MINUS, Float(2.5))
	require.NoError(t, err)
	assert.Equal(t, Float(-2.5), got)

	got, err = Unary(token.TILDE, Int(0))
	require.NoError(t, err)
	assert.Equal(t, Int(-1), got)

	got, err = Unary(token.BANG, Int(0))
	require.NoError(t, err)
	assert.Equal(t, Int(1), got)

	_, err = Unary(token.TILDE, String("x"))
	require.Error(t, err)
}

func TestCompare(t *testing.T) {
	cases := []struct {
		desc string
		op   token.Token
		x, y Value
		want Int
	}{
		{"int eq", token.EQEQ, Int(2), Int(2), 1},
		{"int neq", token.NEQ, Int(2), Int(3), 1},
		{"int lt", token.LT, Int(2), Int(3), 1},
		{"int float cmp", token.LT, Int(2), Float(2.5), 1},
		{"float int cmp", token.GE, Float(2.5), Int(2), 1},
		{"string cmp", token.LT, String("abc"), String("abd"), 1},
		{"mixed eq is false", token.EQEQ, Int(1), String("1"), 0},
		{"mixed neq is true", token.NEQ, Int(1), String("1"), 1},
		{"null eq null", token.EQEQ, Null, Null, 1},
		{"null neq int", token.EQEQ, Null, Int(0), 0},
	}
	for _, c := range cases {
		t.Run(c.desc, func(t *testing.T) {
			got, err := Compare(c.op, c.x, c.y)
			require.NoError(t, err)
			assert.Equal(t, c.want, got)
		})
	}

	_, err := Compare(token.LT, NewList(nil), NewList(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not ordered")
}

func TestStringLen(t *testing.T) {
	s := String("héllo")
	assert.Equal(t, 5, s.Len(), "length is in code points")
	assert.Equal(t, 6, s.NumBytes())
	assert.False(t, s.ASCII())
	assert.True(t, String("hello").ASCII())
	assert.Equal(t, String("é"), s.Index(1))
}

func TestListLock(t *testing.T) {
	l := NewList([]Value{Int(1), Int(2)})

	l.Lock()
	err := l.Append(Int(3))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "locked list")
	require.Error(t, l.SetIndex(0, Int(9)))
	require.Error(t, l.Clear())

	l.Unlock()
	require.NoError(t, l.Append(Int(3)))
	require.Equal(t, 3, l.Len())

	// iterators hold the lock until Done
	it := l.Iterate()
	require.Error(t, l.Append(Int(4)))
	var v Value
	for it.Next(&v) {
	}
	it.Done()
	require.NoError(t, l.Append(Int(4)))
}

func TestListSort(t *testing.T) {
	l := NewList([]Value{Int(3), Int(1), Int(2)})
	err := l.Sort(func(x, y Value) (bool, error) {
		c, err := x.(Ordered).Cmp(y)
		return c < 0, err
	})
	require.NoError(t, err)
	assert.Equal(t, Int(1), l.Index(0))
	assert.Equal(t, Int(3), l.Index(2))
}

func TestDict(t *testing.T) {
	d := NewDict(0)
	require.NoError(t, d.SetKey("a", Int(1)))
	require.NoError(t, d.SetKey("b", Int(2)))
	require.NoError(t, d.SetKey("a", Int(10)), "overwrite")
	require.Equal(t, 2, d.Len())

	v, ok := d.Get("a")
	require.True(t, ok)
	assert.Equal(t, Int(10), v)

	// len matches the key set after deletions
	require.True(t, d.Delete("a"))
	require.False(t, d.Delete("a"))
	require.Equal(t, 1, d.Len())
	assert.Equal(t, []string{"b"}, d.Keys())

	// const entries reject writes
	require.NoError(t, d.SetKeyFlags("k", Int(5), true, false))
	err := d.SetKey("k", Int(6))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "const")
}

func TestDictIterateSnapshot(t *testing.T) {
	d := NewDict(0)
	require.NoError(t, d.SetKey("a", Int(1)))
	require.NoError(t, d.SetKey("b", Int(2)))

	it := d.Iterate()
	defer it.Done()
	// inserts after iteration start are not visited
	require.NoError(t, d.SetKey("z", Int(26)))

	var n int
	var v Value
	for it.Next(&v) {
		n++
	}
	assert.Equal(t, 2, n)
}

func TestFloatsStats(t *testing.T) {
	f := NewFloats([]float64{1, 2, 3, 4})
	assert.Equal(t, 10.0, f.Sum())
	assert.Equal(t, 30.0, f.Sum2())
	assert.Equal(t, 2.5, f.Mean())
	assert.Equal(t, 5.0, f.SSDev())

	// mutation invalidates the caches
	require.NoError(t, f.Append(Float(5)))
	assert.Equal(t, 15.0, f.Sum())
	assert.Equal(t, 3.0, f.Mean())

	require.NoError(t, f.SetIndex(0, Int(11)))
	assert.Equal(t, 25.0, f.Sum())

	mn, ok := f.Min()
	require.True(t, ok)
	assert.Equal(t, 2.0, mn)
	mx, ok := f.Max()
	require.True(t, ok)
	assert.Equal(t, 11.0, mx)
	assert.True(t, f.Any())
	assert.True(t, f.All())

	require.NoError(t, f.Append(Float(0)))
	assert.False(t, f.All())
}

func TestRange(t *testing.T) {
	r, err := NewRange(1, 10, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, r.Len())
	assert.Equal(t, Int(1), r.Index(0))
	assert.Equal(t, Int(7), r.Index(2))

	// empty when the step sign disagrees with the direction
	r, err = NewRange(10, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, 0, r.Len())
	assert.False(t, r.Truth())

	r, err = NewRange(10, 1, -3)
	require.NoError(t, err)
	assert.Equal(t, 3, r.Len())
	assert.Equal(t, Int(10), r.Index(0))

	_, err = NewRange(0, 10, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step cannot be zero")
}

func TestSlice(t *testing.T) {
	s := String("héllo").Slice(1, 4, 1)
	assert.Equal(t, String("éll"), s)
	s = String("abcdef").Slice(4, -1, -2)
	assert.Equal(t, String("eca"), s)

	l := NewList([]Value{Int(1), Int(2), Int(3), Int(4)})
	sl := l.Slice(1, 3, 1).(*List)
	require.Equal(t, 2, sl.Len())
	assert.Equal(t, Int(2), sl.Index(0))

	b := Bytes("abcd").Slice(0, 4, 2)
	assert.Equal(t, Bytes("ac"), b)

	f := NewFloats([]float64{1, 2, 3}).Slice(0, 3, 2).(*Floats)
	require.Equal(t, 2, f.Len())
	assert.Equal(t, 4.0, f.Sum())
}

func TestTruth(t *testing.T) {
	assert.False(t, Null.Truth())
	assert.False(t, Int(0).Truth())
	assert.True(t, Int(-1).Truth())
	assert.False(t, Float(0).Truth())
	assert.False(t, String("").Truth())
	assert.True(t, String("x").Truth())
	assert.False(t, NewList(nil).Truth())
	assert.True(t, NewList([]Value{Null}).Truth())
	assert.False(t, NewDict(0).Truth())
}

func TestErrorValue(t *testing.T) {
	e := NewError(TypeError, "bad %s", "thing")
	assert.Equal(t, "TypeError: bad thing", e.Error())
	assert.Equal(t, "exception", e.Type())
	assert.True(t, e.Truth())

	e.FuncName = "f"
	e.Line = 3
	assert.Equal(t, "TypeError in f (line 3): bad thing", e.Error())
}

package machine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evilcandy-lang/evilcandy/lang/types"
)

func TestUnpackScalars(t *testing.T) {
	var (
		b8  int8
		h16 int16
		i   int
		l   int64
		s   string
		f   float64
		c   rune
	)
	err := UnpackArgs("fn", "bhilsfc",
		[]types.Value{
			types.Int(1), types.Int(2), types.Int(3), types.Int(4),
			types.String("hi"), types.Float(2.5), types.String("é"),
		},
		&b8, &h16, &i, &l, &s, &f, &c)
	require.NoError(t, err)
	assert.Equal(t, int8(1), b8)
	assert.Equal(t, int16(2), h16)
	assert.Equal(t, 3, i)
	assert.Equal(t, int64(4), l)
	assert.Equal(t, "hi", s)
	assert.Equal(t, 2.5, f)
	assert.Equal(t, 'é', c)
}

func TestUnpackFloatAcceptsInt(t *testing.T) {
	var f float64
	require.NoError(t, UnpackArgs("fn", "f", []types.Value{types.Int(7)}, &f))
	assert.Equal(t, 7.0, f)
}

func TestUnpackSkip(t *testing.T) {
	var i int
	err := UnpackArgs("fn", ".i", []types.Value{types.String("ignored"), types.Int(5)}, &i)
	require.NoError(t, err)
	assert.Equal(t, 5, i)
}

func TestUnpackOptional(t *testing.T) {
	var a int
	b := 99 // must stay untouched when omitted
	require.NoError(t, UnpackArgs("fn", "i|i", []types.Value{types.Int(1)}, &a, &b))
	assert.Equal(t, 1, a)
	assert.Equal(t, 99, b)

	require.NoError(t, UnpackArgs("fn", "i|i", []types.Value{types.Int(1), types.Int(2)}, &a, &b))
	assert.Equal(t, 2, b)

	err := UnpackArgs("fn", "i|i", nil, &a, &b)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 1")
}

func TestUnpackCounts(t *testing.T) {
	var a int
	err := UnpackArgs("fn", "i", []types.Value{types.Int(1), types.Int(2)}, &a)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at most 1")
}

func TestUnpackTyped(t *testing.T) {
	var v types.Value
	require.NoError(t, UnpackArgs("fn", "<si>", []types.Value{types.Int(3)}, &v))
	assert.Equal(t, types.Int(3), v)

	require.NoError(t, UnpackArgs("fn", "<si>", []types.Value{types.String("x")}, &v))
	assert.Equal(t, types.String("x"), v)

	err := UnpackArgs("fn", "<si>", []types.Value{types.Float(1)}, &v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `must be one of "si"`)

	// callable letter
	require.NoError(t, UnpackArgs("fn", "<x>", []types.Value{NewBuiltin("nb", nil)}, &v))
	// any
	require.NoError(t, UnpackArgs("fn", "<*>", []types.Value{types.Null}, &v))
	assert.Equal(t, types.Value(types.Null), v)

	// container letters
	require.NoError(t, UnpackArgs("fn", "<{}>", []types.Value{types.NewDict(0)}, &v))
	err = UnpackArgs("fn", "<{}>", []types.Value{types.NewList(nil)}, &v)
	require.Error(t, err)
}

func TestUnpackDestructure(t *testing.T) {
	var x, y int
	lst := types.NewList([]types.Value{types.Int(4), types.Int(5)})
	require.NoError(t, UnpackArgs("fn", "[i,i]", []types.Value{lst}, &x, &y))
	assert.Equal(t, 4, x)
	assert.Equal(t, 5, y)

	tup := types.NewTuple([]types.Value{types.Int(6), types.String("s")})
	var s string
	require.NoError(t, UnpackArgs("fn", "(i,s)", []types.Value{tup}, &x, &s))
	assert.Equal(t, 6, x)
	assert.Equal(t, "s", s)

	d := types.NewDict(2)
	require.NoError(t, d.SetKey("w", types.Int(10)))
	require.NoError(t, d.SetKey("h", types.Int(20)))
	var w, h int
	require.NoError(t, UnpackArgs("fn", "{w:i, h:i}", []types.Value{d}, &w, &h))
	assert.Equal(t, 10, w)
	assert.Equal(t, 20, h)

	err := UnpackArgs("fn", "{missing:i}", []types.Value{d}, &w)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `missing key "missing"`)

	err = UnpackArgs("fn", "[i,i,i]", []types.Value{lst}, &x, &y, &w)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 3 element(s)")
}

func TestUnpackErrorName(t *testing.T) {
	var i int
	err := UnpackArgs("ignored", "i:reported", []types.Value{types.String("no")}, &i)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reported:")
}

func TestUnpackTypeErrors(t *testing.T) {
	var i int
	err := UnpackArgs("fn", "i", []types.Value{types.String("x")}, &i)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be an int")

	var s string
	err = UnpackArgs("fn", "s", []types.Value{types.Int(1)}, &s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be a string")

	var c rune
	err = UnpackArgs("fn", "c", []types.Value{types.String("ab")}, &c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1-character")
}

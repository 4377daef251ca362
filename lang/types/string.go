package types

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// String is the type of a text string: an immutable sequence of bytes
// holding UTF-8 encoded text. Indexing and length are in code points, not
// bytes.
type String string

var (
	_ Value     = String("")
	_ Ordered   = String("")
	_ Indexable = String("")
	_ Sliceable = String("")
)

func (s String) String() string { return strconv.Quote(string(s)) }
func (s String) Type() string   { return "string" }
func (s String) Truth() bool    { return len(s) > 0 }

// Len returns the number of code points in the string.
func (s String) Len() int { return utf8.RuneCountInString(string(s)) }

// NumBytes returns the byte length of the string.
func (s String) NumBytes() int { return len(s) }

// ASCII reports whether every byte of the string is 7-bit.
func (s String) ASCII() bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// Index returns the i'th code point as a 1-rune string.
func (s String) Index(i int) Value {
	for _, r := range string(s) {
		if i == 0 {
			return String(r)
		}
		i--
	}
	return String("")
}

func (s String) Slice(start, end, step int) Value {
	runes := []rune(string(s))
	if step == 1 {
		return String(runes[start:end])
	}
	sign := signum(step)
	var sb strings.Builder
	for i := start; signum(end-i) == sign; i += step {
		sb.WriteRune(runes[i])
	}
	return String(sb.String())
}

func (s String) Cmp(y Value) (int, error) {
	ys, ok := y.(String)
	if !ok {
		return 0, NewTypeError("cannot compare string to %s", y.Type())
	}
	return strings.Compare(string(s), string(ys)), nil
}

// From Hacker's Delight, section 2.8. Returns +1, 0 or -1.
func signum64(x int64) int { return int(uint64(x>>63) | uint64(-x)>>63) }
func signum(x int) int     { return signum64(int64(x)) }

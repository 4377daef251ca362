package machine

import (
	"strings"
	"unicode/utf8"

	"github.com/evilcandy-lang/evilcandy/lang/types"
)

// UnpackArgs validates and converts the machine-level arguments of a
// built-in according to a format mini-language, writing the converted
// values through the out pointers.
//
// Scalar items: 'b', 'h', 'i', 'l' accept an int and write it through
// *int8, *int16, *int and *int64 respectively; 's' writes a string view
// through *string; 'c' a single codepoint through *rune; 'f' accepts int
// or float and writes through *float64; '.' skips the argument.
//
// A '|' marks the end of the mandatory arguments: later items leave their
// outputs untouched when the argument is not supplied.
//
// '<...>' matches a typed object pointer written through *types.Value; the
// letters between the angle brackets each admit one type: 's' string, 'c'
// size-1 string, 'i' int, 'f' float, 'b' bytes, 'z' complex, 'x' callable,
// 'r' range, '/' file, '*' anything, and '{', '[', '(' (or their closers)
// dict, list and tuple.
//
// '{key:F, ...}' destructures a dict argument by key; '[F, ...]' and
// '(F, ...)' destructure a list or tuple argument element-wise, each
// element converted per its nested item.
//
// A trailing ':name' overrides the name used in error messages.
func UnpackArgs(fname, format string, args []types.Value, out ...any) error {
	if i := strings.LastIndex(format, ":"); i >= 0 && !strings.ContainsAny(format[i:], ">}])") {
		fname = format[i+1:]
		format = format[:i]
	}

	u := unpacker{fname: fname, out: out}
	items, err := u.parseItems(format)
	if err != nil {
		return err
	}

	mandatory := 0
	for _, it := range items {
		if it.kind == itemOptional {
			break
		}
		mandatory++
	}
	if len(args) < mandatory {
		return types.NewTypeError("%s: expected at least %d argument(s), got %d", fname, mandatory, len(args))
	}

	argi := 0
	for _, it := range items {
		if it.kind == itemOptional {
			continue
		}
		if argi >= len(args) {
			break // optional outputs stay untouched
		}
		if err := u.apply(it, argi+1, args[argi]); err != nil {
			return err
		}
		argi++
	}
	if argi < len(args) {
		return types.NewTypeError("%s: expected at most %d argument(s), got %d", fname, argi, len(args))
	}
	return nil
}

type itemKind int

const (
	itemScalar itemKind = iota // b h i l s c f .
	itemTyped                  // <...>
	itemDict                   // {k:F,...}
	itemSeq                    // [F,...] or (F,...)
	itemOptional
)

type item struct {
	kind    itemKind
	ch      byte   // scalar selector
	types   string // letters of a typed item
	keys    []string
	sub     []item
	wantTup bool // itemSeq: tuple rather than list
}

type unpacker struct {
	fname string
	out   []any
	outi  int
}

func (u *unpacker) nextOut(what string) (any, error) {
	if u.outi >= len(u.out) {
		return nil, types.NewSystemError("%s: not enough output arguments for %s", u.fname, what)
	}
	o := u.out[u.outi]
	u.outi++
	return o, nil
}

func (u *unpacker) parseItems(format string) ([]item, error) {
	var items []item
	for i := 0; i < len(format); {
		c := format[i]
		switch c {
		case ' ', '\t':
			i++
		case '|':
			items = append(items, item{kind: itemOptional})
			i++
		case 'b', 'h', 'i', 'l', 's', 'c', 'f', '.':
			items = append(items, item{kind: itemScalar, ch: c})
			i++
		case '<':
			end := strings.IndexByte(format[i:], '>')
			if end < 0 {
				return nil, types.NewSystemError("%s: unterminated '<' in format", u.fname)
			}
			items = append(items, item{kind: itemTyped, types: format[i+1 : i+end]})
			i += end + 1
		case '{', '[', '(':
			closeIdx, err := u.matchClose(format, i)
			if err != nil {
				return nil, err
			}
			body := format[i+1 : closeIdx]
			var it item
			if c == '{' {
				it, err = u.parseDictItem(body)
			} else {
				it, err = u.parseSeqItem(body, c == '(')
			}
			if err != nil {
				return nil, err
			}
			items = append(items, it)
			i = closeIdx + 1
		default:
			return nil, types.NewSystemError("%s: invalid format character %q", u.fname, c)
		}
	}
	return items, nil
}

// matchClose finds the closing delimiter matching the opener at start,
// skipping nested groups and '<...>' runs.
func (u *unpacker) matchClose(format string, start int) (int, error) {
	pairs := map[byte]byte{'{': '}', '[': ']', '(': ')'}
	closer := pairs[format[start]]
	depth := 0
	for i := start; i < len(format); i++ {
		switch format[i] {
		case '<':
			if j := strings.IndexByte(format[i:], '>'); j >= 0 {
				i += j
			}
		case '{', '[', '(':
			depth++
		case '}', ']', ')':
			depth--
			if depth == 0 {
				if format[i] != closer {
					return 0, types.NewSystemError("%s: mismatched %q in format", u.fname, format[i])
				}
				return i, nil
			}
		}
	}
	return 0, types.NewSystemError("%s: unterminated %q in format", u.fname, format[start])
}

// splitTop splits s on commas at nesting depth zero.
func splitTop(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<':
			if j := strings.IndexByte(s[i:], '>'); j >= 0 {
				i += j
			}
		case '{', '[', '(':
			depth++
		case '}', ']', ')':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	if start < len(s) || len(parts) > 0 {
		parts = append(parts, s[start:])
	}
	return parts
}

func (u *unpacker) parseDictItem(body string) (item, error) {
	it := item{kind: itemDict}
	for _, part := range splitTop(body) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		colon := strings.IndexByte(part, ':')
		if colon < 0 {
			return it, types.NewSystemError("%s: dict format entry %q has no key", u.fname, part)
		}
		sub, err := u.parseItems(part[colon+1:])
		if err != nil {
			return it, err
		}
		if len(sub) != 1 {
			return it, types.NewSystemError("%s: dict format entry %q must have one item", u.fname, part)
		}
		it.keys = append(it.keys, strings.TrimSpace(part[:colon]))
		it.sub = append(it.sub, sub[0])
	}
	return it, nil
}

func (u *unpacker) parseSeqItem(body string, wantTup bool) (item, error) {
	it := item{kind: itemSeq, wantTup: wantTup}
	for _, part := range splitTop(body) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		sub, err := u.parseItems(part)
		if err != nil {
			return it, err
		}
		if len(sub) != 1 {
			return it, types.NewSystemError("%s: sequence format entry %q must have one item", u.fname, part)
		}
		it.sub = append(it.sub, sub[0])
	}
	return it, nil
}

// apply converts one argument per its item; argn is 1-based for error
// reporting.
func (u *unpacker) apply(it item, argn int, v types.Value) error {
	switch it.kind {
	case itemScalar:
		return u.applyScalar(it.ch, argn, v)

	case itemTyped:
		o, err := u.nextOut("typed argument")
		if err != nil {
			return err
		}
		p, ok := o.(*types.Value)
		if !ok {
			return types.NewSystemError("%s: typed argument output must be *Value", u.fname)
		}
		if !typeMatches(it.types, v) {
			return types.NewTypeError("%s: argument %d must be one of %q, got %s", u.fname, argn, it.types, v.Type())
		}
		*p = v
		return nil

	case itemDict:
		d, ok := v.(*types.Dict)
		if !ok {
			return types.NewTypeError("%s: argument %d must be a dict, got %s", u.fname, argn, v.Type())
		}
		for i, k := range it.keys {
			ev, found := d.Get(k)
			if !found {
				return types.NewTypeError("%s: argument %d is missing key %q", u.fname, argn, k)
			}
			if err := u.apply(it.sub[i], argn, ev); err != nil {
				return err
			}
		}
		return nil

	case itemSeq:
		var seq types.Indexable
		if it.wantTup {
			t, ok := v.(*types.Tuple)
			if !ok {
				return types.NewTypeError("%s: argument %d must be a tuple, got %s", u.fname, argn, v.Type())
			}
			seq = t
		} else {
			l, ok := v.(*types.List)
			if !ok {
				return types.NewTypeError("%s: argument %d must be a list, got %s", u.fname, argn, v.Type())
			}
			seq = l
		}
		if seq.Len() < len(it.sub) {
			return types.NewTypeError("%s: argument %d must have at least %d element(s), got %d",
				u.fname, argn, len(it.sub), seq.Len())
		}
		for i, sub := range it.sub {
			if err := u.apply(sub, argn, seq.Index(i)); err != nil {
				return err
			}
		}
		return nil
	}
	return types.NewSystemError("%s: invalid format item", u.fname)
}

func (u *unpacker) applyScalar(ch byte, argn int, v types.Value) error {
	if ch == '.' {
		return nil // skipped, no output consumed
	}
	o, err := u.nextOut(string(ch))
	if err != nil {
		return err
	}

	switch ch {
	case 'b', 'h', 'i', 'l':
		iv, ok := v.(types.Int)
		if !ok {
			return types.NewTypeError("%s: argument %d must be an int, got %s", u.fname, argn, v.Type())
		}
		switch p := o.(type) {
		case *int8:
			*p = int8(iv)
		case *int16:
			*p = int16(iv)
		case *int:
			*p = int(iv)
		case *int64:
			*p = int64(iv)
		default:
			return types.NewSystemError("%s: integer output must be *int8/*int16/*int/*int64", u.fname)
		}
		return nil

	case 's':
		sv, ok := v.(types.String)
		if !ok {
			return types.NewTypeError("%s: argument %d must be a string, got %s", u.fname, argn, v.Type())
		}
		p, ok := o.(*string)
		if !ok {
			return types.NewSystemError("%s: string output must be *string", u.fname)
		}
		*p = string(sv)
		return nil

	case 'c':
		sv, ok := v.(types.String)
		if !ok || sv.Len() != 1 {
			return types.NewTypeError("%s: argument %d must be a 1-character string", u.fname, argn)
		}
		p, ok := o.(*rune)
		if !ok {
			return types.NewSystemError("%s: codepoint output must be *rune", u.fname)
		}
		r, _ := utf8.DecodeRuneInString(string(sv))
		*p = r
		return nil

	case 'f':
		p, ok := o.(*float64)
		if !ok {
			return types.NewSystemError("%s: float output must be *float64", u.fname)
		}
		switch v := v.(type) {
		case types.Float:
			*p = float64(v)
		case types.Int:
			*p = float64(v)
		default:
			return types.NewTypeError("%s: argument %d must be a number, got %s", u.fname, argn, v.Type())
		}
		return nil
	}
	return types.NewSystemError("%s: invalid scalar %q", u.fname, ch)
}

// typeMatches reports whether v matches any of the type letters of a
// '<...>' item.
func typeMatches(letters string, v types.Value) bool {
	for i := 0; i < len(letters); i++ {
		switch letters[i] {
		case '*':
			return true
		case 's':
			if _, ok := v.(types.String); ok {
				return true
			}
		case 'c':
			if s, ok := v.(types.String); ok && s.Len() == 1 {
				return true
			}
		case 'i':
			if _, ok := v.(types.Int); ok {
				return true
			}
		case 'f':
			if _, ok := v.(types.Float); ok {
				return true
			}
		case 'b':
			if _, ok := v.(types.Bytes); ok {
				return true
			}
		case 'z':
			if _, ok := v.(types.Complex); ok {
				return true
			}
		case 'x':
			switch v.(type) {
			case *Function, *Builtin, *Method:
				return true
			}
		case 'r':
			if _, ok := v.(*types.Range); ok {
				return true
			}
		case '/':
			if _, ok := v.(*File); ok {
				return true
			}
		case '{', '}':
			if _, ok := v.(*types.Dict); ok {
				return true
			}
		case '[', ']':
			if _, ok := v.(*types.List); ok {
				return true
			}
		case '(', ')':
			if _, ok := v.(*types.Tuple); ok {
				return true
			}
		}
	}
	return false
}

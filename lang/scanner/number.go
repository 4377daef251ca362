package scanner

import (
	"errors"
	"strconv"

	"github.com/evilcandy-lang/evilcandy/lang/token"
)

// maximum number of digits accepted in the radix-prefixed integer forms.
const (
	maxHexDigits = 16
	maxBinDigits = 64
)

// number scans an integer or float literal. Integer literals are decimal,
// 0x hexadecimal or 0b binary; float literals have an optional integer
// part, an optional fraction and an optional exponent. Suffixes are
// rejected.
func (s *Scanner) number(tokVal *token.Value, pos token.Pos) token.Token {
	start := s.off
	tok := token.INT
	base := 10
	invalid := -1 // offset of the first digit >= base, or < 0

	if s.cur != '.' {
		if s.cur == '0' {
			s.advance()
			switch lower(s.cur) {
			case 'x':
				s.advance()
				base = 16
			case 'b':
				s.advance()
				base = 2
			}
		}
		n := s.digits(base, &invalid)
		switch {
		case base == 16:
			if n == 0 {
				s.error(start, "hexadecimal literal has no digits")
			} else if n > maxHexDigits {
				s.error(start, "hexadecimal literal has too many digits")
			}
		case base == 2:
			if n == 0 {
				s.error(start, "binary literal has no digits")
			} else if n > maxBinDigits {
				s.error(start, "binary literal has too many digits")
			}
		}
	}

	if base == 10 {
		// fractional part
		if s.cur == '.' {
			tok = token.FLOAT
			s.advance()
			s.digits(10, nil)
		}
		// exponent
		if lower(s.cur) == 'e' {
			tok = token.FLOAT
			s.advance()
			if s.cur == '+' || s.cur == '-' {
				s.advance()
			}
			if s.digits(10, nil) == 0 {
				s.error(s.off, "exponent has no digits")
			}
		}
	}

	// a trailing letter or digit is a rejected suffix
	if isLetter(s.cur) || isDigit(s.cur) {
		s.errorf(s.off, "invalid suffix %q on number literal", s.cur)
		for isLetter(s.cur) || isDigit(s.cur) {
			s.advance()
		}
	}

	lit := string(s.src[start:s.off])
	if tok == token.INT && invalid >= 0 {
		s.errorf(invalid, "invalid digit %q in %s", rune(s.src[invalid]), litname(base))
	}
	*tokVal = token.Value{Raw: lit, Pos: pos}
	if tok == token.INT {
		v, err := intValue(lit, base)
		if err != nil && errors.Is(err, strconv.ErrRange) {
			// syntax errors would have already generated an error, but not range
			s.error(start, "integer literal value out of range")
		}
		tokVal.Int = v
	} else {
		v, err := strconv.ParseFloat(lit, 64)
		if err != nil && errors.Is(err, strconv.ErrRange) {
			s.error(start, "float literal value out of range")
		}
		tokVal.Float = v
	}
	return tok
}

// digits consumes a run of digits and returns how many were consumed. For
// base <= 10 any decimal digit is accepted, so that a malformed literal is
// consumed as one token, but the offset of the first digit >= base is
// recorded in *invalid.
func (s *Scanner) digits(base int, invalid *int) (n int) {
	if base <= 10 {
		max := rune('0' + base)
		for isDecimal(s.cur) {
			if s.cur >= max && invalid != nil && *invalid < 0 {
				*invalid = s.off
			}
			s.advance()
			n++
		}
	} else {
		for isHexadecimal(s.cur) {
			s.advance()
			n++
		}
	}
	return n
}

func litname(base int) string {
	switch base {
	case 16:
		return "hexadecimal literal"
	case 2:
		return "binary literal"
	}
	return "decimal literal"
}

func isDecimal(rn rune) bool {
	return '0' <= rn && rn <= '9'
}

func isHexadecimal(rn rune) bool {
	return isDecimal(rn) ||
		'a' <= rn && rn <= 'f' ||
		'A' <= rn && rn <= 'F'
}

func lower(ch rune) rune {
	return ('a' - 'A') | ch // returns lower-case ch iff ch is ASCII letter
}

func intValue(lit string, base int) (int64, error) {
	if base != 10 {
		// radix-prefixed forms express the raw 64-bit pattern, so 0xffffffffffffffff
		// is a valid (negative) int
		u, err := strconv.ParseUint(lit[2:], base, 64)
		return int64(u), err
	}
	return strconv.ParseInt(lit, base, 64)
}

func digitVal(rn rune) int {
	switch {
	case '0' <= rn && rn <= '9':
		return int(rn - '0')
	case 'a' <= rn && rn <= 'f':
		return int(rn - 'a' + 10)
	case 'A' <= rn && rn <= 'F':
		return int(rn - 'A' + 10)
	}
	return 16 // larger than any legal digit val
}

// Some of the scanner package is adapted from the Go source code:
// https://cs.opensource.google/go/go/+/refs/tags/go1.22.1:src/go/scanner/scanner.go
//
// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package scanner tokenizes EvilCandy source files for the assembler to
// consume.
package scanner

import (
	"bytes"
	"fmt"
	"go/scanner"
	gotoken "go/token"
	"unicode/utf8"

	"github.com/evilcandy-lang/evilcandy/lang/token"
)

type (
	Error     = scanner.Error
	ErrorList = scanner.ErrorList

	// Position is the position type used for scan error reporting.
	Position = gotoken.Position
)

var PrintError = scanner.PrintError

// Scanner tokenizes a source file. Use Init to prepare it and Scan to
// produce the next token.
type Scanner struct {
	// immutable state after Init
	filename string
	src      []byte
	err      func(pos gotoken.Position, msg string)

	// mutable scanning state
	sb          bytes.Buffer // decoded literal values accumulate here
	invalidByte byte         // when cur==RuneError due to failed utf8 decode, this is the invalid byte
	cur         rune         // current character
	off         int          // byte offset of cur
	roff        int          // reading offset (position after current character)
	line, col   int          // 1-based position of cur
}

// byte order mark, only permitted as very first characters
var bom = [2]byte{0xEF, 0xBB}

// Init initializes the scanner to tokenize a new file.
func (s *Scanner) Init(filename string, src []byte, errHandler func(gotoken.Position, string)) {
	s.filename = filename
	s.src = src
	s.err = errHandler

	s.sb.Reset()
	s.invalidByte = 0
	s.cur = ' '
	s.off = 0
	s.roff = 0
	s.line = 1
	s.col = 0

	// skip initial BOM if present
	if len(src) >= 3 && bytes.Equal(src[:2], bom[:]) && src[2] == 0xBF {
		s.roff += 3
	}
	s.advance()
}

// peek returns the byte following the most recently read character without
// advancing the scanner. If the scanner is at EOF, peek returns 0.
func (s *Scanner) peek() byte {
	if s.roff < len(s.src) {
		return s.src[s.roff]
	}
	return 0
}

// read the next Unicode char into s.cur; s.cur < 0 means end-of-file.
func (s *Scanner) advance() {
	if s.roff >= len(s.src) {
		s.off = len(s.src)
		s.cur = -1
		return
	}

	s.off = s.roff
	if s.cur == '\n' {
		s.line++
		s.col = 0
	}

	// fast path if the rune is an ASCII char, no decoding necessary
	s.invalidByte = 0
	r, w := rune(s.src[s.roff]), 1
	if r >= utf8.RuneSelf {
		// not ASCII
		r, w = utf8.DecodeRune(s.src[s.roff:])
		if r == utf8.RuneError && w == 1 {
			s.error(s.off, "illegal UTF-8 encoding")
			// store the actual invalid byte
			s.invalidByte = s.src[s.roff]
		}
	}
	s.roff += w
	s.cur = r
	s.col++
}

func (s *Scanner) error(off int, msg string) {
	if s.err != nil {
		// line and column are those of off, which may precede cur
		line, lineStart := 1, 0
		if i := bytes.LastIndexByte(s.src[:off], '\n'); i >= 0 {
			line += bytes.Count(s.src[:i], []byte{'\n'}) + 1
			lineStart = i + 1
		} else if off >= 3 && bytes.HasPrefix(s.src, []byte{0xEF, 0xBB, 0xBF}) {
			lineStart = 3 // the BOM takes no column
		}
		s.err(gotoken.Position{
			Filename: s.filename,
			Offset:   off,
			Line:     line,
			Column:   utf8.RuneCount(s.src[lineStart:off]) + 1,
		}, msg)
	}
}

func (s *Scanner) errorf(off int, format string, args ...any) {
	s.error(off, fmt.Sprintf(format, args...))
}

// advance only if the current char matches any of the specified ones.
func (s *Scanner) advanceIf(matches ...byte) bool {
	if s.cur >= 0 && s.cur < utf8.RuneSelf && bytes.IndexByte(matches, byte(s.cur)) >= 0 {
		s.advance()
		return true
	}
	return false
}

// Scan returns the next token in the source file. Comments and whitespace
// are silently consumed.
func (s *Scanner) Scan(tokVal *token.Value) (tok token.Token) {
	s.skipSpaceAndComments()

	// current token start
	pos := token.MakePos(s.line, s.col)
	start := s.off

	switch cur := s.cur; {
	case isLetter(cur):
		// keywords, identifiers, and the b"..." bytes prefix
		if cur == 'b' && (s.peek() == '"' || s.peek() == '\'') {
			s.advance() // consume 'b'
			opening := s.cur
			s.advance() // consume the quote
			tok = token.BYTES
			val := s.stringLit(byte(opening))
			*tokVal = token.Value{Raw: string(s.src[start:s.off]), Pos: pos, Str: val}
			break
		}
		lit := s.ident()
		tok = token.IDENT
		if len(lit) > 1 {
			// keywords are longer than one letter - avoid lookup otherwise
			tok = token.LookupKw(lit)
		}
		*tokVal = token.Value{Raw: lit, Pos: pos}

	case isDecimal(cur) || cur == '.' && isDecimal(rune(s.peek())):
		tok = s.number(tokVal, pos)

	default:
		// keywords, identifiers and numbers are done

		s.advance() // always make progress
		switch cur {
		case '"', '\'':
			tok = token.STRING
			val := s.stringLit(byte(cur))
			// adjacent string literals concatenate
			for {
				s.skipSpaceAndComments()
				if s.cur != '"' && s.cur != '\'' {
					break
				}
				opening := s.cur
				s.advance()
				val += s.stringLit(byte(opening))
			}
			*tokVal = token.Value{Raw: string(s.src[start:s.off]), Pos: pos, Str: val}

		case '`':
			// the lambda token is two backquotes
			if !s.advanceIf('`') {
				s.error(start, "unrecognized token '`'")
				tok = token.ILLEGAL
				*tokVal = token.Value{Raw: "`", Pos: pos}
				break
			}
			tok = token.LAMBDA
			*tokVal = token.Value{Raw: tok.String(), Pos: pos}

		case '(', ')', '[', ']', '{', '}', ',', ';', ':', '.', '~':
			// unambiguous single-char punctuation
			tok = token.LookupPunct(string(cur))
			*tokVal = token.Value{Raw: tok.String(), Pos: pos}

		case '=', '!', '%', '^':
			// can be followed by '=' and nothing else
			if s.advanceIf('=') {
				tok = token.LookupPunct(string(s.src[start:s.off]))
			} else {
				tok = token.LookupPunct(string(cur))
			}
			*tokVal = token.Value{Raw: tok.String(), Pos: pos}

		case '+', '-', '&', '|', '*':
			// can be doubled, or followed by '=' (but not both)
			if !s.advanceIf(byte(cur)) {
				s.advanceIf('=')
			}
			tok = token.LookupPunct(string(s.src[start:s.off]))
			*tokVal = token.Value{Raw: tok.String(), Pos: pos}

		case '/':
			// '/' or '/=' (comments were consumed by skipSpaceAndComments)
			tok = token.SLASH
			if s.advanceIf('=') {
				tok = token.SLASH_EQ
			}
			*tokVal = token.Value{Raw: tok.String(), Pos: pos}

		case '<', '>':
			// '<', '<<', '<=', '<<=' and the '>' forms
			s.advanceIf(byte(cur))
			s.advanceIf('=')
			tok = token.LookupPunct(string(s.src[start:s.off]))
			*tokVal = token.Value{Raw: tok.String(), Pos: pos}

		case -1:
			tok = token.EOF
			*tokVal = token.Value{Raw: "", Pos: pos}

		default:
			if cur == utf8.RuneError && s.invalidByte > 0 {
				cur = rune(s.invalidByte)
				s.invalidByte = 0
			}
			s.errorf(start, "illegal character %#U", cur)
			tok = token.ILLEGAL
			*tokVal = token.Value{Raw: string(cur), Pos: pos}
		}
	}
	return tok
}

func (s *Scanner) ident() string {
	start := s.off
	for isLetter(s.cur) || isDigit(s.cur) {
		s.advance()
	}
	return string(s.src[start:s.off])
}

// skipSpaceAndComments consumes whitespace and the three comment forms:
// '//' and '#' to end of line, and '/* ... */'.
func (s *Scanner) skipSpaceAndComments() {
	for {
		for isWhitespace(s.cur) {
			s.advance()
		}
		switch {
		case s.cur == '#':
			for s.cur != '\n' && s.cur != -1 {
				s.advance()
			}
		case s.cur == '/' && s.peek() == '/':
			for s.cur != '\n' && s.cur != -1 {
				s.advance()
			}
		case s.cur == '/' && s.peek() == '*':
			start := s.off
			s.advance() // '/'
			s.advance() // '*'
			for {
				if s.cur == -1 {
					s.error(start, "block comment not terminated")
					return
				}
				if s.cur == '*' && s.peek() == '/' {
					s.advance()
					s.advance()
					break
				}
				s.advance()
			}
		default:
			return
		}
	}
}

func isWhitespace(rn rune) bool {
	return rn == ' ' || rn == '\t' || rn == '\n' || rn == '\r'
}

func isLetter(rn rune) bool {
	return 'a' <= rn && rn <= 'z' ||
		'A' <= rn && rn <= 'Z' ||
		rn == '_'
}

func isDigit(rn rune) bool {
	return '0' <= rn && rn <= '9'
}

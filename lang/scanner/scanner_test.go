package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evilcandy-lang/evilcandy/lang/token"
)

// scanAll tokenizes src and returns the tokens up to and excluding EOF,
// along with the collected scan errors.
func scanAll(t *testing.T, src string) ([]TokenAndValue, ErrorList) {
	t.Helper()
	var (
		s      Scanner
		tokVal token.Value
		el     ErrorList
		toks   []TokenAndValue
	)
	s.Init("test.evc", []byte(src), el.Add)
	for {
		tok := s.Scan(&tokVal)
		if tok == token.EOF {
			break
		}
		toks = append(toks, TokenAndValue{Token: tok, Value: tokVal})
		if len(toks) > 1000 {
			t.Fatal("scanner makes no progress")
		}
	}
	return toks, el
}

func kinds(toks []TokenAndValue) []token.Token {
	out := make([]token.Token, len(toks))
	for i, tv := range toks {
		out[i] = tv.Token
	}
	return out
}

func TestScanKinds(t *testing.T) {
	cases := []struct {
		src  string
		want []token.Token
	}{
		{"", []token.Token{}},
		{"let x = 1;", []token.Token{token.LET, token.IDENT, token.EQ, token.INT, token.SEMI}},
		{"x += y ** 2", []token.Token{token.IDENT, token.PLUS_EQ, token.IDENT, token.STARSTAR, token.INT}},
		{"a << 1 >> 2 <<= >>=", []token.Token{
			token.IDENT, token.LTLT, token.INT, token.GTGT, token.INT, token.LTLT_EQ, token.GTGT_EQ}},
		{"a++ - --b", []token.Token{token.IDENT, token.PLUSPLUS, token.MINUS, token.MINUSMINUS, token.IDENT}},
		{"!x && y || ~z", []token.Token{
			token.BANG, token.IDENT, token.ANDAND, token.IDENT, token.PIPEPIPE, token.TILDE, token.IDENT}},
		{"a.b[c](d)", []token.Token{
			token.IDENT, token.DOT, token.IDENT, token.LBRACK, token.IDENT, token.RBRACK,
			token.LPAREN, token.IDENT, token.RPAREN}},
		{"``(x) x*x``", []token.Token{
			token.LAMBDA, token.LPAREN, token.IDENT, token.RPAREN,
			token.IDENT, token.STAR, token.IDENT, token.LAMBDA}},
		{"{p: 1, 'q': 2}", []token.Token{
			token.LBRACE, token.IDENT, token.COLON, token.INT, token.COMMA,
			token.STRING, token.COLON, token.INT, token.RBRACE}},
		// comments are silently consumed
		{"a // rest of line\nb", []token.Token{token.IDENT, token.IDENT}},
		{"a # rest of line\nb", []token.Token{token.IDENT, token.IDENT}},
		{"a /* span\nlines */ b", []token.Token{token.IDENT, token.IDENT}},
		{"1 <= 2 >= 3 == 4 != 5", []token.Token{
			token.INT, token.LE, token.INT, token.GE, token.INT,
			token.EQEQ, token.INT, token.NEQ, token.INT}},
	}
	for _, c := range cases {
		t.Run(c.src, func(t *testing.T) {
			toks, el := scanAll(t, c.src)
			require.NoError(t, el.Err())
			assert.Equal(t, c.want, kinds(toks))
		})
	}
}

func TestScanNumbers(t *testing.T) {
	cases := []struct {
		src     string
		tok     token.Token
		i       int64
		f       float64
		errLike string
	}{
		{"0", token.INT, 0, 0, ""},
		{"123", token.INT, 123, 0, ""},
		{"0x7b", token.INT, 123, 0, ""},
		{"0xFF", token.INT, 255, 0, ""},
		{"0b1111011", token.INT, 123, 0, ""},
		{"0xffffffffffffffff", token.INT, -1, 0, ""},
		{"1.5", token.FLOAT, 0, 1.5, ""},
		{".5", token.FLOAT, 0, 0.5, ""},
		{"2.", token.FLOAT, 0, 2, ""},
		{"1e3", token.FLOAT, 0, 1000, ""},
		{"1.5e-3", token.FLOAT, 0, 0.0015, ""},
		{"2E+2", token.FLOAT, 0, 200, ""},
		{"0x", token.INT, 0, 0, "hexadecimal literal has no digits"},
		{"0x12345678123456789", token.INT, 0, 0, "hexadecimal literal has too many digits"},
		{"0b", token.INT, 0, 0, "binary literal has no digits"},
		{"0b012", token.INT, 0, 0, "invalid digit '2' in binary literal"},
		{"0b19", token.INT, 0, 0, "invalid digit '9' in binary literal"},
		{"1e", token.FLOAT, 0, 0, "exponent has no digits"},
		{"123abc", token.INT, 0, 0, "invalid suffix"},
		{"9223372036854775808", token.INT, 0, 0, "out of range"},
	}
	for _, c := range cases {
		t.Run(c.src, func(t *testing.T) {
			toks, el := scanAll(t, c.src)
			require.NotEmpty(t, toks)
			assert.Equal(t, c.tok, toks[0].Token)
			if c.errLike == "" {
				require.NoError(t, el.Err())
				if c.tok == token.INT {
					assert.Equal(t, c.i, toks[0].Value.Int)
				} else {
					assert.Equal(t, c.f, toks[0].Value.Float)
				}
			} else {
				require.Error(t, el.Err())
				assert.Contains(t, el.Err().Error(), c.errLike)
			}
		})
	}
}

func TestScanStrings(t *testing.T) {
	cases := []struct {
		src     string
		tok     token.Token
		want    string
		errLike string
	}{
		{`"hello"`, token.STRING, "hello", ""},
		{`'hello'`, token.STRING, "hello", ""},
		{`"it's"`, token.STRING, "it's", ""},
		{`'say "hi"'`, token.STRING, `say "hi"`, ""},
		{`"a\tb\nc"`, token.STRING, "a\tb\nc", ""},
		{`"\a\b\e\f\r\v\\\'\""`, token.STRING, "\a\b\x1b\f\r\v\\'\"", ""},
		{`"\101\102"`, token.STRING, "AB", ""},
		{`"\x41\x4a"`, token.STRING, "AJ", ""},
		{`"\x4a"`, token.STRING, "J", ""},
		{`"é"`, token.STRING, "é", ""},
		{`"\U0001F600"`, token.STRING, "\U0001F600", ""},
		{"\"a\\\nb\"", token.STRING, "ab", ""}, // line continuation
		{`"adjacent" ' literals' " concatenate"`, token.STRING, "adjacent literals concatenate", ""},
		{`b"bytes"`, token.BYTES, "bytes", ""},
		{`b'\x00\xff'`, token.BYTES, "\x00\xff", ""},
		{`"unterminated`, token.STRING, "", "string literal not terminated"},
		{`"bad \q escape"`, token.STRING, "", "unknown escape sequence"},
		{`"\u12"`, token.STRING, "", "illegal character"},
		{`"\777"`, token.STRING, "", "octal escape value out of range"},
	}
	for _, c := range cases {
		t.Run(c.src, func(t *testing.T) {
			toks, el := scanAll(t, c.src)
			require.NotEmpty(t, toks)
			assert.Equal(t, c.tok, toks[0].Token)
			if c.errLike == "" {
				require.NoError(t, el.Err())
				assert.Equal(t, c.want, toks[0].Value.Str)
			} else {
				require.Error(t, el.Err())
				assert.Contains(t, el.Err().Error(), c.errLike)
			}
		})
	}
}

func TestScanPositions(t *testing.T) {
	toks, el := scanAll(t, "let x\n  = 42;")
	require.NoError(t, el.Err())
	require.Len(t, toks, 5)

	wantPos := [][2]int{{1, 1}, {1, 5}, {2, 3}, {2, 5}, {2, 7}}
	for i, tv := range toks {
		l, c := tv.Value.Pos.LineCol()
		assert.Equal(t, wantPos[i][0], l, "token %d line", i)
		assert.Equal(t, wantPos[i][1], c, "token %d col", i)
	}
}

func TestStreamUngetSaveRestore(t *testing.T) {
	st := NewStream("test.evc", []byte("a b c d"), nil)

	tv := st.Next()
	assert.Equal(t, "a", tv.Value.Raw)

	// unget by one
	st.Unget()
	tv = st.Next()
	assert.Equal(t, "a", tv.Value.Raw)

	// save, advance, restore
	pos := st.Save()
	assert.Equal(t, "b", st.Next().Value.Raw)
	assert.Equal(t, "c", st.Next().Value.Raw)
	st.Restore(pos)
	assert.Equal(t, "b", st.Next().Value.Raw)

	// peek does not consume
	assert.Equal(t, "c", st.Peek().Value.Raw)
	assert.Equal(t, "c", st.Next().Value.Raw)
	assert.Equal(t, "d", st.Next().Value.Raw)

	// EOF is sticky
	assert.Equal(t, token.EOF, st.Next().Token)
	assert.Equal(t, token.EOF, st.Next().Token)
}

func TestScanIllegal(t *testing.T) {
	toks, el := scanAll(t, "a @ b")
	require.Error(t, el.Err())
	assert.Contains(t, el.Err().Error(), "illegal character")
	require.Len(t, toks, 3)
	assert.Equal(t, token.ILLEGAL, toks[1].Token)

	_, el = scanAll(t, "`x")
	require.Error(t, el.Err())
	assert.Contains(t, el.Err().Error(), "unrecognized token")
}

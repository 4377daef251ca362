package scanner

import (
	"context"
	"os"

	"github.com/evilcandy-lang/evilcandy/lang/token"
)

// TokenAndValue combines the token type with the token value type in the same
// struct.
type TokenAndValue struct {
	Token token.Token
	Value token.Value
}

// A Stream is a resumable view over a scanner's tokens. The assembler
// consumes tokens through it so that it can back up by one token (Unget)
// and save/restore its position when it needs to scan a region twice, such
// as a for loop's step clause.
type Stream struct {
	s    Scanner
	toks []TokenAndValue // tokens scanned so far
	at   int             // index of the next token to return
	eof  bool
}

// NewStream returns a stream of the tokens of src. Scan errors are reported
// through errHandler as they are encountered.
func NewStream(filename string, src []byte, errHandler func(pos Position, msg string)) *Stream {
	st := &Stream{}
	st.s.Init(filename, src, errHandler)
	return st
}

// Next returns the next token in the stream. Once EOF is reached it is
// returned forever.
func (st *Stream) Next() TokenAndValue {
	if st.at == len(st.toks) {
		if st.eof {
			return st.toks[len(st.toks)-1]
		}
		var tv TokenAndValue
		tv.Token = st.s.Scan(&tv.Value)
		st.toks = append(st.toks, tv)
		if tv.Token == token.EOF {
			st.eof = true
		}
	}
	tv := st.toks[st.at]
	if !(st.eof && st.at == len(st.toks)-1) {
		st.at++
	}
	return tv
}

// Peek returns the next token without consuming it.
func (st *Stream) Peek() TokenAndValue {
	tv := st.Next()
	st.Unget()
	return tv
}

// Unget backs the stream up by one token, so that the next call to Next
// returns the same token again. It panics if the stream is at the start.
func (st *Stream) Unget() {
	if st.at == 0 {
		panic("scanner: Unget past start of stream")
	}
	if st.eof && st.at == len(st.toks)-1 {
		// EOF is sticky, the position did not advance
		return
	}
	st.at--
}

// Pos is an opaque stream position for use with Restore.
type Pos int

// Save returns the current position of the stream.
func (st *Stream) Save() Pos { return Pos(st.at) }

// Restore rewinds (or forwards) the stream to a previously saved position.
func (st *Stream) Restore(p Pos) { st.at = int(p) }

// ScanFiles is a helper function that tokenizes the source files and returns
// the list of tokens, grouped by the file at the same index, and produces any
// error encountered. The error, if non-nil, is either the context's error
// or an ErrorList sorted by position.
func ScanFiles(ctx context.Context, files ...string) ([][]TokenAndValue, error) {
	if len(files) == 0 {
		return nil, nil
	}

	var (
		s      Scanner
		tokVal token.Value
		el     ErrorList
	)

	tokensByFile := make([][]TokenAndValue, len(files))
	for i, file := range files {
		if err := ctx.Err(); err != nil {
			return tokensByFile, err
		}
		b, err := os.ReadFile(file)
		if err != nil {
			el.Add(Position{Filename: file}, err.Error())
			continue
		}

		s.Init(file, b, el.Add)
		for {
			tok := s.Scan(&tokVal)
			tokensByFile[i] = append(tokensByFile[i], TokenAndValue{
				Token: tok,
				Value: tokVal,
			})
			if tok == token.EOF {
				break
			}
		}
	}
	el.Sort()
	return tokensByFile, el.Err()
}

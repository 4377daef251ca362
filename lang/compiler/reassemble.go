package compiler

import (
	"bufio"
	"bytes"
	"strconv"
	"strings"

	"github.com/evilcandy-lang/evilcandy/lang/types"
)

// Reassemble parses the textual form produced by Dasm (or written by hand)
// and produces the same in-memory tree as serializing then deserializing
// would. Rejections are syntax errors; those found while reading a line
// carry its line number.
func Reassemble(b []byte) (*Executable, error) {
	ra := &reasm{s: bufio.NewScanner(bytes.NewReader(b))}

	ra.header()
	for ra.err == nil && ra.nextLine() {
		ra.exec()
	}
	if ra.err != nil {
		return nil, ra.err
	}
	if len(ra.exs) == 0 {
		return nil, types.NewError(types.SyntaxError, "missing entry-point executable")
	}
	if err := resolveUUIDs(ra.exs); err != nil {
		if e, ok := err.(*types.Error); ok {
			e.Kind = types.SyntaxError
		}
		return nil, err
	}
	return ra.exs[0], nil
}

type reasm struct {
	s      *bufio.Scanner
	line   int
	fields []string
	raw    string

	fileName string
	exs      []*Executable
	err      error
}

func (ra *reasm) failf(format string, args ...any) {
	if ra.err == nil {
		e := types.NewError(types.SyntaxError, format, args...)
		e.Line = ra.line
		ra.err = e
	}
}

// nextLine advances to the next non-empty, non-comment line, splitting it
// into fields. It returns false at the end of input.
func (ra *reasm) nextLine() bool {
	if ra.err != nil {
		return false
	}
	for ra.s.Scan() {
		ra.line++
		line := ra.s.Text()
		// a '#' starts a comment unless it is inside a quoted value
		inQuote := false
		for i := 0; i < len(line); i++ {
			switch c := line[i]; {
			case inQuote && c == '\\':
				i++
			case c == '"':
				inQuote = !inQuote
			case c == '#' && !inQuote:
				line = line[:i]
			}
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		ra.fields = fields
		ra.raw = line
		return true
	}
	if err := ra.s.Err(); err != nil {
		ra.err = err
	}
	return false
}

func (ra *reasm) header() {
	if !ra.nextLine() {
		ra.failf("missing .evilcandy header")
		return
	}
	if ra.fields[0] != ".evilcandy" || len(ra.fields) < 2 {
		ra.failf("expected .evilcandy header, found %s", ra.fields[0])
		return
	}
	name, err := strconv.Unquote(ra.fields[1])
	if err != nil {
		ra.failf("invalid file name %s: %s", ra.fields[1], err)
		return
	}
	ra.fileName = name
	if len(ra.fields) > 2 {
		v, err := strconv.ParseUint(ra.fields[2], 10, 16)
		if err != nil {
			ra.failf("invalid version %s", ra.fields[2])
			return
		}
		if v > Version {
			ra.failf("unsupported version %d", v)
		}
	}
}

// exec parses one .start/.end block; the current line is its .start line.
func (ra *reasm) exec() {
	if ra.fields[0] != ".start" || len(ra.fields) != 3 {
		ra.failf("expected .start, found %s", ra.fields[0])
		return
	}
	line, err := strconv.Atoi(ra.fields[2])
	if err != nil {
		ra.failf("invalid line number %s", ra.fields[2])
		return
	}
	ex := &Executable{
		UUID:     ra.fields[1],
		FileName: ra.fileName,
		FileLine: line,
	}

	for ra.nextLine() {
		switch ra.fields[0] {
		case ".end":
			ra.exs = append(ra.exs, ex)
			return
		case ".rodata":
			ra.rodata(ex)
		case ".label":
			if len(ra.fields) != 2 {
				ra.failf("expected one .label operand, got %d", len(ra.fields)-1)
				return
			}
			l, err := strconv.ParseUint(ra.fields[1], 10, 16)
			if err != nil {
				ra.failf("invalid label %s", ra.fields[1])
				return
			}
			ex.Labels = append(ex.Labels, uint16(l))
		case ".start":
			ra.failf("missing .end before .start")
			return
		default:
			ra.instr(ex)
		}
		if ra.err != nil {
			return
		}
	}
	ra.failf("missing .end")
}

func (ra *reasm) rodata(ex *Executable) {
	if len(ra.fields) < 2 {
		ra.failf("missing .rodata type")
		return
	}
	switch kind := ra.fields[1]; kind {
	case "empty":
		ex.Rodata = append(ex.Rodata, nil)

	case "int":
		if len(ra.fields) != 3 {
			ra.failf("expected one int operand")
			return
		}
		v, err := strconv.ParseInt(ra.fields[2], 10, 64)
		if err != nil {
			ra.failf("invalid int %s: %s", ra.fields[2], err)
			return
		}
		ex.Rodata = append(ex.Rodata, v)

	case "float":
		if len(ra.fields) != 3 {
			ra.failf("expected one float operand")
			return
		}
		v, err := strconv.ParseFloat(ra.fields[2], 64)
		if err != nil {
			ra.failf("invalid float %s: %s", ra.fields[2], err)
			return
		}
		ex.Rodata = append(ex.Rodata, v)

	case "string", "bytes":
		// the quoted value may contain spaces, extract it from the raw line
		i := strings.Index(ra.raw, kind)
		qs := strings.TrimSpace(ra.raw[i+len(kind):])
		prefix, err := strconv.QuotedPrefix(qs)
		if err != nil {
			ra.failf("invalid %s value %s: %s", kind, qs, err)
			return
		}
		s, err := strconv.Unquote(prefix)
		if err != nil {
			ra.failf("invalid %s value %s: %s", kind, prefix, err)
			return
		}
		if kind == "bytes" {
			ex.Rodata = append(ex.Rodata, Bytes(s))
		} else {
			ex.Rodata = append(ex.Rodata, s)
		}

	case "xptr":
		if len(ra.fields) != 3 {
			ra.failf("expected one xptr operand")
			return
		}
		ex.Rodata = append(ex.Rodata, uuidRef(ra.fields[2]))

	default:
		ra.failf("invalid rodata type %s", kind)
	}
}

func (ra *reasm) instr(ex *Executable) {
	op, ok := reverseLookupOpcode[strings.ToLower(ra.fields[0])]
	if !ok {
		ra.failf("invalid opcode: %s", ra.fields[0])
		return
	}
	if len(ra.fields) != 3 {
		ra.failf("expected two operands for opcode %s, got %d", ra.fields[0], len(ra.fields)-1)
		return
	}
	arg1, err := strconv.ParseUint(ra.fields[1], 10, 8)
	if err != nil {
		ra.failf("invalid arg1 %s: %s", ra.fields[1], err)
		return
	}
	arg2, err := strconv.ParseInt(ra.fields[2], 10, 16)
	if err != nil {
		ra.failf("invalid arg2 %s: %s", ra.fields[2], err)
		return
	}
	ex.Instr = append(ex.Instr, Instr{Op: op, Arg1: uint8(arg1), Arg2: int16(arg2)})
}

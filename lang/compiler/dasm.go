package compiler

import (
	"bytes"
	"fmt"
	"strconv"
)

// Dasm renders an executable tree in its textual form, which the
// reassembler reads back into the identical in-memory tree. The format is
// line oriented:
//
//	.evilcandy "file.evc" 1        # header: source name and version
//	.start x000 1                  # one block per executable: uuid, line
//	.rodata int 14                 # rodata slots in order
//	.rodata xptr x001              # executable references, by uuid
//	.label 3                       # label table entries in order
//	push_const 0 0                 # one "opcode arg1 arg2" line per instr
//	.end
func Dasm(entry *Executable) ([]byte, error) {
	d := dasm{buf: new(bytes.Buffer)}
	d.writef(".evilcandy %q %d\n", entry.FileName, Version)

	entry.Walk(func(ex *Executable) {
		if d.err != nil {
			return
		}
		d.exec(ex)
	})
	return d.buf.Bytes(), d.err
}

type dasm struct {
	buf *bytes.Buffer
	err error
}

func (d *dasm) exec(ex *Executable) {
	d.writef("\n.start %s %d\n", ex.UUID, ex.FileLine)

	for _, ro := range ex.Rodata {
		switch ro := ro.(type) {
		case nil:
			d.writef(".rodata empty\n")
		case int64:
			d.writef(".rodata int %d\n", ro)
		case float64:
			d.writef(".rodata float %s\n", strconv.FormatFloat(ro, 'g', -1, 64))
		case string:
			d.writef(".rodata string %q\n", ro)
		case Bytes:
			d.writef(".rodata bytes %q\n", string(ro))
		case *Executable:
			d.writef(".rodata xptr %s\n", ro.UUID)
		default:
			d.err = fmt.Errorf("unsupported rodata type: %T", ro)
			return
		}
	}

	for _, l := range ex.Labels {
		d.writef(".label %d\n", l)
	}

	for _, ins := range ex.Instr {
		d.writef("%s %d %d\n", ins.Op, ins.Arg1, ins.Arg2)
	}

	d.writef(".end\n")
}

func (d *dasm) writef(format string, args ...any) {
	if d.err != nil {
		return
	}
	_, d.err = fmt.Fprintf(d.buf, format, args...)
}

// Package compiler implements the single-pass assembler that turns a token
// stream into a tree of executable objects, the post-pass that folds
// constants and resolves labels, the binary serializer for the compiled
// form, and a textual reassembler/disassembler pair.
package compiler

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/evilcandy-lang/evilcandy/lang/scanner"
	"github.com/evilcandy-lang/evilcandy/lang/token"
)

// Assemble tokenizes and assembles a single source file into its executable
// tree, running the post-pass on every function. The returned executable is
// the script entry point; nested definitions hang off its rodata.
func Assemble(ctx context.Context, filename string, src []byte) (*Executable, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var el scanner.ErrorList
	a := &asm{
		file: filename,
		el:   &el,
	}
	a.st = scanner.NewStream(filename, src, el.Add)

	ex := a.assemble()
	el.Sort()
	if err := el.Err(); err != nil {
		return nil, err
	}
	return ex, nil
}

// AssembleFile is a convenience wrapper over Assemble that reads the source
// from a file, or from stdin when filename is "-".
func AssembleFile(ctx context.Context, filename string) (*Executable, error) {
	var (
		b   []byte
		err error
	)
	if filename == "-" {
		b, err = io.ReadAll(os.Stdin)
	} else {
		b, err = os.ReadFile(filename)
	}
	if err != nil {
		return nil, err
	}
	return Assemble(ctx, filename, b)
}

// bailout is panicked with to abort assembly on the first unrecoverable
// error; it is recovered in assemble.
type bailout struct{}

// An asFrame is the per-function mutable state used during assembly. It is
// discarded after the post-pass. Frames form an explicit stack in the
// assembler so that the closure-capture walk can iterate over the parent
// chain.
type asFrame struct {
	funcno int
	line   int // source line of the definition

	instr  []Instr
	rodata []any
	roIdx  map[any]int16
	labels []uint16

	args   []string
	clos   []string
	locals []string // AP slots in declaration order
	scopes []int    // len(locals) at each open '{' block
	loops  []asLoop
}

type asLoop struct {
	endLabel int
	nlocals  int // len(locals) at loop entry; break pops back down to it
}

type asm struct {
	file string
	st   *scanner.Stream
	el   *scanner.ErrorList

	frames []*asFrame // active frames; top is the one being assembled
	all    []*asFrame // every frame, indexed by funcno
	funcno int

	tok token.Token // current token
	val token.Value

	held heldTarget // final element of an assignment target chain
}

func (a *asm) assemble() (ex *Executable) {
	defer func() {
		if e := recover(); e != nil {
			if _, ok := e.(bailout); !ok {
				panic(e)
			}
			ex = nil
		}
	}()

	top := a.pushFrame(1)
	for a.next() != token.EOF {
		a.statement()
	}
	top.emit(Instr{Op: END})
	a.popFrame()

	if a.el.Len() > 0 {
		return nil
	}
	return a.postPass()
}

// frame management

func (a *asm) pushFrame(line int) *asFrame {
	fr := &asFrame{
		funcno: a.funcno,
		line:   line,
		roIdx:  make(map[any]int16),
	}
	a.funcno++
	a.frames = append(a.frames, fr)
	a.all = append(a.all, fr)
	return fr
}

func (a *asm) popFrame() { a.frames = a.frames[:len(a.frames)-1] }

func (a *asm) fr() *asFrame { return a.frames[len(a.frames)-1] }

// atTopLevel is true while assembling the script body itself rather than a
// function nested in it.
func (a *asm) atTopLevel() bool { return len(a.frames) == 1 }

// token handling

func (a *asm) next() token.Token {
	tv := a.st.Next()
	a.tok, a.val = tv.Token, tv.Value
	return a.tok
}

func (a *asm) unget() {
	a.st.Unget()
}

func (a *asm) peek() token.Token {
	return a.st.Peek().Token
}

// expect advances and errors out if the next token is not want.
func (a *asm) expect(want token.Token) token.Value {
	if a.next() != want {
		a.errorf("expected %#v, found %#v", want, a.tok)
	}
	return a.val
}

func (a *asm) errorf(format string, args ...any) {
	line, col := a.val.Pos.LineCol()
	a.el.Add(scanner.Position{
		Filename: a.file,
		Line:     line,
		Column:   col,
	}, fmt.Sprintf(format, args...))
	panic(bailout{})
}

// emission helpers

func (fr *asFrame) emit(ins Instr) {
	fr.instr = append(fr.instr, ins)
}

func (a *asm) emit(op Opcode, arg1 uint8, arg2 int) {
	if arg2 < -0x8000 || arg2 > 0x7fff {
		a.errorf("instruction operand out of range")
	}
	a.fr().emit(Instr{Op: op, Arg1: arg1, Arg2: int16(arg2)})
}

// rodata returns the index of v in the current frame's constant table,
// interning it if it is not there yet.
func (a *asm) rodata(v any) int {
	return frameRodata(a.fr(), v)
}

func frameRodata(fr *asFrame, v any) int {
	if i, ok := fr.roIdx[v]; ok {
		return int(i)
	}
	i := len(fr.rodata)
	fr.rodata = append(fr.rodata, v)
	fr.roIdx[v] = int16(i)
	return i
}

// newLabel allocates a label in the current frame; bindLabel points it at
// the next instruction to be emitted.
func (a *asm) newLabel() int {
	fr := a.fr()
	fr.labels = append(fr.labels, 0)
	return len(fr.labels) - 1
}

func (a *asm) bindLabel(l int) {
	fr := a.fr()
	fr.labels[l] = uint16(len(fr.instr))
}

// symbol resolution

func indexOf(names []string, name string) (int, bool) {
	for i, n := range names {
		if n == name {
			return i, true
		}
	}
	return 0, false
}

// resolve finds name in the current frame and returns the pointer mode and
// slot to address it with. Resolution is tried in order: local slot,
// argument, closure cell, then an implicit capture from an enclosing
// function; when everything fails the symbol becomes a deferred global
// lookup (mode IArgSeek, arg2 indexes the name string in rodata).
func (a *asm) resolve(name string) (mode uint8, arg2 int) {
	fr := a.fr()
	if i, ok := indexOf(fr.locals, name); ok {
		return IArgAP, i
	}
	if i, ok := indexOf(fr.args, name); ok {
		return IArgFP, i
	}
	if i, ok := indexOf(fr.clos, name); ok {
		return IArgCP, i
	}
	if i, ok := a.capture(len(a.frames)-1, name); ok {
		return IArgCP, i
	}
	return IArgSeek, a.rodata(name)
}

// capture makes name, defined somewhere up the frame stack, available as a
// closure cell of frames[ci] and returns its cell index. Each ancestor
// that needs to forward the name binds an implicit cell to the function it
// currently has under definition: its instruction stream is paused right
// after that function's DEFFUNC, so the PUSH_PTR/ADD_CLOSURE pair lands in
// the definition sequence.
func (a *asm) capture(ci int, name string) (int, bool) {
	if ci == 0 {
		// the top-level script frame cannot be captured from; unresolved
		// names fall back to the global lookup
		return 0, false
	}

	child := a.frames[ci]
	if i, ok := indexOf(child.clos, name); ok {
		return i, true
	}

	parent := a.frames[ci-1]
	var mode uint8
	var arg2 int
	if i, ok := indexOf(parent.locals, name); ok {
		mode, arg2 = IArgAP, i
	} else if i, ok := indexOf(parent.args, name); ok {
		mode, arg2 = IArgFP, i
	} else if i, ok := indexOf(parent.clos, name); ok {
		mode, arg2 = IArgCP, i
	} else if i, ok := a.capture(ci-1, name); ok {
		mode, arg2 = IArgCP, i
	} else {
		return 0, false
	}

	parent.emit(Instr{Op: PUSH_PTR, Arg1: mode, Arg2: int16(arg2)})
	parent.emit(Instr{Op: ADD_CLOSURE})
	child.clos = append(child.clos, name)
	return len(child.clos) - 1, true
}

// declareLocal reserves an AP slot for name in the current frame. The
// caller must have emitted the matching PUSH_LOCAL.
func (a *asm) declareLocal(name string) int {
	fr := a.fr()
	if _, ok := indexOf(fr.locals, name); ok {
		a.errorf("redefinition of %s", name)
	}
	if _, ok := indexOf(fr.args, name); ok {
		a.errorf("redefinition of argument %s", name)
	}
	if _, ok := indexOf(fr.clos, name); ok {
		a.errorf("redefinition of closure %s", name)
	}
	fr.locals = append(fr.locals, name)
	return len(fr.locals) - 1
}

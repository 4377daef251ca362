package machine

import (
	"github.com/evilcandy-lang/evilcandy/lang/compiler"
	"github.com/evilcandy-lang/evilcandy/lang/types"
)

const (
	// frameStackSize is the fixed capacity of a frame's data stack.
	frameStackSize = 128
	// frameNestMax bounds the block stack of a frame.
	frameNestMax = 32
)

// A block records a loop or plain scope entered by PUSH_BLOCK, so that the
// stack can be unwound to a known level on exit.
type block struct {
	sp  int
	typ uint8
}

// A Frame is the per-call execution record. The data stack holds the
// arguments in [0:ap), then declared locals, then evaluation temporaries.
type Frame struct {
	ex   *compiler.Executable
	fn   *Function   // nil for the script body
	this types.Value // owning object, nil when there is none

	pc int
	sp int
	ap int // count of arguments, start of the declared locals

	stack   [frameStackSize]types.Value
	konst   [frameStackSize]bool // slots captured as const by their first store
	nblocks int
	blocks  [frameNestMax]block

	prev *Frame
}

func (fr *Frame) push(v types.Value) error {
	if fr.sp >= frameStackSize {
		return types.NewRuntimeError("frame stack overflow")
	}
	fr.stack[fr.sp] = v
	fr.sp++
	return nil
}

func (fr *Frame) pop() types.Value {
	fr.sp--
	v := fr.stack[fr.sp]
	fr.stack[fr.sp] = nil
	// a popped slot may be reused by a later local declaration; it must
	// not inherit a stale const capture
	fr.konst[fr.sp] = false
	return v
}

func (fr *Frame) top() types.Value { return fr.stack[fr.sp-1] }

// newFrame takes a frame from the interpreter's free list, or allocates
// one.
func (it *Interp) newFrame() *Frame {
	if n := len(it.freeFrames); n > 0 {
		fr := it.freeFrames[n-1]
		it.freeFrames = it.freeFrames[:n-1]
		return fr
	}
	return new(Frame)
}

// freeFrame clears the frame's references and returns it to the free list.
func (it *Interp) freeFrame(fr *Frame) {
	*fr = Frame{}
	it.depth--
	it.freeFrames = append(it.freeFrames, fr)
}

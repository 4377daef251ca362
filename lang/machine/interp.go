// Package machine implements the stack virtual machine that executes the
// bytecode-compiled form of the source code, along with the runtime
// representation of functions and the argument unpacker for built-ins.
package machine

import (
	"context"
	"io"
	"os"

	"github.com/evilcandy-lang/evilcandy/lang/compiler"
	"github.com/evilcandy-lang/evilcandy/lang/types"
)

// Options are the driver-level tunables of an interpreter. The zero value
// selects the defaults.
type Options struct {
	// MaxReenter bounds the depth of native code calling back into the
	// machine (a built-in invoking a user callback). <= 0 means the
	// default of 128.
	MaxReenter int

	// MaxCallDepth bounds the frame chain. <= 0 means the default of 1024.
	MaxCallDepth int

	Stdout io.Writer
	Stderr io.Writer
	Stdin  io.Reader
}

// An Interp holds every piece of process-wide interpreter state: the
// globals dict, the standard I/O abstractions, the frame free list and the
// reentry bookkeeping. Independent Interp values are fully isolated from
// each other.
type Interp struct {
	// Globals is the global symbol table, user-visible as __gbl__. It is
	// pre-populated with the universe built-ins.
	Globals *types.Dict

	// Loader is called by the LOAD instruction to execute another source
	// file into this interpreter. The machine reports a runtime error if
	// it is nil when a load statement runs.
	Loader func(it *Interp, path string) error

	stdout io.Writer
	stderr io.Writer
	stdin  io.Reader

	maxReenter   int
	maxCallDepth int

	ctx        context.Context
	cur        *Frame
	depth      int // frames in the current chain
	reenter    int
	freeFrames []*Frame
}

// New creates an interpreter with the universe built-ins installed in its
// globals.
func New(opts *Options) *Interp {
	it := &Interp{
		Globals:      types.NewDict(32),
		stdout:       os.Stdout,
		stderr:       os.Stderr,
		stdin:        os.Stdin,
		maxReenter:   128,
		maxCallDepth: 1024,
	}
	if opts != nil {
		if opts.Stdout != nil {
			it.stdout = opts.Stdout
		}
		if opts.Stderr != nil {
			it.stderr = opts.Stderr
		}
		if opts.Stdin != nil {
			it.stdin = opts.Stdin
		}
		if opts.MaxReenter > 0 {
			it.maxReenter = opts.MaxReenter
		}
		if opts.MaxCallDepth > 0 {
			it.maxCallDepth = opts.MaxCallDepth
		}
	}
	installUniverse(it.Globals)
	return it
}

// Stdout returns the interpreter's standard output writer.
func (it *Interp) Stdout() io.Writer { return it.stdout }

// Stderr returns the interpreter's standard error writer.
func (it *Interp) Stderr() io.Writer { return it.stderr }

// Stdin returns the interpreter's standard input reader.
func (it *Interp) Stdin() io.Reader { return it.stdin }

// RunScript executes the entry-point executable of a compiled tree. It
// returns when the script reaches END, or with the unhandled exception
// that unwound every frame.
func (it *Interp) RunScript(ctx context.Context, ex *compiler.Executable) error {
	if ctx == nil {
		ctx = context.Background()
	}
	it.ctx = ctx

	fr := it.newFrame()
	fr.ex = ex
	it.depth++
	_, err := it.execute(fr)
	return err
}

// Call invokes a callable value from native code, re-entering the machine
// to a bounded depth. It is how built-ins such as foreach run user
// callbacks.
func (it *Interp) Call(fn types.Value, this types.Value, args []types.Value) (types.Value, error) {
	if it.reenter >= it.maxReenter {
		return nil, types.NewRuntimeError("re-entrancy overflow (%d nested native calls)", it.maxReenter)
	}
	it.reenter++
	defer func() { it.reenter-- }()

	if m, ok := fn.(*Method); ok {
		this = m.Owner
		fn = m.Fn
	}

	switch fn := fn.(type) {
	case *Builtin:
		return fn.Fn(it, this, args)

	case *Function:
		fr, err := it.prepFrame(fn, this, args)
		if err != nil {
			return nil, err
		}
		return it.execute(fr)
	}
	return nil, types.NewTypeError("%s value is not callable", fn.Type())
}

// prepFrame builds the frame for a call of a user function: arguments are
// placed at the bottom of the data stack and missing trailing arguments
// are filled from the function's defaults.
func (it *Interp) prepFrame(fn *Function, this types.Value, args []types.Value) (*Frame, error) {
	if it.depth >= it.maxCallDepth {
		return nil, types.NewRuntimeError("call stack overflow (%d frames)", it.maxCallDepth)
	}
	if len(args) > frameStackSize/2 {
		return nil, types.NewRuntimeError("too many arguments (%d)", len(args))
	}

	fr := it.newFrame()
	fr.ex = fn.Exec
	fr.fn = fn
	fr.this = this
	copy(fr.stack[:], args)
	fr.ap = len(args)

	// defaults captured at definition fill in omitted arguments
	for i := len(args); i < len(fn.Defaults); i++ {
		if d := fn.Defaults[i]; d != nil {
			fr.stack[i] = d
		} else {
			fr.stack[i] = types.Null
		}
	}
	if len(fn.Defaults) > fr.ap {
		fr.ap = len(fn.Defaults)
	}
	fr.sp = fr.ap
	it.depth++
	return fr, nil
}

// errPosition fills an exception's provenance from the frame when it is
// not already set.
func errPosition(err error, fr *Frame) error {
	e, ok := err.(*types.Error)
	if !ok {
		e = types.NewSystemError("%s", err.Error())
	}
	if e.Line == 0 && fr.ex != nil {
		e.Line = fr.ex.FileLine
		e.FuncName = fr.ex.FileName + ":" + fr.ex.UUID
	}
	return e
}

package machine

import (
	"fmt"

	"github.com/evilcandy-lang/evilcandy/lang/compiler"
	"github.com/evilcandy-lang/evilcandy/lang/types"
)

// A Function is a callable created by a function literal or a lambda. It is
// an immutable handle on its executable plus the closure cells and default
// values bound at definition time. The executable lives as long as any
// function that references it, even after the defining script has
// terminated.
type Function struct {
	Exec *compiler.Executable

	// Defaults holds the captured default values, indexed by parameter;
	// parameters without a default hold nil.
	Defaults []types.Value

	// Closures holds the closure cells in declaration order. Cells are
	// mutable through the machine's closure-pointer addressing mode and
	// persist across calls of this function object.
	Closures []types.Value
}

var (
	_ types.Value    = (*Function)(nil)
	_ types.HasEqual = (*Function)(nil)
)

func (fn *Function) String() string {
	return fmt.Sprintf("<function %s at %s:%d>", fn.Exec.UUID, fn.Exec.FileName, fn.Exec.FileLine)
}

func (fn *Function) Type() string { return "function" }
func (fn *Function) Truth() bool  { return true }

func (fn *Function) Equals(y types.Value) (bool, error) {
	yf, ok := y.(*Function)
	return ok && fn == yf, nil
}

// addDefault binds a default value for the parameter at index idx,
// growing the table as needed.
func (fn *Function) addDefault(idx int, v types.Value) {
	for len(fn.Defaults) <= idx {
		fn.Defaults = append(fn.Defaults, nil)
	}
	fn.Defaults[idx] = v
}

// A Method is the bound pair of a callable and the object it was read
// from. Two methods are equal when both components are identical.
type Method struct {
	Owner types.Value
	Fn    types.Value // *Function or *Builtin
}

var (
	_ types.Value    = (*Method)(nil)
	_ types.HasEqual = (*Method)(nil)
)

func (m *Method) String() string {
	return fmt.Sprintf("<method %s of %s>", m.Fn.String(), m.Owner.Type())
}

func (m *Method) Type() string { return "method" }
func (m *Method) Truth() bool  { return true }

func (m *Method) Equals(y types.Value) (bool, error) {
	ym, ok := y.(*Method)
	return ok && m.Owner == ym.Owner && m.Fn == ym.Fn, nil
}

// A Builtin is a function or method implemented in Go. The this argument
// is the receiver for methods, nil for plain functions.
type Builtin struct {
	Name string
	Fn   func(it *Interp, this types.Value, args []types.Value) (types.Value, error)
}

var _ types.Value = (*Builtin)(nil)

func (b *Builtin) String() string { return "<built-in function " + b.Name + ">" }
func (b *Builtin) Type() string   { return "function" }
func (b *Builtin) Truth() bool    { return true }

// NewBuiltin returns a named built-in function value.
func NewBuiltin(name string, fn func(it *Interp, this types.Value, args []types.Value) (types.Value, error)) *Builtin {
	return &Builtin{Name: name, Fn: fn}
}

package types

import "fmt"

// ErrKind enumerates the exception kinds surfaced to user code. Fatal
// internal conditions are not errors: they panic.
type ErrKind int

//nolint:revive
const (
	ParserError ErrKind = iota
	SyntaxError
	TypeError
	ValueError
	KeyError
	AttributeError
	NotImplementedError
	RuntimeError
	SystemError
)

var errKindNames = [...]string{
	ParserError:         "ParserError",
	SyntaxError:         "SyntaxError",
	TypeError:           "TypeError",
	ValueError:          "ValueError",
	KeyError:            "KeyError",
	AttributeError:      "AttributeError",
	NotImplementedError: "NotImplementedError",
	RuntimeError:        "RuntimeError",
	SystemError:         "SystemError",
}

func (k ErrKind) String() string { return errKindNames[k] }

// An Error is the value carried by an exception. It is itself a Value, so
// that the machine can hand it to user-visible reporting unchanged.
type Error struct {
	Kind ErrKind
	Msg  string

	// FuncName and Line carry the failure's provenance when known; the
	// machine fills them in while unwinding.
	FuncName string
	Line     int
}

var (
	_ error = (*Error)(nil)
	_ Value = (*Error)(nil)
)

func (e *Error) Error() string {
	pfx := e.Kind.String()
	if e.FuncName != "" {
		pfx += " in " + e.FuncName
	}
	if e.Line > 0 {
		pfx += fmt.Sprintf(" (line %d)", e.Line)
	}
	return pfx + ": " + e.Msg
}

func (e *Error) String() string { return e.Error() }
func (e *Error) Type() string   { return "exception" }
func (e *Error) Truth() bool    { return true }

// NewError creates an exception value of the given kind.
func NewError(kind ErrKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Shorthands for the common kinds.

func NewTypeError(format string, args ...any) *Error {
	return NewError(TypeError, format, args...)
}

func NewValueError(format string, args ...any) *Error {
	return NewError(ValueError, format, args...)
}

func NewKeyError(key string) *Error {
	return NewError(KeyError, "no such key: %q", key)
}

func NewAttributeError(v Value, name string) *Error {
	return NewError(AttributeError, "%s value has no attribute %q", v.Type(), name)
}

func NewRuntimeError(format string, args ...any) *Error {
	return NewError(RuntimeError, format, args...)
}

func NewSystemError(format string, args ...any) *Error {
	return NewError(SystemError, format, args...)
}

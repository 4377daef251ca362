package machine

import (
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/evilcandy-lang/evilcandy/lang/types"
)

// A File wraps an open file descriptor together with a dict of descriptive
// attributes. Closing is idempotent: the descriptor is forgotten on the
// first close. A file that becomes unreachable while still open is closed
// by a finalizer; failures there are swallowed, as there is nobody left to
// report them to.
type File struct {
	f     *os.File
	attrs *types.Dict
}

var (
	_ types.Value    = (*File)(nil)
	_ types.HasAttrs = (*File)(nil)
)

// OpenFile opens path in the given mode: "r", "w" (truncate) or "a"
// (append).
func OpenFile(path, mode string) (*File, error) {
	var flag int
	switch mode {
	case "r":
		flag = os.O_RDONLY
	case "w":
		flag = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	case "a":
		flag = os.O_WRONLY | os.O_CREATE | os.O_APPEND
	default:
		return nil, types.NewValueError("invalid open mode %q", mode)
	}
	osf, err := os.OpenFile(path, flag, 0o644)
	if err != nil {
		return nil, types.NewSystemError("open %s: %s", path, err)
	}

	attrs := types.NewDict(2)
	_ = attrs.SetKey("name", types.String(path))
	_ = attrs.SetKey("mode", types.String(mode))

	f := &File{f: osf, attrs: attrs}
	runtime.SetFinalizer(f, func(f *File) {
		// swallowed: closing during collection has nowhere to report
		_ = f.Close()
	})
	return f, nil
}

func (f *File) String() string {
	name, _ := f.attrs.Get("name")
	return fmt.Sprintf("<file %s>", types.Str(name))
}

func (f *File) Type() string { return "file" }
func (f *File) Truth() bool  { return f.f != nil }

// Close closes the descriptor; closing twice is a no-op.
func (f *File) Close() error {
	if f.f == nil {
		return nil
	}
	err := f.f.Close()
	f.f = nil
	if err != nil {
		return types.NewSystemError("close: %s", err)
	}
	return nil
}

func (f *File) Attr(name string) (types.Value, error) {
	if v, ok := f.attrs.Get(name); ok {
		return v, nil
	}
	return nil, nil
}

func (f *File) AttrNames() []string { return f.attrs.Keys() }

var fileMethods = map[string]*Builtin{
	// read() reads the whole rest of the file; read(n) at most n bytes
	"read": NewBuiltin("file.read", func(it *Interp, this types.Value, args []types.Value) (types.Value, error) {
		var n int64 = -1
		if err := UnpackArgs("file.read", "|l", args, &n); err != nil {
			return nil, err
		}
		f := this.(*File)
		if f.f == nil {
			return nil, types.NewSystemError("file is closed")
		}
		if n < 0 {
			b, err := io.ReadAll(f.f)
			if err != nil {
				return nil, types.NewSystemError("read: %s", err)
			}
			return types.Bytes(b), nil
		}
		b := make([]byte, n)
		rn, err := f.f.Read(b)
		if err != nil && err != io.EOF {
			return nil, types.NewSystemError("read: %s", err)
		}
		return types.Bytes(b[:rn]), nil
	}),

	"write": NewBuiltin("file.write", func(it *Interp, this types.Value, args []types.Value) (types.Value, error) {
		var v types.Value
		if err := UnpackArgs("file.write", "<sb>", args, &v); err != nil {
			return nil, err
		}
		f := this.(*File)
		if f.f == nil {
			return nil, types.NewSystemError("file is closed")
		}
		var b []byte
		switch v := v.(type) {
		case types.String:
			b = []byte(v)
		case types.Bytes:
			b = []byte(v)
		}
		n, err := f.f.Write(b)
		if err != nil {
			return nil, types.NewSystemError("write: %s", err)
		}
		return types.Int(n), nil
	}),

	"close": NewBuiltin("file.close", func(it *Interp, this types.Value, args []types.Value) (types.Value, error) {
		if err := UnpackArgs("file.close", "", args); err != nil {
			return nil, err
		}
		if err := this.(*File).Close(); err != nil {
			return nil, err
		}
		return types.Null, nil
	}),
}

package machine

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/evilcandy-lang/evilcandy/lang/types"
)

// installUniverse populates a fresh globals dict with the built-ins every
// script can reach.
func installUniverse(g *types.Dict) {
	for _, b := range universe {
		// ignoring the error: a fresh dict has no const entries
		_ = g.SetKey(b.Name, b)
	}
}

var universe = []*Builtin{
	NewBuiltin("print", func(it *Interp, this types.Value, args []types.Value) (types.Value, error) {
		var sb strings.Builder
		for i, a := range args {
			if i > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(types.Str(a))
		}
		sb.WriteByte('\n')
		if _, err := fmt.Fprint(it.stdout, sb.String()); err != nil {
			return nil, types.NewSystemError("print: %s", err)
		}
		return types.Null, nil
	}),

	NewBuiltin("len", func(it *Interp, this types.Value, args []types.Value) (types.Value, error) {
		var v types.Value
		if err := UnpackArgs("len", "<*>", args, &v); err != nil {
			return nil, err
		}
		switch v := v.(type) {
		case types.String:
			return types.Int(v.Len()), nil
		case types.Indexable:
			return types.Int(v.Len()), nil
		case *types.Dict:
			return types.Int(v.Len()), nil
		}
		return nil, types.NewTypeError("%s value has no length", v.Type())
	}),

	NewBuiltin("typeof", func(it *Interp, this types.Value, args []types.Value) (types.Value, error) {
		var v types.Value
		if err := UnpackArgs("typeof", "<*>", args, &v); err != nil {
			return nil, err
		}
		return types.String(v.Type()), nil
	}),

	NewBuiltin("str", func(it *Interp, this types.Value, args []types.Value) (types.Value, error) {
		var v types.Value
		if err := UnpackArgs("str", "<*>", args, &v); err != nil {
			return nil, err
		}
		return types.String(types.Str(v)), nil
	}),

	NewBuiltin("int", func(it *Interp, this types.Value, args []types.Value) (types.Value, error) {
		var v types.Value
		if err := UnpackArgs("int", "<*>", args, &v); err != nil {
			return nil, err
		}
		switch v := v.(type) {
		case types.Int:
			return v, nil
		case types.Float:
			return types.Int(v), nil
		case types.String:
			i, err := strconv.ParseInt(strings.TrimSpace(string(v)), 0, 64)
			if err != nil {
				return nil, types.NewValueError("invalid integer: %q", string(v))
			}
			return types.Int(i), nil
		}
		return nil, types.NewTypeError("cannot convert %s to int", v.Type())
	}),

	NewBuiltin("float", func(it *Interp, this types.Value, args []types.Value) (types.Value, error) {
		var v types.Value
		if err := UnpackArgs("float", "<*>", args, &v); err != nil {
			return nil, err
		}
		switch v := v.(type) {
		case types.Float:
			return v, nil
		case types.Int:
			return types.Float(v), nil
		case types.String:
			f, err := strconv.ParseFloat(strings.TrimSpace(string(v)), 64)
			if err != nil {
				return nil, types.NewValueError("invalid float: %q", string(v))
			}
			return types.Float(f), nil
		}
		return nil, types.NewTypeError("cannot convert %s to float", v.Type())
	}),

	NewBuiltin("abs", func(it *Interp, this types.Value, args []types.Value) (types.Value, error) {
		var v types.Value
		if err := UnpackArgs("abs", "<*>", args, &v); err != nil {
			return nil, err
		}
		return types.Abs(v)
	}),

	NewBuiltin("range", func(it *Interp, this types.Value, args []types.Value) (types.Value, error) {
		var start, stop, step int64 = 0, 0, 1
		switch len(args) {
		case 1:
			if err := UnpackArgs("range", "l", args, &stop); err != nil {
				return nil, err
			}
		default:
			if err := UnpackArgs("range", "ll|l", args, &start, &stop, &step); err != nil {
				return nil, err
			}
		}
		return types.NewRange(start, stop, step)
	}),

	NewBuiltin("floats", func(it *Interp, this types.Value, args []types.Value) (types.Value, error) {
		var src types.Value = types.Null
		if err := UnpackArgs("floats", "|<*>", args, &src); err != nil {
			return nil, err
		}
		if src == types.Null {
			return types.NewFloats(nil), nil
		}
		seq, ok := src.(types.Indexable)
		if !ok {
			return nil, types.NewTypeError("floats: %s value is not indexable", src.Type())
		}
		data := make([]float64, seq.Len())
		for i := range data {
			switch e := seq.Index(i).(type) {
			case types.Int:
				data[i] = float64(e)
			case types.Float:
				data[i] = float64(e)
			default:
				return nil, types.NewTypeError("floats: element %d is %s, not a number", i, e.Type())
			}
		}
		return types.NewFloats(data), nil
	}),

	NewBuiltin("open", func(it *Interp, this types.Value, args []types.Value) (types.Value, error) {
		var path string
		mode := "r"
		if err := UnpackArgs("open", "s|s", args, &path, &mode); err != nil {
			return nil, err
		}
		return OpenFile(path, mode)
	}),
}

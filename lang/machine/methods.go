package machine

import (
	"strings"

	"github.com/evilcandy-lang/evilcandy/lang/token"
	"github.com/evilcandy-lang/evilcandy/lang/types"
)

// methodTable returns the built-in method table for a value's type, or nil
// if the type has none.
func methodTable(v types.Value) map[string]*Builtin {
	switch v.(type) {
	case *types.List:
		return listMethods
	case *types.Dict:
		return dictMethods
	case types.String:
		return stringMethods
	case types.Bytes:
		return bytesMethods
	case *types.Tuple:
		return tupleMethods
	case *types.Floats:
		return floatsMethods
	case *types.Range:
		return rangeMethods
	case *File:
		return fileMethods
	}
	return nil
}

var listMethods map[string]*Builtin

func init() {
	listMethods = map[string]*Builtin{
		"len": NewBuiltin("list.len", func(it *Interp, this types.Value, args []types.Value) (types.Value, error) {
			if err := UnpackArgs("list.len", "", args); err != nil {
				return nil, err
			}
			return types.Int(this.(*types.List).Len()), nil
		}),

		"append": NewBuiltin("list.append", func(it *Interp, this types.Value, args []types.Value) (types.Value, error) {
			var v types.Value
			if err := UnpackArgs("list.append", "<*>", args, &v); err != nil {
				return nil, err
			}
			l := this.(*types.List)
			if err := l.Append(v); err != nil {
				return nil, err
			}
			return l, nil
		}),

		// foreach locks the list for the duration: the callback cannot mutate
		// it
		"foreach": NewBuiltin("list.foreach", func(it *Interp, this types.Value, args []types.Value) (types.Value, error) {
			var f types.Value
			if err := UnpackArgs("list.foreach", "<x>", args, &f); err != nil {
				return nil, err
			}
			l := this.(*types.List)
			l.Lock()
			defer l.Unlock()
			for i := 0; i < l.Len(); i++ {
				if _, err := it.Call(f, nil, []types.Value{l.Index(i)}); err != nil {
					return nil, err
				}
			}
			return types.Null, nil
		}),

		"sort": NewBuiltin("list.sort", func(it *Interp, this types.Value, args []types.Value) (types.Value, error) {
			if err := UnpackArgs("list.sort", "", args); err != nil {
				return nil, err
			}
			l := this.(*types.List)
			err := l.Sort(func(x, y types.Value) (bool, error) {
				lt, err := types.Compare(token.LT, x, y)
				if err != nil {
					return false, err
				}
				return lt.Truth(), nil
			})
			if err != nil {
				return nil, err
			}
			return l, nil
		}),

		"clear": NewBuiltin("list.clear", func(it *Interp, this types.Value, args []types.Value) (types.Value, error) {
			if err := UnpackArgs("list.clear", "", args); err != nil {
				return nil, err
			}
			l := this.(*types.List)
			if err := l.Clear(); err != nil {
				return nil, err
			}
			return l, nil
		}),
	}
}

var dictMethods map[string]*Builtin

func init() {
	dictMethods = map[string]*Builtin{
		"len": NewBuiltin("dict.len", func(it *Interp, this types.Value, args []types.Value) (types.Value, error) {
			if err := UnpackArgs("dict.len", "", args); err != nil {
				return nil, err
			}
			return types.Int(this.(*types.Dict).Len()), nil
		}),

		"keys": NewBuiltin("dict.keys", func(it *Interp, this types.Value, args []types.Value) (types.Value, error) {
			if err := UnpackArgs("dict.keys", "", args); err != nil {
				return nil, err
			}
			keys := this.(*types.Dict).Keys()
			elems := make([]types.Value, len(keys))
			for i, k := range keys {
				elems[i] = types.String(k)
			}
			return types.NewList(elems), nil
		}),

		"has": NewBuiltin("dict.has", func(it *Interp, this types.Value, args []types.Value) (types.Value, error) {
			var k string
			if err := UnpackArgs("dict.has", "s", args, &k); err != nil {
				return nil, err
			}
			_, found := this.(*types.Dict).Get(k)
			if found {
				return types.Int(1), nil
			}
			return types.Int(0), nil
		}),

		"delete": NewBuiltin("dict.delete", func(it *Interp, this types.Value, args []types.Value) (types.Value, error) {
			var k string
			if err := UnpackArgs("dict.delete", "s", args, &k); err != nil {
				return nil, err
			}
			if !this.(*types.Dict).Delete(k) {
				return nil, types.NewKeyError(k)
			}
			return types.Null, nil
		}),

		// foreach iterates a key snapshot taken at entry; keys inserted by the
		// callback are not visited, keys it deletes are skipped
		"foreach": NewBuiltin("dict.foreach", func(it *Interp, this types.Value, args []types.Value) (types.Value, error) {
			var f types.Value
			if err := UnpackArgs("dict.foreach", "<x>", args, &f); err != nil {
				return nil, err
			}
			d := this.(*types.Dict)
			for _, k := range d.Keys() {
				v, ok := d.Get(k)
				if !ok {
					continue
				}
				if _, err := it.Call(f, nil, []types.Value{types.String(k), v}); err != nil {
					return nil, err
				}
			}
			return types.Null, nil
		}),
	}
}

var stringMethods = map[string]*Builtin{
	"len": NewBuiltin("string.len", func(it *Interp, this types.Value, args []types.Value) (types.Value, error) {
		if err := UnpackArgs("string.len", "", args); err != nil {
			return nil, err
		}
		return types.Int(this.(types.String).Len()), nil
	}),

	"upper": NewBuiltin("string.upper", func(it *Interp, this types.Value, args []types.Value) (types.Value, error) {
		if err := UnpackArgs("string.upper", "", args); err != nil {
			return nil, err
		}
		return types.String(strings.ToUpper(string(this.(types.String)))), nil
	}),

	"lower": NewBuiltin("string.lower", func(it *Interp, this types.Value, args []types.Value) (types.Value, error) {
		if err := UnpackArgs("string.lower", "", args); err != nil {
			return nil, err
		}
		return types.String(strings.ToLower(string(this.(types.String)))), nil
	}),

	"split": NewBuiltin("string.split", func(it *Interp, this types.Value, args []types.Value) (types.Value, error) {
		sep := " "
		if err := UnpackArgs("string.split", "|s", args, &sep); err != nil {
			return nil, err
		}
		parts := strings.Split(string(this.(types.String)), sep)
		elems := make([]types.Value, len(parts))
		for i, p := range parts {
			elems[i] = types.String(p)
		}
		return types.NewList(elems), nil
	}),
}

var bytesMethods = map[string]*Builtin{
	"len": NewBuiltin("bytes.len", func(it *Interp, this types.Value, args []types.Value) (types.Value, error) {
		if err := UnpackArgs("bytes.len", "", args); err != nil {
			return nil, err
		}
		return types.Int(this.(types.Bytes).Len()), nil
	}),
}

var tupleMethods = map[string]*Builtin{
	"len": NewBuiltin("tuple.len", func(it *Interp, this types.Value, args []types.Value) (types.Value, error) {
		if err := UnpackArgs("tuple.len", "", args); err != nil {
			return nil, err
		}
		return types.Int(this.(*types.Tuple).Len()), nil
	}),
}

var rangeMethods = map[string]*Builtin{
	"len": NewBuiltin("range.len", func(it *Interp, this types.Value, args []types.Value) (types.Value, error) {
		if err := UnpackArgs("range.len", "", args); err != nil {
			return nil, err
		}
		return types.Int(this.(*types.Range).Len()), nil
	}),
}

var floatsMethods = map[string]*Builtin{
	"len": NewBuiltin("floats.len", func(it *Interp, this types.Value, args []types.Value) (types.Value, error) {
		if err := UnpackArgs("floats.len", "", args); err != nil {
			return nil, err
		}
		return types.Int(this.(*types.Floats).Len()), nil
	}),

	"append": NewBuiltin("floats.append", func(it *Interp, this types.Value, args []types.Value) (types.Value, error) {
		var v float64
		if err := UnpackArgs("floats.append", "f", args, &v); err != nil {
			return nil, err
		}
		f := this.(*types.Floats)
		if err := f.Append(types.Float(v)); err != nil {
			return nil, err
		}
		return f, nil
	}),

	"sum": NewBuiltin("floats.sum", func(it *Interp, this types.Value, args []types.Value) (types.Value, error) {
		if err := UnpackArgs("floats.sum", "", args); err != nil {
			return nil, err
		}
		return types.Float(this.(*types.Floats).Sum()), nil
	}),

	"mean": NewBuiltin("floats.mean", func(it *Interp, this types.Value, args []types.Value) (types.Value, error) {
		if err := UnpackArgs("floats.mean", "", args); err != nil {
			return nil, err
		}
		return types.Float(this.(*types.Floats).Mean()), nil
	}),

	"min": NewBuiltin("floats.min", func(it *Interp, this types.Value, args []types.Value) (types.Value, error) {
		if err := UnpackArgs("floats.min", "", args); err != nil {
			return nil, err
		}
		m, ok := this.(*types.Floats).Min()
		if !ok {
			return nil, types.NewValueError("min of empty floats")
		}
		return types.Float(m), nil
	}),

	"max": NewBuiltin("floats.max", func(it *Interp, this types.Value, args []types.Value) (types.Value, error) {
		if err := UnpackArgs("floats.max", "", args); err != nil {
			return nil, err
		}
		m, ok := this.(*types.Floats).Max()
		if !ok {
			return nil, types.NewValueError("max of empty floats")
		}
		return types.Float(m), nil
	}),

	"any": NewBuiltin("floats.any", func(it *Interp, this types.Value, args []types.Value) (types.Value, error) {
		if err := UnpackArgs("floats.any", "", args); err != nil {
			return nil, err
		}
		return boolInt(this.(*types.Floats).Any()), nil
	}),

	"all": NewBuiltin("floats.all", func(it *Interp, this types.Value, args []types.Value) (types.Value, error) {
		if err := UnpackArgs("floats.all", "", args); err != nil {
			return nil, err
		}
		return boolInt(this.(*types.Floats).All()), nil
	}),
}

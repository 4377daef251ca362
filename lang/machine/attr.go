package machine

import (
	"github.com/evilcandy-lang/evilcandy/lang/compiler"
	"github.com/evilcandy-lang/evilcandy/lang/types"
)

// loadPtr reads the value addressed by an instruction's pointer mode.
func (it *Interp) loadPtr(fr *Frame, ins compiler.Instr) (types.Value, error) {
	idx := int(ins.Arg2)
	switch compiler.IArgMode(ins.Arg1) {
	case compiler.IArgAP:
		slot := fr.ap + idx
		if slot < 0 || slot >= fr.sp {
			return nil, types.NewSystemError("local slot %d out of range", idx)
		}
		return fr.stack[slot], nil

	case compiler.IArgFP:
		if idx < 0 || idx >= fr.ap {
			return nil, types.NewRuntimeError("missing argument %d", idx)
		}
		return fr.stack[idx], nil

	case compiler.IArgCP:
		if fr.fn == nil || idx < 0 || idx >= len(fr.fn.Closures) {
			return nil, types.NewSystemError("closure slot %d out of range", idx)
		}
		return fr.fn.Closures[idx], nil

	case compiler.IArgSeek:
		name, _ := fr.ex.Rodata[idx].(string)
		return it.seekSymbol(fr, name)

	case compiler.IArgGbl:
		return it.Globals, nil

	case compiler.IArgThis:
		if fr.this == nil {
			return types.Null, nil
		}
		return fr.this, nil
	}
	return nil, types.NewSystemError("invalid pointer mode %d", ins.Arg1)
}

// storePtr writes the value addressed by an instruction's pointer mode.
// The const bit of arg1 makes this first store capture the binding as
// immutable; later stores to it fail.
func (it *Interp) storePtr(fr *Frame, ins compiler.Instr, v types.Value) error {
	idx := int(ins.Arg2)
	konst := ins.Arg1&compiler.IArgConst != 0
	switch compiler.IArgMode(ins.Arg1) {
	case compiler.IArgAP:
		slot := fr.ap + idx
		if slot < 0 || slot >= fr.sp {
			return types.NewSystemError("local slot %d out of range", idx)
		}
		if fr.konst[slot] {
			return types.NewRuntimeError("assignment to const variable")
		}
		fr.stack[slot] = v
		fr.konst[slot] = konst
		return nil

	case compiler.IArgFP:
		if idx < 0 || idx >= fr.ap {
			return types.NewRuntimeError("missing argument %d", idx)
		}
		if fr.konst[idx] {
			return types.NewRuntimeError("assignment to const variable")
		}
		fr.stack[idx] = v
		fr.konst[idx] = konst
		return nil

	case compiler.IArgCP:
		if fr.fn == nil || idx < 0 || idx >= len(fr.fn.Closures) {
			return types.NewSystemError("closure slot %d out of range", idx)
		}
		fr.fn.Closures[idx] = v
		return nil

	case compiler.IArgSeek:
		name, _ := fr.ex.Rodata[idx].(string)
		if _, ok := it.Globals.Get(name); ok {
			if konst {
				return it.Globals.SetKeyFlags(name, v, true, false)
			}
			return it.Globals.SetKey(name, v)
		}
		if d, ok := fr.this.(*types.Dict); ok {
			if _, found := d.Get(name); found {
				return d.SetKey(name, v)
			}
		}
		return types.NewRuntimeError("symbol %q not found", name)
	}
	return types.NewSystemError("invalid assignment mode %d", ins.Arg1)
}

// seekSymbol performs the deferred global lookup: the global symbol table
// first, then the attributes of the owning object.
func (it *Interp) seekSymbol(fr *Frame, name string) (types.Value, error) {
	if v, ok := it.Globals.Get(name); ok {
		return v, nil
	}
	if d, ok := fr.this.(*types.Dict); ok {
		if v, ok := d.Get(name); ok {
			return v, nil
		}
	}
	return nil, types.NewRuntimeError("symbol %q not found", name)
}

// getAttr resolves obj.name: dict entries first, then the type's built-in
// method table. Private dict entries resolve only through the owning
// object.
func (it *Interp) getAttr(fr *Frame, obj types.Value, name string) (types.Value, error) {
	if d, ok := obj.(*types.Dict); ok {
		if v, found := d.Get(name); found {
			if d.IsPrivate(name) && fr.this != obj {
				return nil, types.NewAttributeError(obj, name)
			}
			return v, nil
		}
	}

	if mt := methodTable(obj); mt != nil {
		if b, ok := mt[name]; ok {
			return &Method{Owner: obj, Fn: b}, nil
		}
	}

	if ha, ok := obj.(types.HasAttrs); ok {
		v, err := ha.Attr(name)
		if v == nil && err == nil {
			return nil, types.NewAttributeError(obj, name)
		}
		return v, err
	}

	return nil, types.NewAttributeError(obj, name)
}

// setAttr resolves obj.name = val.
func (it *Interp) setAttr(obj types.Value, name string, val types.Value) error {
	switch obj := obj.(type) {
	case *types.Dict:
		return obj.SetKey(name, val)
	case types.HasSetField:
		return obj.SetField(name, val)
	}
	return types.NewTypeError("cannot set attribute on %s value", obj.Type())
}

// getIndexed resolves obj[key] for a key of any type: integer keys index
// sequences (negative values count from the end), string keys address
// mappings and attributes.
func (it *Interp) getIndexed(fr *Frame, obj, key types.Value) (types.Value, error) {
	switch key := key.(type) {
	case types.Int:
		seq, ok := obj.(types.Indexable)
		if !ok {
			return nil, types.NewTypeError("%s value is not indexable", obj.Type())
		}
		i := int(key)
		if i < 0 {
			i += seq.Len()
		}
		if i < 0 || i >= seq.Len() {
			return nil, types.NewValueError("index %d out of range", int(key))
		}
		return seq.Index(i), nil

	case types.String:
		if m, ok := obj.(types.Mapping); ok {
			if v, found := m.Get(string(key)); found {
				return v, nil
			}
			return nil, types.NewKeyError(string(key))
		}
		return it.getAttr(fr, obj, string(key))
	}
	return nil, types.NewTypeError("invalid index of type %s", key.Type())
}

// setIndexed resolves obj[key] = val.
func (it *Interp) setIndexed(obj, key, val types.Value) error {
	switch key := key.(type) {
	case types.Int:
		seq, ok := obj.(types.HasSetIndex)
		if !ok {
			return types.NewTypeError("%s value does not support item assignment", obj.Type())
		}
		i := int(key)
		if i < 0 {
			i += seq.Len()
		}
		if i < 0 || i >= seq.Len() {
			return types.NewValueError("index %d out of range", int(key))
		}
		return seq.SetIndex(i, val)

	case types.String:
		if m, ok := obj.(types.HasSetKey); ok {
			return m.SetKey(string(key), val)
		}
		return it.setAttr(obj, string(key), val)
	}
	return types.NewTypeError("invalid index of type %s", key.Type())
}

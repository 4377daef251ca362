package machine

import (
	"fmt"

	"github.com/evilcandy-lang/evilcandy/lang/compiler"
	"github.com/evilcandy-lang/evilcandy/lang/token"
	"github.com/evilcandy-lang/evilcandy/lang/types"
)

// binopToken maps the arithmetic opcodes to the operator tokens understood
// by the types dispatch. The augmented assignments map through their
// offset from ASSIGN_ADD.
var binopToken = map[compiler.Opcode]token.Token{
	compiler.ADD:        token.PLUS,
	compiler.SUB:        token.MINUS,
	compiler.MUL:        token.STAR,
	compiler.DIV:        token.SLASH,
	compiler.MOD:        token.PERCENT,
	compiler.POW:        token.STARSTAR,
	compiler.XOR:        token.CIRCUMFLEX,
	compiler.LSHIFT:     token.LTLT,
	compiler.RSHIFT:     token.GTGT,
	compiler.BINARY_OR:  token.PIPE,
	compiler.BINARY_AND: token.AMPERSAND,
}

var cmpToken = [...]token.Token{
	compiler.IArgEQ:  token.EQEQ,
	compiler.IArgLEQ: token.LE,
	compiler.IArgGEQ: token.GE,
	compiler.IArgNEQ: token.NEQ,
	compiler.IArgLT:  token.LT,
	compiler.IArgGT:  token.GT,
}

// execute runs the frame chain rooted at fr to completion: either the base
// frame returns (or reaches END), or an error unwinds every frame and is
// returned to the caller.
func (it *Interp) execute(fr *Frame) (types.Value, error) {
	base := fr.prev
	it.cur = fr

	var inFlightErr error

loop:
	for {
		if err := it.ctxErr(); err != nil {
			inFlightErr = err
			break loop
		}
		if fr.pc < 0 || fr.pc >= len(fr.ex.Instr) {
			inFlightErr = types.NewSystemError("pc out of range: %d", fr.pc)
			break loop
		}
		ins := fr.ex.Instr[fr.pc]
		fr.pc++

		switch ins.Op {
		case compiler.NOP:
			// nop

		case compiler.PUSH_CONST:
			if err := fr.push(rodataValue(fr.ex.Rodata[ins.Arg2])); err != nil {
				inFlightErr = err
				break loop
			}

		case compiler.PUSH_LOCAL:
			if err := fr.push(types.Null); err != nil {
				inFlightErr = err
				break loop
			}

		case compiler.PUSH_ZERO:
			if err := fr.push(types.Int(0)); err != nil {
				inFlightErr = err
				break loop
			}

		case compiler.PUSH_PTR:
			v, err := it.loadPtr(fr, ins)
			if err != nil {
				inFlightErr = err
				break loop
			}
			if err := fr.push(v); err != nil {
				inFlightErr = err
				break loop
			}

		case compiler.PUSH_COPY:
			v, err := it.loadPtr(fr, ins)
			if err != nil {
				inFlightErr = err
				break loop
			}
			if err := fr.push(shallowCopy(v)); err != nil {
				inFlightErr = err
				break loop
			}

		case compiler.POP, compiler.POP_LOCAL:
			fr.pop()

		case compiler.UNWIND:
			// collapse the parents a dereference chain piled up: save the
			// result, pop arg2 values, push the result back
			sav := fr.pop()
			for n := int(ins.Arg2); n > 0; n-- {
				fr.pop()
			}
			fr.stack[fr.sp] = sav
			fr.sp++

		case compiler.DEFFUNC:
			child, ok := fr.ex.Rodata[ins.Arg2].(*compiler.Executable)
			if !ok {
				inFlightErr = types.NewSystemError("DEFFUNC rodata %d is not an executable", ins.Arg2)
				break loop
			}
			if err := fr.push(&Function{Exec: child}); err != nil {
				inFlightErr = err
				break loop
			}

		case compiler.ADD_CLOSURE:
			v := fr.pop()
			fn, ok := fr.top().(*Function)
			if !ok {
				inFlightErr = types.NewSystemError("ADD_CLOSURE without a function")
				break loop
			}
			fn.Closures = append(fn.Closures, v)

		case compiler.ADD_DEFAULT:
			v := fr.pop()
			fn, ok := fr.top().(*Function)
			if !ok {
				inFlightErr = types.NewSystemError("ADD_DEFAULT without a function")
				break loop
			}
			fn.addDefault(int(ins.Arg2), v)

		case compiler.DEFLIST:
			if err := fr.push(types.NewList(nil)); err != nil {
				inFlightErr = err
				break loop
			}

		case compiler.LIST_APPEND:
			v := fr.pop()
			l, ok := fr.top().(*types.List)
			if !ok {
				inFlightErr = types.NewSystemError("LIST_APPEND without a list")
				break loop
			}
			if err := l.Append(v); err != nil {
				inFlightErr = err
				break loop
			}

		case compiler.DEFDICT:
			if err := fr.push(types.NewDict(8)); err != nil {
				inFlightErr = err
				break loop
			}

		case compiler.ADDATTR:
			v := fr.pop()
			d, ok := fr.top().(*types.Dict)
			if !ok {
				inFlightErr = types.NewSystemError("ADDATTR without a dict")
				break loop
			}
			name, ok := fr.ex.Rodata[ins.Arg2].(string)
			if !ok {
				inFlightErr = types.NewSystemError("ADDATTR rodata %d is not a string", ins.Arg2)
				break loop
			}
			err := d.SetKeyFlags(name, v,
				ins.Arg1&compiler.IArgAttrFlagConst != 0,
				ins.Arg1&compiler.IArgAttrFlagPrivate != 0)
			if err != nil {
				inFlightErr = err
				break loop
			}

		case compiler.GETATTR:
			var v types.Value
			var err error
			if ins.Arg1 == compiler.IArgAttrStack {
				key := fr.top()
				obj := fr.stack[fr.sp-2]
				v, err = it.getIndexed(fr, obj, key)
			} else {
				obj := fr.top()
				name, _ := fr.ex.Rodata[ins.Arg2].(string)
				v, err = it.getAttr(fr, obj, name)
			}
			if err != nil {
				inFlightErr = err
				break loop
			}
			if err := fr.push(v); err != nil {
				inFlightErr = err
				break loop
			}

		case compiler.SETATTR:
			val := fr.pop()
			var err error
			if ins.Arg1 == compiler.IArgAttrStack {
				key := fr.pop()
				obj := fr.pop()
				err = it.setIndexed(obj, key, val)
			} else {
				obj := fr.pop()
				name, _ := fr.ex.Rodata[ins.Arg2].(string)
				err = it.setAttr(obj, name, val)
			}
			if err != nil {
				inFlightErr = err
				break loop
			}

		case compiler.ASSIGN:
			v := fr.pop()
			if err := it.storePtr(fr, ins, v); err != nil {
				inFlightErr = err
				break loop
			}

		case compiler.ASSIGN_ADD, compiler.ASSIGN_SUB, compiler.ASSIGN_MUL,
			compiler.ASSIGN_DIV, compiler.ASSIGN_MOD, compiler.ASSIGN_XOR,
			compiler.ASSIGN_LS, compiler.ASSIGN_RS, compiler.ASSIGN_OR,
			compiler.ASSIGN_AND:

			y := fr.pop()
			x, err := it.loadPtr(fr, ins)
			if err != nil {
				inFlightErr = err
				break loop
			}
			binop := binopToken[compiler.ADD+(ins.Op-compiler.ASSIGN_ADD)]
			z, err := types.Binary(binop, x, y)
			if err != nil {
				inFlightErr = err
				break loop
			}
			if err := it.storePtr(fr, ins, z); err != nil {
				inFlightErr = err
				break loop
			}

		case compiler.INCR, compiler.DECR:
			x, err := it.loadPtr(fr, ins)
			if err != nil {
				inFlightErr = err
				break loop
			}
			op := token.PLUS
			if ins.Op == compiler.DECR {
				op = token.MINUS
			}
			z, err := types.Binary(op, x, types.Int(1))
			if err != nil {
				inFlightErr = err
				break loop
			}
			if err := it.storePtr(fr, ins, z); err != nil {
				inFlightErr = err
				break loop
			}

		case compiler.SYMTAB:
			name, _ := fr.ex.Rodata[ins.Arg2].(string)
			if _, ok := it.Globals.Get(name); !ok {
				if err := it.Globals.SetKey(name, types.Null); err != nil {
					inFlightErr = err
					break loop
				}
			}

		case compiler.LOAD:
			path, _ := fr.ex.Rodata[ins.Arg2].(string)
			if it.Loader == nil {
				inFlightErr = types.NewRuntimeError("load is not supported by this environment")
				break loop
			}
			if err := it.Loader(it, path); err != nil {
				inFlightErr = err
				break loop
			}

		case compiler.B:
			fr.pc += int(ins.Arg2)

		case compiler.B_IF:
			cond := fr.pop().Truth()
			if cond == (ins.Arg1 == compiler.IArgTrue) {
				fr.pc += int(ins.Arg2)
			}

		case compiler.PUSH_BLOCK:
			if fr.nblocks >= frameNestMax {
				inFlightErr = types.NewRuntimeError("block nesting too deep")
				break loop
			}
			fr.blocks[fr.nblocks] = block{sp: fr.sp, typ: ins.Arg1}
			fr.nblocks++

		case compiler.POP_BLOCK:
			if fr.nblocks == 0 {
				inFlightErr = types.NewSystemError("POP_BLOCK without a block")
				break loop
			}
			fr.nblocks--
			blk := fr.blocks[fr.nblocks]
			for fr.sp > blk.sp {
				fr.pop()
			}

		case compiler.FOREACH_ITER:
			// stack: [indexable][counter]; push the next element and
			// advance, or pop both and branch when exhausted
			i, ok := fr.top().(types.Int)
			if !ok {
				inFlightErr = types.NewSystemError("FOREACH_ITER without a counter")
				break loop
			}
			seq, ok := fr.stack[fr.sp-2].(types.Indexable)
			if !ok {
				inFlightErr = types.NewTypeError("%s value is not iterable", fr.stack[fr.sp-2].Type())
				break loop
			}
			if int(i) < seq.Len() {
				fr.stack[fr.sp-1] = i + 1
				if err := fr.push(seq.Index(int(i))); err != nil {
					inFlightErr = err
					break loop
				}
			} else {
				fr.pop()
				fr.pop()
				fr.pc += int(ins.Arg2)
			}

		case compiler.ADD, compiler.SUB, compiler.MUL, compiler.DIV,
			compiler.MOD, compiler.POW, compiler.XOR, compiler.LSHIFT,
			compiler.RSHIFT, compiler.BINARY_OR, compiler.BINARY_AND:

			y := fr.pop()
			x := fr.pop()
			z, err := types.Binary(binopToken[ins.Op], x, y)
			if err != nil {
				inFlightErr = err
				break loop
			}
			fr.stack[fr.sp] = z
			fr.sp++

		case compiler.LOGICAL_AND:
			y := fr.pop()
			x := fr.pop()
			fr.stack[fr.sp] = boolInt(x.Truth() && y.Truth())
			fr.sp++

		case compiler.LOGICAL_OR:
			y := fr.pop()
			x := fr.pop()
			fr.stack[fr.sp] = boolInt(x.Truth() || y.Truth())
			fr.sp++

		case compiler.NEGATE:
			z, err := types.Unary(token.MINUS, fr.top())
			if err != nil {
				inFlightErr = err
				break loop
			}
			fr.stack[fr.sp-1] = z

		case compiler.BITWISE_NOT:
			z, err := types.Unary(token.TILDE, fr.top())
			if err != nil {
				inFlightErr = err
				break loop
			}
			fr.stack[fr.sp-1] = z

		case compiler.LOGICAL_NOT:
			fr.stack[fr.sp-1] = boolInt(!fr.top().Truth())

		case compiler.CMP:
			y := fr.pop()
			x := fr.pop()
			if int(ins.Arg1) >= len(cmpToken) {
				inFlightErr = types.NewSystemError("invalid CMP selector %d", ins.Arg1)
				break loop
			}
			z, err := types.Compare(cmpToken[ins.Arg1], x, y)
			if err != nil {
				inFlightErr = err
				break loop
			}
			fr.stack[fr.sp] = z
			fr.sp++

		case compiler.CALL_FUNC:
			narg := int(ins.Arg2)
			args := make([]types.Value, narg)
			copy(args, fr.stack[fr.sp-narg:fr.sp])
			for n := 0; n < narg; n++ {
				fr.pop()
			}
			callee := fr.pop()
			var owner types.Value
			if ins.Arg1 == compiler.IArgWithParent {
				owner = fr.pop()
			}

			if m, ok := callee.(*Method); ok {
				owner = m.Owner
				callee = m.Fn
			}

			switch callee := callee.(type) {
			case *Function:
				nfr, err := it.prepFrame(callee, owner, args)
				if err != nil {
					inFlightErr = err
					break loop
				}
				nfr.prev = fr
				fr = nfr
				it.cur = fr

			case *Builtin:
				// native calls begin and end within the same tick of the
				// interpreter loop; the built-in may re-enter the machine
				// through Interp.Call
				res, err := callee.Fn(it, owner, args)
				if err != nil {
					inFlightErr = err
					break loop
				}
				if res == nil {
					res = types.Null
				}
				if err := fr.push(res); err != nil {
					inFlightErr = err
					break loop
				}

			default:
				inFlightErr = types.NewTypeError("%s value is not callable", callee.Type())
				break loop
			}

		case compiler.RETURN_VALUE:
			res := fr.pop()
			prev := fr.prev
			it.freeFrame(fr)
			if prev == base {
				it.cur = base
				return res, nil
			}
			fr = prev
			it.cur = fr
			if err := fr.push(res); err != nil {
				inFlightErr = err
				break loop
			}

		case compiler.END:
			it.freeFrame(fr)
			it.cur = base
			return types.Null, nil

		default:
			inFlightErr = types.NewSystemError("unimplemented opcode %s", ins.Op)
			break loop
		}
	}

	// error unwind: release every frame of this chain, then hand the
	// exception to the caller
	inFlightErr = errPosition(inFlightErr, fr)
	for fr != base && fr != nil {
		prev := fr.prev
		it.freeFrame(fr)
		fr = prev
	}
	it.cur = base
	return nil, inFlightErr
}

func (it *Interp) ctxErr() error {
	if it.ctx == nil {
		return nil
	}
	select {
	case <-it.ctx.Done():
		return types.NewSystemError("execution cancelled: %s", it.ctx.Err())
	default:
		return nil
	}
}

func boolInt(b bool) types.Int {
	if b {
		return 1
	}
	return 0
}

// rodataValue converts a rodata slot to its runtime value.
func rodataValue(ro any) types.Value {
	switch c := ro.(type) {
	case int64:
		return types.Int(c)
	case float64:
		return types.Float(c)
	case string:
		return types.String(c)
	case compiler.Bytes:
		return types.Bytes(c)
	case *compiler.Executable:
		// loading an executable slot directly is unusual but legal in
		// hand-written assembly; it materializes a bare function
		return &Function{Exec: c}
	case nil:
		return types.Null
	}
	panic(fmt.Sprintf("unexpected rodata %T: %[1]v", ro))
}

// shallowCopy copies mutable containers one level deep; immutable values
// are returned as-is.
func shallowCopy(v types.Value) types.Value {
	switch v := v.(type) {
	case *types.List:
		elems := make([]types.Value, v.Len())
		for i := range elems {
			elems[i] = v.Index(i)
		}
		return types.NewList(elems)
	case *types.Dict:
		out := types.NewDict(v.Len())
		for _, k := range v.Keys() {
			val, _ := v.Get(k)
			_ = out.SetKey(k, val)
		}
		return out
	}
	return v
}

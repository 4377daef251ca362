package compiler

import (
	"github.com/evilcandy-lang/evilcandy/lang/token"
)

// Binary operator precedence, strongest binds highest. Power is
// right-associative, everything else left.
var binPrec = map[token.Token]int{
	token.PIPEPIPE:   1,
	token.ANDAND:     2,
	token.PIPE:       3,
	token.CIRCUMFLEX: 4,
	token.AMPERSAND:  5,
	token.EQEQ:       6,
	token.NEQ:        6,
	token.LT:         7,
	token.GT:         7,
	token.LE:         7,
	token.GE:         7,
	token.LTLT:       8,
	token.GTGT:       8,
	token.PLUS:       9,
	token.MINUS:      9,
	token.STAR:       10,
	token.SLASH:      10,
	token.PERCENT:    10,
	token.STARSTAR:   11,
}

var binOpcode = map[token.Token]Opcode{
	token.PIPEPIPE:   LOGICAL_OR,
	token.ANDAND:     LOGICAL_AND,
	token.PIPE:       BINARY_OR,
	token.CIRCUMFLEX: XOR,
	token.AMPERSAND:  BINARY_AND,
	token.LTLT:       LSHIFT,
	token.GTGT:       RSHIFT,
	token.PLUS:       ADD,
	token.MINUS:      SUB,
	token.STAR:       MUL,
	token.SLASH:      DIV,
	token.PERCENT:    MOD,
	token.STARSTAR:   POW,
}

var cmpArg = map[token.Token]uint8{
	token.EQEQ: IArgEQ,
	token.NEQ:  IArgNEQ,
	token.LT:   IArgLT,
	token.GT:   IArgGT,
	token.LE:   IArgLEQ,
	token.GE:   IArgGEQ,
}

// expression assembles one expression; on entry the current token is its
// first token, on exit the stream is positioned after its last token.
// Exactly one value is left on the stack.
func (a *asm) expression() {
	a.binaryExpr(1)
}

func (a *asm) binaryExpr(minPrec int) {
	a.unaryExpr()
	for {
		op := a.peek()
		prec := binPrec[op]
		if prec == 0 || prec < minPrec {
			return
		}
		a.next() // the operator
		a.next() // first token of the right operand
		if op == token.STARSTAR {
			a.binaryExpr(prec) // right-associative
		} else {
			a.binaryExpr(prec + 1)
		}
		if arg, ok := cmpArg[op]; ok {
			a.emit(CMP, arg, 0)
		} else {
			a.emit(binOpcode[op], 0, 0)
		}
	}
}

func (a *asm) unaryExpr() {
	switch a.tok {
	case token.MINUS:
		a.next()
		a.unaryExpr()
		a.emit(NEGATE, 0, 0)
	case token.PLUS:
		a.next()
		a.unaryExpr()
	case token.BANG:
		a.next()
		a.unaryExpr()
		a.emit(LOGICAL_NOT, 0, 0)
	case token.TILDE:
		a.next()
		a.unaryExpr()
		a.emit(BITWISE_NOT, 0, 0)
	default:
		a.postfixExpr()
	}
}

// postfixExpr assembles a primary expression and its dereference chain.
// Dereferences keep their parent value on the stack beneath the current
// target so that method calls know their receiver; the accumulated parents
// are collapsed with a single UNWIND at chain end.
func (a *asm) postfixExpr() {
	parents := a.chain(chainAll)
	if parents > 0 {
		a.emit(UNWIND, 0, parents)
	}
}

// chain modes: chainAll assembles the full chain including its final
// element; chainHold stops before emitting a final dereference so that the
// caller can turn it into a store.
const (
	chainAll = iota
	chainHold
)

// heldTarget describes the final, not-yet-emitted element of an assignment
// target chain.
type heldTarget struct {
	mode  uint8 // IArgAttrConst or IArgAttrStack
	arg2  int   // rodata name index for IArgAttrConst
	below int   // values on the stack beneath the target object (and key)
}

// chain assembles primary { '.'name | '['expr']' | '('args')' } and
// returns the number of parent values accumulated on the stack beneath the
// chain result. In chainHold mode the final dereference element is parsed
// but not emitted; the held element is stored in a.held.
func (a *asm) chain(mode int) (parents int) {
	a.primary()

	for {
		switch a.peek() {
		case token.DOT:
			a.next() // the dot
			name := a.expect(token.IDENT).Raw
			if mode == chainHold && !a.continuesChain() {
				a.held = heldTarget{mode: IArgAttrConst, arg2: a.rodata(name), below: parents}
				return parents
			}
			a.emit(GETATTR, IArgAttrConst, a.rodata(name))
			parents++

		case token.LBRACK:
			a.next() // the bracket
			a.next() // first token of the key
			a.expression()
			if a.next() != token.RBRACK {
				a.errorf("expected ']', found %#v", a.tok)
			}
			if mode == chainHold && !a.continuesChain() {
				a.held = heldTarget{mode: IArgAttrStack, below: parents}
				return parents
			}
			// the key stays beneath the result as an extra parent
			a.emit(GETATTR, IArgAttrStack, 0)
			parents += 2

		case token.LPAREN:
			a.next() // the paren
			if parents > 1 {
				// collapse everything between the receiver and the callee
				// before the arguments pile up on top of it
				a.emit(UNWIND, 0, parents-1)
				parents = 1
			}
			narg := 0
			if a.peek() == token.RPAREN {
				a.next()
			} else {
				for {
					a.next()
					a.expression()
					narg++
					if a.next() == token.RPAREN {
						break
					}
					if a.tok != token.COMMA {
						a.errorf("expected ',' or ')', found %#v", a.tok)
					}
				}
			}
			if parents > 0 {
				a.emit(CALL_FUNC, IArgWithParent, narg)
			} else {
				a.emit(CALL_FUNC, IArgNoParent, narg)
			}
			parents = 0

		default:
			return parents
		}
	}
}

// continuesChain reports whether the chain goes on after the element just
// parsed (another dereference or a call follows).
func (a *asm) continuesChain() bool {
	switch a.peek() {
	case token.DOT, token.LBRACK, token.LPAREN:
		return true
	}
	return false
}

func (a *asm) primary() {
	switch a.tok {
	case token.INT:
		a.emit(PUSH_CONST, 0, a.rodata(a.val.Int))
	case token.FLOAT:
		a.emit(PUSH_CONST, 0, a.rodata(a.val.Float))
	case token.STRING:
		a.emit(PUSH_CONST, 0, a.rodata(a.val.Str))
	case token.BYTES:
		a.emit(PUSH_CONST, 0, a.rodata(Bytes(a.val.Str)))
	case token.TRUE:
		a.emit(PUSH_CONST, 0, a.rodata(int64(1)))
	case token.FALSE:
		a.emit(PUSH_CONST, 0, a.rodata(int64(0)))
	case token.NULL:
		a.emit(PUSH_CONST, 0, a.rodata(nil))
	case token.IDENT:
		mode, arg2 := a.resolve(a.val.Raw)
		a.emit(PUSH_PTR, mode, arg2)
	case token.THIS:
		a.emit(PUSH_PTR, IArgThis, 0)
	case token.GLOBAL:
		a.emit(PUSH_PTR, IArgGbl, 0)
	case token.LPAREN:
		a.next()
		a.expression()
		if a.next() != token.RPAREN {
			a.errorf("expected ')', found %#v", a.tok)
		}
	case token.LBRACK:
		a.listLiteral()
	case token.LBRACE:
		a.dictLiteral()
	case token.FUNCTION:
		a.funcdef(false)
	case token.LAMBDA:
		a.funcdef(true)
	default:
		a.errorf("unexpected %#v in expression", a.tok)
	}
}

func (a *asm) listLiteral() {
	a.emit(DEFLIST, 0, 0)
	if a.peek() == token.RBRACK {
		a.next()
		return
	}
	for {
		a.next()
		a.expression()
		a.emit(LIST_APPEND, 0, 0)
		if a.next() == token.RBRACK {
			return
		}
		if a.tok != token.COMMA {
			a.errorf("expected ',' or ']', found %#v", a.tok)
		}
	}
}

// dictLiteral assembles '{ [private] [const] key: value, ... }' where key
// is an identifier or a string literal.
func (a *asm) dictLiteral() {
	a.emit(DEFDICT, 0, 0)
	if a.peek() == token.RBRACE {
		a.next()
		return
	}
	for {
		var flags uint8
		a.next()
		for {
			if a.tok == token.PRIVATE {
				flags |= IArgAttrFlagPrivate
				a.next()
			} else if a.tok == token.CONST {
				flags |= IArgAttrFlagConst
				a.next()
			} else {
				break
			}
		}
		var key string
		switch a.tok {
		case token.IDENT:
			key = a.val.Raw
		case token.STRING:
			key = a.val.Str
		default:
			a.errorf("expected entry key, found %#v", a.tok)
		}
		a.expect(token.COLON)
		a.next()
		a.expression()
		a.emit(ADDATTR, flags, a.rodata(key))
		if a.next() == token.RBRACE {
			return
		}
		if a.tok != token.COMMA {
			a.errorf("expected ',' or '}', found %#v", a.tok)
		}
	}
}

// funcdef assembles a function literal or a backquote lambda. The child
// function's defaults and closure cells are declared inside the parameter
// list ('name = expr' and ':name = expr' respectively) and their
// ADD_DEFAULT/ADD_CLOSURE instructions are emitted in the parent frame, so
// that they are bound by the time the function value is on the stack.
func (a *asm) funcdef(lambda bool) {
	line, _ := a.val.Pos.LineCol()
	a.emit(DEFFUNC, 0, a.funcno) // patched to a rodata index by the post-pass
	a.expect(token.LPAREN)

	parent := a.fr()
	child := a.pushFrame(line)

	if a.peek() == token.RPAREN {
		a.next()
	} else {
	params:
		for {
			closure := false
			if a.next() == token.COLON {
				closure = true
				a.next()
			}
			if a.tok != token.IDENT {
				a.errorf("expected parameter name, found %#v", a.tok)
			}
			name := a.val.Raw

			deflt := false
			if a.peek() == token.EQ {
				deflt = true
				a.next() // the '='
				a.next() // first token of the value

				// the value is evaluated in the parent frame, at definition
				// time
				a.popFrame()
				a.expression()
				a.frames = append(a.frames, child)
			}

			if closure {
				if !deflt {
					a.errorf("closure %s requires a value", name)
				}
				parent.emit(Instr{Op: ADD_CLOSURE})
				child.clos = append(child.clos, name)
			} else {
				if deflt {
					parent.emit(Instr{Op: ADD_DEFAULT, Arg2: int16(len(child.args))})
				}
				child.args = append(child.args, name)
			}

			switch a.next() {
			case token.COMMA:
			case token.RPAREN:
				break params
			default:
				a.errorf("expected ',' or ')', found %#v", a.tok)
			}
		}
	}

	// body
	if lambda {
		if a.peek() == token.LBRACE {
			a.next()
			a.block()
			if a.next() != token.LAMBDA {
				a.errorf("unbalanced lambda")
			}
			a.emit(PUSH_ZERO, 0, 0)
			a.emit(RETURN_VALUE, 0, 0)
		} else {
			a.next()
			a.expression()
			if a.next() != token.LAMBDA {
				a.errorf("unbalanced lambda")
			}
			a.emit(RETURN_VALUE, 0, 0)
		}
	} else {
		if a.next() != token.LBRACE {
			a.errorf("expected '{', found %#v", a.tok)
		}
		a.block()
		a.emit(PUSH_ZERO, 0, 0)
		a.emit(RETURN_VALUE, 0, 0)
	}

	a.popFrame()
}

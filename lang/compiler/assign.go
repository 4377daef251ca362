package compiler

import (
	"github.com/evilcandy-lang/evilcandy/lang/token"
)

// heldNone marks a.held as invalid: the parsed chain did not end in an
// assignable element.
const heldNone uint8 = 0xff

// assignOrExpr assembles either an assignment (including the ++/--
// statements) or an expression whose value is dropped. Assignments are
// statements, not expressions; the token stream's save/restore is used to
// decide which one this is before committing to a parse.
func (a *asm) assignOrExpr() {
	switch a.tok {
	case token.IDENT, token.THIS, token.GLOBAL:
	default:
		a.expression()
		a.emit(POP, 0, 0)
		return
	}

	pos := a.st.Save()
	tok, val := a.tok, a.val
	isAssign := a.looksLikeAssignment()
	a.st.Restore(pos)
	a.tok, a.val = tok, val

	if isAssign {
		a.assignment()
	} else {
		a.expression()
		a.emit(POP, 0, 0)
	}
}

// looksLikeAssignment skims over a candidate target chain and reports
// whether an assignment operator follows it. It moves the stream; the
// caller restores it.
func (a *asm) looksLikeAssignment() bool {
	for {
		switch tok := a.next(); {
		case tok == token.DOT:
			if a.next() != token.IDENT {
				return false
			}
		case tok == token.LBRACK:
			if !a.skipBalanced(token.LBRACK, token.RBRACK) {
				return false
			}
		case tok == token.LPAREN:
			if !a.skipBalanced(token.LPAREN, token.RPAREN) {
				return false
			}
		case tok == token.EQ || tok.IsAugmented(),
			tok == token.PLUSPLUS, tok == token.MINUSMINUS:
			return true
		default:
			return false
		}
	}
}

// skipBalanced consumes tokens until the matching close delimiter; open was
// already consumed.
func (a *asm) skipBalanced(open, close token.Token) bool {
	depth := 1
	for {
		switch a.next() {
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return true
			}
		case token.EOF:
			return false
		}
	}
}

// assignment assembles 'target op ...' where op is '=', an augmented
// assignment, or '++'/'--'. Plain names store through the pointer modes;
// dereference targets store through SETATTR, with the chain's accumulated
// parents popped afterwards.
func (a *asm) assignment() {
	if a.tok == token.IDENT && !a.continuesChain() {
		name := a.val.Raw
		mode, arg2 := a.resolve(name)
		switch op := a.next(); {
		case op == token.EQ:
			a.next()
			a.expression()
			a.emit(ASSIGN, mode, arg2)
		case op == token.PLUSPLUS:
			a.emit(INCR, mode, arg2)
		case op == token.MINUSMINUS:
			a.emit(DECR, mode, arg2)
		case op.IsAugmented():
			a.next()
			a.expression()
			a.emit(ASSIGN_ADD+Opcode(op-token.PLUS_EQ), mode, arg2)
		default:
			a.errorf("expected assignment operator, found %#v", op)
		}
		return
	}

	a.held = heldTarget{mode: heldNone}
	a.chain(chainHold)
	if a.held.mode == heldNone {
		a.errorf("expression is not assignable")
	}
	h := a.held

	switch op := a.next(); {
	case op == token.EQ:
		a.next()
		a.expression()
		a.emit(SETATTR, h.mode, h.arg2)
	case op == token.PLUSPLUS, op == token.MINUSMINUS:
		a.emit(GETATTR, h.mode, h.arg2)
		a.emit(PUSH_CONST, 0, a.rodata(int64(1)))
		if op == token.PLUSPLUS {
			a.emit(ADD, 0, 0)
		} else {
			a.emit(SUB, 0, 0)
		}
		a.emit(SETATTR, h.mode, h.arg2)
	case op.IsAugmented():
		a.emit(GETATTR, h.mode, h.arg2)
		a.next()
		a.expression()
		a.emit(ADD+Opcode(op-token.PLUS_EQ), 0, 0)
		a.emit(SETATTR, h.mode, h.arg2)
	default:
		a.errorf("expected assignment operator, found %#v", op)
	}

	for i := 0; i < h.below; i++ {
		a.emit(POP, 0, 0)
	}
}

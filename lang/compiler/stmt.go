package compiler

import (
	"github.com/evilcandy-lang/evilcandy/lang/token"
)

// statement assembles one statement; the current token is its first token.
func (a *asm) statement() {
	switch a.tok {
	case token.SEMI:
		// empty statement

	case token.LBRACE:
		a.block()

	case token.LET:
		a.letStmt()

	case token.IF:
		a.ifStmt()

	case token.WHILE:
		a.whileStmt()

	case token.DO:
		a.doStmt()

	case token.FOR:
		a.forStmt()

	case token.RETURN:
		a.returnStmt()

	case token.BREAK:
		a.breakStmt()

	case token.FUNCTION:
		a.funcStmt()

	case token.IDENT:
		// 'load' is not a reserved word; it introduces a load statement only
		// when directly followed by a string literal.
		if a.val.Raw == "load" && a.peek() == token.STRING {
			a.loadStmt()
			return
		}
		a.exprStmt()

	default:
		a.exprStmt()
	}
}

// block assembles '{ stmt... }', scoping the locals declared within: they
// are popped and forgotten at the closing brace.
func (a *asm) block() {
	fr := a.fr()
	fr.scopes = append(fr.scopes, len(fr.locals))

	for a.next() != token.RBRACE {
		if a.tok == token.EOF {
			a.errorf("expected '}', found end of file")
		}
		a.statement()
	}

	a.closeScope()
}

func (a *asm) closeScope() {
	fr := a.fr()
	n := fr.scopes[len(fr.scopes)-1]
	fr.scopes = fr.scopes[:len(fr.scopes)-1]
	for len(fr.locals) > n {
		a.emit(POP_LOCAL, 0, 0)
		fr.locals = fr.locals[:len(fr.locals)-1]
	}
}

// letStmt assembles 'let [const] name [= expr];'. At the top level the
// binding goes to the global symbol table; inside a function it becomes a
// local stack slot.
func (a *asm) letStmt() {
	var cflag uint8
	if a.next() == token.CONST {
		cflag = IArgConst
		a.next()
	}
	if a.tok != token.IDENT {
		a.errorf("expected identifier after let, found %#v", a.tok)
	}
	name := a.val.Raw

	if a.atTopLevel() {
		a.emit(SYMTAB, 0, a.rodata(name))
		if a.next() == token.EQ {
			a.next()
			a.expression()
			a.emit(ASSIGN, IArgSeek|cflag, a.rodata(name))
			a.next()
		}
	} else {
		a.emit(PUSH_LOCAL, 0, 0)
		idx := a.declareLocal(name)
		if a.next() == token.EQ {
			a.next()
			a.expression()
			a.emit(ASSIGN, IArgAP|cflag, idx)
			a.next()
		}
	}
	if a.tok != token.SEMI {
		a.errorf("expected ';', found %#v", a.tok)
	}
}

func (a *asm) ifStmt() {
	a.expect(token.LPAREN)
	a.next()
	a.expression()
	if a.next() != token.RPAREN {
		a.errorf("expected ')', found %#v", a.tok)
	}

	elseLabel := a.newLabel()
	a.emit(B_IF, IArgFalse, elseLabel)

	a.next()
	a.statement()

	if a.peek() == token.ELSE {
		a.next() // consume else
		endLabel := a.newLabel()
		a.emit(B, 0, endLabel)
		a.bindLabel(elseLabel)
		a.next()
		a.statement()
		a.bindLabel(endLabel)
	} else {
		a.bindLabel(elseLabel)
	}
}

func (a *asm) whileStmt() {
	fr := a.fr()
	endLabel := a.newLabel()
	condLabel := a.newLabel()

	a.emit(PUSH_BLOCK, IArgLoop, endLabel)
	fr.loops = append(fr.loops, asLoop{endLabel: endLabel, nlocals: len(fr.locals)})

	a.bindLabel(condLabel)
	a.expect(token.LPAREN)
	a.next()
	a.expression()
	if a.next() != token.RPAREN {
		a.errorf("expected ')', found %#v", a.tok)
	}
	a.emit(B_IF, IArgFalse, endLabel)

	a.next()
	a.statement()
	a.emit(B, 0, condLabel)

	a.bindLabel(endLabel)
	a.emit(POP_BLOCK, 0, 0)
	fr.loops = fr.loops[:len(fr.loops)-1]
}

func (a *asm) doStmt() {
	fr := a.fr()
	endLabel := a.newLabel()
	bodyLabel := a.newLabel()

	a.emit(PUSH_BLOCK, IArgLoop, endLabel)
	fr.loops = append(fr.loops, asLoop{endLabel: endLabel, nlocals: len(fr.locals)})

	a.bindLabel(bodyLabel)
	a.next()
	a.statement()

	if a.next() != token.WHILE {
		a.errorf("expected while after do body, found %#v", a.tok)
	}
	a.expect(token.LPAREN)
	a.next()
	a.expression()
	if a.next() != token.RPAREN {
		a.errorf("expected ')', found %#v", a.tok)
	}
	a.expect(token.SEMI)
	a.emit(B_IF, IArgTrue, bodyLabel)

	a.bindLabel(endLabel)
	a.emit(POP_BLOCK, 0, 0)
	fr.loops = fr.loops[:len(fr.loops)-1]
}

// forStmt assembles 'for (init; cond; step) stmt [else stmt]'. The else
// branch runs when the loop ends without a break.
func (a *asm) forStmt() {
	fr := a.fr()
	a.expect(token.LPAREN)

	// the init clause gets its own scope so its locals die with the loop
	fr.scopes = append(fr.scopes, len(fr.locals))
	if a.next() != token.SEMI {
		a.statement() // init, consumes its own ';'
	}

	endLabel := a.newLabel()
	elseLabel := a.newLabel()
	condLabel := a.newLabel()
	stepLabel := a.newLabel()

	a.emit(PUSH_BLOCK, IArgLoop, endLabel)
	fr.loops = append(fr.loops, asLoop{endLabel: endLabel, nlocals: len(fr.locals)})

	a.bindLabel(condLabel)
	if a.next() == token.SEMI {
		// no condition: loop until break
	} else {
		a.expression()
		a.emit(B_IF, IArgFalse, elseLabel)
		if a.next() != token.SEMI {
			a.errorf("expected ';', found %#v", a.tok)
		}
	}

	// the step clause is scanned now but assembled after the body: save its
	// tokens and skip to the closing paren
	stepPos := a.st.Save()
	depth := 0
	for {
		switch a.next() {
		case token.LPAREN:
			depth++
		case token.RPAREN:
			if depth == 0 {
				goto body
			}
			depth--
		case token.EOF:
			a.errorf("expected ')', found end of file")
		}
	}

body:
	bodyLabel := a.newLabel()
	a.emit(B, 0, bodyLabel)

	a.bindLabel(stepLabel)
	endPos := a.st.Save()
	a.st.Restore(stepPos)
	if a.next() != token.RPAREN {
		a.assignOrExpr()
	}
	a.st.Restore(endPos)
	a.emit(B, 0, condLabel)

	a.bindLabel(bodyLabel)
	a.next()
	a.statement()
	a.emit(B, 0, stepLabel)

	a.bindLabel(elseLabel)
	if a.peek() == token.ELSE {
		a.next() // consume else
		a.next()
		a.statement()
	}

	a.bindLabel(endLabel)
	a.emit(POP_BLOCK, 0, 0)
	fr.loops = fr.loops[:len(fr.loops)-1]
	a.closeScope()
}

func (a *asm) returnStmt() {
	if a.atTopLevel() {
		a.errorf("return outside of function")
	}
	if a.next() == token.SEMI {
		a.emit(PUSH_ZERO, 0, 0)
	} else {
		a.expression()
		if a.next() != token.SEMI {
			a.errorf("expected ';', found %#v", a.tok)
		}
	}
	a.emit(RETURN_VALUE, 0, 0)
}

// breakStmt targets the innermost loop. Locals declared between the loop
// head and the break site are popped before the branch so that the runtime
// stack is balanced at the target.
func (a *asm) breakStmt() {
	fr := a.fr()
	if len(fr.loops) == 0 {
		a.errorf("break outside of loop")
	}
	a.expect(token.SEMI)

	loop := fr.loops[len(fr.loops)-1]
	for n := len(fr.locals); n > loop.nlocals; n-- {
		a.emit(POP_LOCAL, 0, 0)
	}
	a.emit(B, 0, loop.endLabel)
}

// loadStmt assembles 'load "file";'. Only the script body may load other
// files; a load inside an if body is fine, one inside a function is not.
func (a *asm) loadStmt() {
	if !a.atTopLevel() {
		a.errorf("load inside a function")
	}
	file := a.expect(token.STRING)
	a.expect(token.SEMI)
	a.emit(LOAD, 0, a.rodata(file.Str))
}

// funcStmt assembles 'function name(params) { ... }', binding the function
// value to name like the equivalent let statement would. A function
// literal in statement position (no name) is an expression statement.
func (a *asm) funcStmt() {
	if a.peek() != token.IDENT {
		a.exprStmt()
		return
	}
	a.next() // the name
	name := a.val.Raw

	if a.atTopLevel() {
		a.emit(SYMTAB, 0, a.rodata(name))
		a.funcdef(false)
		a.emit(ASSIGN, IArgSeek, a.rodata(name))
	} else {
		a.emit(PUSH_LOCAL, 0, 0)
		idx := a.declareLocal(name)
		a.funcdef(false)
		a.emit(ASSIGN, IArgAP, idx)
	}

	// a trailing ';' after the body is tolerated
	if a.peek() == token.SEMI {
		a.next()
	}
}

// exprStmt assembles an expression statement, which covers assignments and
// in/decrements as well as bare expressions (whose value is dropped).
func (a *asm) exprStmt() {
	a.assignOrExpr()
	if a.next() != token.SEMI {
		a.errorf("expected ';', found %#v", a.tok)
	}
}

package compiler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustAssemble(t *testing.T, src string) *Executable {
	t.Helper()
	ex, err := Assemble(context.Background(), "test.evc", []byte(src))
	require.NoError(t, err)
	require.NotNil(t, ex)
	return ex
}

func TestAssembleErrors(t *testing.T) {
	cases := []struct {
		desc string
		src  string
		err  string // error "contains" this string
	}{
		{"break outside loop", `break;`, "break outside of loop"},
		{"return at top level", `return 1;`, "return outside of function"},
		{"load inside function", `let f = function() { load "x"; };`, "load inside a function"},
		{"missing semi", `let x = 1`, "expected ';'"},
		{"missing close brace", `{ let x = 1;`, "expected '}'"},
		{"missing paren", `if (true { 1; }`, "expected ')'"},
		{"redefined local", `let f = function() { let a = 1; let a = 2; };`, "redefinition of a"},
		{"assign to call", `let f = function() { return 0; }; f() = 2;`, "not assignable"},
		{"unbalanced lambda", "let f = ``(x) x*x;", "unbalanced lambda"},
		{"closure without value", `let f = function(:c) { return c; };`, "requires a value"},
		{"bad dict key", `let d = {1: 2};`, "expected entry key"},
		{"unterminated string", `let s = "abc`, "not terminated"},
	}
	for _, c := range cases {
		t.Run(c.desc, func(t *testing.T) {
			_, err := Assemble(context.Background(), "test.evc", []byte(c.src))
			require.Error(t, err)
			assert.Contains(t, err.Error(), c.err)
		})
	}
}

// TestConstantFolding checks that a pure constant expression is reduced to
// a single load of the folded value, with the intermediate constants
// dropped from rodata.
func TestConstantFolding(t *testing.T) {
	ex := mustAssemble(t, `let x = 2 + 3 * 4; print(x);`)

	var loads []int64
	for _, ins := range ex.Instr {
		assert.NotEqual(t, NOP, ins.Op, "NOPs must be squeezed out")
		if ins.Op == PUSH_CONST {
			if v, ok := ex.Rodata[ins.Arg2].(int64); ok {
				loads = append(loads, v)
			}
		}
	}
	require.Equal(t, []int64{14}, loads)

	// rodata compaction dropped the folded-away constants
	for _, ro := range ex.Rodata {
		if v, ok := ro.(int64); ok {
			assert.Equal(t, int64(14), v)
		}
	}
}

func TestFoldingErrorsDiscarded(t *testing.T) {
	// 1/0 cannot fold; the original instructions must survive for the
	// runtime to raise the error
	ex := mustAssemble(t, `let x = 1 / 0;`)
	var divs int
	for _, ins := range ex.Instr {
		if ins.Op == DIV {
			divs++
		}
	}
	assert.Equal(t, 1, divs)
}

func TestFoldingSkipsLogicalOps(t *testing.T) {
	ex := mustAssemble(t, `let x = 1 && 0; let y = 1 || 0; let z = 1 < 2;`)
	var and, or, cmp int
	for _, ins := range ex.Instr {
		switch ins.Op {
		case LOGICAL_AND:
			and++
		case LOGICAL_OR:
			or++
		case CMP:
			cmp++
		}
	}
	assert.Equal(t, 1, and)
	assert.Equal(t, 1, or)
	assert.Equal(t, 1, cmp)
}

func TestNestedFunctionTree(t *testing.T) {
	ex := mustAssemble(t, `
		let outer = function(a) {
			let inner = function(b) { return b + 1; };
			return inner(a);
		};
		print(outer(1));
	`)
	require.Equal(t, 3, ex.NumFuncs())

	// each DEFFUNC must reference an executable rodata slot
	seen := 0
	ex.Walk(func(x *Executable) {
		for _, ins := range x.Instr {
			if ins.Op == DEFFUNC {
				seen++
				_, ok := x.Rodata[ins.Arg2].(*Executable)
				assert.True(t, ok, "DEFFUNC arg2 must index a child executable")
			}
		}
	})
	assert.Equal(t, 2, seen)

	// uuids are unique within the file
	uuids := map[string]bool{}
	ex.Walk(func(x *Executable) { uuids[x.UUID] = true })
	assert.Len(t, uuids, 3)
}

func TestBranchesAreRelative(t *testing.T) {
	ex := mustAssemble(t, `
		let i = 0;
		while (i < 3) { i = i + 1; }
	`)
	for pc, ins := range ex.Instr {
		if ins.Op == B || ins.Op == B_IF || (ins.Op == PUSH_BLOCK && ins.Arg1 == IArgLoop) {
			target := pc + 1 + int(ins.Arg2)
			assert.GreaterOrEqual(t, target, 0)
			assert.LessOrEqual(t, target, len(ex.Instr))
		}
	}
}

func TestBreakPopsLoopLocals(t *testing.T) {
	ex := mustAssemble(t, `
		let f = function() {
			while (1) {
				let a = 1;
				let b = 2;
				if (a) { break; }
			}
			return 0;
		};
	`)
	// find the function body and its break sequence: two POP_LOCALs
	// directly before a forward branch
	var body *Executable
	ex.Walk(func(x *Executable) {
		if x != ex {
			body = x
		}
	})
	require.NotNil(t, body)

	found := false
	for pc := 2; pc < len(body.Instr); pc++ {
		ins := body.Instr[pc]
		if ins.Op == B && ins.Arg2 > 0 &&
			body.Instr[pc-1].Op == POP_LOCAL && body.Instr[pc-2].Op == POP_LOCAL {
			found = true
		}
	}
	assert.True(t, found, "break must pop the loop-scoped locals before branching")
}

func TestInstrWordRoundtrip(t *testing.T) {
	cases := []Instr{
		{Op: NOP},
		{Op: PUSH_CONST, Arg2: 123},
		{Op: PUSH_PTR, Arg1: IArgSeek, Arg2: -1},
		{Op: B, Arg2: -42},
		{Op: CALL_FUNC, Arg1: IArgWithParent, Arg2: 3},
		{Op: CMP, Arg1: IArgGEQ, Arg2: 0x7fff},
		{Op: UNWIND, Arg2: -0x8000},
	}
	for _, ins := range cases {
		assert.Equal(t, ins, InstrFromWord(ins.Word()))
	}
}

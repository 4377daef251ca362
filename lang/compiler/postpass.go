package compiler

import (
	"fmt"

	"github.com/evilcandy-lang/evilcandy/lang/token"
	"github.com/evilcandy-lang/evilcandy/lang/types"
)

// postPass runs the per-function optimization and resolution passes over
// every finished assembly frame, bottom-up so that child executables are
// settled before their parents link to them, and returns the materialized
// entry point.
func (a *asm) postPass() *Executable {
	exs := make([]*Executable, len(a.all))
	for funcno := len(a.all) - 1; funcno >= 0; funcno-- {
		fr := a.all[funcno]
		foldConstants(fr)
		squeezeNops(fr)
		compactRodata(fr)
		resolveLabels(fr)
		linkChildren(fr, exs)
		exs[funcno] = materialize(a.file, fr)
	}
	return exs[0]
}

// foldable maps the pure binary opcodes to the operator tokens used by the
// runtime operator tables. LOGICAL_OR, LOGICAL_AND and CMP are deliberately
// not folded.
var foldable = map[Opcode]token.Token{
	ADD:        token.PLUS,
	SUB:        token.MINUS,
	MUL:        token.STAR,
	DIV:        token.SLASH,
	MOD:        token.PERCENT,
	POW:        token.STARSTAR,
	XOR:        token.CIRCUMFLEX,
	LSHIFT:     token.LTLT,
	RSHIFT:     token.GTGT,
	BINARY_OR:  token.PIPE,
	BINARY_AND: token.AMPERSAND,
}

// foldConstants evaluates PUSH_CONST/PUSH_CONST/binop triples using the
// same operator tables the machine uses at runtime, replacing the triple
// with a single PUSH_CONST of the folded value and two NOPs. Evaluation
// errors are silently discarded: the same operation might be unreachable or
// recovered at runtime. Repeats until a full pass produces no reduction.
func foldConstants(fr *asFrame) {
	live := make([]int, 0, len(fr.instr))
	for {
		// collect the live instruction positions so that the NOPs left by
		// earlier reductions are transparent to the pattern match
		live = live[:0]
		for i, ins := range fr.instr {
			if ins.Op != NOP {
				live = append(live, i)
			}
		}

		reduced := false
		for n := 0; n+2 < len(live); n++ {
			i, j, k := live[n], live[n+1], live[n+2]
			a, b, op := fr.instr[i], fr.instr[j], fr.instr[k]
			if a.Op != PUSH_CONST || b.Op != PUSH_CONST {
				continue
			}
			binop, ok := foldable[op.Op]
			if !ok {
				continue
			}
			x := constValue(fr.rodata[a.Arg2])
			y := constValue(fr.rodata[b.Arg2])
			z, err := types.Binary(binop, x, y)
			if err != nil {
				continue
			}
			ro, ok := constRodata(z)
			if !ok {
				continue
			}
			fr.instr[i].Arg2 = int16(frameRodata(fr, ro))
			fr.instr[j] = Instr{Op: NOP}
			fr.instr[k] = Instr{Op: NOP}
			reduced = true
			break
		}
		if !reduced {
			return
		}
	}
}

// constValue converts a rodata slot to its runtime value.
func constValue(ro any) types.Value {
	switch c := ro.(type) {
	case int64:
		return types.Int(c)
	case float64:
		return types.Float(c)
	case string:
		return types.String(c)
	case Bytes:
		return types.Bytes(c)
	case nil:
		return types.Null
	}
	panic(fmt.Sprintf("unexpected rodata %T: %[1]v", ro))
}

// constRodata converts a runtime value back to its rodata form. Values
// that have no rodata representation report !ok.
func constRodata(v types.Value) (any, bool) {
	switch v := v.(type) {
	case types.Int:
		return int64(v), true
	case types.Float:
		return float64(v), true
	case types.String:
		return string(v), true
	case types.Bytes:
		return Bytes(v), true
	case types.NullType:
		return nil, true
	}
	return nil, false
}

// squeezeNops shifts instructions down over contiguous NOP runs and adjusts
// the labels that target positions after each run.
func squeezeNops(fr *asFrame) {
	newIdx := make([]int, len(fr.instr)+1)
	out := fr.instr[:0]
	for i, ins := range fr.instr {
		newIdx[i] = len(out)
		if ins.Op != NOP {
			out = append(out, ins)
		}
	}
	newIdx[len(fr.instr)] = len(out)
	fr.instr = out

	for i, l := range fr.labels {
		fr.labels[i] = uint16(newIdx[l])
	}
}

// compactRodata drops rodata slots that no instruction references and
// patches the referring instructions' arg2 for the shift. DEFFUNC is not a
// rodata user at this stage: its arg2 still carries the child's function
// number until the tree-link step replaces it, so it is neither read nor
// patched here. Slots that already hold an executable are kept regardless.
func compactRodata(fr *asFrame) {
	used := make([]bool, len(fr.rodata))
	for _, ins := range fr.instr {
		if ins.Op == DEFFUNC {
			continue
		}
		if ins.UsesRodata() {
			used[ins.Arg2] = true
		}
	}
	for i, ro := range fr.rodata {
		if _, ok := ro.(*Executable); ok {
			used[i] = true
		}
	}

	newIdx := make([]int16, len(fr.rodata))
	out := fr.rodata[:0]
	for i, ro := range fr.rodata {
		if !used[i] {
			newIdx[i] = -1
			continue
		}
		newIdx[i] = int16(len(out))
		out = append(out, ro)
	}
	fr.rodata = out

	for i := range fr.instr {
		if fr.instr[i].Op == DEFFUNC {
			continue
		}
		if fr.instr[i].UsesRodata() {
			fr.instr[i].Arg2 = newIdx[fr.instr[i].Arg2]
		}
	}
}

// resolveLabels rewrites the branching instructions' label numbers as
// pc-relative offsets (target - current - 1, as the machine has already
// stepped past the instruction when it applies the offset). Plain-scope
// PUSH_BLOCK carries no target and is left alone.
func resolveLabels(fr *asFrame) {
	for i := range fr.instr {
		ins := &fr.instr[i]
		if !ins.Op.IsBranch() {
			continue
		}
		if ins.Op == PUSH_BLOCK && ins.Arg1 == IArgBlock {
			continue
		}
		target := int(fr.labels[ins.Arg2])
		ins.Arg2 = int16(target - i - 1)
	}
}

// linkChildren replaces each DEFFUNC's function number with the rodata
// index of the materialized child executable. The earlier passes leave
// DEFFUNC's arg2 untouched, so it is still the funcno here.
func linkChildren(fr *asFrame, exs []*Executable) {
	for i := range fr.instr {
		if fr.instr[i].Op != DEFFUNC {
			continue
		}
		// appended directly: the dedup index is stale after compaction, and
		// each child is referenced by exactly one DEFFUNC anyway
		child := exs[fr.instr[i].Arg2]
		fr.rodata = append(fr.rodata, child)
		fr.instr[i].Arg2 = int16(len(fr.rodata) - 1)
	}
}

// materialize converts an assembly frame to its immutable executable.
func materialize(file string, fr *asFrame) *Executable {
	return &Executable{
		Instr:    fr.instr,
		Rodata:   fr.rodata,
		Labels:   fr.labels,
		UUID:     fmt.Sprintf("x%03d", fr.funcno),
		FileName: file,
		FileLine: fr.line,
	}
}

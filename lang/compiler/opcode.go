package compiler

import "fmt"

// Byte code recording a higher version than this is rejected on read.
const Version = 1

// Opcode is the operation selector of an instruction. An instruction is a
// fixed 32-bit unit: the opcode, a small modifier argument (Arg1, usually
// one of the IArg enums) and a signed 16-bit operand (Arg2, usually a
// rodata or stack offset).
type Opcode uint8

// "x GETATTR x y" is a "stack picture" that describes the state of the
// stack before and after execution of the instruction.
const ( //nolint:revive
	NOP Opcode = iota

	// stack operations
	PUSH_CONST //          - PUSH_CONST<rodata>   value
	PUSH_LOCAL //          - PUSH_LOCAL           null     [declares a local slot]
	PUSH_PTR   //          - PUSH_PTR<mode,idx>   value
	PUSH_COPY  //          - PUSH_COPY<mode,idx>  copy
	PUSH_ZERO  //          - PUSH_ZERO            0
	POP        //          x POP                  -
	POP_LOCAL  //          x POP_LOCAL            -        [undeclares a local slot]
	UNWIND     // p1..pn res UNWIND<n>            res      [collapse dereference parents]

	// definitions
	DEFFUNC     //            - DEFFUNC<rodata>     fn     [child executable from rodata]
	ADD_CLOSURE //       fn val ADD_CLOSURE         fn     [bind next closure cell]
	ADD_DEFAULT //       fn val ADD_DEFAULT<n>      fn     [bind default for param n]
	DEFLIST     //            - DEFLIST             list
	LIST_APPEND //     list val LIST_APPEND         list
	DEFDICT     //            - DEFDICT             dict
	ADDATTR     //     dict val ADDATTR<flg,rodata> dict

	// attributes
	GETATTR // obj [key] GETATTR<mode,rodata>  obj [key] attr   [parent kept below]
	SETATTR // obj [key] val SETATTR<mode,rodata> -

	// assignment; the pointer mode and target are in arg1/arg2
	// (keep the augmented forms in this order, it must match their
	// binary operators)
	ASSIGN     // val ASSIGN<mode,idx> -
	ASSIGN_ADD // val ASSIGN_ADD<mode,idx> -
	ASSIGN_SUB
	ASSIGN_MUL
	ASSIGN_DIV
	ASSIGN_MOD
	ASSIGN_XOR
	ASSIGN_LS
	ASSIGN_RS
	ASSIGN_OR
	ASSIGN_AND

	SYMTAB // - SYMTAB<rodata>     -   [declare a global binding]
	LOAD   // - LOAD<rodata>       -   [execute another source file]

	// control flow; arg2 of the branching forms is a label number until
	// the post-pass replaces it with a pc-relative offset
	B            //    - B<addr>             -
	B_IF         // cond B_IF<want,addr>     -
	PUSH_BLOCK   //    - PUSH_BLOCK<t,addr>  -
	POP_BLOCK    //    - POP_BLOCK           -
	FOREACH_ITER // seq i FOREACH_ITER<addr> seq i+1 elem  [or jump when done]

	// binary operators (keep ADD..BINARY_AND in this order, it must match
	// the augmented assignments)
	ADD
	SUB
	MUL
	DIV
	MOD
	XOR
	LSHIFT
	RSHIFT
	BINARY_OR
	BINARY_AND
	POW
	LOGICAL_AND
	LOGICAL_OR

	// unary operators
	NEGATE
	BITWISE_NOT
	LOGICAL_NOT

	// in-place increment/decrement of an addressed slot
	INCR // - INCR<mode,idx> -
	DECR // - DECR<mode,idx> -

	CMP // x y CMP<how> bool

	CALL_FUNC    // [parent] fn a0..aN-1 CALL_FUNC<p,n> result
	RETURN_VALUE // res RETURN_VALUE -   [pops the frame]
	END          //   - END          -   [clean script termination]

	OpcodeMax = END
)

// PUSH_PTR / PUSH_COPY / ASSIGN* / INCR / DECR arg1 pointer modes.
const (
	IArgAP   uint8 = iota // local slot, AP-relative
	IArgFP                // argument slot, FP-relative
	IArgCP                // closure cell
	IArgSeek              // global lookup by name, arg2 is a rodata string
	IArgGbl               // the __gbl__ dict itself, arg2 ignored
	IArgThis              // the owning object, arg2 ignored

	iargModeMask uint8 = 0x0f

	// IArgConst marks the first store to the binding as capturing it
	// immutably. Set on ASSIGN.
	IArgConst uint8 = 0x10
)

// IArgMode extracts the pointer mode from an arg1 value.
func IArgMode(arg1 uint8) uint8 { return arg1 & iargModeMask }

// GETATTR / SETATTR arg1 modes.
const (
	IArgAttrConst uint8 = iota // attribute name is a rodata string
	IArgAttrStack              // key is on the stack
)

// ADDATTR arg1 flags.
const (
	IArgAttrFlagConst   uint8 = 1 << 0
	IArgAttrFlagPrivate uint8 = 1 << 1
)

// CALL_FUNC arg1 enumerations.
const (
	IArgNoParent uint8 = iota
	IArgWithParent
)

// CMP arg1 enumerations.
const (
	IArgEQ uint8 = iota
	IArgLEQ
	IArgGEQ
	IArgNEQ
	IArgLT
	IArgGT
)

// B_IF arg1: branch when the condition's truthiness equals arg1.
const (
	IArgFalse uint8 = iota
	IArgTrue
)

// PUSH_BLOCK arg1 block types. Plain blocks have no branch target so the
// post-pass leaves their arg2 alone.
const (
	IArgBlock uint8 = iota
	IArgLoop
)

var opcodeNames = [...]string{
	ADD:          "add",
	ADDATTR:      "addattr",
	ADD_CLOSURE:  "add_closure",
	ADD_DEFAULT:  "add_default",
	ASSIGN:       "assign",
	ASSIGN_ADD:   "assign_add",
	ASSIGN_AND:   "assign_and",
	ASSIGN_DIV:   "assign_div",
	ASSIGN_LS:    "assign_ls",
	ASSIGN_MOD:   "assign_mod",
	ASSIGN_MUL:   "assign_mul",
	ASSIGN_OR:    "assign_or",
	ASSIGN_RS:    "assign_rs",
	ASSIGN_SUB:   "assign_sub",
	ASSIGN_XOR:   "assign_xor",
	B:            "b",
	BINARY_AND:   "binary_and",
	BINARY_OR:    "binary_or",
	BITWISE_NOT:  "bitwise_not",
	B_IF:         "b_if",
	CALL_FUNC:    "call_func",
	CMP:          "cmp",
	DECR:         "decr",
	DEFDICT:      "defdict",
	DEFFUNC:      "deffunc",
	DEFLIST:      "deflist",
	DIV:          "div",
	END:          "end",
	FOREACH_ITER: "foreach_iter",
	INCR:         "incr",
	LIST_APPEND:  "list_append",
	LOAD:         "load",
	LOGICAL_AND:  "logical_and",
	LOGICAL_NOT:  "logical_not",
	LOGICAL_OR:   "logical_or",
	LSHIFT:       "lshift",
	MOD:          "mod",
	MUL:          "mul",
	NEGATE:       "negate",
	NOP:          "nop",
	POP:          "pop",
	POP_BLOCK:    "pop_block",
	POP_LOCAL:    "pop_local",
	POW:          "pow",
	PUSH_BLOCK:   "push_block",
	PUSH_CONST:   "push_const",
	PUSH_COPY:    "push_copy",
	PUSH_LOCAL:   "push_local",
	PUSH_PTR:     "push_ptr",
	PUSH_ZERO:    "push_zero",
	RETURN_VALUE: "return_value",
	RSHIFT:       "rshift",
	SETATTR:      "setattr",
	SUB:          "sub",
	SYMTAB:       "symtab",
	UNWIND:       "unwind",
	XOR:          "xor",
}

var reverseLookupOpcode = func() map[string]Opcode {
	m := make(map[string]Opcode, len(opcodeNames))
	for op, s := range opcodeNames {
		m[s] = Opcode(op)
	}
	return m
}()

// IsBranch returns true for the opcodes whose arg2 is a label number that
// the post-pass resolves to a pc-relative offset. Plain-scope PUSH_BLOCK is
// the exception, checked separately with its arg1.
func (op Opcode) IsBranch() bool {
	switch op {
	case B, B_IF, FOREACH_ITER, PUSH_BLOCK:
		return true
	}
	return false
}

// UsesRodata returns true if the instruction's arg2 addresses a rodata
// slot.
func (ins Instr) UsesRodata() bool {
	switch ins.Op {
	case PUSH_CONST, SYMTAB, DEFFUNC, LOAD, ADDATTR:
		return true
	case GETATTR, SETATTR:
		return ins.Arg1 == IArgAttrConst
	case PUSH_PTR, PUSH_COPY, INCR, DECR:
		return IArgMode(ins.Arg1) == IArgSeek
	case ASSIGN, ASSIGN_ADD, ASSIGN_SUB, ASSIGN_MUL, ASSIGN_DIV, ASSIGN_MOD,
		ASSIGN_XOR, ASSIGN_LS, ASSIGN_RS, ASSIGN_OR, ASSIGN_AND:
		return IArgMode(ins.Arg1) == IArgSeek
	}
	return false
}

func (op Opcode) String() string {
	if op <= OpcodeMax {
		if name := opcodeNames[op]; name != "" {
			return name
		}
	}
	return fmt.Sprintf("illegal op (%d)", op)
}

package vm

import (
	"fmt"
	"sort"

	"n2t.dev/toolchain/pkg/asm"
)

// ----------------------------------------------------------------------------
// Segment addressing

// segmentBase resolves the four "indirect" segments (accessed through a base pointer
// held in the matching Hack register) to the symbol holding that base pointer.
var segmentBase = map[SegmentType]string{
	Local:    "LCL",
	Argument: "ARG",
	This:     "THIS",
	That:     "THAT",
}

const tempBase = 5 // 'temp' always starts at RAM[5] and spans 8 registers (0-7)

// ----------------------------------------------------------------------------
// Vm Lowerer

// The Lowerer takes a 'vm.Program' (one Module per source file) and produces its
// 'asm.Program' counterpart, ready to be fed to the Assembler's own Encoder.
//
// Modules are lowered in lexicographic order of their name: the VM language has no
// notion of module-to-module ordering, but a Program always contains a deterministic
// set of files and the generated assembly should not depend on Go's map iteration order.
//
// Every module gets its own label namespace (labels and gotos are valid only inside the
// function that declares/references them) and its own static segment, derived from the
// module's name: 'static 3' in 'Foo.vm' and 'static 3' in 'Bar.vm' resolve to distinct
// Hack variables ('Foo.3' and 'Bar.3') even though neither appears anywhere in the source.
type Lowerer struct {
	program Program

	module      string // Name of the module currently being lowered (feeds the static segment)
	function    string // Fully qualified name of the function currently being lowered (feeds labels)
	cmpCount    int    // Running counter to keep 'eq'/'gt'/'lt' jump targets unique program-wide
	returnCount int    // Running counter to keep function-call return labels unique program-wide
}

// Initializes and returns to the caller a brand new 'Lowerer' struct.
// Requires the argument Program 'p' to be non-nil.
func NewLowerer(p Program) Lowerer {
	return Lowerer{program: p}
}

// Triggers the lowering process. Every module is visited in a stable order and every
// operation inside of it is translated, instruction by instruction, to its 'asm.Program'
// counterpart; the resulting programs are then concatenated into a single translation unit.
func (l *Lowerer) Lower() (asm.Program, error) {
	if l.program == nil || len(l.program) == 0 {
		return nil, fmt.Errorf("the given 'program' is empty")
	}

	names := make([]string, 0, len(l.program))
	for name := range l.program {
		names = append(names, name)
	}
	sort.Strings(names)

	compiled := asm.Program{}
	for _, name := range names {
		l.module, l.function = name, ""

		for _, operation := range l.program[name] {
			var lowered []asm.Statement
			var err error

			switch tOperation := operation.(type) {
			case MemoryOp:
				lowered, err = l.HandleMemoryOp(tOperation)
			case ArithmeticOp:
				lowered, err = l.HandleArithmeticOp(tOperation)
			case LabelDecl:
				lowered, err = l.HandleLabelDecl(tOperation)
			case GotoOp:
				lowered, err = l.HandleGotoOp(tOperation)
			case FuncDecl:
				lowered, err = l.HandleFuncDecl(tOperation)
			case FuncCallOp:
				lowered, err = l.HandleFuncCallOp(tOperation)
			case ReturnOp:
				lowered, err = l.HandleReturnOp(tOperation)
			default:
				err = fmt.Errorf("unrecognized operation '%T' in module '%s'", operation, name)
			}

			if err != nil {
				return nil, fmt.Errorf("error lowering module '%s': %w", name, err)
			}
			compiled = append(compiled, lowered...)
		}
	}

	return compiled, nil
}

// scopedLabel mangles a user-given label/goto name with the enclosing function's name so
// that two functions in the same (or different) module can freely reuse the same label text.
func (l *Lowerer) scopedLabel(name string) string {
	if l.function == "" {
		return name
	}
	return fmt.Sprintf("%s$%s", l.function, name)
}

// pushD appends the instructions that push the current value of the D register onto the
// stack and advance the Stack Pointer; every 'push' variant converges on this sequence.
func pushD() []asm.Statement {
	return []asm.Statement{
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "A", Comp: "M"},
		asm.CInstruction{Dest: "M", Comp: "D"},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "M", Comp: "M+1"},
	}
}

// popD appends the instructions that decrement the Stack Pointer and load the popped value
// into the D register, leaving A pointed at the (now free) top-of-stack memory cell.
func popD() []asm.Statement {
	return []asm.Statement{
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "AM", Comp: "M-1"},
		asm.CInstruction{Dest: "D", Comp: "M"},
	}
}

// Specialized function to convert a 'MemoryOp' operation to its 'asm.Statement' sequence.
func (l *Lowerer) HandleMemoryOp(op MemoryOp) ([]asm.Statement, error) {
	switch op.Segment {
	case Pointer:
		if op.Offset > 1 {
			return nil, fmt.Errorf("invalid 'pointer' offset, got %d", op.Offset)
		}
	case Temp:
		if op.Offset > 7 {
			return nil, fmt.Errorf("invalid 'temp' offset, got %d", op.Offset)
		}
	}

	switch op.Operation {
	case Push:
		return l.handlePush(op)
	case Pop:
		return l.handlePop(op)
	default:
		return nil, fmt.Errorf("unrecognized OperationType '%s'", op.Operation)
	}
}

// handlePush resolves the address for the given segment/offset, loads it into D and
// delegates to 'pushD' to actually place the value on top of the stack.
func (l *Lowerer) handlePush(op MemoryOp) ([]asm.Statement, error) {
	switch op.Segment {
	case Constant:
		load := []asm.Statement{
			asm.AInstruction{Location: fmt.Sprint(op.Offset)},
			asm.CInstruction{Dest: "D", Comp: "A"},
		}
		return append(load, pushD()...), nil

	case Local, Argument, This, That:
		load := []asm.Statement{
			asm.AInstruction{Location: fmt.Sprint(op.Offset)},
			asm.CInstruction{Dest: "D", Comp: "A"},
			asm.AInstruction{Location: segmentBase[op.Segment]},
			asm.CInstruction{Dest: "A", Comp: "D+M"},
			asm.CInstruction{Dest: "D", Comp: "M"},
		}
		return append(load, pushD()...), nil

	case Temp:
		load := []asm.Statement{
			asm.AInstruction{Location: fmt.Sprint(tempBase + op.Offset)},
			asm.CInstruction{Dest: "D", Comp: "M"},
		}
		return append(load, pushD()...), nil

	case Pointer:
		location := "THIS"
		if op.Offset == 1 {
			location = "THAT"
		}
		load := []asm.Statement{
			asm.AInstruction{Location: location},
			asm.CInstruction{Dest: "D", Comp: "M"},
		}
		return append(load, pushD()...), nil

	case Static:
		load := []asm.Statement{
			asm.AInstruction{Location: fmt.Sprintf("%s.%d", l.module, op.Offset)},
			asm.CInstruction{Dest: "D", Comp: "M"},
		}
		return append(load, pushD()...), nil

	default:
		return nil, fmt.Errorf("unrecognized SegmentType '%s'", op.Segment)
	}
}

// handlePop resolves the address for the given segment/offset and then pops the stack's
// top into it; the indirect segments stash the resolved address in R13 since popping the
// stack clobbers D before the destination address can be consumed.
func (l *Lowerer) handlePop(op MemoryOp) ([]asm.Statement, error) {
	switch op.Segment {
	case Constant:
		return nil, fmt.Errorf("cannot 'pop' into the read-only 'constant' segment")

	case Local, Argument, This, That:
		resolve := []asm.Statement{
			asm.AInstruction{Location: fmt.Sprint(op.Offset)},
			asm.CInstruction{Dest: "D", Comp: "A"},
			asm.AInstruction{Location: segmentBase[op.Segment]},
			asm.CInstruction{Dest: "D", Comp: "D+M"},
			asm.AInstruction{Location: "R13"},
			asm.CInstruction{Dest: "M", Comp: "D"},
		}
		store := append(popD(), asm.AInstruction{Location: "R13"},
			asm.CInstruction{Dest: "A", Comp: "M"}, asm.CInstruction{Dest: "M", Comp: "D"})
		return append(resolve, store...), nil

	case Temp:
		store := append(popD(), asm.AInstruction{Location: fmt.Sprint(tempBase + op.Offset)},
			asm.CInstruction{Dest: "M", Comp: "D"})
		return store, nil

	case Pointer:
		location := "THIS"
		if op.Offset == 1 {
			location = "THAT"
		}
		store := append(popD(), asm.AInstruction{Location: location}, asm.CInstruction{Dest: "M", Comp: "D"})
		return store, nil

	case Static:
		store := append(popD(), asm.AInstruction{Location: fmt.Sprintf("%s.%d", l.module, op.Offset)},
			asm.CInstruction{Dest: "M", Comp: "D"})
		return store, nil

	default:
		return nil, fmt.Errorf("unrecognized SegmentType '%s'", op.Segment)
	}
}

// Specialized function to convert an 'ArithmeticOp' operation to its 'asm.Statement' sequence.
//
// Binary operations ('add', 'sub', 'and', 'or', 'eq', 'gt', 'lt') pop twice and push once;
// unary operations ('neg', 'not') rewrite the top of the stack in place. The three comparison
// operators need a pair of fresh, program-wide unique labels to encode the conditional jump.
func (l *Lowerer) HandleArithmeticOp(op ArithmeticOp) ([]asm.Statement, error) {
	switch op.Operation {
	case Add, Sub, And, Or:
		comp := map[ArithOpType]string{Add: "D+M", Sub: "M-D", And: "D&M", Or: "D|M"}[op.Operation]
		return append(popD(),
			asm.CInstruction{Dest: "A", Comp: "A-1"},
			asm.CInstruction{Dest: "M", Comp: comp},
		), nil

	case Neg, Not:
		comp := map[ArithOpType]string{Neg: "-M", Not: "!M"}[op.Operation]
		return []asm.Statement{
			asm.AInstruction{Location: "SP"},
			asm.CInstruction{Dest: "A", Comp: "M-1"},
			asm.CInstruction{Dest: "M", Comp: comp},
		}, nil

	case Eq, Gt, Lt:
		return l.handleComparison(op.Operation)

	default:
		return nil, fmt.Errorf("unrecognized ArithOpType '%s'", op.Operation)
	}
}

// handleComparison lowers 'eq'/'gt'/'lt': it subtracts the two operands, jumps to a 'true'
// branch when the jump directive holds and falls through to pushing 'false' (0) otherwise.
func (l *Lowerer) handleComparison(op ArithOpType) ([]asm.Statement, error) {
	jump := map[ArithOpType]string{Eq: "JEQ", Gt: "JGT", Lt: "JLT"}[op]
	trueLabel := fmt.Sprintf("%s_TRUE_%d", op, l.cmpCount)
	endLabel := fmt.Sprintf("%s_END_%d", op, l.cmpCount)
	l.cmpCount++

	instructions := append(popD(),
		asm.CInstruction{Dest: "A", Comp: "A-1"},
		asm.CInstruction{Dest: "D", Comp: "M-D"},
		asm.AInstruction{Location: trueLabel},
		asm.CInstruction{Comp: "D", Jump: jump},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "A", Comp: "M-1"},
		asm.CInstruction{Dest: "M", Comp: "0"},
		asm.AInstruction{Location: endLabel},
		asm.CInstruction{Comp: "0", Jump: "JMP"},
		asm.LabelDecl{Name: trueLabel},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "A", Comp: "M-1"},
		asm.CInstruction{Dest: "M", Comp: "-1"},
		asm.LabelDecl{Name: endLabel},
	)
	return instructions, nil
}

// Specialized function to convert a 'LabelDecl' operation to its 'asm.Statement' sequence.
func (l *Lowerer) HandleLabelDecl(op LabelDecl) ([]asm.Statement, error) {
	if op.Name == "" {
		return nil, fmt.Errorf("unable to lower empty label declaration")
	}
	return []asm.Statement{asm.LabelDecl{Name: l.scopedLabel(op.Name)}}, nil
}

// Specialized function to convert a 'GotoOp' operation to its 'asm.Statement' sequence.
//
// An unconditional jump is a straight '0;JMP'; a conditional one first pops the stack's
// top and jumps only when it is non-zero (the VM spec's encoding of Jack's 'true').
func (l *Lowerer) HandleGotoOp(op GotoOp) ([]asm.Statement, error) {
	if op.Label == "" {
		return nil, fmt.Errorf("unable to lower jump to empty label")
	}

	target := asm.AInstruction{Location: l.scopedLabel(op.Label)}
	if op.Jump == Unconditional {
		return []asm.Statement{target, asm.CInstruction{Comp: "0", Jump: "JMP"}}, nil
	}

	instructions := append(popD(), target, asm.CInstruction{Comp: "D", Jump: "JNE"})
	return instructions, nil
}

// Specialized function to convert a 'FuncDecl' operation to its 'asm.Statement' sequence.
//
// Declares the function's entry label and zero-initializes its 'NLocal' local variables
// (the calling convention guarantees the callee's locals live right above its own ARG/LCL).
func (l *Lowerer) HandleFuncDecl(op FuncDecl) ([]asm.Statement, error) {
	if op.Name == "" {
		return nil, fmt.Errorf("unable to lower function declaration with empty name")
	}
	l.function = op.Name

	instructions := []asm.Statement{asm.LabelDecl{Name: op.Name}}
	for i := uint16(0); i < op.NLocal; i++ {
		instructions = append(instructions,
			asm.AInstruction{Location: "SP"},
			asm.CInstruction{Dest: "A", Comp: "M"},
			asm.CInstruction{Dest: "M", Comp: "0"},
			asm.AInstruction{Location: "SP"},
			asm.CInstruction{Dest: "M", Comp: "M+1"},
		)
	}
	return instructions, nil
}

// Specialized function to convert a 'ReturnOp' operation to its 'asm.Statement' sequence.
//
// Implements the classic FRAME/RET dance: stash the callee's LCL (the 'frame' base) and the
// return address in R13/R14 before the stack is unwound, since overwriting ARG/SP destroys
// the caller's view of THIS/THAT/ARG/LCL otherwise needed to restore them.
func (l *Lowerer) HandleReturnOp(op ReturnOp) ([]asm.Statement, error) {
	restore := func(reg string) []asm.Statement {
		return []asm.Statement{
			asm.AInstruction{Location: "R13"},
			asm.CInstruction{Dest: "AM", Comp: "M-1"},
			asm.CInstruction{Dest: "D", Comp: "M"},
			asm.AInstruction{Location: reg},
			asm.CInstruction{Dest: "M", Comp: "D"},
		}
	}

	instructions := []asm.Statement{
		asm.AInstruction{Location: "LCL"}, // R13 = FRAME = LCL
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "R13"},
		asm.CInstruction{Dest: "M", Comp: "D"},

		asm.AInstruction{Location: "5"}, // R14 = RET = *(FRAME-5)
		asm.CInstruction{Dest: "A", Comp: "D-A"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "R14"},
		asm.CInstruction{Dest: "M", Comp: "D"},
	}
	instructions = append(instructions, popD()...) // *ARG = pop()
	instructions = append(instructions,
		asm.AInstruction{Location: "ARG"},
		asm.CInstruction{Dest: "A", Comp: "M"},
		asm.CInstruction{Dest: "M", Comp: "D"},

		asm.AInstruction{Location: "ARG"}, // SP = ARG+1
		asm.CInstruction{Dest: "D", Comp: "M+1"},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "M", Comp: "D"},
	)
	instructions = append(instructions, restore("THAT")...)
	instructions = append(instructions, restore("THIS")...)
	instructions = append(instructions, restore("ARG")...)
	instructions = append(instructions, restore("LCL")...)
	instructions = append(instructions,
		asm.AInstruction{Location: "R14"}, // goto RET
		asm.CInstruction{Dest: "A", Comp: "M"},
		asm.CInstruction{Comp: "0", Jump: "JMP"},
	)
	return instructions, nil
}

// Specialized function to convert a 'FuncCallOp' operation to its 'asm.Statement' sequence.
//
// Saves the caller's frame (return address, LCL, ARG, THIS, THAT) on the stack, repositions
// ARG/LCL for the callee and jumps to it; the callee resumes execution right after the call
// at a fresh, program-wide unique label so nested/recursive calls never collide.
func (l *Lowerer) HandleFuncCallOp(op FuncCallOp) ([]asm.Statement, error) {
	if op.Name == "" {
		return nil, fmt.Errorf("unable to lower function call with empty name")
	}

	returnLabel := fmt.Sprintf("%s$ret_%d", op.Name, l.returnCount)
	l.returnCount++

	pushSymbol := func(symbol string) []asm.Statement {
		return []asm.Statement{
			asm.AInstruction{Location: symbol},
			asm.CInstruction{Dest: "D", Comp: "M"},
		}
	}

	instructions := []asm.Statement{
		asm.AInstruction{Location: returnLabel},
		asm.CInstruction{Dest: "D", Comp: "A"},
	}
	instructions = append(instructions, pushD()...) // push return-address
	for _, reg := range []string{"LCL", "ARG", "THIS", "THAT"} {
		instructions = append(instructions, pushSymbol(reg)...)
		instructions = append(instructions, pushD()...)
	}

	instructions = append(instructions,
		asm.AInstruction{Location: "SP"}, // ARG = SP - NArgs - 5
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "5"},
		asm.CInstruction{Dest: "D", Comp: "D-A"},
		asm.AInstruction{Location: fmt.Sprint(op.NArgs)},
		asm.CInstruction{Dest: "D", Comp: "D-A"},
		asm.AInstruction{Location: "ARG"},
		asm.CInstruction{Dest: "M", Comp: "D"},

		asm.AInstruction{Location: "SP"}, // LCL = SP
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "LCL"},
		asm.CInstruction{Dest: "M", Comp: "D"},

		asm.AInstruction{Location: op.Name}, // goto <function>
		asm.CInstruction{Comp: "0", Jump: "JMP"},

		asm.LabelDecl{Name: returnLabel},
	)
	return instructions, nil
}

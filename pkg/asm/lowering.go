package asm

import (
	"errors"
	"strconv"

	"n2t.dev/toolchain/pkg/hack"
)

// ----------------------------------------------------------------------------
// Lowerer

// Lowerer turns a parsed Program into its two-part hack.Program / hack.SymbolTable
// representation: label declarations are stripped out of the instruction stream and
// folded into the table, each bound to the ROM address of the instruction that follows
// it (its position in the program counts instructions only, never the labels
// themselves).
type Lowerer struct{ stmts Program }

// NewLowerer wires a parsed Program for lowering.
func NewLowerer(stmts Program) Lowerer { return Lowerer{stmts: stmts} }

// Lower is pass 1 of the assembler's two-pass scheme. It walks the program once, front
// to back, binding every label declaration to the ROM address it sits at and converting
// every remaining statement to its hack.Instruction counterpart. Pass 2 — lazily
// allocating RAM addresses for user variables — happens later, inside hack.Encoder.
func (l *Lowerer) Lower() (hack.Program, hack.SymbolTable, error) {
	if l.stmts.IsEmpty() {
		return nil, nil, &LowerError{Reason: "program is empty, nothing to lower"}
	}

	instrs := make(hack.Program, 0, len(l.stmts))
	labels := hack.SymbolTable{}

	for _, stmt := range l.stmts {
		switch typed := stmt.(type) {
		case AInstruction:
			instr, err := l.lowerAddress(typed)
			if err != nil {
				return nil, nil, err
			}
			instrs = append(instrs, instr)

		case CInstruction:
			instr, err := l.lowerCompute(typed)
			if err != nil {
				return nil, nil, err
			}
			instrs = append(instrs, instr)

		case LabelDecl:
			if _, redeclared := labels[typed.Name]; redeclared {
				return nil, nil, &LowerError{Statement: stmt, Reason: "label declared more than once"}
			}
			labels[typed.Name] = uint16(len(instrs))

		default:
			return nil, nil, &LowerError{Statement: stmt, Reason: "unrecognized statement type"}
		}
	}

	return instrs, labels, nil
}

// lowerAddress classifies an A instruction's Location and produces the matching
// hack.AInstruction: a built-in symbol, a raw numeric literal, or (by elimination) a
// user-defined label left to be resolved against the SymbolTable during encoding.
func (Lowerer) lowerAddress(stmt AInstruction) (hack.Instruction, error) {
	if _, builtin := hack.BuiltInTable[stmt.Location]; builtin {
		return hack.AInstruction{LocType: hack.BuiltIn, LocName: stmt.Location}, nil
	}
	// Any decimal literal is Raw, even one too large for memory: hack.Encoder rejects it
	// there instead of it being mistaken for a variable name.
	if _, err := strconv.ParseInt(stmt.Location, 10, 64); err == nil || errors.Is(err, strconv.ErrRange) {
		return hack.AInstruction{LocType: hack.Raw, LocName: stmt.Location}, nil
	}
	return hack.AInstruction{LocType: hack.Label, LocName: stmt.Location}, nil
}

// lowerCompute converts a C instruction one-to-one to its hack.CInstruction form. Comp
// is mandatory and carried through unchanged; exactly one of Dest/Jump must be set.
func (Lowerer) lowerCompute(stmt CInstruction) (hack.Instruction, error) {
	if stmt.Comp == "" {
		return nil, &LowerError{Statement: stmt, Reason: "comp must not be empty"}
	}

	switch {
	case stmt.Dest != "" && stmt.Jump == "":
		return hack.CInstruction{Dest: stmt.Dest, Comp: stmt.Comp}, nil
	case stmt.Jump != "" && stmt.Dest == "":
		return hack.CInstruction{Comp: stmt.Comp, Jump: stmt.Jump}, nil
	default:
		return nil, &LowerError{Statement: stmt, Reason: "exactly one of dest or jump must be set"}
	}
}

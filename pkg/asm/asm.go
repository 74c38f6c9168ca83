package asm

// ----------------------------------------------------------------------------
// Program

// Statement is the common type of everything the Parser can produce from one line of
// assembly: a LabelDecl, an AInstruction or a CInstruction. Callers type-switch on it.
type Statement interface{}

// Program is the ordered sequence of statements produced by the Parser, ready to be fed
// to the Lowerer. Label declarations are still present at this stage; the Lowerer's
// first pass strips them out and folds them into a hack.SymbolTable instead.
type Program []Statement

// IsEmpty reports whether the program carries no statements at all, the one shape the
// Lowerer refuses to operate on (there would be nothing to assemble).
func (p Program) IsEmpty() bool { return len(p) == 0 }

// ----------------------------------------------------------------------------
// C Instructions

// CInstruction is the in-memory form of a computation instruction: what to compute, and
// optionally where to store the result and/or under what condition to jump elsewhere.
// Exactly one of Dest/Jump is populated for any well-formed instruction; Comp is always
// required.
type CInstruction struct {
	Comp string // computation mnemonic, e.g. "D+1", "M-D", "0"
	Dest string // destination register(s) to store the result into, e.g. "AM"
	Jump string // jump condition mnemonic, e.g. "JGT", "JMP"
}

// ----------------------------------------------------------------------------
// A Instructions

// AInstruction is the in-memory form of a "load this address" instruction. Location may
// name a raw numeric address, a built-in register/IO alias, or a user-defined label; the
// Lowerer resolves which kind it is and produces the matching hack.AInstruction.
type AInstruction struct {
	Location string
}

// ----------------------------------------------------------------------------
// Label Declarations

// LabelDecl marks a program point with a user-chosen name so later AInstructions can
// reference it. It carries no other state: during lowering its position in the
// instruction stream (not its textual order in the source) becomes its ROM address.
type LabelDecl struct {
	Name string
}

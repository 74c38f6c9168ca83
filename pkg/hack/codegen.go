package hack

import (
	"fmt"
	"strconv"
)

// ----------------------------------------------------------------------------
// Translation tables

// compBits, destBits and jumpBits hold the fixed bit patterns the Hack ISA assigns to
// each C instruction mnemonic; BuiltInTable (declared in hack.go) covers the predefined
// A instruction targets. Together they're the whole of what the Encoder needs to turn a
// mnemonic into bits, short of resolving user labels through a SymbolTable.
var (
	compBits = map[string]uint16{
		// Constants and identities
		"0": 0b0101010, "1": 0b0111111, "-1": 0b0111010,
		"D": 0b0001100, "A": 0b0110000, "M": 0b1110000,
		// Binary and numerical negations
		"!D": 0b0001101, "!A": 0b0110001, "!M": 0b1110001,
		"-D": 0b0001111, "-A": 0b0110011, "-M": 0b1110011,
		// Increment and decrement
		"D+1": 0b0011111, "A+1": 0b0110111, "M+1": 0b1110111,
		"D-1": 0b0001110, "A-1": 0b0110010, "M-1": 0b1110010,
		// Register with register
		"D+A": 0b0000010, "D+M": 0b1000010,
		"D-A": 0b0010011, "D-M": 0b1010011,
		"A-D": 0b0000111, "M-D": 0b1000111,
		// Bitwise register with register
		"D&A": 0b0000000, "D&M": 0b1000000,
		"D|A": 0b0010101, "D|M": 0b1010101,
	}

	destBits = map[string]uint16{
		"": 0b000, "M": 0b001, "D": 0b010, "A": 0b100,
		"MD": 0b011, "AM": 0b101, "AD": 0b110, "AMD": 0b111,
	}

	jumpBits = map[string]uint16{
		"": 0b000, "JGT": 0b001, "JEQ": 0b010, "JGE": 0b011,
		"JLT": 0b100, "JNE": 0b101, "JLE": 0b110, "JMP": 0b111,
	}
)

// ----------------------------------------------------------------------------
// Encoder

// Encoder renders an already-lowered Program down to one 16-character binary string per
// instruction, resolving symbolic A instruction targets against a SymbolTable as it goes.
//
// Variable allocation happens lazily here rather than during lowering: the first time a
// Label location is seen that isn't already bound (neither a built-in nor a ROM label
// from pass 1 of the Assembler's Lowerer) it is treated as a fresh RAM variable and given
// the next free address starting at 16, in order of first encounter.
type Encoder struct {
	instrs  Program
	symbols SymbolTable
	nextVar uint16
}

// NewEncoder wires a Program together with the SymbolTable used to resolve its labels.
// A nil SymbolTable makes every Label location fail to resolve; BuiltIn locations are
// resolved through BuiltInTable and are unaffected.
func NewEncoder(instrs Program, symbols SymbolTable) Encoder {
	return Encoder{instrs: instrs, symbols: symbols}
}

// Encode walks the wired Program front to back, translating every instruction in turn.
// It stops and reports the first instruction that cannot be resolved or rendered.
func (e *Encoder) Encode() ([]string, error) {
	out := make([]string, 0, len(e.instrs))

	for _, instr := range e.instrs {
		var line string
		var err error

		switch typed := instr.(type) {
		case AInstruction:
			line, err = e.EncodeAddress(typed)
		case CInstruction:
			line, err = e.EncodeCompute(typed)
		}
		if err != nil {
			return nil, err
		}

		out = append(out, line)
	}

	return out, nil
}

// EncodeAddress resolves and renders a single A instruction. Raw locations are parsed as
// decimal literals, BuiltIn locations are looked up in BuiltInTable, and Label locations
// are looked up in (and, on first miss, lazily allocated into) the Encoder's SymbolTable.
func (e *Encoder) EncodeAddress(inst AInstruction) (string, error) {
	address, resolved := uint16(0), false

	switch inst.LocType {
	case Raw:
		n, err := strconv.ParseInt(inst.LocName, 10, 16)
		address, resolved = uint16(n), err == nil
	case BuiltIn:
		address, resolved = BuiltInTable[inst.LocName]
	case Label:
		if e.symbols == nil {
			break
		}
		if address, resolved = e.symbols[inst.LocName]; !resolved {
			address, resolved = 16+e.nextVar, true
			e.symbols[inst.LocName] = address
			e.nextVar++
		}
	}

	if !resolved {
		return "", &EncodeError{Location: inst.LocName, Reason: "no address could be resolved for this location"}
	}
	// An A instruction dedicates its first bit to the opcode, leaving only 15 bits to
	// address memory: anything at or beyond 2^15 is out of bounds.
	if address >= MaxAddressableMemory {
		return "", &EncodeError{Location: inst.LocName, Reason: "resolved address falls outside addressable memory"}
	}

	return fmt.Sprintf("%016b", address), nil
}

// EncodeCompute renders a single C instruction by OR-ing the fixed '111' opcode with the
// bit patterns looked up for its Comp, Dest and Jump mnemonics. Comp is mandatory; Dest
// and Jump both default to their zero pattern when left unset ("").
func (e *Encoder) EncodeCompute(inst CInstruction) (string, error) {
	comp, ok := compBits[inst.Comp]
	if inst.Comp == "" || !ok {
		return "", &EncodeError{Location: inst.Comp, Reason: "unknown or missing 'comp' mnemonic"}
	}
	dest, ok := destBits[inst.Dest]
	if !ok {
		return "", &EncodeError{Location: inst.Dest, Reason: "unknown 'dest' mnemonic"}
	}
	jump, ok := jumpBits[inst.Jump]
	if !ok {
		return "", &EncodeError{Location: inst.Jump, Reason: "unknown 'jump' mnemonic"}
	}

	command := uint16(0b111<<13) | comp<<6 | dest<<3 | jump
	return fmt.Sprintf("%016b", command), nil
}

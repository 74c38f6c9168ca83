package hack

// ----------------------------------------------------------------------------
// General information

// This section contains some general information about the Hack instruction set.
//
// We declare a shared 'Instruction' interface for both A and C instructions as well
// as defining some useful constants for runtime assertions during the codegen phase
// such as the 'MaxAddressableMemory' that defines the upper limit to Memory capacity.

// Just used to put together A and C instructions struct, use type switch to disambiguate.
type Instruction interface{}

// A Program is the sequence of instructions produced by the Assembler's lowering pass,
// already stripped of label declarations (which are folded into the SymbolTable instead).
type Program []Instruction

const MaxAddressableMemory uint16 = (1 << 15) // Exclusive upper bound of the addresses an A Instruction can index.

// ----------------------------------------------------------------------------
// A Instructions

// In memory representation of an A Instruction for the Hack architecture spec.
//
// The A instruction has only one functionality in the Hack computer, it instructs
// the CPU to load a specific memory address from the computer memory (this includes
// both the RAM as well as the memory mapped I/O such as Keyboard and Screen).
//
// The location can be expressed in multiple way:
// - A raw memory address (e.g. 1, 2, 3)
// - A user defined label (e.g. LOOP, ADD, TEMP)
// - A built-in symbols from the Hack architecture spec (e.g. SP, THIS, THAT)
type AInstruction struct {
	LocType LocationType // The type of the location identified by 'Name' field
	LocName string       // A generic "payload" (the label/builtin/raw symbol)
}

type LocationType uint8 // Enumeration for all the different type of location (built-in, label, raw)

const (
	Raw     LocationType = 0 // Raw address literal (e.g. @2345, @8989)
	Label   LocationType = 1 // User-defined location w/ a user given name (e.g. @MAIN, @LOOP)
	BuiltIn LocationType = 2 // Predefined  associations by the Hack specs (@SCREEN, @KBD, @R1)
)

// BuiltInTable resolves every symbol the Hack architecture predefines: the virtual
// registers R0-R15 (of which SP, LCL, ARG, THIS and THAT are just aliases for the
// first five), plus the two memory mapped I/O locations SCREEN and KBD.
var BuiltInTable = map[string]uint16{
	"SP": 0, "LCL": 1, "ARG": 2, "THIS": 3, "THAT": 4,
	"R0": 0, "R1": 1, "R2": 2, "R3": 3, "R4": 4, "R5": 5, "R6": 6, "R7": 7,
	"R8": 8, "R9": 9, "R10": 10, "R11": 11, "R12": 12, "R13": 13, "R14": 14, "R15": 15,
	"SCREEN": 16384, "KBD": 24576,
}

// ----------------------------------------------------------------------------
// C Instructions

// In memory representation of an C Instruction for the Hack architecture spec.
//
// The C instruction handles the computation side of the Hack computer, it instructs
// the CPU on what operation to execute and which register to use, also it allows to
// specify jump conditions to change the execution flow at runtime.
//
// Comp is mandatory; Dest and Jump may be left empty, which selects their all-zero
// ('null') bit pattern.
type CInstruction struct {
	Comp string // The 'computation' bit-codes, defines the calculation that the CPU should perform
	Dest string // The 'destination' bit-codes, defines if/where the result should be saved
	Jump string // The 'jump' bit-codes, define on what premise the jump to another instruction should occur
}

// ----------------------------------------------------------------------------
// Symbol Table

// SymbolTable maps symbolic names (both predefined registers and user variables/labels)
// to their 16 bit address in the Hack computer's addressable memory.
//
// NewSymbolTable pre-populates a table with the architecture's well known registers and
// memory mapped I/O locations; the Assembler's Lowerer instead starts from an empty table,
// since the Encoder resolves built-in symbols through BuiltInTable. User labels are added
// to it during pass 1 of the Assembler's Lowerer (where they are bound to their ROM
// address); user variables are added lazily by the Encoder, in order of first reference,
// starting at RAM address 16.
type SymbolTable map[string]uint16

// NewSymbolTable returns a table pre-populated with every predefined symbol, ready to be
// enriched with user labels (pass 1) and then user variables (pass 2).
func NewSymbolTable() SymbolTable {
	table := make(SymbolTable, len(BuiltInTable))
	for name, addr := range BuiltInTable {
		table[name] = addr
	}
	return table
}

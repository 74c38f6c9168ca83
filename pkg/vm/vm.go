package vm

// ----------------------------------------------------------------------------
// General information

// This section contains some general information about the VM intermediate language.
//
// We declare a shared 'Operation' interface for every macro operation available for the
// language and we define some other useful top-level struct such as Program and Module.
// Is important to note that a VM program can be composed of multiple translation units
// that can be also referenced as file or modules or also classes.

// A VM Program is just a set of multiple modules/files, in the VM spec each Jack class is
// translated to its own .vm file (just like Java .class file) that can be handled as its
// own translation unit during the compilation or lowering phases. Modules are keyed by
// their file name (sans extension) since that name feeds the per-module static segment.
type Program map[string]Module

// A VM Module is just a linear list of VM operations/instructions
type Module []Operation

// Used to put together all operation in the VM language (Memory, Arithmetic, ... ops).
type Operation interface{}

// ----------------------------------------------------------------------------
// Memory Op

// In memory representation of a Memory operation for the VM language.
//
// In the VM intermediate language there are only two possible memory operation on the stack.
// We could either push a new value taken from the specified segment location on the stack's
// top or take the stack's top and saves its value at the specified segment location.
type MemoryOp struct {
	Operation OperationType // The type of operation, either 'push' or 'pop'
	Segment   SegmentType   // The named memory segment to use (this, that, temp, ...)
	Offset    uint16        // The specific location/offset inside of the memory segment
}

type OperationType string // Enum to manage the operation allowed for a MemoryOp

const (
	Push OperationType = "push"
	Pop  OperationType = "pop"
)

type SegmentType string // Enum to manage the segment accessible for a MemoryOp

const (
	Temp     SegmentType = "temp"     // Real segment used to store intermediate computations
	Constant SegmentType = "constant" // Virtual segment used to access numeric constant

	Local    SegmentType = "local"    // Real segment used to store local function variables
	Static   SegmentType = "static"   // Real segment used to store shared/static variables
	Argument SegmentType = "argument" // Real segment used to store function's argument

	This    SegmentType = "this"    // Virtual segment used to point to a specific memory location
	That    SegmentType = "that"    // Virtual segment used to point to a specific memory location
	Pointer SegmentType = "pointer" // Real segment w/ 2 location used to set the 'this' and 'that' pointers
)

// ----------------------------------------------------------------------------
// Arithmetic Op

// In memory representation of a Arithmetic operation for the VM language.
//
// In the VM intermediate language there are just a handful of operation available.
// In particular each operation acts directly on the top of the stack, of course we have both unary
// and binary operation, the specific management of each op will be handled in the lowering phase.
type ArithmeticOp struct{ Operation ArithOpType }

type ArithOpType string // Enum to manage the operation allowed for an ArithmeticOp

const (
	Eq ArithOpType = "eq" // Comparison operations
	Gt ArithOpType = "gt"
	Lt ArithOpType = "lt"

	Add ArithOpType = "add" // Arithmetic operations
	Sub ArithOpType = "sub"
	Neg ArithOpType = "neg"

	Not ArithOpType = "not" // Bitwise operations
	And ArithOpType = "and"
	Or  ArithOpType = "or"
)

// ----------------------------------------------------------------------------
// Program Flow Ops

// In memory representation of a label declaration statement for the VM language.
//
// Labels are scoped to the function that declares them (the lowering phase mangles them
// with the enclosing function's name so two functions can freely reuse the same label).
type LabelDecl struct {
	Name string // The symbol chosen by the Jack Compiler (or hand-written VM code) for the label
}

// In memory representation of a goto/if-goto statement for the VM language.
//
// An unconditional jump always transfers control to 'Label'; a conditional one pops
// the stack's top and jumps only if the popped value is non-zero (Jack's 'true').
type GotoOp struct {
	Jump  JumpType // Either 'Unconditional' (goto) or 'Conditional' (if-goto)
	Label string   // The label (declared elsewhere in the same function) to jump to
}

type JumpType string // Enum to manage the two kind of jumps allowed for a GotoOp

const (
	Unconditional JumpType = "goto"
	Conditional   JumpType = "if-goto"
)

// ----------------------------------------------------------------------------
// Function Ops

// In memory representation of a function declaration statement for the VM language.
//
// Declares the entry point of a function/method/constructor and how many local variables
// it needs; the lowering phase is responsible for zero-initializing all of them on entry.
type FuncDecl struct {
	Name   string // Fully qualified name (e.g. 'Point.new', 'Math.multiply')
	NLocal uint16 // Number of local variables the callee needs allocated on the stack
}

// In memory representation of a function call statement for the VM language.
//
// By the time a call is emitted every argument has already been pushed onto the stack
// by the caller; 'NArgs' tells the callee (and the calling convention) how many to expect.
type FuncCallOp struct {
	Name  string // Fully qualified name of the function/method/constructor being invoked
	NArgs uint16 // Number of arguments already pushed onto the stack by the caller
}

// In memory representation of a return statement for the VM language.
//
// Every Jack subroutine returns exactly one value (void subroutines push a dummy 0), so
// this operation carries no payload: the stack's top at the time of the return is the result.
type ReturnOp struct{}

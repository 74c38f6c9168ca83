package jack

import (
	"n2t.dev/toolchain/pkg/vm"
)

// ----------------------------------------------------------------------------
// VM Writer

// VMWriter accumulates a 'vm.Module' (the translation unit for one Jack class) one
// operation at a time as the Compiler walks the token stream. It is a thin, typed wrapper
// around the VM intermediate language's own operation structs, which keeps the Jack
// Compiler from inventing a parallel VM representation of its own: the same 'vm.Module'
// it produces here can be fed straight into the VM Translator's Lowerer and Encoder.
type VMWriter struct{ module vm.Module }

// NewVMWriter returns a writer with an empty module, ready to be filled in compilation order.
func NewVMWriter() *VMWriter {
	return &VMWriter{module: vm.Module{}}
}

// Module returns the accumulated operations once compilation of a class has finished.
func (w *VMWriter) Module() vm.Module { return w.module }

// WritePush emits a 'push segment index' memory operation.
func (w *VMWriter) WritePush(segment vm.SegmentType, index uint16) {
	w.module = append(w.module, vm.MemoryOp{Operation: vm.Push, Segment: segment, Offset: index})
}

// WritePop emits a 'pop segment index' memory operation.
func (w *VMWriter) WritePop(segment vm.SegmentType, index uint16) {
	w.module = append(w.module, vm.MemoryOp{Operation: vm.Pop, Segment: segment, Offset: index})
}

// WriteArithmetic emits one of the nine arithmetic/logical commands.
func (w *VMWriter) WriteArithmetic(op vm.ArithOpType) {
	w.module = append(w.module, vm.ArithmeticOp{Operation: op})
}

// WriteLabel emits a 'label' declaration, scoped by the caller to the enclosing subroutine.
func (w *VMWriter) WriteLabel(name string) {
	w.module = append(w.module, vm.LabelDecl{Name: name})
}

// WriteGoto emits an unconditional jump to the given label.
func (w *VMWriter) WriteGoto(name string) {
	w.module = append(w.module, vm.GotoOp{Jump: vm.Unconditional, Label: name})
}

// WriteIf emits a conditional jump (pops the stack's top, jumps if it is non-zero).
func (w *VMWriter) WriteIf(name string) {
	w.module = append(w.module, vm.GotoOp{Jump: vm.Conditional, Label: name})
}

// WriteCall emits a 'call name nArgs' operation.
func (w *VMWriter) WriteCall(name string, nArgs uint16) {
	w.module = append(w.module, vm.FuncCallOp{Name: name, NArgs: nArgs})
}

// WriteFunction emits a 'function name nLocal' declaration.
func (w *VMWriter) WriteFunction(name string, nLocal uint16) {
	w.module = append(w.module, vm.FuncDecl{Name: name, NLocal: nLocal})
}

// WriteReturn emits a 'return' operation.
func (w *VMWriter) WriteReturn() {
	w.module = append(w.module, vm.ReturnOp{})
}

package vm

import "fmt"

// ----------------------------------------------------------------------------
// Encoder

// Encoder renders a Program of already-built VM Operation values down to their textual
// bytecode form, one line per operation per module. It performs no validation beyond
// what's needed to produce well-formed VM text (a Lowerer is what gives these operations
// assembly semantics); most of its work is bookkeeping which module each line belongs to.
type Encoder struct{ prog Program }

// NewEncoder wires a Program for rendering.
func NewEncoder(prog Program) Encoder { return Encoder{prog: prog} }

// Encode renders every module in the wired Program, keyed by module name, stopping at
// the first operation (in any module) that cannot be rendered.
func (e *Encoder) Encode() (map[string][]string, error) {
	rendered := make(map[string][]string, len(e.prog))

	for name, module := range e.prog {
		lines := make([]string, 0, len(module))

		for _, op := range module {
			var line string
			var err error

			switch typed := op.(type) {
			case MemoryOp:
				line, err = e.EncodeMemoryOp(typed)
			case ArithmeticOp:
				line, err = e.EncodeArithmeticOp(typed)
			case LabelDecl:
				line, err = e.EncodeLabel(typed)
			case GotoOp:
				line, err = e.EncodeGoto(typed)
			case FuncDecl:
				line, err = e.EncodeFuncDecl(typed)
			case ReturnOp:
				line, err = e.EncodeReturn(typed)
			case FuncCallOp:
				line, err = e.EncodeFuncCall(typed)
			}
			if err != nil {
				return nil, err
			}

			lines = append(lines, line)
		}

		rendered[name] = lines
	}

	return rendered, nil
}

// EncodeMemoryOp renders "push"/"pop" as "<op> <segment> <offset>", after checking the
// offset against the hard bounds the fixed-size 'pointer' (0-1) and 'temp' (0-7)
// segments impose; the other segments are effectively unbounded at this layer.
func (Encoder) EncodeMemoryOp(op MemoryOp) (string, error) {
	if op.Segment == Pointer && op.Offset > 1 {
		return "", &EncodeError{Operation: op, Reason: "'pointer' segment only has offsets 0 and 1"}
	}
	if op.Segment == Temp && op.Offset > 7 {
		return "", &EncodeError{Operation: op, Reason: "'temp' segment only has offsets 0 through 7"}
	}

	return fmt.Sprintf("%s %s %d", op.Operation, op.Segment, op.Offset), nil
}

// EncodeArithmeticOp renders an arithmetic/logical/comparison op as its bare mnemonic.
func (Encoder) EncodeArithmeticOp(op ArithmeticOp) (string, error) {
	return string(op.Operation), nil
}

// EncodeLabel renders a label declaration as "label <name>".
func (Encoder) EncodeLabel(op LabelDecl) (string, error) {
	if op.Name == "" {
		return "", &EncodeError{Operation: op, Reason: "label name must not be empty"}
	}
	return fmt.Sprintf("label %s", op.Name), nil
}

// EncodeGoto renders a goto/if-goto as "<goto|if-goto> <label>".
func (Encoder) EncodeGoto(op GotoOp) (string, error) {
	if op.Label == "" {
		return "", &EncodeError{Operation: op, Reason: "jump target label must not be empty"}
	}
	return fmt.Sprintf("%s %s", op.Jump, op.Label), nil
}

// EncodeFuncDecl renders a function declaration as "function <name> <nLocal>".
func (Encoder) EncodeFuncDecl(op FuncDecl) (string, error) {
	if op.Name == "" {
		return "", &EncodeError{Operation: op, Reason: "function name must not be empty"}
	}
	return fmt.Sprintf("function %s %d", op.Name, op.NLocal), nil
}

// EncodeReturn renders a return statement as the bare keyword "return".
func (Encoder) EncodeReturn(op ReturnOp) (string, error) {
	return "return", nil
}

// EncodeFuncCall renders a function call as "call <name> <nArgs>".
func (Encoder) EncodeFuncCall(op FuncCallOp) (string, error) {
	if op.Name == "" {
		return "", &EncodeError{Operation: op, Reason: "function name must not be empty"}
	}
	return fmt.Sprintf("call %s %d", op.Name, op.NArgs), nil
}

package vm

import (
	"fmt"
	"io"
	"os"
	"strconv"

	pc "github.com/prataprc/goparsec"
)

// ----------------------------------------------------------------------------
// Grammar

// The VM bytecode grammar is expressed as parser combinators rather than a hand-rolled
// scanner, for the same reason the assembler's grammar is: every operation (MemoryOp,
// ArithmeticOp, a handful of control-flow/function statements) has a short, regular
// shape that composes cleanly out of goparsec primitives.

// grammar is the top-level AST builder every combinator below attaches itself to.
var grammar = pc.NewAST("virtual_machine", 0)

var (
	// A module is a flat sequence of operations and comments; in the nand2tetris VM a
	// "module" corresponds to one .vm file (one .class in the Java analogy), each with
	// its own 'static' namespace.
	pModule = grammar.ManyUntil("module", nil, grammar.OrdChoice("node", nil, pComment, pOperation), pc.End())

	pComment = grammar.And("comment", nil, pc.Atom("//", "//"), pc.Token(`(?m).*$`, "COMMENT"))
	pOperation = grammar.OrdChoice("operation", nil,
		pMemoryOp, pArithmeticOp, pLabelDecl, pGotoOp,
		pFuncDecl, pFunCallOp, pReturnOp,
	)

	pMemoryOp     = grammar.And("memory_op", nil, pMemOpType, pSegment, pc.Int())
	pArithmeticOp = grammar.And("arithmetic_op", nil, pArithOpType)

	pLabelDecl = grammar.And("label_decl", nil, pc.Atom("label", "LABEL"), pIdent)
	pGotoOp    = grammar.And("goto_op", nil, pJumpType, pIdent)

	pFuncDecl  = grammar.And("func_decl", nil, pc.Atom("function", "FUNC"), pIdent, pc.Int())
	pFunCallOp = grammar.And("func_call", nil, pc.Atom("call", "CALL"), pIdent, pc.Int())
	pReturnOp  = grammar.And("return_op", nil, pc.Atom("return", "RETURN"))
)

var (
	// An identifier (label or function name) follows the same shape as an assembler
	// symbol: letters/digits/'_.$:', not starting with a digit.
	pIdent = pc.Token(`[A-Za-z_.$:][0-9a-zA-Z_.$:]*`, "IDENT")

	pMemOpType = grammar.OrdChoice("mem_op_type", nil, pc.Atom("push", "PUSH"), pc.Atom("pop", "POP"))
	pSegment   = grammar.OrdChoice("mem_segment", nil,
		pc.Atom("argument", "ARGUMENT"), pc.Atom("local", "LOCAL"),
		pc.Atom("static", "STATIC"), pc.Atom("constant", "CONSTANT"),
		pc.Atom("this", "THIS"), pc.Atom("that", "THAT"),
		pc.Atom("temp", "TEMP"), pc.Atom("pointer", "POINTER"),
	)

	pArithOpType = grammar.OrdChoice("operations", nil,
		pc.Atom("eq", "EQ"), pc.Atom("gt", "GT"), pc.Atom("lt", "LT"),
		pc.Atom("add", "ADD"), pc.Atom("sub", "SUB"), pc.Atom("neg", "NEG"),
		pc.Atom("not", "NOT"), pc.Atom("and", "AND"), pc.Atom("or", "OR"),
	)

	pJumpType = grammar.OrdChoice("jump_type", nil, pc.Atom("goto", "GOTO"), pc.Atom("if-goto", "IF-GOTO"))
)

// ----------------------------------------------------------------------------
// Parser

// Parser turns VM bytecode source text into a Module. Like the assembler's parser, its
// debug behavior is controlled by PARSEC_DEBUG / EXPORT_AST / PRINT_AST env vars.
type Parser struct{ src io.Reader }

// NewParser wires an io.Reader for parsing.
func NewParser(r io.Reader) Parser { return Parser{src: r} }

// Parse runs both phases of the pipeline: source text to AST via the combinators above,
// then AST to Module by walking the tree and extracting typed Operation values.
func (p *Parser) Parse() (Module, error) {
	content, err := io.ReadAll(p.src)
	if err != nil {
		return nil, fmt.Errorf("cannot read input: %w", err)
	}

	root, ok := p.scan(content)
	if !ok {
		return nil, fmt.Errorf("input was not fully consumed by the VM grammar")
	}

	return p.build(root)
}

// scan runs the combinator grammar over the raw source bytes and returns the resulting
// AST root along with whether the grammar matched (and consumed) the full input.
func (p *Parser) scan(source []byte) (pc.Queryable, bool) {
	if os.Getenv("PARSEC_DEBUG") != "" {
		grammar.SetDebug()
	}

	root, matched := grammar.Parsewith(pModule, pc.NewScanner(source))

	if os.Getenv("EXPORT_AST") != "" {
		file, _ := os.Create(fmt.Sprintf("%s/debug.ast.dot", os.Getenv("DEBUG_FOLDER")))
		defer file.Close()
		file.Write([]byte(grammar.Dotstring("\"VM AST\"")))
	}
	if os.Getenv("PRINT_AST") != "" {
		grammar.Prettyprint()
	}

	return root, matched
}

// build walks the AST depth-first and converts each recognized subtree into its
// Operation counterpart, in source order, skipping comment nodes entirely.
func (p *Parser) build(root pc.Queryable) (Module, error) {
	if root.GetName() != "module" {
		return nil, fmt.Errorf("expected root node 'module', found %s", root.GetName())
	}

	module := make(Module, 0, len(root.GetChildren()))
	for _, child := range root.GetChildren() {
		var op Operation
		var err error

		switch child.GetName() {
		case "memory_op":
			op, err = p.readMemoryOp(child)
		case "arithmetic_op":
			op, err = p.readArithmeticOp(child)
		case "label_decl":
			op, err = p.readLabelDecl(child)
		case "goto_op":
			op, err = p.readGotoOp(child)
		case "func_decl":
			op, err = p.readFuncDecl(child)
		case "return_op":
			op, err = p.readReturnOp(child)
		case "func_call":
			op, err = p.readFuncCall(child)
		case "comment":
			continue
		default:
			return nil, fmt.Errorf("unrecognized AST node '%s'", child.GetName())
		}

		if err != nil {
			return nil, err
		}
		module = append(module, op)
	}

	return module, nil
}

// readMemoryOp converts a "memory_op" node to a MemoryOp.
func (p *Parser) readMemoryOp(node pc.Queryable) (Operation, error) {
	if node.GetName() != "memory_op" || len(node.GetChildren()) != 3 {
		return nil, fmt.Errorf("malformed 'memory_op' node: %s", node.GetName())
	}

	operation := OperationType(node.GetChildren()[0].GetValue())
	segment := SegmentType(node.GetChildren()[1].GetValue())
	offset, err := strconv.ParseUint(node.GetChildren()[2].GetValue(), 10, 16)
	if err != nil {
		return nil, fmt.Errorf("failed to parse offset in 'memory_op': %w", err)
	}

	return MemoryOp{Operation: operation, Segment: segment, Offset: uint16(offset)}, nil
}

// readArithmeticOp converts an "arithmetic_op" node to an ArithmeticOp.
func (p *Parser) readArithmeticOp(node pc.Queryable) (Operation, error) {
	if node.GetName() != "arithmetic_op" || len(node.GetChildren()) != 1 {
		return nil, fmt.Errorf("malformed 'arithmetic_op' node: %s", node.GetName())
	}

	return ArithmeticOp{Operation: ArithOpType(node.GetChildren()[0].GetValue())}, nil
}

// readLabelDecl converts a "label_decl" node to a LabelDecl.
func (p *Parser) readLabelDecl(node pc.Queryable) (Operation, error) {
	if node.GetName() != "label_decl" || len(node.GetChildren()) != 2 {
		return nil, fmt.Errorf("malformed 'label_decl' node: %s", node.GetName())
	}

	return LabelDecl{Name: node.GetChildren()[1].GetValue()}, nil
}

// readGotoOp converts a "goto_op" node to a GotoOp.
func (p *Parser) readGotoOp(node pc.Queryable) (Operation, error) {
	if node.GetName() != "goto_op" || len(node.GetChildren()) != 2 {
		return nil, fmt.Errorf("malformed 'goto_op' node: %s", node.GetName())
	}

	jump := JumpType(node.GetChildren()[0].GetValue())
	label := node.GetChildren()[1].GetValue()
	return GotoOp{Jump: jump, Label: label}, nil
}

// readFuncDecl converts a "func_decl" node to a FuncDecl.
func (p *Parser) readFuncDecl(node pc.Queryable) (Operation, error) {
	if node.GetName() != "func_decl" || len(node.GetChildren()) != 3 {
		return nil, fmt.Errorf("malformed 'func_decl' node: %s", node.GetName())
	}

	name := node.GetChildren()[1].GetValue()
	nLocal, err := strconv.ParseUint(node.GetChildren()[2].GetValue(), 10, 16)
	if err != nil {
		return nil, fmt.Errorf("failed to parse local count in 'func_decl': %w", err)
	}

	return FuncDecl{Name: name, NLocal: uint16(nLocal)}, nil
}

// readReturnOp converts a "return_op" node to a ReturnOp.
func (p *Parser) readReturnOp(node pc.Queryable) (Operation, error) {
	if node.GetName() != "return_op" || len(node.GetChildren()) != 1 {
		return nil, fmt.Errorf("malformed 'return_op' node: %s", node.GetName())
	}

	return ReturnOp{}, nil
}

// readFuncCall converts a "func_call" node to a FuncCallOp.
func (p *Parser) readFuncCall(node pc.Queryable) (Operation, error) {
	if node.GetName() != "func_call" || len(node.GetChildren()) != 3 {
		return nil, fmt.Errorf("malformed 'func_call' node: %s", node.GetName())
	}

	name := node.GetChildren()[1].GetValue()
	nArgs, err := strconv.ParseUint(node.GetChildren()[2].GetValue(), 10, 16)
	if err != nil {
		return nil, fmt.Errorf("failed to parse arg count in 'func_call': %w", err)
	}

	return FuncCallOp{Name: name, NArgs: uint16(nArgs)}, nil
}

package asm

import (
	"fmt"
	"io"
	"os"

	pc "github.com/prataprc/goparsec"
)

// ----------------------------------------------------------------------------
// Grammar

// The assembly grammar is expressed as parser combinators rather than a hand-rolled
// scanner: every instruction shape (A instruction, C instruction, label declaration) is
// small and regular enough that composing a handful of goparsec primitives reads more
// directly than a state machine would. Comments are tolerated wherever a statement or
// EOF is expected, both on their own line and trailing an instruction.

// grammar is the top-level AST builder every combinator below attaches itself to.
var grammar = pc.NewAST("assembler", 0)

var (
	pProgram = grammar.ManyUntil("program", nil, grammar.OrdChoice("item", nil, pComment, pInstruction), pc.End())

	pInstruction = grammar.OrdChoice("instruction", nil, pAInst, pCInst, pLabelDecl)
	pComment     = grammar.And("comment", nil, pc.Atom("//", "//"), pc.Token(`(?m).*$`, "COMMENT"))

	pAInst     = grammar.And("a-inst", nil, pc.Atom("@", "@"), pLabel)
	pLabelDecl = grammar.And("label-decl", nil, pc.Atom("(", "("), pLabel, pc.Atom(")", ")"))
	pCInst     = grammar.And("c-inst", nil,
		grammar.Maybe("maybe-assign", nil, grammar.And("assign", nil, pDest, pc.Atom("=", "="))),
		pComp, // comp is the only sub-instruction every C instruction must carry
		grammar.Maybe("maybe-goto", nil, grammar.And("goto", nil, pc.Atom(";", ";"), pJump)),
	)
)

var (
	// A label/symbol may be any run of letters, digits and '_.$:' that doesn't start
	// with a digit (a leading symbol is fine); or it may be a bare integer literal.
	pLabel = grammar.OrdChoice("label", nil, pc.Int(), pc.Token(`[A-Za-z_.$:][0-9a-zA-Z_.$:]*`, "SYMBOL"))

	// Atoms are listed longest-prefix-first: goparsec's OrdChoice commits to the first
	// alternative that matches, so "AM" must be offered before "A" or "M" alone would
	// shadow it.
	pDest = grammar.OrdChoice("dest", nil,
		pc.Atom("AMD", "AMD"),
		pc.Atom("AM", "AM"), pc.Atom("AD", "AD"), pc.Atom("MD", "MD"),
		pc.Atom("D", "D"), pc.Atom("A", "A"), pc.Atom("M", "M"),
	)

	pComp = grammar.OrdChoice("comp", nil,
		pc.Atom("D&A", "D&A"), pc.Atom("D&M", "D&M"),
		pc.Atom("D|A", "D|A"), pc.Atom("D|M", "D|M"),
		pc.Atom("D+A", "D+A"), pc.Atom("D+M", "D+M"),
		pc.Atom("D-A", "D-A"), pc.Atom("D-M", "D-M"),
		pc.Atom("A-D", "A-D"), pc.Atom("M-D", "M-D"),
		pc.Atom("D+1", "D+1"), pc.Atom("A+1", "A+1"), pc.Atom("M+1", "M+1"),
		pc.Atom("D-1", "D-1"), pc.Atom("A-1", "A-1"), pc.Atom("M-1", "M-1"),
		pc.Atom("!D", "!D"), pc.Atom("!A", "!A"), pc.Atom("!M", "!M"),
		pc.Atom("-D", "-D"), pc.Atom("-A", "-A"), pc.Atom("-M", "-M"),
		pc.Atom("0", "0"), pc.Atom("1", "1"), pc.Atom("-1", "-1"),
		pc.Atom("D", "D"), pc.Atom("A", "A"), pc.Atom("M", "M"),
	)

	pJump = grammar.OrdChoice("jump", nil,
		pc.Atom("JNE", "JNE"), pc.Atom("JEQ", "JEQ"),
		pc.Atom("JGT", "JGT"), pc.Atom("JGE", "JGE"),
		pc.Atom("JLT", "JLT"), pc.Atom("JLE", "JLE"),
		pc.Atom("JMP", "JMP"),
	)
)

// ----------------------------------------------------------------------------
// Parser

// Parser turns assembly source text into a Program. It reads its debug behavior from
// three environment variables, all off by default:
//   - PARSEC_DEBUG: verbose logging of which combinator matched what
//   - EXPORT_AST:   writes a Graphviz rendering of the AST under DEBUG_FOLDER
//   - PRINT_AST:    dumps a textual rendering of the AST to stdout
type Parser struct{ src io.Reader }

// NewParser wires an io.Reader for parsing.
func NewParser(r io.Reader) Parser { return Parser{src: r} }

// Parse runs both phases of the pipeline: source text to AST via the combinators above,
// then AST to Program by walking the tree and extracting typed Statement values.
func (p *Parser) Parse() (Program, error) {
	content, err := io.ReadAll(p.src)
	if err != nil {
		return nil, fmt.Errorf("cannot read input: %w", err)
	}

	root, ok := p.scan(content)
	if !ok {
		return nil, fmt.Errorf("input was not fully consumed by the assembler grammar")
	}

	return p.build(root)
}

// scan runs the combinator grammar over the raw source bytes and returns the resulting
// AST root along with whether the grammar matched (and consumed) the full input.
func (p *Parser) scan(source []byte) (pc.Queryable, bool) {
	if os.Getenv("PARSEC_DEBUG") != "" {
		grammar.SetDebug()
	}

	root, matched := grammar.Parsewith(pProgram, pc.NewScanner(source))

	if os.Getenv("EXPORT_AST") != "" {
		file, _ := os.Create(fmt.Sprintf("%s/debug.ast.dot", os.Getenv("DEBUG_FOLDER")))
		defer file.Close()
		file.Write([]byte(grammar.Dotstring("\"Assembler AST\"")))
	}
	if os.Getenv("PRINT_AST") != "" {
		grammar.Prettyprint()
	}

	return root, matched
}

// build walks the AST depth-first and converts each recognized subtree into its
// Statement counterpart, in source order, skipping comment nodes entirely.
func (p *Parser) build(root pc.Queryable) (Program, error) {
	if root.GetName() != "program" {
		return nil, fmt.Errorf("expected root node 'program', found %s", root.GetName())
	}

	program := make(Program, 0, len(root.GetChildren()))
	for _, child := range root.GetChildren() {
		switch child.GetName() {
		case "a-inst":
			inst, err := p.readAInst(child)
			if err != nil {
				return nil, err
			}
			program = append(program, inst)

		case "c-inst":
			inst, err := p.readCInst(child)
			if err != nil {
				return nil, err
			}
			program = append(program, inst)

		case "label-decl":
			inst, err := p.readLabelDecl(child)
			if err != nil {
				return nil, err
			}
			program = append(program, inst)

		case "comment":
			continue

		default:
			return nil, fmt.Errorf("unrecognized AST node '%s'", child.GetName())
		}
	}

	return program, nil
}

// readAInst converts an "a-inst" subtree to an AInstruction.
func (p *Parser) readAInst(node pc.Queryable) (Statement, error) {
	if node.GetName() != "a-inst" {
		return nil, fmt.Errorf("expected node 'a-inst', found %s", node.GetName())
	}

	symbol := node.GetChildren()[1]
	if symbol.GetName() != "INT" && symbol.GetName() != "SYMBOL" {
		return nil, fmt.Errorf("expected token 'SYMBOL' or 'INT', found %s", symbol.GetName())
	}

	return AInstruction{Location: symbol.GetValue()}, nil
}

// readCInst converts a "c-inst" subtree to a CInstruction, picking up whichever of the
// optional assign/goto sub-nodes matched.
func (p *Parser) readCInst(node pc.Queryable) (Statement, error) {
	if node.GetName() != "c-inst" {
		return nil, fmt.Errorf("expected node 'c-inst', found %s", node.GetName())
	}

	dest, comp, jump := node.GetChildren()[0], node.GetChildren()[1], node.GetChildren()[2]

	if dest.GetName() == "assign" && jump.GetName() == "goto" {
		return nil, fmt.Errorf("c-inst node has both an 'assign' and a 'goto' child")
	}
	if dest.GetName() == "assign" && len(dest.GetChildren()) == 2 {
		return CInstruction{Dest: dest.GetChildren()[0].GetValue(), Comp: comp.GetValue()}, nil
	}
	if jump.GetName() == "goto" && len(jump.GetChildren()) == 2 {
		return CInstruction{Comp: comp.GetValue(), Jump: jump.GetChildren()[1].GetValue()}, nil
	}

	return nil, fmt.Errorf("c-inst node has neither an 'assign' nor a 'goto' child")
}

// readLabelDecl converts a "label-decl" subtree to a LabelDecl.
func (p *Parser) readLabelDecl(node pc.Queryable) (Statement, error) {
	if node.GetName() != "label-decl" {
		return nil, fmt.Errorf("expected node 'label-decl', found %s", node.GetName())
	}

	symbol := node.GetChildren()[1]
	if symbol.GetName() != "SYMBOL" {
		return nil, fmt.Errorf("expected token 'SYMBOL', found %s", symbol.GetName())
	}

	return LabelDecl{Name: symbol.GetValue()}, nil
}

package jack

import (
	"fmt"
	"strconv"

	"n2t.dev/toolchain/pkg/vm"
)

// ----------------------------------------------------------------------------
// Compiler

// Compiler is a one-pass, recursive-descent translator from a stream of Jack tokens
// straight down to VM code: there is no intermediate parse tree. Every 'compileX' method
// consumes exactly the tokens belonging to grammar rule X and leaves the cursor positioned
// right after it, emitting VM operations into the embedded VMWriter as it goes.
type Compiler struct {
	tokens []Token
	pos    int

	class  string
	table  *SymbolTable
	writer *VMWriter

	// whileCount and ifCount mint the WHILE_EXP/WHILE_END and IF_TRUE/IF_FALSE/IF_END
	// labels; both are reset at the start of every subroutine so nested control flow in
	// one subroutine never collides with labels from another.
	whileCount int
	ifCount    int
}

// NewCompiler returns a Compiler ready to translate the given token stream, which must
// contain exactly one Jack class (the Jack convention of one class per source file).
func NewCompiler(tokens []Token) *Compiler {
	return &Compiler{tokens: tokens, table: NewSymbolTable(), writer: NewVMWriter()}
}

// Compile runs the whole pipeline and returns the finished VM module for the class.
func (c *Compiler) Compile() (vm.Module, error) {
	if err := c.compileClass(); err != nil {
		return nil, err
	}
	if c.pos != len(c.tokens) {
		return nil, c.syntaxError("unexpected tokens after class declaration")
	}
	return c.writer.Module(), nil
}

// ----------------------------------------------------------------------------
// Token cursor helpers

func (c *Compiler) atEnd() bool { return c.pos >= len(c.tokens) }

func (c *Compiler) peek() (Token, bool) {
	if c.atEnd() {
		return Token{}, false
	}
	return c.tokens[c.pos], true
}

func (c *Compiler) advance() (Token, bool) {
	tok, ok := c.peek()
	if ok {
		c.pos++
	}
	return tok, ok
}

func (c *Compiler) syntaxError(msg string) error {
	line := 0
	if tok, ok := c.peek(); ok {
		line = tok.Line
	} else if len(c.tokens) > 0 {
		line = c.tokens[len(c.tokens)-1].Line
	}
	return &SyntaxError{Line: line, Message: msg}
}

// expectLiteral consumes the next token only if it is the given literal symbol/keyword
// (the Jack grammar is simple enough that symbols and keywords share this one check).
func (c *Compiler) expectLiteral(value string) error {
	tok, ok := c.peek()
	if !ok || tok.Value != value {
		return c.syntaxError("expected '" + value + "'")
	}
	c.advance()
	return nil
}

func (c *Compiler) expectIdentifier() (string, error) {
	tok, ok := c.peek()
	if !ok || tok.Type != IdentifierToken {
		return "", c.syntaxError("expected identifier")
	}
	c.advance()
	return tok.Value, nil
}

func (c *Compiler) isLiteral(value string) bool {
	tok, ok := c.peek()
	return ok && tok.Value == value
}

// compileType consumes a var type: one of the three primitives or a class name.
func (c *Compiler) compileType() (string, error) {
	tok, ok := c.peek()
	if !ok {
		return "", c.syntaxError("expected a type")
	}
	if tok.Type == IdentifierToken || tok.Value == "int" || tok.Value == "char" || tok.Value == "boolean" {
		c.advance()
		return tok.Value, nil
	}
	return "", c.syntaxError("expected a type, got '" + tok.Value + "'")
}

// ----------------------------------------------------------------------------
// Program structure: class, class var decs, subroutines, parameters

// compileClass ::= 'class' className '{' classVarDec* subroutineDec* '}'
func (c *Compiler) compileClass() error {
	if err := c.expectLiteral("class"); err != nil {
		return err
	}
	name, err := c.expectIdentifier()
	if err != nil {
		return err
	}
	c.class = name

	if err := c.expectLiteral("{"); err != nil {
		return err
	}
	for c.isLiteral("static") || c.isLiteral("field") {
		if err := c.compileClassVarDec(); err != nil {
			return err
		}
	}
	for c.isLiteral("constructor") || c.isLiteral("function") || c.isLiteral("method") {
		if err := c.compileSubroutine(); err != nil {
			return err
		}
	}
	return c.expectLiteral("}")
}

// compileClassVarDec ::= ('static'|'field') type varName (',' varName)* ';'
func (c *Compiler) compileClassVarDec() error {
	tok, _ := c.advance()
	kind := StaticKind
	if tok.Value == "field" {
		kind = FieldKind
	}

	typ, err := c.compileType()
	if err != nil {
		return err
	}
	for {
		name, err := c.expectIdentifier()
		if err != nil {
			return err
		}
		if err := c.table.Define(name, typ, kind); err != nil {
			return err
		}
		if c.isLiteral(",") {
			c.advance()
			continue
		}
		break
	}
	return c.expectLiteral(";")
}

// compileSubroutine ::= ('constructor'|'function'|'method') ('void'|type) subroutineName
//
//	'(' parameterList ')' subroutineBody
func (c *Compiler) compileSubroutine() error {
	kindTok, _ := c.advance()
	subKind := kindTok.Value

	c.table.StartSubroutine()
	c.whileCount, c.ifCount = 0, 0
	if subKind == "method" {
		// The implicit 'this' argument occupies argument slot 0 for every method.
		if err := c.table.Define("this", c.class, ArgKind); err != nil {
			return err
		}
	}

	if c.isLiteral("void") {
		c.advance()
	} else if _, err := c.compileType(); err != nil {
		return err
	}

	name, err := c.expectIdentifier()
	if err != nil {
		return err
	}

	if err := c.expectLiteral("("); err != nil {
		return err
	}
	if err := c.compileParameterList(); err != nil {
		return err
	}
	if err := c.expectLiteral(")"); err != nil {
		return err
	}

	return c.compileSubroutineBody(subKind, name)
}

// compileParameterList ::= ((type varName) (',' type varName)*)?
func (c *Compiler) compileParameterList() error {
	if c.isLiteral(")") {
		return nil
	}
	for {
		typ, err := c.compileType()
		if err != nil {
			return err
		}
		name, err := c.expectIdentifier()
		if err != nil {
			return err
		}
		if err := c.table.Define(name, typ, ArgKind); err != nil {
			return err
		}
		if c.isLiteral(",") {
			c.advance()
			continue
		}
		return nil
	}
}

// compileSubroutineBody ::= '{' varDec* statements '}'
//
// Emits the 'function' declaration only once every local variable has been counted, since
// the VM calling convention needs the final tally up front.
func (c *Compiler) compileSubroutineBody(subKind, name string) error {
	if err := c.expectLiteral("{"); err != nil {
		return err
	}
	for c.isLiteral("var") {
		if err := c.compileVarDec(); err != nil {
			return err
		}
	}

	c.writer.WriteFunction(c.class+"."+name, c.table.VarCount(VarKind))

	switch subKind {
	case "constructor":
		// Allocate enough memory for every field and leave 'this' pointed at it.
		c.writer.WritePush(vm.Constant, c.table.VarCount(FieldKind))
		c.writer.WriteCall("Memory.alloc", 1)
		c.writer.WritePop(vm.Pointer, 0)
	case "method":
		// The caller pushed the receiver as argument 0; anchor 'this' to it.
		c.writer.WritePush(vm.Argument, 0)
		c.writer.WritePop(vm.Pointer, 0)
	}

	if err := c.compileStatements(); err != nil {
		return err
	}
	return c.expectLiteral("}")
}

// compileVarDec ::= 'var' type varName (',' varName)* ';'
func (c *Compiler) compileVarDec() error {
	c.advance() // 'var'
	typ, err := c.compileType()
	if err != nil {
		return err
	}
	for {
		name, err := c.expectIdentifier()
		if err != nil {
			return err
		}
		if err := c.table.Define(name, typ, VarKind); err != nil {
			return err
		}
		if c.isLiteral(",") {
			c.advance()
			continue
		}
		break
	}
	return c.expectLiteral(";")
}

// ----------------------------------------------------------------------------
// Statements

// compileStatements ::= statement*
func (c *Compiler) compileStatements() error {
	for {
		tok, ok := c.peek()
		if !ok {
			return nil
		}
		var err error
		switch tok.Value {
		case "let":
			err = c.compileLet()
		case "if":
			err = c.compileIf()
		case "while":
			err = c.compileWhile()
		case "do":
			err = c.compileDo()
		case "return":
			err = c.compileReturn()
		default:
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// compileLet ::= 'let' varName ('[' expression ']')? '=' expression ';'
func (c *Compiler) compileLet() error {
	c.advance() // 'let'
	name, err := c.expectIdentifier()
	if err != nil {
		return err
	}

	indexed := c.isLiteral("[")
	if indexed {
		c.advance()
		if err := c.pushVariable(name); err != nil {
			return err
		}
		if err := c.compileExpression(); err != nil {
			return err
		}
		if err := c.expectLiteral("]"); err != nil {
			return err
		}
		c.writer.WriteArithmetic(vm.Add)
	}

	if err := c.expectLiteral("="); err != nil {
		return err
	}
	if err := c.compileExpression(); err != nil {
		return err
	}
	if err := c.expectLiteral(";"); err != nil {
		return err
	}

	if indexed {
		// Stack: [value, address]. Stash value in temp 0, point 'that' at address, restore.
		c.writer.WritePop(vm.Temp, 0)
		c.writer.WritePop(vm.Pointer, 1)
		c.writer.WritePush(vm.Temp, 0)
		c.writer.WritePop(vm.That, 0)
		return nil
	}
	return c.popVariable(name)
}

// compileIf ::= 'if' '(' expression ')' '{' statements '}' ('else' '{' statements '}')?
//
// Emits 'if-goto IF_TRUE; goto IF_FALSE; label IF_TRUE; <then>' rather than the more
// obvious 'not; if-goto IF_FALSE' shape, so that a bare if (no else) still needs only
// the IF_FALSE label after the then-branch, with no separate end label.
func (c *Compiler) compileIf() error {
	c.advance() // 'if'
	idx := c.ifCount
	c.ifCount++
	trueLabel := fmt.Sprintf("IF_TRUE%d", idx)
	falseLabel := fmt.Sprintf("IF_FALSE%d", idx)
	endLabel := fmt.Sprintf("IF_END%d", idx)

	if err := c.expectLiteral("("); err != nil {
		return err
	}
	if err := c.compileExpression(); err != nil {
		return err
	}
	if err := c.expectLiteral(")"); err != nil {
		return err
	}

	c.writer.WriteIf(trueLabel)
	c.writer.WriteGoto(falseLabel)
	c.writer.WriteLabel(trueLabel)

	if err := c.expectLiteral("{"); err != nil {
		return err
	}
	if err := c.compileStatements(); err != nil {
		return err
	}
	if err := c.expectLiteral("}"); err != nil {
		return err
	}

	if c.isLiteral("else") {
		c.advance()
		c.writer.WriteGoto(endLabel)
		c.writer.WriteLabel(falseLabel)
		if err := c.expectLiteral("{"); err != nil {
			return err
		}
		if err := c.compileStatements(); err != nil {
			return err
		}
		if err := c.expectLiteral("}"); err != nil {
			return err
		}
		c.writer.WriteLabel(endLabel)
		return nil
	}

	c.writer.WriteLabel(falseLabel)
	return nil
}

// compileWhile ::= 'while' '(' expression ')' '{' statements '}'
func (c *Compiler) compileWhile() error {
	c.advance() // 'while'
	idx := c.whileCount
	c.whileCount++
	expLabel := fmt.Sprintf("WHILE_EXP%d", idx)
	endLabel := fmt.Sprintf("WHILE_END%d", idx)

	c.writer.WriteLabel(expLabel)
	if err := c.expectLiteral("("); err != nil {
		return err
	}
	if err := c.compileExpression(); err != nil {
		return err
	}
	if err := c.expectLiteral(")"); err != nil {
		return err
	}

	c.writer.WriteArithmetic(vm.Not)
	c.writer.WriteIf(endLabel)

	if err := c.expectLiteral("{"); err != nil {
		return err
	}
	if err := c.compileStatements(); err != nil {
		return err
	}
	if err := c.expectLiteral("}"); err != nil {
		return err
	}
	c.writer.WriteGoto(expLabel)
	c.writer.WriteLabel(endLabel)
	return nil
}

// compileDo ::= 'do' subroutineCall ';'
func (c *Compiler) compileDo() error {
	c.advance() // 'do'
	if err := c.compileSubroutineCall(); err != nil {
		return err
	}
	// Every subroutine returns a value; 'do' discards it.
	c.writer.WritePop(vm.Temp, 0)
	return c.expectLiteral(";")
}

// compileReturn ::= 'return' expression? ';'
func (c *Compiler) compileReturn() error {
	c.advance() // 'return'
	if c.isLiteral(";") {
		c.writer.WritePush(vm.Constant, 0)
	} else if err := c.compileExpression(); err != nil {
		return err
	}
	if err := c.expectLiteral(";"); err != nil {
		return err
	}
	c.writer.WriteReturn()
	return nil
}

// ----------------------------------------------------------------------------
// Expressions

// compileExpression ::= term (op term)*
func (c *Compiler) compileExpression() error {
	if err := c.compileTerm(); err != nil {
		return err
	}
	for {
		tok, ok := c.peek()
		if !ok || tok.Type != SymbolToken || !Ops[tok.Value] {
			return nil
		}
		c.advance()
		if err := c.compileTerm(); err != nil {
			return err
		}
		c.writeOp(tok.Value)
	}
}

func (c *Compiler) writeOp(op string) {
	switch op {
	case "+":
		c.writer.WriteArithmetic(vm.Add)
	case "-":
		c.writer.WriteArithmetic(vm.Sub)
	case "*":
		c.writer.WriteCall("Math.multiply", 2)
	case "/":
		c.writer.WriteCall("Math.divide", 2)
	case "&":
		c.writer.WriteArithmetic(vm.And)
	case "|":
		c.writer.WriteArithmetic(vm.Or)
	case "<":
		c.writer.WriteArithmetic(vm.Lt)
	case ">":
		c.writer.WriteArithmetic(vm.Gt)
	case "=":
		c.writer.WriteArithmetic(vm.Eq)
	}
}

// compileTerm handles every term alternative; the 1-token lookahead needed to tell
// 'varName', 'varName[expression]' and 'varName(...)'/'varName.name(...)' apart is done
// by peeking at the token right after the leading identifier.
func (c *Compiler) compileTerm() error {
	tok, ok := c.peek()
	if !ok {
		return c.syntaxError("expected a term")
	}

	switch {
	case tok.Type == IntConstToken:
		c.advance()
		n, _ := strconv.Atoi(tok.Value)
		c.writer.WritePush(vm.Constant, uint16(n))
		return nil

	case tok.Type == StringConstToken:
		c.advance()
		return c.compileStringConst(tok.Value)

	case tok.Type == KeywordToken && KeywordConstants[tok.Value]:
		c.advance()
		return c.compileKeywordConst(tok.Value)

	case tok.Value == "(":
		c.advance()
		if err := c.compileExpression(); err != nil {
			return err
		}
		return c.expectLiteral(")")

	case tok.Value == "-" || tok.Value == "~":
		c.advance()
		if err := c.compileTerm(); err != nil {
			return err
		}
		if tok.Value == "-" {
			c.writer.WriteArithmetic(vm.Neg)
		} else {
			c.writer.WriteArithmetic(vm.Not)
		}
		return nil

	case tok.Type == IdentifierToken:
		return c.compileIdentifierTerm()

	default:
		return c.syntaxError("unexpected token '" + tok.Value + "' in expression")
	}
}

// compileStringConst emits 'String.new(len)' followed by one 'appendChar' call per byte,
// leaving the finished String object reference on the stack.
func (c *Compiler) compileStringConst(s string) error {
	c.writer.WritePush(vm.Constant, uint16(len(s)))
	c.writer.WriteCall("String.new", 1)
	for i := 0; i < len(s); i++ {
		c.writer.WritePush(vm.Constant, uint16(s[i]))
		c.writer.WriteCall("String.appendChar", 2)
	}
	return nil
}

func (c *Compiler) compileKeywordConst(kw string) error {
	switch kw {
	case "true":
		c.writer.WritePush(vm.Constant, 0)
		c.writer.WriteArithmetic(vm.Not)
	case "false", "null":
		c.writer.WritePush(vm.Constant, 0)
	case "this":
		c.writer.WritePush(vm.Pointer, 0)
	}
	return nil
}

// compileIdentifierTerm disambiguates the four forms that can start with an identifier:
// a bare variable, an array access, a direct call (method on the current object), and a
// qualified call (function/constructor, or method on another object/class).
func (c *Compiler) compileIdentifierTerm() error {
	name, _ := c.advance()

	switch {
	case c.isLiteral("["):
		c.advance()
		if err := c.pushVariable(name.Value); err != nil {
			return err
		}
		if err := c.compileExpression(); err != nil {
			return err
		}
		if err := c.expectLiteral("]"); err != nil {
			return err
		}
		c.writer.WriteArithmetic(vm.Add)
		c.writer.WritePop(vm.Pointer, 1)
		c.writer.WritePush(vm.That, 0)
		return nil

	case c.isLiteral("(") || c.isLiteral("."):
		return c.compileCallFrom(name.Value)

	default:
		return c.pushVariable(name.Value)
	}
}

// compileSubroutineCall is compileCallFrom entered from a 'do' statement, where the
// leading identifier has not been consumed yet.
func (c *Compiler) compileSubroutineCall() error {
	name, err := c.expectIdentifier()
	if err != nil {
		return err
	}
	return c.compileCallFrom(name)
}

// compileCallFrom finishes compiling a subroutine call whose leading identifier ('name')
// has already been consumed; 'name' is either the bare subroutine name (an implicit call
// on 'this'), a variable name (a method call on that variable's object) or a class name
// (a function/constructor call, or a method call qualified on a class instance variable).
func (c *Compiler) compileCallFrom(name string) error {
	fullName := name
	nArgs := uint16(0)

	if c.isLiteral(".") {
		c.advance()
		member, err := c.expectIdentifier()
		if err != nil {
			return err
		}

		if typ, found := c.table.TypeOf(name); found {
			// name is a declared variable: push its object reference as the receiver.
			if err := c.pushVariable(name); err != nil {
				return err
			}
			nArgs++
			fullName = typ + "." + member
		} else {
			// name is a class name: a plain function or constructor call.
			fullName = name + "." + member
		}
	} else {
		// Bare call: an implicit method invocation on the current object.
		c.writer.WritePush(vm.Pointer, 0)
		nArgs++
		fullName = c.class + "." + name
	}

	if err := c.expectLiteral("("); err != nil {
		return err
	}
	n, err := c.compileExpressionList()
	if err != nil {
		return err
	}
	nArgs += n
	if err := c.expectLiteral(")"); err != nil {
		return err
	}

	c.writer.WriteCall(fullName, nArgs)
	return nil
}

// compileExpressionList ::= (expression (',' expression)*)? and returns how many were found.
func (c *Compiler) compileExpressionList() (uint16, error) {
	if c.isLiteral(")") {
		return 0, nil
	}
	count := uint16(0)
	for {
		if err := c.compileExpression(); err != nil {
			return 0, err
		}
		count++
		if c.isLiteral(",") {
			c.advance()
			continue
		}
		return count, nil
	}
}

// ----------------------------------------------------------------------------
// Variable access helpers

// vmSegmentOf maps a symbol table Kind to the VM segment that stores it; fields live in
// the 'this' segment since every field access goes through the object pointer.
func vmSegmentOf(kind Kind) vm.SegmentType {
	switch kind {
	case StaticKind:
		return vm.Static
	case FieldKind:
		return vm.This
	case ArgKind:
		return vm.Argument
	case VarKind:
		return vm.Local
	default:
		return vm.Local
	}
}

func (c *Compiler) pushVariable(name string) error {
	kind := c.table.KindOf(name)
	if kind == NoneKind {
		return &SymbolTableError{Name: name, Message: "undeclared identifier"}
	}
	index, _ := c.table.IndexOf(name)
	c.writer.WritePush(vmSegmentOf(kind), index)
	return nil
}

func (c *Compiler) popVariable(name string) error {
	kind := c.table.KindOf(name)
	if kind == NoneKind {
		return &SymbolTableError{Name: name, Message: "undeclared identifier"}
	}
	index, _ := c.table.IndexOf(name)
	c.writer.WritePop(vmSegmentOf(kind), index)
	return nil
}

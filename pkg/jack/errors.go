package jack

import "fmt"

// ----------------------------------------------------------------------------
// Error taxonomy

// This section defines one error type per phase of the Jack pipeline, rather than relying
// on generic 'fmt.Errorf' wrapping throughout: callers that want to react differently to,
// say, a malformed token versus an unresolved identifier can type-switch on these instead
// of pattern matching error strings.

// TokenizerError signals that the raw source text could not be split into tokens at all
// (an unterminated string constant, a stray unrecognized character, ...).
type TokenizerError struct {
	Line    int
	Message string
}

func (e *TokenizerError) Error() string {
	return fmt.Sprintf("tokenizer error at line %d: %s", e.Line, e.Message)
}

// TokenError signals that a specific, already-recognized token could not be used where
// it was found (e.g. an integer constant literal outside of the 0-32767 range).
type TokenError struct {
	Token   Token
	Message string
}

func (e *TokenError) Error() string {
	return fmt.Sprintf("token error at line %d (%q): %s", e.Token.Line, e.Token.Value, e.Message)
}

// SyntaxError signals that the token stream does not conform to the Jack grammar at the
// point the parser currently stands (wrong keyword, missing symbol, unexpected EOF, ...).
type SyntaxError struct {
	Line    int
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at line %d: %s", e.Line, e.Message)
}

// SymbolTableError signals a misuse of the Symbol Table: redeclaring a name already bound
// in the same scope, or looking up a name that was never declared in any visible scope.
type SymbolTableError struct {
	Name    string
	Message string
}

func (e *SymbolTableError) Error() string {
	return fmt.Sprintf("symbol table error for '%s': %s", e.Name, e.Message)
}

// VmWriterError signals that the compiler asked the VM Writer to emit something it cannot
// represent (an out-of-range segment offset, an empty subroutine name, ...).
type VmWriterError struct {
	Message string
}

func (e *VmWriterError) Error() string {
	return fmt.Sprintf("vm writer error: %s", e.Message)
}

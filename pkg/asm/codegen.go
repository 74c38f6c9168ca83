package asm

import (
	"fmt"
	"regexp"

	"n2t.dev/toolchain/pkg/hack"
)

// validLabel matches the grammar the Parser itself accepts for a SYMBOL token: it must
// start with a letter or one of '_.$:' and continue with letters, digits or '_.$:'.
// Kept here too (rather than only in parsing.go) since EncodeLabel is the last point
// before a label reaches the output file, guarding against a LabelDecl built by hand
// (e.g. from a future front-end) rather than parsed from source text.
var validLabel = regexp.MustCompile(`^[A-Za-z_.$:][0-9a-zA-Z_.$:]*$`)

// ----------------------------------------------------------------------------
// Encoder

// Encoder renders a Program of asm.Statement values to their textual assembly form, one
// line per statement. It performs no symbol resolution of its own (that's the Lowerer's
// job) so it can run directly over Parser output, label declarations and all.
type Encoder struct{ stmts Program }

// NewEncoder wires a Program for rendering.
func NewEncoder(stmts Program) Encoder { return Encoder{stmts: stmts} }

// Encode renders every statement in the wired Program, stopping at the first one that
// cannot be rendered.
func (e *Encoder) Encode() ([]string, error) {
	lines := make([]string, 0, len(e.stmts))

	for _, stmt := range e.stmts {
		var line string
		var err error

		switch typed := stmt.(type) {
		case AInstruction:
			line, err = e.EncodeAddress(typed)
		case CInstruction:
			line, err = e.EncodeCompute(typed)
		case LabelDecl:
			line, err = e.EncodeLabel(typed)
		}
		if err != nil {
			return nil, err
		}

		lines = append(lines, line)
	}

	return lines, nil
}

// EncodeAddress renders an A instruction as "@<location>".
func (Encoder) EncodeAddress(stmt AInstruction) (string, error) {
	if stmt.Location == "" {
		return "", &EncodeError{Statement: stmt, Reason: "location must not be empty"}
	}
	return fmt.Sprintf("@%s", stmt.Location), nil
}

// EncodeCompute renders a C instruction as either "dest=comp" or "comp;jump", whichever
// of Dest/Jump is populated. Exactly one of the two must be set; Comp is always required.
func (Encoder) EncodeCompute(stmt CInstruction) (string, error) {
	if stmt.Comp == "" {
		return "", &EncodeError{Statement: stmt, Reason: "comp must not be empty"}
	}

	switch {
	case stmt.Dest != "" && stmt.Jump == "":
		return fmt.Sprintf("%s=%s", stmt.Dest, stmt.Comp), nil
	case stmt.Jump != "" && stmt.Dest == "":
		return fmt.Sprintf("%s;%s", stmt.Comp, stmt.Jump), nil
	default:
		return "", &EncodeError{Statement: stmt, Reason: "exactly one of dest or jump must be set"}
	}
}

// EncodeLabel renders a label declaration as "(<name>)". A name that collides with one
// of the Hack architecture's predefined symbols (SP, R3, SCREEN, ...) or that doesn't
// match the Parser's own SYMBOL grammar is rejected rather than silently shadowed.
func (Encoder) EncodeLabel(stmt LabelDecl) (string, error) {
	if _, collides := hack.BuiltInTable[stmt.Name]; collides {
		return "", &EncodeError{Statement: stmt, Reason: "label name collides with a built-in symbol"}
	}
	if !validLabel.MatchString(stmt.Name) {
		return "", &EncodeError{Statement: stmt, Reason: "label name does not match the assembler's symbol grammar"}
	}

	return fmt.Sprintf("(%s)", stmt.Name), nil
}

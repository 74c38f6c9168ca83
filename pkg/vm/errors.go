package vm

import "fmt"

// ----------------------------------------------------------------------------
// Error taxonomy

// EncodeError reports why an Operation could not be rendered to its textual VM form:
// almost always a required field (a label name, a function name) left empty, or an
// Offset outside the bounds a fixed-size segment allows.
type EncodeError struct {
	Operation Operation
	Reason    string
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("cannot render %#v: %s", e.Operation, e.Reason)
}

package jack

import "n2t.dev/toolchain/pkg/vm"

// ----------------------------------------------------------------------------
// Symbol Table

// Kind enumerates the four storage classes a Jack identifier can be declared with; each
// one maps to a distinct VM segment during code generation (see vmSegmentOf in compiler.go).
type Kind uint8

const (
	NoneKind Kind = iota
	StaticKind
	FieldKind
	ArgKind
	VarKind
)

// entry is the information kept about a single declared identifier: its declared type
// (a primitive name or a class name) and the dense, zero-based index assigned to it
// within its kind (the second 'static' declared gets index 1, the third gets index 2, ...).
type entry struct {
	Type  string
	Kind  Kind
	Index uint16
}

// SymbolTable tracks every identifier visible to the compiler at a given point, split into
// a class scope (statics and fields, alive for the whole class) and a subroutine scope
// (arguments and locals, reset at the start of every method/function/constructor).
//
// Each kind keeps its own running counter so that, for instance, 'this 0' and 'local 0'
// can coexist without clashing: VM segment offsets are dense per kind, not per scope.
type SymbolTable struct {
	class      map[string]entry
	subroutine map[string]entry
	counts     map[Kind]uint16
}

// NewSymbolTable returns an empty table, ready to have class-level fields and statics
// declared into it before the first subroutine is compiled.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		class:      map[string]entry{},
		subroutine: map[string]entry{},
		counts:     map[Kind]uint16{},
	}
}

// StartSubroutine resets the subroutine-level scope (arguments and locals) so that a new
// method/function/constructor starts with a clean slate; the class scope is left untouched.
func (st *SymbolTable) StartSubroutine() {
	st.subroutine = map[string]entry{}
	st.counts[ArgKind] = 0
	st.counts[VarKind] = 0
}

// Define declares a new identifier of the given name/type/kind, assigning it the next free
// index for its kind. Redeclaring a name already visible in the target scope is an error.
func (st *SymbolTable) Define(name, typ string, kind Kind) error {
	scope := st.scopeFor(kind)
	if _, found := scope[name]; found {
		return &SymbolTableError{Name: name, Message: "already declared in this scope"}
	}

	index := st.counts[kind]
	scope[name] = entry{Type: typ, Kind: kind, Index: index}
	st.counts[kind] = index + 1
	return nil
}

// scopeFor resolves which of the two maps an identifier of the given kind lives in.
func (st *SymbolTable) scopeFor(kind Kind) map[string]entry {
	if kind == StaticKind || kind == FieldKind {
		return st.class
	}
	return st.subroutine
}

// VarCount returns how many identifiers of the given kind have been declared so far,
// used by the compiler to size a subroutine's 'function' declaration (its local count).
func (st *SymbolTable) VarCount(kind Kind) uint16 {
	return st.counts[kind]
}

// lookup finds a name in the subroutine scope first (shadowing the class scope, Jack has
// no block scoping below the subroutine level) and falls back to the class scope.
func (st *SymbolTable) lookup(name string) (entry, bool) {
	if e, found := st.subroutine[name]; found {
		return e, true
	}
	e, found := st.class[name]
	return e, found
}

// KindOf returns the storage kind of a declared identifier, or NoneKind if it was never
// declared (the compiler reports an undeclared identifier when it gets NoneKind back).
func (st *SymbolTable) KindOf(name string) Kind {
	e, found := st.lookup(name)
	if !found {
		return NoneKind
	}
	return e.Kind
}

// TypeOf returns the declared type of an identifier (a primitive or a class name).
func (st *SymbolTable) TypeOf(name string) (string, bool) {
	e, found := st.lookup(name)
	return e.Type, found
}

// IndexOf returns the dense, per-kind index assigned to an identifier at Define time.
func (st *SymbolTable) IndexOf(name string) (uint16, bool) {
	e, found := st.lookup(name)
	return e.Index, found
}

// SegmentOf returns the VM segment that stores a declared identifier (see vmSegmentOf).
func (st *SymbolTable) SegmentOf(name string) (vm.SegmentType, bool) {
	e, found := st.lookup(name)
	if !found {
		return "", false
	}
	return vmSegmentOf(e.Kind), true
}

package jack_test

import (
	"testing"

	"n2t.dev/toolchain/pkg/jack"
)

func TestSymbolTableDefine(t *testing.T) {
	t.Run("Class and subroutine scopes coexist", func(t *testing.T) {
		table := jack.NewSymbolTable()

		if err := table.Define("size", "int", jack.FieldKind); err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
		if err := table.Define("count", "int", jack.StaticKind); err != nil {
			t.Fatalf("unexpected error: %s", err)
		}

		table.StartSubroutine()
		if err := table.Define("n", "int", jack.ArgKind); err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
		if err := table.Define("i", "int", jack.VarKind); err != nil {
			t.Fatalf("unexpected error: %s", err)
		}

		if kind := table.KindOf("size"); kind != jack.FieldKind {
			t.Fatalf("expected 'size' to be a field, got %v", kind)
		}
		if idx, _ := table.IndexOf("n"); idx != 0 {
			t.Fatalf("expected 'n' at index 0, got %d", idx)
		}
		if table.VarCount(jack.VarKind) != 1 {
			t.Fatalf("expected 1 local variable, got %d", table.VarCount(jack.VarKind))
		}
	})

	t.Run("Per-kind indices are dense", func(t *testing.T) {
		table := jack.NewSymbolTable()
		table.Define("a", "int", jack.FieldKind)
		table.Define("b", "int", jack.FieldKind)
		table.Define("c", "int", jack.StaticKind)

		if idx, _ := table.IndexOf("b"); idx != 1 {
			t.Fatalf("expected 'b' at index 1, got %d", idx)
		}
		if idx, _ := table.IndexOf("c"); idx != 0 {
			t.Fatalf("expected 'c' at index 0 (separate kind counter), got %d", idx)
		}
	})

	t.Run("StartSubroutine resets only subroutine scope", func(t *testing.T) {
		table := jack.NewSymbolTable()
		table.Define("field1", "int", jack.FieldKind)

		table.StartSubroutine()
		table.Define("a", "int", jack.ArgKind)
		table.StartSubroutine()

		if _, found := table.TypeOf("a"); found {
			t.Fatal("expected 'a' to no longer be visible after StartSubroutine")
		}
		if _, found := table.TypeOf("field1"); !found {
			t.Fatal("expected 'field1' to remain visible across subroutines")
		}
	})

	t.Run("Redeclaration in the same scope is an error", func(t *testing.T) {
		table := jack.NewSymbolTable()
		table.Define("x", "int", jack.FieldKind)
		if err := table.Define("x", "int", jack.FieldKind); err == nil {
			t.Fatal("expected an error redeclaring 'x'")
		}
	})

	t.Run("Undeclared identifiers resolve to NoneKind", func(t *testing.T) {
		table := jack.NewSymbolTable()
		if kind := table.KindOf("nope"); kind != jack.NoneKind {
			t.Fatalf("expected NoneKind for an undeclared identifier, got %v", kind)
		}
	})
}

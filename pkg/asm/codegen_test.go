package asm_test

import (
	"testing"

	"n2t.dev/toolchain/pkg/asm"
)

func TestEncodeAddress(t *testing.T) {
	enc := asm.NewEncoder(asm.Program{})

	check := func(inst asm.AInstruction, want string, wantErr bool) {
		t.Helper()
		got, err := enc.EncodeAddress(inst)
		if (err != nil) != wantErr {
			t.Fatalf("EncodeAddress(%+v) error = %v, wantErr %v", inst, err, wantErr)
		}
		if !wantErr && got != want {
			t.Fatalf("EncodeAddress(%+v) = %q, want %q", inst, got, want)
		}
	}

	t.Run("raw and symbolic locations render verbatim", func(t *testing.T) {
		check(asm.AInstruction{Location: "38"}, "@38", false)
		check(asm.AInstruction{Location: "1024"}, "@1024", false)
		check(asm.AInstruction{Location: "SP"}, "@SP", false)
		check(asm.AInstruction{Location: "SCREEN"}, "@SCREEN", false)
		check(asm.AInstruction{Location: "LOOP_START"}, "@LOOP_START", false)
		check(asm.AInstruction{Location: "n2t.Main.run"}, "@n2t.Main.run", false)
	})

	t.Run("empty location is rejected", func(t *testing.T) {
		check(asm.AInstruction{Location: ""}, "", true)
	})
}

func TestEncodeCompute(t *testing.T) {
	enc := asm.NewEncoder(asm.Program{})

	check := func(inst asm.CInstruction, want string, wantErr bool) {
		t.Helper()
		got, err := enc.EncodeCompute(inst)
		if (err != nil) != wantErr {
			t.Fatalf("EncodeCompute(%+v) error = %v, wantErr %v", inst, err, wantErr)
		}
		if !wantErr && got != want {
			t.Fatalf("EncodeCompute(%+v) = %q, want %q", inst, got, want)
		}
	}

	t.Run("comp with jump renders 'comp;jump'", func(t *testing.T) {
		check(asm.CInstruction{Comp: "0", Jump: "JGT"}, "0;JGT", false)
		check(asm.CInstruction{Comp: "D", Jump: "JGE"}, "D;JGE", false)
		check(asm.CInstruction{Comp: "!M", Jump: "JNE"}, "!M;JNE", false)
		check(asm.CInstruction{Comp: "-D", Jump: "JNE"}, "-D;JNE", false)
	})

	t.Run("comp with dest renders 'dest=comp'", func(t *testing.T) {
		check(asm.CInstruction{Comp: "D-A", Dest: "M"}, "M=D-A", false)
		check(asm.CInstruction{Comp: "D&A", Dest: "A"}, "A=D&A", false)
		check(asm.CInstruction{Comp: "D|M", Dest: "MD"}, "MD=D|M", false)
		check(asm.CInstruction{Comp: "-1", Dest: "AMD"}, "AMD=-1", false)
	})

	t.Run("malformed instructions are rejected", func(t *testing.T) {
		check(asm.CInstruction{Comp: "D+1", Dest: "", Jump: ""}, "", true) // neither dest nor jump
		check(asm.CInstruction{Comp: "D+1", Dest: "A", Jump: "JMP"}, "", true) // both dest and jump
		check(asm.CInstruction{Dest: "AM", Jump: "JNE"}, "", true)             // missing comp
		check(asm.CInstruction{Dest: "AMD"}, "", true)                        // missing comp, dest only
	})
}

func TestEncodeLabel(t *testing.T) {
	enc := asm.NewEncoder(asm.Program{})

	check := func(inst asm.LabelDecl, want string, wantErr bool) {
		t.Helper()
		got, err := enc.EncodeLabel(inst)
		if (err != nil) != wantErr {
			t.Fatalf("EncodeLabel(%+v) error = %v, wantErr %v", inst, err, wantErr)
		}
		if !wantErr && got != want {
			t.Fatalf("EncodeLabel(%+v) = %q, want %q", inst, got, want)
		}
	}

	t.Run("well-formed labels render as '(name)'", func(t *testing.T) {
		check(asm.LabelDecl{Name: "test123"}, "(test123)", false)
		check(asm.LabelDecl{Name: "PONG"}, "(PONG)", false)
		check(asm.LabelDecl{Name: "loop.end"}, "(loop.end)", false)
	})

	t.Run("empty name is rejected", func(t *testing.T) {
		check(asm.LabelDecl{Name: ""}, "", true)
	})

	t.Run("names colliding with built-in symbols are rejected", func(t *testing.T) {
		check(asm.LabelDecl{Name: "SP"}, "", true)
		check(asm.LabelDecl{Name: "R1"}, "", true)
		check(asm.LabelDecl{Name: "LCL"}, "", true)
		check(asm.LabelDecl{Name: "R15"}, "", true)
		check(asm.LabelDecl{Name: "SCREEN"}, "", true)
	})

	t.Run("names outside the symbol grammar are rejected", func(t *testing.T) {
		check(asm.LabelDecl{Name: "1START"}, "", true)
		check(asm.LabelDecl{Name: "has space"}, "", true)
		check(asm.LabelDecl{Name: "has!bang"}, "", true)
	})
}

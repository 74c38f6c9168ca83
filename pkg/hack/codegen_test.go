package hack_test

import (
	"fmt"
	"testing"

	"n2t.dev/toolchain/pkg/hack"
)

func TestEncodeAddress(t *testing.T) {
	labels := hack.SymbolTable{"LOOP": 20, "MAIN": 150}
	enc := hack.NewEncoder(hack.Program{}, labels)

	check := func(inst hack.AInstruction, want string, wantErr bool) {
		t.Helper()
		got, err := enc.EncodeAddress(inst)
		if (err != nil) != wantErr {
			t.Fatalf("EncodeAddress(%+v) error = %v, wantErr %v", inst, err, wantErr)
		}
		if !wantErr && got != want {
			t.Fatalf("EncodeAddress(%+v) = %q, want %q", inst, got, want)
		}
	}

	t.Run("raw addresses within bounds", func(t *testing.T) {
		check(hack.AInstruction{LocType: hack.Raw, LocName: "38"}, fmt.Sprintf("%016b", 38), false)
		check(hack.AInstruction{LocType: hack.Raw, LocName: "42"}, fmt.Sprintf("%016b", 42), false)
		check(hack.AInstruction{LocType: hack.Raw, LocName: "0"}, fmt.Sprintf("%016b", 0), false)
		check(hack.AInstruction{LocType: hack.Raw, LocName: "32767"}, fmt.Sprintf("%016b", 32767), false)
	})

	t.Run("raw addresses out of bounds", func(t *testing.T) {
		check(hack.AInstruction{LocType: hack.Raw, LocName: "32768"}, "", true)
		check(hack.AInstruction{LocType: hack.Raw, LocName: "65538"}, "", true)
		check(hack.AInstruction{LocType: hack.Raw, LocName: "not-a-number"}, "", true)
	})

	t.Run("built-in registers and I/O", func(t *testing.T) {
		check(hack.AInstruction{LocType: hack.BuiltIn, LocName: "SP"}, fmt.Sprintf("%016b", 0), false)
		check(hack.AInstruction{LocType: hack.BuiltIn, LocName: "LCL"}, fmt.Sprintf("%016b", 1), false)
		check(hack.AInstruction{LocType: hack.BuiltIn, LocName: "ARG"}, fmt.Sprintf("%016b", 2), false)
		check(hack.AInstruction{LocType: hack.BuiltIn, LocName: "THIS"}, fmt.Sprintf("%016b", 3), false)
		check(hack.AInstruction{LocType: hack.BuiltIn, LocName: "THAT"}, fmt.Sprintf("%016b", 4), false)
		for i := 0; i <= 15; i++ {
			check(hack.AInstruction{LocType: hack.BuiltIn, LocName: fmt.Sprintf("R%d", i)}, fmt.Sprintf("%016b", i), false)
		}
		check(hack.AInstruction{LocType: hack.BuiltIn, LocName: "SCREEN"}, fmt.Sprintf("%016b", 16384), false)
		check(hack.AInstruction{LocType: hack.BuiltIn, LocName: "KBD"}, fmt.Sprintf("%016b", 24576), false)
		check(hack.AInstruction{LocType: hack.BuiltIn, LocName: "NOT_A_REGISTER"}, "", true)
	})

	t.Run("labels already bound resolve to their bound address", func(t *testing.T) {
		check(hack.AInstruction{LocType: hack.Label, LocName: "LOOP"}, fmt.Sprintf("%016b", 20), false)
		check(hack.AInstruction{LocType: hack.Label, LocName: "MAIN"}, fmt.Sprintf("%016b", 150), false)
	})

	t.Run("unbound labels are lazily allocated as RAM variables starting at 16", func(t *testing.T) {
		fresh := hack.NewEncoder(hack.Program{}, hack.NewSymbolTable())

		first, err := fresh.EncodeAddress(hack.AInstruction{LocType: hack.Label, LocName: "i"})
		if err != nil || first != fmt.Sprintf("%016b", 16) {
			t.Fatalf("first unbound variable should land at 16, got %q (err %v)", first, err)
		}
		second, err := fresh.EncodeAddress(hack.AInstruction{LocType: hack.Label, LocName: "sum"})
		if err != nil || second != fmt.Sprintf("%016b", 17) {
			t.Fatalf("second unbound variable should land at 17, got %q (err %v)", second, err)
		}
		// Referencing 'i' again must resolve to the address already allocated for it.
		again, err := fresh.EncodeAddress(hack.AInstruction{LocType: hack.Label, LocName: "i"})
		if err != nil || again != first {
			t.Fatalf("repeated variable reference should reuse its address, got %q (err %v)", again, err)
		}
	})
}

func TestEncodeCompute(t *testing.T) {
	enc := hack.NewEncoder(hack.Program{}, hack.NewSymbolTable())

	check := func(inst hack.CInstruction, want string, wantErr bool) {
		t.Helper()
		got, err := enc.EncodeCompute(inst)
		if (err != nil) != wantErr {
			t.Fatalf("EncodeCompute(%+v) error = %v, wantErr %v", inst, err, wantErr)
		}
		if !wantErr && got != want {
			t.Fatalf("EncodeCompute(%+v) = %q, want %q", inst, got, want)
		}
	}

	t.Run("comp with jump, no dest", func(t *testing.T) {
		check(hack.CInstruction{Comp: "M", Jump: ""}, "1111110000000000", false)
		check(hack.CInstruction{Comp: "A", Jump: ""}, "1110110000000000", false)
		check(hack.CInstruction{Comp: "0", Jump: "JGT"}, "1110101010000001", false)
		check(hack.CInstruction{Comp: "1", Jump: "JEQ"}, "1110111111000010", false)
		check(hack.CInstruction{Comp: "-1", Jump: "JEQ"}, "1110111010000010", false)
		check(hack.CInstruction{Comp: "D", Jump: "JGE"}, "1110001100000011", false)
		check(hack.CInstruction{Comp: "!A", Jump: "JLT"}, "1110110001000100", false)
		check(hack.CInstruction{Comp: "!M", Jump: "JNE"}, "1111110001000101", false)
		check(hack.CInstruction{Comp: "-D", Jump: "JNE"}, "1110001111000101", false)
		check(hack.CInstruction{Comp: "D+1", Jump: "JMP"}, "1110011111000111", false)
		check(hack.CInstruction{Comp: "M-1", Jump: "JGT"}, "1111110010000001", false)
	})

	t.Run("comp with dest, no jump", func(t *testing.T) {
		check(hack.CInstruction{Comp: "D+A", Dest: ""}, "1110000010000000", false)
		check(hack.CInstruction{Comp: "D-A", Dest: "M"}, "1110010011001000", false)
		check(hack.CInstruction{Comp: "A-D", Dest: "D"}, "1110000111010000", false)
		check(hack.CInstruction{Comp: "D&A", Dest: "A"}, "1110000000100000", false)
		check(hack.CInstruction{Comp: "D|A", Dest: "MD"}, "1110010101011000", false)
		check(hack.CInstruction{Comp: "M", Dest: "AM"}, "1111110000101000", false)
		check(hack.CInstruction{Comp: "0", Dest: "AD"}, "1110101010110000", false)
		check(hack.CInstruction{Comp: "-1", Dest: "AMD"}, "1110111010111000", false)
	})

	t.Run("missing or unknown comp is rejected", func(t *testing.T) {
		check(hack.CInstruction{Comp: "", Dest: "D"}, "", true)
		check(hack.CInstruction{Comp: "D+D"}, "", true)
	})

	t.Run("unknown dest or jump mnemonic is rejected", func(t *testing.T) {
		check(hack.CInstruction{Comp: "D", Dest: "XYZ"}, "", true)
		check(hack.CInstruction{Comp: "D", Jump: "JXX"}, "", true)
	})
}

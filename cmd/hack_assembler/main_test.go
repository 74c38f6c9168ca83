package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestHackAssembler(t *testing.T) {
	test := func(t *testing.T, source string, expected []string) {
		t.Helper()

		dir := t.TempDir()
		input := filepath.Join(dir, "program.asm")
		output := filepath.Join(dir, "program.hack")

		if err := os.WriteFile(input, []byte(source), 0644); err != nil {
			t.Fatalf("unable to write fixture input: %s", err)
		}

		status := Handler([]string{input, output}, nil)
		if status != 0 {
			t.Fatalf("unexpected exit status code: expected 0 got: %d", status)
		}

		compiled, err := os.ReadFile(output)
		if err != nil {
			t.Fatalf("error reading output file %s: %v", output, err)
		}

		got := strings.Split(strings.TrimRight(string(compiled), "\n"), "\n")
		if len(got) != len(expected) {
			t.Fatalf("expected %d lines, got %d\nexpected: %v\ngot: %v", len(expected), len(got), expected, got)
		}
		for i := range expected {
			if got[i] != expected[i] {
				t.Fatalf("line %d: expected %q, got %q", i, expected[i], got[i])
			}
		}
	}

	t.Run("Add two constants", func(t *testing.T) {
		// Computes R0 = 2 + 3, no symbols involved beyond the predefined ones.
		source := `
@2
D=A
@3
D=D+A
@0
M=D
`
		expected := []string{
			"0000000000000010",
			"1110110000010000",
			"0000000000000011",
			"1110000010010000",
			"0000000000000000",
			"1110001100001000",
		}
		test(t, source, expected)
	})

	t.Run("Loop with a label and a variable", func(t *testing.T) {
		// Counts 'i' up from 1 until it exceeds 3; exercises variable allocation (RAM 16)
		// and both forward (END) and backward (LOOP) label resolution.
		source := `
@i
M=1
(LOOP)
@i
D=M
@3
D=D-A
@END
D;JGT
@i
M=M+1
@LOOP
0;JMP
(END)
`
		expected := []string{
			"0000000000010000",
			"1110111111001000",
			"0000000000010000",
			"1111110000010000",
			"0000000000000011",
			"1110010011010000",
			"0000000000001100",
			"1110001100000001",
			"0000000000010000",
			"1111110111001000",
			"0000000000000010",
			"1110101010000111",
		}
		test(t, source, expected)
	})
}

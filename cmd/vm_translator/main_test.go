package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFixture(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("unable to write fixture %s: %s", name, err)
	}
	return path
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("error reading output file %s: %v", path, err)
	}
	return strings.Split(strings.TrimRight(string(content), "\n"), "\n")
}

func TestVmTranslatorSingleFile(t *testing.T) {
	// 'push constant 7; push constant 8; add' with no bootstrap: the simplest possible
	// case that still exercises the 'constant' segment and a binary arithmetic op.
	dir := t.TempDir()
	input := writeFixture(t, dir, "SimpleAdd.vm", "push constant 7\npush constant 8\nadd\n")
	output := filepath.Join(dir, "SimpleAdd.asm")

	status := Handler([]string{input}, map[string]string{"output": output})
	if status != 0 {
		t.Fatalf("unexpected exit status code: expected 0 got: %d", status)
	}

	got := readLines(t, output)
	expected := []string{
		"@7", "D=A", "@SP", "A=M", "M=D", "@SP", "M=M+1",
		"@8", "D=A", "@SP", "A=M", "M=D", "@SP", "M=M+1",
		"@SP", "AM=M-1", "D=M", "A=A-1", "M=D+M",
	}
	if len(got) != len(expected) {
		t.Fatalf("expected %d lines, got %d\nexpected: %v\ngot: %v", len(expected), len(got), expected, got)
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Fatalf("line %d: expected %q, got %q", i, expected[i], got[i])
		}
	}
}

func TestVmTranslatorBootstrap(t *testing.T) {
	// With '--bootstrap' the output must start by setting SP to 256 and then fold in a
	// genuine 'call Sys.init 0' (not a bare jump), per the VM bootstrap sequence.
	dir := t.TempDir()
	input := writeFixture(t, dir, "Sys.vm", "function Sys.init 0\ncall Sys.init 0\n")
	output := filepath.Join(dir, "Sys.asm")

	status := Handler([]string{input}, map[string]string{"output": output, "bootstrap": "true"})
	if status != 0 {
		t.Fatalf("unexpected exit status code: expected 0 got: %d", status)
	}

	got := readLines(t, output)
	expectedPrefix := []string{"@256", "D=A", "@SP", "M=D"}
	for i, line := range expectedPrefix {
		if got[i] != line {
			t.Fatalf("bootstrap line %d: expected %q, got %q", i, line, got[i])
		}
	}

	// The bootstrap's call must reach 'Sys.init' through a jump, and must return to a
	// dedicated label rather than falling off the end of the translated program.
	joined := strings.Join(got, "\n")
	if !strings.Contains(joined, "@Sys.init\n0;JMP") {
		t.Fatal("expected bootstrap to jump to 'Sys.init'")
	}
	if !strings.Contains(joined, "(Sys.init$ret_0)") {
		t.Fatal("expected bootstrap to declare its own unique return label")
	}
}

func TestVmTranslatorFunctionCallConvention(t *testing.T) {
	// Exercises the full call/return convention end to end: a function with no locals
	// that is called with one argument and returns it unchanged.
	dir := t.TempDir()
	input := writeFixture(t, dir, "Identity.vm", strings.Join([]string{
		"function Identity.main 0",
		"push constant 42",
		"call Identity.id 1",
		"return",
		"function Identity.id 0",
		"push argument 0",
		"return",
	}, "\n")+"\n")
	output := filepath.Join(dir, "Identity.asm")

	status := Handler([]string{input}, map[string]string{"output": output})
	if status != 0 {
		t.Fatalf("unexpected exit status code: expected 0 got: %d", status)
	}

	got := readLines(t, output)
	joined := strings.Join(got, "\n")

	for _, want := range []string{"(Identity.main)", "(Identity.id)", "(Identity.id$ret_0)"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("expected generated assembly to contain label %q", want)
		}
	}
	// The callee must restore the caller's frame via R13/R14 and jump back through R14.
	if !strings.Contains(joined, "@R14\nA=M\n0;JMP") {
		t.Fatal("expected 'return' to jump back through the R14 scratch register")
	}
}

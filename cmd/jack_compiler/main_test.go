package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestJackCompilerSingleFile(t *testing.T) {
	// A function with no fields or control flow: the simplest possible class.
	dir := t.TempDir()
	input := filepath.Join(dir, "Main.jack")
	source := `
	class Main {
		function int double(int n) {
			return n * 2;
		}
	}`
	if err := os.WriteFile(input, []byte(source), 0644); err != nil {
		t.Fatalf("unable to write fixture input: %s", err)
	}

	status := Handler([]string{input}, nil)
	if status != 0 {
		t.Fatalf("unexpected exit status code: expected 0 got: %d", status)
	}

	got := readVmFile(t, filepath.Join(dir, "Main.vm"))
	expected := []string{
		"function Main.double 0",
		"push argument 0",
		"push constant 2",
		"call Math.multiply 2",
		"return",
	}
	assertVmEqual(t, got, expected)
}

func TestJackCompilerConstructorAndMethod(t *testing.T) {
	// Exercises field allocation, the constructor preamble (Memory.alloc + pop pointer 0)
	// and the method preamble (push argument 0 + pop pointer 0).
	dir := t.TempDir()
	input := filepath.Join(dir, "Point.jack")
	source := `
	class Point {
		field int x, y;

		constructor Point new(int ax, int ay) {
			let x = ax;
			let y = ay;
			return this;
		}

		method int getX() {
			return x;
		}
	}`
	if err := os.WriteFile(input, []byte(source), 0644); err != nil {
		t.Fatalf("unable to write fixture input: %s", err)
	}

	status := Handler([]string{input}, nil)
	if status != 0 {
		t.Fatalf("unexpected exit status code: expected 0 got: %d", status)
	}

	got := readVmFile(t, filepath.Join(dir, "Point.vm"))
	expected := []string{
		"function Point.new 0",
		"push constant 2",
		"call Memory.alloc 1",
		"pop pointer 0",
		"push argument 0",
		"pop this 0",
		"push argument 1",
		"pop this 1",
		"push pointer 0",
		"return",
		"function Point.getX 0",
		"push argument 0",
		"pop pointer 0",
		"push this 0",
		"return",
	}
	assertVmEqual(t, got, expected)
}

func TestJackCompilerWalksDirectory(t *testing.T) {
	// A directory of two classes: one '.vm' file must be produced per '.jack' source,
	// each compiled (and named) independently.
	dir := t.TempDir()
	writeJackFixture(t, dir, "A.jack", `class A { function void run() { return; } }`)
	writeJackFixture(t, dir, "B.jack", `class B { function void run() { return; } }`)

	status := Handler([]string{dir}, nil)
	if status != 0 {
		t.Fatalf("unexpected exit status code: expected 0 got: %d", status)
	}

	for _, pair := range []struct{ file, fn string }{
		{"A.vm", "A.run"}, {"B.vm", "B.run"},
	} {
		got := readVmFile(t, filepath.Join(dir, pair.file))
		expected := []string{"function " + pair.fn + " 0", "push constant 0", "return"}
		assertVmEqual(t, got, expected)
	}
}

func TestJackCompilerSyntaxError(t *testing.T) {
	dir := t.TempDir()
	writeJackFixture(t, dir, "Broken.jack", `class Broken { function void run() { return; }`)

	status := Handler([]string{filepath.Join(dir, "Broken.jack")}, nil)
	if status == 0 {
		t.Fatal("expected a nonzero exit status for unbalanced braces")
	}
}

func writeJackFixture(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("unable to write fixture %s: %s", name, err)
	}
}

func readVmFile(t *testing.T, path string) []string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("error reading output file %s: %v", path, err)
	}
	return strings.Split(strings.TrimRight(string(content), "\n"), "\n")
}

func assertVmEqual(t *testing.T, got, expected []string) {
	t.Helper()
	if len(got) != len(expected) {
		t.Fatalf("expected %d lines, got %d\nexpected: %v\ngot: %v", len(expected), len(got), expected, got)
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Fatalf("line %d: expected %q, got %q", i, expected[i], got[i])
		}
	}
}

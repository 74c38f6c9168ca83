package jack_test

import (
	"testing"

	"n2t.dev/toolchain/pkg/jack"
)

func TestTokenizeValid(t *testing.T) {
	test := func(src string, expected []jack.Token) {
		tokenizer := jack.NewTokenizer([]byte(src))
		tokens, err := tokenizer.Tokenize()
		if err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
		if len(tokens) != len(expected) {
			t.Fatalf("expected %d tokens, got %d (%v)", len(expected), len(tokens), tokens)
		}
		for i, tok := range tokens {
			if tok.Type != expected[i].Type || tok.Value != expected[i].Value {
				t.Fatalf("token %d: expected %v, got %v", i, expected[i], tok)
			}
		}
	}

	t.Run("Keywords and symbols", func(t *testing.T) {
		test("class Main {}", []jack.Token{
			{Type: jack.KeywordToken, Value: "class"},
			{Type: jack.IdentifierToken, Value: "Main"},
			{Type: jack.SymbolToken, Value: "{"},
			{Type: jack.SymbolToken, Value: "}"},
		})
	})

	t.Run("Integer and string constants", func(t *testing.T) {
		test(`let x = 42; let s = "hi";`, []jack.Token{
			{Type: jack.KeywordToken, Value: "let"},
			{Type: jack.IdentifierToken, Value: "x"},
			{Type: jack.SymbolToken, Value: "="},
			{Type: jack.IntConstToken, Value: "42"},
			{Type: jack.SymbolToken, Value: ";"},
			{Type: jack.KeywordToken, Value: "let"},
			{Type: jack.IdentifierToken, Value: "s"},
			{Type: jack.SymbolToken, Value: "="},
			{Type: jack.StringConstToken, Value: "hi"},
			{Type: jack.SymbolToken, Value: ";"},
		})
	})

	t.Run("Comments are skipped", func(t *testing.T) {
		test("// a line comment\nvar /* inline */ int x;", []jack.Token{
			{Type: jack.KeywordToken, Value: "var"},
			{Type: jack.KeywordToken, Value: "int"},
			{Type: jack.IdentifierToken, Value: "x"},
			{Type: jack.SymbolToken, Value: ";"},
		})
	})
}

func TestTokenizeInvalid(t *testing.T) {
	test := func(src string) {
		tokenizer := jack.NewTokenizer([]byte(src))
		if _, err := tokenizer.Tokenize(); err == nil {
			t.Fatalf("expected an error tokenizing %q", src)
		}
	}

	t.Run("Unterminated string", func(t *testing.T) {
		test(`let s = "unterminated;`)
	})

	t.Run("Unterminated block comment", func(t *testing.T) {
		test("/* never closed")
	})

	t.Run("Integer constant out of range", func(t *testing.T) {
		test("let x = 99999;")
	})

	t.Run("Unrecognized character", func(t *testing.T) {
		test("let x = 1 @ 2;")
	})
}

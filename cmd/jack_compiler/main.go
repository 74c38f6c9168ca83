package main

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"n2t.dev/toolchain/pkg/jack"
	"n2t.dev/toolchain/pkg/vm"

	"github.com/teris-io/cli"
)

var Description = strings.ReplaceAll(`
The Jack Compiler compiles programs (composed of multiple classes/files) written in
the Jack language into VM modules that can be further elaborated by the VM Translator.
The Jack language is a higher-level OOP language tailored for use with the Hack computer
architecture; every source file holds exactly one class and compiles to one VM module.
`, "\n", " ")

var JackCompiler = cli.New(Description).
	// 'AsOptional()' allows to have more than one input .jack file, or a directory of them
	WithArg(cli.NewArg("inputs", "The source (.jack) files/directories to be compiled").
		AsOptional().WithType(cli.TypeString)).
	WithAction(Handler)

func Handler(args []string, options map[string]string) int {
	if len(args) < 1 {
		fmt.Printf("ERROR: Not enough arguments provided, use --help\n")
		return -1
	}

	// The aggregation of all the Translation Units (TUs) found during the input walk (just the paths)
	TUs := []string{}
	for _, input := range args {
		filepath.Walk(input, func(p string, info fs.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() || filepath.Ext(p) != ".jack" {
				return nil // We recurse on dirs and ignore other filetypes
			}

			TUs = append(TUs, p)
			return nil
		})
	}

	// The full program: one vm.Module per compiled class, keyed by its file name.
	program := vm.Program{}

	for _, tu := range TUs {
		content, err := os.ReadFile(tu)
		if err != nil {
			fmt.Printf("ERROR: Unable to open input file: %s\n", err)
			return -1
		}

		tokenizer := jack.NewTokenizer(content)
		tokens, err := tokenizer.Tokenize()
		if err != nil {
			fmt.Printf("ERROR: Unable to complete 'tokenizing' pass: %s\n", err)
			return -1
		}

		compiler := jack.NewCompiler(tokens)
		module, err := compiler.Compile()
		if err != nil {
			fmt.Printf("ERROR: Unable to complete 'compiling' pass: %s\n", err)
			return -1
		}

		// Removes root directory and file extension to use as module name
		filename, extension := path.Base(tu), path.Ext(tu)
		program[strings.TrimSuffix(filename, extension)] = module
	}

	// Converts the in-memory 'vm.Program' into its textual VM format, one line per operation.
	encoder := vm.NewEncoder(program)
	compiled, err := encoder.Encode()
	if err != nil {
		fmt.Printf("ERROR: Unable to complete 'codegen' pass: %s\n", err)
		return -1
	}

	for _, tu := range TUs {
		// Removes root directory and file extension to use as module name
		filename, extension := path.Base(tu), path.Ext(tu)
		module, ok := compiled[strings.TrimSuffix(filename, extension)]
		if !ok {
			fmt.Printf("ERROR: Unable to compile module for class file '%s'\n", tu)
			return -1
		}

		output, err := os.Create(fmt.Sprintf("%s.vm", strings.TrimSuffix(tu, extension)))
		if err != nil {
			fmt.Printf("ERROR: Unable to open output file: %s\n", err)
			return -1
		}
		defer output.Close()

		for _, line := range module {
			output.Write([]byte(fmt.Sprintf("%s\n", line)))
		}
	}

	return 0
}

func main() { os.Exit(JackCompiler.Run(os.Args, os.Stdout)) }

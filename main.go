package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dyms/vm"
)

func main() {
	stressGC := flag.Bool("stress-gc", false, "collect garbage before every allocation")
	logGC := flag.Bool("log-gc", false, "log each collection to stderr")
	trace := flag.Bool("trace", false, "trace executed bytecode to stderr")
	flag.Parse()

	cfg := vm.Config{StressGC: *stressGC, LogGC: *logGC, Trace: *trace}
	machine := vm.NewVM(cfg)

	args := flag.Args()
	switch len(args) {
	case 0:
		repl(machine)
	case 1:
		runFile(machine, args[0])
	default:
		fmt.Fprintln(os.Stderr, "Usage: dyms [script]")
		os.Exit(64)
	}
}

func repl(machine *vm.VM) {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return
		}
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		if _, err := machine.Interpret(line); err != nil {
			// errors are already printed by Interpret; the REPL just keeps going.
			continue
		}
	}
}

func runFile(machine *vm.VM, filename string) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext != ".dy" && ext != ".dx" {
		fmt.Fprintf(os.Stderr, "Error: Only .dy and .dx files are supported (got %s)\n", ext)
		os.Exit(64)
	}

	source, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file: %v\n", err)
		os.Exit(74)
	}

	result, _ := machine.Interpret(string(source))
	switch result {
	case vm.InterpretCompileError:
		os.Exit(65)
	case vm.InterpretRuntimeError:
		os.Exit(70)
	}
}

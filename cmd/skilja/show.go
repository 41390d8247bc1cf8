package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ottar/skilja/grammar"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:     "show",
		Short:   "Display a compiled grammar in a readable form",
		Example: `  skilja show grammar.json`,
		Args:    cobra.ExactArgs(1),
		RunE:    runShow,
	}
	rootCmd.AddCommand(cmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	g, err := readCompiledGrammar(args[0])
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "root: %v\n", g.SymbolText(g.Root()))

	fmt.Fprintf(os.Stdout, "\nterminals:\n")
	for num := 1; num <= g.TerminalCount(); num++ {
		term := g.Terminal(num)
		fmt.Fprintf(os.Stdout, "  %4v  %v (%v)\n", num, g.SymbolText(grammar.Symbol(num)), term.Kind)
	}

	fmt.Fprintf(os.Stdout, "\nnonterminals:\n")
	for num := 1; num <= g.NonTerminalCount(); num++ {
		fmt.Fprintf(os.Stdout, "  %4v  %v\n", num, g.NonTerminalName(num))
	}

	fmt.Fprintf(os.Stdout, "\nproductions:\n")
	for num := 1; num <= g.ProductionCount(); num++ {
		prod := g.Production(num)
		fmt.Fprintf(os.Stdout, "  %4v  %v ->", num, g.SymbolText(prod.LHS))
		for _, sym := range prod.RHS {
			fmt.Fprintf(os.Stdout, " %v", g.SymbolText(sym))
		}
		if len(prod.RHS) == 0 {
			fmt.Fprintf(os.Stdout, " 0")
		}
		if prod.Priority != 0 {
			fmt.Fprintf(os.Stdout, "  (priority %v)", prod.Priority)
		}
		fmt.Fprintf(os.Stdout, "\n")
	}

	return nil
}

func readCompiledGrammar(path string) (*grammar.Grammar, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open the compiled grammar file %s: %w", path, err)
	}
	var cg grammar.CompiledGrammar
	err = json.Unmarshal(b, &cg)
	if err != nil {
		return nil, fmt.Errorf("cannot parse the compiled grammar file %s: %w", path, err)
	}
	return grammar.FromCompiled(&cg)
}

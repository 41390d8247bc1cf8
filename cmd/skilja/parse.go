package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ottar/skilja/grammar"
	"github.com/ottar/skilja/parser"
	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"
)

var parseFlags = struct {
	source       *string
	forest       *bool
	combinations *bool
}{}

func init() {
	cmd := &cobra.Command{
		Use:     "parse <compiled grammar>",
		Short:   "Parse a whitespace-tokenized sentence and print its best derivation",
		Example: `  echo -n 'a b' | skilja parse grammar.json`,
		Args:    cobra.ExactArgs(1),
		RunE:    runParse,
	}
	parseFlags.source = cmd.Flags().StringP("source", "s", "", "source file path (default stdin)")
	parseFlags.forest = cmd.Flags().Bool("forest", false, "when specified, print the packed forest")
	parseFlags.combinations = cmd.Flags().Bool("combinations", false, "when specified, print the ambiguity count")
	rootCmd.AddCommand(cmd)
}

func runParse(cmd *cobra.Command, args []string) error {
	g, err := readCompiledGrammar(args[0])
	if err != nil {
		return err
	}

	var src io.Reader = os.Stdin
	if *parseFlags.source != "" {
		f, err := os.Open(*parseFlags.source)
		if err != nil {
			return fmt.Errorf("cannot open the source file %s: %w", *parseFlags.source, err)
		}
		defer f.Close()
		src = f
	}
	b, err := io.ReadAll(src)
	if err != nil {
		return err
	}
	tokens := strings.Fields(string(b))

	var meter parser.Meter
	p := parser.New(g, parser.WithMeter(&meter))
	root, err := p.Parse(len(tokens), g.Root(), &textTokenReader{
		g:      g,
		tokens: tokens,
	})
	if err != nil {
		var pErr *parser.ParseError
		if errors.As(err, &pErr) {
			if pErr.TokenIndex < len(tokens) {
				return fmt.Errorf("syntax error at token %v: %v", pErr.TokenIndex, tokens[pErr.TokenIndex])
			}
			return fmt.Errorf("syntax error: the input ends before a full derivation")
		}
		return err
	}
	defer root.Free()

	logger := commonlog.GetLogger("parse")
	logger.Debugf("%v forest nodes, %v families", meter.Nodes, meter.Families)

	if *parseFlags.combinations {
		c := parser.Combinations(root)
		if c == parser.CombinationsMax {
			fmt.Fprintf(os.Stdout, "combinations: too many to count\n")
		} else {
			fmt.Fprintf(os.Stdout, "combinations: %v\n", c)
		}
	}
	if *parseFlags.forest {
		parser.PrintForest(os.Stdout, g, root)
		fmt.Fprintf(os.Stdout, "\n")
	}

	tree, score := parser.Reduce(root)
	parser.PrintTree(os.Stdout, g, tree)
	logger.Debugf("score: %v", score)

	return nil
}

// textTokenReader is the trivial host: a terminal matches a token when its
// text equals the token, case-folded except for "exact" terminals.
type textTokenReader struct {
	g      *grammar.Grammar
	tokens []string
}

func (r *textTokenReader) Matches(tokenIndex int, terminal grammar.Symbol) bool {
	term := r.g.Terminal(terminal.TerminalNum())
	if term == nil {
		return false
	}
	if term.Kind == grammar.TerminalKindExact {
		return term.Text == r.tokens[tokenIndex]
	}
	return strings.EqualFold(term.Text, r.tokens[tokenIndex])
}

func (r *textTokenReader) Allocate(tokenIndex, size int) []byte {
	return make([]byte, size)
}

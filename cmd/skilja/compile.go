package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	verr "github.com/ottar/skilja/error"
	"github.com/ottar/skilja/grammar"
	"github.com/ottar/skilja/spec"
	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"
)

var compileFlags = struct {
	output *string
}{}

func init() {
	cmd := &cobra.Command{
		Use:     "compile",
		Short:   "Compile a grammar into its portable JSON form",
		Example: `  skilja compile grammar.skilja -o grammar.json`,
		Args:    cobra.MaximumNArgs(1),
		RunE:    runCompile,
	}
	compileFlags.output = cmd.Flags().StringP("output", "o", "", "output file path (default stdout)")
	rootCmd.AddCommand(cmd)
}

func runCompile(cmd *cobra.Command, args []string) (retErr error) {
	var grmPath string
	if len(args) > 0 {
		grmPath = args[0]
	}
	defer func() {
		if retErr == nil {
			return
		}
		var gErr *verr.GrammarError
		if errors.As(retErr, &gErr) {
			if grmPath != "" {
				gErr.FilePath = grmPath
				gErr.SourceName = grmPath
			} else {
				gErr.SourceName = "stdin"
			}
		}
	}()

	g, err := readGrammar(grmPath)
	if err != nil {
		return err
	}

	logger := commonlog.GetLogger("compile")
	logger.Debugf("%v terminals, %v nonterminals, %v productions",
		g.TerminalCount(), g.NonTerminalCount(), g.ProductionCount())

	var w io.Writer = os.Stdout
	if *compileFlags.output != "" {
		f, err := os.OpenFile(*compileFlags.output, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			return fmt.Errorf("cannot write the output file: %w", err)
		}
		defer f.Close()
		w = f
	}
	b, err := json.Marshal(g.Compiled())
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%v\n", string(b))

	return nil
}

func readGrammar(path string) (*grammar.Grammar, error) {
	var src io.Reader = os.Stdin
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("cannot open the grammar file %s: %w", path, err)
		}
		defer f.Close()
		src = f
	}

	ast, err := spec.Parse(src)
	if err != nil {
		return nil, err
	}
	return grammar.Compile(ast)
}

package main

import (
	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"

	_ "github.com/tliron/commonlog/simple"
)

var rootFlags = struct {
	verbosity *int
}{}

var rootCmd = &cobra.Command{
	Use:   "skilja",
	Short: "Parse token sequences with an ambiguity-preserving Earley parser",
	Long: `skilja compiles priority-annotated context-free grammars and parses tokenized
sentences into a shared packed parse forest, then deterministically picks the
best derivation.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		commonlog.Configure(*rootFlags.verbosity, nil)
	},
}

func init() {
	rootFlags.verbosity = rootCmd.PersistentFlags().CountP("verbose", "v", "increase log verbosity")
}

func Execute() error {
	return rootCmd.Execute()
}

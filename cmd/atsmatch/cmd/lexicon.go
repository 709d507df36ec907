package cmd

import (
	"fmt"

	"ats-match-go/internal/lexicon"

	"github.com/spf13/cobra"
)

var lexiconCmd = &cobra.Command{
	Use:   "lexicon",
	Short: "Inspect the keyword lexicon",
}

var lexiconCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate stop-word, synonym and resource files",
	Long:  "Loads the lexicon files named in the config (built-in data when unset) and reports any problem.",
	RunE:  runLexiconCheck,
}

func runLexiconCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	lex, err := lexicon.Load(lexicon.Files{
		StopwordsFile: cfg.Lexicon.StopwordsFile,
		SynonymsFile:  cfg.Lexicon.SynonymsFile,
		ResourcesFile: cfg.Lexicon.ResourcesFile,
	})
	if err != nil {
		return err
	}
	stop, groups, resources := lex.Stats()
	fmt.Fprintf(cmd.OutOrStdout(), "lexicon OK: %d stop words, %d synonym groups, %d resource entries\n", stop, groups, resources)
	return nil
}

func init() {
	lexiconCmd.AddCommand(lexiconCheckCmd)
}

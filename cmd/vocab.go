package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/outreach-cli/internal/config"
	"github.com/sells-group/outreach-cli/internal/vocab"
)

var vocabFile string

var vocabCmd = &cobra.Command{
	Use:   "vocab",
	Short: "Print the category vocabulary as YAML",
	Long: `Prints the keyword vocabulary used for classification. Without --file
this is classify.vocabulary_path, or the built-in vocabulary when unset.
The output is a valid vocabulary file and can be edited and passed back.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		src := cfg.Classify
		if vocabFile != "" {
			src = config.ClassifyConfig{VocabularyPath: vocabFile}
		}
		v, err := loadVocabulary(src)
		if err != nil {
			return err
		}
		return printVocabulary(cmd, v)
	},
}

func init() {
	vocabCmd.Flags().StringVar(&vocabFile, "file", "", "validate and print this vocabulary file instead")
	rootCmd.AddCommand(vocabCmd)
}

func printVocabulary(cmd *cobra.Command, v *vocab.Vocabulary) error {
	out, err := v.Marshal()
	if err != nil {
		return err
	}
	if _, err := cmd.OutOrStdout().Write(out); err != nil {
		return eris.Wrap(err, "vocab: write")
	}
	return nil
}

package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/pipeline"
)

var (
	pitchJSON    bool
	pitchOffline bool
)

var pitchCmd = &cobra.Command{
	Use:   "pitch <company>",
	Short: "Draft an outreach message for one company",
	Long: `Runs a single company (domain or URL) through the pipeline and prints
the message. A site that cannot be fetched still gets a template message.

Examples:
  outreach-cli pitch acme.com
  outreach-cli pitch https://www.acme.com/about --json
  outreach-cli pitch swiggy.com --offline`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initPipeline(cfg, pitchOffline, pipeline.Options{})
		if err != nil {
			return eris.Wrap(err, "pitch: init pipeline")
		}

		item := env.Pipeline.Process(cmd.Context(), model.ParseReference(args[0]))
		return writePitch(cmd.OutOrStdout(), item, pitchJSON)
	},
}

func init() {
	pitchCmd.Flags().BoolVar(&pitchJSON, "json", false, "print the full item result as JSON")
	pitchCmd.Flags().BoolVar(&pitchOffline, "offline", false, "skip the language model and use template messages")
	rootCmd.AddCommand(pitchCmd)
}

// writePitch prints item. A failed item is reported as an error after the
// output is written.
func writePitch(w io.Writer, item model.BatchItemResult, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(item); err != nil {
			return eris.Wrap(err, "pitch: encode result")
		}
	} else if item.Message != nil {
		fmt.Fprintf(w, "Company:  %s\n", item.Input)
		fmt.Fprintf(w, "Category: %s\n", item.Category())
		fmt.Fprintf(w, "Status:   %s\n", item.Status)
		if item.Reason != "" {
			fmt.Fprintf(w, "Note:     %s\n", item.Reason)
		}
		fmt.Fprintf(w, "\n%s\n", item.Message.Body)
	}

	if item.Status == model.ItemStatusFailed {
		return eris.Errorf("pitch: %s: %s", item.Input, item.Reason)
	}
	return nil
}

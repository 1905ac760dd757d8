package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/export"
	"github.com/sells-group/outreach-cli/internal/intake"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/pipeline"
)

const defaultBatchOutput = "outreach_leads.csv"

var (
	batchInput       string
	batchCompanies   string
	batchOutput      string
	batchFormat      string
	batchConcurrency int
	batchLimit       int
	batchOffline     bool
	batchDedupe      bool
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Draft outreach messages for a list of companies",
	Long: `Reads companies from a file (--input: CSV, TSV, XLSX or one per line)
or a comma-separated list (--companies), runs each through the pipeline and
exports one row per company. Interrupting the run exports what finished.

Examples:
  outreach-cli batch --companies "zomato.com, swiggy.com, zeptonow.com"
  outreach-cli batch --input leads.xlsx --output leads.xlsx --concurrency 4
  outreach-cli batch --input leads.csv --offline --format json --output leads.json`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		inputs, err := readBatchInputs()
		if err != nil {
			return err
		}
		if len(inputs) == 0 {
			return eris.New("batch: no companies given (use --input or --companies)")
		}

		format, err := export.ParseFormat(batchFormat, batchOutput)
		if err != nil {
			return err
		}

		concurrency := batchConcurrency
		if concurrency <= 0 {
			concurrency = cfg.Batch.MaxConcurrent
		}

		env, err := initPipeline(cfg, batchOffline, pipeline.Options{
			Concurrency: concurrency,
			OnItem:      logProgress,
		})
		if err != nil {
			return eris.Wrap(err, "batch: init pipeline")
		}

		report := runBatch(ctx, env.Pipeline, inputs)

		if err := export.WriteFile(batchOutput, format, report); err != nil {
			return eris.Wrap(err, "batch: export results")
		}

		sum := report.Summary()
		zap.L().Info("batch: results written",
			zap.String("output", batchOutput),
			zap.String("format", string(format)),
			zap.Int("total", sum.Total),
			zap.Int("ok", sum.OK),
			zap.Int("degraded", sum.Degraded),
			zap.Int("failed", sum.Failed),
			zap.Bool("cancelled", report.Cancelled),
		)
		if report.Cancelled {
			return eris.Errorf("batch: interrupted after %d of %d companies", sum.Total, len(inputs))
		}
		return nil
	},
}

func init() {
	f := batchCmd.Flags()
	f.StringVarP(&batchInput, "input", "i", "", "file of companies: .csv, .tsv, .xlsx or one per line")
	f.StringVar(&batchCompanies, "companies", "", "comma-separated companies (domains or URLs)")
	f.StringVarP(&batchOutput, "output", "o", defaultBatchOutput, "output file")
	f.StringVar(&batchFormat, "format", "", "output format: csv, xlsx or json (default from --output extension)")
	f.IntVar(&batchConcurrency, "concurrency", 0, "companies processed at once (default batch.max_concurrent)")
	f.IntVar(&batchLimit, "limit", 0, "process at most this many companies (0 = all)")
	f.BoolVar(&batchOffline, "offline", false, "skip the language model and use template messages")
	f.BoolVar(&batchDedupe, "dedupe", false, "drop repeated companies, keeping the first")
	rootCmd.AddCommand(batchCmd)
}

// readBatchInputs merges --input and --companies, then applies --dedupe
// and --limit in that order.
func readBatchInputs() ([]string, error) {
	var inputs []string
	if batchInput != "" {
		fromFile, err := intake.ReadFile(batchInput)
		if err != nil {
			return nil, eris.Wrap(err, "batch: read input")
		}
		inputs = append(inputs, fromFile...)
	}
	inputs = append(inputs, intake.ParseList(batchCompanies)...)

	if batchDedupe {
		inputs = intake.Dedupe(inputs)
	}
	if batchLimit > 0 && batchLimit < len(inputs) {
		inputs = inputs[:batchLimit]
	}
	return inputs, nil
}

func runBatch(ctx context.Context, p *pipeline.Pipeline, inputs []string) *model.BatchReport {
	return p.Run(ctx, model.ParseReferences(inputs))
}

func logProgress(done, total int, item model.BatchItemResult) {
	zap.L().Info("batch: progress",
		zap.Int("done", done),
		zap.Int("total", total),
		zap.String("company", item.Input),
		zap.String("status", string(item.Status)),
		zap.String("category", string(item.Category())),
	)
}

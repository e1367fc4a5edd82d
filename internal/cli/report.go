package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/daryltucker/forest-bench/internal/config"
	"github.com/daryltucker/forest-bench/internal/engine"
	"github.com/daryltucker/forest-bench/internal/model"
	"github.com/daryltucker/forest-bench/internal/output"
)

var (
	reportRunID  string
	reportLatest bool
)

var reportCmd = &cobra.Command{
	Use:   "report [results.jsonl]",
	Short: "Print the summary table of a previous run",
	Long: `Reads a JSON Lines results file and prints it as a table.
Without an argument the file next to the configured CSV output is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) == 1 {
			path = args[0]
		} else {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			path = engine.JSONPath(cfg)
		}

		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open results: %w", err)
		}
		defer f.Close()

		records, err := output.ReadRecords(f)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		runID := reportRunID
		if runID == "" && reportLatest {
			runID = latestRunID(records)
		}
		if runID != "" {
			records = filterRun(records, runID)
		}
		if len(records) == 0 {
			return fmt.Errorf("no records in %s", path)
		}

		fmt.Fprintln(cmd.OutOrStdout(), output.RenderTable(records))
		return nil
	},
}

func latestRunID(records []model.Record) string {
	var latest model.Record
	for i, r := range records {
		if i == 0 || r.Timestamp.After(latest.Timestamp) {
			latest = r
		}
	}
	return latest.RunID
}

func filterRun(records []model.Record, runID string) []model.Record {
	var out []model.Record
	for _, r := range records {
		if r.RunID == runID {
			out = append(out, r)
		}
	}
	return out
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringVar(&reportRunID, "run-id", "", "Only show records of this run")
	reportCmd.Flags().BoolVar(&reportLatest, "latest", false, "Only show records of the most recent run")
}

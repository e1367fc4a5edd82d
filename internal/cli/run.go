/*
PURPOSE:
  Defines the 'run' subcommand.
  Executes the benchmark suite and prints a summary table.

REQUIREMENTS:
  User-specified:
  - Run the benchmarks.
  - specific flags for overrides.

  Implementation-discovered:
  - Need to load config first.
  - Apply flag overrides to config.
  - The table is printed even when the suite is interrupted.

ARCHITECTURE INTEGRATION:
  - Calls: internal/engine.Run()
  - Uses: internal/config, internal/output

ERROR HANDLING:
  - Returns error if config load fails or engine run fails.
  - Aborted benchmarks only fail the command with --strict.

IMPLEMENTATION RULES:
  - Setup flags in init().
  - Logic: Load Config -> Override -> Engine.Run -> Table.

USAGE:
  forest-bench run --only sort -o ./results

SELF-HEALING INSTRUCTIONS:
  - Check flag names match Config struct fields generally.

RELATED FILES:
  - internal/cli/root.go

MAINTENANCE:
  - Update when adding new CLI overrides.
*/

package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/daryltucker/forest-bench/internal/config"
	"github.com/daryltucker/forest-bench/internal/engine"
	"github.com/daryltucker/forest-bench/internal/output"
)

// ErrBenchmarksAborted is returned by `run --strict` when any benchmark aborted.
var ErrBenchmarksAborted = errors.New("benchmarks aborted")

var (
	outputOverride string
	onlyOverride   []string
	targetOverride string
	strictRun      bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the benchmark suite",
	Long: `Executes every benchmark of the suite file, one run per sweep value.
Each run follows a strict protocol:
1. Warmup: the routine is invoked until the warmup thresholds are met; nothing is recorded.
2. Measurement: invocations continue until the measurement thresholds are met; every
   reported duration becomes a sample.
3. Summary: samples are reduced to min/max/mean/median/quartiles/variance.

A routine that cannot measure aborts its run; the partial summary is kept and
the suite moves on. Results are written to CSV and JSON Lines in the output directory.`,
	Example: `  # Run with defaults (uses forest_bench.yaml)
  forest-bench run

  # Run only specific benchmarks, writing to another directory
  forest-bench run --only sort,alloc -o ./benchmarks

  # Point http-probe benchmarks at another server
  forest-bench run --target-url http://staging:8080/healthz

  # Fail (exit 1) if any benchmark aborted
  forest-bench run --strict`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// 1. Load Config
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		// 2. Overrides
		if outputOverride != "" {
			cfg.OutputDir = outputOverride
		}
		if targetOverride != "" {
			cfg.Target.URL = targetOverride
		}

		// 3. Execution
		records, runErr := engine.Run(cmd.Context(), cfg, engine.RunOptions{Only: onlyOverride})
		if len(records) > 0 {
			fmt.Fprintln(cmd.OutOrStdout(), output.RenderTable(records))
		}
		if runErr != nil {
			return runErr
		}

		if strictRun {
			aborted := 0
			for _, r := range records {
				if r.Error != "" {
					aborted++
				}
			}
			if aborted > 0 {
				return fmt.Errorf("%d of %d: %w", aborted, len(records), ErrBenchmarksAborted)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&outputOverride, "output-dir", "o", "", "Output directory for results (CSV/JSON)")
	runCmd.Flags().StringSliceVar(&onlyOverride, "only", nil, "Comma-separated list of benchmark names to run")
	runCmd.Flags().StringVar(&targetOverride, "target-url", "", "URL for http-probe benchmarks (overrides config)")
	runCmd.Flags().BoolVar(&strictRun, "strict", false, "Exit non-zero if any benchmark aborted")
}

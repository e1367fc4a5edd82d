/*
PURPOSE:
  Defines the root Cobra command for the Forest Bench CLI.
  Handles global flags and command initialization.

REQUIREMENTS:
  User-specified:
  - Provide a CLI interface.
  - Support global flags like --config.

  Implementation-discovered:
  - Needs to expose an ExecuteContext() function for main.go.
  - Logs go to stderr so the results table on stdout can be piped.

ARCHITECTURE INTEGRATION:
  - Called by: cmd/forest-bench/main.go
  - Calls: Child commands (run, report, list-routines, functions)
  - Modifies: output.Logger (level and format).

ERROR HANDLING:
  - Returns error to main.go for exit code handling.

IMPLEMENTATION RULES:
  - Use `PersistentFlags()` for flags available to all subcommands.
  - Keep Run logic in subcommands, Root is usually empty or helps.

USAGE:
  Called by main.go.

SELF-HEALING INSTRUCTIONS:
  - If adding new global flags, add them to init().

RELATED FILES:
  - cmd/forest-bench/main.go
  - internal/output/logger.go

MAINTENANCE:
  - Update when adding global configuration options.
*/

package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/daryltucker/forest-bench/internal/output"
)

var (
	// cfgFile stores the path to the config file (if specified via flag)
	cfgFile  string
	logLevel string
	logJSON  bool

	rootCmd = &cobra.Command{
		Use:   "forest-bench",
		Short: "Micro-benchmark harness with warmup, measurement and summary statistics",
		Long: `Runs a suite of benchmarks declared in a YAML file. Each benchmark warms up,
measures until its duration and iteration thresholds are met, and is reduced to
min/max/mean/median/quartiles/variance. Use 'run --help' for benchmark options.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return output.Configure(cmd.ErrOrStderr(), logLevel, logJSON)
		},
	}
)

// ExecuteContext executes the root command; cancelling ctx stops a running suite
// between benchmarks.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./forest_bench.yaml, then ./bench.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "emit logs as JSON")
}

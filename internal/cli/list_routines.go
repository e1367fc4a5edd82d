/*
PURPOSE:
  Defines the 'list-routines' subcommand.
  Shows which routine names a suite file may use.

ARCHITECTURE INTEGRATION:
  - Calls: internal/engine.Routines()

USAGE:
  forest-bench list-routines
*/

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/daryltucker/forest-bench/internal/config"
	"github.com/daryltucker/forest-bench/internal/engine"
)

var listRoutinesCmd = &cobra.Command{
	Use:   "list-routines",
	Short: "List routines available to benchmarks",
	RunE: func(cmd *cobra.Command, args []string) error {
		e := engine.New(config.DefaultConfig())
		for _, r := range e.Routines() {
			fmt.Fprintf(cmd.OutOrStdout(), "%-18s %s\n", r.Name, r.Description)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listRoutinesCmd)
}

package cli

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/daryltucker/forest-bench/internal/assets"
	"github.com/daryltucker/forest-bench/internal/output"
)

var functionsDir string

var functionsCmd = &cobra.Command{
	Use:   "functions",
	Short: "Manage JQ functions for result analysis",
}

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install JQ helpers for bench_results.jsonl to ~/.config/vecq/functions/",
	RunE: func(cmd *cobra.Command, args []string) error {
		targetDir := functionsDir
		if targetDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return fmt.Errorf("failed to get user home directory: %w", err)
			}
			targetDir = filepath.Join(home, ".config", "vecq", "functions")
		}
		output.Logger.Info("Installing JQ functions...", "target", targetDir)

		if err := os.MkdirAll(targetDir, 0755); err != nil {
			return fmt.Errorf("failed to create target directory %s: %w", targetDir, err)
		}

		entries, err := fs.ReadDir(assets.Functions, assets.FunctionsDir)
		if err != nil {
			return fmt.Errorf("failed to read embedded functions: %w", err)
		}

		count := 0
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}

			content, err := fs.ReadFile(assets.Functions, assets.FunctionsDir+"/"+entry.Name())
			if err != nil {
				output.Logger.Error("Failed to read embedded file", "file", entry.Name(), "error", err)
				continue
			}

			targetPath := filepath.Join(targetDir, entry.Name())
			if err := os.WriteFile(targetPath, content, 0644); err != nil {
				output.Logger.Error("Failed to write to target", "path", targetPath, "error", err)
				continue
			}

			output.Logger.Info("Installed function", "name", entry.Name())
			count++
		}

		if count == 0 {
			return fmt.Errorf("no functions installed to %s", targetDir)
		}
		output.Logger.Info("Installation Complete", "total_files", count)
		return nil
	},
}

func init() {
	installCmd.Flags().StringVar(&functionsDir, "dir", "", "Target directory (default ~/.config/vecq/functions)")
	functionsCmd.AddCommand(installCmd)
	rootCmd.AddCommand(functionsCmd)
}

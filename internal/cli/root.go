// Package cli implements the rerankd command line interface.
package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "rerankd",
	Short: "Local reranker API service",
	Long: `rerankd serves a Jina-compatible document reranking API backed by a
local pretrained-model runtime.

Example usage:
  rerankd serve                      # Serve with the default backend
  rerankd serve --backend mlx        # Serve with the Apple Silicon runtime
  rerankd config show                # Show the effective configuration`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

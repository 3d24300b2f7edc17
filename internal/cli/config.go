package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/king-dopey/local-reranker/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration and available backends",
	RunE:  runConfigShow,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	model, err := cfg.EffectiveModel()
	if err != nil {
		model = fmt.Sprintf("(none: %v)", err)
	}

	fmt.Println("Current Configuration:")
	fmt.Printf("  Backend: %s\n", cfg.Backend)
	fmt.Printf("  Model: %s\n", model)
	fmt.Printf("  Host: %s\n", cfg.Host)
	fmt.Printf("  Port: %d\n", cfg.Port)
	fmt.Printf("  Log Level: %s\n", cfg.LogLevel)
	fmt.Printf("  Reload: %t\n", cfg.Reload)
	fmt.Println()
	fmt.Println("Available Backends:")
	for _, name := range config.AvailableBackends() {
		marker := ""
		if name == cfg.Backend {
			marker = " (current)"
		}
		fmt.Printf("  %s: %s%s\n", name, config.BackendDescriptions[name], marker)
	}
	return nil
}

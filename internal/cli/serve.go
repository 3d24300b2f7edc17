package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/king-dopey/local-reranker/internal/config"
	"github.com/king-dopey/local-reranker/internal/reranker"
	"github.com/king-dopey/local-reranker/internal/scorer"
	"github.com/king-dopey/local-reranker/internal/server"
)

var (
	serveBackend  string
	serveModel    string
	serveHost     string
	servePort     int
	serveLogLevel string
	serveReload   bool
	serveAPIKey   string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the reranker API server",
	Long: `Run the reranker API server.

Configuration is read from RERANKER_* environment variables (and a .env file
if present); flags override the environment.

Examples:
  rerankd serve
  rerankd serve --backend mlx --port 8010
  rerankd serve --model jinaai/jina-reranker-v2-base-multilingual`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveBackend, "backend", "", "scoring backend to use (tei, mlx)")
	serveCmd.Flags().StringVar(&serveModel, "model", "", "model name (overrides the backend default)")
	serveCmd.Flags().StringVar(&serveHost, "host", "", "host to bind the server to")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "port to bind the server to")
	serveCmd.Flags().StringVar(&serveLogLevel, "log-level", "", "log level (debug, info, warn, error)")
	serveCmd.Flags().BoolVar(&serveReload, "reload", false, "development mode: debug logging and pprof under /debug")
	serveCmd.Flags().StringVar(&serveAPIKey, "api-key", "", "require this API key on the rerank endpoint")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyServeFlags(cmd, cfg)

	if cfg.Reload {
		cfg.LogLevel = "debug"
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	slog.Info("starting reranker service",
		"backend", cfg.Backend,
		"host", cfg.Host,
		"port", cfg.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// A failed provider load leaves the service running but not ready: the
	// rerank endpoint answers 503 while /health stays reachable.
	var rr *reranker.Reranker
	sc, err := scorer.Open(ctx, cfg)
	if err != nil {
		slog.Error("could not load scoring backend, serving in not-ready state", "error", err)
	} else {
		rr = reranker.New(sc)
		slog.Info("scoring backend loaded", "backend", cfg.Backend, "model", sc.ModelName())
	}

	srv := server.New(server.Config{
		Host:           cfg.Host,
		Port:           cfg.Port,
		Logger:         logger,
		APIKey:         cfg.APIKey,
		EnableProfiler: cfg.Reload,
	}, rr)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		slog.Info("received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown HTTP server", "error", err)
		return err
	}

	slog.Info("server stopped")
	return nil
}

// applyServeFlags overrides env-derived config with explicitly set flags.
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("backend") {
		cfg.Backend = serveBackend
	}
	if cmd.Flags().Changed("model") {
		cfg.Model = serveModel
	}
	if cmd.Flags().Changed("host") {
		cfg.Host = serveHost
	}
	if cmd.Flags().Changed("port") {
		cfg.Port = servePort
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = serveLogLevel
	}
	if cmd.Flags().Changed("reload") {
		cfg.Reload = serveReload
	}
	if cmd.Flags().Changed("api-key") {
		cfg.APIKey = serveAPIKey
	}
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Package config loads configuration from environment variables and .env files.
package config

import (
	"fmt"
	"sort"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the reranker service.
type Config struct {
	// Backend selection
	Backend string `env:"BACKEND" envDefault:"tei"`
	Model   string `env:"MODEL"`  // empty = use backend default
	Device  string `env:"DEVICE"` // advisory hint, providers may ignore it

	// Server
	Host     string `env:"HOST" envDefault:"0.0.0.0"`
	Port     int    `env:"PORT" envDefault:"8010"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	Reload   bool   `env:"RELOAD" envDefault:"false"`

	// Auth (optional, disabled when empty)
	APIKey string `env:"API_KEY"`

	// Runtime endpoints
	TEIEndpoint string `env:"TEI_ENDPOINT" envDefault:"http://localhost:8080"`
	MLXEndpoint string `env:"MLX_ENDPOINT" envDefault:"http://localhost:8011"`
}

// DefaultModels maps backend names to the model used when no override is set.
var DefaultModels = map[string]string{
	"tei": "jinaai/jina-reranker-v2-base-multilingual",
	"mlx": "jinaai/jina-reranker-v3-mlx",
}

// BackendDescriptions maps backend names to human-readable descriptions
// shown by "rerankd config show".
var BackendDescriptions = map[string]string{
	"tei": "Text-embeddings-inference / Infinity cross-encoder runtime",
	"mlx": "MLX runtime optimized for Apple Silicon (M1/M2/M3)",
}

// Load loads configuration from a .env file (if present) and environment
// variables with the RERANKER_ prefix.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: "RERANKER_"}); err != nil {
		return nil, err
	}
	return cfg, nil
}

// EffectiveModel returns the model the configured backend will serve: the
// explicit override if set, otherwise the backend's default.
func (c *Config) EffectiveModel() (string, error) {
	if c.Model != "" {
		return c.Model, nil
	}
	if m, ok := DefaultModels[c.Backend]; ok {
		return m, nil
	}
	return "", fmt.Errorf("no default model configured for backend: %s", c.Backend)
}

// AvailableBackends returns the registered backend names in sorted order.
func AvailableBackends() []string {
	names := make([]string, 0, len(BackendDescriptions))
	for name := range BackendDescriptions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

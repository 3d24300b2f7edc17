// Package scorer provides the scoring-provider contract and its backends.
//
// A Scorer turns a (query, documents) pair into one relevance score per
// document by delegating to an external pretrained-model runtime. Backends are
// registered by name and exactly one is opened at process startup; the chosen
// instance is shared read-only by all requests for the lifetime of the process.
package scorer

import (
	"context"
	"fmt"

	"github.com/king-dopey/local-reranker/internal/config"
)

// Scorer defines the interface for relevance-scoring backends.
type Scorer interface {
	// Score computes a relevance score for each document against the query.
	// The returned slice has the same length and order as docs: scores[i] is
	// the score of docs[i]. Higher means more relevant. Backends are free to
	// batch internally; Score blocks until all scores are available.
	Score(ctx context.Context, query string, docs []string) ([]float64, error)

	// ModelName returns the name of the model serving the scores.
	ModelName() string
}

// ConfigError indicates an invalid backend configuration: an unknown backend
// name, or a backend with neither a default model nor an override.
type ConfigError struct {
	Backend string
	Reason  string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("backend %q: %s", e.Backend, e.Reason)
}

// LoadError indicates that a known backend failed to initialize: the runtime
// is unreachable, the model is not loaded, or the hardware is unsupported.
type LoadError struct {
	Backend string
	Model   string
	Err     error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load backend %q (model %q): %v", e.Backend, e.Model, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// factory constructs a backend from the service configuration and the
// effective model name.
type factory func(ctx context.Context, cfg *config.Config, model string) (Scorer, error)

var registry = map[string]factory{
	"tei": func(ctx context.Context, cfg *config.Config, model string) (Scorer, error) {
		return NewTEIScorer(ctx, TEIConfig{
			Endpoint: cfg.TEIEndpoint,
			Model:    model,
			Device:   cfg.Device,
		})
	},
	"mlx": func(ctx context.Context, cfg *config.Config, model string) (Scorer, error) {
		// MLX auto-selects Apple Silicon hardware; the device hint is ignored.
		return NewMLXScorer(ctx, MLXConfig{
			Endpoint: cfg.MLXEndpoint,
			Model:    model,
		})
	},
}

// Open resolves the configured backend name to a registered factory and
// instantiates it. It returns a *ConfigError for an unknown backend or a
// missing default model, and a *LoadError when the backend itself fails to
// initialize.
func Open(ctx context.Context, cfg *config.Config) (Scorer, error) {
	f, ok := registry[cfg.Backend]
	if !ok {
		return nil, &ConfigError{Backend: cfg.Backend, Reason: "unknown backend"}
	}

	model, err := cfg.EffectiveModel()
	if err != nil {
		return nil, &ConfigError{Backend: cfg.Backend, Reason: "no default model and no override supplied"}
	}

	s, err := f(ctx, cfg, model)
	if err != nil {
		return nil, &LoadError{Backend: cfg.Backend, Model: model, Err: err}
	}
	return s, nil
}

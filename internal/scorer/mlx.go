package scorer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultMLXEndpoint is the default MLX runtime base URL.
	DefaultMLXEndpoint = "http://localhost:8011"

	// mlxRequestTimeout bounds a single scoring call against the runtime.
	mlxRequestTimeout = 2 * time.Minute
)

// MLXConfig holds configuration for the MLX scorer.
type MLXConfig struct {
	// Endpoint is the base URL of the MLX runtime (default: http://localhost:8011).
	Endpoint string

	// Model is the MLX reranker model the runtime is expected to serve.
	Model string

	// HTTPClient is an optional custom HTTP client.
	HTTPClient *http.Client
}

// MLXScorer scores query/document pairs against an Apple-Silicon MLX runtime
// that speaks the Jina-compatible /v1/rerank contract. The runtime returns
// results ranked by relevance; they are converted back into input order so
// the Scorer contract holds.
type MLXScorer struct {
	endpoint string
	model    string
	client   *http.Client
}

type mlxRerankRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
}

type mlxRerankResult struct {
	Index          int     `json:"index"`
	RelevanceScore float64 `json:"relevance_score"`
}

type mlxRerankResponse struct {
	Results []mlxRerankResult `json:"results"`
}

// NewMLXScorer creates an MLX scorer and probes the runtime's health endpoint.
func NewMLXScorer(ctx context.Context, cfg MLXConfig) (*MLXScorer, error) {
	endpoint := strings.TrimSuffix(cfg.Endpoint, "/")
	if endpoint == "" {
		endpoint = DefaultMLXEndpoint
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: mlxRequestTimeout}
	}

	s := &MLXScorer{
		endpoint: endpoint,
		model:    cfg.Model,
		client:   client,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"/health", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create health request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("runtime unreachable at %s: %w", s.endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("runtime unhealthy (status %d): %s", resp.StatusCode, string(body))
	}

	return s, nil
}

// Score computes one relevance score per document via the runtime's
// /v1/rerank API.
func (s *MLXScorer) Score(ctx context.Context, query string, docs []string) ([]float64, error) {
	if len(docs) == 0 {
		return []float64{}, nil
	}

	reqBody := mlxRerankRequest{
		Model:     s.model,
		Query:     query,
		Documents: docs,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := s.endpoint + "/v1/rerank"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("runtime error (status %d): %s", resp.StatusCode, string(body))
	}

	var rerankResp mlxRerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&rerankResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(rerankResp.Results) != len(docs) {
		return nil, fmt.Errorf("runtime returned %d scores for %d documents", len(rerankResp.Results), len(docs))
	}

	// The runtime ranks results; undo the ranking so scores line up with docs.
	scores := make([]float64, len(docs))
	seen := make([]bool, len(docs))
	for _, r := range rerankResp.Results {
		if r.Index < 0 || r.Index >= len(docs) || seen[r.Index] {
			return nil, fmt.Errorf("runtime returned invalid result index %d", r.Index)
		}
		scores[r.Index] = r.RelevanceScore
		seen[r.Index] = true
	}

	return scores, nil
}

// ModelName returns the name of the model serving the scores.
func (s *MLXScorer) ModelName() string {
	return s.model
}

// Ensure MLXScorer implements Scorer interface.
var _ Scorer = (*MLXScorer)(nil)

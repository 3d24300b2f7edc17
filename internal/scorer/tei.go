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
	// DefaultTEIEndpoint is the default text-embeddings-inference base URL.
	DefaultTEIEndpoint = "http://localhost:8080"

	// teiRequestTimeout bounds a single scoring call against the runtime.
	teiRequestTimeout = 2 * time.Minute
)

// TEIConfig holds configuration for the TEI scorer.
type TEIConfig struct {
	// Endpoint is the base URL of the runtime (default: http://localhost:8080).
	Endpoint string

	// Model is the cross-encoder model the runtime is expected to serve.
	Model string

	// Device is an advisory placement hint. TEI selects hardware server-side,
	// so the hint is recorded but not transmitted.
	Device string

	// HTTPClient is an optional custom HTTP client.
	HTTPClient *http.Client
}

// TEIScorer scores query/document pairs against a self-hosted
// text-embeddings-inference (or Infinity) rerank endpoint.
type TEIScorer struct {
	endpoint string
	model    string
	device   string
	client   *http.Client
}

// teiRerankRequest is the request body for the runtime's /rerank API.
type teiRerankRequest struct {
	Query string   `json:"query"`
	Texts []string `json:"texts"`
}

// teiRerankResult is one entry of the runtime's /rerank response array.
type teiRerankResult struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

// NewTEIScorer creates a TEI scorer and probes the runtime's health endpoint.
// An unreachable or unhealthy runtime is an initialization failure.
func NewTEIScorer(ctx context.Context, cfg TEIConfig) (*TEIScorer, error) {
	endpoint := strings.TrimSuffix(cfg.Endpoint, "/")
	if endpoint == "" {
		endpoint = DefaultTEIEndpoint
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: teiRequestTimeout}
	}

	s := &TEIScorer{
		endpoint: endpoint,
		model:    cfg.Model,
		device:   cfg.Device,
		client:   client,
	}

	if err := s.probe(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// probe checks that the runtime is up before the scorer is put in service.
func (s *TEIScorer) probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create health request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("runtime unreachable at %s: %w", s.endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("runtime unhealthy (status %d): %s", resp.StatusCode, string(body))
	}
	return nil
}

// Score computes one relevance score per document via the runtime's /rerank
// API. The runtime returns results keyed by input index; they are mapped back
// into input order here so scores[i] always corresponds to docs[i].
func (s *TEIScorer) Score(ctx context.Context, query string, docs []string) ([]float64, error) {
	if len(docs) == 0 {
		return []float64{}, nil
	}

	reqBody := teiRerankRequest{
		Query: query,
		Texts: docs,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := s.endpoint + "/rerank"
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

	var results []teiRerankResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(results) != len(docs) {
		return nil, fmt.Errorf("runtime returned %d scores for %d documents", len(results), len(docs))
	}

	scores := make([]float64, len(docs))
	seen := make([]bool, len(docs))
	for _, r := range results {
		if r.Index < 0 || r.Index >= len(docs) || seen[r.Index] {
			return nil, fmt.Errorf("runtime returned invalid result index %d", r.Index)
		}
		scores[r.Index] = r.Score
		seen[r.Index] = true
	}

	return scores, nil
}

// ModelName returns the name of the model serving the scores.
func (s *TEIScorer) ModelName() string {
	return s.model
}

// Ensure TEIScorer implements Scorer interface.
var _ Scorer = (*TEIScorer)(nil)

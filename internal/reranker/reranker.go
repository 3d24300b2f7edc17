// Package reranker provides the rerank request/response model and the
// orchestrator that turns provider scores into ordered results.
//
// The orchestrator owns the deterministic result-assembly policy: skipping
// documents with no text, re-pairing scores with original input positions,
// stable sorting by score, top_n truncation, and optional attachment of the
// original document text. Scoring itself is delegated to an injected
// scorer.Scorer and treated as opaque.
package reranker

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/king-dopey/local-reranker/internal/scorer"
)

// Document is one candidate in a rerank request: either a plain JSON string
// or an object carrying at least a "text" field.
type Document struct {
	Text string
}

// UnmarshalJSON accepts the string form and the {"text": ...} object form.
// Any other shape is a validation error for the whole request.
func (d *Document) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		d.Text = s
		return nil
	}

	var obj struct {
		Text *string `json:"text"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return &ValidationError{Reason: "document must be a string or an object with a text field"}
	}
	if obj.Text == nil {
		return &ValidationError{Reason: "document object is missing a text field"}
	}
	d.Text = *obj.Text
	return nil
}

// Request is a rerank request. Document order defines the canonical 0-based
// index reported in results, regardless of how results are sorted.
type Request struct {
	Query           string     `json:"query"`
	Documents       []Document `json:"documents"`
	TopN            *int       `json:"top_n,omitempty"`
	ReturnDocuments bool       `json:"return_documents,omitempty"`
}

// Validate checks request-level invariants that JSON decoding cannot.
func (r *Request) Validate() error {
	if strings.TrimSpace(r.Query) == "" {
		return &ValidationError{Reason: "query must not be empty"}
	}
	return nil
}

// DocumentText carries the original text of a document in a result.
type DocumentText struct {
	Text string `json:"text"`
}

// Result is a single reranked document with its relevance score. Document is
// populated only when the request asked for documents back.
type Result struct {
	Index          int           `json:"index"`
	RelevanceScore float64       `json:"relevance_score"`
	Document       *DocumentText `json:"document,omitempty"`
}

// Response is the body of a successful rerank call. ID is freshly generated
// per request.
type Response struct {
	ID      string   `json:"id"`
	Results []Result `json:"results"`
}

// ValidationError indicates a malformed request: a document with an
// unrecognized shape, or an empty query.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid request: " + e.Reason
}

// ScoringError indicates that the scoring provider failed during a request,
// either by returning an error or by violating its contract. It is local to
// one request and does not affect provider availability.
type ScoringError struct {
	Err error
}

func (e *ScoringError) Error() string {
	return fmt.Sprintf("scoring failed: %v", e.Err)
}

func (e *ScoringError) Unwrap() error {
	return e.Err
}

// Reranker orders documents by relevance to a query using an injected scorer.
type Reranker struct {
	scorer scorer.Scorer
}

// New creates a reranker backed by the given scorer.
func New(s scorer.Scorer) *Reranker {
	return &Reranker{scorer: s}
}

// ModelName returns the name of the underlying scoring model.
func (r *Reranker) ModelName() string {
	return r.scorer.ModelName()
}

// Rerank scores the request's documents against its query and returns them
// sorted by relevance score descending. Documents whose text is empty or
// whitespace-only are skipped without shifting the indices of the others.
// Ties keep the original input order.
func (r *Reranker) Rerank(ctx context.Context, req *Request) ([]Result, error) {
	if len(req.Documents) == 0 {
		return []Result{}, nil
	}

	// Drop empty documents but remember where the survivors came from.
	texts := make([]string, 0, len(req.Documents))
	indices := make([]int, 0, len(req.Documents))
	for i, doc := range req.Documents {
		if strings.TrimSpace(doc.Text) == "" {
			continue
		}
		texts = append(texts, doc.Text)
		indices = append(indices, i)
	}

	if len(texts) == 0 {
		return []Result{}, nil
	}

	scores, err := r.scorer.Score(ctx, req.Query, texts)
	if err != nil {
		return nil, &ScoringError{Err: err}
	}
	if len(scores) != len(texts) {
		return nil, &ScoringError{
			Err: fmt.Errorf("provider returned %d scores for %d documents", len(scores), len(texts)),
		}
	}

	results := make([]Result, len(texts))
	for i := range texts {
		results[i] = Result{
			Index:          indices[i],
			RelevanceScore: scores[i],
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].RelevanceScore > results[j].RelevanceScore
	})

	if req.TopN != nil {
		n := *req.TopN
		if n < 0 {
			n = 0
		}
		if n < len(results) {
			results = results[:n]
		}
	}

	if req.ReturnDocuments {
		for i := range results {
			results[i].Document = &DocumentText{Text: req.Documents[results[i].Index].Text}
		}
	}

	return results, nil
}

package scorer

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/king-dopey/local-reranker/internal/config"
)

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), &config.Config{Backend: "tensorflow"})
	if err == nil {
		t.Fatal("expected error for unknown backend")
	}
	var cerr *ConfigError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected ConfigError, got %T", err)
	}
	if cerr.Backend != "tensorflow" {
		t.Errorf("expected backend %q in error, got %q", "tensorflow", cerr.Backend)
	}
}

func TestOpen_LoadFailure(t *testing.T) {
	_, err := Open(context.Background(), &config.Config{
		Backend:     "tei",
		TEIEndpoint: "http://127.0.0.1:1",
	})
	if err == nil {
		t.Fatal("expected error for unreachable runtime")
	}
	var lerr *LoadError
	if !errors.As(err, &lerr) {
		t.Fatalf("expected LoadError, got %T", err)
	}
	if lerr.Model != config.DefaultModels["tei"] {
		t.Errorf("expected default model in error, got %q", lerr.Model)
	}
}

func TestOpen_TEI(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	s, err := Open(context.Background(), &config.Config{
		Backend:     "tei",
		TEIEndpoint: srv.URL,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.ModelName() != config.DefaultModels["tei"] {
		t.Errorf("expected default model, got %q", s.ModelName())
	}
}

func TestOpen_ModelOverride(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	s, err := Open(context.Background(), &config.Config{
		Backend:     "mlx",
		Model:       "custom/model",
		MLXEndpoint: srv.URL,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.ModelName() != "custom/model" {
		t.Errorf("expected overridden model, got %q", s.ModelName())
	}
}

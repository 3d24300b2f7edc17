package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func protected(key string) http.Handler {
	return RequireAPIKey(key)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func TestRequireAPIKey_Disabled(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	protected("").ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 with auth disabled, got %d", rec.Code)
	}
}

func TestRequireAPIKey(t *testing.T) {
	handler := protected("secret")

	tests := []struct {
		name   string
		header string
		value  string
		want   int
	}{
		{"missing key", "", "", http.StatusUnauthorized},
		{"wrong key", APIKeyHeader, "nope", http.StatusUnauthorized},
		{"valid key", APIKeyHeader, "secret", http.StatusOK},
		{"valid bearer", "Authorization", "Bearer secret", http.StatusOK},
		{"wrong bearer", "Authorization", "Bearer nope", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

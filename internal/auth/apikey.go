// Package auth provides API key authentication middleware for the HTTP server.
package auth

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
)

// APIKeyHeader is the header carrying the service API key.
const APIKeyHeader = "X-API-Key"

// RequireAPIKey returns middleware enforcing a static service API key on the
// wrapped routes. Clients may send the key in the X-API-Key header or as a
// bearer token. An empty configured key disables the check entirely.
func RequireAPIKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if key == "" {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := extractAPIKey(r)
			if got == "" {
				writeUnauthorized(w, "missing API key")
				return
			}
			if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				writeUnauthorized(w, "invalid API key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// extractAPIKey pulls the API key from the request headers.
func extractAPIKey(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get(APIKeyHeader)); v != "" {
		return v
	}
	if ah := r.Header.Get("Authorization"); strings.HasPrefix(ah, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(ah, "Bearer "))
	}
	return ""
}

func writeUnauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}

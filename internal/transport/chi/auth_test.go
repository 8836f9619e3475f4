package chi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	for name, keys := range map[string][]string{
		"nil keys":   nil,
		"blank keys": {"", ""},
	} {
		t.Run(name, func(t *testing.T) {
			handler := BearerAuthMiddleware(keys)(okHandler())

			req := httptest.NewRequest("POST", "/v1/rank/cities", http.NoBody)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != http.StatusOK {
				t.Errorf("expected %d, got %d", http.StatusOK, rr.Code)
			}
		})
	}
}

func TestAuthMiddleware_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		message string
	}{
		{"missing header", "", "missing authorization header"},
		{"basic scheme", "Basic dXNlcjpwYXNz", "authorization header must use Bearer scheme"},
		{"scheme only", "Bearer", "authorization header must use Bearer scheme"},
		{"unknown key", "Bearer wrong-key", "invalid api key"},
		{"empty token", "Bearer ", "invalid api key"},
		{"key prefix", "Bearer secre", "invalid api key"},
	}

	handler := BearerAuthMiddleware([]string{"secret"})(okHandler())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/v1/users/u1/dislikes", http.NoBody)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != http.StatusUnauthorized {
				t.Fatalf("expected %d, got %d", http.StatusUnauthorized, rr.Code)
			}
			var resp ErrorResponse
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatalf("decode error response: %v", err)
			}
			if resp.Code != codeUnauthorized {
				t.Errorf("expected code %q, got %q", codeUnauthorized, resp.Code)
			}
			if resp.Message != tt.message {
				t.Errorf("expected message %q, got %q", tt.message, resp.Message)
			}
		})
	}
}

func TestAuthMiddleware_AcceptsAnyConfiguredKey(t *testing.T) {
	handler := BearerAuthMiddleware([]string{"key1", "key2"})(okHandler())

	for _, header := range []string{"Bearer key1", "Bearer key2", "bearer key1", "BEARER  key2"} {
		req := httptest.NewRequest("POST", "/v1/rank/pois", http.NoBody)
		req.Header.Set("Authorization", header)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("%q: expected %d, got %d", header, http.StatusOK, rr.Code)
		}
	}
}

func TestAuthMiddleware_ExemptPaths(t *testing.T) {
	handler := BearerAuthMiddleware([]string{"secret"})(okHandler())

	for _, path := range []string{"/health", "/metrics"} {
		req := httptest.NewRequest("GET", path, http.NoBody)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("exempt path %s: expected %d, got %d", path, http.StatusOK, rr.Code)
		}
	}
}

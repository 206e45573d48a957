package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestRequestLoggerSetsRequestID(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	RequestLogger(okHandler()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestCORSWithOrigins(t *testing.T) {
	tests := []struct {
		name        string
		allowed     []string
		origin      string
		wantAllowed string
	}{
		{
			name:        "empty allowlist permits any origin",
			allowed:     nil,
			origin:      "https://example.com",
			wantAllowed: "*",
		},
		{
			name:        "allowed origin echoed back",
			allowed:     []string{"https://app.example.com"},
			origin:      "https://app.example.com",
			wantAllowed: "https://app.example.com",
		},
		{
			name:        "disallowed origin gets no header",
			allowed:     []string{"https://app.example.com"},
			origin:      "https://evil.example.com",
			wantAllowed: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/createToken", nil)
			req.Header.Set("Origin", tt.origin)

			CORSWithOrigins(tt.allowed)(okHandler()).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantAllowed, rec.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/api/createToken", nil)

	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })
	CORSWithOrigins(nil)(next).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, called, "preflight must not reach the handler")
}

func TestSessionFromContextMissing(t *testing.T) {
	assert.Nil(t, SessionFromContext(context.Background()))
}

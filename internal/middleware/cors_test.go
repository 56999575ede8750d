package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/cors"
	"github.com/stretchr/testify/assert"
)

func preflight(opts cors.Options, origin string) *httptest.ResponseRecorder {
	h := cors.Handler(opts)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/ai/chat", nil)
	req.Header.Set("Origin", origin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization, Last-Event-ID")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCORS_TrailingSlashOrigin(t *testing.T) {
	opts := CORS([]string{" https://ideas.example.com/ ", ""})
	assert.Equal(t, []string{"https://ideas.example.com"}, opts.AllowedOrigins)
	assert.True(t, opts.AllowCredentials)

	rec := preflight(opts, "https://ideas.example.com")
	assert.Equal(t, "https://ideas.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORS_UnknownOriginRejected(t *testing.T) {
	rec := preflight(CORS([]string{"https://ideas.example.com"}), "https://evil.example")
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_WildcardDisablesCredentials(t *testing.T) {
	opts := CORS([]string{"*"})
	assert.False(t, opts.AllowCredentials)
}

func TestCORS_DefaultOrigin(t *testing.T) {
	assert.Equal(t, []string{"http://localhost:3000"}, CORS(nil).AllowedOrigins)
	assert.Equal(t, []string{"http://localhost:3000"}, CORS([]string{"  "}).AllowedOrigins)
}

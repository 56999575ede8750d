package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hubideas/hubideas/internal/metrics"
)

func TestMetrics_LabelsByRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Metrics)
	r.Get("/api/v1/projects/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	ok := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/api/v1/projects/{id}", "418")
	miss := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, unmatchedRoute, "404")
	okBefore, missBefore := testutil.ToFloat64(ok), testutil.ToFloat64(miss)

	for _, path := range []string{"/api/v1/projects/a", "/api/v1/projects/b"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusTeapot, rec.Code)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/wp-login.php", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	assert.Equal(t, okBefore+2, testutil.ToFloat64(ok))
	assert.Equal(t, missBefore+1, testutil.ToFloat64(miss))
	assert.Zero(t, testutil.ToFloat64(metrics.HTTPRequestsInFlight))
}

func TestMetrics_StatusWriterKeepsFirstStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	ww := &statusWriter{ResponseWriter: rec, status: http.StatusOK}

	_, _ = ww.Write([]byte("data: hi\n\n"))
	ww.WriteHeader(http.StatusInternalServerError)
	ww.Flush()

	assert.Equal(t, http.StatusOK, ww.status)
	assert.True(t, rec.Flushed)
	assert.Same(t, rec, ww.Unwrap())
}

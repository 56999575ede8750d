package resurfacing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubRunner struct {
	res       *Result
	err       error
	gotSecret string
	gotForce  bool
}

func (s *stubRunner) RunPass(_ context.Context, secret string, force bool) (*Result, error) {
	s.gotSecret, s.gotForce = secret, force
	return s.res, s.err
}

func TestTrigger(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		runner    *stubRunner
		wantCode  int
		wantBody  string
		wantForce bool
	}{
		{
			name:     "unauthorized",
			query:    "?secret=nope",
			runner:   &stubRunner{err: ErrUnauthorized},
			wantCode: http.StatusUnauthorized,
			wantBody: `{"error":"Unauthorized"}`,
		},
		{
			name:      "forced no candidates",
			query:     "?secret=s&force=true",
			runner:    &stubRunner{res: &Result{Outcome: OutcomeNoCandidates, Message: "No candidate projects found for resurfacing"}},
			wantCode:  http.StatusOK,
			wantBody:  `{"success":true,"message":"No candidate projects found for resurfacing"}`,
			wantForce: true,
		},
		{
			name:     "force must be literal true",
			query:    "?secret=s&force=1",
			runner:   &stubRunner{res: &Result{Outcome: OutcomeSkipped, Reason: "Random skip"}},
			wantCode: http.StatusOK,
			wantBody: `{"success":true,"skipped":true,"reason":"Random skip"}`,
		},
		{
			name:     "internal failure",
			query:    "?secret=s",
			runner:   &stubRunner{err: errors.New("db down")},
			wantCode: http.StatusInternalServerError,
			wantBody: `{"error":"Failed to trigger notifications"}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			NewHandler(tt.runner).Trigger(rec, httptest.NewRequest(http.MethodGet, "/api/v1/push/trigger"+tt.query, nil))
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
			assert.Equal(t, tt.wantForce, tt.runner.gotForce)
		})
	}
}

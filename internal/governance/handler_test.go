package governance

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hubideas/hubideas/internal/auth"
	"github.com/hubideas/hubideas/internal/governance/audit"
	"github.com/hubideas/hubideas/internal/governance/quota"
)

type stubQuota struct {
	status *quota.Status
	err    error
}

func (s stubQuota) GetStatus(context.Context, uuid.UUID) (*quota.Status, error) {
	return s.status, s.err
}

type stubAudit struct {
	gotOwner  uuid.UUID
	gotParams audit.ListParams
}

func (s *stubAudit) ListByOwner(_ context.Context, owner uuid.UUID, p audit.ListParams) ([]audit.AuditLog, int64, error) {
	s.gotOwner = owner
	s.gotParams = p
	return []audit.AuditLog{{ID: uuid.New(), EventType: "quota_reset"}}, 1, nil
}

func (s *stubAudit) ListAll(_ context.Context, p audit.ListParams) ([]audit.AuditLog, int64, error) {
	s.gotParams = p
	return []audit.AuditLog{}, 0, nil
}

func authed(r *http.Request, id uuid.UUID) *http.Request {
	return r.WithContext(auth.WithClaims(r.Context(), &auth.AccessClaims{UserID: id.String(), Status: "APPROVED"}))
}

func TestGetQuota(t *testing.T) {
	h := NewHandler(stubQuota{status: &quota.Status{TokenLimit: 1000, TokensUsed: 250, Remaining: 750}}, &stubAudit{})

	rec := httptest.NewRecorder()
	h.GetQuota(rec, authed(httptest.NewRequest("GET", "/api/v1/governance/quota", nil), uuid.New()))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data quota.Status `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(750), body.Data.Remaining)
}

func TestGetQuota_Unauthenticated(t *testing.T) {
	h := NewHandler(stubQuota{}, &stubAudit{})
	rec := httptest.NewRecorder()
	h.GetQuota(rec, httptest.NewRequest("GET", "/api/v1/governance/quota", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetQuota_UnknownUser(t *testing.T) {
	h := NewHandler(stubQuota{err: quota.ErrNotFound}, &stubAudit{})
	rec := httptest.NewRecorder()
	h.GetQuota(rec, authed(httptest.NewRequest("GET", "/api/v1/governance/quota", nil), uuid.New()))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListAuditLogs_ParsesFilters(t *testing.T) {
	repo := &stubAudit{}
	h := NewHandler(stubQuota{}, repo)
	id := uuid.New()

	req := httptest.NewRequest("GET", "/api/v1/governance/audit?event_type=quota_reset&page=2&page_size=5&from=2026-03-01T00:00:00Z", nil)
	rec := httptest.NewRecorder()
	h.ListAuditLogs(rec, authed(req, id))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, id, repo.gotOwner)
	assert.Equal(t, "quota_reset", repo.gotParams.EventType)
	assert.Equal(t, 2, repo.gotParams.Page)
	assert.Equal(t, 5, repo.gotParams.PageSize)
	require.NotNil(t, repo.gotParams.From)
	assert.True(t, repo.gotParams.From.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)))
}

func TestParseAuditParams_IgnoresBadValues(t *testing.T) {
	req := httptest.NewRequest("GET", "/?page=-1&page_size=1000&from=yesterday", nil)
	p := parseAuditParams(req)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 20, p.PageSize)
	assert.Nil(t, p.From)
}

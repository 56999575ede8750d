package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestMiddleware_RequiresBearer(t *testing.T) {
	svc, _ := setupService(t)
	h := Middleware(svc)(okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddleware_SetsClaims(t *testing.T) {
	mgr := NewJWTManager("access-secret-32-chars-long!!!!!", "refresh-secret-32-chars-long!!!!", time.Minute, time.Hour)
	svc := NewService(mgr, nil)
	pair, _, err := mgr.GenerateTokenPair(Identity{UserID: "8c1d2f9e-93a4-4d43-b8a5-6d0f2a1f0c11", Email: "a@b.c", Status: "APPROVED"})
	require.NoError(t, err)

	var gotID string
	h := Middleware(svc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := CurrentUserID(r.Context())
		require.True(t, ok)
		gotID = id.String()
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "8c1d2f9e-93a4-4d43-b8a5-6d0f2a1f0c11", gotID)
}

func TestRequireApproved(t *testing.T) {
	cases := []struct {
		name   string
		claims *AccessClaims
		want   int
	}{
		{"no claims", nil, http.StatusUnauthorized},
		{"waiting", &AccessClaims{Status: "WAITING", Role: "USER"}, http.StatusForbidden},
		{"rejected", &AccessClaims{Status: "REJECTED", Role: "USER"}, http.StatusForbidden},
		{"approved", &AccessClaims{Status: "APPROVED", Role: "USER"}, http.StatusOK},
		{"admin", &AccessClaims{Status: "WAITING", Role: "ADMIN"}, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			if tc.claims != nil {
				req = req.WithContext(WithClaims(req.Context(), tc.claims))
			}
			rec := httptest.NewRecorder()
			RequireApproved(okHandler()).ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req = req.WithContext(WithClaims(req.Context(), &AccessClaims{Role: "USER", Status: "APPROVED"}))
	rec := httptest.NewRecorder()
	RequireAdmin(okHandler()).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest("GET", "/", nil)
	req = req.WithContext(WithClaims(req.Context(), &AccessClaims{Role: "ADMIN"}))
	rec = httptest.NewRecorder()
	RequireAdmin(okHandler()).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

package admin

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hubideas/hubideas/internal/auth"
	"github.com/hubideas/hubideas/internal/users"
)

type fakeUsers struct {
	list   []users.User
	status map[uuid.UUID]users.Status
	limits map[uuid.UUID]int64
	roles  map[uuid.UUID]users.Role
	actor  uuid.UUID
}

func newFakeUsers(ids ...uuid.UUID) *fakeUsers {
	f := &fakeUsers{
		status: map[uuid.UUID]users.Status{},
		limits: map[uuid.UUID]int64{},
		roles:  map[uuid.UUID]users.Role{},
	}
	for _, id := range ids {
		f.list = append(f.list, users.User{ID: id, Role: users.RoleUser, Status: users.StatusWaiting})
		f.roles[id] = users.RoleUser
	}
	return f
}

func (f *fakeUsers) known(id uuid.UUID) bool {
	_, ok := f.roles[id]
	return ok
}

func (f *fakeUsers) List(context.Context) ([]users.User, error) { return f.list, nil }

func (f *fakeUsers) SetStatus(_ context.Context, actor, id uuid.UUID, s users.Status) error {
	if !f.known(id) {
		return users.ErrNotFound
	}
	f.actor = actor
	f.status[id] = s
	return nil
}

func (f *fakeUsers) ToggleRole(_ context.Context, id uuid.UUID) (users.Role, error) {
	if !f.known(id) {
		return "", users.ErrNotFound
	}
	if f.roles[id] == users.RoleAdmin {
		f.roles[id] = users.RoleUser
	} else {
		f.roles[id] = users.RoleAdmin
	}
	return f.roles[id], nil
}

func (f *fakeUsers) SetTokenLimit(_ context.Context, actor, id uuid.UUID, limit int64) error {
	if !f.known(id) {
		return users.ErrNotFound
	}
	f.actor = actor
	f.limits[id] = limit
	return nil
}

func serve(t *testing.T, f *fakeUsers, admin uuid.UUID, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	r.Route("/admin/users", NewHandler(f).Routes)

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req = req.WithContext(auth.WithClaims(req.Context(), &auth.AccessClaims{UserID: admin.String(), Role: "ADMIN"}))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestListUsers(t *testing.T) {
	f := newFakeUsers(uuid.New(), uuid.New())
	rec := serve(t, f, uuid.New(), http.MethodGet, "/admin/users/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"WAITING"`)
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestSetStatus(t *testing.T) {
	target, admin := uuid.New(), uuid.New()
	f := newFakeUsers(target)

	rec := serve(t, f, admin, http.MethodPatch, "/admin/users/"+target.String()+"/status", `{"status":"APPROVED"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, users.StatusApproved, f.status[target])
	assert.Equal(t, admin, f.actor)

	rec = serve(t, f, admin, http.MethodPatch, "/admin/users/"+target.String()+"/status", `{"status":"BANNED"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(t, f, admin, http.MethodPatch, "/admin/users/"+uuid.NewString()+"/status", `{"status":"APPROVED"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(t, f, admin, http.MethodPatch, "/admin/users/nope/status", `{"status":"APPROVED"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestToggleRole(t *testing.T) {
	target := uuid.New()
	f := newFakeUsers(target)

	rec := serve(t, f, uuid.New(), http.MethodPost, "/admin/users/"+target.String()+"/role/toggle", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"role":"ADMIN"`)

	rec = serve(t, f, uuid.New(), http.MethodPost, "/admin/users/"+target.String()+"/role/toggle", "")
	assert.Contains(t, rec.Body.String(), `"role":"USER"`)
}

func TestSetTokenLimit(t *testing.T) {
	target := uuid.New()
	f := newFakeUsers(target)

	rec := serve(t, f, uuid.New(), http.MethodPatch, "/admin/users/"+target.String()+"/token-limit", `{"tokenLimit":0}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(0), f.limits[target])

	rec = serve(t, f, uuid.New(), http.MethodPatch, "/admin/users/"+target.String()+"/token-limit", `{"tokenLimit":-5}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(t, f, uuid.New(), http.MethodPatch, "/admin/users/"+target.String()+"/token-limit", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

package projects

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hubideas/hubideas/internal/users"
)

type stubUsers map[string]*users.User

func (s stubUsers) GetByEmail(_ context.Context, email string) (*users.User, error) {
	return s[email], nil
}

func newTestService(t *testing.T, lookup stubUsers) (*Service, *fakeRepo) {
	t.Helper()
	repo := newFakeRepo()
	svc := NewService(repo, lookup)
	svc.now = func() time.Time { return time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC) }
	svc.shuffle = nil
	return svc, repo
}

func TestCreate_WithInitialItems(t *testing.T) {
	svc, repo := newTestService(t, nil)
	owner := uuid.New()

	d, err := svc.Create(context.Background(), owner, &CreateProjectRequest{
		Name:  "  Garden planner ",
		Todos: []string{"measure beds", "buy seeds"},
		Notes: []string{"south facing"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Garden planner", d.Name)
	assert.True(t, d.IsOwner)
	assert.Len(t, d.Todos, 2)
	assert.Equal(t, 1, d.Todos[1].Position)
	assert.Len(t, repo.notes[d.ID], 1)
	assert.Nil(t, d.LastRemindedAt)
}

func TestAuthorize(t *testing.T) {
	svc, repo := newTestService(t, nil)
	ctx := context.Background()
	owner, collaborator, stranger := uuid.New(), uuid.New(), uuid.New()

	d, err := svc.Create(ctx, owner, &CreateProjectRequest{Name: "p"})
	require.NoError(t, err)
	require.NoError(t, repo.AddShare(ctx, d.ID, collaborator))

	_, err = svc.Authorize(ctx, owner, d.ID)
	assert.NoError(t, err)
	_, err = svc.Authorize(ctx, collaborator, d.ID)
	assert.NoError(t, err)
	_, err = svc.Authorize(ctx, stranger, d.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.Authorize(ctx, owner, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOpen_TouchesButKeepsReminder(t *testing.T) {
	svc, repo := newTestService(t, nil)
	ctx := context.Background()
	owner := uuid.New()

	d, _ := svc.Create(ctx, owner, &CreateProjectRequest{Name: "p"})
	reminded := time.Date(2026, 5, 20, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.MarkReminded(ctx, d.ID, reminded))

	p, _ := repo.GetByID(ctx, d.ID)
	out, err := svc.Open(ctx, owner, p)
	require.NoError(t, err)

	assert.Equal(t, []uuid.UUID{d.ID}, repo.touched)
	assert.Equal(t, svc.now(), out.LastOpenedAt)
	require.NotNil(t, out.LastRemindedAt)
	assert.True(t, out.LastRemindedAt.Equal(reminded))
}

func TestDashboard_SplitsArchived(t *testing.T) {
	svc, repo := newTestService(t, nil)
	ctx := context.Background()
	owner := uuid.New()

	a, _ := svc.Create(ctx, owner, &CreateProjectRequest{Name: "active", Todos: []string{"x", "y"}})
	b, _ := svc.Create(ctx, owner, &CreateProjectRequest{Name: "archived"})
	require.NoError(t, repo.SetArchived(ctx, b.ID, true))
	_, _ = svc.Create(ctx, uuid.New(), &CreateProjectRequest{Name: "someone else's"})

	d, err := svc.Dashboard(ctx, owner, SortSmart)
	require.NoError(t, err)

	require.Len(t, d.Active, 1)
	assert.Equal(t, a.ID, d.Active[0].ID)
	assert.Equal(t, 2, d.Active[0].OpenTodos)
	assert.NotNil(t, d.Active[0].Collaborators)
	require.Len(t, d.Archived, 1)
	assert.Equal(t, b.ID, d.Archived[0].ID)
}

func TestShare(t *testing.T) {
	approved := &users.User{ID: uuid.New(), Email: "friend@example.com", Status: users.StatusApproved}
	waiting := &users.User{ID: uuid.New(), Email: "wait@example.com", Status: users.StatusWaiting}
	owner := &users.User{ID: uuid.New(), Email: "me@example.com", Status: users.StatusApproved}
	svc, repo := newTestService(t, stubUsers{
		approved.Email: approved, waiting.Email: waiting, owner.Email: owner,
	})
	ctx := context.Background()

	d, _ := svc.Create(ctx, owner.ID, &CreateProjectRequest{Name: "p"})
	p, _ := repo.GetByID(ctx, d.ID)

	c, err := svc.Share(ctx, owner.ID, p, approved.Email)
	require.NoError(t, err)
	assert.Equal(t, approved.ID, c.UserID)
	ok, _ := repo.HasAccess(ctx, p.ID, approved.ID)
	assert.True(t, ok)

	_, err = svc.Share(ctx, owner.ID, p, waiting.Email)
	assert.ErrorIs(t, err, ErrShareUser)
	_, err = svc.Share(ctx, owner.ID, p, "nobody@example.com")
	assert.ErrorIs(t, err, ErrShareUser)
	_, err = svc.Share(ctx, owner.ID, p, owner.Email)
	assert.ErrorIs(t, err, ErrShareSelf)
	_, err = svc.Share(ctx, approved.ID, p, waiting.Email)
	assert.ErrorIs(t, err, ErrNotOwner)
}

func TestUnshare(t *testing.T) {
	svc, repo := newTestService(t, nil)
	ctx := context.Background()
	owner, c1, c2 := uuid.New(), uuid.New(), uuid.New()

	d, _ := svc.Create(ctx, owner, &CreateProjectRequest{Name: "p"})
	p, _ := repo.GetByID(ctx, d.ID)
	require.NoError(t, repo.AddShare(ctx, p.ID, c1))
	require.NoError(t, repo.AddShare(ctx, p.ID, c2))

	assert.ErrorIs(t, svc.Unshare(ctx, c1, p, c2), ErrNotOwner)
	assert.NoError(t, svc.Unshare(ctx, c1, p, c1))
	assert.NoError(t, svc.Unshare(ctx, owner, p, c2))
}

func TestDelete_OwnerOnly(t *testing.T) {
	svc, repo := newTestService(t, nil)
	ctx := context.Background()
	owner, collaborator := uuid.New(), uuid.New()

	d, _ := svc.Create(ctx, owner, &CreateProjectRequest{Name: "p"})
	p, _ := repo.GetByID(ctx, d.ID)

	assert.ErrorIs(t, svc.Delete(ctx, collaborator, p), ErrNotOwner)
	assert.NoError(t, svc.Delete(ctx, owner, p))
	got, _ := repo.GetByID(ctx, d.ID)
	assert.Nil(t, got)
}

func TestSearch_ShortQueryIsEmpty(t *testing.T) {
	svc, _ := newTestService(t, nil)

	res, err := svc.Search(context.Background(), uuid.New(), " a ", false)
	require.NoError(t, err)
	assert.Empty(t, res.Projects)

	res, err = svc.Search(context.Background(), uuid.New(), "ab", false)
	require.NoError(t, err)
	assert.Len(t, res.Projects, 1)
}

func TestSaveChat_AssignsOrder(t *testing.T) {
	svc, repo := newTestService(t, nil)
	pid := uuid.New()

	err := svc.SaveChat(context.Background(), pid, "todo",
		ChatMessage{Role: ChatRoleUser, Content: "hi"},
		ChatMessage{Role: ChatRoleAssistant, Content: "hello"},
	)
	require.NoError(t, err)

	require.Len(t, repo.chat, 2)
	assert.Equal(t, "todo", repo.chat[0].Mode)
	assert.True(t, repo.chat[0].CreatedAt.Before(repo.chat[1].CreatedAt))
	assert.Equal(t, pid, repo.chat[1].ProjectID)
}

func TestUpdateTodo_TrimsContent(t *testing.T) {
	svc, repo := newTestService(t, nil)
	ctx := context.Background()
	owner := uuid.New()
	d, _ := svc.Create(ctx, owner, &CreateProjectRequest{Name: "p"})
	p, _ := repo.GetByID(ctx, d.ID)

	todo, err := svc.AddTodo(ctx, owner, p, "  write tests  ")
	require.NoError(t, err)
	assert.Equal(t, "write tests", todo.Content)

	content, done := " ship it ", true
	updated, err := svc.UpdateTodo(ctx, p, todo.ID, &UpdateTodoRequest{Content: &content, IsCompleted: &done})
	require.NoError(t, err)
	assert.Equal(t, "ship it", updated.Content)
	assert.True(t, updated.IsCompleted)

	_, err = svc.UpdateTodo(ctx, p, uuid.New(), &UpdateTodoRequest{IsCompleted: &done})
	assert.ErrorIs(t, err, ErrItemAbsent)
}

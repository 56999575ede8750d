package projects

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type fakeRepo struct {
	mu       sync.Mutex
	projects map[uuid.UUID]*Project
	shares   map[uuid.UUID]map[uuid.UUID]bool
	todos    map[uuid.UUID][]Todo
	notes    map[uuid.UUID][]Note
	chat     []ChatMessage
	touched  []uuid.UUID
	reminded map[uuid.UUID]time.Time
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		projects: map[uuid.UUID]*Project{},
		shares:   map[uuid.UUID]map[uuid.UUID]bool{},
		todos:    map[uuid.UUID][]Todo{},
		notes:    map[uuid.UUID][]Note{},
		reminded: map[uuid.UUID]time.Time{},
	}
}

func (f *fakeRepo) Create(_ context.Context, p *Project, todos []Todo, notes []Note) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *p
	f.projects[p.ID] = &cp
	f.todos[p.ID] = append([]Todo(nil), todos...)
	f.notes[p.ID] = append([]Note(nil), notes...)
	return nil
}

func (f *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (*Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.projects[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (f *fakeRepo) HasAccess(_ context.Context, projectID, userID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.projects[projectID]
	if !ok {
		return false, nil
	}
	return p.OwnedBy(userID) || f.shares[projectID][userID], nil
}

func (f *fakeRepo) ListForUser(ctx context.Context, userID uuid.UUID) ([]Summary, error) {
	f.mu.Lock()
	ids := make([]uuid.UUID, 0, len(f.projects))
	for id := range f.projects {
		ids = append(ids, id)
	}
	f.mu.Unlock()

	out := []Summary{}
	for _, id := range ids {
		if ok, _ := f.HasAccess(ctx, id, userID); !ok {
			continue
		}
		f.mu.Lock()
		p := *f.projects[id]
		open := 0
		for _, t := range f.todos[id] {
			if !t.IsCompleted {
				open++
			}
		}
		f.mu.Unlock()
		out = append(out, Summary{Project: p, OpenTodos: open, IsOwner: p.OwnedBy(userID)})
	}
	return out, nil
}

func (f *fakeRepo) with(id uuid.UUID, fn func(p *Project)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.projects[id]
	if !ok {
		return ErrNotFound
	}
	fn(p)
	return nil
}

func (f *fakeRepo) Rename(_ context.Context, id uuid.UUID, name string) error {
	return f.with(id, func(p *Project) { p.Name = name })
}

func (f *fakeRepo) SetArchived(_ context.Context, id uuid.UUID, archived bool) error {
	return f.with(id, func(p *Project) { p.IsArchived = archived })
}

func (f *fakeRepo) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.projects[id]; !ok {
		return ErrNotFound
	}
	delete(f.projects, id)
	return nil
}

func (f *fakeRepo) Touch(_ context.Context, id uuid.UUID, at time.Time) error {
	f.touched = append(f.touched, id)
	return f.with(id, func(p *Project) { p.LastOpenedAt = at })
}

func (f *fakeRepo) ListTodos(_ context.Context, projectID uuid.UUID) ([]Todo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Todo{}, f.todos[projectID]...), nil
}

func (f *fakeRepo) CreateTodo(_ context.Context, t *Todo) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t.Position = len(f.todos[t.ProjectID])
	f.todos[t.ProjectID] = append(f.todos[t.ProjectID], *t)
	return nil
}

func (f *fakeRepo) UpdateTodo(_ context.Context, projectID, todoID uuid.UUID, content *string, completed *bool) (*Todo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, t := range f.todos[projectID] {
		if t.ID != todoID {
			continue
		}
		if content != nil {
			t.Content = *content
		}
		if completed != nil {
			t.IsCompleted = *completed
		}
		f.todos[projectID][i] = t
		return &t, nil
	}
	return nil, ErrItemAbsent
}

func (f *fakeRepo) DeleteTodo(_ context.Context, projectID, todoID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, t := range f.todos[projectID] {
		if t.ID == todoID {
			f.todos[projectID] = append(f.todos[projectID][:i], f.todos[projectID][i+1:]...)
			return nil
		}
	}
	return ErrItemAbsent
}

func (f *fakeRepo) ListNotes(_ context.Context, projectID uuid.UUID) ([]Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Note{}, f.notes[projectID]...), nil
}

func (f *fakeRepo) ListNoteContents(_ context.Context, projectID uuid.UUID) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []string{}
	for _, n := range f.notes[projectID] {
		out = append(out, n.Content)
	}
	return out, nil
}

func (f *fakeRepo) CreateNote(_ context.Context, n *Note) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	n.Position = len(f.notes[n.ProjectID])
	f.notes[n.ProjectID] = append(f.notes[n.ProjectID], *n)
	return nil
}

func (f *fakeRepo) UpdateNote(_ context.Context, projectID, noteID uuid.UUID, content string) (*Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, n := range f.notes[projectID] {
		if n.ID == noteID {
			n.Content = content
			f.notes[projectID][i] = n
			return &n, nil
		}
	}
	return nil, ErrItemAbsent
}

func (f *fakeRepo) DeleteNote(_ context.Context, projectID, noteID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, n := range f.notes[projectID] {
		if n.ID == noteID {
			f.notes[projectID] = append(f.notes[projectID][:i], f.notes[projectID][i+1:]...)
			return nil
		}
	}
	return ErrItemAbsent
}

func (f *fakeRepo) AddShare(_ context.Context, projectID, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.shares[projectID] == nil {
		f.shares[projectID] = map[uuid.UUID]bool{}
	}
	f.shares[projectID][userID] = true
	return nil
}

func (f *fakeRepo) RemoveShare(_ context.Context, projectID, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.shares[projectID][userID] {
		return ErrItemAbsent
	}
	delete(f.shares[projectID], userID)
	return nil
}

func (f *fakeRepo) ListCollaborators(_ context.Context, ids []uuid.UUID) (map[uuid.UUID][]Collaborator, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[uuid.UUID][]Collaborator{}
	for _, id := range ids {
		for uid := range f.shares[id] {
			out[id] = append(out[id], Collaborator{UserID: uid})
		}
	}
	return out, nil
}

func (f *fakeRepo) Search(_ context.Context, _ uuid.UUID, _ string, _ bool, _ int) (*SearchResults, error) {
	return &SearchResults{Projects: []Project{{Name: "hit"}}, Todos: []TodoHit{}, Notes: []NoteHit{}}, nil
}

func (f *fakeRepo) AddChatMessages(_ context.Context, msgs []ChatMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chat = append(f.chat, msgs...)
	return nil
}

func (f *fakeRepo) ListChatMessages(_ context.Context, projectID uuid.UUID, limit int) ([]ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []ChatMessage{}
	for _, m := range f.chat {
		if m.ProjectID == projectID {
			out = append(out, m)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (f *fakeRepo) FindResurfacingCandidates(_ context.Context, openedBefore, remindedBefore time.Time) ([]Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []Project{}
	for _, p := range f.projects {
		if !p.IsArchived && p.LastOpenedAt.Before(openedBefore) &&
			(p.LastRemindedAt == nil || p.LastRemindedAt.Before(remindedBefore)) {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeRepo) MarkReminded(_ context.Context, id uuid.UUID, at time.Time) error {
	return f.with(id, func(p *Project) { p.LastRemindedAt = &at })
}

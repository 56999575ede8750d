package projects

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hubideas/hubideas/internal/users"
)

const (
	searchMinLength = 2
	searchLimit     = 5
	chatHistoryMax  = 50
)

type UserLookup interface {
	GetByEmail(ctx context.Context, email string) (*users.User, error)
}

type Service struct {
	repo    Repository
	users   UserLookup
	now     func() time.Time
	shuffle func([]Summary)
}

func NewService(repo Repository, users UserLookup) *Service {
	return &Service{
		repo:  repo,
		users: users,
		now:   time.Now,
		shuffle: func(s []Summary) {
			rand.Shuffle(len(s), func(i, j int) { s[i], s[j] = s[j], s[i] })
		},
	}
}

func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, req *CreateProjectRequest) (*Detail, error) {
	now := s.now()
	p := &Project{
		ID:           uuid.New(),
		Name:         strings.TrimSpace(req.Name),
		OwnerID:      &ownerID,
		LastOpenedAt: now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	todos := make([]Todo, 0, len(req.Todos))
	for i, content := range req.Todos {
		todos = append(todos, Todo{
			ID: uuid.New(), ProjectID: p.ID, Content: strings.TrimSpace(content),
			Position: i, CreatorID: &ownerID, CreatedAt: now, UpdatedAt: now,
		})
	}
	notes := make([]Note, 0, len(req.Notes))
	for i, content := range req.Notes {
		notes = append(notes, Note{
			ID: uuid.New(), ProjectID: p.ID, Content: content,
			Position: i, CreatorID: &ownerID, CreatedAt: now, UpdatedAt: now,
		})
	}

	if err := s.repo.Create(ctx, p, todos, notes); err != nil {
		return nil, err
	}
	return &Detail{Project: *p, IsOwner: true, Todos: todos, Notes: notes, Collaborators: []Collaborator{}}, nil
}

// Authorize loads a project and checks that userID owns it or is a collaborator.
func (s *Service) Authorize(ctx context.Context, userID, projectID uuid.UUID) (*Project, error) {
	p, err := s.repo.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrNotFound
	}
	if p.OwnedBy(userID) {
		return p, nil
	}
	ok, err := s.repo.HasAccess(ctx, projectID, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrForbidden
	}
	return p, nil
}

// Open returns the full project view and records the visit.
func (s *Service) Open(ctx context.Context, userID uuid.UUID, p *Project) (*Detail, error) {
	now := s.now()
	if err := s.repo.Touch(ctx, p.ID, now); err != nil {
		return nil, err
	}
	p.LastOpenedAt = now

	todos, err := s.repo.ListTodos(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	notes, err := s.repo.ListNotes(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	collabs, err := s.repo.ListCollaborators(ctx, []uuid.UUID{p.ID})
	if err != nil {
		return nil, err
	}

	return &Detail{
		Project:       *p,
		IsOwner:       p.OwnedBy(userID),
		Todos:         todos,
		Notes:         notes,
		Collaborators: nonNil(collabs[p.ID]),
	}, nil
}

func (s *Service) Dashboard(ctx context.Context, userID uuid.UUID, mode SortMode) (*Dashboard, error) {
	list, err := s.repo.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, len(list))
	for i, p := range list {
		ids[i] = p.ID
	}
	collabs, err := s.repo.ListCollaborators(ctx, ids)
	if err != nil {
		return nil, err
	}

	var active, archived []Summary
	for _, p := range list {
		p.Collaborators = nonNil(collabs[p.ID])
		if p.IsArchived {
			archived = append(archived, p)
		} else {
			active = append(active, p)
		}
	}

	now := s.now()
	return &Dashboard{
		Active:   nonNil(Arrange(active, mode, now, s.shuffle)),
		Archived: nonNil(Arrange(archived, SortActivity, now, nil)),
	}, nil
}

func (s *Service) Rename(ctx context.Context, p *Project, name string) error {
	return s.repo.Rename(ctx, p.ID, strings.TrimSpace(name))
}

func (s *Service) SetArchived(ctx context.Context, p *Project, archived bool) error {
	return s.repo.SetArchived(ctx, p.ID, archived)
}

func (s *Service) Delete(ctx context.Context, actorID uuid.UUID, p *Project) error {
	if !p.OwnedBy(actorID) {
		return ErrNotOwner
	}
	return s.repo.Delete(ctx, p.ID)
}

func (s *Service) AddTodo(ctx context.Context, actorID uuid.UUID, p *Project, content string) (*Todo, error) {
	t := &Todo{ID: uuid.New(), ProjectID: p.ID, Content: strings.TrimSpace(content), CreatorID: &actorID}
	if err := s.repo.CreateTodo(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) UpdateTodo(ctx context.Context, p *Project, todoID uuid.UUID, req *UpdateTodoRequest) (*Todo, error) {
	if req.Content != nil {
		c := strings.TrimSpace(*req.Content)
		req.Content = &c
	}
	return s.repo.UpdateTodo(ctx, p.ID, todoID, req.Content, req.IsCompleted)
}

func (s *Service) DeleteTodo(ctx context.Context, p *Project, todoID uuid.UUID) error {
	return s.repo.DeleteTodo(ctx, p.ID, todoID)
}

func (s *Service) AddNote(ctx context.Context, actorID uuid.UUID, p *Project, content string) (*Note, error) {
	n := &Note{ID: uuid.New(), ProjectID: p.ID, Content: content, CreatorID: &actorID}
	if err := s.repo.CreateNote(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

func (s *Service) UpdateNote(ctx context.Context, p *Project, noteID uuid.UUID, content string) (*Note, error) {
	return s.repo.UpdateNote(ctx, p.ID, noteID, content)
}

func (s *Service) DeleteNote(ctx context.Context, p *Project, noteID uuid.UUID) error {
	return s.repo.DeleteNote(ctx, p.ID, noteID)
}

// Share grants an approved user access to the project. Only the owner may share.
func (s *Service) Share(ctx context.Context, actorID uuid.UUID, p *Project, email string) (*Collaborator, error) {
	if !p.OwnedBy(actorID) {
		return nil, ErrNotOwner
	}
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("looking up share target: %w", err)
	}
	if u == nil || u.Status != users.StatusApproved {
		return nil, ErrShareUser
	}
	if u.ID == actorID {
		return nil, ErrShareSelf
	}
	if err := s.repo.AddShare(ctx, p.ID, u.ID); err != nil {
		return nil, err
	}
	return &Collaborator{UserID: u.ID, Email: u.Email, Name: u.Name}, nil
}

// Unshare removes a collaborator. The owner may remove anyone; a
// collaborator may only remove themselves.
func (s *Service) Unshare(ctx context.Context, actorID uuid.UUID, p *Project, userID uuid.UUID) error {
	if !p.OwnedBy(actorID) && actorID != userID {
		return ErrNotOwner
	}
	return s.repo.RemoveShare(ctx, p.ID, userID)
}

// Search looks through the user's accessible projects. Queries shorter
// than two characters return empty results.
func (s *Service) Search(ctx context.Context, userID uuid.UUID, q string, includeArchived bool) (*SearchResults, error) {
	q = strings.TrimSpace(q)
	if len([]rune(q)) < searchMinLength {
		return &SearchResults{Projects: []Project{}, Todos: []TodoHit{}, Notes: []NoteHit{}}, nil
	}
	return s.repo.Search(ctx, userID, q, includeArchived, searchLimit)
}

// SaveChat appends an exchange to the project's chat history.
func (s *Service) SaveChat(ctx context.Context, projectID uuid.UUID, mode string, msgs ...ChatMessage) error {
	now := s.now()
	for i := range msgs {
		msgs[i].ID = uuid.New()
		msgs[i].ProjectID = projectID
		msgs[i].Mode = mode
		// Keep insertion order stable for equal timestamps.
		msgs[i].CreatedAt = now.Add(time.Duration(i) * time.Microsecond)
	}
	return s.repo.AddChatMessages(ctx, msgs)
}

func (s *Service) ChatHistory(ctx context.Context, projectID uuid.UUID) ([]ChatMessage, error) {
	return s.repo.ListChatMessages(ctx, projectID, chatHistoryMax)
}

func (s *Service) ListNoteContents(ctx context.Context, projectID uuid.UUID) ([]string, error) {
	return s.repo.ListNoteContents(ctx, projectID)
}

func (s *Service) ListTodos(ctx context.Context, projectID uuid.UUID) ([]Todo, error) {
	return s.repo.ListTodos(ctx, projectID)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

package projects

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound   = errors.New("project not found")
	ErrForbidden  = errors.New("project access denied")
	ErrNotOwner   = errors.New("only the project owner may do this")
	ErrShareUser  = errors.New("share target must be an approved user")
	ErrShareSelf  = errors.New("cannot share a project with its owner")
	ErrItemAbsent = errors.New("item not found in project")
)

type Project struct {
	ID             uuid.UUID  `json:"id"`
	Name           string     `json:"name"`
	OwnerID        *uuid.UUID `json:"owner_id,omitempty"`
	IsArchived     bool       `json:"is_archived"`
	LastOpenedAt   time.Time  `json:"last_opened_at"`
	LastRemindedAt *time.Time `json:"last_reminded_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// OwnedBy reports whether userID owns the project.
func (p *Project) OwnedBy(userID uuid.UUID) bool {
	return p.OwnerID != nil && *p.OwnerID == userID
}

type Todo struct {
	ID          uuid.UUID  `json:"id"`
	ProjectID   uuid.UUID  `json:"project_id"`
	Content     string     `json:"content"`
	IsCompleted bool       `json:"is_completed"`
	Position    int        `json:"position"`
	CreatorID   *uuid.UUID `json:"creator_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type Note struct {
	ID        uuid.UUID  `json:"id"`
	ProjectID uuid.UUID  `json:"project_id"`
	Content   string     `json:"content"`
	Position  int        `json:"position"`
	CreatorID *uuid.UUID `json:"creator_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

const (
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

type ChatMessage struct {
	ID        uuid.UUID `json:"id"`
	ProjectID uuid.UUID `json:"project_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Mode      string    `json:"mode,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Collaborator struct {
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
	Name   string    `json:"name,omitempty"`
}

// Summary is a project card on the dashboard.
type Summary struct {
	Project
	OpenTodos     int            `json:"open_todos"`
	IsOwner       bool           `json:"is_owner"`
	Collaborators []Collaborator `json:"collaborators"`
}

type Detail struct {
	Project
	IsOwner       bool           `json:"is_owner"`
	Todos         []Todo         `json:"todos"`
	Notes         []Note         `json:"notes"`
	Collaborators []Collaborator `json:"collaborators"`
}

type Dashboard struct {
	Active   []Summary `json:"active"`
	Archived []Summary `json:"archived"`
}

type TodoHit struct {
	Todo
	ProjectName string `json:"project_name"`
}

type NoteHit struct {
	Note
	ProjectName string `json:"project_name"`
}

type SearchResults struct {
	Projects []Project `json:"projects"`
	Todos    []TodoHit `json:"todos"`
	Notes    []NoteHit `json:"notes"`
}

type CreateProjectRequest struct {
	Name  string   `json:"name" validate:"required,max=200"`
	Todos []string `json:"todos" validate:"max=50,dive,required,max=500"`
	Notes []string `json:"notes" validate:"max=20,dive,required,max=10000"`
}

type UpdateProjectRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

type CreateTodoRequest struct {
	Content string `json:"content" validate:"required,max=500"`
}

type UpdateTodoRequest struct {
	Content     *string `json:"content" validate:"omitempty,min=1,max=500"`
	IsCompleted *bool   `json:"is_completed"`
}

type NoteRequest struct {
	Content string `json:"content" validate:"required,max=10000"`
}

type ShareRequest struct {
	Email string `json:"email" validate:"required,email"`
}

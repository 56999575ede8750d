// Package assistant serves the AI endpoints: project chat, todo
// suggestions and project generation from a brainstorm.
package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/hubideas/hubideas/internal/ai"
	"github.com/hubideas/hubideas/internal/api"
	"github.com/hubideas/hubideas/internal/auth"
	"github.com/hubideas/hubideas/internal/governance/quota"
	"github.com/hubideas/hubideas/internal/projects"
)

// Governor gates every generation call and records its usage.
type Governor interface {
	Require(ctx context.Context, userID uuid.UUID) (quota.Permit, error)
	RecordOrLog(ctx context.Context, userID uuid.UUID, tokens int64)
}

type ProjectService interface {
	Authorize(ctx context.Context, userID, projectID uuid.UUID) (*projects.Project, error)
	Create(ctx context.Context, ownerID uuid.UUID, req *projects.CreateProjectRequest) (*projects.Detail, error)
	ListNoteContents(ctx context.Context, projectID uuid.UUID) ([]string, error)
	ListTodos(ctx context.Context, projectID uuid.UUID) ([]projects.Todo, error)
	SaveChat(ctx context.Context, projectID uuid.UUID, mode string, msgs ...projects.ChatMessage) error
}

type Handler struct {
	gen      ai.Generator
	governor Governor
	projects ProjectService
	validate *validator.Validate
}

func NewHandler(gen ai.Generator, governor Governor, projectSvc ProjectService) *Handler {
	return &Handler{
		gen:      gen,
		governor: governor,
		projects: projectSvc,
		validate: validator.New(),
	}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/chat", h.Chat)
	r.Post("/suggest-todos", h.SuggestTodos)
	r.Post("/generate-project", h.GenerateProject)
}

// Chat streams a project chat reply as server-sent events: one unnamed
// event per text chunk, a "todos" event in todo mode, then "done".
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.CurrentUserID(r.Context())
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	var req ChatRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.ProjectID == uuid.Nil {
		api.HandleError(w, api.NewValidationError("projectId is required"))
		return
	}
	if req.Mode == "" {
		req.Mode = ai.ModeConversation
	}

	p, err := h.projects.Authorize(r.Context(), userID, req.ProjectID)
	if err != nil {
		writeProjectError(w, err)
		return
	}
	if _, err := h.governor.Require(r.Context(), userID); err != nil {
		writeGovernorError(w, err)
		return
	}

	pc, err := h.projectContext(r.Context(), p)
	if err != nil {
		slog.Error("assistant: loading project context", "error", err, "project_id", p.ID)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	sse := newSSEWriter(w)
	res, err := h.gen.Stream(r.Context(), ai.ChatRequest(req.Mode, pc, req.ReferencedContext, req.Messages), func(chunk string) error {
		return sse.Event("", chunkEvent{Text: chunk})
	})
	// Tokens are charged even when the client has already gone away.
	if res != nil && res.Tokens > 0 {
		h.governor.RecordOrLog(context.WithoutCancel(r.Context()), userID, res.Tokens)
	}
	if err != nil {
		slog.Error("assistant: streaming chat", "error", err, "project_id", p.ID)
		if !sse.started {
			api.HandleError(w, api.NewBadGatewayError("Failed to process chat"))
			return
		}
		_ = sse.Event("error", errorEvent{Error: "Failed to process chat"})
		return
	}

	if req.Mode == ai.ModeTodo {
		intro, todos := ai.SplitTodoReply(res.Text)
		if todos == nil {
			todos = []string{}
		}
		_ = sse.Event("todos", todosEvent{Intro: intro, Todos: todos})
	}

	if req.SaveHistory {
		last := req.Messages[len(req.Messages)-1]
		err := h.projects.SaveChat(r.Context(), p.ID, req.Mode,
			projects.ChatMessage{Role: last.Role, Content: last.Content},
			projects.ChatMessage{Role: projects.ChatRoleAssistant, Content: res.Text},
		)
		if err != nil {
			slog.Error("assistant: saving chat history", "error", err, "project_id", p.ID)
		}
	}

	_ = sse.Event("done", doneEvent{Tokens: res.Tokens})
}

func (h *Handler) SuggestTodos(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.CurrentUserID(r.Context())
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	var req SuggestTodosRequest
	if !h.decode(w, r, &req) {
		return
	}
	if _, err := h.governor.Require(r.Context(), userID); err != nil {
		writeGovernorError(w, err)
		return
	}

	res, err := h.gen.Generate(r.Context(), ai.SuggestTodosRequest(req.Title, req.Note))
	if err != nil {
		slog.Error("assistant: suggesting todos", "error", err)
		api.HandleError(w, api.NewBadGatewayError("Failed to generate suggestions"))
		return
	}
	h.governor.RecordOrLog(context.WithoutCancel(r.Context()), userID, res.Tokens)

	suggestions, err := ai.ParseSuggestions(res.Text)
	if err != nil {
		slog.Warn("assistant: unparseable suggestions", "error", err)
		suggestions = []string{}
	}
	api.JSONRaw(w, http.StatusOK, SuggestTodosResponse{Suggestions: suggestions})
}

// GenerateProject extracts a plan from a brainstorm conversation and
// creates the project for the caller.
func (h *Handler) GenerateProject(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.CurrentUserID(r.Context())
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	var req GenerateProjectRequest
	if !h.decode(w, r, &req) {
		return
	}
	if _, err := h.governor.Require(r.Context(), userID); err != nil {
		writeGovernorError(w, err)
		return
	}

	res, err := h.gen.Generate(r.Context(), ai.ProjectPlanRequest(req.Messages))
	if err != nil {
		slog.Error("assistant: generating project plan", "error", err)
		api.HandleError(w, api.NewBadGatewayError("Failed to generate project"))
		return
	}
	h.governor.RecordOrLog(context.WithoutCancel(r.Context()), userID, res.Tokens)

	plan, err := ai.ParsePlan(res.Text)
	if err != nil {
		slog.Warn("assistant: unparseable project plan", "error", err)
		api.HandleError(w, api.NewBadGatewayError("Failed to generate project"))
		return
	}

	create := &projects.CreateProjectRequest{Name: plan.Title, Todos: plan.Todos}
	if plan.Note != "" {
		create.Notes = []string{plan.Note}
	}
	d, err := h.projects.Create(r.Context(), userID, create)
	if err != nil {
		slog.Error("assistant: creating generated project", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	if req.SaveHistory {
		msgs := make([]projects.ChatMessage, 0, len(req.Messages))
		for _, m := range req.Messages {
			msgs = append(msgs, projects.ChatMessage{Role: m.Role, Content: m.Content})
		}
		if err := h.projects.SaveChat(r.Context(), d.ID, modeBrainstorm, msgs...); err != nil {
			slog.Error("assistant: saving brainstorm history", "error", err, "project_id", d.ID)
		}
	}

	api.JSONRaw(w, http.StatusCreated, GenerateProjectResponse{ProjectID: d.ID, Title: d.Name})
}

func (h *Handler) projectContext(ctx context.Context, p *projects.Project) (ai.ProjectContext, error) {
	notes, err := h.projects.ListNoteContents(ctx, p.ID)
	if err != nil {
		return ai.ProjectContext{}, err
	}
	todos, err := h.projects.ListTodos(ctx, p.ID)
	if err != nil {
		return ai.ProjectContext{}, err
	}

	pc := ai.ProjectContext{Title: p.Name, Notes: notes}
	for _, t := range todos {
		pc.AllTodos = append(pc.AllTodos, t.Content)
		if !t.IsCompleted {
			pc.OpenTodos = append(pc.OpenTodos, t.Content)
		}
	}
	return pc, nil
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return false
	}
	return true
}

func writeGovernorError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, quota.ErrQuotaExceeded):
		api.HandleError(w, api.ErrQuotaExceeded)
	case errors.Is(err, quota.ErrRateLimited):
		api.HandleError(w, api.ErrTooManyRequests)
	case errors.Is(err, quota.ErrNotFound):
		api.HandleError(w, api.ErrUnauthorized)
	default:
		slog.Error("assistant: checking quota", "error", err)
		api.HandleError(w, api.ErrInternalServer)
	}
}

func writeProjectError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, projects.ErrNotFound):
		api.HandleError(w, api.NewNotFoundError("project not found"))
	case errors.Is(err, projects.ErrForbidden):
		api.HandleError(w, api.ErrAccessDenied)
	default:
		slog.Error("assistant: authorizing project", "error", err)
		api.HandleError(w, api.ErrInternalServer)
	}
}

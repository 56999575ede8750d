package projects

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/hubideas/hubideas/internal/api"
	"github.com/hubideas/hubideas/internal/auth"
)

type Handler struct {
	svc      *Service
	validate *validator.Validate
}

func NewHandler(svc *Service) *Handler {
	return &Handler{
		svc:      svc,
		validate: validator.New(),
	}
}

// Routes mounts the project API. Every route below /{projectID} runs
// behind AccessMiddleware.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.Dashboard)
	r.Post("/", h.Create)
	r.Get("/search", h.Search)

	r.Route("/{projectID}", func(r chi.Router) {
		r.Use(h.AccessMiddleware)
		r.Get("/", h.Get)
		r.Patch("/", h.Rename)
		r.Delete("/", h.Delete)
		r.Post("/archive", h.Archive)
		r.Post("/unarchive", h.Unarchive)

		r.Post("/todos", h.CreateTodo)
		r.Patch("/todos/{itemID}", h.UpdateTodo)
		r.Delete("/todos/{itemID}", h.DeleteTodo)

		r.Post("/notes", h.CreateNote)
		r.Put("/notes/{itemID}", h.UpdateNote)
		r.Delete("/notes/{itemID}", h.DeleteNote)

		r.Post("/shares", h.Share)
		r.Delete("/shares/{userID}", h.Unshare)

		r.Get("/chat", h.ChatHistory)
	})
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

func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		api.HandleError(w, api.NewNotFoundError("project not found"))
	case errors.Is(err, ErrItemAbsent):
		api.HandleError(w, api.ErrNotFound)
	case errors.Is(err, ErrForbidden):
		api.HandleError(w, api.ErrAccessDenied)
	case errors.Is(err, ErrNotOwner):
		api.HandleError(w, &api.AppError{Code: http.StatusForbidden, Message: err.Error()})
	case errors.Is(err, ErrShareUser), errors.Is(err, ErrShareSelf):
		api.HandleError(w, api.NewBadRequestError(err.Error()))
	default:
		slog.Error(op, "error", err)
		api.HandleError(w, api.ErrInternalServer)
	}
}

func itemID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		api.HandleError(w, api.NewBadRequestError("invalid "+param))
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.CurrentUserID(r.Context())
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	d, err := h.svc.Dashboard(r.Context(), userID, ParseSortMode(r.URL.Query().Get("sort")))
	if err != nil {
		writeServiceError(w, "loading dashboard", err)
		return
	}
	api.JSON(w, http.StatusOK, d)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.CurrentUserID(r.Context())
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	var req CreateProjectRequest
	if !h.decode(w, r, &req) {
		return
	}

	d, err := h.svc.Create(r.Context(), userID, &req)
	if err != nil {
		writeServiceError(w, "creating project", err)
		return
	}
	api.JSON(w, http.StatusCreated, d)
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.CurrentUserID(r.Context())
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	q := r.URL.Query()
	res, err := h.svc.Search(r.Context(), userID, q.Get("q"), q.Get("archived") == "true")
	if err != nil {
		writeServiceError(w, "searching projects", err)
		return
	}
	api.JSON(w, http.StatusOK, res)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.CurrentUserID(r.Context())
	p := GetProjectFromContext(r.Context())

	d, err := h.svc.Open(r.Context(), userID, p)
	if err != nil {
		writeServiceError(w, "opening project", err)
		return
	}
	api.JSON(w, http.StatusOK, d)
}

func (h *Handler) Rename(w http.ResponseWriter, r *http.Request) {
	var req UpdateProjectRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.svc.Rename(r.Context(), GetProjectFromContext(r.Context()), req.Name); err != nil {
		writeServiceError(w, "renaming project", err)
		return
	}
	api.JSONMessage(w, http.StatusOK, "project updated")
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.CurrentUserID(r.Context())
	if err := h.svc.Delete(r.Context(), userID, GetProjectFromContext(r.Context())); err != nil {
		writeServiceError(w, "deleting project", err)
		return
	}
	api.JSONMessage(w, http.StatusOK, "project deleted")
}

func (h *Handler) Archive(w http.ResponseWriter, r *http.Request) {
	h.setArchived(w, r, true)
}

func (h *Handler) Unarchive(w http.ResponseWriter, r *http.Request) {
	h.setArchived(w, r, false)
}

func (h *Handler) setArchived(w http.ResponseWriter, r *http.Request, archived bool) {
	if err := h.svc.SetArchived(r.Context(), GetProjectFromContext(r.Context()), archived); err != nil {
		writeServiceError(w, "archiving project", err)
		return
	}
	api.JSONMessage(w, http.StatusOK, "project updated")
}

func (h *Handler) CreateTodo(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.CurrentUserID(r.Context())
	var req CreateTodoRequest
	if !h.decode(w, r, &req) {
		return
	}
	t, err := h.svc.AddTodo(r.Context(), userID, GetProjectFromContext(r.Context()), req.Content)
	if err != nil {
		writeServiceError(w, "creating todo", err)
		return
	}
	api.JSON(w, http.StatusCreated, t)
}

func (h *Handler) UpdateTodo(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(w, r, "itemID")
	if !ok {
		return
	}
	var req UpdateTodoRequest
	if !h.decode(w, r, &req) {
		return
	}
	t, err := h.svc.UpdateTodo(r.Context(), GetProjectFromContext(r.Context()), id, &req)
	if err != nil {
		writeServiceError(w, "updating todo", err)
		return
	}
	api.JSON(w, http.StatusOK, t)
}

func (h *Handler) DeleteTodo(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(w, r, "itemID")
	if !ok {
		return
	}
	if err := h.svc.DeleteTodo(r.Context(), GetProjectFromContext(r.Context()), id); err != nil {
		writeServiceError(w, "deleting todo", err)
		return
	}
	api.JSONMessage(w, http.StatusOK, "todo deleted")
}

func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.CurrentUserID(r.Context())
	var req NoteRequest
	if !h.decode(w, r, &req) {
		return
	}
	n, err := h.svc.AddNote(r.Context(), userID, GetProjectFromContext(r.Context()), req.Content)
	if err != nil {
		writeServiceError(w, "creating note", err)
		return
	}
	api.JSON(w, http.StatusCreated, n)
}

func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(w, r, "itemID")
	if !ok {
		return
	}
	var req NoteRequest
	if !h.decode(w, r, &req) {
		return
	}
	n, err := h.svc.UpdateNote(r.Context(), GetProjectFromContext(r.Context()), id, req.Content)
	if err != nil {
		writeServiceError(w, "updating note", err)
		return
	}
	api.JSON(w, http.StatusOK, n)
}

func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(w, r, "itemID")
	if !ok {
		return
	}
	if err := h.svc.DeleteNote(r.Context(), GetProjectFromContext(r.Context()), id); err != nil {
		writeServiceError(w, "deleting note", err)
		return
	}
	api.JSONMessage(w, http.StatusOK, "note deleted")
}

func (h *Handler) Share(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.CurrentUserID(r.Context())
	var req ShareRequest
	if !h.decode(w, r, &req) {
		return
	}
	c, err := h.svc.Share(r.Context(), userID, GetProjectFromContext(r.Context()), req.Email)
	if err != nil {
		writeServiceError(w, "sharing project", err)
		return
	}
	api.JSON(w, http.StatusCreated, c)
}

func (h *Handler) Unshare(w http.ResponseWriter, r *http.Request) {
	actorID, _ := auth.CurrentUserID(r.Context())
	target, ok := itemID(w, r, "userID")
	if !ok {
		return
	}
	if err := h.svc.Unshare(r.Context(), actorID, GetProjectFromContext(r.Context()), target); err != nil {
		writeServiceError(w, "unsharing project", err)
		return
	}
	api.JSONMessage(w, http.StatusOK, "collaborator removed")
}

func (h *Handler) ChatHistory(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.svc.ChatHistory(r.Context(), GetProjectFromContext(r.Context()).ID)
	if err != nil {
		writeServiceError(w, "loading chat history", err)
		return
	}
	api.JSON(w, http.StatusOK, msgs)
}

// AccessMiddleware verifies that the caller owns or collaborates on the
// project before allowing access.
func (h *Handler) AccessMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.CurrentUserID(r.Context())
		if !ok {
			api.HandleError(w, api.ErrUnauthorized)
			return
		}

		projectID, err := uuid.Parse(chi.URLParam(r, "projectID"))
		if err != nil {
			api.HandleError(w, api.NewBadRequestError("invalid project ID"))
			return
		}

		p, err := h.svc.Authorize(r.Context(), userID, projectID)
		if err != nil {
			if errors.Is(err, ErrForbidden) {
				slog.Warn("project access violation attempt",
					"project_id", projectID,
					"requester", userID,
					"path", r.URL.Path,
					"method", r.Method,
				)
			}
			writeServiceError(w, "fetching project for access check", err)
			return
		}

		next.ServeHTTP(w, r.WithContext(SetProjectInContext(r.Context(), p)))
	})
}

// Package admin serves user management for administrators: approval,
// role changes and per-user AI token limits.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/hubideas/hubideas/internal/api"
	"github.com/hubideas/hubideas/internal/auth"
	"github.com/hubideas/hubideas/internal/users"
)

type UserAdmin interface {
	List(ctx context.Context) ([]users.User, error)
	SetStatus(ctx context.Context, actor, id uuid.UUID, status users.Status) error
	ToggleRole(ctx context.Context, id uuid.UUID) (users.Role, error)
	SetTokenLimit(ctx context.Context, actor, id uuid.UUID, limit int64) error
}

type StatusRequest struct {
	Status users.Status `json:"status" validate:"required,oneof=WAITING APPROVED REJECTED"`
}

type TokenLimitRequest struct {
	TokenLimit *int64 `json:"tokenLimit" validate:"required,min=0"`
}

type Handler struct {
	users    UserAdmin
	validate *validator.Validate
}

func NewHandler(svc UserAdmin) *Handler {
	return &Handler{users: svc, validate: validator.New()}
}

// Routes expects to be mounted behind auth.RequireAdmin.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.ListUsers)
	r.Patch("/{userID}/status", h.SetStatus)
	r.Post("/{userID}/role/toggle", h.ToggleRole)
	r.Patch("/{userID}/token-limit", h.SetTokenLimit)
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	list, err := h.users.List(r.Context())
	if err != nil {
		slog.Error("admin: listing users", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	if list == nil {
		list = []users.User{}
	}
	api.JSON(w, http.StatusOK, list)
}

func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	actor, target, ok := h.ids(w, r)
	if !ok {
		return
	}
	var req StatusRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.users.SetStatus(r.Context(), actor, target, req.Status); err != nil {
		writeUserError(w, "admin: setting status", err)
		return
	}
	api.JSONMessage(w, http.StatusOK, "status updated")
}

func (h *Handler) ToggleRole(w http.ResponseWriter, r *http.Request) {
	_, target, ok := h.ids(w, r)
	if !ok {
		return
	}

	role, err := h.users.ToggleRole(r.Context(), target)
	if err != nil {
		writeUserError(w, "admin: toggling role", err)
		return
	}
	api.JSON(w, http.StatusOK, map[string]users.Role{"role": role})
}

func (h *Handler) SetTokenLimit(w http.ResponseWriter, r *http.Request) {
	actor, target, ok := h.ids(w, r)
	if !ok {
		return
	}
	var req TokenLimitRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.users.SetTokenLimit(r.Context(), actor, target, *req.TokenLimit); err != nil {
		writeUserError(w, "admin: setting token limit", err)
		return
	}
	api.JSONMessage(w, http.StatusOK, "token limit updated")
}

func (h *Handler) ids(w http.ResponseWriter, r *http.Request) (actor, target uuid.UUID, ok bool) {
	actor, ok = auth.CurrentUserID(r.Context())
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return uuid.Nil, uuid.Nil, false
	}
	target, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		api.HandleError(w, api.NewBadRequestError("invalid user ID"))
		return uuid.Nil, uuid.Nil, false
	}
	return actor, target, true
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

func writeUserError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, users.ErrNotFound) {
		api.HandleError(w, api.NewNotFoundError("user not found"))
		return
	}
	slog.Error(op, "error", err)
	api.HandleError(w, api.ErrInternalServer)
}

package governance

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/hubideas/hubideas/internal/api"
	"github.com/hubideas/hubideas/internal/auth"
	"github.com/hubideas/hubideas/internal/governance/audit"
	"github.com/hubideas/hubideas/internal/governance/quota"
)

type QuotaReader interface {
	GetStatus(ctx context.Context, userID uuid.UUID) (*quota.Status, error)
}

type AuditLister interface {
	ListByOwner(ctx context.Context, ownerUserID uuid.UUID, params audit.ListParams) ([]audit.AuditLog, int64, error)
	ListAll(ctx context.Context, params audit.ListParams) ([]audit.AuditLog, int64, error)
}

// Handler provides HTTP handlers for governance endpoints.
type Handler struct {
	quotaSvc  QuotaReader
	auditRepo AuditLister
}

// NewHandler creates a new governance Handler.
func NewHandler(quotaSvc QuotaReader, auditRepo AuditLister) *Handler {
	return &Handler{
		quotaSvc:  quotaSvc,
		auditRepo: auditRepo,
	}
}

// GetQuota returns the authenticated user's current quota status.
func (h *Handler) GetQuota(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.CurrentUserID(r.Context())
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	status, err := h.quotaSvc.GetStatus(r.Context(), userID)
	if err != nil {
		if errors.Is(err, quota.ErrNotFound) {
			api.HandleError(w, api.ErrNotFound)
			return
		}
		slog.Error("governance: loading quota status", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSON(w, http.StatusOK, status)
}

// ListAuditLogs returns paginated audit logs for the authenticated user.
func (h *Handler) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.CurrentUserID(r.Context())
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	params := parseAuditParams(r)

	logs, total, err := h.auditRepo.ListByOwner(r.Context(), userID, params)
	if err != nil {
		slog.Error("governance: listing audit logs", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSONPaginated(w, http.StatusOK, logs, total, params.Page, params.PageSize)
}

// ListAllAuditLogs returns audit logs across all users. Admin only.
func (h *Handler) ListAllAuditLogs(w http.ResponseWriter, r *http.Request) {
	params := parseAuditParams(r)

	logs, total, err := h.auditRepo.ListAll(r.Context(), params)
	if err != nil {
		slog.Error("governance: listing all audit logs", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSONPaginated(w, http.StatusOK, logs, total, params.Page, params.PageSize)
}

func parseAuditParams(r *http.Request) audit.ListParams {
	params := audit.DefaultListParams()

	if et := r.URL.Query().Get("event_type"); et != "" {
		params.EventType = et
	}
	if sev := r.URL.Query().Get("severity"); sev != "" {
		params.Severity = sev
	}
	if p := r.URL.Query().Get("page"); p != "" {
		if page, err := strconv.Atoi(p); err == nil && page > 0 {
			params.Page = page
		}
	}
	if ps := r.URL.Query().Get("page_size"); ps != "" {
		if pageSize, err := strconv.Atoi(ps); err == nil && pageSize > 0 && pageSize <= 100 {
			params.PageSize = pageSize
		}
	}
	if from := r.URL.Query().Get("from"); from != "" {
		if t, err := time.Parse(time.RFC3339, from); err == nil {
			params.From = &t
		}
	}
	if to := r.URL.Query().Get("to"); to != "" {
		if t, err := time.Parse(time.RFC3339, to); err == nil {
			params.To = &t
		}
	}

	return params
}

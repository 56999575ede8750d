package push

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/hubideas/hubideas/internal/api"
)

type Handler struct {
	svc       *Service
	publicKey string
	validate  *validator.Validate
}

func NewHandler(svc *Service, vapidPublicKey string) *Handler {
	return &Handler{
		svc:       svc,
		publicKey: vapidPublicKey,
		validate:  validator.New(),
	}
}

// VAPIDKey returns the application server key browsers need to subscribe.
func (h *Handler) VAPIDKey(w http.ResponseWriter, r *http.Request) {
	if h.publicKey == "" {
		api.HandleError(w, &api.AppError{Code: http.StatusServiceUnavailable, Message: "push is not configured"})
		return
	}
	api.JSON(w, http.StatusOK, map[string]string{"publicKey": h.publicKey})
}

func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req SubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.NewBadRequestError("Invalid subscription"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	if _, err := h.svc.Subscribe(r.Context(), &req); err != nil {
		slog.Error("push: saving subscription", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	api.JSONRaw(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	var req UnsubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	deleted, err := h.svc.Unsubscribe(r.Context(), req.Endpoint)
	if err != nil {
		slog.Error("push: deleting subscription", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	if !deleted {
		api.HandleError(w, api.NewNotFoundError("subscription not found"))
		return
	}
	api.JSONMessage(w, http.StatusOK, "subscription removed")
}

// Stats reports the number of registered devices.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.Count(r.Context())
	if err != nil {
		slog.Error("push: counting subscriptions", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	api.JSON(w, http.StatusOK, map[string]int64{"subscriptions": n})
}

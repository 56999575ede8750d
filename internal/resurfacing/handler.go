package resurfacing

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hubideas/hubideas/internal/api"
)

// Runner is implemented by Scheduler.
type Runner interface {
	RunPass(ctx context.Context, secret string, force bool) (*Result, error)
}

// Handler exposes the trigger endpoint.
type Handler struct {
	runner Runner
}

func NewHandler(runner Runner) *Handler {
	return &Handler{runner: runner}
}

// Trigger runs a pass. It is called by an external scheduler with
// ?secret=...&force=true.
func (h *Handler) Trigger(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res, err := h.runner.RunPass(r.Context(), q.Get("secret"), q.Get("force") == "true")
	if err != nil {
		if errors.Is(err, ErrUnauthorized) {
			slog.Warn("resurfacing: trigger with invalid secret", "remote_addr", r.RemoteAddr)
			api.JSONRaw(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
			return
		}
		slog.Error("resurfacing: running pass", "error", err)
		api.JSONRaw(w, http.StatusInternalServerError, map[string]string{"error": "Failed to trigger notifications"})
		return
	}
	api.JSONRaw(w, http.StatusOK, res)
}

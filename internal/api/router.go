package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hubideas/hubideas/internal/database"
	mw "github.com/hubideas/hubideas/internal/middleware"
	inats "github.com/hubideas/hubideas/internal/nats"
)

// HandlerSet holds handler functions injected from main.go to avoid import cycles.
type HandlerSet struct {
	// Auth handlers
	Register http.HandlerFunc
	Login    http.HandlerFunc
	Refresh  http.HandlerFunc
	Logout   http.HandlerFunc
	MyStatus http.HandlerFunc

	// Sub-routers mounted under approved-user routes
	ProjectRoutes   func(chi.Router)
	AssistantRoutes func(chi.Router)

	// Push handlers
	VAPIDKey         http.HandlerFunc
	PushSubscribe    http.HandlerFunc
	PushUnsubscribe  http.HandlerFunc
	PushStats        http.HandlerFunc
	TriggerResurface http.HandlerFunc

	// Governance handlers
	GetUserQuota     http.HandlerFunc
	ListAuditLogs    http.HandlerFunc
	ListAllAuditLogs http.HandlerFunc

	// Admin
	AdminUserRoutes func(chi.Router)

	// Auth middleware
	AuthMiddleware  func(http.Handler) http.Handler
	RequireApproved func(http.Handler) http.Handler
	RequireAdmin    func(http.Handler) http.Handler
}

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	CORSAllowedOrigins []string
	AuthRateLimiter    func(http.Handler) http.Handler
}

func NewRouter(pool *pgxpool.Pool, natsClient *inats.Client, cfg RouterConfig, h HandlerSet) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.SecurityHeaders)
	r.Use(mw.Logging)
	r.Use(mw.Recovery)
	r.Use(mw.Metrics)
	r.Use(cors.Handler(mw.CORS(cfg.CORSAllowedOrigins)))

	// Liveness probe, always 200
	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		JSON(w, http.StatusOK, map[string]string{"status": "alive"})
	})

	readinessHandler := func(w http.ResponseWriter, r *http.Request) {
		health := map[string]string{
			"status":   "healthy",
			"database": "healthy",
			"nats":     "healthy",
		}

		status := http.StatusOK

		if pool == nil {
			health["database"] = "not configured"
			health["status"] = "degraded"
			status = http.StatusServiceUnavailable
		} else if err := database.HealthCheck(r.Context(), pool); err != nil {
			health["database"] = "unhealthy"
			health["status"] = "degraded"
			status = http.StatusServiceUnavailable
		}

		// NATS only carries audit events; losing it degrades but keeps serving.
		if natsClient == nil {
			health["nats"] = "not configured"
		} else if !natsClient.Healthy() {
			health["nats"] = "unhealthy"
			health["status"] = "degraded"
		}

		JSON(w, status, health)
	}

	r.Get("/health/ready", readinessHandler)
	r.Get("/health", readinessHandler)

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			if cfg.AuthRateLimiter != nil {
				r.Use(cfg.AuthRateLimiter)
			}
			r.Post("/register", h.Register)
			r.Post("/login", h.Login)
			r.Post("/refresh", h.Refresh)

			r.Group(func(r chi.Router) {
				r.Use(h.AuthMiddleware)
				r.Post("/logout", h.Logout)
			})
		})

		// Public push endpoints. The trigger authenticates with its own secret.
		r.Get("/push/vapid-key", h.VAPIDKey)
		r.Get("/push/trigger", h.TriggerResurface)
		r.Post("/push/trigger", h.TriggerResurface)

		// Authenticated, any status
		r.Group(func(r chi.Router) {
			r.Use(h.AuthMiddleware)
			r.Get("/users/me/status", h.MyStatus)

			// Approved users only
			r.Group(func(r chi.Router) {
				r.Use(h.RequireApproved)

				r.Route("/projects", h.ProjectRoutes)
				r.Route("/ai", h.AssistantRoutes)

				r.Post("/push/subscribe", h.PushSubscribe)
				r.Delete("/push/subscribe", h.PushUnsubscribe)

				r.Route("/governance", func(r chi.Router) {
					r.Get("/quota", h.GetUserQuota)
					r.Get("/audit", h.ListAuditLogs)
				})
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(h.RequireAdmin)
				r.Route("/users", h.AdminUserRoutes)
				r.Get("/audit", h.ListAllAuditLogs)
				r.Get("/push/stats", h.PushStats)
			})
		})
	})

	return r
}

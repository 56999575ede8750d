package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hubideas/hubideas/internal/admin"
	"github.com/hubideas/hubideas/internal/ai"
	"github.com/hubideas/hubideas/internal/api"
	"github.com/hubideas/hubideas/internal/assistant"
	"github.com/hubideas/hubideas/internal/auth"
	"github.com/hubideas/hubideas/internal/config"
	"github.com/hubideas/hubideas/internal/database"
	"github.com/hubideas/hubideas/internal/governance"
	"github.com/hubideas/hubideas/internal/governance/audit"
	"github.com/hubideas/hubideas/internal/governance/quota"
	mw "github.com/hubideas/hubideas/internal/middleware"
	inats "github.com/hubideas/hubideas/internal/nats"
	"github.com/hubideas/hubideas/internal/projects"
	"github.com/hubideas/hubideas/internal/push"
	iredis "github.com/hubideas/hubideas/internal/redis"
	"github.com/hubideas/hubideas/internal/resurfacing"
	"github.com/hubideas/hubideas/internal/server"
	"github.com/hubideas/hubideas/internal/users"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.Log)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// PostgreSQL
	if err := database.RunMigrations(cfg.DB.DSN(), cfg.DB.MigrationsPath); err != nil {
		slog.Error("running migrations", "error", err)
		os.Exit(1)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.DB)
	if err != nil {
		slog.Error("connecting to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Redis
	redisClient, err := iredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		slog.Error("connecting to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	// NATS (optional, audit trail only)
	var (
		natsClient *inats.Client
		events     inats.AuditPublisher
	)
	auditRepo := audit.NewRepository(pool)
	if cfg.NATS.URL != "" {
		natsClient, err = inats.NewClient(ctx, cfg.NATS)
		if err != nil {
			slog.Error("connecting to nats", "error", err)
			os.Exit(1)
		}
		defer natsClient.Close()

		events = inats.NewPublisher(natsClient.JetStream())

		consumer := audit.NewConsumer(auditRepo, inats.NewConsumerManager(natsClient.JetStream()))
		go func() {
			if err := consumer.Start(ctx); err != nil && ctx.Err() == nil {
				slog.Error("audit consumer stopped", "error", err)
			}
		}()
	}

	encryptor, err := auth.NewEncryptor(cfg.Encryption.Key)
	if err != nil {
		slog.Error("creating encryptor", "error", err)
		os.Exit(1)
	}

	// Users and auth
	userSvc := users.NewService(users.NewRepository(pool), events, cfg.Quota.DefaultTokenLimit, cfg.Admin.InitialEmail)
	jwtManager := auth.NewJWTManager(
		cfg.JWT.AccessSecret,
		cfg.JWT.RefreshSecret,
		cfg.JWT.AccessExpiry,
		cfg.JWT.RefreshExpiry,
	)
	authSvc := auth.NewService(jwtManager, redisClient)
	authHandler := auth.NewHandler(authSvc, userSvc)

	// Usage governor
	quotaSvc := quota.NewService(
		quota.NewRepository(pool),
		quota.NewBurstLimiter(redisClient),
		events,
		cfg.Quota.MaxRequestsPerMinute,
	)
	governanceHandler := governance.NewHandler(quotaSvc, auditRepo)

	// Projects
	projectRepo := projects.NewRepository(pool)
	projectSvc := projects.NewService(projectRepo, userSvc)
	projectHandler := projects.NewHandler(projectSvc)

	// AI
	gemini, err := ai.NewGemini(ctx, cfg.AI)
	if err != nil {
		slog.Error("creating ai client", "error", err)
		os.Exit(1)
	}
	assistantHandler := assistant.NewHandler(gemini, quotaSvc, projectSvc)

	// Push
	pushSvc := push.NewService(
		push.NewRepository(pool, encryptor),
		push.NewWebPushSender(cfg.Push),
		events,
	)
	pushHandler := push.NewHandler(pushSvc, cfg.Push.VAPIDPublicKey)

	// Resurfacing
	scheduler := resurfacing.NewScheduler(
		cfg.Resurfacing.Secret,
		projectRepo,
		quotaSvc,
		gemini,
		pushSvc,
		resurfacing.WithLocker(resurfacing.NewRedisLocker(redisClient, cfg.Resurfacing.LockTTL)),
		resurfacing.WithEvents(events),
		resurfacing.WithAITimeout(cfg.AI.Timeout),
	)
	resurfacingHandler := resurfacing.NewHandler(scheduler)

	adminHandler := admin.NewHandler(userSvc)

	authLimiter := mw.NewRateLimiter(redisClient, "auth", cfg.RateLimit.AuthMaxRequests, cfg.RateLimit.AuthWindowSec)

	// Router
	router := api.NewRouter(pool, natsClient, api.RouterConfig{
		CORSAllowedOrigins: cfg.CORS.AllowedOrigins,
		AuthRateLimiter:    authLimiter.Middleware,
	}, api.HandlerSet{
		Register: authHandler.Register,
		Login:    authHandler.Login,
		Refresh:  authHandler.Refresh,
		Logout:   authHandler.Logout,
		MyStatus: authHandler.MyStatus,

		ProjectRoutes:   projectHandler.Routes,
		AssistantRoutes: assistantHandler.Routes,

		VAPIDKey:         pushHandler.VAPIDKey,
		PushSubscribe:    pushHandler.Subscribe,
		PushUnsubscribe:  pushHandler.Unsubscribe,
		PushStats:        pushHandler.Stats,
		TriggerResurface: resurfacingHandler.Trigger,

		GetUserQuota:     governanceHandler.GetQuota,
		ListAuditLogs:    governanceHandler.ListAuditLogs,
		ListAllAuditLogs: governanceHandler.ListAllAuditLogs,

		AdminUserRoutes: adminHandler.Routes,

		AuthMiddleware:  auth.Middleware(authSvc),
		RequireApproved: auth.RequireApproved,
		RequireAdmin:    auth.RequireAdmin,
	})

	// Start server
	srv := server.New(cfg.Server, router)
	if err := srv.Run(ctx); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func setupLogger(cfg config.LogConfig) {
	var handler slog.Handler

	opts := &slog.HandlerOptions{}
	switch cfg.Level {
	case "debug":
		opts.Level = slog.LevelDebug
	case "info":
		opts.Level = slog.LevelInfo
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	default:
		opts.Level = slog.LevelInfo
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}

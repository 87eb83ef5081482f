package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/shopspring/decimal"

	"github.com/adforge-app/adforge/internal/admin"
	"github.com/adforge-app/adforge/internal/assets"
	"github.com/adforge-app/adforge/internal/audit"
	"github.com/adforge-app/adforge/internal/auth"
	"github.com/adforge-app/adforge/internal/billing"
	"github.com/adforge-app/adforge/internal/config"
	"github.com/adforge-app/adforge/internal/credits"
	"github.com/adforge-app/adforge/internal/database"
	"github.com/adforge-app/adforge/internal/generation"
	inats "github.com/adforge-app/adforge/internal/nats"
	"github.com/adforge-app/adforge/internal/projects"
	"github.com/adforge-app/adforge/internal/ratelimit"
	"github.com/adforge-app/adforge/internal/redis"
	"github.com/adforge-app/adforge/internal/router"
	"github.com/adforge-app/adforge/internal/server"
	"github.com/adforge-app/adforge/internal/users"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.Log)

	ctx := context.Background()

	pool, err := database.NewPostgresPool(ctx, cfg.DB)
	if err != nil {
		slog.Error("connecting to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := database.RunMigrations(cfg.DB.DSN(), cfg.DB.MigrationsPath); err != nil {
		slog.Error("running migrations", "error", err)
		os.Exit(1)
	}

	redisClient, err := redis.NewClient(ctx, cfg.Redis)
	if err != nil {
		slog.Error("connecting to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	natsClient, err := inats.NewClient(ctx, cfg.NATS)
	if err != nil {
		slog.Error("connecting to nats", "error", err)
		os.Exit(1)
	}
	defer natsClient.Close()

	limiter := ratelimit.NewLimiter()
	defer limiter.Shutdown()

	publisher := inats.NewPublisher(natsClient.JetStream())

	// Ledger and services.
	ledgerStore := credits.NewPostgresStore(pool)
	ledger := credits.NewService(ledgerStore)

	userRepo := users.NewRepository(pool)
	userSvc := users.NewService(userRepo)

	jwtManager := auth.NewJWTManager(cfg.JWT.AccessSecret, cfg.JWT.RefreshSecret, cfg.JWT.AccessExpiry, cfg.JWT.RefreshExpiry)
	authSvc := auth.NewService(jwtManager, redisClient)

	signupBonus, err := decimal.NewFromString(cfg.Credits.SignupBonus)
	if err != nil {
		slog.Error("parsing signup bonus", "error", err)
		os.Exit(1)
	}

	projectRepo := projects.NewRepository(pool)
	projectSvc := projects.NewService(projectRepo)

	assetRepo := assets.NewRepository(pool)

	genRepo := generation.NewRepository(pool)
	genSvc := generation.NewService(genRepo, ledger, publisher)

	auditRepo := audit.NewRepository(pool)

	// Background consumers.
	worker := generation.NewWorker(natsClient, genRepo, ledger, assetRepo, generation.NewStubGenerator())
	if err := worker.Start(ctx); err != nil {
		slog.Error("starting generation worker", "error", err)
		os.Exit(1)
	}
	defer worker.Stop()

	auditConsumer := audit.NewConsumer(natsClient, auditRepo)
	if err := auditConsumer.Start(ctx); err != nil {
		slog.Error("starting audit consumer", "error", err)
		os.Exit(1)
	}
	defer auditConsumer.Stop()

	handler := router.New(router.Deps{
		Config:  cfg,
		Limiter: limiter,
		Pool:    pool,
		Redis:   redisClient,
		NATS:    natsClient,

		AuthSvc:     authSvc,
		AuthHandler: auth.NewHandler(authSvc, userSvc, ledger, signupBonus),

		CreditsHandler:    credits.NewHandler(ledger),
		ProjectsHandler:   projects.NewHandler(projectSvc),
		AssetsHandler:     assets.NewHandler(assetRepo),
		GenerationHandler: generation.NewHandler(genSvc, projectSvc),
		AuditHandler:      audit.NewHandler(auditRepo),
		AdminHandler:      admin.NewHandler(ledger, publisher),
		BillingWebhook:    billing.NewWebhookHandler(cfg.Billing.WebhookSecret, redisClient, ledger, publisher),
	})

	srv := server.New(cfg.Server, handler)
	if err := srv.Start(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(handler))
}

package router

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"

	"github.com/adforge-app/adforge/internal/admin"
	"github.com/adforge-app/adforge/internal/api"
	"github.com/adforge-app/adforge/internal/assets"
	"github.com/adforge-app/adforge/internal/audit"
	"github.com/adforge-app/adforge/internal/auth"
	"github.com/adforge-app/adforge/internal/billing"
	"github.com/adforge-app/adforge/internal/config"
	"github.com/adforge-app/adforge/internal/credits"
	"github.com/adforge-app/adforge/internal/database"
	"github.com/adforge-app/adforge/internal/generation"
	"github.com/adforge-app/adforge/internal/middleware"
	inats "github.com/adforge-app/adforge/internal/nats"
	"github.com/adforge-app/adforge/internal/projects"
	"github.com/adforge-app/adforge/internal/ratelimit"
)

// Deps carries everything the router wires together.
type Deps struct {
	Config  *config.Config
	Limiter *ratelimit.Limiter

	Pool  *pgxpool.Pool
	Redis *goredis.Client
	NATS  *inats.Client

	AuthSvc     *auth.Service
	AuthHandler *auth.Handler

	CreditsHandler    *credits.Handler
	ProjectsHandler   *projects.Handler
	AssetsHandler     *assets.Handler
	GenerationHandler *generation.Handler
	AuditHandler      *audit.Handler
	AdminHandler      *admin.Handler
	BillingWebhook    *billing.WebhookHandler
}

// New assembles the HTTP routing tree. Rate limiting runs inside the
// authenticated groups so limits key on user ID where one exists; the
// unauthenticated auth endpoints key on client IP.
func New(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(middleware.Recovery)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.Metrics)
	r.Use(cors.Handler(middleware.CORS(d.Config.CORS.AllowedOrigins)))

	limit := func(class ratelimit.Class) func(http.Handler) http.Handler {
		return middleware.RateLimit(d.Limiter, class)
	}

	r.Get("/health/live", handleLive)
	r.Get("/health/ready", handleReady(d))
	r.Handle("/metrics", promhttp.Handler())

	// Payment provider callbacks: HMAC-verified, never JWT-authed.
	r.With(limit(ratelimit.ClassWrite)).Post("/webhooks/billing", d.BillingWebhook.Handle)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(limit(ratelimit.ClassAuth))
				r.Post("/register", d.AuthHandler.Register)
				r.Post("/login", d.AuthHandler.Login)
				r.Post("/refresh", d.AuthHandler.Refresh)
			})
			r.Group(func(r chi.Router) {
				r.Use(auth.Middleware(d.AuthSvc))
				r.Use(limit(ratelimit.ClassAuth))
				r.Post("/logout", d.AuthHandler.Logout)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(d.AuthSvc))

			r.Route("/credits", func(r chi.Router) {
				r.Use(limit(ratelimit.ClassRead))
				r.Get("/balance", d.CreditsHandler.GetBalance)
				r.Get("/transactions", d.CreditsHandler.ListTransactions)
			})

			r.Route("/projects", func(r chi.Router) {
				r.With(limit(ratelimit.ClassWrite)).Post("/", d.ProjectsHandler.Create)
				r.With(limit(ratelimit.ClassRead)).Get("/", d.ProjectsHandler.List)

				r.Route("/{projectID}", func(r chi.Router) {
					r.Use(d.ProjectsHandler.OwnershipMiddleware)
					r.With(limit(ratelimit.ClassRead)).Get("/", d.ProjectsHandler.Get)
					r.With(limit(ratelimit.ClassWrite)).Put("/", d.ProjectsHandler.Update)
					r.With(limit(ratelimit.ClassWrite)).Delete("/", d.ProjectsHandler.Delete)

					r.With(limit(ratelimit.ClassRead)).Get("/assets", d.AssetsHandler.ListByProject)
					r.With(limit(ratelimit.ClassWrite)).Delete("/assets/{assetID}", d.AssetsHandler.Delete)
				})
			})

			r.Route("/generations", func(r chi.Router) {
				r.With(limit(ratelimit.ClassGeneration)).Post("/", d.GenerationHandler.Create)
				r.With(limit(ratelimit.ClassRead)).Get("/", d.GenerationHandler.List)
				r.With(limit(ratelimit.ClassRead)).Get("/{jobID}", d.GenerationHandler.Get)
			})

			r.With(limit(ratelimit.ClassRead)).Get("/audit", d.AuditHandler.List)

			r.Route("/admin", func(r chi.Router) {
				r.Use(auth.AdminOnly)
				r.With(limit(ratelimit.ClassWrite)).Post("/credits/adjust", d.AdminHandler.AdjustCredits)
			})
		})
	})

	return r
}

func handleLive(w http.ResponseWriter, _ *http.Request) {
	api.JSONMessage(w, http.StatusOK, "ok")
}

func handleReady(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := database.HealthCheck(ctx, d.Pool); err != nil {
			api.JSONErrorMessage(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		if err := d.Redis.Ping(ctx).Err(); err != nil {
			api.JSONErrorMessage(w, http.StatusServiceUnavailable, "redis unavailable")
			return
		}
		if !d.NATS.Healthy() {
			api.JSONErrorMessage(w, http.StatusServiceUnavailable, "nats unavailable")
			return
		}

		api.JSONMessage(w, http.StatusOK, "ready")
	}
}

package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ledgerkit/banksync/internal/adapter/http/handler"
	"github.com/ledgerkit/banksync/internal/adapter/http/middleware"
	"github.com/ledgerkit/banksync/internal/infrastructure/auth"
	"github.com/ledgerkit/banksync/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	SyncHandler       *handler.SyncHandler
	ConnectionHandler *handler.ConnectionHandler
	SnapshotHandler   *handler.SnapshotHandler
	WebhookHandler    *handler.WebhookHandler
	HealthHandler     *handler.HealthHandler

	JWTManager       *auth.JWTManager
	MembershipRepo   usecase.MembershipRepository
	IdempotencyStore middleware.IdempotencyStore
	IdempotencyTTL   time.Duration
	Logging          *middleware.LoggingMiddleware
	Metrics          *middleware.MetricsMiddleware
	RateLimiter      *middleware.RateLimiter
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	if cfg.Logging != nil {
		r.Use(cfg.Logging.Wrap)
	}
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Wrap)
	}
	r.Use(middleware.Recovery)
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Limit)
	}

	// Health and metrics endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	// Aggregator webhooks authenticate with a shared secret, not a JWT.
	r.Post("/webhooks/aggregator", cfg.WebhookHandler.Receive)

	// API v1
	r.Route("/api/v1/businesses/{businessID}", func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(cfg.JWTManager))
		r.Use(middleware.NewMembershipMiddleware(cfg.MembershipRepo).Wrap)

		r.Get("/connections", cfg.ConnectionHandler.StatusAll)
		r.Get("/snapshots/{snapshotID}", cfg.SnapshotHandler.Get)

		// Mutating routes: write-capable roles only, sync and snapshot
		// POSTs deduplicated by Idempotency-Key.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireWrite)
			if cfg.IdempotencyStore != nil {
				r.Use(middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.IdempotencyTTL).Wrap)
			}

			r.Post("/accounts/{accountID}/sync", cfg.SyncHandler.Trigger)
			r.Post("/accounts/{accountID}/connection", cfg.ConnectionHandler.Connect)
			r.Patch("/accounts/{accountID}/connection/start-date", cfg.ConnectionHandler.UpdateStartDate)
			r.Post("/snapshots", cfg.SnapshotHandler.Create)
		})

		r.Get("/accounts/{accountID}/connection", cfg.ConnectionHandler.Status)
	})

	return r
}

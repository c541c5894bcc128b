package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/iho/finledger/internal/adapter/http/handler"
	"github.com/iho/finledger/internal/adapter/http/middleware"
	"github.com/iho/finledger/internal/usecase"
)

// RouterMetrics is the subset of the metrics registry the router reports to.
type RouterMetrics interface {
	middleware.HTTPRecorder
	IdempotentReplay()
}

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	UserHandler      *handler.UserHandler
	StatementHandler *handler.StatementHandler
	LedgerHandler    *handler.LedgerHandler
	HealthHandler    *handler.HealthHandler

	TokenVerifier middleware.TokenVerifier
	Logger        zerolog.Logger

	// Optional
	IdempotencyStore   usecase.IdempotencyStore
	IdempotencyTTL     time.Duration
	RateLimiter        *middleware.RateLimiter
	Metrics            RouterMetrics
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}
	r.Use(middleware.Recovery)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSAllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.IdempotencyKeyHeader},
			ExposedHeaders:   []string{middleware.IdempotencyReplayHeader},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Limit)
	}

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/users", cfg.UserHandler.Register)
		r.Post("/sessions", cfg.UserHandler.CreateSession)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(cfg.TokenVerifier))

			// Keys are scoped to the caller, so this runs after authentication.
			if cfg.IdempotencyStore != nil {
				idempotency := middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.IdempotencyTTL)
				if cfg.Metrics != nil {
					idempotency.OnReplay(cfg.Metrics.IdempotentReplay)
				}
				r.Use(idempotency.Wrap)
			}

			r.Get("/profile", cfg.UserHandler.Profile)

			r.Route("/statements", func(r chi.Router) {
				r.Get("/balance", cfg.StatementHandler.Balance)
				r.Post("/deposit", cfg.StatementHandler.Deposit)
				r.Post("/withdraw", cfg.StatementHandler.Withdraw)
				r.Post("/transfers/{user_id}", cfg.StatementHandler.Transfer)
				r.Get("/{statement_id}", cfg.StatementHandler.Get)
			})

			r.Get("/ledger/consistency", cfg.LedgerHandler.CheckConsistency)
		})
	})

	return r
}

package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/capitalize-ai/taskform-bot/internal/middleware"
	"github.com/capitalize-ai/taskform-bot/pkg/logger"
)

// RouterConfig collects the handlers and settings of the HTTP API.
type RouterConfig struct {
	Health   *HealthHandler
	Messages *MessageHandler
	Tasks    *TaskHandler
	Logger   *logger.Logger

	JWTSecret         string
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// NewRouter builds the HTTP API.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With", "X-Correlation-ID"},
		ExposedHeaders:   []string{"X-Correlation-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", cfg.Health.Health)
	r.Get("/ready", cfg.Health.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Route("/conversations", func(r chi.Router) {
			r.Post("/", cfg.Messages.Create)
			r.Post("/{id}/messages", cfg.Messages.Send)
		})

		r.Get("/tasks", cfg.Tasks.List)
	})

	return r
}

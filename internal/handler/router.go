package handler

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/usersvc/usersvc/internal/middleware"
)

// RouterConfig carries the handlers and middleware settings for NewRouter.
type RouterConfig struct {
	Health  *HealthHandler
	Users   *UserHandler
	Metrics *MetricsHandler
	Logger  *slog.Logger

	IsDevelopment      bool
	CORSAllowedOrigins []string
	MaxRequestBodySize int64
}

// NewRouter configures the chi router with all routes and middleware.
func NewRouter(cfg RouterConfig) *chi.Mux {
	h := New()
	r := chi.NewRouter()

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.CORSAllowedOrigins

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recoverer(cfg.Logger, cfg.IsDevelopment))
	r.Use(middleware.Security(middleware.SecurityConfig{IsDevelopment: cfg.IsDevelopment}))
	r.Use(middleware.CORS(corsCfg))
	if cfg.MaxRequestBodySize > 0 {
		r.Use(middleware.MaxBodySize(cfg.MaxRequestBodySize))
	}

	r.Get("/health", cfg.Health.Health)
	r.Get("/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		r.Get("/metrics", cfg.Metrics.Metrics)
	}
	r.Get("/", h.Hello)

	r.Route("/api/users", func(r chi.Router) {
		r.Get("/", cfg.Users.List)
		r.Post("/", cfg.Users.Create)
		r.Get("/{id}", cfg.Users.Get)
		r.Put("/{id}", cfg.Users.Update)
		r.Delete("/{id}", cfg.Users.Delete)
	})

	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	return r
}

package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/reposift/reposift/internal/api/handlers"
	"github.com/reposift/reposift/internal/api/middleware"
)

type RouterConfig struct {
	SearchHandler    *handlers.SearchHandler
	SummariesHandler *handlers.SummariesHandler
	HealthHandler    *handlers.HealthHandler
	Logger           *slog.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 64 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.Tracing)
	r.Use(middleware.AccessLog(cfg.Logger))
	r.Use(middleware.BodyLimit(maxBodyBytes))

	r.Get("/health", cfg.HealthHandler.Health)
	r.Post("/search", cfg.SearchHandler.Search)
	r.Get("/summaries/{org}/{repo}", cfg.SummariesHandler.Get)

	return r
}

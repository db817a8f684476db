package app

import (
	"database/sql"
	"net/http"
	"time"

	"quizbank/internal/app/apiresp"
	"quizbank/internal/app/observability"
	"quizbank/internal/question"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// NewRouter wires the question API around repo. seedDB is only used for pool
// metrics and may be nil.
func NewRouter(cfg Config, repo *question.Repository, seedDB *sql.DB, log *zap.Logger) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}

	collector := observability.NewCollector(repo, seedDB, log)
	writeLimiter := NewIPRateLimiter(cfg.WriteRateLimitPerMin, time.Minute)
	questionHandler := question.NewHandler(repo, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	r.Use(collector.Middleware)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		apiresp.WriteError(w, r, http.StatusNotFound, "")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		apiresp.WriteError(w, r, http.StatusMethodNotAllowed, "")
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		apiresp.WriteOK(w, r, http.StatusOK, map[string]int{"questions": repo.Len()})
	})
	r.Get("/metrics", collector.MetricsHandler)

	r.Route("/questions", func(qr chi.Router) {
		qr.Get("/", questionHandler.List)
		qr.Get("/{id}", questionHandler.ListByIDs)

		qr.Group(func(write chi.Router) {
			write.Use(RateLimitMiddleware(writeLimiter))
			write.Use(RequireWriteToken(cfg.WriteTokenHash))
			write.Post("/", questionHandler.Create)
			write.Put("/{id}", questionHandler.Update)
			write.Delete("/{id}", questionHandler.Delete)
		})
	})

	return r
}

package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"groundedkb/internal/handlers"
	"groundedkb/internal/service"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	AnswerService service.AnswerService
	// HealthChecks are run by GET /api/health, keyed by dependency name.
	HealthChecks map[string]handlers.CheckFunc
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(LoggerMiddleware)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(CORS)

	answerHandler := handlers.NewAnswerHandler(deps.AnswerService)
	healthHandler := handlers.NewHealthHandler(deps.HealthChecks)

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodGet, "/health", healthHandler)
		r.Route("/v1", func(r chi.Router) {
			r.Method(http.MethodPost, "/answer", answerHandler)
		})
	})

	return r
}

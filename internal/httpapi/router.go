package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter builds the chi router for the service, following the
// teacher's route-grouping shape.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(requestLogger(h.logger))
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Post("/shorten", h.ShortenHandler)
		r.Get("/info/{code}", h.InfoHandler)
	})

	r.Get("/health", h.HealthHandler)
	r.Get("/healthz", h.HealthHandler)

	r.Route("/{code}", func(r chi.Router) {
		r.Get("/", h.RedirectHandler)
	})

	r.NotFound(func(rw http.ResponseWriter, r *http.Request) {
		writeError(rw, http.StatusNotFound, "NotFound", "not found", "")
	})

	r.MethodNotAllowed(func(rw http.ResponseWriter, r *http.Request) {
		writeError(rw, http.StatusMethodNotAllowed, "MethodNotAllowed", "method not allowed", "")
	})

	return r
}

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func (h *Handler) Routes(m *Middleware, metricsHandler http.Handler, corsOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(m.RequestID)
	r.Use(m.RequestLogger)
	r.Use(m.Recoverer)
	r.Use(m.SecurityHeaders)
	r.Use(middleware.Compress(5, "application/json", "text/plain"))
	r.Use(m.Timeout(15 * time.Second))
	r.Use(middleware.Heartbeat("/ping"))

	r.Use(m.CORS(corsOrigins))
	r.Use(m.RateLimit)

	// Health endpoints
	r.Get("/health", h.Health)
	r.Get("/healthz", h.Healthz)
	r.Get("/readyz", h.Readyz)

	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}

	r.Route("/medias", func(r chi.Router) {
		r.Get("/health", h.MediasHealth)
		r.Post("/", h.CreateMedia)
		r.Get("/", h.ListMedias)
		r.Get("/{id}", h.GetMedia)
		r.Patch("/{id}", h.UpdateMedia)
		r.Delete("/{id}", h.DeleteMedia)
	})

	r.Route("/posts", func(r chi.Router) {
		r.Get("/health", h.PostsHealth)
		r.Post("/", h.CreatePost)
		r.Get("/", h.ListPosts)
		r.Get("/{id}", h.GetPost)
		r.Patch("/{id}", h.UpdatePost)
		r.Delete("/{id}", h.DeletePost)
	})

	r.Route("/publications", func(r chi.Router) {
		r.Get("/health", h.PublicationsHealth)
		r.Post("/", h.CreatePublication)
		r.Get("/", h.ListPublications)
		r.Get("/{id}", h.GetPublication)
		r.Patch("/{id}", h.UpdatePublication)
		r.Delete("/{id}", h.DeletePublication)
	})

	return r
}

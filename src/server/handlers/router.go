package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type RouterConfig struct {
	Health          *HealthHandler
	Reconstructions *ReconstructionHandler
	CORSOrigins     []string
	// RequireAuth guards write routes when non-nil.
	RequireAuth func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", cfg.Health.Check)

	rh := cfg.Reconstructions
	r.Route("/reconstructions", func(r chi.Router) {
		r.Get("/", rh.List)
		r.Get("/{id}", rh.Get)
		r.Get("/{id}/document", rh.Document)

		r.Group(func(r chi.Router) {
			if cfg.RequireAuth != nil {
				r.Use(cfg.RequireAuth)
			}
			r.Post("/", rh.Create)
			r.Post("/batch", rh.CreateBatch)
		})
	})

	return r
}

package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter wires HTTP routes to the server's handlers.
func NewRouter(s *Server) (http.Handler, error) {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/decode", s.handleDecode)
		r.Post("/verify", s.handleVerify)
		r.Post("/patch", s.handlePatch)
		r.Post("/report", s.handleReport)
		r.Get("/artifacts", s.handleArtifacts)
		r.Get("/artifacts/{id}", s.handleArtifactDownload)
	})
	return r, nil
}

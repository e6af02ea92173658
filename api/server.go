package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	statex "github.com/brandguard-ai/brandguard/audit/state"
)

// Auditor is the slice of the audit service the API needs.
type Auditor interface {
	Run(ctx context.Context, videoURL, videoID string) (*statex.AuditState, error)
}

// Server exposes the audit pipeline over HTTP.
type Server struct {
	auditor Auditor
	router  chi.Router
}

func NewServer(auditor Auditor) *Server {
	s := &Server{auditor: auditor}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Post("/audit", s.handleAudit)
	r.Get("/healthz", s.handleHealthz)

	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

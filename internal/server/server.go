// Package server exposes the resolver and submission store over HTTP.
// Authentication is a collaborator's concern: the caller identity arrives in
// a trusted header set by the fronting proxy.
package server

import (
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/parcelworks/addrsplit/internal/pipeline"
	"github.com/parcelworks/addrsplit/internal/store"
)

// UserHeader carries the caller's subject identifier.
const UserHeader = "X-User-Sub"

// ModelInfo describes one selectable generative model.
type ModelInfo struct {
	ID       string `json:"modelId"`
	Provider string `json:"provider"`
	Name     string `json:"name"`
}

// Server wires the HTTP routes to the resolver and store.
type Server struct {
	store    store.Store
	resolver *pipeline.Resolver
	models   []ModelInfo
	origins  []string
}

// Option configures the server.
type Option func(*Server)

// WithModels sets the model catalog returned by GET /models.
func WithModels(models []ModelInfo) Option {
	return func(s *Server) { s.models = models }
}

// WithAllowedOrigins sets the CORS origin allowlist. Empty means any origin.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) { s.origins = origins }
}

// New creates a Server.
func New(st store.Store, resolver *pipeline.Resolver, opts ...Option) *Server {
	s := &Server{store: st, resolver: resolver}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the chi handler with CORS and recovery middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	origins := s.origins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type", UserHeader},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(s.requireUser)
		r.Post("/split", s.handleSplit)
		r.Get("/recent", s.handleRecent)
		r.Get("/submission/{id}", s.handleGetSubmission)
		r.Put("/submission/{id}/preferred", s.handleSetPreferred)
		r.Get("/prompt", s.handleGetPrompt)
		r.Put("/prompt", s.handlePutPrompt)
		r.Get("/models", s.handleModels)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "ts": time.Now().Unix()})
}

func (s *Server) handleModels(w http.ResponseWriter, _ *http.Request) {
	models := make([]ModelInfo, len(s.models))
	copy(models, s.models)
	sort.Slice(models, func(i, j int) bool {
		if models[i].Provider != models[j].Provider {
			return models[i].Provider < models[j].Provider
		}
		return models[i].Name < models[j].Name
	})
	writeJSON(w, http.StatusOK, map[string]any{"models": models})
}

// requireUser rejects requests without a caller identity.
func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(UserHeader) == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func userSub(r *http.Request) string {
	return r.Header.Get(UserHeader)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zap.L().Warn("server: write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

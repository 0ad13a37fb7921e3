// Package server is the HTTP front of mnemo: the GraphQL endpoint, a health
// check and the embedded web client.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	graphql "github.com/graph-gophers/graphql-go"
	"github.com/graph-gophers/graphql-go/relay"
	"go.uber.org/zap"

	"github.com/lazypower/mnemo/internal/auth"
	"github.com/lazypower/mnemo/internal/store"
)

// Server is the mnemo HTTP API server.
type Server struct {
	db      *store.DB
	schema  *graphql.Schema
	issuer  *auth.Issuer
	logger  *zap.Logger
	router  chi.Router
	version string
	started time.Time
}

// New creates a Server serving schema. Requests carrying a bearer token are
// verified with issuer before they reach a resolver.
func New(db *store.DB, schema *graphql.Schema, issuer *auth.Issuer, logger *zap.Logger, version string) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		db:      db,
		schema:  schema,
		issuer:  issuer,
		logger:  logger,
		version: version,
		started: time.Now(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog(s.logger))
	r.Use(middleware.Recoverer)

	r.Get("/api/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(s.issuer, s.logger))
		r.Post("/graphql", (&relay.Handler{Schema: s.schema}).ServeHTTP)
		r.Get("/graphql", s.handleGraphQLGet)
	})

	r.NotFound(spaHandler())
	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbOK := true
	if err := s.db.PingContext(r.Context()); err != nil {
		dbOK = false
		s.logger.Warn("health check: database unreachable", zap.Error(err))
	}

	code, status := http.StatusOK, "ok"
	if !dbOK {
		code, status = http.StatusServiceUnavailable, "degraded"
	}
	writeJSON(w, code, map[string]any{
		"status":  status,
		"version": s.version,
		"uptime":  time.Since(s.started).Seconds(),
		"db":      dbOK,
		"driver":  s.db.Driver,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

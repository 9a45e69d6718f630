package api

import (
	"log/slog"
	"net/http"

	"github.com/dgallion1/mdschema/internal/config"
	"github.com/dgallion1/mdschema/internal/parser"
	"github.com/dgallion1/mdschema/internal/session"
	"github.com/dgallion1/mdschema/internal/stats"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP API server for mdschema.
type Server struct {
	router   chi.Router
	parser   *parser.Parser
	sessions *session.Store
	stats    *stats.Recorder
	log      *slog.Logger
	cfg      config.Config
}

// NewServer creates and configures the HTTP server. rec may be nil.
func NewServer(p *parser.Parser, sessions *session.Store, rec *stats.Recorder, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		parser:   p,
		sessions: sessions,
		stats:    rec,
		log:      log,
		cfg:      cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/api/parse", s.handleParse)
		r.Delete("/api/cache", s.handleClearCache)
		r.Post("/api/serialize", s.handleSerialize)
		r.Post("/api/import", s.handleImport)
		r.Get("/api/stats/parse", s.handleParseStats)

		r.Route("/api/sessions", func(r chi.Router) {
			r.Post("/", s.handleCreateSession)
			r.Get("/{sessionID}", s.handleGetSession)
			r.Delete("/{sessionID}", s.handleDeleteSession)
			r.Post("/{sessionID}/append", s.handleAppendSession)
			r.Get("/{sessionID}/ws", s.handleSessionWS)
		})
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// Package server exposes the analysis pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ppiankov/claimlens/internal/logging"
	"github.com/ppiankov/claimlens/internal/model"
	"github.com/ppiankov/claimlens/internal/search"
	"github.com/ppiankov/claimlens/internal/store"
)

const maxBodyBytes = 10 << 20

// Analyzer runs analyses. *pipeline.Orchestrator implements it.
type Analyzer interface {
	Run(ctx context.Context, req model.AnalysisRequest) <-chan model.Event
	Collect(ctx context.Context, req model.AnalysisRequest) (*model.AnalysisOutcome, error)
}

// Analyses reads saved analyses. *store.Store implements it.
type Analyses interface {
	GetAnalysis(ctx context.Context, id string) (*model.AnalysisRecord, error)
	LatestForURL(ctx context.Context, rawURL string) (*model.AnalysisRecord, error)
	ListAnalyses(ctx context.Context, limit int) ([]store.Summary, error)
}

// Middleware wraps an http.Handler
type Middleware func(http.Handler) http.Handler

// Server is the claimlens HTTP API server
type Server struct {
	analyzer Analyzer
	analyses Analyses
	fetcher  ArticleFetcher
	searcher search.Searcher
	cfg      model.ServerConfig
	version  string
	log      *logrus.Entry
	started  time.Time
	mux      *http.ServeMux
	handler  http.Handler
	server   *http.Server
}

// Option configures a Server
type Option func(*Server)

// WithAnalyses enables the saved-analysis endpoints
func WithAnalyses(a Analyses) Option {
	return func(s *Server) { s.analyses = a }
}

// WithLogger sets the log entry
func WithLogger(entry *logrus.Entry) Option {
	return func(s *Server) { s.log = entry }
}

// WithVersion sets the version reported by /api/status
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// New creates a server for analyzer
func New(analyzer Analyzer, cfg model.ServerConfig, opts ...Option) *Server {
	s := &Server{
		analyzer: analyzer,
		cfg:      cfg,
		version:  "dev",
		log:      logging.Discard(),
		started:  time.Now(),
		mux:      http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerRoutes()

	// Outermost first
	middlewares := []Middleware{requestLogger(s.log), cors(cfg.AllowedOrigins)}
	var handler http.Handler = s.mux
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	s.handler = handler

	readTimeout := cfg.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 30 * time.Second
	}
	// No write timeout: streams last as long as the analysis
	s.server = &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       readTimeout,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/status", s.handleStatus)
	s.mux.HandleFunc("POST /api/search-and-fetch-stream", s.handleStream)
	s.mux.HandleFunc("POST /api/analyze", s.handleAnalyze)

	if s.fetcher != nil {
		s.mux.HandleFunc("POST /api/fetch-article", s.handleFetchArticle)
		s.mux.HandleFunc("POST /api/fetch-articles", s.handleFetchArticles)
		s.mux.HandleFunc("POST /api/validate-url", s.handleValidateURL)
	}
	if s.searcher != nil {
		s.mux.HandleFunc("POST /api/search-news", s.handleSearchNews)
	}

	if s.analyses != nil {
		s.mux.HandleFunc("GET /api/analyses", s.handleListAnalyses)
		s.mux.HandleFunc("GET /api/analyses/latest", s.handleLatestAnalysis)
		s.mux.HandleFunc("GET /api/analyses/{id}", s.handleGetAnalysis)
		s.mux.HandleFunc("GET /api/analyses/{id}/report", s.handleAnalysisReport)
	}
}

// Handler returns the HTTP handler with middleware applied
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", s.cfg.Addr).Info("server listening")
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	grace := s.cfg.ShutdownGrace
	if grace <= 0 {
		grace = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()

	s.log.Info("shutting down")
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.WithError(err).Warn("json encode failed")
	}
}

// writeError writes a JSON error response
func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// readJSON decodes a JSON request body into v
func readJSON(w http.ResponseWriter, r *http.Request, v any) error {
	if r.Body == nil {
		return errors.New("empty request body")
	}
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer func() { _ = body.Close() }()
	if err := json.NewDecoder(body).Decode(v); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}
	_, _ = io.Copy(io.Discard, body)
	return nil
}

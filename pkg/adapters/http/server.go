// Package http exposes route inspection, keyword matching and stored runs
// over a JSON HTTP API.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/stanza/internal/dto"
	"github.com/aretw0/stanza/internal/logging"
	"github.com/aretw0/stanza/pkg/domain"
	"github.com/aretw0/stanza/pkg/ports"
	"github.com/aretw0/stanza/pkg/route"
	"github.com/aretw0/stanza/pkg/script"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Resolver matches and binds a keyword occurrence without invoking it.
// *dispatch.Dispatcher implements it.
type Resolver interface {
	Resolve(ctx context.Context, kw *domain.Keyword) error
}

// RouteLister lists registered routes. *registry.Registry implements it.
type RouteLister interface {
	Routes() []*route.Route
	Ready() bool
}

// ScenarioRunner runs parsed scenarios. *stanza.Engine implements it.
type ScenarioRunner interface {
	Run(ctx context.Context, scenarios []*domain.Scenario) (*domain.RunResult, error)
}

// RunRequest is the body of POST /runs: the text of one script.
type RunRequest struct {
	Name   string `json:"name,omitempty"`
	Script string `json:"script"`
}

// MatchRequest is the body of POST /match. Cells wins over Line.
type MatchRequest struct {
	Cells []string `json:"cells,omitempty"`
	Line  string   `json:"line,omitempty"`
}

// Server serves the stanza HTTP API.
type Server struct {
	routes   RouteLister
	resolver Resolver
	store    ports.ResultStore
	runner   ScenarioRunner
	metrics  http.Handler
	logger   *slog.Logger
	Streams  *StreamManager
}

// Option configures the Server.
type Option func(*Server)

// WithStore enables GET /runs/{id}.
func WithStore(store ports.ResultStore) Option {
	return func(s *Server) {
		s.store = store
	}
}

// WithRunner enables POST /runs.
func WithRunner(runner ScenarioRunner) Option {
	return func(s *Server) {
		s.runner = runner
	}
}

// WithStreams shares sm with the engine reporting outcomes, so /events
// receives them.
func WithStreams(sm *StreamManager) Option {
	return func(s *Server) {
		s.Streams = sm
	}
}

// WithMetrics serves h on GET /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a Server.
func NewServer(routes RouteLister, resolver Resolver, opts ...Option) *Server {
	s := &Server{
		routes:   routes,
		resolver: resolver,
		logger:   logging.NewNop(),
		Streams:  NewStreamManager(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewHandler creates the HTTP handler for the API.
func NewHandler(routes RouteLister, resolver Resolver, opts ...Option) http.Handler {
	return NewServer(routes, resolver, opts...).Handler()
}

// Handler returns the router serving s.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/healthz", s.GetHealth)
	r.Get("/routes", s.GetRoutes)
	r.Post("/match", s.Match)
	r.Get("/runs", s.ListRuns)
	r.Post("/runs", s.StartRun)
	r.Get("/runs/{id}", s.GetRun)
	r.Get("/events", s.SubscribeEvents)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles GET /healthz. It reports 503 until route ratings are calculated.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	if !s.routes.Ready() {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetRoutes handles GET /routes. The optional name query filters by route name.
func (s *Server) GetRoutes(w http.ResponseWriter, r *http.Request) {
	routes := s.routes.Routes()
	if name := r.URL.Query().Get("name"); name != "" {
		filtered := routes[:0:0]
		for _, rt := range routes {
			if strings.EqualFold(rt.Name(), name) {
				filtered = append(filtered, rt)
			}
		}
		routes = filtered
	}
	s.writeJSON(w, http.StatusOK, dto.NewRouteInfos(routes))
}

// Match handles POST /match.
func (s *Server) Match(w http.ResponseWriter, r *http.Request) {
	var body MatchRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("Match: Invalid request body", "err", err)
		return
	}

	var kw *domain.Keyword
	if len(body.Cells) > 0 {
		kw = domain.NewKeyword(body.Cells...)
	} else {
		var err error
		kw, err = script.ParseLine(body.Line)
		if err != nil {
			http.Error(w, "Invalid line: "+err.Error(), http.StatusBadRequest)
			return
		}
	}
	if kw == nil {
		http.Error(w, "Empty keyword", http.StatusBadRequest)
		return
	}

	err := s.resolver.Resolve(r.Context(), kw)
	s.writeJSON(w, matchStatus(err), dto.NewMatchResult(kw, err))
}

func matchStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, domain.ErrNoRouteFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAmbiguousRoute):
		return http.StatusConflict
	case errors.Is(err, domain.ErrBindingFailure):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrRegistryNotReady):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// ListRuns handles GET /runs.
func (s *Server) ListRuns(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, "No result store configured", http.StatusNotImplemented)
		return
	}
	ids, err := s.store.List(r.Context())
	if err != nil {
		http.Error(w, "List error: "+err.Error(), http.StatusInternalServerError)
		s.logger.Error("ListRuns failed", "err", err)
		return
	}
	s.writeJSON(w, http.StatusOK, ids)
}

// StartRun handles POST /runs. It runs the script to completion and returns
// the run result, whether the run passed or not.
func (s *Server) StartRun(w http.ResponseWriter, r *http.Request) {
	if s.runner == nil {
		http.Error(w, "No runner configured", http.StatusNotImplemented)
		return
	}
	var body RunRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("StartRun: Invalid request body", "err", err)
		return
	}
	name := body.Name
	if name == "" {
		name = "request"
	}

	scenarios, err := script.NewReader().Read(name, strings.NewReader(body.Script))
	if err != nil {
		http.Error(w, "Invalid script: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(scenarios) == 0 {
		http.Error(w, "Script has no keywords", http.StatusBadRequest)
		return
	}

	result, err := s.runner.Run(r.Context(), scenarios)
	if result == nil {
		http.Error(w, "Run error: "+err.Error(), http.StatusInternalServerError)
		s.logger.Error("StartRun failed", "err", err)
		return
	}
	if err != nil {
		s.logger.Warn("Run ended with error", "run", result.ID, "err", err)
	}
	s.writeJSON(w, http.StatusOK, result)
}

// GetRun handles GET /runs/{id}.
func (s *Server) GetRun(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, "No result store configured", http.StatusNotImplemented)
		return
	}
	id := chi.URLParam(r, "id")
	result, err := s.store.Load(r.Context(), id)
	if errors.Is(err, domain.ErrRunNotFound) {
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Load error: "+err.Error(), http.StatusInternalServerError)
		s.logger.Error("GetRun failed", "run", id, "err", err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

// Report implements ports.Reporter by broadcasting outcomes to /events subscribers.
func (s *Server) Report(ctx context.Context, outcome domain.Outcome) error {
	return s.Streams.Report(ctx, outcome)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Response encode failed", "err", err)
	}
}

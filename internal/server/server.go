// Package server exposes a read-only view of a running search over HTTP and
// JSON-RPC 2.0.
package server

import (
	"context"
	"encoding/json"
	"math"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/copyleftdev/randsearch/internal/errors"
	"github.com/copyleftdev/randsearch/internal/logging"
	"github.com/copyleftdev/randsearch/internal/metrics"
	"github.com/copyleftdev/randsearch/internal/optimization"
	"github.com/copyleftdev/randsearch/internal/optimization/randomsearch"
)

// StatusProvider is the search the server reports on.
type StatusProvider interface {
	Status() randomsearch.Status
	GetHistory() []optimization.Evaluation
}

// Options configures the HTTP listener.
type Options struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server serves search status.
type Server struct {
	provider StatusProvider
	logger   *logging.Logger
	metrics  *metrics.Recorder
	opts     Options

	mu         sync.Mutex
	httpServer *http.Server
	listener   net.Listener
	done       chan struct{}
}

// NewServer creates a server reporting on provider.
func NewServer(provider StatusProvider, logger *logging.Logger, recorder *metrics.Recorder, opts Options) *Server {
	return &Server{
		provider: provider,
		logger:   logger,
		metrics:  recorder,
		opts:     opts,
	}
}

// Handler returns the router with middleware and all routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(logging.Middleware(s.logger))
	r.Use(errors.RecoveryMiddleware(s.logger))
	r.Use(s.metrics.Middleware())

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}))

	s.RegisterRoutes(r)
	return r
}

// RegisterRoutes adds the API routes to r.
func (s *Server) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/points", s.handlePoints)
	})

	r.Post("/rpc", s.handleJSONRPC)
}

// Start listens on addr and serves in the background.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrapf(err, errors.KindConfig, "could not listen on --status-addr %s", addr).
			WithComponent("server")
	}

	s.mu.Lock()
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
	}
	s.done = make(chan struct{})
	srv, done := s.httpServer, s.done
	s.mu.Unlock()

	s.logger.Info("Status server listening", map[string]interface{}{"address": ln.Addr().String()})
	go func() {
		defer close(done)
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Status server stopped", map[string]interface{}{"error": err.Error()})
		}
	}()
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown stops the server, waiting for in-flight requests until ctx ends.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv, done := s.httpServer, s.done
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	if err := srv.Shutdown(ctx); err != nil {
		return err
	}
	<-done
	s.logger.Info("Status server stopped")
	return nil
}

type pointResponse struct {
	Score  *float64  `json:"score"`
	Coords []float64 `json:"coords"`
	Line   string    `json:"line"`
}

type evaluationResponse struct {
	Iteration int           `json:"iteration"`
	Proposal  int           `json:"proposal"`
	Point     pointResponse `json:"point"`
	Error     string        `json:"error,omitempty"`
}

type statusResponse struct {
	State       string         `json:"state"`
	Iteration   int            `json:"iteration"`
	Evaluations int            `json:"evaluations"`
	StaleSteps  int            `json:"stale_steps"`
	Best        *pointResponse `json:"best,omitempty"`
}

// newPointResponse renders p for JSON, which has no infinities or NaN: such
// scores become null and the text line keeps the exact value.
func newPointResponse(p optimization.Point) pointResponse {
	resp := pointResponse{Coords: p.Coords, Line: p.String()}
	if !math.IsNaN(p.Score) && !math.IsInf(p.Score, 0) {
		score := p.Score
		resp.Score = &score
	}
	for _, c := range p.Coords {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			resp.Coords = nil
			break
		}
	}
	return resp
}

func (s *Server) status() statusResponse {
	st := s.provider.Status()
	resp := statusResponse{
		State:       string(st.State),
		Iteration:   st.Iteration,
		Evaluations: st.Evaluations,
		StaleSteps:  st.StaleSteps,
	}
	if st.Best != nil {
		best := newPointResponse(*st.Best)
		resp.Best = &best
	}
	return resp
}

func (s *Server) points() []evaluationResponse {
	history := s.provider.GetHistory()
	resp := make([]evaluationResponse, 0, len(history))
	for _, e := range history {
		p := optimization.Point{Score: e.Solution.Value, Coords: e.Solution.Parameters}
		er := evaluationResponse{
			Iteration: e.Iteration,
			Proposal:  e.Proposal,
			Point:     newPointResponse(p),
		}
		if e.Error != nil {
			er.Error = errors.UserMessage(e.Error)
		}
		resp = append(resp, er)
	}
	return resp
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.respond(w, http.StatusOK, s.status())
}

func (s *Server) handlePoints(w http.ResponseWriter, _ *http.Request) {
	s.respond(w, http.StatusOK, s.points())
}

// handleJSONRPC handles JSON-RPC 2.0 requests
func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	var request struct {
		JSONRPC string          `json:"jsonrpc"`
		ID      interface{}     `json:"id"`
		Method  string          `json:"method"`
		Params  json.RawMessage `json:"params,omitempty"`
	}

	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		s.respondWithError(w, r, -32700, "Parse error", nil)
		return
	}

	if request.JSONRPC != "2.0" {
		s.respondWithError(w, r, -32600, "Invalid Request", request.ID)
		return
	}

	var result interface{}
	switch request.Method {
	case "search.status":
		result = s.status()
	case "search.points":
		result = s.points()
	default:
		s.respondWithError(w, r, -32601, "Method not found", request.ID)
		return
	}

	s.respond(w, http.StatusOK, map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      request.ID,
		"result":  result,
	})
}

// respondWithError sends a JSON-RPC 2.0 error response
func (s *Server) respondWithError(w http.ResponseWriter, r *http.Request, code int, message string, id interface{}) {
	logging.FromContext(r.Context()).Warn("RPC error", map[string]interface{}{
		"code":    code,
		"message": message,
	})

	s.respond(w, http.StatusOK, map[string]interface{}{
		"jsonrpc": "2.0",
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
		"id": id,
	})
}

func (s *Server) respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("Failed to encode response", map[string]interface{}{"error": err.Error()})
	}
}

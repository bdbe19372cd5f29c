// Package server exposes the pipeline over HTTP: a one-shot query endpoint,
// a websocket variant that streams stage progress, and the request history.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/mvarela/armada/pkg/domain"
	"github.com/mvarela/armada/pkg/pipeline"
	"github.com/mvarela/armada/pkg/store"
)

// QueryRunner runs one request through the pipeline. Satisfied by
// *pipeline.Engine.
type QueryRunner interface {
	Run(ctx context.Context, request string) *domain.State
	RunObserved(ctx context.Context, request string, observe pipeline.Observer) *domain.State
}

// Server serves the REST and websocket API.
type Server struct {
	engine  QueryRunner
	history store.HistoryStore
	srv     *http.Server
}

// New creates a new Server.
func New(engine QueryRunner, history store.HistoryStore) *Server {
	return &Server{engine: engine, history: history}
}

// Handler returns the full route table wrapped in the server middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/query", s.handleQuery)
	mux.HandleFunc("GET /api/query/ws", s.handleQueryWebSocket)

	mux.HandleFunc("GET /api/requests", s.handleListRequests)
	mux.HandleFunc("GET /api/requests/{id}", s.handleGetRequest)

	mux.HandleFunc("GET /healthz", s.handleHealth)

	return s.corsMiddleware(mux)
}

// Start starts the HTTP server.
func (s *Server) Start(addr string) error {
	s.srv = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}

	slog.Info("Starting server", "addr", addr)
	return s.srv.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func (s *Server) errorResponse(w http.ResponseWriter, status int, err error) {
	s.jsonResponse(w, status, map[string]string{"error": err.Error()})
}

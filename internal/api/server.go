// Package api exposes the query pipeline over a JSON HTTP API.
package api

import (
	"errors"
	"net/http"

	"github.com/lectern-ai/lectern/internal/log"
)

// ServerConfig contains configuration for creating the API server.
type ServerConfig struct {
	Service QueryService // Required
	Logger  log.Logger   // Optional: defaults to a no-op logger
}

// Server is the JSON API HTTP server.
type Server struct {
	mux http.Handler
}

// NewServer creates a new API server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Service == nil {
		return nil, errors.New("query service is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	h := &queryHandler{service: cfg.Service, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/query", h.query)
	mux.HandleFunc("GET /api/courses", h.courses)
	mux.HandleFunc("DELETE /api/sessions/{id}", h.clearSession)

	// Recovery → RequestID → Logging → Routes. RequestID sits before
	// Logging so request_id is available in log attributes.
	var handler http.Handler = mux
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	// Health probes bypass the middleware stack.
	top := http.NewServeMux()
	top.HandleFunc("GET /health", h.health)
	top.Handle("/", handler)

	return &Server{mux: top}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

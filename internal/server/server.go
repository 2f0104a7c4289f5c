// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/DimitriGilbert/LiteChat-sub000/internal/metrics"
	"github.com/DimitriGilbert/LiteChat-sub000/internal/store"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// DefaultAddr binds to loopback only.
	DefaultAddr = "127.0.0.1:9464"

	// Version is reported by /healthz.
	Version = "0.3.0"
)

// ============================================================================
// SERVER
// ============================================================================

// StateSource provides the store snapshot served by /v1/state.
type StateSource interface {
	Snapshot() store.State
}

// Server exposes metrics, health and a read-only view of the store.
type Server struct {
	addr    string
	router  chi.Router
	source  StateSource
	metrics *metrics.Metrics
	log     zerolog.Logger
	started time.Time

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

// New creates a server. source and m may be nil.
func New(addr string, source StateSource, m *metrics.Metrics, log zerolog.Logger) *Server {
	if addr == "" {
		addr = DefaultAddr
	}
	s := &Server{
		addr:    addr,
		source:  source,
		metrics: m,
		log:     log,
		started: time.Now(),
	}
	s.setupRoutes()
	return s
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(TracingMiddleware())
	r.Use(RecoveryMiddleware(s.log))
	r.Use(LoggingMiddleware(s.log))
	r.Use(SecurityHeadersMiddleware())

	r.Get("/healthz", s.handleHealth)
	r.Get("/v1/state", s.handleState)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}
	s.router = r
}

// ============================================================================
// HANDLERS
// ============================================================================

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status        string  `json:"status"`
	Version       string  `json:"version"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	StoreStatus   string  `json:"store_status,omitempty"`
}

// handleHealth reports "degraded" while the store holds an error.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:        "ok",
		Version:       Version,
		UptimeSeconds: time.Since(s.started).Seconds(),
	}
	if s.source != nil {
		st := s.source.Snapshot()
		resp.StoreStatus = string(st.Status)
		if st.Status == store.StatusError {
			resp.Status = "degraded"
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// StateResponse is the body of GET /v1/state.
type StateResponse struct {
	ConversationID string   `json:"conversation_id"`
	Status         string   `json:"status"`
	Error          string   `json:"error,omitempty"`
	StreamingIDs   []string `json:"streaming_ids"`
	Interactions   int      `json:"interactions"`
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if s.source == nil {
		writeError(w, http.StatusServiceUnavailable, "store not attached")
		return
	}
	st := s.source.Snapshot()
	writeJSON(w, http.StatusOK, StateResponse{
		ConversationID: st.ConversationID,
		Status:         string(st.Status),
		Error:          st.Error,
		StreamingIDs:   st.StreamingIDs,
		Interactions:   len(st.Interactions),
	})
}

// ============================================================================
// LIFECYCLE
// ============================================================================

// Start binds the listen address and serves in the background. Use Addr for
// the bound address when listening on port 0.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server != nil {
		return errors.New("server already started")
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.listener = ln
	s.server = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	srv := s.server
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error().Err(err).Msg("metrics server stopped")
		}
	}()

	s.log.Info().Str("addr", ln.Addr().String()).Str("version", Version).Msg("metrics server started")
	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Shutdown stops the server gracefully. It is a no-op before Start.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.server = nil
	s.listener = nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	s.log.Info().Msg("metrics server shutting down")
	return srv.Shutdown(ctx)
}

// ============================================================================
// HELPERS
// ============================================================================

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"message": message,
			"code":    status,
		},
	})
}

// Package adminapi is a read-only observability surface layered on top
// of the overlay protocol: JSON status/directory endpoints and a
// Prometheus scrape endpoint. It never participates in the protocol
// itself — the raw TCP frame exchange in internal/directory and
// internal/peer is unaffected by whether this server is even running.
package adminapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server wraps a mux.Router serving admin/observability routes.
type Server struct {
	router     *mux.Router
	httpServer *http.Server
	startTime  time.Time
}

// newServer builds the common server shell; callers register
// domain-specific routes before calling Start.
func newServer(registry *prometheus.Registry) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		startTime: time.Now(),
	}

	s.router.Use(loggingMiddleware)
	s.router.Use(recoveryMiddleware)
	s.router.Use(corsMiddleware)

	s.router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{})).Methods("GET")

	return s
}

// Start begins serving on addr. It blocks until Stop is called or the
// server fails.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s.httpServer.ListenAndServe()
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Uptime returns how long this admin server has been constructed.
func (s *Server) Uptime() time.Duration {
	return time.Since(s.startTime)
}

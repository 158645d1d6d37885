package api

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"
)

// ServerConfig holds the server configuration.
type ServerConfig struct {
	Host         string        // Host to bind to (default "localhost")
	Port         int           // Port to listen on (default 8080, 0 picks a free port)
	ReadTimeout  time.Duration // Read timeout (default 30s)
	WriteTimeout time.Duration // Write timeout (default 30s)
	IdleTimeout  time.Duration // Idle timeout (default 60s)
}

// DefaultConfig returns a ServerConfig with sensible defaults.
func DefaultConfig() ServerConfig {
	return ServerConfig{
		Host:         "localhost",
		Port:         8080,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// Server is the HTTP monitor server.
type Server struct {
	config  ServerConfig
	monitor *Monitor
	server  *http.Server
}

// NewServer creates a new monitor server.
func NewServer(m *Monitor, config ServerConfig) *Server {
	return &Server{config: config, monitor: m}
}

// corsMiddleware adds CORS headers for browser access.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs all requests.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %v", r.Method, r.URL.Path, time.Since(start))
	})
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.monitor.Health)
	mux.HandleFunc("GET /api/stats", s.monitor.Stats)
	mux.HandleFunc("GET /api/events", s.monitor.Events)
	mux.HandleFunc("/api/ws", s.monitor.WebSocket)

	return corsMiddleware(loggingMiddleware(mux))
}

// Serve listens on the configured address and serves until ctx is done,
// then shuts down gracefully. The bound address is sent on ready, if non-nil.
func (s *Server) Serve(ctx context.Context, ready chan<- net.Addr) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	s.server = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	log.Printf("Training monitor for run %s on %s", s.monitor.RunID(), ln.Addr())
	log.Printf("  GET  /api/health - Health check")
	log.Printf("  GET  /api/stats  - Latest block statistics (?history=1 for all)")
	log.Printf("  GET  /api/events - Live block statistics (SSE)")
	log.Printf("  WS   /api/ws     - Live block statistics")
	if ready != nil {
		ready <- ln.Addr()
	}

	errChan := make(chan error, 1)
	go func() {
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	log.Println("Monitor stopped")
	return nil
}

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/thuhak/pbs-cache/pkg/directory"
)

// Store is the query surface of the primary document store.
type Store interface {
	Query(ctx context.Context, key string, paths ...string) ([]byte, error)
	QueryOne(ctx context.Context, key, path string) (json.RawMessage, error)
	Timestamp(ctx context.Context, key string) (int64, error)
	Ping(ctx context.Context) error
}

// Directory answers account queries.
type Directory interface {
	Usernames(ctx context.Context) ([]string, error)
	Lookup(ctx context.Context, name string) (*directory.User, error)
}

// Server represents the HTTP query API server
type Server struct {
	config      *Config
	httpServer  *http.Server
	rateLimiter *rate.Limiter
	mu          sync.RWMutex
	ready       bool
	store       Store
	directory   Directory
}

// NewServer creates a new server instance
func NewServer(config *Config, store Store, dir Directory) *Server {
	if config == nil {
		config = NewConfig()
	}

	s := &Server{
		config:      config,
		rateLimiter: rate.NewLimiter(config.RateLimit, config.RateLimitBurst),
		store:       store,
		directory:   dir,
	}

	// Setup HTTP server
	mux := s.setupRoutes()
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Address, config.Port),
		Handler:      mux,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	return s
}

// setupRoutes configures all HTTP routes and middleware
func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	// Default handler
	mux.HandleFunc("/", s.handleDefault)

	// System endpoints (no rate limiting)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ready", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())

	// API endpoints with middleware
	mux.HandleFunc("GET /pbs", s.withMiddleware(s.handleSites))
	mux.HandleFunc("GET /pbs/{site}", s.withMiddleware(s.handleSiteData))
	mux.HandleFunc("GET /pbs/{site}/{subject}", s.withMiddleware(s.handleSubjectList))
	mux.HandleFunc("GET /pbs/{site}/{subject}/{name}", s.withMiddleware(s.handleSubjectDetail))
	mux.HandleFunc("GET /user", s.withMiddleware(s.handleUserList))
	mux.HandleFunc("GET /user/{username}", s.withMiddleware(s.handleUserInfo))
	mux.HandleFunc("GET /user/{username}/jobs", s.withMiddleware(s.handleUserJobs))
	mux.HandleFunc("GET /app", s.withMiddleware(s.handleAppList))
	mux.HandleFunc("GET /app/{name}", s.withMiddleware(s.handleAppInfo))

	return mux
}

func (s *Server) handleDefault(w http.ResponseWriter, r *http.Request) {
	slog.Debug("handling default route",
		"path", r.URL.Path,
		"method", r.Method,
		"remote_addr", r.RemoteAddr,
		"user_agent", r.UserAgent(),
	)

	resp := struct {
		Name      string   `json:"name"`
		Version   string   `json:"version"`
		Ready     bool     `json:"ready"`
		Timestamp string   `json:"timestamp"`
		Routes    []string `json:"routes"`
	}{
		Name:      s.config.Name,
		Version:   s.config.Version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Routes: []string{
			"GET /pbs",
			"GET /pbs/{site}",
			"GET /pbs/{site}/{subject}",
			"GET /pbs/{site}/{subject}/{name}",
			"GET /user",
			"GET /user/{username}",
			"GET /user/{username}/jobs",
			"GET /app",
			"GET /app/{name}",
			"GET /health",
			"GET /ready",
			"GET /metrics",
		},
	}

	s.mu.RLock()
	resp.Ready = s.ready
	s.mu.RUnlock()

	RespondJSON(w, http.StatusOK, resp)
}

// SetReady marks the server as ready to serve traffic
func (s *Server) SetReady(ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = ready
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	s.SetReady(true)

	slog.Info("starting query api server", "addr", s.httpServer.Addr)

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// Wait for context cancellation or server error
	select {
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	}
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.SetReady(false)

	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	slog.Info("shutting down query api server")
	return s.httpServer.Shutdown(shutdownCtx)
}

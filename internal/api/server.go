// Package api provides the computor REST and websocket server.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/FocuswithJustin/computor/core/computor"
	"github.com/FocuswithJustin/computor/internal/cache"
	"github.com/FocuswithJustin/computor/internal/history"
	"github.com/FocuswithJustin/computor/internal/logging"
	"github.com/FocuswithJustin/computor/internal/server"
)

// Server serves the equation API. History is optional.
type Server struct {
	cfg       Config
	cache     *cache.TTLCache[string, *computor.Result]
	history   *history.Store
	jobs      *JobStore
	hub       *Hub
	cors      server.CORSConfig
	startTime time.Time
}

// New creates a Server. store may be nil to disable history.
func New(cfg Config, store *history.Store) *Server {
	cfg = cfg.withDefaults()
	s := &Server{
		cfg:       cfg,
		cache:     cache.New[string, *computor.Result](cfg.CacheTTL, cfg.CacheSize),
		history:   store,
		jobs:      NewJobStore(),
		hub:       NewHub(),
		cors:      server.CORSConfig{AllowedOrigins: cfg.AllowedOrigins},
		startTime: time.Now(),
	}
	s.jobs.onChange = s.broadcastJob
	return s
}

// Handler returns the full middleware chain around the routes.
func (s *Server) Handler() http.Handler {
	var handler http.Handler = server.SecurityHeadersWithCSP(server.APICSPConfig(), s.routes())
	handler = server.CORSMiddlewareWithConfig(s.cors, handler)
	return logging.CombinedMiddleware(handler)
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/cache", s.handleCache)
	mux.HandleFunc("/solve", s.handleSolve)
	mux.HandleFunc("/history", s.handleHistory)
	mux.HandleFunc("/history/", s.handleHistoryByID)
	mux.HandleFunc("/jobs", s.handleJobs)
	mux.HandleFunc("/jobs/", s.handleJobByID)
	mux.HandleFunc("/ws", s.handleWebSocket)

	return mux
}

// Start serves on cfg.Port until ctx is cancelled, then shuts down
// gracefully and cancels running jobs.
func (s *Server) Start(ctx context.Context) error {
	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go s.hub.Run(hubCtx)

	if len(s.cfg.AllowedOrigins) > 0 {
		logging.SecurityEvent("cors_configured", "api",
			"mode", "restricted",
			"allowed_origins_count", len(s.cfg.AllowedOrigins))
	} else {
		logging.SecurityEvent("cors_configured", "api",
			"mode", "permissive",
			"note", "allowing all origins (*)")
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          slog.NewLogLogger(logging.GetLogger().Handler(), slog.LevelError),
	}

	errCh := make(chan error, 1)
	go func() {
		logging.ServerStartup("rest_api", "http", s.cfg.Port,
			"websocket_protocol", "ws",
			"history", s.history != nil)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("api: listen: %w", err)
	case <-ctx.Done():
	}

	s.jobs.CancelAll()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api: shutdown: %w", err)
	}
	logging.Info("server stopped")
	return nil
}

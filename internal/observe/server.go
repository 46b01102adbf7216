package observe

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server exposes /health and /metrics on a local TCP address. It is only
// started when observe.bind is configured.
type Server struct {
	srv     *http.Server
	logger  *slog.Logger
	pending func() int
	started time.Time
}

// NewServer builds the HTTP server. pending reports the current number of
// undecided requests for the health payload.
func NewServer(bind string, metrics *Metrics, pending func() int, logger *slog.Logger) *Server {
	s := &Server{
		logger:  logger,
		pending: pending,
		started: time.Now(),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}))

	s.srv = &http.Server{
		Addr:              bind,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Start launches the HTTP listener.
func (s *Server) Start(context.Context) error {
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("observe server failed", "error", err)
		}
	}()
	s.logger.Info("observe server listening", "addr", s.srv.Addr)
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":         "ok",
		"pending":        s.pending(),
		"uptime_seconds": int(time.Since(s.started).Seconds()),
	})
}

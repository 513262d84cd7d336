package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/repairdesk/repairdesk-search/internal/config"
)

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

// Server exposes the operational endpoints: /metrics and /healthz.
type Server struct {
	cfg      config.ServerConfig
	logger   *slog.Logger
	http     *http.Server
	listener net.Listener
}

// NewServer binds the configured metrics address. checks are run by /healthz
// in order; the first failure makes it answer 503.
func NewServer(cfg config.ServerConfig, gatherer prometheus.Gatherer, logger *slog.Logger, checks map[string]HealthCheck) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	lis, err := net.Listen("tcp", cfg.MetricsAddress)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", cfg.MetricsAddress, err)
	}
	return &Server{
		cfg:      cfg,
		logger:   logger,
		listener: lis,
		http: &http.Server{
			Handler:      NewHandler(gatherer, checks),
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		},
	}, nil
}

// NewHandler builds the ops mux.
func NewHandler(gatherer prometheus.Gatherer, checks map[string]HealthCheck) http.Handler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", healthHandler(checks))
	return mux
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok"}
		code := http.StatusOK
		if len(checks) > 0 {
			resp.Checks = make(map[string]string, len(checks))
		}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				resp.Checks[name] = err.Error()
				resp.Status = "degraded"
				code = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// Start serves until Shutdown is invoked.
func (s *Server) Start() error {
	if s.http == nil || s.listener == nil {
		return fmt.Errorf("server not initialised")
	}
	s.logger.Info("ops server listening", slog.String("address", s.Address()))
	if err := s.http.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, closing hard when ctx expires.
func (s *Server) Shutdown(ctx context.Context) {
	if s.http == nil {
		return
	}
	if err := s.http.Shutdown(ctx); err != nil {
		s.logger.Warn("ops server shutdown", slog.Any("error", err))
		_ = s.http.Close()
	}
}

// Address exposes the bound listener address (useful for tests).
func (s *Server) Address() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// GracefulTimeout returns the configured graceful timeout duration.
func (s *Server) GracefulTimeout() time.Duration {
	return s.cfg.GracefulTimeout
}

package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"matrix_router/pkg/config"
	"matrix_router/pkg/metrics"
)

// ServerConfig holds server configuration.
type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	MaxConcurrent   int
	CORSOrigin      string
	RateLimit       float64
	RateBurst       int
	MetricsPath     string // empty = no metrics endpoint
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(addr string) ServerConfig {
	return ServerConfig{
		Addr:            addr,
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    30 * time.Second,
		RequestTimeout:  25 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		MaxConcurrent:   runtime.NumCPU() * 2,
	}
}

// FromConfig converts the loaded configuration.
func FromConfig(c *config.Config) ServerConfig {
	cfg := DefaultConfig(c.Server.Addr())
	cfg.ReadTimeout = c.Server.ReadTimeout
	cfg.WriteTimeout = c.Server.WriteTimeout
	cfg.RequestTimeout = c.Server.RequestTimeout
	cfg.ShutdownTimeout = c.Server.ShutdownTimeout
	if c.Server.MaxConcurrent > 0 {
		cfg.MaxConcurrent = c.Server.MaxConcurrent
	}
	cfg.CORSOrigin = c.Server.CORSOrigin
	cfg.RateLimit = c.Server.RateLimit
	cfg.RateBurst = c.Server.RateBurst
	if c.Metrics.Enabled {
		cfg.MetricsPath = c.Metrics.Path
	}
	return cfg
}

// NewServer creates an HTTP server with all routes and middleware.
// metricsHandler is mounted at cfg.MetricsPath when both are set.
func NewServer(cfg ServerConfig, handlers *Handlers, m *metrics.Metrics, metricsHandler http.Handler) *http.Server {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = runtime.NumCPU() * 2
	}
	mw := newMiddleware(cfg, m)
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/matrix", mw.wrap("matrix", handlers.HandleMatrix))
	mux.HandleFunc("GET /api/v1/health", mw.wrap("health", handlers.HandleHealth))
	mux.HandleFunc("GET /api/v1/stats", mw.wrap("stats", handlers.HandleStats))
	if cfg.MetricsPath != "" && metricsHandler != nil {
		mux.Handle("GET "+cfg.MetricsPath, metricsHandler)
	}

	return &http.Server{
		Addr:         cfg.Addr,
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
}

// ListenAndServe starts the server and blocks until a shutdown signal or
// a listener error.
func ListenAndServe(srv *http.Server, shutdownTimeout time.Duration) error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(stop)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case sig := <-stop:
		slog.Info("shutting down", "signal", sig.String())
		if shutdownTimeout <= 0 {
			shutdownTimeout = 10 * time.Second
		}
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}

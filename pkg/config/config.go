// Package config loads the matrix service configuration from defaults, a
// YAML file and MATRIX_ environment variables, in that order of precedence.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the full service configuration.
type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Graph   GraphConfig   `koanf:"graph"`
	Matrix  MatrixConfig  `koanf:"matrix"`
	Cache   CacheConfig   `koanf:"cache"`
	Log     LogConfig     `koanf:"log"`
	Metrics MetricsConfig `koanf:"metrics"`
	Tracing TracingConfig `koanf:"tracing"`
}

// ServerConfig holds HTTP listener and middleware settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	RequestTimeout  time.Duration `koanf:"request_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	MaxConcurrent   int           `koanf:"max_concurrent"` // 0 = 2 * NumCPU
	MaxBodyBytes    int64         `koanf:"max_body_bytes"`
	CORSOrigin      string        `koanf:"cors_origin"` // empty = same-origin
	RateLimit       float64       `koanf:"rate_limit"`  // requests per second, 0 = off
	RateBurst       int           `koanf:"rate_burst"`
}

// Addr returns host:port for the listener.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// GraphConfig locates the contracted graph and sets snapping.
type GraphConfig struct {
	Path       string  `koanf:"path"`
	SnapRadius float64 `koanf:"snap_radius"` // meters
}

// MatrixConfig controls the matrix service.
type MatrixConfig struct {
	Enabled      bool   `koanf:"enabled"`
	Profile      string `koanf:"profile"` // weighting the graph must be prepared with
	MaxLocations int    `koanf:"max_locations"`
	MaxSlots     int    `koanf:"max_slots"` // forest entries x sources, 0 = unlimited
}

// CacheConfig selects the result cache backend.
type CacheConfig struct {
	Enabled    bool          `koanf:"enabled"`
	Driver     string        `koanf:"driver"` // memory, redis
	Host       string        `koanf:"host"`
	Port       int           `koanf:"port"`
	Password   string        `koanf:"password"`
	DB         int           `koanf:"db"`
	TTL        time.Duration `koanf:"ttl"`
	MaxEntries int           `koanf:"max_entries"`
}

// Address returns the Redis address.
func (c CacheConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LogConfig configures slog output.
type LogConfig struct {
	Level      string `koanf:"level"`  // debug, info, warn, error
	Format     string `koanf:"format"` // json, text
	Output     string `koanf:"output"` // stdout, stderr, file
	FilePath   string `koanf:"file_path"`
	MaxSize    int    `koanf:"max_size"` // MB
	MaxBackups int    `koanf:"max_backups"`
	MaxAge     int    `koanf:"max_age"` // days
	Compress   bool   `koanf:"compress"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled   bool   `koanf:"enabled"`
	Path      string `koanf:"path"`
	Namespace string `koanf:"namespace"`
}

// TracingConfig configures the OTLP exporter.
type TracingConfig struct {
	Enabled     bool    `koanf:"enabled"`
	Endpoint    string  `koanf:"endpoint"`
	ServiceName string  `koanf:"service_name"`
	Environment string  `koanf:"environment"`
	SampleRate  float64 `koanf:"sample_rate"`
}

// Validate checks ranges and enumerations and normalizes the log level.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.RequestTimeout <= 0 {
		errs = append(errs, "server.request_timeout must be positive")
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, "server.rate_limit must be non-negative")
	}
	if c.Graph.Path == "" {
		errs = append(errs, "graph.path is required")
	}
	if c.Graph.SnapRadius <= 0 {
		errs = append(errs, "graph.snap_radius must be positive")
	}
	if c.Matrix.MaxLocations <= 0 {
		errs = append(errs, "matrix.max_locations must be positive")
	}
	if c.Matrix.MaxSlots < 0 {
		errs = append(errs, "matrix.max_slots must be non-negative")
	}
	switch c.Matrix.Profile {
	case "fastest", "shortest":
	default:
		errs = append(errs, fmt.Sprintf("matrix.profile must be one of: fastest, shortest, got %s", c.Matrix.Profile))
	}
	switch c.Cache.Driver {
	case "memory", "redis":
	default:
		errs = append(errs, fmt.Sprintf("cache.driver must be one of: memory, redis, got %s", c.Cache.Driver))
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	c.Log.Level = strings.ToLower(c.Log.Level)
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Log.Level] {
		errs = append(errs, fmt.Sprintf("log.level must be one of: debug, info, warn, error, got %s", c.Log.Level))
	}
	if c.Log.Output == "file" && c.Log.FilePath == "" {
		errs = append(errs, "log.file_path is required when log.output is file")
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		errs = append(errs, "tracing.sample_rate must be within [0, 1]")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

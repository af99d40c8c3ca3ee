package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix    = "MATRIX_"
	configEnvVar = "MATRIX_CONFIG_PATH"
)

var sections = []string{"server", "graph", "matrix", "cache", "log", "metrics", "tracing"}

// Loader reads configuration from several sources.
type Loader struct {
	k           *koanf.Koanf
	configPaths []string
	envPrefix   string
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithConfigPaths sets the YAML files to search, first match wins.
func WithConfigPaths(paths ...string) LoaderOption {
	return func(l *Loader) { l.configPaths = paths }
}

// WithEnvPrefix sets the environment variable prefix.
func WithEnvPrefix(prefix string) LoaderOption {
	return func(l *Loader) { l.envPrefix = prefix }
}

func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		k:           koanf.New("."),
		configPaths: []string{"config.yaml", "config/config.yaml", "/etc/matrix_router/config.yaml"},
		envPrefix:   envPrefix,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load merges defaults, the first config file found and the environment,
// then validates the result. A missing config file is not an error.
func (l *Loader) Load() (*Config, error) {
	if err := l.k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}
	if err := l.loadConfigFile(); err != nil {
		slog.Warn("config file not loaded", "error", err)
	}
	if err := l.loadEnv(); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}

	var cfg Config
	if err := l.k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Load is NewLoader(opts...).Load().
func Load(opts ...LoaderOption) (*Config, error) {
	return NewLoader(opts...).Load()
}

func defaults() map[string]any {
	return map[string]any{
		"server.host":             "",
		"server.port":             8080,
		"server.read_timeout":     5 * time.Second,
		"server.write_timeout":    30 * time.Second,
		"server.request_timeout":  25 * time.Second,
		"server.shutdown_timeout": 10 * time.Second,
		"server.max_concurrent":   0,
		"server.max_body_bytes":   1 << 20,
		"server.cors_origin":      "",
		"server.rate_limit":       0.0,
		"server.rate_burst":       20,

		"graph.path":        "graph.bin",
		"graph.snap_radius": 500.0,

		"matrix.enabled":       true,
		"matrix.profile":       "fastest",
		"matrix.max_locations": 2500,
		"matrix.max_slots":     50_000_000,

		"cache.enabled":     false,
		"cache.driver":      "memory",
		"cache.host":        "localhost",
		"cache.port":        6379,
		"cache.db":          0,
		"cache.ttl":         10 * time.Minute,
		"cache.max_entries": 1000,

		"log.level":       "info",
		"log.format":      "json",
		"log.output":      "stdout",
		"log.max_size":    100,
		"log.max_backups": 3,
		"log.max_age":     7,
		"log.compress":    true,

		"metrics.enabled":   true,
		"metrics.path":      "/metrics",
		"metrics.namespace": "matrix_router",

		"tracing.enabled":      false,
		"tracing.endpoint":     "localhost:4317",
		"tracing.service_name": "matrix-router",
		"tracing.environment":  "development",
		"tracing.sample_rate":  0.1,
	}
}

func (l *Loader) loadConfigFile() error {
	if path := os.Getenv(configEnvVar); path != "" {
		if _, err := os.Stat(path); err == nil {
			return l.k.Load(file.Provider(path), yaml.Parser())
		}
	}
	for _, path := range l.configPaths {
		abs, err := filepath.Abs(path)
		if err != nil {
			continue
		}
		if _, err := os.Stat(abs); err == nil {
			return l.k.Load(file.Provider(abs), yaml.Parser())
		}
	}
	return fmt.Errorf("config file not found in paths: %v", l.configPaths)
}

// loadEnv maps MATRIX_SERVER_READ_TIMEOUT to server.read_timeout: the first
// segment names the section and the rest is the field name.
func (l *Loader) loadEnv() error {
	return l.k.Load(env.ProviderWithValue(l.envPrefix, ".", func(envKey, value string) (string, any) {
		key := envToKey(strings.TrimPrefix(envKey, l.envPrefix))
		if key == "" {
			return "", nil
		}
		return key, value
	}), nil)
}

func envToKey(name string) string {
	name = strings.ToLower(name)
	for _, s := range sections {
		if rest, ok := strings.CutPrefix(name, s+"_"); ok && rest != "" {
			return s + "." + rest
		}
	}
	return ""
}

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoader_LoadDefaults(t *testing.T) {
	cfg, err := NewLoader(WithConfigPaths()).Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Graph.SnapRadius != 500 {
		t.Errorf("expected snap radius 500, got %v", cfg.Graph.SnapRadius)
	}
	if cfg.Matrix.Profile != "fastest" {
		t.Errorf("expected profile fastest, got %s", cfg.Matrix.Profile)
	}
	if cfg.Cache.TTL != 10*time.Minute {
		t.Errorf("expected cache ttl 10m, got %v", cfg.Cache.TTL)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("expected log level info, got %s", cfg.Log.Level)
	}
}

func TestLoader_LoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 9000
  request_timeout: 3s
graph:
  path: /data/sg.bin
matrix:
  profile: shortest
  max_locations: 50
log:
  level: DEBUG
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := NewLoader(WithConfigPaths(path)).Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Server.Port)
	}
	if cfg.Server.RequestTimeout != 3*time.Second {
		t.Errorf("expected request timeout 3s, got %v", cfg.Server.RequestTimeout)
	}
	if cfg.Graph.Path != "/data/sg.bin" {
		t.Errorf("expected graph path /data/sg.bin, got %s", cfg.Graph.Path)
	}
	if cfg.Matrix.MaxLocations != 50 {
		t.Errorf("expected max locations 50, got %d", cfg.Matrix.MaxLocations)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("expected normalized level debug, got %s", cfg.Log.Level)
	}
	// Untouched keys keep their defaults.
	if cfg.Metrics.Path != "/metrics" {
		t.Errorf("expected metrics path /metrics, got %s", cfg.Metrics.Path)
	}
}

func TestLoader_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 9000\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MATRIX_SERVER_PORT", "9100")
	t.Setenv("MATRIX_SERVER_READ_TIMEOUT", "7s")
	t.Setenv("MATRIX_CACHE_DRIVER", "redis")
	t.Setenv("MATRIX_MATRIX_MAX_LOCATIONS", "10")

	cfg, err := NewLoader(WithConfigPaths(path)).Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("expected port 9100 from env, got %d", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 7*time.Second {
		t.Errorf("expected read timeout 7s, got %v", cfg.Server.ReadTimeout)
	}
	if cfg.Cache.Driver != "redis" {
		t.Errorf("expected cache driver redis, got %s", cfg.Cache.Driver)
	}
	if cfg.Matrix.MaxLocations != 10 {
		t.Errorf("expected max locations 10, got %d", cfg.Matrix.MaxLocations)
	}
}

func TestEnvToKey(t *testing.T) {
	tests := map[string]string{
		"SERVER_PORT":          "server.port",
		"CACHE_MAX_ENTRIES":    "cache.max_entries",
		"TRACING_SAMPLE_RATE":  "tracing.sample_rate",
		"MATRIX_MAX_SLOTS":     "matrix.max_slots",
		"CONFIG_PATH":          "",
		"SERVER_":              "",
		"UNKNOWN_SECTION_NAME": "",
	}
	for in, want := range tests {
		if got := envToKey(in); got != want {
			t.Errorf("envToKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestValidate(t *testing.T) {
	cfg, err := NewLoader(WithConfigPaths()).Load()
	if err != nil {
		t.Fatal(err)
	}

	bad := *cfg
	bad.Server.Port = 0
	bad.Matrix.Profile = "scenic"
	bad.Cache.Driver = "memcached"
	bad.Log.Level = "verbose"
	bad.Tracing.SampleRate = 2

	err = bad.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"server.port", "matrix.profile", "cache.driver", "log.level", "tracing.sample_rate"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestAddr(t *testing.T) {
	s := ServerConfig{Host: "127.0.0.1", Port: 8080}
	if s.Addr() != "127.0.0.1:8080" {
		t.Errorf("Addr() = %s", s.Addr())
	}
	c := CacheConfig{Host: "redis", Port: 6379}
	if c.Address() != "redis:6379" {
		t.Errorf("Address() = %s", c.Address())
	}
}

// Package cache stores encoded matrix results under request hashes, in
// process memory or in Redis.
package cache

import (
	"context"
	"errors"
	"time"

	"matrix_router/pkg/config"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

var (
	// ErrKeyNotFound is returned when a key is absent or expired.
	ErrKeyNotFound = errors.New("key not found")
	// ErrCacheClosed is returned by operations on a closed cache.
	ErrCacheClosed = errors.New("cache is closed")
)

// Cache is a byte-value cache with per-entry TTL.
type Cache interface {
	// Get returns ErrKeyNotFound if key is absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value under key. A non-positive ttl selects the default.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Stats(ctx context.Context) (*Stats, error)
	Close() error
}

// Stats describes cache usage since creation.
type Stats struct {
	TotalKeys int64
	Hits      int64
	Misses    int64
	HitRate   float64
	Backend   string
}

func (s *Stats) computeHitRate() {
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	}
}

// Options configures a cache backend.
type Options struct {
	Backend    string
	DefaultTTL time.Duration

	MaxEntries      int
	CleanupInterval time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPoolSize int
	KeyPrefix     string
}

// DefaultOptions returns a memory cache with a five minute TTL.
func DefaultOptions() *Options {
	return &Options{
		Backend:         BackendMemory,
		DefaultTTL:      5 * time.Minute,
		MaxEntries:      10000,
		CleanupInterval: time.Minute,
		RedisAddr:       "localhost:6379",
		RedisPoolSize:   10,
		KeyPrefix:       "matrix:",
	}
}

// FromConfig builds options from the cache section of the configuration.
func FromConfig(cfg *config.CacheConfig) *Options {
	opts := DefaultOptions()
	opts.Backend = cfg.Driver
	opts.DefaultTTL = cfg.TTL
	opts.MaxEntries = cfg.MaxEntries
	opts.RedisAddr = cfg.Address()
	opts.RedisPassword = cfg.Password
	opts.RedisDB = cfg.DB
	return opts
}

// New creates the backend named by opts.Backend.
func New(opts *Options) (Cache, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	switch opts.Backend {
	case BackendRedis:
		return NewRedisCache(opts)
	default:
		return NewMemoryCache(opts), nil
	}
}

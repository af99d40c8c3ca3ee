package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"matrix_router/pkg/api"
	"matrix_router/pkg/cache"
	"matrix_router/pkg/config"
	"matrix_router/pkg/graph"
	"matrix_router/pkg/logger"
	"matrix_router/pkg/matrix"
	"matrix_router/pkg/metrics"
	"matrix_router/pkg/routing"
	"matrix_router/pkg/telemetry"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	graphPath := flag.String("graph", "", "Path to preprocessed graph binary (overrides graph.path)")
	flag.Parse()

	// A missing .env file is not an error.
	_ = godotenv.Load()

	var opts []config.LoaderOption
	if *configPath != "" {
		opts = append(opts, config.WithConfigPaths(*configPath))
	}
	cfg, err := config.Load(opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *graphPath != "" {
		cfg.Graph.Path = *graphPath
	}

	logger.InitWithConfig(logger.FromConfig(cfg.Log))
	if err := run(cfg); err != nil {
		logger.Fatal("server stopped", "error", err)
	}
}

func run(cfg *config.Config) error {
	ctx := context.Background()
	start := time.Now()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: cfg.Tracing.ServiceName,
		Version:     version,
		Environment: cfg.Tracing.Environment,
		SampleRate:  cfg.Tracing.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(sctx); err != nil {
			slog.Warn("tracer shutdown", "error", err)
		}
	}()

	slog.Info("loading graph", "path", cfg.Graph.Path)
	chg, err := graph.ReadBinary(cfg.Graph.Path)
	if err != nil {
		return fmt.Errorf("load graph: %w", err)
	}
	slog.Info("graph loaded",
		"nodes", chg.NumNodes,
		"edges", chg.NumBaseEdges,
		"shortcuts", chg.NumShortcuts(),
		"encoder", chg.Encoder,
		"weighting", chg.Weighting,
	)
	if cfg.Matrix.Profile != "" && cfg.Matrix.Profile != chg.Weighting {
		return fmt.Errorf("graph is prepared for %q, config wants %q", chg.Weighting, cfg.Matrix.Profile)
	}

	alg, err := matrix.NewAlgorithm(chg, cfg.Matrix.MaxSlots)
	if err != nil {
		return fmt.Errorf("matrix algorithm: %w", err)
	}

	reg := metrics.NewRegistry()
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(reg, cfg.Metrics.Namespace)
		m.SetGraph(int(chg.NumNodes), int(chg.NumEdges()))
	}

	svcOpts := []matrix.ServiceOption{
		matrix.WithMaxLocations(cfg.Matrix.MaxLocations),
		matrix.WithMetrics(m),
	}
	var c cache.Cache
	if cfg.Cache.Enabled {
		c, err = cache.New(cache.FromConfig(&cfg.Cache))
		if err != nil {
			return fmt.Errorf("init cache: %w", err)
		}
		defer c.Close()
		svcOpts = append(svcOpts, matrix.WithCache(c, cfg.Cache.TTL))
		slog.Info("result cache enabled", "driver", cfg.Cache.Driver, "ttl", cfg.Cache.TTL)
	}

	slog.Info("building spatial index")
	snapper := routing.NewSnapper(chg, cfg.Graph.SnapRadius)
	svc := matrix.NewService(alg, snapper, svcOpts...)
	svc.SetEnabled(cfg.Matrix.Enabled)
	svc.SetReady(true)
	slog.Info("ready", "took", time.Since(start).Round(time.Millisecond))

	stats := func(ctx context.Context) api.StatsResponse {
		info := svc.Info()
		resp := api.StatsResponse{
			NumNodes:     info.Nodes,
			NumEdges:     info.Edges,
			NumShortcuts: info.Shortcuts,
			Encoder:      info.Encoder,
			Profile:      info.Profile,
		}
		if c != nil {
			if st, err := c.Stats(ctx); err == nil {
				resp.Cache = &api.CacheJSON{
					Backend: st.Backend,
					Keys:    st.TotalKeys,
					Hits:    st.Hits,
					Misses:  st.Misses,
					HitRate: st.HitRate,
				}
			}
		}
		return resp
	}

	handlers := api.NewHandlers(svc, stats, svc.Ready, cfg.Server.MaxBodyBytes)
	srvCfg := api.FromConfig(cfg)
	srv := api.NewServer(srvCfg, handlers, m, metrics.Handler(reg))
	return api.ListenAndServe(srv, srvCfg.ShutdownTimeout)
}

package matrix

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/paulmach/orb"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"matrix_router/pkg/apperror"
	"matrix_router/pkg/cache"
	"matrix_router/pkg/geo"
	"matrix_router/pkg/graph"
	"matrix_router/pkg/metrics"
	"matrix_router/pkg/routing"
	"matrix_router/pkg/rphast"
	"matrix_router/pkg/telemetry"
)

// Matrixer computes matrices for the HTTP layer.
type Matrixer interface {
	Compute(ctx context.Context, req *Request) (*Result, error)
}

// GraphInfo describes the loaded graph.
type GraphInfo struct {
	Nodes     int
	Edges     int
	Shortcuts int
	Encoder   string
	Profile   string
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithCache stores encoded results in c for ttl.
func WithCache(c cache.Cache, ttl time.Duration) ServiceOption {
	return func(s *Service) {
		s.cache = c
		s.cacheTTL = ttl
	}
}

// WithMetrics records request metrics into m.
func WithMetrics(m *metrics.Metrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// WithMaxLocations caps the number of locations on each side. Zero means
// unlimited.
func WithMaxLocations(n int) ServiceOption {
	return func(s *Service) { s.maxLocations = n }
}

// Service turns requests into matrices: it validates, snaps coordinates,
// overlays a query graph and runs the algorithm.
type Service struct {
	alg     *Algorithm
	snapper *routing.Snapper
	graphID string

	cache        cache.Cache
	cacheTTL     time.Duration
	metrics      *metrics.Metrics
	maxLocations int

	enabled atomic.Bool
	ready   atomic.Bool
}

// NewService returns an enabled service that is not yet ready.
func NewService(alg *Algorithm, snapper *routing.Snapper, opts ...ServiceOption) *Service {
	chg := alg.Graph()
	s := &Service{
		alg:     alg,
		snapper: snapper,
		graphID: fmt.Sprintf("%s/%s/%d/%d", chg.Encoder, chg.Weighting, chg.NumNodes, chg.NumEdges()),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.enabled.Store(true)
	return s
}

// SetReady marks the service as able to answer requests.
func (s *Service) SetReady(v bool) { s.ready.Store(v) }

// Ready reports whether the service answers requests.
func (s *Service) Ready() bool { return s.enabled.Load() && s.ready.Load() }

// SetEnabled turns the matrix endpoint on or off.
func (s *Service) SetEnabled(v bool) { s.enabled.Store(v) }

// Info describes the graph the service runs on.
func (s *Service) Info() GraphInfo {
	chg := s.alg.Graph()
	return GraphInfo{
		Nodes:     int(chg.NumNodes),
		Edges:     int(chg.NumBaseEdges),
		Shortcuts: int(chg.NumShortcuts()),
		Encoder:   chg.Encoder,
		Profile:   chg.Weighting,
	}
}

// Compute answers req. Unreachable pairs and unsnappable locations are
// reported as Unreachable cells, never as errors.
func (s *Service) Compute(ctx context.Context, req *Request) (res *Result, err error) {
	start := time.Now()
	var stats rphast.Stats
	defer func() {
		status := "ok"
		if err != nil {
			status = string(apperror.CodeOf(err))
		}
		cells := req.NumSources() * req.NumDestinations()
		s.metrics.ObserveMatrix(status, time.Since(start), cells, stats.SubGraphNodes, stats.Settled)
	}()

	if !s.Ready() {
		return nil, apperror.New(apperror.CodeServiceUnavailable, "matrix service is not available")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if n := s.maxLocations; n > 0 {
		if req.NumSources() > n {
			return nil, apperror.NewWithField(apperror.CodeLimitExceeded,
				fmt.Sprintf("at most %d sources are allowed, got %d", n, req.NumSources()), "sources")
		}
		if req.NumDestinations() > n {
			return nil, apperror.NewWithField(apperror.CodeLimitExceeded,
				fmt.Sprintf("at most %d destinations are allowed, got %d", n, req.NumDestinations()), "destinations")
		}
	}
	chg := s.alg.Graph()
	if req.Profile != "" && req.Profile != chg.Weighting {
		return nil, apperror.NewWithField(apperror.CodePreprocessingMissing,
			fmt.Sprintf("graph is not prepared for profile %q", req.Profile), "profile")
	}
	unit, _ := geo.ParseDistanceUnit(string(req.Units))

	ctx, span := telemetry.StartSpan(ctx, "matrix.compute",
		telemetry.MatrixAttributes(req.NumSources(), req.NumDestinations(), req.Metrics.String(), chg.Weighting)...)
	defer span.End()

	key := req.CacheKey(s.graphID)
	if r, ok := s.lookup(ctx, key); ok {
		span.SetAttributes(attribute.Bool(telemetry.AttrCacheHit, true))
		return r, nil
	}

	src, dst, g, err := s.locate(ctx, req)
	if err != nil {
		telemetry.SetError(ctx, err)
		return nil, err
	}

	res, stats, err = s.alg.Compute(ctx, g, src, dst, req.Metrics, unit)
	if err != nil {
		telemetry.SetError(ctx, err)
		return nil, err
	}
	slog.Debug("matrix computed",
		"sources", src.Len(), "destinations", dst.Len(),
		"subgraph_nodes", stats.SubGraphNodes, "subgraph_edges", stats.SubGraphEdges,
		"entries", stats.Entries, "settled", stats.Settled,
		"took", time.Since(start))

	s.store(ctx, key, res)
	return res, nil
}

// locate resolves both sides to node ids and returns the graph to search,
// a query graph when any location snapped onto a segment interior.
func (s *Service) locate(ctx context.Context, req *Request) (*Locations, *Locations, rphast.Graph, error) {
	ctx, span := telemetry.StartSpan(ctx, "matrix.snap")
	defer span.End()

	chg := s.alg.Graph()
	src := s.fromNodes(req.SourceNodes)
	dst := s.fromNodes(req.DestinationNodes)

	srcSnaps, err := s.snapAll(ctx, req.Sources)
	if err != nil {
		return nil, nil, nil, err
	}
	dstSnaps, err := s.snapAll(ctx, req.Destinations)
	if err != nil {
		return nil, nil, nil, err
	}
	if len(req.Sources) > 0 {
		src = NewLocations(len(req.Sources))
	}
	if len(req.Destinations) > 0 {
		dst = NewLocations(len(req.Destinations))
	}

	// Snaps from both sides share one query graph so a segment holding a
	// source and a destination is split once.
	var snaps []graph.Snap
	type ref struct {
		locs *Locations
		i    int
		r    routing.SnapResult
	}
	var refs []ref
	for _, side := range []struct {
		locs  *Locations
		snaps []*routing.SnapResult
	}{{src, srcSnaps}, {dst, dstSnaps}} {
		for i, r := range side.snaps {
			if r == nil {
				continue
			}
			snaps = append(snaps, r.Snap())
			refs = append(refs, ref{side.locs, i, *r})
		}
	}
	if len(snaps) == 0 {
		return src, dst, chg, nil
	}

	qg, nodes := graph.NewQueryGraph(chg, snaps)
	for k, rf := range refs {
		rf.locs.Set(rf.i, int32(nodes[k]), orb.Point{rf.r.Lon, rf.r.Lat}, rf.r.Dist)
	}
	span.SetAttributes(attribute.Int("matrix.virtual_nodes", qg.NumVirtualNodes()))
	return src, dst, qg, nil
}

// fromNodes wraps pre-snapped ids, invalidating ids outside the graph.
func (s *Service) fromNodes(nodes []int32) *Locations {
	l := LocationsFromNodes(nodes)
	n := int32(s.alg.Graph().NumNodes)
	for i, id := range l.NodeIDs {
		if id >= n {
			l.NodeIDs[i] = InvalidNode
		}
	}
	return l
}

// snapAll snaps points concurrently. A nil result marks a point with no
// segment within the snap radius.
func (s *Service) snapAll(ctx context.Context, points []orb.Point) ([]*routing.SnapResult, error) {
	out := make([]*routing.SnapResult, len(points))
	if len(points) == 0 {
		return out, nil
	}
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for i, p := range points {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r, err := s.snapper.Snap(p.Lat(), p.Lon())
			if err != nil {
				if errors.Is(err, routing.ErrPointTooFar) {
					return nil
				}
				return err
			}
			out[i] = &r
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, classify(err)
	}
	return out, nil
}

func (s *Service) lookup(ctx context.Context, key string) (*Result, bool) {
	if s.cache == nil {
		return nil, false
	}
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrKeyNotFound) {
			slog.Warn("matrix cache lookup failed", "error", err)
		}
		s.metrics.ObserveCache("miss")
		return nil, false
	}
	var r Result
	if err := json.Unmarshal(data, &r); err != nil {
		slog.Warn("discarding undecodable cached matrix", "error", err)
		s.metrics.ObserveCache("miss")
		return nil, false
	}
	s.metrics.ObserveCache("hit")
	return &r, true
}

func (s *Service) store(ctx context.Context, key string, r *Result) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(r)
	if err != nil {
		slog.Warn("matrix result not cacheable", "error", err)
		return
	}
	if err := s.cache.Set(ctx, key, data, s.cacheTTL); err != nil {
		slog.Warn("matrix cache store failed", "error", err)
	}
}

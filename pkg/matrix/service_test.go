package matrix

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matrix_router/pkg/apperror"
	"matrix_router/pkg/cache"
	"matrix_router/pkg/geo"
	"matrix_router/pkg/graph/graphtest"
	"matrix_router/pkg/metrics"
	"matrix_router/pkg/routing"
)

var (
	node0   = orb.Point{103.0, 1.0}
	node2   = orb.Point{103.2, 1.0}
	node5   = orb.Point{103.2, 1.1}
	mid01   = orb.Point{103.05, 1.0}
	nowhere = orb.Point{0, 50}
)

func newService(t *testing.T, opts ...ServiceOption) *Service {
	t.Helper()
	chg := graphtest.Contract(t, graphtest.Grid6(), "shortest")
	alg, err := NewAlgorithm(chg, 0)
	require.NoError(t, err)
	s := NewService(alg, routing.NewSnapper(chg, 500), opts...)
	s.SetReady(true)
	return s
}

func TestServiceComputePoints(t *testing.T) {
	s := newService(t)
	r, err := s.Compute(context.Background(), &Request{
		Sources:      []orb.Point{node0, mid01, nowhere},
		Destinations: []orb.Point{node2, node5},
		Metrics:      Weight | Distance,
	})
	require.NoError(t, err)

	rows := r.Rows(Weight)
	assert.Equal(t, []float64{300, 700}, rows[0])
	assert.InDelta(t, 250, rows[1][0], 0.5)
	assert.InDelta(t, 650, rows[1][1], 0.5)
	assert.Equal(t, []float64{Unreachable, Unreachable}, rows[2])
	assert.Nil(t, r.Durations)

	assert.Equal(t, int32(0), r.Sources.NodeIDs[0])
	assert.GreaterOrEqual(t, r.Sources.NodeIDs[1], int32(s.alg.Graph().NumNodes))
	assert.Equal(t, InvalidNode, r.Sources.NodeIDs[2])
	assert.Zero(t, r.Sources.SnapDistances[2])
	assert.Equal(t, []int32{2, 5}, r.Destinations.NodeIDs)
}

func TestServiceComputeNodes(t *testing.T) {
	s := newService(t)
	r, err := s.Compute(context.Background(), &Request{
		SourceNodes:      []int32{3, 99, -4},
		DestinationNodes: []int32{2, 5},
		Metrics:          Distance,
		Units:            geo.Kilometers,
	})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{
		{0.6, 1.0},
		{Unreachable, Unreachable},
		{Unreachable, Unreachable},
	}, r.Rows(Distance))
}

func TestServiceAllUnsnappable(t *testing.T) {
	s := newService(t)
	r, err := s.Compute(context.Background(), &Request{
		Sources:          []orb.Point{nowhere, nowhere},
		DestinationNodes: []int32{0, 1, 2},
		Metrics:          AllMetrics,
	})
	require.NoError(t, err)
	for _, k := range AllMetrics.Kinds() {
		tbl := r.Table(k)
		require.Len(t, tbl, 6)
		for _, v := range tbl {
			assert.Equal(t, Unreachable, v)
		}
	}
}

func TestServiceErrors(t *testing.T) {
	s := newService(t, WithMaxLocations(2))
	valid := func() *Request {
		return &Request{Sources: []orb.Point{node0}, Destinations: []orb.Point{node2}, Metrics: Weight}
	}

	tests := []struct {
		name   string
		modify func(*Request)
		code   apperror.ErrorCode
	}{
		{"empty sources", func(r *Request) { r.Sources = nil }, apperror.CodeInvalidInput},
		{"empty destinations", func(r *Request) { r.Destinations = nil }, apperror.CodeInvalidInput},
		{"points and nodes", func(r *Request) { r.SourceNodes = []int32{1} }, apperror.CodeInvalidInput},
		{"latitude out of range", func(r *Request) { r.Sources[0] = orb.Point{103, 91} }, apperror.CodeInvalidInput},
		{"longitude NaN", func(r *Request) { r.Destinations[0] = orb.Point{math.NaN(), 1} }, apperror.CodeInvalidInput},
		{"no metrics", func(r *Request) { r.Metrics = 0 }, apperror.CodeInvalidInput},
		{"unknown metric bit", func(r *Request) { r.Metrics = 8 }, apperror.CodeInvalidInput},
		{"unknown units", func(r *Request) { r.Units = "ft" }, apperror.CodeInvalidInput},
		{"too many sources", func(r *Request) { r.Sources = []orb.Point{node0, node2, node5} }, apperror.CodeLimitExceeded},
		{"too many destinations", func(r *Request) { r.Destinations = []orb.Point{node0, node2, node5} }, apperror.CodeLimitExceeded},
		{"other profile", func(r *Request) { r.Profile = "fastest" }, apperror.CodePreprocessingMissing},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := valid()
			tc.modify(req)
			_, err := s.Compute(context.Background(), req)
			require.Error(t, err)
			assert.Equal(t, tc.code, apperror.CodeOf(err))
		})
	}
}

func TestServiceAvailability(t *testing.T) {
	s := newService(t)
	req := &Request{SourceNodes: []int32{0}, DestinationNodes: []int32{1}, Metrics: Weight}

	s.SetReady(false)
	_, err := s.Compute(context.Background(), req)
	assert.Equal(t, apperror.CodeServiceUnavailable, apperror.CodeOf(err))

	s.SetReady(true)
	s.SetEnabled(false)
	_, err = s.Compute(context.Background(), req)
	assert.Equal(t, apperror.CodeServiceUnavailable, apperror.CodeOf(err))

	s.SetEnabled(true)
	_, err = s.Compute(context.Background(), req)
	assert.NoError(t, err)
}

func TestServiceCancelled(t *testing.T) {
	s := newService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Compute(ctx, &Request{
		Sources:      []orb.Point{node0, mid01},
		Destinations: []orb.Point{node5},
		Metrics:      Weight,
	})
	require.Error(t, err)
	assert.Equal(t, apperror.CodeTimeout, apperror.CodeOf(err))
}

func TestServiceCacheAndMetrics(t *testing.T) {
	c := cache.NewMemoryCache(cache.DefaultOptions())
	defer c.Close()
	m := metrics.New(prometheus.NewRegistry(), "test")
	s := newService(t, WithCache(c, time.Minute), WithMetrics(m))

	req := &Request{
		Sources:      []orb.Point{node0, mid01},
		Destinations: []orb.Point{node2, node5},
		Metrics:      Weight | Distance,
	}
	first, err := s.Compute(context.Background(), req)
	require.NoError(t, err)
	second, err := s.Compute(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first.Weights, second.Weights)
	assert.Equal(t, first.Distances, second.Distances)
	assert.Equal(t, first.Sources.NodeIDs, second.Sources.NodeIDs)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("miss")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.MatrixRequests.WithLabelValues("ok")))

	req.Units = geo.Miles
	_, err = s.Compute(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("miss")))
}

func TestServiceInfo(t *testing.T) {
	info := newService(t).Info()
	assert.Equal(t, 6, info.Nodes)
	assert.Equal(t, 6, info.Edges)
	assert.Equal(t, "car", info.Encoder)
	assert.Equal(t, "shortest", info.Profile)
}

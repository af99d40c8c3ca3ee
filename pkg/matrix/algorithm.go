package matrix

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"

	"matrix_router/pkg/apperror"
	"matrix_router/pkg/encoder"
	"matrix_router/pkg/geo"
	"matrix_router/pkg/graph"
	"matrix_router/pkg/rphast"
	"matrix_router/pkg/telemetry"
)

// Algorithm computes matrices on one contracted graph. It is safe for
// concurrent use: each call borrows a pooled search whose buffers are
// cleared, not reallocated, between requests.
type Algorithm struct {
	chg      *graph.CHGraph
	enc      encoder.FlagEncoder
	maxSlots int
	pool     sync.Pool
}

// NewAlgorithm prepares an algorithm for chg. maxSlots caps the forest
// size (entries times sources) per request; zero means unlimited.
func NewAlgorithm(chg *graph.CHGraph, maxSlots int) (*Algorithm, error) {
	if !chg.Prepared() {
		return nil, apperror.New(apperror.CodePreprocessingMissing, "graph has no contraction hierarchy")
	}
	enc, ok := encoder.ByName(chg.Encoder)
	if !ok {
		return nil, apperror.New(apperror.CodePreprocessingMissing,
			fmt.Sprintf("graph was prepared for unknown encoder %q", chg.Encoder))
	}
	a := &Algorithm{chg: chg, enc: enc, maxSlots: maxSlots}
	a.pool.New = func() any {
		return rphast.NewSearch(chg, rphast.WithMaxSlots(a.maxSlots))
	}
	return a, nil
}

// Graph returns the contracted graph the algorithm runs on.
func (a *Algorithm) Graph() *graph.CHGraph { return a.chg }

// Compute fills a result for src x dst on g, which must be a.Graph() or a
// query graph over it. When either side has no valid node every cell is
// Unreachable and no search runs.
func (a *Algorithm) Compute(ctx context.Context, g rphast.Graph, src, dst *Locations, metrics Metrics, unit geo.DistanceUnit) (*Result, rphast.Stats, error) {
	r := newResult(src, dst, metrics)
	x := &extractor{g: g, enc: a.enc, unit: unit, metrics: metrics}

	if !src.HasValidNodes() || !dst.HasValidNodes() {
		x.setEmptyValues(r)
		return r, rphast.Stats{}, nil
	}

	s := a.pool.Get().(*rphast.Search)
	defer a.pool.Put(s)
	s.Reset(g)

	_, span := telemetry.StartSpan(ctx, "rphast.prepare")
	s.Prepare(dst.NodeIDs)
	span.SetAttributes(
		attribute.Int(telemetry.AttrSubGraphNodes, s.SubGraph().NumNodes()),
		attribute.Int(telemetry.AttrSubGraphEdges, s.SubGraph().NumEdges()),
	)
	span.End()

	searchCtx, span := telemetry.StartSpan(ctx, "rphast.calc_paths")
	entries, err := s.CalcPaths(searchCtx, src.NodeIDs, dst.NodeIDs)
	stats := s.Stats()
	span.SetAttributes(
		attribute.Int(telemetry.AttrEntries, stats.Entries),
		attribute.Int(telemetry.AttrSettled, stats.Settled),
	)
	if err != nil {
		telemetry.SetError(searchCtx, err)
		span.End()
		return nil, stats, classify(err)
	}
	span.End()

	_, span = telemetry.StartSpan(ctx, "matrix.extract")
	x.calcValues(s.Forest(), entries, src, dst, r)
	span.End()

	return r, stats, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, rphast.ErrResourceExhausted):
		return apperror.Wrap(err, apperror.CodeResourceExhausted, "matrix exceeds the search budget")
	case errors.Is(err, context.DeadlineExceeded):
		return apperror.Wrap(err, apperror.CodeTimeout, "matrix computation timed out")
	case errors.Is(err, context.Canceled):
		return apperror.Wrap(err, apperror.CodeTimeout, "matrix computation cancelled")
	}
	return apperror.Wrap(err, apperror.CodeInternal, "matrix computation failed")
}

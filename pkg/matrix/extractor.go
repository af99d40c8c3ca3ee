package matrix

import (
	"matrix_router/pkg/encoder"
	"matrix_router/pkg/geo"
	"matrix_router/pkg/graph"
	"matrix_router/pkg/rphast"
)

// extractor turns settled forest slots into table cells. Weight is read
// from the slot; distance and duration are summed over the real edges of
// the slot's parent chain after unpacking shortcuts.
type extractor struct {
	g       rphast.Graph
	enc     encoder.FlagEncoder
	unit    geo.DistanceUnit
	metrics Metrics
	stack   []graph.EdgeState
}

func (x *extractor) calcValues(f *rphast.Forest, entries []int32, src, dst *Locations, r *Result) {
	walk := x.metrics.Has(Duration) || x.metrics.Has(Distance)
	for i := range src.Len() {
		for j := range dst.Len() {
			if !src.Valid(i) || !dst.Valid(j) || entries[j] < 0 {
				r.set(i, j, Unreachable, Unreachable, Unreachable)
				continue
			}
			slot := f.Slot(entries[j], i)
			if !slot.Reached() {
				r.set(i, j, Unreachable, Unreachable, Unreachable)
				continue
			}
			var dist, dur float64
			if walk {
				dist, dur = x.pathMetrics(f, entries[j], i)
			}
			r.set(i, j, dur, x.unit.FromMeters(dist), slot.Weight)
		}
	}
}

// setEmptyValues marks every cell of the result unreachable.
func (x *extractor) setEmptyValues(r *Result) {
	r.fillUnreachable()
}

// pathMetrics follows source j's parent chain from entry back to the
// source and returns meters and seconds along it.
func (x *extractor) pathMetrics(f *rphast.Forest, entry int32, j int) (dist, dur float64) {
	cur := entry
	s := f.Slot(cur, j)
	for s.Edge >= 0 {
		st := x.g.EdgeState(uint32(s.Edge), f.Node(cur))
		d, t := x.unpack(st)
		dist += d
		dur += t
		cur = s.Parent
		s = f.Slot(cur, j)
	}
	return dist, dur
}

// unpack expands st into real edges, keeping the Base -> Adj orientation,
// and sums their distance and duration.
func (x *extractor) unpack(st graph.EdgeState) (dist, dur float64) {
	x.stack = append(x.stack[:0], st)
	for len(x.stack) > 0 {
		e := x.stack[len(x.stack)-1]
		x.stack = x.stack[:len(x.stack)-1]

		if !e.IsShortcut() {
			dist += e.Distance
			dur += x.enc.Duration(e.Distance, e.Flags)
			continue
		}

		// The first child is the one touching e.Base.
		first, second := uint32(e.Skip1), uint32(e.Skip2)
		if x.g.EdgeState(first, e.Base).Adj != e.Base {
			first, second = second, first
		}
		mid := x.g.EdgeState(first, e.Base).Base
		x.stack = append(x.stack, x.g.EdgeState(second, e.Adj), x.g.EdgeState(first, mid))
	}
	return dist, dur
}

package routing

import (
	"errors"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
	"github.com/tidwall/rtree"

	"matrix_router/pkg/graph"
)

// DefaultMaxSnapDistance is the snap radius in meters used when none is configured.
const DefaultMaxSnapDistance = 500.0

// ErrPointTooFar is returned when the query point is too far from any road.
var ErrPointTooFar = errors.New("point too far from road")

// SnapResult is a point projected onto a base segment.
type SnapResult struct {
	Edge  uint32  // base segment id
	NodeU uint32  // stored base endpoint
	NodeV uint32  // stored adj endpoint
	Ratio float64 // 0.0 = at NodeU, 1.0 = at NodeV
	Dist  float64 // meters from query point to snapped point
	Lat   float64
	Lon   float64
}

// Snap converts the result into a query graph snap.
func (r SnapResult) Snap() graph.Snap {
	return graph.Snap{Edge: r.Edge, Ratio: r.Ratio, Lat: r.Lat, Lon: r.Lon}
}

// Snapper finds the nearest base segment through an R-tree over segment
// bounding boxes. It is read-only after construction.
type Snapper struct {
	chg     *graph.CHGraph
	tree    rtree.RTreeG[uint32]
	maxDist float64
}

// NewSnapper indexes every base segment of chg. maxDist <= 0 selects
// DefaultMaxSnapDistance.
func NewSnapper(chg *graph.CHGraph, maxDist float64) *Snapper {
	if maxDist <= 0 {
		maxDist = DefaultMaxSnapDistance
	}
	s := &Snapper{chg: chg, maxDist: maxDist}
	for e := range chg.NumBaseEdges {
		u, v := chg.EdgeBase[e], chg.EdgeAdj[e]
		b := orb.MultiPoint{
			{chg.NodeLon[u], chg.NodeLat[u]},
			{chg.NodeLon[v], chg.NodeLat[v]},
		}.Bound()
		s.tree.Insert(b.Min, b.Max, e)
	}
	return s
}

// MaxDistance returns the snap radius in meters.
func (s *Snapper) MaxDistance() float64 { return s.maxDist }

// Snap finds the nearest base segment within the snap radius.
func (s *Snapper) Snap(lat, lng float64) (SnapResult, error) {
	box := orbgeo.NewBoundAroundPoint(orb.Point{lng, lat}, s.maxDist)

	var best SnapResult
	found := false
	s.tree.Search(box.Min, box.Max, func(_, _ [2]float64, e uint32) bool {
		snap, dist := graph.SnapRatio(s.chg, e, lat, lng)
		if dist <= s.maxDist && (!found || dist < best.Dist || (dist == best.Dist && e < best.Edge)) {
			best = SnapResult{
				Edge:  e,
				NodeU: s.chg.EdgeBase[e],
				NodeV: s.chg.EdgeAdj[e],
				Ratio: snap.Ratio,
				Dist:  dist,
				Lat:   snap.Lat,
				Lon:   snap.Lon,
			}
			found = true
		}
		return true
	})

	if !found {
		return SnapResult{}, ErrPointTooFar
	}
	return best, nil
}

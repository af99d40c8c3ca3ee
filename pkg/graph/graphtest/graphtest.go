// Package graphtest builds small contracted graphs for tests.
package graphtest

import (
	"math/rand/v2"
	"testing"

	"github.com/paulmach/osm"

	"matrix_router/pkg/ch"
	"matrix_router/pkg/encoder"
	"matrix_router/pkg/geo"
	"matrix_router/pkg/graph"
	osmparser "matrix_router/pkg/osm"
	"matrix_router/pkg/weighting"
)

// Seg returns a bidirectional 50 km/h segment.
func Seg(from, to osm.NodeID, d float64) osmparser.RawEdge {
	return osmparser.RawEdge{FromNodeID: from, ToNodeID: to, DistanceMeters: d, Forward: true, Backward: true, SpeedKmh: 50}
}

// Grid6 returns the six node test grid:
//
//	0 ---100--- 1 ---200--- 2
//	|                       |
//	300                    400
//	|                       |
//	3 ---500--- 4 ---600--- 5
func Grid6() *osmparser.ParseResult {
	return &osmparser.ParseResult{
		Edges: []osmparser.RawEdge{
			Seg(10, 20, 100),
			Seg(20, 30, 200),
			Seg(10, 40, 300),
			Seg(40, 50, 500),
			Seg(50, 60, 600),
			Seg(30, 60, 400),
		},
		NodeLat: map[osm.NodeID]float64{10: 1.0, 20: 1.0, 30: 1.0, 40: 1.1, 50: 1.1, 60: 1.1},
		NodeLon: map[osm.NodeID]float64{10: 103.0, 20: 103.1, 30: 103.2, 40: 103.0, 50: 103.1, 60: 103.2},
	}
}

// Grid6Island returns Grid6 plus a disconnected pair of nodes 6 and 7
// joined by a 50 m segment.
func Grid6Island() *osmparser.ParseResult {
	r := Grid6()
	r.Edges = append(r.Edges, Seg(70, 80, 50))
	r.NodeLat[70], r.NodeLon[70] = 2.0, 104.0
	r.NodeLat[80], r.NodeLon[80] = 2.0, 104.001
	return r
}

// City returns a rows x cols street grid with roughly 100 m blocks. The
// seed fixes segment speeds, a sprinkle of one-way streets, and a few
// missing blocks.
func City(rows, cols int, seed uint64) *osmparser.ParseResult {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	r := &osmparser.ParseResult{
		NodeLat: make(map[osm.NodeID]float64, rows*cols),
		NodeLon: make(map[osm.NodeID]float64, rows*cols),
	}
	id := func(row, col int) osm.NodeID { return osm.NodeID(1 + row*cols + col) }
	for row := range rows {
		for col := range cols {
			n := id(row, col)
			r.NodeLat[n] = 1.30 + float64(row)*0.0009 + rng.Float64()*0.0001
			r.NodeLon[n] = 103.80 + float64(col)*0.0009 + rng.Float64()*0.0001
		}
	}
	speeds := []float64{10, 30, 50, 50, 80}
	add := func(a, b osm.NodeID) {
		if rng.IntN(20) == 0 {
			return
		}
		d := geo.Haversine(r.NodeLat[a], r.NodeLon[a], r.NodeLat[b], r.NodeLon[b])
		fwd, bwd := true, true
		switch rng.IntN(8) {
		case 0:
			bwd = false
		case 1:
			fwd = false
		}
		r.Edges = append(r.Edges, osmparser.RawEdge{
			FromNodeID:     a,
			ToNodeID:       b,
			DistanceMeters: d,
			Forward:        fwd,
			Backward:       bwd,
			SpeedKmh:       speeds[rng.IntN(len(speeds))],
		})
	}
	for row := range rows {
		for col := range cols {
			if col+1 < cols {
				add(id(row, col), id(row, col+1))
			}
			if row+1 < rows {
				add(id(row, col), id(row+1, col))
			}
		}
	}
	return r
}

// Contract builds and contracts r with the named weighting.
func Contract(tb testing.TB, r *osmparser.ParseResult, weightingName string) *graph.CHGraph {
	tb.Helper()
	enc := encoder.NewCar()
	w, err := weighting.New(weightingName, enc)
	if err != nil {
		tb.Fatalf("weighting: %v", err)
	}
	return ch.Contract(graph.Build(r, enc), w)
}

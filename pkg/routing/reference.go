package routing

import (
	"math"

	"matrix_router/pkg/encoder"
	"matrix_router/pkg/graph"
)

// Tree is a shortest path tree over base segments. Distance and Duration
// are accumulated along the tree path that realizes Weight.
type Tree struct {
	Weight   []float64
	Distance []float64
	Duration []float64
}

// Dijkstra runs a plain Dijkstra from source over the base segments of chg,
// ignoring shortcuts and levels. It is the reference the CH searches are
// checked against.
func Dijkstra(chg *graph.CHGraph, enc encoder.FlagEncoder, source uint32) *Tree {
	n := chg.NumNodes
	t := &Tree{
		Weight:   make([]float64, n),
		Distance: make([]float64, n),
		Duration: make([]float64, n),
	}
	for i := range t.Weight {
		t.Weight[i] = math.Inf(1)
		t.Distance[i] = math.Inf(1)
		t.Duration[i] = math.Inf(1)
	}
	t.Weight[source], t.Distance[source], t.Duration[source] = 0, 0, 0

	var pq MinHeap
	pq.Push(source, 0)
	for pq.Len() > 0 {
		cur := pq.Pop()
		if cur.Dist > t.Weight[cur.Node] {
			continue
		}
		chg.ForEachEdge(cur.Node, func(s graph.EdgeState) {
			if s.Edge >= chg.NumBaseEdges || !s.Forward() {
				return
			}
			nd := cur.Dist + s.Weight
			if nd < t.Weight[s.Adj] {
				t.Weight[s.Adj] = nd
				t.Distance[s.Adj] = t.Distance[cur.Node] + s.Distance
				t.Duration[s.Adj] = t.Duration[cur.Node] + enc.Duration(s.Distance, s.Flags)
				pq.Push(s.Adj, nd)
			}
		})
	}
	return t
}

package graph

import "matrix_router/pkg/encoder"

// NoSkip marks an edge that is not a shortcut.
const NoSkip int32 = -1

// CHGraph is the contracted graph. Edge ids [0, NumBaseEdges) are the base
// segments with the same ids as in Graph; the remaining ids are shortcuts,
// each stored once in its base -> adj direction.
type CHGraph struct {
	Encoder   string
	Weighting string

	NumNodes     uint32
	NumBaseEdges uint32

	NodeLat []float64
	NodeLon []float64
	Levels  []uint32 // contraction rank; distinct per node

	EdgeBase     []uint32
	EdgeAdj      []uint32
	EdgeFlags    []uint32
	EdgeWeight   []float64
	EdgeDistance []float64
	EdgeSkip1    []int32
	EdgeSkip2    []int32

	FirstOut []uint32 // incidence CSR over all edges
	AdjEdge  []uint32
}

// EdgeState is an edge seen from its Base node. Flags are oriented so that
// Forward means Base -> Adj is allowed.
type EdgeState struct {
	Edge     uint32
	Base     uint32
	Adj      uint32
	Weight   float64
	Distance float64
	Flags    uint32
	Skip1    int32
	Skip2    int32
	Original uint32 // base segment id; differs from Edge for virtual edges
	Reversed bool
}

func (s EdgeState) Forward() bool  { return s.Flags&encoder.AccessForward != 0 }
func (s EdgeState) Backward() bool { return s.Flags&encoder.AccessBackward != 0 }
func (s EdgeState) IsShortcut() bool {
	return s.Skip1 >= 0
}

// NumEdges returns base segments plus shortcuts.
func (g *CHGraph) NumEdges() uint32 { return uint32(len(g.EdgeBase)) }

// NumShortcuts returns the number of shortcut edges.
func (g *CHGraph) NumShortcuts() uint32 { return g.NumEdges() - g.NumBaseEdges }

// Prepared reports whether the graph carries a complete CH preparation.
func (g *CHGraph) Prepared() bool {
	return g.Weighting != "" && g.NumNodes > 0 && uint32(len(g.Levels)) == g.NumNodes
}

// MaxNodes is the first id that is not a real node.
func (g *CHGraph) MaxNodes() uint32 { return g.NumNodes }

func (g *CHGraph) Level(node uint32) uint32 { return g.Levels[node] }

// ForEachEdge calls fn for every edge incident to node, oriented with
// Base == node.
func (g *CHGraph) ForEachEdge(node uint32, fn func(EdgeState)) {
	for _, e := range g.AdjEdge[g.FirstOut[node]:g.FirstOut[node+1]] {
		fn(g.state(e, g.EdgeBase[e] != node))
	}
}

// EdgeState returns edge oriented so that Adj == adjNode. If adjNode is not
// the stored adj endpoint the reversed orientation is returned.
func (g *CHGraph) EdgeState(edge, adjNode uint32) EdgeState {
	return g.state(edge, g.EdgeAdj[edge] != adjNode)
}

func (g *CHGraph) state(e uint32, reversed bool) EdgeState {
	s := EdgeState{
		Edge:     e,
		Base:     g.EdgeBase[e],
		Adj:      g.EdgeAdj[e],
		Weight:   g.EdgeWeight[e],
		Distance: g.EdgeDistance[e],
		Flags:    g.EdgeFlags[e],
		Skip1:    g.EdgeSkip1[e],
		Skip2:    g.EdgeSkip2[e],
		Original: e,
	}
	if reversed {
		s.Base, s.Adj = s.Adj, s.Base
		s.Flags = encoder.Reverse(s.Flags)
		s.Reversed = true
	}
	return s
}

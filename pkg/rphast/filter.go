// Package rphast computes many-to-many shortest path weights on a
// contracted graph. A downward sweep from all targets collects their
// search cones into a SubGraph; a single upward search from all sources
// then settles every target against that cone.
package rphast

import "matrix_router/pkg/graph"

// Graph is the read-only view the search needs. *graph.CHGraph and
// *graph.QueryGraph implement it.
type Graph interface {
	// MaxNodes is the first virtual node id.
	MaxNodes() uint32
	Level(node uint32) uint32
	// ForEachEdge yields the edges at node oriented with Base == node.
	ForEachEdge(node uint32, fn func(graph.EdgeState))
	// EdgeState returns edge oriented so that Adj == adjNode.
	EdgeState(edge, adjNode uint32) graph.EdgeState
}

func isVirtual(g Graph, s graph.EdgeState) bool {
	m := g.MaxNodes()
	return s.Base >= m || s.Adj >= m
}

// AcceptUpward reports whether s may be relaxed Base -> Adj by the upward
// search: it must lead to a strictly higher level (or touch a virtual
// node) and be open in the forward direction.
func AcceptUpward(g Graph, s graph.EdgeState) bool {
	if !isVirtual(g, s) && g.Level(s.Base) >= g.Level(s.Adj) {
		return false
	}
	return s.Forward()
}

// AcceptDownward reports whether the downward sweep standing at s.Base may
// step to s.Adj. Virtual edges always pass. Otherwise Adj must not be lower
// than Base and the edge must be open from Adj to Base. Equal levels pass.
func AcceptDownward(g Graph, s graph.EdgeState) bool {
	if isVirtual(g, s) {
		return true
	}
	return g.Level(s.Base) <= g.Level(s.Adj) && s.Backward()
}

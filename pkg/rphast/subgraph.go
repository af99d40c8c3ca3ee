package rphast

import "matrix_router/pkg/graph"

const (
	minSubGraphCap = 200
	maxSubGraphCap = 2000
)

type link struct {
	state graph.EdgeState
	next  int32
}

// SubGraph maps each node of the target cone to the edges leaving it
// toward the targets. A node may be present with no edges.
type SubGraph struct {
	g     Graph
	index map[uint32]int32
	nodes []uint32
	first []int32 // head link per node slot, -1 if none
	last  []int32
	links []link
}

// NewSubGraph returns an empty subgraph sized for g.
func NewSubGraph(g Graph) *SubGraph {
	c := min(max(minSubGraphCap, int(g.MaxNodes()/10)), maxSubGraphCap)
	return &SubGraph{
		g:     g,
		index: make(map[uint32]int32, c),
		nodes: make([]uint32, 0, c),
		first: make([]int32, 0, c),
		last:  make([]int32, 0, c),
		links: make([]link, 0, 2*c),
	}
}

// Reset empties the subgraph and binds it to g, keeping its buffers.
func (sg *SubGraph) Reset(g Graph) {
	sg.g = g
	clear(sg.index)
	sg.nodes = sg.nodes[:0]
	sg.first = sg.first[:0]
	sg.last = sg.last[:0]
	sg.links = sg.links[:0]
}

func (sg *SubGraph) slot(node uint32) (int32, bool) {
	if i, ok := sg.index[node]; ok {
		return i, false
	}
	i := int32(len(sg.nodes))
	sg.index[node] = i
	sg.nodes = append(sg.nodes, node)
	sg.first = append(sg.first, -1)
	sg.last = append(sg.last, -1)
	return i, true
}

// AddEdge records an edge and reports whether its key node was new.
//
// With e == nil, adjNode is only marked present. Otherwise e is an edge seen
// from adjNode during the backward sweep; it is stored oriented
// e.Adj -> adjNode under key e.Adj. Links are appended at the tail;
// duplicates are kept.
func (sg *SubGraph) AddEdge(adjNode uint32, e *graph.EdgeState) bool {
	if e == nil {
		_, isNew := sg.slot(adjNode)
		return isNew
	}

	st := sg.g.EdgeState(e.Edge, adjNode)
	i, isNew := sg.slot(e.Adj)
	l := int32(len(sg.links))
	sg.links = append(sg.links, link{state: st, next: -1})
	if sg.last[i] < 0 {
		sg.first[i] = l
	} else {
		sg.links[sg.last[i]].next = l
	}
	sg.last[i] = l
	return isNew
}

// Contains reports whether node was reached by the downward sweep.
func (sg *SubGraph) Contains(node uint32) bool {
	_, ok := sg.index[node]
	return ok
}

// ForEachEdge calls fn for every edge stored under node, in insertion order.
func (sg *SubGraph) ForEachEdge(node uint32, fn func(graph.EdgeState)) {
	i, ok := sg.index[node]
	if !ok {
		return
	}
	for l := sg.first[i]; l >= 0; l = sg.links[l].next {
		fn(sg.links[l].state)
	}
}

// Nodes returns the nodes in the order they were first added.
func (sg *SubGraph) Nodes() []uint32 { return sg.nodes }

func (sg *SubGraph) NumNodes() int { return len(sg.nodes) }
func (sg *SubGraph) NumEdges() int { return len(sg.links) }

package graph

import (
	"cmp"
	"slices"

	"matrix_router/pkg/encoder"
	"matrix_router/pkg/geo"
)

// EndpointTolerance is how close, in meters, a snap must be to a segment
// endpoint to resolve to the real node instead of a virtual one.
const EndpointTolerance = 0.5

// Snap places a query point on a base segment. Ratio runs from the
// segment's stored base (0) to its adj (1).
type Snap struct {
	Edge  uint32
	Ratio float64
	Lat   float64
	Lon   float64
}

type virtualEdge struct {
	base, adj uint32
	weight    float64
	distance  float64
	flags     uint32
	original  uint32
}

// QueryGraph overlays request-local virtual nodes on a CH graph without
// modifying it. Virtual nodes have ids >= MaxNodes() and level 0; virtual
// edges have ids >= the CH edge count.
type QueryGraph struct {
	ch *CHGraph

	virtLat []float64
	virtLon []float64
	edges   []virtualEdge

	realAdj map[uint32][]uint32 // real node -> virtual edge indexes
	virtAdj [][]uint32          // virtual node index -> virtual edge indexes
}

// NewQueryGraph splits every snapped segment at its snap points and returns
// the node id each snap resolves to.
func NewQueryGraph(ch *CHGraph, snaps []Snap) (*QueryGraph, []uint32) {
	q := &QueryGraph{ch: ch, realAdj: make(map[uint32][]uint32)}
	nodes := make([]uint32, len(snaps))

	type pending struct {
		idx   int
		ratio float64
	}
	byEdge := make(map[uint32][]pending)

	for i, s := range snaps {
		e := s.Edge
		d := ch.EdgeDistance[e]
		switch {
		case s.Ratio*d <= EndpointTolerance:
			nodes[i] = ch.EdgeBase[e]
		case (1-s.Ratio)*d <= EndpointTolerance:
			nodes[i] = ch.EdgeAdj[e]
		default:
			byEdge[e] = append(byEdge[e], pending{idx: i, ratio: s.Ratio})
		}
	}

	edgeIDs := make([]uint32, 0, len(byEdge))
	for e := range byEdge {
		edgeIDs = append(edgeIDs, e)
	}
	slices.Sort(edgeIDs)

	for _, e := range edgeIDs {
		ps := byEdge[e]
		slices.SortStableFunc(ps, func(a, b pending) int { return cmp.Compare(a.ratio, b.ratio) })

		// The last piece takes the remainder so the pieces add up to the
		// segment exactly when summed from base to adj.
		w, d := ch.EdgeWeight[e], ch.EdgeDistance[e]
		prevNode, prevRatio := ch.EdgeBase[e], 0.0
		var usedW, usedD float64
		var cur uint32
		for k, p := range ps {
			if k == 0 || p.ratio != ps[k-1].ratio {
				cur = q.addVirtualNode(snaps[p.idx].Lat, snaps[p.idx].Lon)
				pw, pd := w*(p.ratio-prevRatio), d*(p.ratio-prevRatio)
				q.addVirtualEdge(e, prevNode, cur, pw, pd)
				usedW += pw
				usedD += pd
				prevNode, prevRatio = cur, p.ratio
			}
			nodes[p.idx] = cur
		}
		q.addVirtualEdge(e, prevNode, ch.EdgeAdj[e], w-usedW, d-usedD)
	}
	return q, nodes
}

func (q *QueryGraph) addVirtualNode(lat, lon float64) uint32 {
	id := q.ch.NumNodes + uint32(len(q.virtLat))
	q.virtLat = append(q.virtLat, lat)
	q.virtLon = append(q.virtLon, lon)
	q.virtAdj = append(q.virtAdj, nil)
	return id
}

func (q *QueryGraph) addVirtualEdge(original, base, adj uint32, weight, distance float64) {
	idx := uint32(len(q.edges))
	q.edges = append(q.edges, virtualEdge{
		base:     base,
		adj:      adj,
		weight:   weight,
		distance: distance,
		flags:    q.ch.EdgeFlags[original],
		original: original,
	})
	for _, n := range [2]uint32{base, adj} {
		if n >= q.ch.NumNodes {
			q.virtAdj[n-q.ch.NumNodes] = append(q.virtAdj[n-q.ch.NumNodes], idx)
		} else {
			q.realAdj[n] = append(q.realAdj[n], idx)
		}
	}
}

// CH returns the underlying contracted graph.
func (q *QueryGraph) CH() *CHGraph { return q.ch }

// NumVirtualNodes returns how many virtual nodes the overlay created.
func (q *QueryGraph) NumVirtualNodes() int { return len(q.virtLat) }

func (q *QueryGraph) MaxNodes() uint32 { return q.ch.NumNodes }

func (q *QueryGraph) Level(node uint32) uint32 {
	if node >= q.ch.NumNodes {
		return 0
	}
	return q.ch.Levels[node]
}

// Coord returns the coordinate of a real or virtual node.
func (q *QueryGraph) Coord(node uint32) (lat, lon float64) {
	if node >= q.ch.NumNodes {
		i := node - q.ch.NumNodes
		return q.virtLat[i], q.virtLon[i]
	}
	return q.ch.NodeLat[node], q.ch.NodeLon[node]
}

func (q *QueryGraph) ForEachEdge(node uint32, fn func(EdgeState)) {
	var virt []uint32
	if node >= q.ch.NumNodes {
		virt = q.virtAdj[node-q.ch.NumNodes]
	} else {
		q.ch.ForEachEdge(node, fn)
		virt = q.realAdj[node]
	}
	for _, i := range virt {
		fn(q.virtualState(i, q.edges[i].base != node))
	}
}

func (q *QueryGraph) EdgeState(edge, adjNode uint32) EdgeState {
	chEdges := q.ch.NumEdges()
	if edge < chEdges {
		return q.ch.EdgeState(edge, adjNode)
	}
	i := edge - chEdges
	return q.virtualState(i, q.edges[i].adj != adjNode)
}

func (q *QueryGraph) virtualState(i uint32, reversed bool) EdgeState {
	ve := q.edges[i]
	s := EdgeState{
		Edge:     q.ch.NumEdges() + i,
		Base:     ve.base,
		Adj:      ve.adj,
		Weight:   ve.weight,
		Distance: ve.distance,
		Flags:    ve.flags,
		Skip1:    NoSkip,
		Skip2:    NoSkip,
		Original: ve.original,
	}
	if reversed {
		s.Base, s.Adj = s.Adj, s.Base
		s.Flags = encoder.Reverse(s.Flags)
		s.Reversed = true
	}
	return s
}

// SnapRatio projects (lat, lon) onto CH base edge e and returns the snap
// together with the distance in meters from the point to the segment.
func SnapRatio(ch *CHGraph, e uint32, lat, lon float64) (Snap, float64) {
	u, v := ch.EdgeBase[e], ch.EdgeAdj[e]
	dist, t := geo.PointToSegmentDist(lat, lon, ch.NodeLat[u], ch.NodeLon[u], ch.NodeLat[v], ch.NodeLon[v])
	sLat, sLon := geo.Interpolate(ch.NodeLat[u], ch.NodeLon[u], ch.NodeLat[v], ch.NodeLon[v], t)
	return Snap{Edge: e, Ratio: t, Lat: sLat, Lon: sLon}, dist
}

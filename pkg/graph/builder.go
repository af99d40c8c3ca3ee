package graph

import (
	"log/slog"

	"github.com/paulmach/osm"

	"matrix_router/pkg/encoder"
	osmparser "matrix_router/pkg/osm"
)

// minDistance keeps coincident way nodes from producing zero-weight segments.
const minDistance = 0.001

// Build creates the base graph from parsed segments. Segment ids follow the
// input order; self-loops are dropped.
func Build(result *osmparser.ParseResult, enc encoder.FlagEncoder) *Graph {
	g := &Graph{Encoder: enc.Name()}
	if len(result.Edges) == 0 {
		return g
	}

	nodeIdx := make(map[osm.NodeID]uint32)
	var nodeIDs []osm.NodeID
	index := func(id osm.NodeID) uint32 {
		if i, ok := nodeIdx[id]; ok {
			return i
		}
		i := uint32(len(nodeIDs))
		nodeIdx[id] = i
		nodeIDs = append(nodeIDs, id)
		return i
	}

	var selfLoops int
	for _, e := range result.Edges {
		if e.FromNodeID == e.ToNodeID {
			selfLoops++
			continue
		}
		g.EdgeU = append(g.EdgeU, index(e.FromNodeID))
		g.EdgeV = append(g.EdgeV, index(e.ToNodeID))
		g.Distance = append(g.Distance, max(e.DistanceMeters, minDistance))
		g.Flags = append(g.Flags, enc.Encode(e.Forward, e.Backward, e.SpeedKmh))
	}
	if selfLoops > 0 {
		slog.Debug("dropped self-loop segments", "count", selfLoops)
	}

	g.NumNodes = uint32(len(nodeIDs))
	g.NumEdges = uint32(len(g.EdgeU))
	g.NodeLat = make([]float64, g.NumNodes)
	g.NodeLon = make([]float64, g.NumNodes)
	for i, id := range nodeIDs {
		g.NodeLat[i] = result.NodeLat[id]
		g.NodeLon[i] = result.NodeLon[id]
	}
	g.FirstOut, g.AdjEdge = BuildIncidence(g.NumNodes, g.EdgeU, g.EdgeV)
	return g
}

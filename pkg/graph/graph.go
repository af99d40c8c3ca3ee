package graph

// Graph is the undirected base road graph. Each segment is stored once as
// (EdgeU, EdgeV); Flags carry access bits relative to U -> V. The incidence
// CSR lists every segment at both of its endpoints.
type Graph struct {
	NumNodes uint32
	NumEdges uint32
	NodeLat  []float64 // len: NumNodes
	NodeLon  []float64 // len: NumNodes

	EdgeU    []uint32  // len: NumEdges
	EdgeV    []uint32  // len: NumEdges
	Distance []float64 // len: NumEdges; meters
	Flags    []uint32  // len: NumEdges; encoder flags

	FirstOut []uint32 // len: NumNodes + 1
	AdjEdge  []uint32 // len: 2 * NumEdges; segment ids incident to each node

	Encoder string
}

// EdgesAt returns the range of AdjEdge positions for segments touching u.
func (g *Graph) EdgesAt(u uint32) (start, end uint32) {
	return g.FirstOut[u], g.FirstOut[u+1]
}

// Other returns the endpoint of segment e that is not u.
func (g *Graph) Other(e, u uint32) uint32 {
	if g.EdgeU[e] == u {
		return g.EdgeV[e]
	}
	return g.EdgeU[e]
}

// BuildIncidence returns the incidence CSR for edges (u[i], v[i]). Within a node,
// segments keep ascending id order.
func BuildIncidence(numNodes uint32, edgeU, edgeV []uint32) (firstOut, adjEdge []uint32) {
	firstOut = make([]uint32, numNodes+1)
	for e := range edgeU {
		firstOut[edgeU[e]+1]++
		firstOut[edgeV[e]+1]++
	}
	for i := uint32(1); i <= numNodes; i++ {
		firstOut[i] += firstOut[i-1]
	}

	adjEdge = make([]uint32, firstOut[numNodes])
	pos := make([]uint32, numNodes)
	copy(pos, firstOut[:numNodes])
	for e := range edgeU {
		u, v := edgeU[e], edgeV[e]
		adjEdge[pos[u]] = uint32(e)
		pos[u]++
		adjEdge[pos[v]] = uint32(e)
		pos[v]++
	}
	return firstOut, adjEdge
}

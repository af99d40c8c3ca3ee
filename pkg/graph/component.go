package graph

// UnionFind is a disjoint-set forest with path halving and union by size.
type UnionFind struct {
	parent []uint32
	size   []uint32
}

// NewUnionFind creates a UnionFind for n elements.
func NewUnionFind(n uint32) *UnionFind {
	uf := &UnionFind{parent: make([]uint32, n), size: make([]uint32, n)}
	for i := range n {
		uf.parent[i] = i
		uf.size[i] = 1
	}
	return uf
}

// Find returns the representative of the set containing x.
func (uf *UnionFind) Find(x uint32) uint32 {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = uf.parent[x]
	}
	return x
}

// Union merges the sets containing x and y. Returns false if already same set.
func (uf *UnionFind) Union(x, y uint32) bool {
	rx, ry := uf.Find(x), uf.Find(y)
	if rx == ry {
		return false
	}
	if uf.size[rx] < uf.size[ry] {
		rx, ry = ry, rx
	}
	uf.parent[ry] = rx
	uf.size[rx] += uf.size[ry]
	return true
}

// Size returns the number of elements in x's set.
func (uf *UnionFind) Size(x uint32) uint32 { return uf.size[uf.Find(x)] }

// LargestComponent returns the nodes of the largest weakly connected
// component in ascending order. Access flags are ignored.
func LargestComponent(g *Graph) []uint32 {
	if g.NumNodes == 0 {
		return nil
	}

	uf := NewUnionFind(g.NumNodes)
	for e := range g.NumEdges {
		uf.Union(g.EdgeU[e], g.EdgeV[e])
	}

	var best, bestSize uint32
	for i := range g.NumNodes {
		if s := uf.Size(i); s > bestSize {
			best, bestSize = uf.Find(i), s
		}
	}

	nodes := make([]uint32, 0, bestSize)
	for i := range g.NumNodes {
		if uf.Find(i) == best {
			nodes = append(nodes, i)
		}
	}
	return nodes
}

// FilterToComponent returns the subgraph induced by nodes. Nodes are
// renumbered in the given order and segments keep their relative order.
func FilterToComponent(g *Graph, nodes []uint32) *Graph {
	out := &Graph{Encoder: g.Encoder}
	if len(nodes) == 0 {
		return out
	}

	const absent = ^uint32(0)
	remap := make([]uint32, g.NumNodes)
	for i := range remap {
		remap[i] = absent
	}
	for newIdx, oldIdx := range nodes {
		remap[oldIdx] = uint32(newIdx)
	}

	for e := range g.NumEdges {
		u, v := remap[g.EdgeU[e]], remap[g.EdgeV[e]]
		if u == absent || v == absent {
			continue
		}
		out.EdgeU = append(out.EdgeU, u)
		out.EdgeV = append(out.EdgeV, v)
		out.Distance = append(out.Distance, g.Distance[e])
		out.Flags = append(out.Flags, g.Flags[e])
	}

	out.NumNodes = uint32(len(nodes))
	out.NumEdges = uint32(len(out.EdgeU))
	out.NodeLat = make([]float64, out.NumNodes)
	out.NodeLon = make([]float64, out.NumNodes)
	for newIdx, oldIdx := range nodes {
		out.NodeLat[newIdx] = g.NodeLat[oldIdx]
		out.NodeLon[newIdx] = g.NodeLon[oldIdx]
	}
	out.FirstOut, out.AdjEdge = BuildIncidence(out.NumNodes, out.EdgeU, out.EdgeV)
	return out
}

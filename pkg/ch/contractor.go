package ch

import (
	"container/heap"
	"log/slog"

	"matrix_router/pkg/encoder"
	"matrix_router/pkg/graph"
	"matrix_router/pkg/weighting"
)

// adjEntry is one directed arc in the mutable adjacency lists.
type adjEntry struct {
	to     uint32
	weight float64
	edge   uint32 // CH edge id: base segment or shortcut
}

// edgeTable accumulates the CH edge arrays while contracting.
type edgeTable struct {
	base, adj    []uint32
	flags        []uint32
	weight, dist []float64
	skip1, skip2 []int32
}

func (t *edgeTable) add(base, adj, flags uint32, weight, dist float64, skip1, skip2 int32) uint32 {
	id := uint32(len(t.base))
	t.base = append(t.base, base)
	t.adj = append(t.adj, adj)
	t.flags = append(t.flags, flags)
	t.weight = append(t.weight, weight)
	t.dist = append(t.dist, dist)
	t.skip1 = append(t.skip1, skip1)
	t.skip2 = append(t.skip2, skip2)
	return id
}

// Contract performs Contraction Hierarchies preprocessing. Every node is
// contracted; its level is its contraction rank. Shortcuts record the two
// edges they replace.
func Contract(g *graph.Graph, w weighting.Weighting) *graph.CHGraph {
	n := g.NumNodes
	chg := &graph.CHGraph{
		Encoder:      g.Encoder,
		Weighting:    w.Name(),
		NumNodes:     n,
		NumBaseEdges: g.NumEdges,
		NodeLat:      g.NodeLat,
		NodeLon:      g.NodeLon,
	}
	if n == 0 {
		chg.FirstOut = make([]uint32, 1)
		return chg
	}

	var t edgeTable
	outAdj := make([][]adjEntry, n)
	inAdj := make([][]adjEntry, n)

	for e := range g.NumEdges {
		u, v, flags := g.EdgeU[e], g.EdgeV[e], g.Flags[e]
		wt := w.CalcWeight(g.Distance[e], flags)
		t.add(u, v, flags, wt, g.Distance[e], graph.NoSkip, graph.NoSkip)

		if flags&encoder.AccessForward != 0 {
			outAdj[u] = append(outAdj[u], adjEntry{to: v, weight: wt, edge: e})
			inAdj[v] = append(inAdj[v], adjEntry{to: u, weight: wt, edge: e})
		}
		if flags&encoder.AccessBackward != 0 {
			outAdj[v] = append(outAdj[v], adjEntry{to: u, weight: wt, edge: e})
			inAdj[u] = append(inAdj[u], adjEntry{to: v, weight: wt, edge: e})
		}
	}

	contracted := make([]bool, n)
	rank := make([]uint32, n)
	contractedNeighbors := make([]int, n)
	depth := make([]int, n)

	pq := make(priorityQueue, n)
	for i := range n {
		pq[i] = &pqEntry{
			node:     i,
			priority: computePriority(outAdj, inAdj, i, contracted, contractedNeighbors[i], depth[i]),
			index:    int(i),
		}
	}
	heap.Init(&pq)

	ws := newWitnessState(n)
	slog.Info("starting contraction", "nodes", n, "weighting", w.Name())

	var totalShortcuts int
	order := uint32(0)

	for pq.Len() > 0 {
		entry := heap.Pop(&pq).(*pqEntry)
		node := entry.node
		if contracted[node] {
			continue
		}

		// Lazy update: re-insert if the priority got worse than the next best.
		newPriority := computePriority(outAdj, inAdj, node, contracted, contractedNeighbors[node], depth[node])
		if newPriority > entry.priority && pq.Len() > 0 && newPriority > pq[0].priority {
			entry.priority = newPriority
			heap.Push(&pq, entry)
			continue
		}

		shortcuts := findShortcuts(ws, outAdj, inAdj, node, contracted)

		contracted[node] = true
		rank[node] = order
		order++
		totalShortcuts += len(shortcuts)

		for _, sc := range shortcuts {
			id := t.add(sc.from, sc.to, encoder.AccessForward, sc.weight,
				t.dist[sc.in]+t.dist[sc.out], int32(sc.in), int32(sc.out))
			outAdj[sc.from] = append(outAdj[sc.from], adjEntry{to: sc.to, weight: sc.weight, edge: id})
			inAdj[sc.to] = append(inAdj[sc.to], adjEntry{to: sc.from, weight: sc.weight, edge: id})
		}

		for _, adj := range [2][]adjEntry{outAdj[node], inAdj[node]} {
			for _, e := range adj {
				if !contracted[e.to] {
					contractedNeighbors[e.to]++
					depth[e.to] = max(depth[e.to], depth[node]+1)
				}
			}
		}

		if order%progressInterval(n-order) == 0 {
			slog.Debug("contraction progress", "contracted", order, "nodes", n, "shortcuts", totalShortcuts)
		}
	}

	slog.Info("contraction complete",
		"shortcuts", totalShortcuts,
		"ratio", float64(totalShortcuts)/float64(max(g.NumEdges, 1)))

	chg.Levels = rank
	chg.EdgeBase, chg.EdgeAdj, chg.EdgeFlags = t.base, t.adj, t.flags
	chg.EdgeWeight, chg.EdgeDistance = t.weight, t.dist
	chg.EdgeSkip1, chg.EdgeSkip2 = t.skip1, t.skip2
	chg.FirstOut, chg.AdjEdge = graph.BuildIncidence(n, t.base, t.adj)
	return chg
}

// progressInterval logs more often as the remaining count shrinks.
func progressInterval(remaining uint32) uint32 {
	switch {
	case remaining < 1000:
		return 100
	case remaining < 10000:
		return 1000
	case remaining < 100000:
		return 10000
	}
	return 50000
}

type shortcut struct {
	from, to uint32
	weight   float64
	in, out  uint32 // replaced edges: from->node, node->to
}

// findShortcuts determines which shortcuts are needed when contracting node.
// One witness search per incoming neighbor covers all outgoing targets.
func findShortcuts(ws *witnessState, outAdj, inAdj [][]adjEntry, node uint32, contracted []bool) []shortcut {
	var incoming, outgoing []adjEntry
	for _, e := range inAdj[node] {
		if !contracted[e.to] {
			incoming = append(incoming, e)
		}
	}
	for _, e := range outAdj[node] {
		if !contracted[e.to] {
			outgoing = append(outgoing, e)
		}
	}
	if len(incoming) == 0 || len(outgoing) == 0 {
		return nil
	}

	var shortcuts []shortcut
	for _, in := range incoming {
		ws.search(outAdj, in, node, outgoing, contracted)
		for _, out := range outgoing {
			if out.to == in.to || ws.witnessed(in, out) {
				continue
			}
			shortcuts = append(shortcuts, shortcut{
				from: in.to, to: out.to, weight: in.weight + out.weight,
				in: in.edge, out: out.edge,
			})
		}
	}
	return shortcuts
}

// computePriority returns the priority for a node (lower = contract first).
func computePriority(outAdj, inAdj [][]adjEntry, node uint32, contracted []bool, contractedNeighbors, depth int) int {
	activeIn, activeOut := 0, 0
	for _, e := range inAdj[node] {
		if !contracted[e.to] {
			activeIn++
		}
	}
	for _, e := range outAdj[node] {
		if !contracted[e.to] {
			activeOut++
		}
	}
	// Worst-case shortcut count stands in for a simulated contraction.
	edgeDifference := activeIn*activeOut - (activeIn + activeOut)
	return edgeDifference + 2*contractedNeighbors + depth
}

type pqEntry struct {
	node     uint32
	priority int
	index    int
}

type priorityQueue []*pqEntry

func (pq priorityQueue) Len() int { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool {
	if pq[i].priority != pq[j].priority {
		return pq[i].priority < pq[j].priority
	}
	return pq[i].node < pq[j].node
}
func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *priorityQueue) Push(x any) {
	entry := x.(*pqEntry)
	entry.index = len(*pq)
	*pq = append(*pq, entry)
}

func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	entry := old[n-1]
	old[n-1] = nil
	entry.index = -1
	*pq = old[:n-1]
	return entry
}

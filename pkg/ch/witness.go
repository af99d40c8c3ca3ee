package ch

import "math"

// witnessLimits bounds one local search. A search that hits a limit may miss
// a witness, which only costs an extra shortcut.
type witnessLimits struct {
	settled int   // nodes popped before giving up
	hops    uint8 // arcs from the source
}

var defaultWitnessLimits = witnessLimits{settled: 500, hops: 5}

type witnessItem struct {
	node uint32
	dist float64
}

// witnessHeap is a binary min-heap on dist.
type witnessHeap struct {
	items []witnessItem
}

func (h *witnessHeap) Len() int { return len(h.items) }

func (h *witnessHeap) Push(node uint32, dist float64) {
	h.items = append(h.items, witnessItem{node, dist})
	i := len(h.items) - 1
	item := h.items[i]
	for i > 0 {
		p := (i - 1) / 2
		if item.dist >= h.items[p].dist {
			break
		}
		h.items[i] = h.items[p]
		i = p
	}
	h.items[i] = item
}

func (h *witnessHeap) Pop() witnessItem {
	top := h.items[0]
	n := len(h.items) - 1
	last := h.items[n]
	h.items = h.items[:n]
	if n == 0 {
		return top
	}
	i := 0
	for {
		c := 2*i + 1
		if c >= n {
			break
		}
		if c+1 < n && h.items[c+1].dist < h.items[c].dist {
			c++
		}
		if last.dist <= h.items[c].dist {
			break
		}
		h.items[i] = h.items[c]
		i = c
	}
	h.items[i] = last
	return top
}

// witnessState is reused across every search of one contraction run. Per-node
// slices are reset through touched so a search costs what it visits.
type witnessState struct {
	limits  witnessLimits
	dist    []float64
	hops    []uint8
	target  []uint32 // epoch stamp: node is an outgoing neighbor of this search
	epoch   uint32
	touched []uint32
	heap    witnessHeap
}

func newWitnessState(numNodes uint32) *witnessState {
	dist := make([]float64, numNodes)
	for i := range dist {
		dist[i] = math.Inf(1)
	}
	return &witnessState{
		limits: defaultWitnessLimits,
		dist:   dist,
		hops:   make([]uint8, numNodes),
		target: make([]uint32, numNodes),
		heap:   witnessHeap{items: make([]witnessItem, 0, 256)},
	}
}

func (ws *witnessState) reset() {
	for _, n := range ws.touched {
		ws.dist[n] = math.Inf(1)
		ws.hops[n] = 0
	}
	ws.touched = ws.touched[:0]
	ws.heap.items = ws.heap.items[:0]
	ws.epoch++
}

// search runs a bounded Dijkstra from in.to that never passes through
// excluded. It stops once every node in outgoing is settled or the frontier
// exceeds in.weight plus the largest outgoing weight.
func (ws *witnessState) search(outAdj [][]adjEntry, in adjEntry, excluded uint32, outgoing []adjEntry, contracted []bool) {
	ws.reset()

	pending := 0
	var maxOut float64
	for _, out := range outgoing {
		if out.to == in.to {
			continue
		}
		maxOut = max(maxOut, out.weight)
		if ws.target[out.to] != ws.epoch {
			ws.target[out.to] = ws.epoch
			pending++
		}
	}
	if pending == 0 {
		return
	}
	limit := in.weight + maxOut

	source := in.to
	ws.dist[source] = 0
	ws.touched = append(ws.touched, source)
	ws.heap.Push(source, 0)

	settled := 0
	for ws.heap.Len() > 0 {
		cur := ws.heap.Pop()
		if cur.dist > ws.dist[cur.node] {
			continue
		}
		if cur.dist > limit {
			return
		}
		if ws.target[cur.node] == ws.epoch {
			ws.target[cur.node] = 0
			if pending--; pending == 0 {
				return
			}
		}
		if settled++; settled >= ws.limits.settled {
			return
		}
		if ws.hops[cur.node] >= ws.limits.hops {
			continue
		}

		for _, e := range outAdj[cur.node] {
			if e.to == excluded || contracted[e.to] {
				continue
			}
			nd := cur.dist + e.weight
			if nd > limit || nd >= ws.dist[e.to] {
				continue
			}
			if math.IsInf(ws.dist[e.to], 1) {
				ws.touched = append(ws.touched, e.to)
			}
			ws.dist[e.to] = nd
			ws.hops[e.to] = ws.hops[cur.node] + 1
			ws.heap.Push(e.to, nd)
		}
	}
}

// witnessed reports whether the last search found a path to the target of
// out no longer than the in-node-out detour.
func (ws *witnessState) witnessed(in, out adjEntry) bool {
	return ws.dist[out.to] <= in.weight+out.weight
}

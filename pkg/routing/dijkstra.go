package routing

import "math"

// MinHeap is a concrete-typed min-heap for Dijkstra priority queues.
// Avoids interface boxing overhead of container/heap.
type MinHeap struct {
	items []PQItem
}

// PQItem is a priority queue entry.
type PQItem struct {
	Node uint32
	Dist float64
}

func (h *MinHeap) Len() int { return len(h.items) }

func (h *MinHeap) Push(node uint32, dist float64) {
	h.items = append(h.items, PQItem{node, dist})
	h.siftUp(len(h.items) - 1)
}

func (h *MinHeap) Pop() PQItem {
	n := len(h.items)
	item := h.items[0]
	h.items[0] = h.items[n-1]
	h.items = h.items[:n-1]
	if len(h.items) > 0 {
		h.siftDown(0)
	}
	return item
}

// PeekDist returns the smallest distance, or +Inf when empty.
func (h *MinHeap) PeekDist() float64 {
	if len(h.items) == 0 {
		return math.Inf(1)
	}
	return h.items[0].Dist
}

func (h *MinHeap) Reset() {
	h.items = h.items[:0]
}

func (h *MinHeap) siftUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if h.items[i].Dist >= h.items[parent].Dist {
			break
		}
		h.items[i], h.items[parent] = h.items[parent], h.items[i]
		i = parent
	}
}

func (h *MinHeap) siftDown(i int) {
	n := len(h.items)
	for {
		smallest := i
		left := 2*i + 1
		right := 2*i + 2
		if left < n && h.items[left].Dist < h.items[smallest].Dist {
			smallest = left
		}
		if right < n && h.items[right].Dist < h.items[smallest].Dist {
			smallest = right
		}
		if smallest == i {
			break
		}
		h.items[i], h.items[smallest] = h.items[smallest], h.items[i]
		i = smallest
	}
}

// searchSpace is one direction of a CH query: tentative distances, the
// nodes touched so far and the queue.
type searchSpace struct {
	Dist    []float64
	Touched []uint32
	PQ      MinHeap
}

func newSearchSpace(n uint32) searchSpace {
	dist := make([]float64, n)
	for i := range dist {
		dist[i] = math.Inf(1)
	}
	return searchSpace{
		Dist:    dist,
		Touched: make([]uint32, 0, 1024),
		PQ:      MinHeap{items: make([]PQItem, 0, 256)},
	}
}

func (s *searchSpace) touch(node uint32, dist float64) {
	if math.IsInf(s.Dist[node], 1) {
		s.Touched = append(s.Touched, node)
	}
	s.Dist[node] = dist
}

// reset clears only the touched entries for fast reuse.
func (s *searchSpace) reset() {
	for _, node := range s.Touched {
		s.Dist[node] = math.Inf(1)
	}
	s.Touched = s.Touched[:0]
	s.PQ.Reset()
}

// QueryState holds per-query state for bidirectional CH searches.
type QueryState struct {
	Fwd searchSpace
	Bwd searchSpace
}

// NewQueryState creates a new QueryState for a graph with n nodes.
func NewQueryState(n uint32) *QueryState {
	return &QueryState{Fwd: newSearchSpace(n), Bwd: newSearchSpace(n)}
}

// Reset clears both directions.
func (qs *QueryState) Reset() {
	qs.Fwd.reset()
	qs.Bwd.reset()
}

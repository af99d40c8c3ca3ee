package rphast

import "math"

type heapItem struct {
	key   float64
	node  uint32
	entry int32
}

func (a heapItem) less(b heapItem) bool {
	if a.key != b.key {
		return a.key < b.key
	}
	return a.node < b.node
}

// Heap is a binary min-heap of forest entries ordered by key, then node id.
// Stale items are left in place and skipped by the caller on pop.
type Heap struct {
	items []heapItem
}

func (h *Heap) Len() int { return len(h.items) }

func (h *Heap) Push(key float64, node uint32, entry int32) {
	h.items = append(h.items, heapItem{key: key, node: node, entry: entry})
	h.siftUp(len(h.items) - 1)
}

func (h *Heap) Pop() heapItem {
	top := h.items[0]
	n := len(h.items) - 1
	h.items[0] = h.items[n]
	h.items = h.items[:n]
	if n > 0 {
		h.siftDown(0)
	}
	return top
}

// PeekKey returns the smallest key, or +Inf when empty.
func (h *Heap) PeekKey() float64 {
	if len(h.items) == 0 {
		return math.Inf(1)
	}
	return h.items[0].key
}

func (h *Heap) Reset() { h.items = h.items[:0] }

func (h *Heap) siftUp(i int) {
	item := h.items[i]
	for i > 0 {
		parent := (i - 1) / 2
		if !item.less(h.items[parent]) {
			break
		}
		h.items[i] = h.items[parent]
		i = parent
	}
	h.items[i] = item
}

func (h *Heap) siftDown(i int) {
	n := len(h.items)
	item := h.items[i]
	for {
		child := 2*i + 1
		if child >= n {
			break
		}
		if right := child + 1; right < n && h.items[right].less(h.items[child]) {
			child = right
		}
		if !h.items[child].less(item) {
			break
		}
		h.items[i] = h.items[child]
		i = child
	}
	h.items[i] = item
}

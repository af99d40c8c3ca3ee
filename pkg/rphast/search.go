package rphast

import (
	"context"
	"fmt"
	"math"

	"matrix_router/pkg/graph"
)

// cancelCheckInterval is how many settled entries pass between context checks.
const cancelCheckInterval = 1024

// Stats describes the work done by the last Prepare/CalcPaths pair.
type Stats struct {
	SubGraphNodes int
	SubGraphEdges int
	Entries       int
	Settled       int
}

// Option configures a Search.
type Option func(*Search)

// WithMaxSlots caps entries*sources for one search. Zero means unlimited.
func WithMaxSlots(n int) Option {
	return func(s *Search) { s.forest.maxSlots = n }
}

// Search runs RPHAST queries. It is not safe for concurrent use; pool one
// per worker and Reset it onto each request's graph.
type Search struct {
	g      Graph
	sub    *SubGraph
	forest *Forest
	heap   Heap

	queue   []uint32
	targets map[uint32]struct{}
	scratch []Slot

	unreached  int
	maxReached float64
	settled    int
	err        error
}

// NewSearch returns a search over g.
func NewSearch(g Graph, opts ...Option) *Search {
	s := &Search{
		g:       g,
		sub:     NewSubGraph(g),
		forest:  newForest(0),
		targets: make(map[uint32]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Reset binds the search to g and clears per-request state, keeping buffers.
func (s *Search) Reset(g Graph) {
	s.g = g
	s.sub.Reset(g)
	s.forest.reset(0)
	s.heap.Reset()
	clear(s.targets)
	s.settled = 0
	s.err = nil
}

// Prepare builds the target subgraph. Negative ids are skipped.
func (s *Search) Prepare(targets []int32) {
	s.queue = buildSubGraph(s.g, s.sub, targets, s.queue)
}

// SubGraph returns the subgraph built by Prepare.
func (s *Search) SubGraph() *SubGraph { return s.sub }

// Forest returns the entries settled by CalcPaths.
func (s *Search) Forest() *Forest { return s.forest }

func (s *Search) Stats() Stats {
	return Stats{
		SubGraphNodes: s.sub.NumNodes(),
		SubGraphEdges: s.sub.NumEdges(),
		Entries:       s.forest.Len(),
		Settled:       s.settled,
	}
}

// CalcPaths runs the multi-source upward search over the graph and the
// prepared subgraph. Slot j of every entry belongs to sources[j]. It returns
// the forest entry index for each target, or -1 for invalid or unreached
// targets. Negative source ids leave their slots at +Inf.
func (s *Search) CalcPaths(ctx context.Context, sources, targets []int32) ([]int32, error) {
	f := s.forest
	f.reset(len(sources))
	s.heap.Reset()
	s.settled = 0
	s.err = nil
	s.maxReached = 0

	clear(s.targets)
	for _, t := range targets {
		if t >= 0 {
			s.targets[uint32(t)] = struct{}{}
		}
	}
	validSources := 0
	for _, src := range sources {
		if src >= 0 {
			validSources++
		}
	}
	s.unreached = len(s.targets) * validSources

	for j, src := range sources {
		if src < 0 {
			continue
		}
		node := uint32(src)
		_, target := s.targets[node]
		i, err := f.getOrCreate(node, target)
		if err != nil {
			return nil, fmt.Errorf("init source %d: %w", j, err)
		}
		slot := &f.slotsOf(i)[j]
		if target && !slot.Reached() {
			s.unreached--
		}
		*slot = Slot{Weight: 0, Edge: -1, Parent: -1, fresh: true}
		if e := &f.entries[i]; e.Key > 0 {
			e.Key = 0
			s.heap.Push(0, node, i)
		}
	}

	for s.heap.Len() > 0 {
		if s.unreached == 0 && s.heap.PeekKey() >= s.maxReached {
			break
		}
		it := s.heap.Pop()
		if it.key != f.entries[it.entry].Key {
			continue
		}
		s.settle(it.entry)
		if s.err != nil {
			return nil, s.err
		}
		if s.settled%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
	}

	out := make([]int32, len(targets))
	for k, t := range targets {
		out[k] = -1
		if t < 0 {
			continue
		}
		if i, ok := f.Lookup(uint32(t)); ok {
			out[k] = i
		}
	}
	return out, nil
}

// settle relaxes the fresh slots of entry i over its upward edges and its
// subgraph edges. Every fresh slot takes both, whichever way it arrived.
func (s *Search) settle(i int32) {
	s.settled++
	f := s.forest
	node := f.entries[i].Node

	// The arena may grow while relaxing, so work from a copy.
	s.scratch = append(s.scratch[:0], f.slotsOf(i)...)
	slots := f.slotsOf(i)
	for j := range slots {
		slots[j].fresh = false
	}
	f.entries[i].Key = math.Inf(1)

	s.g.ForEachEdge(node, func(st graph.EdgeState) {
		if s.err == nil && AcceptUpward(s.g, st) {
			s.relax(i, st)
		}
	})
	s.sub.ForEachEdge(node, func(st graph.EdgeState) {
		if s.err == nil && st.Forward() {
			s.relax(i, st)
		}
	})
}

func (s *Search) relax(from int32, st graph.EdgeState) {
	f := s.forest
	_, target := s.targets[st.Adj]
	to, err := f.getOrCreate(st.Adj, target)
	if err != nil {
		s.err = fmt.Errorf("relax edge %d: %w", st.Edge, err)
		return
	}
	dst := f.slotsOf(to)
	target = f.entries[to].Target

	key := math.Inf(1)
	for j := range s.scratch {
		src := &s.scratch[j]
		if !src.fresh {
			continue
		}
		cand := src.Weight + st.Weight
		d := &dst[j]
		if cand >= d.Weight {
			continue
		}
		if target {
			if !d.Reached() {
				s.unreached--
			}
			s.maxReached = max(s.maxReached, cand)
		}
		*d = Slot{Weight: cand, Edge: int32(st.Edge), Parent: from, fresh: true}
		key = min(key, cand)
	}

	if e := &f.entries[to]; key < e.Key {
		e.Key = key
		s.heap.Push(key, e.Node, to)
	}
}

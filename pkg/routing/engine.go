package routing

import (
	"context"
	"errors"
	"math"
	"sync"

	"matrix_router/pkg/graph"
)

// ErrNoRoute is returned when no route exists between the two nodes.
var ErrNoRoute = errors.New("no route found")

const cancelCheckInterval = 100

// Engine answers one-to-one and one-to-many CH queries by node id. It is
// safe for concurrent use; per-query state is pooled.
type Engine struct {
	chg  *graph.CHGraph
	pool sync.Pool
}

// NewEngine creates a query engine over a contracted graph.
func NewEngine(chg *graph.CHGraph) *Engine {
	e := &Engine{chg: chg}
	e.pool.New = func() any { return NewQueryState(chg.NumNodes) }
	return e
}

func (e *Engine) upward(s graph.EdgeState, forward bool) bool {
	if e.chg.Level(s.Base) >= e.chg.Level(s.Adj) {
		return false
	}
	if forward {
		return s.Forward()
	}
	return s.Backward()
}

// Route returns the shortest path weight from source to target using a
// bidirectional upward search.
func (e *Engine) Route(ctx context.Context, source, target uint32) (float64, error) {
	qs := e.pool.Get().(*QueryState)
	defer func() {
		qs.Reset()
		e.pool.Put(qs)
	}()

	qs.Fwd.touch(source, 0)
	qs.Fwd.PQ.Push(source, 0)
	qs.Bwd.touch(target, 0)
	qs.Bwd.PQ.Push(target, 0)

	mu := math.Inf(1)
	iterations := 0

	for qs.Fwd.PQ.Len() > 0 || qs.Bwd.PQ.Len() > 0 {
		iterations++
		if iterations%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
		}

		if qs.Fwd.PQ.PeekDist() < mu {
			mu = e.step(&qs.Fwd, &qs.Bwd, true, mu)
		}
		if qs.Bwd.PQ.PeekDist() < mu {
			mu = e.step(&qs.Bwd, &qs.Fwd, false, mu)
		}

		if qs.Fwd.PQ.PeekDist() >= mu && qs.Bwd.PQ.PeekDist() >= mu {
			break
		}
	}

	if math.IsInf(mu, 1) {
		return 0, ErrNoRoute
	}
	return mu, nil
}

// step settles one node of this direction and returns the updated meeting
// distance.
func (e *Engine) step(this, other *searchSpace, forward bool, mu float64) float64 {
	item := this.PQ.Pop()
	u, d := item.Node, item.Dist
	if d > this.Dist[u] {
		return mu
	}
	if od := other.Dist[u]; d+od < mu {
		mu = d + od
	}
	e.chg.ForEachEdge(u, func(s graph.EdgeState) {
		if !e.upward(s, forward) {
			return
		}
		if nd := d + s.Weight; nd < this.Dist[s.Adj] {
			this.touch(s.Adj, nd)
			this.PQ.Push(s.Adj, nd)
		}
	})
	return mu
}

// OneToMany runs one exhaustive forward upward search from source and then
// a pruned backward upward search per target. Unreachable targets get +Inf.
func (e *Engine) OneToMany(ctx context.Context, source uint32, targets []uint32) ([]float64, error) {
	qs := e.pool.Get().(*QueryState)
	defer func() {
		qs.Reset()
		e.pool.Put(qs)
	}()

	fwd := &qs.Fwd
	fwd.touch(source, 0)
	fwd.PQ.Push(source, 0)
	for fwd.PQ.Len() > 0 {
		item := fwd.PQ.Pop()
		if item.Dist > fwd.Dist[item.Node] {
			continue
		}
		e.chg.ForEachEdge(item.Node, func(s graph.EdgeState) {
			if !e.upward(s, true) {
				return
			}
			if nd := item.Dist + s.Weight; nd < fwd.Dist[s.Adj] {
				fwd.touch(s.Adj, nd)
				fwd.PQ.Push(s.Adj, nd)
			}
		})
	}

	out := make([]float64, len(targets))
	bwd := &qs.Bwd
	for i, t := range targets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		bwd.reset()
		bwd.touch(t, 0)
		bwd.PQ.Push(t, 0)

		mu := math.Inf(1)
		for bwd.PQ.Len() > 0 && bwd.PQ.PeekDist() < mu {
			item := bwd.PQ.Pop()
			if item.Dist > bwd.Dist[item.Node] {
				continue
			}
			if fd := fwd.Dist[item.Node]; fd+item.Dist < mu {
				mu = fd + item.Dist
			}
			e.chg.ForEachEdge(item.Node, func(s graph.EdgeState) {
				if !e.upward(s, false) {
					return
				}
				if nd := item.Dist + s.Weight; nd < bwd.Dist[s.Adj] {
					bwd.touch(s.Adj, nd)
					bwd.PQ.Push(s.Adj, nd)
				}
			})
		}
		out[i] = mu
	}
	return out, nil
}

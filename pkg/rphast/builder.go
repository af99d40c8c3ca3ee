package rphast

import (
	"log/slog"

	"matrix_router/pkg/graph"
)

// buildSubGraph sweeps breadth-first from every target over edges accepted
// by AcceptDownward and records them in sg, oriented toward the target side.
// Negative target ids are skipped.
func buildSubGraph(g Graph, sg *SubGraph, targets []int32, queue []uint32) []uint32 {
	sg.Reset(g)
	queue = queue[:0]

	for _, t := range targets {
		if t < 0 {
			continue
		}
		if sg.AddEdge(uint32(t), nil) {
			queue = append(queue, uint32(t))
		}
	}

	for head := 0; head < len(queue); head++ {
		u := queue[head]
		g.ForEachEdge(u, func(s graph.EdgeState) {
			if !AcceptDownward(g, s) {
				return
			}
			if sg.AddEdge(u, &s) {
				queue = append(queue, s.Adj)
			}
		})
	}

	slog.Debug("target subgraph built", "nodes", sg.NumNodes(), "edges", sg.NumEdges())
	return queue
}

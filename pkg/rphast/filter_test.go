package rphast

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"matrix_router/pkg/graph"
	"matrix_router/pkg/graph/graphtest"
)

func TestAcceptUpwardAndDownward(t *testing.T) {
	chg := graphtest.Contract(t, graphtest.City(6, 6, 11), "fastest")

	for n := range chg.NumNodes {
		chg.ForEachEdge(n, func(s graph.EdgeState) {
			up := chg.Level(s.Base) < chg.Level(s.Adj) && s.Forward()
			assert.Equal(t, up, AcceptUpward(chg, s), "edge %d at %d", s.Edge, n)

			down := chg.Level(s.Base) <= chg.Level(s.Adj) && s.Backward()
			assert.Equal(t, down, AcceptDownward(chg, s), "edge %d at %d", s.Edge, n)
		})
	}
}

func TestFiltersVirtualEdges(t *testing.T) {
	chg := graphtest.Contract(t, graphtest.Grid6(), "shortest")
	qg, nodes := graph.NewQueryGraph(chg, []graph.Snap{{Edge: 0, Ratio: 0.5}})
	v := nodes[0]
	assert.GreaterOrEqual(t, v, chg.NumNodes)

	var seen int
	qg.ForEachEdge(v, func(s graph.EdgeState) {
		seen++
		assert.True(t, AcceptUpward(qg, s))
		assert.True(t, AcceptDownward(qg, s))
	})
	assert.Equal(t, 2, seen)
}

func TestFiltersRespectOneWay(t *testing.T) {
	r := graphtest.Grid6()
	r.Edges[0].Backward = false // 0 -> 1 only
	chg := graphtest.Contract(t, r, "shortest")

	s01 := chg.EdgeState(0, 1)
	s10 := chg.EdgeState(0, 0)
	if chg.Level(0) < chg.Level(1) {
		assert.True(t, AcceptUpward(chg, s01))
		assert.False(t, AcceptDownward(chg, s01))
	} else {
		assert.False(t, AcceptUpward(chg, s10))
		assert.True(t, AcceptDownward(chg, s10))
	}
}

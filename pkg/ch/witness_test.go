package ch

import (
	"math"
	"testing"
)

// diamond: 0 -> 1 -> 2 via the contracted node 1, and a detour 0 -> 3 -> 2.
func diamond(detour float64) [][]adjEntry {
	out := make([][]adjEntry, 4)
	out[0] = []adjEntry{{to: 1, weight: 10, edge: 0}, {to: 3, weight: detour / 2, edge: 2}}
	out[1] = []adjEntry{{to: 2, weight: 10, edge: 1}}
	out[3] = []adjEntry{{to: 2, weight: detour / 2, edge: 3}}
	return out
}

func TestWitnessSearch(t *testing.T) {
	tests := []struct {
		name    string
		detour  float64
		witness bool
	}{
		{"shorter detour", 16, true},
		{"equal detour", 20, true},
		{"longer detour", 24, false},
	}
	in := adjEntry{to: 0, weight: 10, edge: 0}
	out := adjEntry{to: 2, weight: 10, edge: 1}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ws := newWitnessState(4)
			ws.search(diamond(tt.detour), in, 1, []adjEntry{out}, make([]bool, 4))
			if got := ws.witnessed(in, out); got != tt.witness {
				t.Errorf("witnessed = %v, want %v (dist %f)", got, tt.witness, ws.dist[2])
			}
		})
	}
}

func TestWitnessSearchHopLimit(t *testing.T) {
	// Chain 0 -> 2 -> 3 -> 4 -> 5 -> 6 -> 7 -> 8 with unit weights, excluded
	// node 1 carries the direct in/out pair of weight 100 each.
	const n = 9
	outAdj := make([][]adjEntry, n)
	chain := []uint32{0, 2, 3, 4, 5, 6, 7, 8}
	for i := 0; i+1 < len(chain); i++ {
		outAdj[chain[i]] = append(outAdj[chain[i]], adjEntry{to: chain[i+1], weight: 1})
	}
	in := adjEntry{to: 0, weight: 100}
	out := adjEntry{to: 8, weight: 100}

	ws := newWitnessState(n)
	ws.search(outAdj, in, 1, []adjEntry{out}, make([]bool, n))
	if ws.witnessed(in, out) {
		t.Error("a witness beyond the hop limit should not be found")
	}
	if got := ws.hops[7]; got != 0 {
		t.Errorf("node 7 past the hop limit has hops %d, want 0", got)
	}

	ws.limits.hops = 10
	ws.search(outAdj, in, 1, []adjEntry{out}, make([]bool, n))
	if !ws.witnessed(in, out) {
		t.Error("raised hop limit should find the chain witness")
	}
}

func TestWitnessSearchReset(t *testing.T) {
	ws := newWitnessState(4)
	in := adjEntry{to: 0, weight: 10}
	out := adjEntry{to: 2, weight: 10}
	ws.search(diamond(16), in, 1, []adjEntry{out}, make([]bool, 4))
	if ws.dist[2] != 16 {
		t.Fatalf("dist[2] = %f, want 16", ws.dist[2])
	}

	// A contracted detour hides the witness from the next search.
	contracted := []bool{false, false, false, true}
	ws.search(diamond(16), in, 1, []adjEntry{out}, contracted)
	if !math.IsInf(ws.dist[2], 1) {
		t.Errorf("dist[2] = %f after reset, want +Inf", ws.dist[2])
	}
	if ws.witnessed(in, out) {
		t.Error("contracted detour must not witness")
	}
}

func TestWitnessHeapOrder(t *testing.T) {
	h := &witnessHeap{}
	for i, d := range []float64{5, 1, 4, 2, 3, 0} {
		h.Push(uint32(i), d)
	}
	prev := math.Inf(-1)
	for h.Len() > 0 {
		it := h.Pop()
		if it.dist < prev {
			t.Fatalf("popped %f after %f", it.dist, prev)
		}
		prev = it.dist
	}
}

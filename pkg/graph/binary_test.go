package graph_test

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/paulmach/osm"

	"matrix_router/pkg/ch"
	"matrix_router/pkg/encoder"
	"matrix_router/pkg/graph"
	osmparser "matrix_router/pkg/osm"
	"matrix_router/pkg/weighting"
)

func seg(from, to osm.NodeID, d float64) osmparser.RawEdge {
	return osmparser.RawEdge{FromNodeID: from, ToNodeID: to, DistanceMeters: d, Forward: true, Backward: true, SpeedKmh: 50}
}

// buildTestCH contracts the 6-node grid
//
//	0 ---100--- 1 ---200--- 2
//	|                       |
//	300                    400
//	|                       |
//	3 ---500--- 4 ---600--- 5
func buildTestCH(t *testing.T) *graph.CHGraph {
	t.Helper()
	result := &osmparser.ParseResult{
		Edges: []osmparser.RawEdge{
			seg(10, 20, 100),
			seg(20, 30, 200),
			seg(10, 40, 300),
			seg(40, 50, 500),
			seg(50, 60, 600),
			seg(30, 60, 400),
		},
		NodeLat: map[osm.NodeID]float64{10: 1.0, 20: 1.0, 30: 1.0, 40: 1.1, 50: 1.1, 60: 1.1},
		NodeLon: map[osm.NodeID]float64{10: 103.0, 20: 103.1, 30: 103.2, 40: 103.0, 50: 103.1, 60: 103.2},
	}
	return ch.Contract(graph.Build(result, encoder.NewCar()), weighting.Shortest{})
}

func TestBinaryRoundTrip(t *testing.T) {
	original := buildTestCH(t)
	path := filepath.Join(t.TempDir(), "test.graph.bin")

	if err := graph.WriteBinary(path, original); err != nil {
		t.Fatalf("WriteBinary: %v", err)
	}
	loaded, err := graph.ReadBinary(path)
	if err != nil {
		t.Fatalf("ReadBinary: %v", err)
	}

	if loaded.NumNodes != original.NumNodes || loaded.NumBaseEdges != original.NumBaseEdges {
		t.Errorf("counts: got %d/%d, want %d/%d", loaded.NumNodes, loaded.NumBaseEdges, original.NumNodes, original.NumBaseEdges)
	}
	if loaded.Encoder != "car" || loaded.Weighting != "shortest" {
		t.Errorf("profile: got %q/%q, want car/shortest", loaded.Encoder, loaded.Weighting)
	}
	if !loaded.Prepared() {
		t.Error("loaded graph should report Prepared")
	}
	if !slices.Equal(loaded.NodeLat, original.NodeLat) || !slices.Equal(loaded.NodeLon, original.NodeLon) {
		t.Error("node coordinates differ")
	}
	if !slices.Equal(loaded.Levels, original.Levels) {
		t.Errorf("Levels: got %v, want %v", loaded.Levels, original.Levels)
	}
	if !slices.Equal(loaded.EdgeBase, original.EdgeBase) || !slices.Equal(loaded.EdgeAdj, original.EdgeAdj) {
		t.Error("edge endpoints differ")
	}
	if !slices.Equal(loaded.EdgeWeight, original.EdgeWeight) || !slices.Equal(loaded.EdgeDistance, original.EdgeDistance) {
		t.Error("edge weights differ")
	}
	if !slices.Equal(loaded.EdgeSkip1, original.EdgeSkip1) || !slices.Equal(loaded.EdgeSkip2, original.EdgeSkip2) {
		t.Error("skipped edges differ")
	}
	if !slices.Equal(loaded.FirstOut, original.FirstOut) || !slices.Equal(loaded.AdjEdge, original.AdjEdge) {
		t.Error("incidence CSR differs")
	}
}

func TestBinaryCorruptedChecksum(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.graph.bin")
	if err := graph.WriteBinary(path, buildTestCH(t)); err != nil {
		t.Fatalf("WriteBinary: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	data[len(data)/2] ^= 0xFF
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := graph.ReadBinary(path); err == nil {
		t.Fatal("expected error for corrupted file")
	}
}

func TestBinaryInvalidMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.graph.bin")
	os.WriteFile(path, []byte("NOT_A_GRAPH_HEADER_BLAH_BLAH_BLAH_MORE_DATA_EVEN_MORE_DATA_HERE_TOO"), 0o644)

	if _, err := graph.ReadBinary(path); err == nil {
		t.Fatal("expected error for invalid magic bytes")
	}
}

func TestBinaryTruncatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "truncated.graph.bin")
	os.WriteFile(path, []byte("MXROUTER"), 0o644)

	if _, err := graph.ReadBinary(path); err == nil {
		t.Fatal("expected error for truncated file")
	}
}

func TestBinaryRejectsLongProfileName(t *testing.T) {
	g := buildTestCH(t)
	g.Weighting = "a_weighting_name_that_is_too_long"
	if err := graph.WriteBinary(filepath.Join(t.TempDir(), "x.bin"), g); err == nil {
		t.Fatal("expected error for long weighting name")
	}
}
